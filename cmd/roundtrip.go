package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dstools/pkg/script"
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip <file.txt | dir>",
	Short: "Verify compile/decompile round-trips",
	Long: `Compile script text, link it, read the binary back, decompile it and
compile the result again, then compare the two command streams. A file
that survives this loop byte-identically is safe to hand-edit.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoundtrip,
}

func init() {
	rootCmd.AddCommand(roundtripCmd)
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return verifyRoundTrip(cat, args[0])
	}

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return err
	}
	passed := 0
	failed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(args[0], entry.Name())
		if err := verifyRoundTrip(cat, path); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", entry.Name(), err)
			failed++
		} else {
			passed++
		}
	}
	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed round-trip", failed)
	}
	return nil
}

// verifyRoundTrip is the whole pipeline end to end: text -> file ->
// bytes -> file -> text -> file, comparing the first and last files.
func verifyRoundTrip(cat *script.Catalog, path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	blob := string(text)

	original, err := script.CompileFile(cat, idFromName(path), blob, blob, blob)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	data, layout, unresolved := original.Bytes()
	for _, u := range unresolved {
		logger.Warn("unresolved reference", zap.String("detail", u.String()))
	}

	reread, err := script.ReadFileWithLayout(cat, data, original.ID, layout)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}

	decompiled := script.DecompileFile(cat, reread)
	recompiled, err := script.CompileFile(cat, original.ID, decompiled, decompiled, decompiled)
	if err != nil {
		return fmt.Errorf("recompile: %w", err)
	}

	// Unlinked references become concrete offsets after one pass
	// through the binary, so compare the relinked byte streams instead
	// of the in-memory reference tags.
	redata, _, _ := recompiled.Bytes()
	if len(data) != len(redata) {
		return fmt.Errorf("size mismatch: %d vs %d bytes", len(data), len(redata))
	}
	for i := range data {
		if data[i] != redata[i] {
			return fmt.Errorf("byte mismatch at 0x%X", i)
		}
	}

	fmt.Printf("OK %s (%d containers, %d bytes)\n",
		filepath.Base(path), len(original.Containers()), len(data))
	return nil
}
