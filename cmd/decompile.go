package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blacktop/lzss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dstools/pkg/script"
)

var decompileCmd = &cobra.Command{
	Use:   "decompile <file.scr> [output.txt]",
	Short: "Decompile a .scr binary to script text",
	Long: `Decompile an engine binary back to readable script text.

When a .layout.json sidecar sits next to the input (or is named with
--layout), all three regions are recovered. Without one, only Script
containers can be located from the file header; Function and Action
regions are not self-delimited in this format.

Examples:
  dstools decompile -c commands.json event_042.scr
  dstools decompile -c commands.json --lzss event_042.scr out.txt`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDecompile,
}

var (
	decompileDir        string
	decompileLayoutPath string
	decompileCompressed bool
)

func init() {
	rootCmd.AddCommand(decompileCmd)
	decompileCmd.Flags().StringVarP(&decompileDir, "dir", "d", "", "decompile all .scr files in directory")
	decompileCmd.Flags().StringVar(&decompileLayoutPath, "layout", "", "layout sidecar path (default <input>.layout.json)")
	decompileCmd.Flags().BoolVar(&decompileCompressed, "lzss", false, "input is LZSS-compressed")
}

func runDecompile(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	if decompileDir != "" {
		return decompileDirectory(cat, decompileDir)
	}
	if len(args) < 1 {
		return fmt.Errorf("either --dir or a file path is required")
	}

	inputPath := args[0]
	outputPath := defaultOutput(inputPath, ".txt")
	if len(args) >= 2 {
		outputPath = args[1]
	}
	return decompileOne(cat, inputPath, outputPath)
}

func decompileOne(cat *script.Catalog, inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}
	if decompileCompressed {
		data = lzss.Decompress(data)
	}

	id := idFromName(inputPath)

	var f *script.ScriptFile
	sidecar := decompileLayoutPath
	if sidecar == "" {
		sidecar = layoutPath(inputPath)
	}
	if layout, lerr := readLayout(sidecar); lerr == nil {
		f, err = script.ReadFileWithLayout(cat, data, id, layout)
	} else {
		logger.Debug("no layout sidecar, recovering scripts only",
			zap.String("input", inputPath), zap.Error(lerr))
		f, err = script.ReadFile(cat, data, id)
	}
	if err != nil {
		return fmt.Errorf("failed to decompile %s: %w", inputPath, err)
	}

	text := script.DecompileFile(cat, f)
	if err := os.WriteFile(outputPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	fmt.Printf("Decompiled %s -> %s (%d containers)\n",
		filepath.Base(inputPath), filepath.Base(outputPath), len(f.Containers()))
	return nil
}

func decompileDirectory(cat *script.Catalog, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	processed := 0
	failures := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".scr") {
			continue
		}
		inputPath := filepath.Join(dir, entry.Name())
		outputPath := defaultOutput(inputPath, ".txt")
		if err := decompileOne(cat, inputPath, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", entry.Name(), err)
			failures++
		} else {
			processed++
		}
	}
	fmt.Printf("\nProcessed %d files, %d errors\n", processed, failures)
	return nil
}
