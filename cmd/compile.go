package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blacktop/lzss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dstools/pkg/script"
)

var compileCmd = &cobra.Command{
	Use:   "compile <file.txt> [output.scr]",
	Short: "Compile script text to a .scr binary",
	Long: `Compile script text to the engine's binary container format.

The input holds Script/Function/Action blocks ("Script 3:" ... "End");
all three regions may live in one file. Output is the linked binary plus
a .layout.json sidecar recording the region boundaries the binary format
itself cannot express.

Examples:
  dstools compile -c commands.json event_042.txt
  dstools compile -c commands.json --dir ./scripts
  dstools compile -c commands.json --lzss event_042.txt`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCompile,
}

var (
	compileDir      string
	compileID       uint32
	compileCompress bool
)

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVarP(&compileDir, "dir", "d", "", "compile all .txt files in directory")
	compileCmd.Flags().Uint32Var(&compileID, "id", 0, "file id (default: digits in the file name)")
	compileCmd.Flags().BoolVar(&compileCompress, "lzss", false, "LZSS-compress the output")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	if compileDir != "" {
		return compileDirectory(cat, compileDir)
	}
	if len(args) < 1 {
		return fmt.Errorf("either --dir or a file path is required")
	}

	inputPath := args[0]
	outputPath := defaultOutput(inputPath, ".scr")
	if len(args) >= 2 {
		outputPath = args[1]
	}
	return compileOne(cat, inputPath, outputPath)
}

func compileOne(cat *script.Catalog, inputPath, outputPath string) error {
	text, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	id := compileID
	if id == 0 {
		id = idFromName(inputPath)
	}

	// One blob carries all three regions; each pass extracts its own
	// kind's blocks.
	blob := string(text)
	f, err := script.CompileFile(cat, id, blob, blob, blob)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", inputPath, err)
	}

	data, layout, unresolved := f.Bytes()
	for _, u := range unresolved {
		logger.Warn("unresolved reference", zap.String("detail", u.String()))
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", filepath.Base(inputPath), u)
	}

	if compileCompress {
		data = lzss.Compress(data)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	if err := writeLayout(layoutPath(outputPath), layout); err != nil {
		return err
	}

	fmt.Printf("Compiled %s -> %s (%d containers, %d bytes)\n",
		filepath.Base(inputPath), filepath.Base(outputPath),
		len(f.Containers()), len(data))
	return nil
}

func compileDirectory(cat *script.Catalog, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	processed := 0
	failures := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		inputPath := filepath.Join(dir, entry.Name())
		outputPath := defaultOutput(inputPath, ".scr")
		if err := compileOne(cat, inputPath, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", entry.Name(), err)
			failures++
		} else {
			processed++
		}
	}
	fmt.Printf("\nProcessed %d files, %d errors\n", processed, failures)
	return nil
}

func writeLayout(path string, layout *script.Layout) error {
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readLayout(path string) (*script.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var layout script.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("bad layout file %s: %w", path, err)
	}
	return &layout, nil
}

func layoutPath(binPath string) string {
	return strings.TrimSuffix(binPath, filepath.Ext(binPath)) + ".layout.json"
}

func defaultOutput(inputPath, ext string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ext
}

// idFromName pulls the trailing digit run out of a file name, so
// event_042.txt becomes file id 42.
func idFromName(path string) uint32 {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	end := len(base)
	for end > 0 && base[end-1] >= '0' && base[end-1] <= '9' {
		end--
	}
	if end == len(base) {
		return 0
	}
	v, err := strconv.ParseUint(base[end:], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
