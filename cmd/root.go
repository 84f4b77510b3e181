package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dstools/pkg/catalog"
	"dstools/pkg/script"
)

var rootCmd = &cobra.Command{
	Use:   "dstools",
	Short: "Tools for DS event-script files",
	Long: `dstools converts DS event-script containers between readable text
and the engine's binary format.

Supported operations:
  - Compile script text to .scr binaries (with cross-reference linking)
  - Decompile .scr binaries back to text
  - Verify round-trips over whole directories
  - Report cross-container references before linking`,
}

var (
	catalogPath string
	verbose     bool
	logger      *zap.Logger
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "",
		"command catalog JSON (default $DSTOOLS_CATALOG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose diagnostics")
	cobra.OnInitialize(initLogger)
}

func initLogger() {
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
			return
		}
	}
	logger = zap.NewNop()
}

// loadCatalog resolves the catalog path from the flag or environment
// and loads an immutable snapshot for this invocation.
func loadCatalog() (*script.Catalog, error) {
	path := catalogPath
	if path == "" {
		path = os.Getenv("DSTOOLS_CATALOG")
	}
	if path == "" {
		return nil, fmt.Errorf("no command catalog: pass --catalog or set DSTOOLS_CATALOG")
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog loaded", zap.String("path", path), zap.Int("commands", cat.Len()))
	return cat, nil
}
