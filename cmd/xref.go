package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dstools/pkg/script"
	"dstools/pkg/xref"
)

var xrefCmd = &cobra.Command{
	Use:   "xref <file.txt>",
	Short: "Report cross-container references in script text",
	Long: `Compile script text and report its reference graph: which containers
point at which, references whose target is missing from the file, and
Function/Action containers nothing references.`,
	Args: cobra.ExactArgs(1),
	RunE: runXref,
}

func init() {
	rootCmd.AddCommand(xrefCmd)
}

func runXref(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	blob := string(text)

	f, err := script.CompileFile(cat, idFromName(args[0]), blob, blob, blob)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", args[0], err)
	}

	report := xref.Analyze(f)
	fmt.Print(report.Format())

	if len(report.Missing) > 0 {
		return fmt.Errorf("%d missing reference target(s)", len(report.Missing))
	}
	return nil
}
