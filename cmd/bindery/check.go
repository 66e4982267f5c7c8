package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/assembly"
	"github.com/jackzampolin/bindery/internal/quality"
)

var checkCmd = &cobra.Command{
	Use:   "check <manuscript.md|interior.pdf>",
	Short: "Run the quality gate on a manuscript or PDF",
	Long: `Run the quality gate on a Markdown manuscript or an interior PDF.

PDFs are validated first, then their text is extracted and checked.
Warnings are reported but the command succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		h, err := getHome()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(h)
		if err != nil {
			return err
		}

		var text string
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			if err := assembly.ValidateFile(path); err != nil {
				return err
			}
			text, err = assembly.ExtractText(path)
			if err != nil {
				return fmt.Errorf("failed to extract text: %w", err)
			}
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			text = string(data)
		}

		result := quality.NewChecker(thresholds(cfg)).Check(text).Rounded()
		return printer.Print(result)
	},
}
