package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/merge"
)

var (
	mergeBookDir string
	mergeOutDir  string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Build KDP PDFs from your own manuscript and cover",
	Long: `Merge a hand-prepared book folder into KDP-ready PDFs.

Book folder layout:
  books/my-book/
    manuscript.md    your content (required)
    cover.png        your cover; .jpg, .jpeg and .webp also work (required)
    config.yaml      book title/author under a "book:" key (optional)

The quality gate runs and reports warnings; it never blocks the merge.

Examples:
  bindery merge --book books/my-book
  bindery merge --book books/my-book --out output/my-book`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(h)
		if err != nil {
			return err
		}

		result, err := merge.Run(merge.Options{
			BookDir:   mergeBookDir,
			OutputDir: mergeOutDir,
			Quality:   thresholds(cfg),
			FontPath:  cfg.PDF.FontPath,
			Logger:    slog.Default(),
		})
		if err != nil {
			return err
		}
		return printer.Print(result)
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeBookDir, "book", "b", "", "book folder containing manuscript.md and a cover image")
	mergeCmd.Flags().StringVar(&mergeOutDir, "out", "", "output directory (default: output/<book folder name>)")
	_ = mergeCmd.MarkFlagRequired("book")
}
