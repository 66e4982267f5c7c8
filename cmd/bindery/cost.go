package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/artifact"
	"github.com/jackzampolin/bindery/internal/cost"
)

var costOutputRoot string

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Show the last session's cost and the cumulative total",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := costOutputRoot
		if root == "" {
			h, err := getHome()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(h)
			if err != nil {
				return err
			}
			root = cfg.OutputDir
		}

		path := filepath.Join(root, artifact.CostSummaryFile)
		f, err := cost.LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no cost summary at %s (run a pipeline first)", path)
		}
		if err != nil {
			return err
		}
		return printer.Print(f)
	},
}

func init() {
	costCmd.Flags().StringVar(&costOutputRoot, "output-root", "", "output root directory (default: output_dir from app config)")
}
