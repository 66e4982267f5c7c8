package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/pipeline"
)

var (
	runBookConfig string
	runResume     bool
	runMock       bool
	runOutputRoot string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a book with the local pipeline",
	Long: `Run the local pipeline: content, cover, assembly, quality, manifest.

Progress is checkpointed to {output}/{book_id}/status.json after every
stage. With --resume, stages whose artifacts are already on disk are
skipped and no backend is contacted for them.

Examples:
  bindery run -c config/book_config.yaml
  bindery run -c config/book_config.yaml --resume
  bindery run -c config/book_config.yaml --mock   # no external services`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bookCfg, err := book.Load(runBookConfig)
		if err != nil {
			return err
		}

		h, err := getHome()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(h)
		if err != nil {
			return err
		}

		store, err := openHistory(cfg, h)
		if err != nil {
			return err
		}
		if store != nil {
			defer closeQuietly("run history", store)
		}

		root := runOutputRoot
		if root == "" {
			root = cfg.OutputDir
		}

		p, err := pipeline.New(pipeline.Config{
			Book:       bookCfg,
			OutputRoot: root,
			Backends:   newFactory(cfg, h),
			Mock:       runMock,
			Quality:    thresholds(cfg),
			FontPath:   cfg.PDF.FontPath,
			History:    store,
			Pusher:     newPusher(cfg),
		})
		if err != nil {
			return err
		}

		result, err := p.Run(ctx, runResume)
		if err != nil {
			if !pipeline.IsCanceled(err) {
				return fmt.Errorf("%w (retry with --resume)", err)
			}
			return err
		}
		return printer.Print(result)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runBookConfig, "config", "c", "config/book_config.yaml", "book config YAML file")
	runCmd.Flags().BoolVarP(&runResume, "resume", "r", false, "resume from the previous run's status")
	runCmd.Flags().BoolVarP(&runMock, "mock", "m", false, "use mock backends (no external services)")
	runCmd.Flags().StringVar(&runOutputRoot, "output-root", "", "output root directory (default: output_dir from app config)")
}
