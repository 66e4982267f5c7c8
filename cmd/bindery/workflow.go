package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/artifact"
	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/workflow"
)

var (
	wfBookConfig  string
	wfMock        bool
	wfDryRun      bool
	wfArtifactDir string
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Generate a book with the orchestrated workflow",
	Long: `Run the orchestrated workflow.

Content and cover are generated in parallel; each branch is retried on
transient backend errors. The PDFs are then assembled and the upload step
writes an upload manifest. A notification is sent on success and failure.

Artifacts are stored under {artifact_dir}/{book_id}/.

Examples:
  bindery workflow -c config/book_config.yaml
  bindery workflow -c config/book_config.yaml --dry-run   # print the input only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bookCfg, err := book.Load(wfBookConfig)
		if err != nil {
			return err
		}
		input := workflow.Input(bookCfg)
		if wfDryRun {
			return printer.Print(input)
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

		notifier, err := newNotifier(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeQuietly("notifier", notifier)

		dir := wfArtifactDir
		if dir == "" {
			dir = cfg.Workflow.ArtifactDir
		}

		wf, err := workflow.New(workflow.Config{
			Store:      artifact.NewFSStore(dir),
			Backends:   newFactory(cfg, h),
			Mock:       wfMock,
			MaxRetries: cfg.Workflow.MaxRetries,
			RetryDelay: time.Duration(cfg.Workflow.RetryDelaySeconds) * time.Second,
			UploadMode: workflow.UploadMode(cfg.Workflow.UploadMode),
			FontPath:   cfg.PDF.FontPath,
			Notifier:   notifier,
			History:    store,
			Pusher:     newPusher(cfg),
		})
		if err != nil {
			return err
		}

		result, err := wf.Run(ctx, input)
		if err != nil {
			return err
		}
		return printer.Print(result)
	},
}

func init() {
	workflowCmd.Flags().StringVarP(&wfBookConfig, "config", "c", "config/book_config.yaml", "book config YAML file")
	workflowCmd.Flags().BoolVarP(&wfMock, "mock", "m", false, "use mock backends (no external services)")
	workflowCmd.Flags().BoolVar(&wfDryRun, "dry-run", false, "print the workflow input without running")
	workflowCmd.Flags().StringVar(&wfArtifactDir, "artifact-dir", "", "artifact store directory (default: workflow.artifact_dir)")
}
