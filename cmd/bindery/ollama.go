package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/home"
	"github.com/jackzampolin/bindery/internal/ollama"
)

var ollamaCmd = &cobra.Command{
	Use:   "ollama",
	Short: "Manage a local Ollama container",
	Long: `Manage a local Ollama server in Docker for the ollama text backend.

Pulled models are persisted to ~/.bindery/ollama/.

Examples:
  bindery ollama start           # Start the container
  bindery ollama pull llama3.1   # Download a model
  bindery ollama status          # Check container status
  bindery ollama stop            # Stop the container (models preserved)`,
}

func getOllamaManager(h *home.Dir) (*ollama.Manager, error) {
	cfg, err := loadConfig(h)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureOllamaDataPath(); err != nil {
		return nil, err
	}
	return ollama.NewManager(ollama.Config{
		ContainerName: cfg.Ollama.ContainerName,
		Image:         cfg.Ollama.Image,
		DataPath:      h.OllamaDataPath(),
		HostPort:      cfg.Ollama.Port,
	})
}

var ollamaStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Ollama container",
	Long: `Start the Ollama container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := getOllamaManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting Ollama...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start Ollama: %w", err)
		}

		fmt.Printf("Ollama is running at %s\n", mgr.URL())
		return nil
	},
}

var ollamaStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Ollama container",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := getOllamaManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping Ollama...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop Ollama: %w", err)
		}

		fmt.Println("Ollama stopped")
		return nil
	},
}

var ollamaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Ollama container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := getOllamaManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case ollama.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())
		case ollama.StatusStopped:
			fmt.Printf("Status: %s (use 'bindery ollama start' to start)\n", status)
		case ollama.StatusNotFound:
			fmt.Printf("Status: %s (use 'bindery ollama start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}
		return nil
	},
}

var ollamaLogsTail string

var ollamaLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Ollama container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := getOllamaManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(ctx, ollamaLogsTail)
		if err != nil {
			return err
		}
		fmt.Print(logs)
		return nil
	},
}

var ollamaPullCmd = &cobra.Command{
	Use:   "pull <model>",
	Short: "Pull a model into the running container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := getOllamaManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		last := ""
		err = mgr.Pull(ctx, args[0], func(status string, completed, total int64) {
			if total > 0 {
				fmt.Printf("\r%s %d%%", status, completed*100/total)
				last = status
				return
			}
			if status != last {
				fmt.Printf("\n%s", status)
				last = status
			}
		})
		fmt.Println()
		return err
	},
}

func init() {
	ollamaLogsCmd.Flags().StringVar(&ollamaLogsTail, "tail", "100", "number of lines to show")

	ollamaCmd.AddCommand(ollamaStartCmd)
	ollamaCmd.AddCommand(ollamaStopCmd)
	ollamaCmd.AddCommand(ollamaStatusCmd)
	ollamaCmd.AddCommand(ollamaLogsCmd)
	ollamaCmd.AddCommand(ollamaPullCmd)
}
