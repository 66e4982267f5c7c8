package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/providers"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Inspect text and image backends",
}

// backendStatus is one row of bindery backends check.
type backendStatus struct {
	Kind   string `json:"kind" yaml:"kind"`
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type backendReport []backendStatus

func (r backendReport) Text() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tBACKEND\tSTATUS\tDETAIL")
	for _, s := range r {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Kind, s.Name, s.Status, s.Detail)
	}
	tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

const (
	backendReady         = "ready"
	backendConfigured    = "configured"
	backendNotConfigured = "not configured"
	backendUnreachable   = "unreachable"
)

var backendsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that each backend is configured and reachable",
	Long: `Check every text and image backend.

Local servers are contacted: Ollama lists its models and Stable Diffusion
lists its checkpoints. Hosted APIs are only checked for credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(h)
		if err != nil {
			return err
		}
		f := newFactory(cfg, h)

		var report backendReport
		for _, kind := range providers.TextKinds {
			if kind == providers.TextMock {
				continue
			}
			report = append(report, checkText(ctx, f, kind))
		}
		for _, kind := range providers.ImageKinds {
			if kind == providers.ImageMock {
				continue
			}
			report = append(report, checkImage(ctx, f, kind))
		}
		return printer.Print(report)
	},
}

func checkText(ctx context.Context, f *providers.Factory, kind providers.TextKind) backendStatus {
	s := backendStatus{Kind: "text", Name: string(kind)}
	gen, err := f.Text(ctx, kind)
	if err != nil {
		s.Status, s.Detail = backendNotConfigured, err.Error()
		return s
	}
	s.Name = gen.Name()

	if c, ok := gen.(*providers.OllamaClient); ok {
		models, err := c.ListModels(ctx)
		if err != nil {
			s.Status, s.Detail = backendUnreachable, err.Error()
			return s
		}
		s.Status, s.Detail = backendReady, fmt.Sprintf("%d models: %s", len(models), strings.Join(models, ", "))
		return s
	}
	s.Status = backendConfigured
	return s
}

func checkImage(ctx context.Context, f *providers.Factory, kind providers.ImageKind) backendStatus {
	s := backendStatus{Kind: "image", Name: string(kind)}
	gen, err := f.Image(ctx, kind)
	if err != nil {
		s.Status, s.Detail = backendNotConfigured, err.Error()
		return s
	}
	s.Name = gen.Name()

	if c, ok := gen.(*providers.StableDiffusionClient); ok {
		if err := c.CheckConnection(ctx); err != nil {
			s.Status, s.Detail = backendUnreachable, err.Error()
			return s
		}
		s.Status = backendReady
		return s
	}
	s.Status = backendConfigured
	return s
}

func init() {
	backendsCmd.AddCommand(backendsCheckCmd)
}
