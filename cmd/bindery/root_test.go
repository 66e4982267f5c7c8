package main

import (
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/bindery/internal/history"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "text", false},
		{"debug", "json", false},
		{"WARN", "TEXT", false},
		{"verbose", "text", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			_, err := newLogger(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunsList_Text(t *testing.T) {
	l := runsList{
		Runs: []history.Entry{
			{RunID: "0123456789abcdef", BookID: "b1", Kind: history.KindPipeline, Stage: "content", Success: true, CreatedAt: time.Now()},
			{RunID: "0123456789abcdef", BookID: "b1", Kind: history.KindPipeline, Stage: "cover", Error: "boom", CreatedAt: time.Now()},
			{RunID: "short", BookID: "b1", Kind: history.KindPipeline, Stage: "assembly", Skipped: true, Success: true, CreatedAt: time.Now()},
		},
		Summary: &history.Summary{Count: 3, Runs: 2, SuccessCount: 2, ErrorCount: 1, SkippedCount: 1},
	}
	out := l.Text()
	for _, want := range []string{"01234567 ", "failed", "skipped", "2 runs, 3 stages"} {
		if !strings.Contains(out, want) {
			t.Errorf("Text() missing %q:\n%s", want, out)
		}
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"run"}, {"workflow"}, {"merge"}, {"check"}, {"cost"}, {"runs"},
		{"backends", "check"}, {"ollama", "pull"}, {"config", "init"}, {"version"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered (err=%v)", path, err)
		}
	}

	if f := runCmd.Flags().ShorthandLookup("c"); f == nil || f.Name != "config" {
		t.Error("run should take the book config as -c/--config")
	}
	if f := rootCmd.PersistentFlags().Lookup("app-config"); f == nil {
		t.Error("missing --app-config")
	}
}
