package cost

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPricingFor(t *testing.T) {
	tests := []struct {
		backend string
		want    Pricing
	}{
		{"claude/claude-3-opus-20240229", Pricing{15, 75}},
		{"claude/claude-3-haiku-20240307", Pricing{0.25, 1.25}},
		{"claude/claude-future-model", Pricing{3, 15}},
		{"ollama/llama3.1", Pricing{}},
		{"openai/gpt-4o-mini", Pricing{0.15, 0.6}},
		{"openai/gpt-4.1", Pricing{2.5, 10}},
		{"mock-llm", Pricing{}},
		{"stable-diffusion", Pricing{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			if got := PricingFor(tt.backend); got != tt.want {
				t.Errorf("PricingFor(%s) = %+v, want %+v", tt.backend, got, tt.want)
			}
		})
	}
}

func TestTracker_Record(t *testing.T) {
	t.Run("unknown backend is free", func(t *testing.T) {
		tr := NewTracker()
		tr.Record("some-new-backend", 1_000_000, 1_000_000)
		if got := tr.Summary().Records["some-new-backend"].EstimatedCost; got != 0 {
			t.Errorf("EstimatedCost = %v, want 0", got)
		}
	})

	t.Run("free family ignores token counts", func(t *testing.T) {
		tr := NewTracker()
		tr.Record("ollama/llama3.1", 50_000_000, 90_000_000)
		if got := tr.TotalCost(); got != 0 {
			t.Errorf("TotalCost = %v, want 0", got)
		}
	})

	t.Run("priced family uses default tier", func(t *testing.T) {
		tr := NewTracker()
		tr.Record("claude/claude-unknown", 1_000_000, 2_000_000)
		// 1M * $3 + 2M * $15
		if got := tr.TotalCost(); !almostEqual(got, 33.0) {
			t.Errorf("TotalCost = %v, want 33", got)
		}
	})

	t.Run("usage accumulates per backend", func(t *testing.T) {
		tr := NewTracker()
		tr.Record("claude/claude-3-5-sonnet-20241022", 1000, 500)
		tr.Record("claude/claude-3-5-sonnet-20241022", 1000, 500)
		tr.Record("ollama/llama3.1", 10, 10)

		s := tr.Summary()
		if len(s.Records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(s.Records))
		}
		r := s.Records["claude/claude-3-5-sonnet-20241022"]
		if r.InputTokens != 2000 || r.OutputTokens != 1000 {
			t.Errorf("tokens = %d/%d, want 2000/1000", r.InputTokens, r.OutputTokens)
		}
		// 2000/1M*3 + 1000/1M*15 = 0.006 + 0.015
		if !almostEqual(r.EstimatedCost, 0.021) {
			t.Errorf("EstimatedCost = %v, want 0.021", r.EstimatedCost)
		}
		if !almostEqual(s.TotalCostUSD, 0.021) {
			t.Errorf("TotalCostUSD = %v, want 0.021", s.TotalCostUSD)
		}
	})
}

func TestTracker_SaveSummary(t *testing.T) {
	dir := t.TempDir()

	first := NewTracker()
	first.Record("claude/claude-3-5-sonnet-20241022", 1_000_000, 0)
	f, err := first.SaveSummary(dir)
	if err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}
	if !almostEqual(f.CumulativeCostUSD, 3.0) {
		t.Errorf("CumulativeCostUSD = %v, want 3", f.CumulativeCostUSD)
	}

	second := NewTracker()
	second.Record("claude/claude-3-5-sonnet-20241022", 0, 100_000)
	f, err = second.SaveSummary(dir)
	if err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}
	// 3.0 + 100k * $15/1M
	if !almostEqual(f.CumulativeCostUSD, 4.5) {
		t.Errorf("CumulativeCostUSD = %v, want 4.5", f.CumulativeCostUSD)
	}
	if !almostEqual(f.LastSession.TotalCostUSD, 1.5) {
		t.Errorf("LastSession.TotalCostUSD = %v, want 1.5", f.LastSession.TotalCostUSD)
	}

	loaded, err := LoadFile(filepath.Join(dir, "cost_summary.json"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !almostEqual(loaded.CumulativeCostUSD, 4.5) {
		t.Errorf("persisted cumulative = %v, want 4.5", loaded.CumulativeCostUSD)
	}
}

func TestTracker_SaveSummary_CorruptPrevious(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cost_summary.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	tr := NewTracker()
	tr.Record("claude/claude-3-haiku-20240307", 1_000_000, 0)
	f, err := tr.SaveSummary(dir)
	if err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}
	if !almostEqual(f.CumulativeCostUSD, 0.25) {
		t.Errorf("CumulativeCostUSD = %v, want 0.25", f.CumulativeCostUSD)
	}
}
