// Package cost tracks token usage per backend and estimates spend.
package cost

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jackzampolin/bindery/internal/artifact"
)

// Pricing is USD per 1M tokens.
type Pricing struct {
	Input  float64
	Output float64
}

// PriceTable maps exact backend names to pricing.
var PriceTable = map[string]Pricing{
	"claude/claude-3-5-sonnet-20241022": {Input: 3.0, Output: 15.0},
	"claude/claude-3-opus-20240229":     {Input: 15.0, Output: 75.0},
	"claude/claude-3-sonnet-20240229":   {Input: 3.0, Output: 15.0},
	"claude/claude-3-haiku-20240307":    {Input: 0.25, Output: 1.25},
	"openai/gpt-4o":                     {Input: 2.5, Output: 10.0},
	"openai/gpt-4o-mini":                {Input: 0.15, Output: 0.6},
	"ollama":                            {Input: 0, Output: 0},
}

// family is a backend name prefix with its default tier.
type family struct {
	prefix  string
	pricing Pricing
}

// families are checked in order after an exact match fails.
var families = []family{
	{prefix: "ollama", pricing: PriceTable["ollama"]},
	{prefix: "claude", pricing: PriceTable["claude/claude-3-5-sonnet-20241022"]},
	{prefix: "openai", pricing: PriceTable["openai/gpt-4o"]},
}

// PricingFor resolves pricing: exact name, then family prefix, then free.
// Unknown backends cost nothing rather than failing the run.
func PricingFor(backend string) Pricing {
	if p, ok := PriceTable[backend]; ok {
		return p
	}
	for _, f := range families {
		if strings.HasPrefix(backend, f.prefix) {
			return f.pricing
		}
	}
	return Pricing{}
}

// Record is cumulative usage for one backend.
type Record struct {
	Backend       string  `json:"backend"`
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	EstimatedCost float64 `json:"estimated_cost_usd"`
}

// Summary is the per-session cost report.
type Summary struct {
	Records      map[string]Record `json:"records"`
	TotalCostUSD float64           `json:"total_cost_usd"`
}

// File is the persisted cost_summary.json.
type File struct {
	LastSession       Summary `json:"last_session"`
	CumulativeCostUSD float64 `json:"cumulative_cost_usd"`
}

// Tracker accumulates usage for one session.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*Record)}
}

// Record adds token usage for backend and recomputes its estimate.
func (t *Tracker) Record(backend string, inputTokens, outputTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[backend]
	if !ok {
		r = &Record{Backend: backend}
		t.records[backend] = r
	}
	r.InputTokens += inputTokens
	r.OutputTokens += outputTokens

	p := PricingFor(backend)
	r.EstimatedCost = float64(r.InputTokens)/1e6*p.Input + float64(r.OutputTokens)/1e6*p.Output
}

// TotalCost returns the session estimate in USD.
func (t *Tracker) TotalCost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total float64
	for _, name := range t.sortedNames() {
		total += t.records[name].EstimatedCost
	}
	return total
}

// Summary returns the session report with costs rounded to 6 decimals.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{Records: make(map[string]Record, len(t.records))}
	var total float64
	for _, name := range t.sortedNames() {
		r := *t.records[name]
		total += r.EstimatedCost
		r.EstimatedCost = round6(r.EstimatedCost)
		s.Records[name] = r
	}
	s.TotalCostUSD = round6(total)
	return s
}

func (t *Tracker) sortedNames() []string {
	names := make([]string, 0, len(t.records))
	for name := range t.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveSummary merges this session into dir/cost_summary.json.
// The cumulative figure is the previous cumulative plus this session's total.
// An unreadable previous file counts as zero.
func (t *Tracker) SaveSummary(dir string) (*File, error) {
	path := filepath.Join(dir, artifact.CostSummaryFile)

	prev, err := LoadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		prev = &File{}
	}
	if prev == nil {
		prev = &File{}
	}

	current := t.Summary()
	f := &File{
		LastSession:       current,
		CumulativeCostUSD: round6(prev.CumulativeCostUSD + current.TotalCostUSD),
	}
	if err := artifact.WriteJSON(path, f); err != nil {
		return nil, fmt.Errorf("failed to save cost summary: %w", err)
	}
	return f, nil
}

// LoadFile reads a cost_summary.json.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
