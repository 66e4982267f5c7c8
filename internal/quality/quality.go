// Package quality implements the advisory manuscript quality gate.
package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultMinWordCount      = 10000
	DefaultMinChapterCount   = 3
	DefaultMaxDuplicateRatio = 0.15

	// minSentenceLen is the trimmed length a sentence must exceed to be compared.
	minSentenceLen = 10
)

var sentenceSplit = regexp.MustCompile(`[.!?。]\s*`)

// Thresholds configures the gate. Zero counts and a nil ratio fall back to
// the defaults; a ratio of 0 flags any duplicated sentence.
type Thresholds struct {
	MinWordCount      int
	MinChapterCount   int
	MaxDuplicateRatio *float64
}

// Ratio returns a pointer to v for Thresholds.MaxDuplicateRatio.
func Ratio(v float64) *float64 { return &v }

// DefaultThresholds returns the default gate thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinWordCount:      DefaultMinWordCount,
		MinChapterCount:   DefaultMinChapterCount,
		MaxDuplicateRatio: Ratio(DefaultMaxDuplicateRatio),
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.MinWordCount == 0 {
		t.MinWordCount = d.MinWordCount
	}
	if t.MinChapterCount == 0 {
		t.MinChapterCount = d.MinChapterCount
	}
	if t.MaxDuplicateRatio == nil {
		t.MaxDuplicateRatio = d.MaxDuplicateRatio
	}
	return t
}

// Result is the outcome of a quality check. Warnings never block the pipeline.
type Result struct {
	Passed         bool     `json:"passed" yaml:"passed"`
	WordCount      int      `json:"word_count" yaml:"word_count"`
	ChapterCount   int      `json:"chapter_count" yaml:"chapter_count"`
	DuplicateRatio float64  `json:"duplicate_ratio" yaml:"duplicate_ratio"`
	Warnings       []string `json:"warnings" yaml:"warnings"`
}

// Rounded returns a copy with DuplicateRatio rounded to 4 decimals, as persisted.
func (r Result) Rounded() Result {
	r.DuplicateRatio = math.Round(r.DuplicateRatio*1e4) / 1e4
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}

// Text renders the result for terminal output.
func (r Result) Text() string {
	var b strings.Builder
	if r.Passed {
		b.WriteString("quality check passed\n")
	} else {
		b.WriteString("quality check warnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	fmt.Fprintf(&b, "  words:           %d\n", r.WordCount)
	fmt.Fprintf(&b, "  chapters:        %d\n", r.ChapterCount)
	fmt.Fprintf(&b, "  duplicate ratio: %.1f%%", r.DuplicateRatio*100)
	return b.String()
}

// Checker runs the gate against manuscript text.
type Checker struct {
	thresholds Thresholds
}

// NewChecker creates a Checker. Zero threshold fields use the defaults.
func NewChecker(t Thresholds) *Checker {
	return &Checker{thresholds: t.withDefaults()}
}

// Thresholds returns the effective thresholds.
func (c *Checker) Thresholds() Thresholds {
	return c.thresholds
}

// Check scans text. It has no side effects.
func (c *Checker) Check(text string) Result {
	res := Result{
		Passed:         true,
		WordCount:      CountWords(text),
		ChapterCount:   CountChapters(text),
		DuplicateRatio: DuplicateRatio(text),
		Warnings:       []string{},
	}

	if res.WordCount < c.thresholds.MinWordCount {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("word count too low: %d (recommended: %d+)", res.WordCount, c.thresholds.MinWordCount))
		res.Passed = false
	}
	if res.ChapterCount < c.thresholds.MinChapterCount {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("chapter count too low: %d (recommended: %d+)", res.ChapterCount, c.thresholds.MinChapterCount))
		res.Passed = false
	}
	if maxRatio := *c.thresholds.MaxDuplicateRatio; res.DuplicateRatio > maxRatio {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("duplicate sentence ratio too high: %.1f%% (recommended: at most %.1f%%)",
				res.DuplicateRatio*100, maxRatio*100))
		res.Passed = false
	}

	return res
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountChapters counts lines that begin with "## ".
func CountChapters(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "## ") {
			n++
		}
	}
	return n
}

// DuplicateRatio returns repeated sentences divided by qualifying sentences.
// Sentences are compared after removing whitespace and lower-casing; only
// exact matches count. Fewer than two qualifying sentences yields 0.
func DuplicateRatio(text string) float64 {
	var sentences []string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > minSentenceLen {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) < 2 {
		return 0
	}

	seen := make(map[string]struct{}, len(sentences))
	duplicates := 0
	for _, s := range sentences {
		key := normalize(s)
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}
	return float64(duplicates) / float64(len(sentences))
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
