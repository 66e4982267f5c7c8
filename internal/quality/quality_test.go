package quality

import (
	"fmt"
	"strings"
	"testing"
)

// distinctManuscript builds a manuscript with the given chapters and roughly
// wordsPerChapter words, every sentence unique.
func distinctManuscript(chapters, wordsPerChapter int) string {
	var b strings.Builder
	b.WriteString("# A Book\n\n")
	for c := 1; c <= chapters; c++ {
		fmt.Fprintf(&b, "## Chapter %d: Topic %d\n\n", c, c)
		words := 0
		for s := 0; words < wordsPerChapter; s++ {
			fmt.Fprintf(&b, "Chapter %d sentence %d discusses idea number %d in some detail. ", c, s, c*100000+s)
			words += 10
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestCountWords(t *testing.T) {
	if got := CountWords("one two\tthree\nfour  "); got != 4 {
		t.Errorf("CountWords() = %d, want 4", got)
	}
	if got := CountWords(""); got != 0 {
		t.Errorf("CountWords(\"\") = %d, want 0", got)
	}
}

func TestCountChapters(t *testing.T) {
	text := "# Title\n## Chapter 1\nbody\n## Chapter 2\n### Sub\n ## indented\n##NoSpace\n## Chapter 3\n"
	if got := CountChapters(text); got != 3 {
		t.Errorf("CountChapters() = %d, want 3", got)
	}
}

func TestDuplicateRatio(t *testing.T) {
	t.Run("all distinct is zero", func(t *testing.T) {
		text := "The first sentence is here. The second sentence differs! Is the third one unique?"
		if got := DuplicateRatio(text); got != 0 {
			t.Errorf("DuplicateRatio() = %v, want 0", got)
		}
	})

	t.Run("fewer than two qualifying sentences is zero", func(t *testing.T) {
		for _, text := range []string{"", "Short. Tiny. Small.", "Only one qualifying sentence here. ok."} {
			if got := DuplicateRatio(text); got != 0 {
				t.Errorf("DuplicateRatio(%q) = %v, want 0", text, got)
			}
		}
	})

	t.Run("normalization ignores case and whitespace", func(t *testing.T) {
		text := "The cloud is a computer. THE  CLOUD is a\ncomputer. Something else entirely here."
		got := DuplicateRatio(text)
		want := 1.0 / 3.0
		if got != want {
			t.Errorf("DuplicateRatio() = %v, want %v", got, want)
		}
	})

	t.Run("full-width period splits sentences", func(t *testing.T) {
		text := "클라우드 컴퓨팅은 인터넷을 통한 서비스입니다。클라우드 컴퓨팅은 인터넷을 통한 서비스입니다。"
		if got := DuplicateRatio(text); got != 0.5 {
			t.Errorf("DuplicateRatio() = %v, want 0.5", got)
		}
	})

	t.Run("near duplicates do not match", func(t *testing.T) {
		text := "The cloud is a computer system. The cloud is a computer systems."
		if got := DuplicateRatio(text); got != 0 {
			t.Errorf("DuplicateRatio() = %v, want 0", got)
		}
	})
}

func TestChecker_Check(t *testing.T) {
	t.Run("three chapters and ten thousand distinct words passes", func(t *testing.T) {
		text := distinctManuscript(3, 3400)
		res := NewChecker(Thresholds{}).Check(text)

		if res.WordCount < 10000 {
			t.Fatalf("fixture too small: %d words", res.WordCount)
		}
		if res.ChapterCount != 3 {
			t.Errorf("ChapterCount = %d, want 3", res.ChapterCount)
		}
		if res.DuplicateRatio != 0 {
			t.Errorf("DuplicateRatio = %v, want 0", res.DuplicateRatio)
		}
		if !res.Passed {
			t.Errorf("expected pass, warnings: %v", res.Warnings)
		}
		if len(res.Warnings) != 0 {
			t.Errorf("expected no warnings, got %v", res.Warnings)
		}
	})

	t.Run("every violation adds a warning", func(t *testing.T) {
		dup := strings.Repeat("This exact sentence repeats forever. ", 20)
		res := NewChecker(Thresholds{}).Check("## Only chapter\n" + dup)

		if res.Passed {
			t.Error("expected failure")
		}
		if len(res.Warnings) != 3 {
			t.Fatalf("expected 3 warnings, got %v", res.Warnings)
		}
		if !strings.HasPrefix(res.Warnings[0], "word count too low") {
			t.Errorf("unexpected first warning: %s", res.Warnings[0])
		}
		if !strings.HasPrefix(res.Warnings[1], "chapter count too low: 1") {
			t.Errorf("unexpected second warning: %s", res.Warnings[1])
		}
		if !strings.HasPrefix(res.Warnings[2], "duplicate sentence ratio too high") {
			t.Errorf("unexpected third warning: %s", res.Warnings[2])
		}
	})

	t.Run("custom thresholds", func(t *testing.T) {
		c := NewChecker(Thresholds{MinWordCount: 5, MinChapterCount: 1, MaxDuplicateRatio: Ratio(0.5)})
		res := c.Check("## One\nA handful of words that are distinct enough.")
		if !res.Passed {
			t.Errorf("expected pass, got %v", res.Warnings)
		}
	})
}

func TestChecker_DuplicateRatioThreshold(t *testing.T) {
	var b strings.Builder
	b.WriteString("## One\n\n")
	for i := 1; i <= 9; i++ {
		fmt.Fprintf(&b, "Sentence number %d has its own words. ", i)
	}
	b.WriteString("Sentence number 2 has its own words.")
	text := b.String() // one duplicate in ten sentences

	tests := []struct {
		name     string
		ratio    *float64
		wantPass bool
	}{
		{"nil uses default", nil, true},
		{"zero flags any duplicate", Ratio(0), false},
		{"below measured ratio", Ratio(0.05), false},
		{"at measured ratio", Ratio(0.1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(Thresholds{MinWordCount: 1, MinChapterCount: 1, MaxDuplicateRatio: tt.ratio})
			res := c.Check(text)
			if res.DuplicateRatio != 0.1 {
				t.Fatalf("DuplicateRatio = %v, want 0.1", res.DuplicateRatio)
			}
			if res.Passed != tt.wantPass {
				t.Errorf("Passed = %v, want %v (warnings %v)", res.Passed, tt.wantPass, res.Warnings)
			}
		})
	}
}

func TestResult_Rounded(t *testing.T) {
	r := Result{DuplicateRatio: 1.0 / 3.0}.Rounded()
	if r.DuplicateRatio != 0.3333 {
		t.Errorf("DuplicateRatio = %v, want 0.3333", r.DuplicateRatio)
	}
	if r.Warnings == nil {
		t.Error("expected non-nil warnings")
	}
}
