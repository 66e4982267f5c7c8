package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRun_Counters(t *testing.T) {
	r := NewRun()
	r.ObserveStage("content", 2*time.Second, nil)
	r.ObserveStage("cover", time.Second, errors.New("boom"))
	r.StageSkipped("content")
	r.Retry("cover")
	r.Retry("cover")
	r.Tokens("mock-llm", 10, 30)
	r.SetCost(0.5)
	r.SetPages(7)
	r.SetQuality(true)

	if got := testutil.ToFloat64(r.stageRuns.WithLabelValues("content")); got != 1 {
		t.Errorf("content runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.stageFailures.WithLabelValues("cover")); got != 1 {
		t.Errorf("cover failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.stageSkipped.WithLabelValues("content")); got != 1 {
		t.Errorf("content skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.retries.WithLabelValues("cover")); got != 2 {
		t.Errorf("cover retries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.tokens.WithLabelValues("mock-llm", "output")); got != 30 {
		t.Errorf("output tokens = %v, want 30", got)
	}
	if got := testutil.ToFloat64(r.pages); got != 7 {
		t.Errorf("pages = %v, want 7", got)
	}
	if got := testutil.ToFloat64(r.qualityPassed); got != 1 {
		t.Errorf("quality = %v, want 1", got)
	}
}

func TestRun_IsolatedRegistries(t *testing.T) {
	a, b := NewRun(), NewRun()
	a.StageSkipped("content")
	if got := testutil.ToFloat64(b.stageSkipped.WithLabelValues("content")); got != 0 {
		t.Errorf("runs share state: %v", got)
	}
}

func TestPusher(t *testing.T) {
	t.Run("nil pusher is a no-op", func(t *testing.T) {
		p := NewPusher("", "job")
		if p != nil {
			t.Fatal("expected nil pusher for empty url")
		}
		if err := p.Push(context.Background(), NewRun(), "b"); err != nil {
			t.Errorf("Push() error = %v", err)
		}
	})

	t.Run("pushes grouped by book", func(t *testing.T) {
		var (
			mu   sync.Mutex
			path string
			body string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			mu.Lock()
			path, body = r.URL.Path, string(data)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		r := NewRun()
		r.ObserveStage("content", time.Second, nil)
		if err := NewPusher(srv.URL, "").Push(context.Background(), r, "book-1"); err != nil {
			t.Fatalf("Push() error = %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if path != "/metrics/job/bindery/book_id/book-1" {
			t.Errorf("push path = %q", path)
		}
		if body == "" {
			t.Error("expected metrics payload")
		}
	})

	t.Run("gateway error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := NewPusher(srv.URL, "job").Push(context.Background(), NewRun(), "b")
		if err == nil || !strings.Contains(err.Error(), "failed to push metrics") {
			t.Errorf("expected push error, got %v", err)
		}
	})
}
