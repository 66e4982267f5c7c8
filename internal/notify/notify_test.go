package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/jackzampolin/bindery/internal/testutil"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	n, err := New(ctx, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := n.(*Log); !ok {
		t.Errorf("empty type should give a log notifier, got %T", n)
	}

	if _, err := New(ctx, Config{Type: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := New(ctx, Config{Type: TypeAMQP}); err == nil {
		t.Error("expected error for amqp without url")
	}
	if _, err := New(ctx, Config{Type: TypeRedis}); err == nil {
		t.Error("expected error for redis without address")
	}
}

func TestLog_Notify(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	_ = n.Notify(context.Background(), Event{BookID: "b1", Status: StatusPublished, Manifest: "b1/output/manifest.json"})
	_ = n.Notify(context.Background(), Event{BookID: "b2", Status: StatusFailed, Error: "boom"})

	out := buf.String()
	for _, want := range []string{"workflow finished", "book_id=b1", "manifest=b1/output/manifest.json", "level=ERROR", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func testEvent() Event {
	return Event{
		ID:        "evt-1",
		BookID:    "book-9",
		Status:    StatusPublished,
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRedis_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping docker test in short mode")
	}
	cli := testutil.DockerClient(t)
	addr := testutil.StartContainer(t, cli, "redis", testutil.Container{Image: "redis:7-alpine", Port: "6379/tcp"})

	ctx := context.Background()
	n, err := NewRedis(ctx, addr, "bindery:test", 100, slog.Default())
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	defer n.Close()

	if err := n.Notify(ctx, testEvent()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	msgs, err := client.XRange(ctx, "bindery:test", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(msgs))
	}
	var got Event
	if err := json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &got); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if got.BookID != "book-9" || got.Status != StatusPublished {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestAMQP_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping docker test in short mode")
	}
	cli := testutil.DockerClient(t)
	addr := testutil.StartContainer(t, cli, "rabbitmq", testutil.Container{Image: "rabbitmq:3-alpine", Port: "5672/tcp"})
	url := "amqp://guest:guest@" + addr + "/"

	// The port opens before the broker accepts logins.
	var (
		n   *AMQP
		err error
	)
	for i := 0; i < 30; i++ {
		if n, err = NewAMQP(url, "bindery.test", slog.Default()); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("NewAMQP() error = %v", err)
	}
	defer n.Close()

	if err := n.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	defer ch.Close()

	var msg amqp.Delivery
	var ok bool
	for i := 0; i < 20 && !ok; i++ {
		if msg, ok, err = ch.Get("bindery.test", true); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !ok {
			time.Sleep(100 * time.Millisecond)
		}
	}
	if !ok {
		t.Fatal("no message in queue")
	}
	if msg.ContentType != "application/json" || msg.MessageId != "evt-1" || msg.DeliveryMode != amqp.Persistent {
		t.Errorf("unexpected message properties: %+v", msg)
	}
}
