package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/hiring.space/internal/services/notifications/email"
)

func TestNewSenderPicksProvider(t *testing.T) {
	sender, err := NewSender("", "", "", nil)
	if err != nil {
		t.Fatalf("log sender: %v", err)
	}
	if _, ok := sender.(*email.LogSender); !ok {
		t.Fatalf("sender = %T, want *email.LogSender", sender)
	}

	sender, err = NewSender("key", "Hiring <hiring@example.com>", "http://127.0.0.1:1/emails", nil)
	if err != nil {
		t.Fatalf("resend sender: %v", err)
	}
	if _, ok := sender.(*email.ResendSender); !ok {
		t.Fatalf("sender = %T, want *email.ResendSender", sender)
	}

	if _, err := NewSender("key", "", "", nil); err == nil {
		t.Fatal("expected error without from address")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RuntimeConfig{
			Port:           0,
			PipelineDBPath: filepath.Join(dir, "data", "pipeline.db"),
			DBPath:         filepath.Join(dir, "data", "worker.db"),
			PollInterval:   10 * time.Millisecond,
		}, nil)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
