package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/hiring.space/internal/platform/grpc"
)

func TestStartServesHTTPAndHealth(t *testing.T) {
	rt, err := Start(context.Background(), RuntimeConfig{
		HTTPAddr: "127.0.0.1:0",
		Port:     0,
		DBPath:   filepath.Join(t.TempDir(), "nested", "pipeline.db"),
	}, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		if err := rt.Shutdown(); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}()

	probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := platformgrpc.Probe(probeCtx, fmt.Sprintf("127.0.0.1:%d", rt.HealthPort()), HealthService, nil); err != nil {
		t.Fatalf("probe health: %v", err)
	}

	body := `{"name":"Ada Lovelace","email":"ada@example.com","job_title":"Engineer","resume_text":"analytical engines","source":"test"}`
	resp, err := http.Post("http://"+rt.HTTPAddr()+"/v1/candidates", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Stage != "screening" {
		t.Fatalf("created = %+v", created)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RuntimeConfig{
			HTTPAddr: "127.0.0.1:0",
			DBPath:   filepath.Join(t.TempDir(), "pipeline.db"),
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

func TestStartFailsOnBadHTTPAddr(t *testing.T) {
	_, err := Start(context.Background(), RuntimeConfig{
		HTTPAddr: "not-an-address",
		DBPath:   filepath.Join(t.TempDir(), "pipeline.db"),
	}, nil)
	if err == nil {
		t.Fatal("expected listen error")
	}
}

func TestNormalizedDefaults(t *testing.T) {
	cfg := RuntimeConfig{Port: -1}.normalized()
	if cfg.HTTPAddr != defaultHTTPAddr || cfg.Port != defaultPort || cfg.DBPath != defaultDBPath {
		t.Fatalf("normalized = %+v", cfg)
	}
}
