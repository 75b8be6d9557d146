package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"fragreel/internal/daemon"
	"fragreel/internal/logging"
	"fragreel/internal/testsupport"
)

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, logging.NewNop(), func(addr string) { addrCh <- addr })
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get(listenURL(addr) + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRunRefusesLockedWorkspace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.Open(cfg, logging.NewNop(), "test")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close(context.Background())

	err = run(context.Background(), cfg, logging.NewNop(), nil)
	if !errors.Is(err, daemon.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestListenURL(t *testing.T) {
	if got := listenURL("127.0.0.1:7590"); got != "http://127.0.0.1:7590" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := listenURL(""); got != "" {
		t.Fatalf("expected empty url, got %q", got)
	}
}
