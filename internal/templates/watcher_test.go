package templates

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const okrYAML = `name: okr
description: Objectives and key results
patterns:
  - '\bokrs?\b'
title: OKR Planning
frame:
  width: 600
  height: 400
children:
  - type: sticky_note
    x: 20
    y: 60
    width: 200
    height: 200
    content: Objective
`

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "okr.yaml"), []byte(okrYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	ts, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(ts) != 1 || ts[0].Name != "okr" {
		t.Fatalf("templates = %+v", ts)
	}

	missing, err := LoadDir(filepath.Join(dir, "nope"))
	if err != nil || missing != nil {
		t.Fatalf("missing dir: %v %v", missing, err)
	}
}

func TestLoadDir_BadFile(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("name: [unclosed"), 0o644)
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, reg, dir, logger) }()

	time.Sleep(100 * time.Millisecond)
	if _, ok := reg.Match("okr review"); ok {
		t.Fatal("okr should not match before the file exists")
	}

	_ = os.WriteFile(filepath.Join(dir, "okr.yaml"), []byte(okrYAML), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := reg.Match("okr review")
		return ok
	}, "custom template not loaded by watcher")

	_ = os.Remove(filepath.Join(dir, "okr.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := reg.Match("okr review")
		return !ok
	}, "custom template not removed by watcher")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}
