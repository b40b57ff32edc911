package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/tracedeck/internal/config"
	"github.com/dgallion1/tracedeck/internal/docerr"
)

func waitForJob(t *testing.T, o *Orchestrator, id string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := o.GetJob(id).Snapshot()
		if snap.Status == StatusCompleted || snap.Status == StatusFailed {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return JobSnapshot{}
}

func TestOrchestrator_ProcessesJobs(t *testing.T) {
	cfg := config.Default()
	cfg.WorkerCount = 2
	o := NewOrchestrator(cfg, testProcessor(nil), testLogger())
	o.Start(context.Background())
	defer o.Stop()

	dir := t.TempDir()
	good := NewJob("photo.png", writePNG(t, dir, "upload-1.png", 30, 20))
	badPath := filepath.Join(dir, "upload-2.gif")
	if err := os.WriteFile(badPath, []byte("GIF89a"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	bad := NewJob("anim.gif", badPath)

	for _, j := range []*Job{good, bad} {
		if err := o.Submit(j); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	snap := waitForJob(t, o, good.ID)
	if snap.Status != StatusCompleted || snap.Result == nil {
		t.Fatalf("expected completed job with result, got %+v", snap)
	}
	if img := snap.Result.Extracted.Images[0]; img.Width != 30 || img.Height != 20 {
		t.Errorf("unexpected image: %+v", img)
	}

	snap = waitForJob(t, o, bad.ID)
	if snap.Status != StatusFailed || snap.ErrorKind != docerr.KindImage {
		t.Errorf("expected image failure, got %+v", snap)
	}

	for _, p := range []string{good.Path(), badPath} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected spooled file %s to be removed, stat err=%v", p, err)
		}
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Default()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, testProcessor(nil), testLogger())

	first := NewJob("a.png", "")
	second := NewJob("b.png", "")
	if err := o.Submit(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if snap := o.GetJob(second.ID).Snapshot(); snap.Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", snap.Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_StopDrainsQueue(t *testing.T) {
	cfg := config.Default()
	o := NewOrchestrator(cfg, testProcessor(nil), testLogger())

	queued := NewJob("photo.png", writePNG(t, t.TempDir(), "upload-1.png", 4, 4))
	if err := o.Submit(queued); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Stop()

	snap := o.GetJob(queued.ID).Snapshot()
	if snap.Status != StatusFailed || snap.Error != ErrStopped.Error() {
		t.Errorf("expected queued job to fail on stop, got %+v", snap)
	}
	if _, err := os.Stat(queued.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected spooled file to be removed, stat err=%v", err)
	}

	late := NewJob("late.png", "")
	if err := o.Submit(late); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped after stop, got %v", err)
	}
	if o.GetJob(late.ID).Snapshot().Status != StatusFailed {
		t.Error("expected late job to be failed")
	}
	o.Stop()
}
