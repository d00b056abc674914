package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vidhub/internal/catalog"
	"vidhub/internal/store"
	"vidhub/pkg/models"
)

// fakeProber answers probes from canned data and can simulate tool
// failure per call.
type fakeProber struct {
	duration   string
	failProbe  bool
	failThumbs bool
}

func (f *fakeProber) Duration(ctx context.Context, path string) (string, error) {
	if f.failProbe {
		return "", errors.New("ffprobe exploded")
	}
	return f.duration, nil
}

func (f *fakeProber) Thumbnail(ctx context.Context, videoPath, thumbPath string) error {
	if f.failThumbs {
		return errors.New("ffmpeg exploded")
	}
	return os.WriteFile(thumbPath, []byte("jpg"), 0o644)
}

func newTestReconciler(t *testing.T, prober Prober) (*Reconciler, *catalog.Catalog, string) {
	t.Helper()
	uploads := t.TempDir()
	thumbs := t.TempDir()
	cat := catalog.New(store.NewCollection[models.VideoRecord](filepath.Join(t.TempDir(), "videos.json")))
	r := New(uploads, thumbs, []string{"default.jpg", "default1.jpg", "default2.jpg"},
		[]string{"mp4", "webm", "mkv"}, cat, prober)
	return r, cat, uploads
}

func drop(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReconcileIngestsNewFile(t *testing.T) {
	r, cat, uploads := newTestReconciler(t, &fakeProber{duration: "3:07"})
	drop(t, uploads, "clip1.mp4")

	added, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}

	v, err := cat.Get("clip1")
	if err != nil {
		t.Fatalf("record not created: %v", err)
	}
	if v.Filename != "clip1.mp4" || v.Duration != "3:07" || v.Author != SystemAuthor {
		t.Fatalf("record = %+v", v)
	}
	if v.Thumbnail != "clip1.jpg" {
		t.Fatalf("thumbnail = %q, want clip1.jpg", v.Thumbnail)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	r, cat, uploads := newTestReconciler(t, &fakeProber{duration: "1:00"})
	drop(t, uploads, "clip1.mp4")

	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}
	added, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Fatalf("second run added %d records", added)
	}
	if cat.Size() != 1 {
		t.Fatalf("catalog size = %d, want 1", cat.Size())
	}
}

func TestReconcileSkipsUnknownExtensions(t *testing.T) {
	r, cat, uploads := newTestReconciler(t, &fakeProber{duration: "1:00"})
	drop(t, uploads, "notes.txt")
	drop(t, uploads, "clip.mov")

	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cat.Size() != 0 {
		t.Fatalf("catalog size = %d, want 0", cat.Size())
	}
}

func TestProbeFailureFallsBack(t *testing.T) {
	r, cat, uploads := newTestReconciler(t, &fakeProber{failProbe: true, failThumbs: true})
	drop(t, uploads, "clip1.mp4")

	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}

	v, err := cat.Get("clip1")
	if err != nil {
		t.Fatal(err)
	}
	if v.Duration != "0:00" {
		t.Fatalf("duration = %q, want fallback 0:00", v.Duration)
	}
	// Catalog was empty when the default was chosen: size 0 mod 3.
	if v.Thumbnail != "default.jpg" {
		t.Fatalf("thumbnail = %q, want default.jpg", v.Thumbnail)
	}
}

func TestDefaultThumbnailRoundRobin(t *testing.T) {
	r, _, uploads := newTestReconciler(t, &fakeProber{failProbe: true, failThumbs: true})
	drop(t, uploads, "a.mp4")
	drop(t, uploads, "b.mp4")
	drop(t, uploads, "c.mp4")
	drop(t, uploads, "d.mp4")

	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}

	counts := map[string]int{}
	for _, v := range r.Catalog.List() {
		counts[v.Thumbnail]++
	}
	// Four records over three defaults: one default is used twice.
	if len(counts) != 3 {
		t.Fatalf("defaults used = %v, want all three in rotation", counts)
	}
}

func TestReconcileAnnouncesNewRecords(t *testing.T) {
	r, _, uploads := newTestReconciler(t, &fakeProber{duration: "1:00"})
	drop(t, uploads, "clip1.mp4")

	var announced []string
	r.Announce = func(v models.VideoRecord) { announced = append(announced, v.ID) }

	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(announced) != 1 || announced[0] != "clip1" {
		t.Fatalf("announced = %v", announced)
	}

	// Nothing new, nothing announced.
	announced = nil
	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(announced) != 0 {
		t.Fatalf("announced on idempotent rerun: %v", announced)
	}
}
