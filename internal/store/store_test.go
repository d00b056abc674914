package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func tempCollection(t *testing.T) *Collection[note] {
	t.Helper()
	return NewCollection[note](filepath.Join(t.TempDir(), "notes.json"))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c := tempCollection(t)
	if got := c.Load(); len(got) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(got))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := tempCollection(t)
	want := []note{{ID: "a", Body: "first"}, {ID: "b", Body: "second"}}
	if err := c.Replace(want); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got := c.Load()
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCollection[note](path)
	if got := c.Load(); len(got) != 0 {
		t.Fatalf("expected empty collection from corrupt file, got %d", len(got))
	}
}

func TestLegacyBareArrayLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	if err := os.WriteFile(path, []byte(`[{"id":"x","body":"old"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCollection[note](path)
	got := c.Load()
	if len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("legacy load = %+v", got)
	}
}

func TestUpdateAbortsOnError(t *testing.T) {
	c := tempCollection(t)
	if err := c.Replace([]note{{ID: "keep"}}); err != nil {
		t.Fatal(err)
	}

	wantErr := os.ErrInvalid
	err := c.Update(func(records []note) ([]note, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("Update error = %v, want %v", err, wantErr)
	}
	if got := c.Load(); len(got) != 1 || got[0].ID != "keep" {
		t.Fatalf("collection changed after aborted update: %+v", got)
	}
}

// Two writers appending concurrently must both land; this is the lost-update
// case the per-collection lock exists for.
func TestConcurrentUpdatesBothLand(t *testing.T) {
	c := tempCollection(t)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id byte) {
			defer wg.Done()
			err := c.Update(func(records []note) ([]note, error) {
				return append(records, note{ID: string('a' + id)}), nil
			})
			if err != nil {
				t.Errorf("Update: %v", err)
			}
		}(byte(i))
	}
	wg.Wait()

	if got := c.Load(); len(got) != writers {
		t.Fatalf("got %d records after %d concurrent appends", len(got), writers)
	}
}
