package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"vidhub/internal/store"
	"vidhub/pkg/models"
)

func newTestCatalog(t *testing.T, videos ...models.VideoRecord) *Catalog {
	t.Helper()
	coll := store.NewCollection[models.VideoRecord](filepath.Join(t.TempDir(), "videos.json"))
	if len(videos) > 0 {
		if err := coll.Replace(videos); err != nil {
			t.Fatal(err)
		}
	}
	return New(coll)
}

func video(id string) models.VideoRecord {
	return models.VideoRecord{
		ID:       id,
		Title:    "Title of " + id,
		Filename: id + ".mp4",
	}
}

func TestRecordView(t *testing.T) {
	c := newTestCatalog(t, video("v1"))

	for i := 1; i <= 3; i++ {
		got, err := c.RecordView("v1")
		if err != nil {
			t.Fatalf("RecordView: %v", err)
		}
		if got.Views != i {
			t.Fatalf("views = %d after %d views", got.Views, i)
		}
	}

	if _, err := c.RecordView("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RecordView(absent) = %v, want ErrNotFound", err)
	}
}

func TestToggleLikeIsItsOwnInverse(t *testing.T) {
	c := newTestCatalog(t, video("v1"))

	action, likes, err := c.ToggleLike("v1", "alice")
	if err != nil || action != ActionLiked || likes != 1 {
		t.Fatalf("first toggle = (%q, %d, %v)", action, likes, err)
	}
	action, likes, err = c.ToggleLike("v1", "alice")
	if err != nil || action != ActionUnliked || likes != 0 {
		t.Fatalf("second toggle = (%q, %d, %v)", action, likes, err)
	}

	v, err := c.Get("v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.LikedBy) != 0 {
		t.Fatalf("liker set not empty after round trip: %v", v.LikedBy)
	}
}

func TestLikeCountMatchesSet(t *testing.T) {
	c := newTestCatalog(t, video("v1"))

	users := []string{"alice", "bob", "carol", "alice", "bob", "dave"}
	for _, u := range users {
		if _, _, err := c.ToggleLike("v1", u); err != nil {
			t.Fatal(err)
		}
	}

	v, _ := c.Get("v1")
	if v.Likes != len(v.LikedBy) {
		t.Fatalf("likes=%d but set size=%d", v.Likes, len(v.LikedBy))
	}
	// alice and bob toggled twice, so only carol and dave remain.
	if v.Likes != 2 {
		t.Fatalf("likes = %d, want 2", v.Likes)
	}
}

func TestApplyFavoriteKeepsInvariant(t *testing.T) {
	c := newTestCatalog(t, video("v1"))

	count, err := c.ApplyFavorite("v1", "alice", true)
	if err != nil || count != 1 {
		t.Fatalf("favorite = (%d, %v)", count, err)
	}
	// Applying the same state twice must not double-count.
	count, err = c.ApplyFavorite("v1", "alice", true)
	if err != nil || count != 1 {
		t.Fatalf("repeat favorite = (%d, %v)", count, err)
	}
	count, err = c.ApplyFavorite("v1", "alice", false)
	if err != nil || count != 0 {
		t.Fatalf("unfavorite = (%d, %v)", count, err)
	}
}

func TestAddComment(t *testing.T) {
	c := newTestCatalog(t, video("v1"))

	if _, err := c.AddComment("v1", "alice", "  "); !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("blank comment error = %v, want ErrEmptyComment", err)
	}
	if _, err := c.AddComment("missing", "alice", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("absent video error = %v, want ErrNotFound", err)
	}

	first, err := c.AddComment("v1", "alice", "first!")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.AddComment("v1", "bob", "second")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatal("comment ids must be unique")
	}

	v, _ := c.Get("v1")
	if len(v.Comments) != 2 || v.Comments[0].Text != "first!" || v.Comments[1].Text != "second" {
		t.Fatalf("comments out of order: %+v", v.Comments)
	}
}

// Two concurrent comments from different users must both survive; the
// store lock is what makes this hold.
func TestConcurrentCommentsBothKept(t *testing.T) {
	c := newTestCatalog(t, video("v1"))

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.AddComment("v1", fmt.Sprintf("user%d", i), "hello"); err != nil {
				t.Errorf("AddComment: %v", err)
			}
		}(i)
	}
	wg.Wait()

	v, _ := c.Get("v1")
	if len(v.Comments) != n {
		t.Fatalf("kept %d of %d concurrent comments", len(v.Comments), n)
	}
}

func TestSearch(t *testing.T) {
	c := newTestCatalog(t,
		models.VideoRecord{ID: "a", Title: "Cooking Pasta", Filename: "pasta_night.mp4"},
		models.VideoRecord{ID: "b", Title: "Go Concurrency", Filename: "go_talk.webm"},
		models.VideoRecord{ID: "c", Title: "Night Drive", Filename: "drive.mkv"},
	)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"a", "b", "c"}},
		{"  ", []string{"a", "b", "c"}},
		{"NIGHT", []string{"a", "c"}}, // matches filename of a, title of c
		{"go", []string{"b"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		got := c.Search(tt.query)
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q) returned %d results, want %d", tt.query, len(got), len(tt.want))
			continue
		}
		for i, id := range tt.want {
			if got[i].ID != id {
				t.Errorf("Search(%q)[%d] = %s, want %s", tt.query, i, got[i].ID, id)
			}
		}
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	c := newTestCatalog(t, video("v1"))
	if err := c.Add(video("v1")); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate add error = %v, want ErrDuplicateID", err)
	}
	if c.Size() != 1 {
		t.Fatalf("catalog size = %d after rejected add", c.Size())
	}
}

func TestByAuthorAndByIDs(t *testing.T) {
	a := video("a")
	a.Author = "alice"
	b := video("b")
	b.Author = "bob"
	c := newTestCatalog(t, a, b)

	if got := c.ByAuthor("alice"); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("ByAuthor(alice) = %+v", got)
	}
	if got := c.ByIDs([]string{"b", "missing"}); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("ByIDs = %+v", got)
	}
}
