// Package catalog owns the videos collection: records, view counts,
// likes, favorites and comments.
package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vidhub/internal/store"
	"vidhub/pkg/models"
)

var (
	ErrNotFound     = errors.New("catalog: video not found")
	ErrEmptyComment = errors.New("catalog: comment text is empty")
	ErrDuplicateID  = errors.New("catalog: video id already exists")
)

// Toggle actions reported back to callers.
const (
	ActionLiked       = "liked"
	ActionUnliked     = "unliked"
	ActionFavorited   = "favorited"
	ActionUnfavorited = "unfavorited"
)

const commentTimeLayout = "2006-01-02 15:04"

type Catalog struct {
	videos *store.Collection[models.VideoRecord]
	log    *logrus.Entry
}

func New(videos *store.Collection[models.VideoRecord]) *Catalog {
	return &Catalog{
		videos: videos,
		log:    logrus.WithField("component", "catalog"),
	}
}

// List returns every video in catalog order.
func (c *Catalog) List() []models.VideoRecord {
	return c.videos.Load()
}

// Search filters by case-insensitive substring match against title or
// filename. An empty query returns the full catalog. Linear scan; the
// catalog is small enough that an index would be overhead.
func (c *Catalog) Search(query string) []models.VideoRecord {
	videos := c.videos.Load()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return videos
	}

	var out []models.VideoRecord
	for _, v := range videos {
		if strings.Contains(strings.ToLower(v.Title), query) ||
			strings.Contains(strings.ToLower(v.Filename), query) {
			out = append(out, v)
		}
	}
	return out
}

// Get returns the video without touching its view count.
func (c *Catalog) Get(id string) (models.VideoRecord, error) {
	for _, v := range c.videos.Load() {
		if v.ID == id {
			return v, nil
		}
	}
	return models.VideoRecord{}, ErrNotFound
}

// RecordView increments the view count by one and returns the updated
// record.
func (c *Catalog) RecordView(id string) (models.VideoRecord, error) {
	var out models.VideoRecord
	err := c.videos.Update(func(videos []models.VideoRecord) ([]models.VideoRecord, error) {
		i := indexOf(videos, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		videos[i].Views++
		out = videos[i]
		return videos, nil
	})
	return out, err
}

// ToggleLike adds username to the liker set if absent, removes it if
// present, and keeps the counter equal to the set size.
func (c *Catalog) ToggleLike(id, username string) (action string, likes int, err error) {
	err = c.videos.Update(func(videos []models.VideoRecord) ([]models.VideoRecord, error) {
		i := indexOf(videos, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		if contains(videos[i].LikedBy, username) {
			videos[i].LikedBy = remove(videos[i].LikedBy, username)
			action = ActionUnliked
		} else {
			videos[i].LikedBy = append(videos[i].LikedBy, username)
			action = ActionLiked
		}
		videos[i].Likes = len(videos[i].LikedBy)
		likes = videos[i].Likes
		return videos, nil
	})
	return action, likes, err
}

// ApplyFavorite sets the video-side half of a favorite toggle: membership
// of username in the favoriter set, with the counter pinned to the set
// size. The user-side half lives in the user directory; the caller flips
// that first and passes the resulting state here.
func (c *Catalog) ApplyFavorite(id, username string, favorited bool) (int, error) {
	var count int
	err := c.videos.Update(func(videos []models.VideoRecord) ([]models.VideoRecord, error) {
		i := indexOf(videos, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		has := contains(videos[i].FavoritedBy, username)
		if favorited && !has {
			videos[i].FavoritedBy = append(videos[i].FavoritedBy, username)
		} else if !favorited && has {
			videos[i].FavoritedBy = remove(videos[i].FavoritedBy, username)
		}
		videos[i].Favorites = len(videos[i].FavoritedBy)
		count = videos[i].Favorites
		return videos, nil
	})
	return count, err
}

// AddComment appends a comment with a fresh id and the current timestamp.
func (c *Catalog) AddComment(id, author, text string) (models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, ErrEmptyComment
	}

	comment := models.Comment{
		ID:     uuid.NewString(),
		Author: author,
		Text:   text,
		Time:   time.Now().Format(commentTimeLayout),
	}
	err := c.videos.Update(func(videos []models.VideoRecord) ([]models.VideoRecord, error) {
		i := indexOf(videos, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		videos[i].Comments = append(videos[i].Comments, comment)
		return videos, nil
	})
	if err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// Add appends a new record. The id must not collide with an existing one.
func (c *Catalog) Add(rec models.VideoRecord) error {
	err := c.videos.Update(func(videos []models.VideoRecord) ([]models.VideoRecord, error) {
		if indexOf(videos, rec.ID) >= 0 {
			return nil, ErrDuplicateID
		}
		return append(videos, rec), nil
	})
	if err == nil {
		c.log.WithFields(logrus.Fields{"video": rec.ID, "author": rec.Author}).Info("video added")
	}
	return err
}

// ByAuthor returns the videos uploaded by username, in catalog order.
func (c *Catalog) ByAuthor(username string) []models.VideoRecord {
	var out []models.VideoRecord
	for _, v := range c.videos.Load() {
		if v.Author == username {
			out = append(out, v)
		}
	}
	return out
}

// ByIDs returns the videos whose ids are in ids, in catalog order.
func (c *Catalog) ByIDs(ids []string) []models.VideoRecord {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []models.VideoRecord
	for _, v := range c.videos.Load() {
		if _, ok := want[v.ID]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Filenames returns the set of stored filenames, for ingestion diffing.
func (c *Catalog) Filenames() map[string]struct{} {
	videos := c.videos.Load()
	out := make(map[string]struct{}, len(videos))
	for _, v := range videos {
		out[v.Filename] = struct{}{}
	}
	return out
}

// Size returns the number of records in the catalog.
func (c *Catalog) Size() int {
	return len(c.videos.Load())
}

func indexOf(videos []models.VideoRecord, id string) int {
	for i := range videos {
		if videos[i].ID == id {
			return i
		}
	}
	return -1
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func remove(set []string, s string) []string {
	out := set[:0]
	for _, v := range set {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
