// Package ingest reconciles the upload directory into the video catalog:
// files the catalog does not know yet become records, everything already
// known is left alone.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vidhub/internal/catalog"
	"vidhub/pkg/models"
)

// SystemAuthor owns records created by reconciliation rather than by an
// upload.
const SystemAuthor = "system"

const dateLayout = "2006-01-02"

// Prober is the media-probing collaborator. The ffmpeg implementation
// lives in internal/media; tests use fakes.
type Prober interface {
	Duration(ctx context.Context, path string) (string, error)
	Thumbnail(ctx context.Context, videoPath, thumbPath string) error
}

type Reconciler struct {
	UploadDir         string
	ThumbnailDir      string
	DefaultThumbnails []string
	AllowedExts       []string

	Catalog *catalog.Catalog
	Prober  Prober

	// Announce, when set, is called once per newly ingested record.
	Announce func(models.VideoRecord)

	log *logrus.Entry
}

func New(uploadDir, thumbnailDir string, defaults, exts []string, cat *catalog.Catalog, prober Prober) *Reconciler {
	return &Reconciler{
		UploadDir:         uploadDir,
		ThumbnailDir:      thumbnailDir,
		DefaultThumbnails: defaults,
		AllowedExts:       exts,
		Catalog:           cat,
		Prober:            prober,
		log:               logrus.WithField("component", "ingest"),
	}
}

// Allowed reports whether filename carries one of the accepted video
// extensions.
func (r *Reconciler) Allowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, e := range r.AllowedExts {
		if ext == e {
			return true
		}
	}
	return false
}

// DefaultThumbnail picks a default by round-robin over the current
// catalog size.
func (r *Reconciler) DefaultThumbnail() string {
	if len(r.DefaultThumbnails) == 0 {
		return ""
	}
	return r.DefaultThumbnails[r.Catalog.Size()%len(r.DefaultThumbnails)]
}

// Describe probes duration and thumbnail for a stored video file,
// applying the fallbacks: "0:00" when the probe fails, a round-robin
// default when no thumbnail could be extracted.
func (r *Reconciler) Describe(ctx context.Context, id, filename string) (duration, thumbnail string) {
	videoPath := filepath.Join(r.UploadDir, filename)

	duration, err := r.Prober.Duration(ctx, videoPath)
	if err != nil {
		r.log.WithError(err).WithField("file", filename).Warn("duration probe failed")
		duration = "0:00"
	}

	thumbnail = id + ".jpg"
	thumbPath := filepath.Join(r.ThumbnailDir, thumbnail)
	if err := r.Prober.Thumbnail(ctx, videoPath, thumbPath); err != nil {
		r.log.WithError(err).WithField("file", filename).Warn("thumbnail extraction failed")
		thumbnail = r.DefaultThumbnail()
	}
	return duration, thumbnail
}

// Reconcile scans the upload directory and appends a record for every
// acceptable file the catalog has no filename for. Re-running it over an
// unchanged directory adds nothing.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(r.UploadDir)
	if err != nil {
		return 0, err
	}
	known := r.Catalog.Filenames()

	added := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()
		if !r.Allowed(filename) {
			continue
		}
		if _, ok := known[filename]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return added, err
		}

		id := strings.TrimSuffix(filename, filepath.Ext(filename))
		duration, thumbnail := r.Describe(ctx, id, filename)

		rec := models.VideoRecord{
			ID:          id,
			Title:       strings.ReplaceAll(id, "_", " "),
			Filename:    filename,
			UploadDate:  time.Now().Format(dateLayout),
			Duration:    duration,
			Thumbnail:   thumbnail,
			Author:      SystemAuthor,
			LikedBy:     []string{},
			FavoritedBy: []string{},
			Comments:    []models.Comment{},
		}
		if err := r.Catalog.Add(rec); err != nil {
			r.log.WithError(err).WithField("file", filename).Warn("skipping file")
			continue
		}
		added++
		if r.Announce != nil {
			r.Announce(rec)
		}
	}

	if added > 0 {
		r.log.WithField("added", added).Info("reconciliation complete")
	}
	return added, nil
}
