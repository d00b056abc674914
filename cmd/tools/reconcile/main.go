// reconcile scans an upload directory and folds any unknown video files
// into the catalog, probing duration and thumbnail for each. Running it
// again over an unchanged directory adds nothing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidhub/internal/catalog"
	"vidhub/internal/ingest"
	"vidhub/internal/media"
	"vidhub/internal/store"
	"vidhub/pkg/models"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "directory holding videos.json")
		uploadDir = flag.String("uploads", "./static/videos", "upload directory to scan")
		thumbDir  = flag.String("thumbnails", "./static/thumbnails", "directory for extracted thumbnails")
		exts      = flag.String("exts", "mp4,webm,mkv", "comma-separated accepted extensions")
		timeout   = flag.Duration("probe-timeout", 15*time.Second, "per-file ffmpeg/ffprobe timeout")
	)
	flag.Parse()

	for _, dir := range []string{*dataDir, *thumbDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	cat := catalog.New(store.NewCollection[models.VideoRecord](filepath.Join(*dataDir, "videos.json")))
	r := ingest.New(*uploadDir, *thumbDir,
		[]string{"default.jpg", "default1.jpg", "default2.jpg"},
		strings.Split(*exts, ","), cat, media.NewProber(*timeout))

	added, err := r.Reconcile(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Printf("added %d video(s); catalog now holds %d\n", added, cat.Size())
}
