// Package media wraps the external ffmpeg/ffprobe tools. Every call is
// bounded by a timeout; callers fall back to defaults on failure rather
// than surfacing probe errors.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const DefaultTimeout = 15 * time.Second

// FFmpegProber probes durations with ffprobe and extracts thumbnails with
// ffmpeg, both via ffmpeg-go.
type FFmpegProber struct {
	Timeout time.Duration
}

func NewProber(timeout time.Duration) *FFmpegProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFmpegProber{Timeout: timeout}
}

// bounded runs fn and gives up when the timeout or ctx expires. The
// underlying tool may linger a little past the deadline; the caller has
// already fallen back by then.
func (p *FFmpegProber) bounded(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Duration returns the video length formatted m:ss.
func (p *FFmpegProber) Duration(ctx context.Context, path string) (string, error) {
	var raw string
	err := p.bounded(ctx, func() error {
		out, err := ffmpeg.Probe(path)
		raw = out
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "probe video")
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return "", errors.Wrap(err, "parse probe output")
	}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return "", errors.Wrap(err, "parse duration")
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60), nil
}

// Thumbnail writes a single frame from one second in to thumbPath.
func (p *FFmpegProber) Thumbnail(ctx context.Context, videoPath, thumbPath string) error {
	err := p.bounded(ctx, func() error {
		return ffmpeg.Input(videoPath).
			Output(thumbPath, ffmpeg.KwArgs{
				"ss":      "00:00:01",
				"vframes": "1",
			}).
			OverWriteOutput().
			Run()
	})
	if err != nil {
		return errors.Wrap(err, "extract thumbnail")
	}
	if _, err := os.Stat(thumbPath); err != nil {
		return errors.Wrap(err, "thumbnail not written")
	}
	return nil
}
