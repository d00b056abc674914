// Package danmu keeps the ephemeral per-video caption logs and fans them
// out to live subscribers. Nothing here is ever persisted.
package danmu

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vidhub/pkg/models"
)

var ErrEmptyText = errors.New("danmu: text is empty")

// DefaultHistoryLimit bounds how many messages a video log retains. Old
// entries are evicted from the front; a late subscriber replays from the
// oldest retained entry.
const DefaultHistoryLimit = 512

// AnonymousAuthor attributes posts that carry no session.
const AnonymousAuthor = "anonymous"

// Broadcaster owns one append-only log per video id. One writer may post
// concurrently with any number of subscribers; subscribers pace
// themselves against the log, so a slow reader never stalls the writer.
type Broadcaster struct {
	mu    sync.Mutex
	logs  map[string]*videoLog
	limit int
	feed  chan<- models.DanmuEvent
	log   *logrus.Entry
}

// videoLog is a bounded window of the absolute append-only log. start is
// the absolute position of entries[0]; it advances as old entries are
// evicted. wake is closed and replaced on every append.
type videoLog struct {
	mu      sync.RWMutex
	start   int
	entries []models.DanmuMessage
	wake    chan struct{}
}

// New creates a broadcaster retaining at most limit messages per video;
// limit <= 0 selects DefaultHistoryLimit.
func New(limit int) *Broadcaster {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Broadcaster{
		logs:  make(map[string]*videoLog),
		limit: limit,
		log:   logrus.WithField("component", "danmu"),
	}
}

// SetFeed attaches the moderation firehose. Sends never block: if the
// feed consumer lags, events are dropped there, not here.
func (b *Broadcaster) SetFeed(feed chan<- models.DanmuEvent) {
	b.feed = feed
}

func (b *Broadcaster) videoLogFor(videoID string) *videoLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.logs[videoID]
	if !ok {
		l = &videoLog{wake: make(chan struct{})}
		b.logs[videoID] = l
	}
	return l
}

// Post appends a message to the video's log and wakes every subscriber.
func (b *Broadcaster) Post(videoID, text, author string) error {
	if text == "" {
		return ErrEmptyText
	}
	if author == "" {
		author = AnonymousAuthor
	}

	msg := models.DanmuMessage{
		Text:   text,
		Time:   time.Now().UnixMilli(),
		Author: author,
	}

	l := b.videoLogFor(videoID)
	l.mu.Lock()
	l.entries = append(l.entries, msg)
	if len(l.entries) > b.limit {
		evict := len(l.entries) - b.limit
		l.entries = append([]models.DanmuMessage(nil), l.entries[evict:]...)
		l.start += evict
	}
	close(l.wake)
	l.wake = make(chan struct{})
	l.mu.Unlock()

	if b.feed != nil {
		select {
		case b.feed <- models.DanmuEvent{VideoID: videoID, DanmuMessage: msg}:
		default:
			b.log.WithField("video", videoID).Warn("feed channel full, event dropped")
		}
	}
	return nil
}

// since returns the messages at absolute position pos and later, the next
// position to read from, and the channel that closes on the next append.
func (l *videoLog) since(pos int) ([]models.DanmuMessage, int, <-chan struct{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos < l.start {
		pos = l.start
	}
	var out []models.DanmuMessage
	if off := pos - l.start; off < len(l.entries) {
		out = append(out, l.entries[off:]...)
	}
	return out, l.start + len(l.entries), l.wake
}

// History returns a copy of the retained log, oldest first.
func (b *Broadcaster) History(videoID string) []models.DanmuMessage {
	msgs, _, _ := b.videoLogFor(videoID).since(0)
	return msgs
}

// Subscribe returns a channel that first replays the retained history and
// then delivers each new message in post order. The channel closes when
// ctx is canceled; nothing about the subscription outlives it.
func (b *Broadcaster) Subscribe(ctx context.Context, videoID string) <-chan models.DanmuMessage {
	l := b.videoLogFor(videoID)
	out := make(chan models.DanmuMessage, 16)

	go func() {
		defer close(out)
		pos := 0
		for {
			msgs, next, wake := l.since(pos)
			for _, m := range msgs {
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
			pos = next

			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
