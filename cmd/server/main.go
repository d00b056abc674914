package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"vidhub/internal/catalog"
	"vidhub/internal/config"
	"vidhub/internal/danmu"
	"vidhub/internal/danmufeed"
	"vidhub/internal/ingest"
	"vidhub/internal/media"
	"vidhub/internal/store"
	"vidhub/internal/udpnotify"
	"vidhub/internal/user"
	"vidhub/pkg/models"
)

// app bundles the services the HTTP handlers work against.
type app struct {
	cfg     config.Config
	secret  []byte
	catalog *catalog.Catalog
	users   *user.Directory
	danmu   *danmu.Broadcaster
	ingest  *ingest.Reconciler

	// announce pushes a new-video notification; nil in tests.
	announce func(models.VideoRecord)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	for _, dir := range []string{cfg.Data.Dir, cfg.Media.UploadDir, cfg.Media.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.WithError(err).WithField("dir", dir).Fatal("create directory")
		}
	}

	videos := store.NewCollection[models.VideoRecord](filepath.Join(cfg.Data.Dir, "videos.json"))
	users := store.NewCollection[models.UserAccount](filepath.Join(cfg.Data.Dir, "users.json"))

	a := &app{
		cfg:     cfg,
		secret:  []byte(cfg.Auth.Secret),
		catalog: catalog.New(videos),
		users:   user.New(users),
		danmu:   danmu.New(cfg.Danmu.HistoryLimit),
	}

	// Moderation firehose: every danmu, all videos, over TCP.
	feedCh := make(chan models.DanmuEvent, 100)
	a.danmu.SetFeed(feedCh)
	feed := danmufeed.New(cfg.Server.FeedAddr, feedCh)
	go func() {
		if err := feed.Start(); err != nil {
			logrus.WithError(err).Fatal("danmu feed server")
		}
	}()

	// New-video notifications over UDP.
	notify := udpnotify.New(cfg.Server.UDPAddr)
	go func() {
		if err := notify.Start(); err != nil {
			logrus.WithError(err).Fatal("udp notify server")
		}
	}()
	a.announce = notify.Announce

	prober := media.NewProber(cfg.Media.ProbeTimeout)
	a.ingest = ingest.New(cfg.Media.UploadDir, cfg.Media.ThumbnailDir,
		cfg.Media.DefaultThumbnails, cfg.Media.AllowedExtensions, a.catalog, prober)
	a.ingest.Announce = notify.Announce

	r := a.router()
	logrus.WithField("addr", cfg.Server.Addr).Info("http api listening")
	logrus.Fatal(r.Run(cfg.Server.Addr))
}
