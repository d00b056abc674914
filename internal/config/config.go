// Package config loads service configuration with viper: defaults in
// code, optional config.yml, VIDHUB_-prefixed environment overrides.
package config

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		FeedAddr string `mapstructure:"feed_addr"`
		UDPAddr  string `mapstructure:"udp_addr"`
	} `mapstructure:"server"`

	Data struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"data"`

	Media struct {
		UploadDir         string        `mapstructure:"upload_dir"`
		ThumbnailDir      string        `mapstructure:"thumbnail_dir"`
		DefaultThumbnails []string      `mapstructure:"default_thumbnails"`
		AllowedExtensions []string      `mapstructure:"allowed_extensions"`
		ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	} `mapstructure:"media"`

	Auth struct {
		Secret string        `mapstructure:"secret"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"auth"`

	Danmu struct {
		HistoryLimit int `mapstructure:"history_limit"`
	} `mapstructure:"danmu"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.feed_addr", ":9090")
	v.SetDefault("server.udp_addr", ":7070")
	v.SetDefault("data.dir", "./data")
	v.SetDefault("media.upload_dir", "./static/videos")
	v.SetDefault("media.thumbnail_dir", "./static/thumbnails")
	v.SetDefault("media.default_thumbnails", []string{"default.jpg", "default1.jpg", "default2.jpg"})
	v.SetDefault("media.allowed_extensions", []string{"mp4", "webm", "mkv"})
	v.SetDefault("media.probe_timeout", 15*time.Second)
	v.SetDefault("auth.secret", "dev-secret-change-me")
	v.SetDefault("auth.ttl", 24*time.Hour)
	v.SetDefault("danmu.history_limit", 512)
}

// Load reads the configuration. A missing config file is fine; defaults
// and environment cover everything.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("VIDHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Info("config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
