package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soapboxsocial/fanout/pkg/conf"
	"github.com/soapboxsocial/fanout/pkg/redis"
	"github.com/soapboxsocial/fanout/pkg/sql"
	"github.com/soapboxsocial/fanout/pkg/stories"
)

const (
	sweepLease = "stories-sweep"
	sweepTTL   = 10 * time.Minute
)

type Conf struct {
	Data struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"data"`
	DB    conf.PostgresConf `mapstructure:"db"`
	Redis conf.RedisConf    `mapstructure:"redis"`
}

func parse() (*Conf, error) {
	var file string
	flag.StringVar(&file, "c", "config.toml", "config file")
	flag.Parse()

	config := &Conf{}
	err := conf.Load(file, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func main() {
	log := logrus.New()

	config, err := parse()
	if err != nil {
		log.WithError(err).Fatal("failed to parse config")
	}

	db, err := sql.Open(config.DB)
	if err != nil {
		log.WithError(err).Fatal("failed to open db")
	}

	ctx := context.Background()
	leases := redis.NewTimeoutStore(redis.NewRedis(config.Redis))

	acquired, err := leases.Acquire(ctx, sweepLease, sweepTTL)
	if err != nil {
		log.WithError(err).Fatal("failed to acquire sweep lease")
	}

	if !acquired {
		log.Info("sweep already running")
		return
	}

	defer func() {
		err := leases.Release(ctx, sweepLease)
		if err != nil {
			log.WithError(err).Warn("failed to release sweep lease")
		}
	}()

	backend := stories.NewBackend(db)
	files := stories.NewFileBackend(config.Data.Path)

	expired, err := backend.DeleteExpired(ctx, time.Now().UnixNano()/int64(time.Millisecond))
	if err != nil {
		log.WithError(err).Error("failed to delete expired stories")
		return
	}

	for _, story := range expired {
		err := files.Remove(story.Media)
		if err != nil {
			log.WithError(err).WithField("story", story.ID).Warn("files.Remove failed")
		}
	}

	log.WithField("deleted", len(expired)).Info("swept expired stories")
}
