// Package conf contains utility functions for loading and parsing configuration files.
package conf

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// PostgresConf describes a default configuration for the postgres database.
type PostgresConf struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSL      string `mapstructure:"ssl"`
}

// RedisConf describes a default configuration for redis.
type RedisConf struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	Database   int    `mapstructure:"database"`
	DisableTLS bool   `mapstructure:"disabletls"`
}

// AddrConf describes a host and port to listen on.
type AddrConf struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// QueueConf configures the workers consuming a single job queue.
type QueueConf struct {
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StallTimeout time.Duration `mapstructure:"stall_timeout"`
}

// FeedsConf configures the home feed fan-out.
type FeedsConf struct {
	MaxPosts int `mapstructure:"max_posts"`
}

// StoriesConf configures story distribution.
type StoriesConf struct {
	BatchSize           int           `mapstructure:"batch_size"`
	MaxFeedSize         int           `mapstructure:"max_feed_size"`
	PopularityThreshold int           `mapstructure:"popularity_threshold"`
	Grace               time.Duration `mapstructure:"grace"`
}

// Load opens and parses a configuration file.
func Load(file string, conf interface{}) error {
	_, err := os.Stat(file)
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("toml")

	err = v.ReadInConfig()
	if err != nil {
		return err
	}

	err = v.Unmarshal(conf)
	if err != nil {
		return err
	}

	return nil
}

// QueueOrDefault returns the configuration for a queue, filling unset values
// with the given worker count and sane polling defaults.
func QueueOrDefault(queues map[string]QueueConf, name string, workers int) QueueConf {
	q := queues[name]
	if q.Workers <= 0 {
		q.Workers = workers
	}

	if q.PollInterval <= 0 {
		q.PollInterval = 250 * time.Millisecond
	}

	if q.StallTimeout <= 0 {
		q.StallTimeout = 30 * time.Second
	}

	return q
}
