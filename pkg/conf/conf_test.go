package conf_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/soapboxsocial/fanout/pkg/conf"
)

func TestLoad(t *testing.T) {
	var conftests = []struct {
		in   string
		err  bool
		conf *conf.RedisConf
	}{
		{
			"./testdata/redis.toml",
			false,
			&conf.RedisConf{
				Database: 12,
				Port:     1234,
				Password: "test",
				Host:     "test",
			},
		},
		{
			"./testdata/invalid.toml",
			true,
			nil,
		},
		{
			"./testdata/wow.toml",
			true,
			nil,
		},
	}

	for _, tt := range conftests {
		t.Run(tt.in, func(t *testing.T) {
			c := &conf.RedisConf{}
			err := conf.Load(tt.in, c)

			if err != nil {
				if tt.err {
					return
				}

				t.Fatalf("unexpected err %s", err)
			}

			if tt.err {
				t.Fatal("expected error")
			}

			if !reflect.DeepEqual(c, tt.conf) {
				t.Fatalf("config %v does not match %v", c, tt.conf)
			}
		})
	}
}

func TestLoad_Durations(t *testing.T) {
	type config struct {
		Queues  map[string]conf.QueueConf `mapstructure:"queues"`
		Stories conf.StoriesConf          `mapstructure:"stories"`
	}

	c := &config{}
	err := conf.Load("./testdata/worker.toml", c)
	if err != nil {
		t.Fatal(err)
	}

	if c.Stories.Grace != time.Hour {
		t.Fatalf("unexpected grace %s", c.Stories.Grace)
	}

	q := conf.QueueOrDefault(c.Queues, "home_feed", 10)
	if q.Workers != 4 || q.PollInterval != time.Second {
		t.Fatalf("unexpected queue conf %+v", q)
	}

	if q.StallTimeout != 30*time.Second {
		t.Fatalf("unexpected stall timeout %s", q.StallTimeout)
	}

	q = conf.QueueOrDefault(c.Queues, "story", 15)
	if q.Workers != 15 {
		t.Fatalf("unexpected workers %d", q.Workers)
	}
}
