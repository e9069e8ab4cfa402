package cmd

import (
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/soapboxsocial/fanout/pkg/conf"
)

var (
	file   string
	config *Conf

	rootCmd = &cobra.Command{
		Use:   "fanout",
		Short: "Soapbox feed and story workers",
		Long:  "",
	}
)

type Conf struct {
	Redis   conf.RedisConf            `mapstructure:"redis"`
	DB      conf.PostgresConf         `mapstructure:"db"`
	Queues  map[string]conf.QueueConf `mapstructure:"queues"`
	Feeds   conf.FeedsConf            `mapstructure:"feeds"`
	Stories conf.StoriesConf          `mapstructure:"stories"`
	Metrics conf.AddrConf             `mapstructure:"metrics"`
	Log     struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&file, "config", "c", "config.toml", "config file")
	rootCmd.AddCommand(workerCmd, retryCmd, countsCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	config = &Conf{}
	err := conf.Load(file, config)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()

	if config.Log.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(config.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	return logger
}
