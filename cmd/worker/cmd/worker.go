package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/soapboxsocial/fanout/pkg/conf"
	"github.com/soapboxsocial/fanout/pkg/feeds"
	"github.com/soapboxsocial/fanout/pkg/followers"
	"github.com/soapboxsocial/fanout/pkg/jobs"
	"github.com/soapboxsocial/fanout/pkg/posts"
	"github.com/soapboxsocial/fanout/pkg/redis"
	"github.com/soapboxsocial/fanout/pkg/socialgraph"
	"github.com/soapboxsocial/fanout/pkg/sql"
	"github.com/soapboxsocial/fanout/pkg/stories"
	"github.com/soapboxsocial/fanout/pkg/storyfeed"
	"github.com/soapboxsocial/fanout/pkg/tasks"
	"github.com/soapboxsocial/fanout/pkg/users"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "runs the feed workers",
	RunE:  runWorker,
}

var defaultWorkers = map[string]int{
	tasks.HomeFeedQueue:    10,
	tasks.StoryQueue:       15,
	tasks.StoryFollowQueue: 10,
	tasks.PopularityQueue:  25,
	tasks.AccountQueue:     5,
}

func runWorker(*cobra.Command, []string) error {
	logger := newLogger()

	rdb := redis.NewRedis(config.Redis)

	db, err := sql.Open(config.DB)
	if err != nil {
		return errors.Wrap(err, "failed to open db")
	}

	registry := prometheus.NewRegistry()
	metrics := jobs.NewMetrics(registry)

	followersBackend := followers.NewBackend(db)
	usersBackend := users.NewBackend(db)
	storiesBackend := stories.NewBackend(db)
	producer := tasks.NewProducer(rdb)

	stores := storyfeed.Stores{
		Graph:   followersBackend,
		Stories: storiesBackend,
		Users:   usersBackend,
	}

	cache := storyfeed.NewCache(rdb, config.Stories.Grace, config.Stories.MaxFeedSize)
	storyConfig := storyfeed.Config{BatchSize: config.Stories.BatchSize}

	transitions := storyfeed.NewTransitions(cache, stores, storyConfig, logger, metrics)

	handlersByQueue := map[string]jobs.Handler{
		tasks.HomeFeedQueue: feeds.NewEngine(
			followersBackend,
			posts.NewBackend(db),
			feeds.NewBackend(db, config.Feeds.MaxPosts),
			logger,
			metrics,
		),
		tasks.StoryQueue:       storyfeed.NewDistributor(cache, stores, storyConfig, logger, metrics),
		tasks.StoryFollowQueue: jobs.HandlerFunc(transitions.HandleFollow),
		tasks.PopularityQueue:  jobs.HandlerFunc(transitions.HandlePopularity),
		tasks.AccountQueue: socialgraph.NewService(
			followersBackend,
			usersBackend,
			producer,
			config.Stories.PopularityThreshold,
			logger,
		),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queues := make([]*jobs.Queue, 0, len(tasks.Queues))
	dispatchers := make([]*jobs.Dispatcher, 0, len(tasks.Queues))

	for _, name := range tasks.Queues {
		queue := producer.Queue(name)
		queues = append(queues, queue)

		qc := conf.QueueOrDefault(config.Queues, name, defaultWorkers[name])

		dispatcher := jobs.NewDispatcher(qc.Workers, &jobs.Config{
			Queue:        queue,
			Handler:      handlersByQueue[name],
			Logger:       logger,
			Metrics:      metrics,
			PollInterval: qc.PollInterval,
			StallTimeout: qc.StallTimeout,
		})

		dispatcher.Run(ctx)
		dispatchers = append(dispatchers, dispatcher)

		logger.WithField("queue", name).WithField("workers", qc.Workers).Info("started dispatcher")
	}

	router := mux.NewRouter()
	router.Path("/metrics").Handler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.PathPrefix("/queues").Handler(jobs.NewEndpoint(queues...).Router())
	router.PathPrefix("/users").Handler(storyfeed.NewEndpoint(storyfeed.NewReader(rdb, storiesBackend)).Router())

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Metrics.Host, config.Metrics.Port),
		Handler: handlers.LoggingHandler(logger.Writer(), router),
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("ops server failed")
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signals
	logger.WithField("signal", sig.String()).Info("shutting down")

	for _, d := range dispatchers {
		d.Stop()
	}

	for _, d := range dispatchers {
		d.Wait()
	}

	shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()

	return server.Shutdown(shutdown)
}
