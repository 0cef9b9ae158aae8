package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"visionbridge/internal/config"
	"visionbridge/internal/store"
	"visionbridge/internal/worker"
)

type Dependencies struct {
	Staging  store.ObjectStore
	Results  store.ObjectStore
	Producer *nsq.Producer
}

// Bootstrap builds the external collaborators: the object store backend
// (shared by the staging and result stores, partitioned by key prefix) and
// the NSQ producer.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	var objects store.ObjectStore

	switch cfg.StoreBackend {
	case "filesystem":
		fs, err := store.NewFilesystemStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("filesystem store: %w", err)
		}
		objects = fs
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		rs := store.NewRedisStore(rdb)

		// Retry loop
		for i := 0; i < 10; i++ {
			if err := rs.Ping(ctx); err == nil {
				break
			}
			slog.Warn("failed to ping redis, retrying...", "attempt", i+1)
			time.Sleep(2 * time.Second)
		}
		if err := rs.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		objects = rs
	}

	nsqCfg := nsq.NewConfig()
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsqCfg)
	if err != nil {
		return nil, fmt.Errorf("nsq producer error: %w", err)
	}

	createTopics(cfg.NSQDHTTP)

	return &Dependencies{
		Staging:  objects,
		Results:  objects,
		Producer: producer,
	}, nil
}

// createTopics pre-creates the NSQ topics over nsqd's HTTP API. NSQ creates
// topics lazily on first publish, but a consumer querying lookupd 404s until
// then.
func createTopics(nsqdHTTP string) {
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		time.Sleep(2 * time.Second)
		create(config.TopicClassifyTask)
		create(config.TopicClassifyResult)
	}()
}

// StartResultConsumer subscribes the completion-announcement consumer to the
// result topic. The returned consumer should be Stop()ed on shutdown.
func StartResultConsumer(cfg *config.Config, rc *worker.ResultConsumer) (*nsq.Consumer, error) {
	consumer, err := nsq.NewConsumer(config.TopicClassifyResult, "bridge", nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq consumer error: %w", err)
	}

	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		return rc.HandleMessage(m)
	}))

	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		return nil, fmt.Errorf("nsq lookupd connect error: %w", err)
	}

	return consumer, nil
}
