package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shipscope/shipscope/config"
	"github.com/shipscope/shipscope/internal/broker/kafka"
	"github.com/shipscope/shipscope/internal/cache"
	"github.com/shipscope/shipscope/internal/cache/memcache"
	"github.com/shipscope/shipscope/internal/cache/rediscache"
	"github.com/shipscope/shipscope/internal/integrations/carrier/amazonweb"
	"github.com/shipscope/shipscope/internal/integrations/carrier/simulated"
	"github.com/shipscope/shipscope/internal/live"
	"github.com/shipscope/shipscope/internal/models"
	"github.com/shipscope/shipscope/internal/services/tracking"
	"github.com/shipscope/shipscope/internal/storage/pglookup"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	httpAddr := cfg.ShipScope.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	cacheTTL := time.Duration(cfg.ShipScope.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	topic := cfg.Kafka.TrackingUpdatedTopicName
	if topic == "" {
		topic = "tracking.updated"
	}
	consumerGroup := cfg.Kafka.ConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "shipscope-api"
	}

	// Redis when configured, in-process cache otherwise. Without redis
	// each instance keeps its own 10-minute window.
	var c cache.BytesCache = memcache.New()
	if cfg.Redis.Host != "" {
		c = rediscache.New(cfg.Redis.Addr())
	}

	hub := live.NewHub()

	svc := tracking.New(simulated.New(), c, cacheTTL, hub).
		WithStrategy(models.CarrierAmazon, amazonweb.New(
			cfg.ShipScope.AmazonBaseURL,
			amazonweb.Credentials{
				Email:    cfg.ShipScope.AmazonEmail,
				Password: cfg.ShipScope.AmazonPassword,
			},
			nil,
		))

	if cfg.Database.Host != "" {
		st, err := pglookup.New(cfg.Database.DSN())
		if err != nil {
			panic(err)
		}
		defer st.Close()
		svc.WithArchive(st)
	}

	var consumer *kafka.Consumer
	if cfg.Kafka.Host != "" {
		originID := uuid.NewString()
		brokers := []string{cfg.Kafka.Broker()}

		producer := kafka.NewProducer(brokers, topic)
		defer func() { _ = producer.Close() }()
		svc.WithProducer(producer, originID)

		consumer = kafka.NewConsumer(brokers, topic, consumerGroup)
		defer func() { _ = consumer.Close() }()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := serverOpts{
		httpAddr:           httpAddr,
		swaggerPath:        cfg.ShipScope.SwaggerPath,
		rateLimitPerMinute: cfg.ShipScope.RateLimitPerMinute,
		topic:              topic,
		consumerGroup:      consumerGroup,
	}
	if cfg.Redis.Host != "" && opts.rateLimitPerMinute > 0 {
		opts.limiter = rediscache.NewRateLimiter(cfg.Redis.Addr())
	}

	if err := runServer(ctx, opts, svc, hub, consumerOrNil(consumer)); err != nil && err != context.Canceled {
		panic(err)
	}
}

// consumerOrNil keeps a typed-nil *kafka.Consumer from sneaking into the
// kafkaConsumer interface.
func consumerOrNil(c *kafka.Consumer) kafkaConsumer {
	if c == nil {
		return nil
	}
	return c
}
