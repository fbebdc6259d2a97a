package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/shipscope/shipscope/internal/api/trackhttp"
	"github.com/shipscope/shipscope/internal/broker/messages"
	"github.com/shipscope/shipscope/internal/live"
	"github.com/shipscope/shipscope/internal/services/tracking"
)

type serverOpts struct {
	httpAddr    string
	swaggerPath string

	rateLimitPerMinute int
	limiter            trackhttp.RateLimiter

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runServer(ctx context.Context, opts serverOpts, svc *tracking.Service, hub *live.Hub, consumer kafkaConsumer) error {
	api := trackhttp.New(svc, hub)
	if opts.limiter != nil && opts.rateLimitPerMinute > 0 {
		api.WithRateLimiter(opts.limiter, int64(opts.rateLimitPerMinute))
	}
	if opts.swaggerPath != "" {
		api.WithSwagger(opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}

	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	if consumer != nil {
		go func() {
			slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
			_ = consumer.Consume(ctx, func(_key, value []byte) error {
				var m messages.TrackingUpdated
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				svc.ApplyRemoteUpdate(m)
				return nil
			})
		}()
	}

	srv := &http.Server{Handler: api.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
