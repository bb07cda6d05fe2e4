// Package server composes the transports, the sweeper and the reply sinks
// into the timeout service.
package server

import (
	goctx "context"
	"errors"
	"fmt"

	"github.com/netrixframework/timeoutd/apiserver"
	"github.com/netrixframework/timeoutd/context"
	"github.com/netrixframework/timeoutd/dispatcher"
	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/sweeper"
	"github.com/netrixframework/timeoutd/transport/kafka"
	"github.com/netrixframework/timeoutd/types"
)

// Server is the timeout service
type Server struct {
	ctx      *context.RootContext
	sink     dispatcher.ReplySink
	sweeper  *sweeper.Sweeper
	api      *apiserver.APIServer
	consumer *kafka.Consumer
	logger   *log.Logger
}

// NewServer connects the configured reply sinks and instantiates the services
func NewServer(c goctx.Context, ctx *context.RootContext) (*Server, error) {
	router, err := NewRouter(c, ctx)
	if err != nil {
		return nil, err
	}
	return NewServerWithSink(ctx, router), nil
}

// NewRouter registers a sink for every configured backend. The http sink is always present.
func NewRouter(c goctx.Context, ctx *context.RootContext) (*dispatcher.Router, error) {
	cfg := ctx.Config
	router := dispatcher.NewRouter(ctx.Logger)
	router.Register(dispatcher.NewHTTPSink(), types.SchemeHTTP, types.SchemeHTTPS)

	if cfg.Kafka.Enabled() {
		router.Register(dispatcher.NewKafkaSink(cfg.Kafka.Brokers), types.SchemeKafka)
	}
	if cfg.Redis.Enabled() {
		sink, err := dispatcher.NewRedisSink(c, cfg.Redis)
		if err != nil {
			router.Close()
			return nil, err
		}
		router.Register(sink, types.SchemeRedis)
	}
	if cfg.Postgres.Enabled() {
		sink, err := dispatcher.NewOutboxSink(c, cfg.Postgres.DSN)
		if err != nil {
			router.Close()
			return nil, err
		}
		router.Register(sink, types.SchemeOutbox)
	}
	ctx.Logger.With(log.LogParams{"schemes": router.Schemes()}).Info("Reply sinks ready")
	return router, nil
}

// NewServerWithSink instantiates the services sending replies to sink
func NewServerWithSink(ctx *context.RootContext, sink dispatcher.ReplySink) *Server {
	s := &Server{
		ctx:  ctx,
		sink: sink,
		sweeper: sweeper.NewSweeper(
			ctx.TimeoutStore,
			sink,
			ctx.Clock,
			ctx.Logger,
			sweeper.WithInterval(ctx.Config.SweepInterval.Duration()),
			sweeper.WithReplyTimeout(ctx.Config.ReplyTimeout.Duration()),
			sweeper.WithLateness(ctx.Lateness),
		),
		api:    apiserver.NewAPIServer(ctx),
		logger: ctx.Logger.With(log.LogParams{"service": "server"}),
	}
	if ctx.Config.Kafka.Enabled() && ctx.Config.Kafka.InputTopic != "" {
		s.consumer = kafka.NewConsumer(ctx.Config.Kafka, ctx.Intake, ctx.Logger)
	}
	return s
}

// APIServer returns the http transport
func (s *Server) APIServer() *apiserver.APIServer {
	return s.api
}

// Sweeper returns the sweep scheduler
func (s *Server) Sweeper() *sweeper.Sweeper {
	return s.sweeper
}

// Start starts the transports and the sweeper
func (s *Server) Start() error {
	s.logger.Info("Starting bus")
	if err := s.api.Start(); err != nil {
		return fmt.Errorf("failed to start api server: %w", err)
	}
	if s.consumer != nil {
		if err := s.consumer.Start(); err != nil {
			s.api.Stop()
			return fmt.Errorf("failed to start kafka consumer: %w", err)
		}
	}
	return s.sweeper.Start()
}

// Stop stops intake first so that no request is accepted without a sweeper,
// then the sweeper, then closes the sinks. Timeouts still pending are dropped.
func (s *Server) Stop() error {
	var errs []error
	if s.consumer != nil {
		errs = append(errs, s.consumer.Stop())
	}
	errs = append(errs, s.api.Stop())
	errs = append(errs, s.sweeper.Stop())

	if pending := s.ctx.TimeoutStore.Count(); pending > 0 {
		s.logger.With(log.LogParams{"pending": pending}).Warn("Discarding pending timeouts")
	}
	s.logger.Info("Disposing bus")
	errs = append(errs, s.sink.Close())
	return errors.Join(errs...)
}
