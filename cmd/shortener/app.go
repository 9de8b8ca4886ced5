package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/IgorGrieder/linkquota/internal/config"
	"github.com/IgorGrieder/linkquota/internal/events"
	"github.com/IgorGrieder/linkquota/internal/infrastructure/db"
	"github.com/IgorGrieder/linkquota/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkquota/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkquota/internal/processing/identity"
	"github.com/IgorGrieder/linkquota/internal/processing/links"
	"github.com/IgorGrieder/linkquota/internal/processing/reclaim"
	kafkaStorage "github.com/IgorGrieder/linkquota/internal/storage/kafka"
	mongoStorage "github.com/IgorGrieder/linkquota/internal/storage/mongo"
	"github.com/IgorGrieder/linkquota/internal/transport/console"
	httpTransport "github.com/IgorGrieder/linkquota/internal/transport/http"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

type runOptions struct {
	Interactive bool
	User        uuid.UUID
	In          io.Reader
	Out         io.Writer
	Opener      console.Opener

	// ready, when set, receives the bound listener address once serving.
	ready func(addr string)
}

// run wires the registries to their adapters and blocks until ctx is done or,
// in interactive mode, the console session ends.
func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	log := logger.L()

	log.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTel.Enabled, cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
	if err != nil {
		log.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	} else if cfg.OTel.Enabled {
		log.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
	}

	handlers, closeHandlers, err := buildEventHandlers(ctx, cfg)
	if err != nil {
		_ = shutdownTracer(context.Background())
		return err
	}

	dispatcher := events.NewDispatcher(events.DispatcherOptions{
		QueueSize:     cfg.Events.QueueSize,
		FlushInterval: cfg.Events.FlushInterval,
		MaxBatch:      cfg.Events.MaxBatch,
		Logger:        log,
	}, handlers...)

	identities := identity.NewRegistry()
	registry := links.NewRegistry(identities, links.Options{
		Generator: links.NewHashCodeGenerator(cfg.Shortener.CodeLength),
		Events:    dispatcher,
		Logger:    log,
		Reserved:  httpTransport.ReservedCodes(),
	})

	reclaimer := reclaim.New(registry, reclaim.Options{
		InitialDelay: cfg.Reclaim.InitialDelay,
		Interval:     cfg.Reclaim.Interval,
		Logger:       log,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		shutdownAll(log, nil, dispatcher, closeHandlers, shutdownTracer)
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr(), err)
	}

	server := &http.Server{
		Handler: httpTransport.NewRouterWithOptions(cfg, registry, identities, httpTransport.RouterOptions{
			EnableCORS:    true,
			EnableLogging: true,
			EnableMetrics: true,
			Logger:        log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := reclaimer.Start(runCtx); err != nil {
		_ = ln.Close()
		shutdownAll(log, nil, dispatcher, closeHandlers, shutdownTracer)
		return err
	}

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		log.Info("Server starting",
			zap.String("address", ln.Addr().String()),
			zap.String("base_url", cfg.Shortener.BaseURL),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})

	if opts.Interactive {
		user := sessionIdentity(identities, opts.User)
		log.Info("Console session started", zap.String("user_id", user.String()))

		cli := console.New(registry, user, opts.In, opts.Out, console.Options{
			BaseURL:           cfg.Shortener.BaseURL,
			DefaultClickLimit: cfg.Shortener.DefaultClickLimit,
			DefaultTTL:        cfg.Shortener.DefaultTTL,
			Opener:            opts.Opener,
			Logger:            log,
		})

		g.Go(func() error {
			err := cli.Run(gctx)
			cancel()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if opts.ready != nil {
		opts.ready(ln.Addr().String())
	}

	err = g.Wait()
	shutdownAll(log, reclaimer, dispatcher, closeHandlers, shutdownTracer)

	if err != nil {
		return err
	}
	log.Info("Server stopped gracefully", zap.Int("links_left", registry.Len()))
	return nil
}

// sessionIdentity registers the console user. A zero id asks for a fresh one.
func sessionIdentity(identities *identity.Registry, id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return identities.CreateIdentity()
	}
	return identities.EnsureIdentity(id).ID
}

// buildEventHandlers connects the optional sinks of link lifecycle events. The
// returned closer releases every connection that was opened.
func buildEventHandlers(ctx context.Context, cfg *config.Config) ([]events.Handler, func(), error) {
	var (
		handlers []events.Handler
		closers  []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Kafka.Enabled {
		publisher := kafkaStorage.NewLinkEventsPublisher(
			kafkaStorage.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			cfg.Kafka.Topic,
		)
		handlers = append(handlers, publisher)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("Kafka writer close error", zap.Error(err))
			}
		})
		logger.Info("Kafka link event publisher enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	if cfg.MongoDB.Enabled {
		mongoConn, err := db.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		closers = append(closers, func() {
			if err := mongoConn.Disconnect(context.Background()); err != nil {
				logger.Warn("MongoDB disconnect error", zap.Error(err))
			}
		})

		archive, err := mongoStorage.NewClickArchive(mongoConn)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("initialize click archive: %w", err)
		}
		handlers = append(handlers, archive)
	}

	return handlers, closeAll, nil
}

// shutdownAll stops background work in dependency order: no more sweeps, then
// the queued events are delivered, then the sinks and the exporter close.
func shutdownAll(log *zap.Logger, reclaimer *reclaim.Reclaimer, dispatcher *events.Dispatcher, closeHandlers func(), shutdownTracer telemetry.ShutdownFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if reclaimer != nil {
		if err := reclaimer.Stop(ctx); err != nil {
			log.Error("Reclaimer stop error", zap.Error(err))
		}
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		log.Error("Event dispatcher shutdown error", zap.Error(err))
	}
	closeHandlers()
	if err := shutdownTracer(ctx); err != nil {
		log.Error("Tracer shutdown error", zap.Error(err))
	}
}
