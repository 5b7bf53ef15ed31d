package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/klauspost/compress/gzhttp"

	"github.com/go-sod/knn/internal/buildinfo"
	knn "github.com/go-sod/knn/internal/config"
	"github.com/go-sod/knn/internal/decision"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/predict"
	"github.com/go-sod/knn/internal/server"
	"github.com/go-sod/knn/internal/setup"
	"github.com/go-sod/knn/internal/shutdown"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintln(os.Stdout, buildinfo.Info)

	ctx, done := shutdown.New()
	logger := logging.NewLoggerFromEnv()
	ctx = logging.WithLogger(ctx, logger)
	defer func() {
		done()
		_ = logger.Sync()
	}()

	if err := run(ctx, done); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context, cancel func()) error {
	logger := logging.FromContext(ctx)
	config := knn.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(ctx); err != nil {
			logger.Errorf("env.Close: %v", err)
		}
	}()

	p, err := env.ProvidePredictor()()
	if err != nil {
		return fmt.Errorf("predictor provider function error: %w", err)
	}

	if scheduler := env.CacheScheduler(); scheduler != nil {
		go scheduler.Schedule(ctx)
	}
	if writer := env.CacheWriter(); writer != nil {
		flushed := make(chan struct{})
		go func() {
			defer close(flushed)
			writer.Run(ctx)
		}()
		// the final flush has to land before the database closes
		defer func() {
			cancel()
			<-flushed
		}()
	}

	srv, err := server.New(config.SrvAddr, server.WithShutdownTimeout(config.ShutdownTimeout))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	mux := http.NewServeMux()

	predictHandler, err := predict.NewHandler(&config.Predict, p)
	if err != nil {
		return fmt.Errorf("predict.NewHandler: %w", err)
	}
	boundaryHandler, err := decision.NewHandler(&config.Boundary, p)
	if err != nil {
		return fmt.Errorf("decision.NewHandler: %w", err)
	}

	mux.Handle("/predict", gzhttp.GzipHandler(predictHandler))
	mux.Handle("/boundary", gzhttp.GzipHandler(boundaryHandler))
	mux.Handle("/health", server.HandleHealth(ctx))
	if exporter := env.Exporter(); exporter != nil {
		mux.Handle("/metrics", exporter)
	}

	if config.DebugAddr != "" {
		debugMux := http.NewServeMux()
		debugMux.HandleFunc("/debug/pprof/", pprof.Index)
		debugMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		debugMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		debug, err := server.New(config.DebugAddr)
		if err != nil {
			return fmt.Errorf("server.New debug: %w", err)
		}
		go func() {
			if err := debug.ServeHTTPHandler(ctx, debugMux); err != nil {
				logger.Errorf("debug server: %v", err)
				cancel()
			}
		}()
	}

	logger.Infof("serving on %s", srv.Addr())
	return srv.ServeHTTPHandler(ctx, logging.Middleware(ctx)(mux))
}
