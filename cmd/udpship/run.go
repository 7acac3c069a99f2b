package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/udpship/internal/adapters/fs"
	"github.com/bft-labs/udpship/internal/cliconfig"
	"github.com/bft-labs/udpship/internal/source"
	"github.com/bft-labs/udpship/pkg/log"
	"github.com/bft-labs/udpship/pkg/udpship"
)

// completeTimeout bounds the final flush once the input is exhausted or a
// signal arrived.
const completeTimeout = 5 * time.Second

// run ships the configured input until it ends or ctx is cancelled, then
// drains the transport. The returned error is non-nil when the input failed
// or the final flush did not go out.
func run(ctx context.Context, cfg cliconfig.Config, stdin io.Reader, logger log.Logger) error {
	opts := []udpship.Option{udpship.WithLogger(logger)}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		shutdown, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		opts = append(opts, udpship.WithMetrics(reg))
	}

	t, err := udpship.New(cfg.Endpoint, cfg.Transport(), opts...)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}

	stats, srcErr := readInput(ctx, cfg, stdin, t, logger)
	if errors.Is(srcErr, context.Canceled) {
		logger.Info("received signal, stopping")
		srcErr = nil
	}
	logger.Info("input done",
		log.Int("pushed", stats.Pushed),
		log.Int("skipped", stats.Skipped),
		log.Int("failed", stats.Failed),
	)

	completeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completeTimeout)
	defer cancel()
	if err := t.Complete(completeCtx); err != nil {
		return errors.Join(srcErr, fmt.Errorf("final flush: %w", err))
	}
	return srcErr
}

func readInput(ctx context.Context, cfg cliconfig.Config, stdin io.Reader, p source.Pusher, logger log.Logger) (source.Stats, error) {
	if cfg.Follow {
		follower := source.NewFollower(source.FollowerConfig{
			Path:         cfg.Input,
			Store:        fs.NewOffsetFile(cfg.OffsetFile),
			PollInterval: cfg.PollInterval,
		}, logger)
		return follower.Run(ctx, p)
	}

	r := stdin
	if cfg.Input != cliconfig.StdinInput {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return source.Stats{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	return source.ReadNDJSON(ctx, r, p, logger)
}

// serveMetrics exposes reg on addr under /metrics until the returned
// function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger log.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", log.Err(err))
		}
	}()
	logger.Info("serving metrics", log.Stringer("addr", ln.Addr()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
