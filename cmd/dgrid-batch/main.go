// Copyright 2025 James Ross
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jamesross/dgrid-batch/internal/audit"
	"github.com/jamesross/dgrid-batch/internal/cache"
	"github.com/jamesross/dgrid-batch/internal/config"
	"github.com/jamesross/dgrid-batch/internal/dispatcher"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/eventhooks"
	"github.com/jamesross/dgrid-batch/internal/gridclient"
	"github.com/jamesross/dgrid-batch/internal/obs"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
	"github.com/jamesross/dgrid-batch/internal/primitives"
	"github.com/jamesross/dgrid-batch/internal/schema"
	"github.com/jamesross/dgrid-batch/internal/streamloop"
)

var version = "dev"

func main() {
	var configPath string
	var showVersion bool
	var printACL, printAVU, printContents, printReplicate, printSize, printTimestamp bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&printACL, "A", false, "Include ACLs in every list response by default")
	fs.BoolVar(&printAVU, "a", false, "Include AVUs in every list response by default")
	fs.BoolVar(&printContents, "l", false, "Include collection contents by default")
	fs.BoolVar(&printReplicate, "r", false, "Include replica info by default")
	fs.BoolVar(&printSize, "s", false, "Include size by default")
	fs.BoolVar(&printTimestamp, "t", false, "Include timestamps by default")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tp, err := obs.MaybeInitTracing(cfg)
	if err != nil {
		logger.Warn("tracing init failed", obs.Err(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	env := gridclient.LoadEnvironment(cfg)
	conn, err := gridclient.New(cfg, env)
	if err != nil {
		logger.Fatal("failed to build grid connection", obs.Err(err))
	}

	pathCache := cache.New(cfg)
	defer pathCache.Close()
	resolver := pathresolve.New(conn.Catalog, pathCache)

	validator, err := schema.Load(cfg)
	if err != nil {
		logger.Fatal("failed to load argument schema", obs.Err(err))
	}

	events, err := eventhooks.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init event hooks", obs.Err(err))
	}
	defer events.Close()

	auditSink, err := audit.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init audit sink", obs.Err(err))
	}
	defer auditSink.Close()

	readyCheck := func(c context.Context) error {
		_, err := conn.Handle(c)
		return err
	}
	httpSrv := obs.StartHTTPServer(cfg, readyCheck)
	defer func() { _ = httpSrv.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", obs.String("signal", sig.String()))
		cancel()
		select {
		case sig2 := <-sigCh:
			logger.Warn("second signal received, exiting immediately", obs.String("signal", sig2.String()))
			os.Exit(1)
		case <-time.After(5 * time.Second):
		}
	}()

	defaults := defaultFlags(printACL, printAVU, printContents, printReplicate, printSize, printTimestamp)

	stdout := bufio.NewWriter(os.Stdout)

	loop := &streamloop.Loop{
		Decoder:    envelope.NewDecoder(os.Stdin),
		Encoder:    envelope.NewEncoder(stdout),
		Flush:      stdout.Flush,
		Dispatcher: dispatcher.New(int64(cfg.Grid.BufferSize), stdout),
		Conn:       conn,
		Resolver:   resolver,
		Env:        env,
		Defaults:   defaults,
		Logger:     logger,
		Schema:     validator,
		Events:     events,
		Audit:      auditSink,
	}

	res, err := loop.Run(ctx)
	if flushErr := stdout.Flush(); flushErr != nil {
		logger.Error("final flush failed", obs.Err(flushErr))
	}
	if err != nil {
		logger.Error("stream loop terminated early", obs.Err(err), obs.Int("processed", res.Processed), obs.Int("errored", res.Errored))
		os.Exit(1)
	}
	logger.Info("stream loop finished", obs.Int("processed", res.Processed), obs.Int("errored", res.Errored))
	if res.Errored > 0 {
		os.Exit(1)
	}
}

func defaultFlags(acl, avu, contents, replicate, size, timestamp bool) primitives.FlagSet {
	var fs primitives.FlagSet
	if acl {
		fs = fs.With(primitives.PrintACL)
	}
	if avu {
		fs = fs.With(primitives.PrintAVU)
	}
	if contents {
		fs = fs.With(primitives.PrintContents)
	}
	if replicate {
		fs = fs.With(primitives.PrintReplicate)
	}
	if size {
		fs = fs.With(primitives.PrintSize)
	}
	if timestamp {
		fs = fs.With(primitives.PrintTimestamp)
	}
	return fs
}
