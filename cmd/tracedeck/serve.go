package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgallion1/tracedeck/internal/api"
	"github.com/dgallion1/tracedeck/internal/pipeline"
	"github.com/dgallion1/tracedeck/internal/stats"
)

func runServe(ctx context.Context, env *cliEnv, args []string) int {
	fs := newFlagSet(env, "serve", "[flags]")
	port := fs.String("port", env.cfg.Port, "listen port")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	format := env.cfg.LogFormat
	if format == "" {
		format = "json"
	}
	log := newLogger(env.stderr, env.cfg.LogLevel, format)

	st := stats.New(time.Hour)
	proc := pipeline.NewProcessor(pipeline.OptionsFromConfig(env.cfg, log, st))
	orch := pipeline.NewOrchestrator(env.cfg, proc, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, st, log, env.cfg)
	httpServer := &http.Server{
		Addr:         ":" + *port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: env.cfg.FileTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting tracedeck", "port", *port, "workers", env.cfg.WorkerCount, "auth", env.cfg.APIKey != "")
		errCh <- httpServer.ListenAndServe()
	}()

	code := 0
	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	orch.Stop()
	return code
}
