// Command flowlined serves streamline generation over websockets.
//
//	flowlined -addr :8080 -config flow.toml
//
// Clients connect to ws://host/ws. With -config the file is watched and
// new connections pick up the latest settings.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/gogpu/flowline"
	"github.com/gogpu/flowline/worker"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		configPath = flag.String("config", "", "config file (.toml or .yaml), watched for changes")
		anyOrigin  = flag.Bool("any-origin", false, "accept cross-origin websocket clients")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	flowline.SetLogger(newLogger(*verbose))

	cfg := flowline.DefaultConfig()
	var watcher *flowline.ConfigWatcher
	if *configPath != "" {
		var err error
		if watcher, err = flowline.WatchConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		defer watcher.Close()
		cfg = watcher.Config()
	}

	ws := worker.NewServer(cfg)
	if watcher != nil {
		watcher.OnChange(ws.SetConfig)
	}
	if *anyOrigin {
		ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	flowline.Logger().Info("flowlined: listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to serve: %v", err)
	}
}

func newLogger(verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
