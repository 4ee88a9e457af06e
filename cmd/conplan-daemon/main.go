// Command conplan-daemon exposes the scheduling engine over HTTP: a
// POST /v1/schedule endpoint that accepts a run bundle and returns the
// computed schedule as JSON, plus a GET /healthz health check.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conplan/scheduler/internal/httpapi"
	"github.com/conplan/scheduler/pkg/logger"
)

func main() {
	var (
		listenAddr = flag.String("listen", ":8090", "address to listen on")
		logLevel   = flag.String("log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")
	)
	flag.Parse()

	log := logger.NewDefaultLogger("conplan-daemon", *logLevel)

	server := httpapi.NewServer(log)
	httpServer := &http.Server{
		Addr:         *listenAddr,
		Handler:      server.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("daemon listening", "addr", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("daemon stopped unexpectedly", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	_ = httpServer.Close()
}
