// Hirevox interview server - mints short-lived realtime credentials for
// browser clients and streams live interview frames to dashboards.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/hirevox/hirevox/internal/config"
	"github.com/hirevox/hirevox/internal/log"
	"github.com/hirevox/hirevox/pkg/web"
)

func main() {
	port := flag.String("port", config.Port(), "HTTP listen port")
	model := flag.String("model", "", "Realtime model for minted sessions")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	server := web.NewServer(web.Config{
		Port:   *port,
		APIKey: config.OpenAIKey(),
		Model:  *model,
		Logger: log.L(),
	})
	server.StartAsync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
