// Command server runs the chat service: a TCP listener speaking the JSON
// stream protocol, and optionally a WebSocket gateway onto the same engine.
package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"streamchat/internal/logging"
	"streamchat/internal/server"
)

func main() {
	cfg := server.NewConfigFromEnv()

	var quiet bool
	flag.StringVarP(&cfg.Host, "host", "H", cfg.Host, "Address to listen on")
	flag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "TCP port to listen on")
	flag.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "WebSocket gateway address (empty disables it)")
	flag.StringSliceVar(&cfg.AllowedOrigins, "origin", cfg.AllowedOrigins, "Allowed WebSocket origins (repeatable, empty allows all)")
	flag.BoolVarP(&quiet, "quiet", "q", false, "Log errors only")
	flag.Parse()

	level := logging.LevelInfo
	if quiet {
		level = logging.LevelError
	}
	log := logging.New(level)

	log.Info("Booting up this bad boy.")

	engine := server.NewEngine(cfg, log)
	go engine.Run()

	srv := server.NewServer(cfg, engine, log)
	if err := srv.Start(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Success("Listening on %s!", srv.Addr())

	var gatewaySrv *http.Server
	if cfg.HTTPAddr != "" {
		gateway := server.NewGateway(engine, cfg, log)
		gatewaySrv = server.NewHTTPServer(cfg.HTTPAddr, gateway.Routes())
		go func() {
			if err := gatewaySrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("gateway: %v", err)
			}
		}()
		log.Success("WebSocket gateway on %s", cfg.HTTPAddr)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down.")
	if err := srv.Shutdown(); err != nil {
		log.Error("shutdown: %v", err)
	}
	if gatewaySrv != nil {
		if err := server.ShutdownHTTPServer(gatewaySrv, 5*time.Second); err != nil {
			log.Error("gateway shutdown: %v", err)
		}
	}
	engine.Stop()
}
