package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"duosiege/internal/api"
	"duosiege/internal/config"
	"duosiege/internal/credential"
	"duosiege/internal/game"
	"duosiege/internal/session"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// No .env is fine; environment variables alone are sufficient.
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	appConfig := config.Load()
	log.Info("config loaded",
		zap.Int("tick_rate", appConfig.Sim.TickRate),
		zap.Int("lobby_count", appConfig.Sim.LobbyCount),
		zap.Int("port", appConfig.Server.Port),
	)

	creds := credential.NewStore(appConfig.Credential.TokenTTL)
	hub := session.NewHub()
	live := session.NewLiveConnections()
	registry := game.NewLobbyRegistry(appConfig.Sim.LobbyCount, hub, log)
	gateway := api.NewWebSocketGateway(creds, registry, hub, live, log)

	router := api.NewRouter(api.RouterConfig{
		Creds:   creds,
		Gateway: gateway,
	})

	api.StartDebugServer(log, appConfig.Observability.Enabled, appConfig.Observability.DebugPort)

	addr := ":" + strconv.Itoa(appConfig.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
