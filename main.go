package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/curvy/server/game"
	"github.com/curvy/server/server"
	"github.com/curvy/server/utils"
)

func main() {
	cfg, err := utils.Load(os.Getenv("CURVY_CONFIG"))
	if err != nil {
		panic(err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rooms := game.NewRoomsController(cfg.Game, logger)

	srv := server.New(cfg, logger, func(client *server.Client) {
		rooms.Attach(client)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
