package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/travelog-backend/internal/app"
	"github.com/yungbote/travelog-backend/internal/platform/shutdown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		a.Log.Error("Background start failed", "error", err)
		return 1
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(":" + a.Cfg.Port) }()

	select {
	case <-ctx.Done():
		a.Log.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.Log.Error("Server exited", "error", err)
			return 1
		}
	}
	return 0
}
