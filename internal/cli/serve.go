package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cojourney/cjagent/internal/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printHeader(cmd.OutOrStdout(), "cjagent gateway")
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := net.JoinHostPort(a.cfg.Gateway.Host, strconv.Itoa(a.cfg.Gateway.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           gateway.NewRouter(a.runtime, a.pool, gateway.AuthConfig{JWTSecret: a.cfg.Gateway.JWTSecret}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Gateway listening", "addr", addr, "agent", a.cfg.Agent.Name)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
