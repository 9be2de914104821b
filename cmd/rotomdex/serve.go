package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/rotomdex/internal/mcp"
	"github.com/kalambet/rotomdex/internal/mockapi"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a local mock lookup backend (foreground)",
	Long: `Run a local mock lookup backend in the foreground.

The mock serves the full backend contract from an embedded dataset with
deterministic scoring, so the client can be exercised without the real
similarity service:

  rotomdex mock --addr 127.0.0.1:8000
  ROTOMDEX_API_BASE_URL=http://127.0.0.1:8000/api/v1 rotomdex scan pikachu.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		return runMockServer(cmd.Context(), addr)
	},
}

func init() {
	mockCmd.Flags().String("addr", "127.0.0.1:8000", "listen address")
}

func runMockServer(ctx context.Context, addr string) error {
	initLogging(os.Getenv("ROTOMDEX_LOG_LEVEL"))

	handler, err := mockapi.NewHandler()
	if err != nil {
		return fmt.Errorf("building mock handler: %w", err)
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "mock backend listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Run the MCP server over stdio.

Exposes identify_pokemon, get_pokemon, and search_pokedex tools plus the
rotomdex://history resource so agents can drive the lookup pipeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		mcpSrv := mcp.NewServer(mcp.Deps{
			Backend: a.client,
			History: a.history,
		})

		stdioSrv := server.NewStdioServer(mcpSrv)
		slog.Info("MCP server started (stdio transport)")
		if err := stdioSrv.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
