package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/dualai/internal/mcpserver"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/mark3labs/dualai/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	http string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose sessions as MCP tools",
	Long: `Expose sessions as MCP tools: negotiate, sessions and session.

By default the server speaks MCP over stdio. With --http it serves streamable
HTTP on /mcp and Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.http, "http", "", "Serve over HTTP on this address (e.g. 127.0.0.1:8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, err := startOrchestrator(ctx, cfg.Persist)
	if err != nil {
		return err
	}
	defer stopOrchestrator(o)

	srv, err := mcpserver.New(mcpserver.Config{
		Name:    "dualai",
		Version: version,
		Negotiate: func(ctx context.Context, p mcpserver.NegotiateParams) (*negotiation.Result, error) {
			out, err := o.Run(ctx, p.Request, orchestrator.RunOptions{Rounds: p.Rounds, Implementer: p.Implementer})
			if err != nil {
				return nil, err
			}
			return out.Result, nil
		},
		Store:    o.Store(),
		Gatherer: prometheus.DefaultGatherer,
	})
	if err != nil {
		return err
	}

	if serveFlags.http == "" {
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}

	if _, err := srv.Start(ctx, serveFlags.http); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "MCP server listening on %s\n", srv.URL())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
