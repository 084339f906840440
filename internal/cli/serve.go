package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/harun/vtool/pkg/gateway"
	"github.com/spf13/cobra"
)

var (
	serveHost       string
	servePort       int
	serveAskTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve POST /api/v1/ask together with tool discovery and virtual tool
listing. The virtual tool store is shared by every request until the process
exits.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().DurationVar(&serveAskTimeout, "ask-timeout", 2*time.Minute, "upper bound for one ask")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer rt.Close()

	host, port := rt.cfg.Server.Host, rt.cfg.Server.Port
	if serveHost != "" {
		host = serveHost
	}
	if servePort != 0 {
		port = servePort
	}

	zl := rt.log.GetZerolog()
	srv, err := gateway.NewServer(gateway.Config{
		Host:              host,
		Port:              port,
		Asker:             rt.orchestrator,
		Catalog:           rt.catalog,
		Store:             rt.store,
		RequestsPerMinute: rt.cfg.Server.RequestsPerMinute,
		MaxConcurrent:     rt.cfg.Server.MaxConcurrent,
		AskTimeout:        serveAskTimeout,
		Logger:            zl,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
