package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/remiblancher/finalkey/internal/api/router"
	"github.com/remiblancher/finalkey/internal/api/server"
	"github.com/remiblancher/finalkey/internal/audit"
	"github.com/remiblancher/finalkey/pkg/native"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		host     string
		port     int
		maxConns int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve library availability over HTTP",
		Long: `Start the status API.

Endpoints:
  GET /health          liveness
  GET /ready           200 when the native library is available, 503 otherwise
  GET /api/v1/native   availability of the native library
  GET /api/v1/pkcs11   availability of the configured PKCS#11 module

Environment variables:
  FINALKEY_PORT          Port to listen on
  FINALKEY_LIBRARY       Library name or path
  FINALKEY_LIBRARY_PATH  Extra search directories (OS path list)

Examples:
  finalkey serve --port 8080
  finalkey serve --config ./finalkey.yaml --max-conns 64`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			if err := cfg.ApplyServerEnv(os.Getenv); err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("max-conns") {
				cfg.Server.MaxConns = maxConns
			}
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			lib := newAvailability(cfg.Loader(), audit.EventNativeLoad, native.WithObserver(logLoad))
			var p11 *native.Availability
			if loader := cfg.PKCS11Loader(); loader != nil {
				p11 = newAvailability(loader, audit.EventPKCS11Load, native.WithObserver(logLoad))
			}

			// Load eagerly so the first request does not pay for it.
			lib.Available()
			if p11 != nil {
				p11.Available()
			}

			srvCfg := server.DefaultConfig()
			srvCfg.Host = cfg.Server.Host
			srvCfg.Port = cfg.Server.Port
			srvCfg.MaxConns = cfg.Server.MaxConns
			if cfg.Server.ShutdownTimeout > 0 {
				srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
			}

			handler := router.New(&router.Config{
				Version: version,
				Native:  lib,
				PKCS11:  p11,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, "finalkey status server")
			fmt.Fprintln(out, "======================")
			fmt.Fprintf(out, "  Version:  %s\n", version)
			fmt.Fprintf(out, "  Address:  http://%s\n", srvCfg.Address())
			fmt.Fprintf(out, "  Library:  %s (%s)\n", cfg.Library.Name, availabilityWord(lib))
			if p11 != nil {
				fmt.Fprintf(out, "  PKCS#11:  %s (%s)\n", cfg.PKCS11.Lib, availabilityWord(p11))
			}
			fmt.Fprintln(out)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(srvCfg, handler).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (default: all interfaces)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: 8080)")
	cmd.Flags().IntVar(&maxConns, "max-conns", 0, "Maximum concurrent connections (0 = unlimited)")

	return cmd
}

func availabilityWord(a *native.Availability) string {
	if a.Available() {
		return "available"
	}
	return "unavailable"
}
