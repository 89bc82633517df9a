// Command finalkey checks whether the native final-key library can be
// loaded, and serves that status over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/finalkey/internal/audit"
	"github.com/remiblancher/finalkey/internal/config"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = audit.Close()
		os.Exit(1)
	}
}

// globalOptions holds persistent flags and the configuration they load.
type globalOptions struct {
	configPath string
	auditLog   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "finalkey",
		Short: "Check the native final-key library",
		Long: `finalkey reports whether the optional native key-transform library
("final-key") can be loaded by this host, and why not when it cannot.

The library is resolved with the platform naming convention
(libfinal-key.so, libfinal-key.dylib, final-key.dll), first in the
configured search paths, then in the platform's standard search path.

Examples:
  # Check the library with the default search path
  finalkey check

  # Check a specific build and require an exported symbol
  finalkey check --lib /opt/finalkey/lib/libfinal-key.so --symbol final_key_transform

  # Probe a PKCS#11 module
  finalkey pkcs11 check --lib /usr/lib/softhsm/libsofthsm2.so

  # Serve the status over HTTP
  finalkey serve --port 8080`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.auditLog != "" {
				cfg.Audit.Log = opts.auditLog
			}
			opts.cfg = cfg

			if cfg.Audit.Log != "" {
				if err := audit.InitFile(cfg.Audit.Log); err != nil {
					return fmt.Errorf("failed to initialize audit log: %w", err)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return audit.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.auditLog, "audit-log", "",
		"Path to audit log file (or set "+config.EnvAuditLog+" env var)")

	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newPKCS11Cmd(opts))
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}
