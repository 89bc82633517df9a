package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/finalkey/internal/audit"
	"github.com/remiblancher/finalkey/internal/cli"
	"github.com/remiblancher/finalkey/pkg/native"
)

func newPKCS11Cmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkcs11",
		Short: "PKCS#11 module diagnostics",
		Long: `Diagnostic commands for PKCS#11 modules, the hardware-backed
alternative to the native library.

Examples:
  finalkey pkcs11 check --lib /usr/lib/softhsm/libsofthsm2.so`,
	}
	cmd.AddCommand(newPKCS11CheckCmd(g))
	return cmd
}

func newPKCS11CheckCmd(g *globalOptions) *cobra.Command {
	var (
		lib    string
		format string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a PKCS#11 module can be loaded",
		Long: `Load a PKCS#11 module, initialize Cryptoki and print the module
information. Requires a CGO build.

Examples:
  finalkey pkcs11 check --lib /usr/lib/softhsm/libsofthsm2.so
  finalkey pkcs11 check --config ./finalkey.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}

			loader := g.cfg.PKCS11Loader()
			if lib != "" {
				loader = &native.PKCS11Loader{ModulePath: lib}
			}
			if loader == nil {
				return fmt.Errorf("--lib is required (or set pkcs11.lib in %s)", configName(g))
			}

			a := newAvailability(loader, audit.EventPKCS11Load)
			return report(cmd.OutOrStdout(), a, f, strict)
		},
	}

	cmd.Flags().StringVar(&lib, "lib", "", "Path to PKCS#11 library")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, yaml, cbor")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when the module is unavailable")

	return cmd
}

func configName(g *globalOptions) string {
	if g.configPath != "" {
		return g.configPath
	}
	return "the configuration file (--config)"
}
