package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/finalkey/internal/audit"
	"github.com/remiblancher/finalkey/internal/cli"
	"github.com/remiblancher/finalkey/pkg/native"
)

type checkOptions struct {
	lib         string
	searchPaths []string
	symbols     []string
	format      string
	strict      bool
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	o := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether the native library can be loaded",
		Long: `Attempt to load the native library once and print the outcome.

A missing or incompatible library is reported, not treated as an error,
unless --strict is given.

Examples:
  finalkey check
  finalkey check --search-path /opt/finalkey/lib --format json
  finalkey check --strict || echo "falling back to the Go transform"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(o.format)
			if err != nil {
				return err
			}

			loader := g.cfg.Loader()
			if cmd.Flags().Changed("lib") {
				loader.Name = o.lib
			}
			if cmd.Flags().Changed("search-path") {
				loader.SearchPaths = o.searchPaths
			}
			if cmd.Flags().Changed("symbol") {
				loader.Symbols = o.symbols
			}

			a := newAvailability(loader, audit.EventNativeLoad)
			return report(cmd.OutOrStdout(), a, format, o.strict)
		},
	}

	cmd.Flags().StringVar(&o.lib, "lib", "", "Library name or path (default: final-key)")
	cmd.Flags().StringSliceVar(&o.searchPaths, "search-path", nil, "Directory to search before the system path (repeatable)")
	cmd.Flags().StringSliceVar(&o.symbols, "symbol", nil, "Symbol the library must export (repeatable)")
	cmd.Flags().StringVar(&o.format, "format", "text", "Output format: text, json, yaml, cbor")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Exit with an error when the library is unavailable")

	return cmd
}

// newAvailability wraps loader so that its single load attempt is
// recorded in the audit log.
func newAvailability(loader native.Loader, eventType audit.EventType, opts ...native.Option) *native.Availability {
	opts = append([]native.Option{native.WithObserver(func(s native.Status) {
		if err := audit.LogLoad(eventType, s); err != nil {
			log.Printf("WARNING: %v", err)
		}
	})}, opts...)
	return native.NewAvailability(loader, opts...)
}

// logLoad writes the outcome of a load attempt to the technical log.
func logLoad(s native.Status) {
	if s.Available {
		log.Printf("%s loaded from %s", s.Library, s.Path)
		return
	}
	log.Printf("%s unavailable: %s", s.Library, s.Reason)
}

// report runs the check, prints the status and, in strict mode, returns
// the load failure.
func report(w io.Writer, a *native.Availability, format cli.Format, strict bool) error {
	available := a.Available()
	if err := cli.Render(w, a.Status(), format, useColor(w)); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	if strict && !available {
		return a.Err()
	}
	return nil
}

// useColor reports whether w is an interactive terminal.
func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
