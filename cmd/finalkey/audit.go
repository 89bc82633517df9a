package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/finalkey/internal/audit"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit log management",
		Long: `Commands for verifying and reading the audit log.

Every load attempt is recorded as one event. Events are chained with
SHA-256 hashes, so edits, deletions and insertions are detected.

Examples:
  finalkey audit verify --log /var/log/finalkey/audit.jsonl
  finalkey audit tail --log /var/log/finalkey/audit.jsonl -n 10`,
	}
	cmd.AddCommand(newAuditVerifyCmd())
	cmd.AddCommand(newAuditTailCmd())
	return cmd
}

func newAuditVerifyCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify audit log integrity",
		Long: `Verify the hash chain of an audit log file.

The chain starts with hash_prev="sha256:genesis" for the first event.
A broken chain is reported with the position of the first bad event.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Verifying audit log: %s\n\n", logFile)

			count, err := audit.VerifyChain(logFile)
			if err != nil {
				fmt.Fprintf(out, "VERIFICATION FAILED\n")
				fmt.Fprintf(out, "  Valid events: %d\n", count)
				fmt.Fprintf(out, "  Error: %s\n", err)
				return fmt.Errorf("audit log verification failed: %w", err)
			}

			fmt.Fprintf(out, "VERIFICATION PASSED\n")
			fmt.Fprintf(out, "  Total events: %d\n", count)
			fmt.Fprintf(out, "  Hash chain: VALID\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log", "", "Path to audit log file (required)")
	_ = cmd.MarkFlagRequired("log")
	return cmd
}

func newAuditTailCmd() *cobra.Command {
	var (
		logFile  string
		num      int
		showJSON bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(logFile)
			if err != nil {
				return fmt.Errorf("failed to read audit log: %w", err)
			}

			lines, err := audit.ReadLines(data)
			if err != nil {
				return fmt.Errorf("failed to read audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(lines) == 0 {
				fmt.Fprintln(out, "Audit log is empty")
				return nil
			}
			if num > 0 && len(lines) > num {
				lines = lines[len(lines)-num:]
			}

			if showJSON {
				fmt.Fprintf(out, "[\n%s\n]\n", strings.Join(lines, ",\n"))
				return nil
			}

			for _, line := range lines {
				var event audit.Event
				if err := json.Unmarshal([]byte(line), &event); err != nil {
					fmt.Fprintf(out, "  [ERROR] %s\n", err)
					continue
				}
				printEvent(out, &event)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log", "", "Path to audit log file (required)")
	_ = cmd.MarkFlagRequired("log")
	cmd.Flags().IntVarP(&num, "num", "n", 10, "Number of events to show")
	cmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	return cmd
}

func printEvent(w io.Writer, e *audit.Event) {
	resultIcon := "✓"
	if e.Result == audit.ResultFailure {
		resultIcon = "✗"
	}

	fmt.Fprintf(w, "[%s] %s %s\n", e.Timestamp, resultIcon, e.EventType)
	fmt.Fprintf(w, "    Actor:  %s@%s pid=%d\n", e.Actor.ID, e.Actor.Host, e.Actor.PID)

	if e.Object.Type != "" {
		fmt.Fprintf(w, "    Object: %s", e.Object.Type)
		if e.Object.Name != "" {
			fmt.Fprintf(w, " name=%s", e.Object.Name)
		}
		if e.Object.Path != "" {
			fmt.Fprintf(w, " path=%s", e.Object.Path)
		}
		fmt.Fprintln(w)
	}

	if e.Context.Platform != "" || e.Context.Reason != "" {
		fmt.Fprint(w, "    Context:")
		if e.Context.Platform != "" {
			fmt.Fprintf(w, " platform=%s", e.Context.Platform)
		}
		if e.Context.Reason != "" {
			fmt.Fprintf(w, " reason=%s", e.Context.Reason)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
}
