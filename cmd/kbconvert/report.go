// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kbconvert/internal/ledger"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Show recorded runs and their unresolved citations",
	Long: `Report reads the ledger. Without arguments it shows the latest run: its
documents and every unresolved citation key with the documents that cite
it. Use --list to see recent runs, and --format yaml or json to export a run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	var runID int64
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		runID = id
	}
	list, _ := cmd.Flags().GetInt("list")
	format, _ := cmd.Flags().GetString("format")

	l, err := ledger.Open(loadRunConfig().Ledger)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if list > 0 {
		runs, err := l.Runs(ctx, list)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%4d  %s  %-7s documents: %d, failed: %d, unresolved: %d\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Command, r.Documents, r.Failed, r.Unresolved)
		}
		return nil
	}

	switch format {
	case "yaml":
		return l.ExportYAML(ctx, out, runID)
	case "json":
		return exportJSON(ctx, l, out, runID)
	case "text":
		return printRun(ctx, l, out, runID)
	default:
		return fmt.Errorf("unsupported format %q (use text, yaml or json)", format)
	}
}

func exportJSON(ctx context.Context, l *ledger.Ledger, w io.Writer, runID int64) error {
	run, err := l.Run(ctx, runID)
	if err != nil {
		return err
	}
	unresolved, err := l.Unresolved(ctx, run.ID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ledger.Export{Run: run, Unresolved: unresolved})
}

func printRun(ctx context.Context, l *ledger.Ledger, w io.Writer, runID int64) error {
	run, err := l.Run(ctx, runID)
	if err != nil {
		return err
	}
	unresolved, err := l.Unresolved(ctx, run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "run %d: %s at %s", run.ID, run.Command, run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Mode != "" {
		fmt.Fprintf(w, " (mode %s)", run.Mode)
	}
	fmt.Fprintln(w)
	for _, d := range run.Documents {
		if d.Error != "" {
			fmt.Fprintf(w, "  failed  %s: %s\n", d.Path, d.Error)
			continue
		}
		fmt.Fprintf(w, "  ok      %s: %d resolved, %d unresolved, %d warnings\n",
			d.Path, len(d.Resolved), len(d.Unresolved), len(d.Warnings))
	}

	if len(unresolved) == 0 {
		fmt.Fprintln(w, "\nno unresolved citations")
		return nil
	}
	fmt.Fprintf(w, "\nunresolved citations (%d keys):\n", len(unresolved))
	for _, u := range unresolved {
		fmt.Fprintf(w, "  @%s  x%d  %s\n", u.Key, u.Occurrences, strings.Join(u.Documents, ", "))
	}
	return nil
}

func init() {
	reportCmd.Flags().Int("list", 0, "list the N most recent runs")
	reportCmd.Flags().String("format", "text", "output format: text, yaml or json")

	rootCmd.AddCommand(reportCmd)
}
