package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantabyte/hillclimbfit/internal/plot"
	"github.com/plantabyte/hillclimbfit/internal/report"
	"github.com/plantabyte/hillclimbfit/internal/store"
)

// incompleteGrace keeps runs clean away from traces of runs still in progress
const incompleteGrace = time.Hour

var (
	runsDataDir   string
	keepLast      int
	olderThanDays int
	forceClean    bool
	runPlotOut    string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage saved runs",
	Long:  `List, inspect, plot and clean runs saved with "run --save" or "serve --persist".`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	Args:  cobra.NoArgs,
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the report of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var plotRunCmd = &cobra.Command{
	Use:   "plot <run-id>",
	Short: "Plot a saved run",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlotRun,
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old runs",
	Long: `Delete saved runs by retention policy: keep only the newest N runs,
and/or delete runs older than N days.`,
	Args: cobra.NoArgs,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(listRunsCmd, showRunCmd, plotRunCmd, cleanRunsCmd)

	runsCmd.PersistentFlags().StringVar(&runsDataDir, "data-dir", "./data", "Base directory for saved runs")

	plotRunCmd.Flags().StringVar(&runPlotOut, "out", "fit.png", "Output path (.png, .svg, .pdf)")

	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func openRunStore() (*store.FSStore, error) {
	st, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return st, nil
}

func runListRuns(cmd *cobra.Command, args []string) error {
	st, err := openRunStore()
	if err != nil {
		return err
	}
	infos, err := st.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	sortNewestFirst(infos)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTIMESTAMP\tMETHODS\tHC ITERATIONS\tBEST\tSIZE")
	for _, info := range infos {
		size := "unknown"
		if n, err := dirSize(filepath.Join(st.BaseDir(), "runs", info.ID)); err == nil {
			size = formatBytes(n)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s %.6g\t%s\n",
			shortID(info.ID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			strings.Join(info.Methods, ","),
			info.HillClimbIterations,
			info.BestMethod,
			info.BestCost,
			size,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal runs: %d\n", len(infos))
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	st, err := openRunStore()
	if err != nil {
		return err
	}
	run, err := st.LoadRun(args[0])
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), run.Comparison())
}

func runPlotRun(cmd *cobra.Command, args []string) error {
	st, err := openRunStore()
	if err != nil {
		return err
	}
	run, err := st.LoadRun(args[0])
	if err != nil {
		return err
	}
	if err := plot.Save(run.Comparison(), runPlotOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", runPlotOut)
	return nil
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	st, err := openRunStore()
	if err != nil {
		return err
	}
	infos, err := st.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	incomplete, err := st.IncompleteRuns()
	if err != nil {
		return fmt.Errorf("failed to list incomplete runs: %w", err)
	}

	out := cmd.OutOrStdout()
	now := time.Now()
	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays, now)
	stale := selectStaleIncomplete(incomplete, now)
	if len(toDelete) == 0 && len(stale) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) to delete:\n", len(toDelete)+len(stale))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s)\n", shortID(info.ID), info.Timestamp.Format("2006-01-02 15:04:05"))
	}
	for _, info := range stale {
		fmt.Fprintf(out, "  - %s (incomplete, last written %s)\n", shortID(info.ID), info.Timestamp.Format("2006-01-02 15:04:05"))
	}
	toDelete = append(toDelete, stale...)

	if !forceClean && !confirm(cmd.InOrStdin(), out, "\nProceed with deletion? [y/N]: ") {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := st.DeleteRun(info.ID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.ID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted run", "run_id", info.ID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	if failed > 0 {
		return fmt.Errorf("%d run(s) could not be deleted", failed)
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

// selectRunsForDeletion returns the runs older than olderThanDays plus every
// run beyond the keepLast newest, oldest first without duplicates.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int, now time.Time) []store.RunInfo {
	sorted := append([]store.RunInfo(nil), infos...)
	sortNewestFirst(sorted)

	selected := make(map[string]bool)
	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, info := range sorted {
			if info.Timestamp.Before(cutoff) {
				selected[info.ID] = true
			}
		}
	}
	if keepLast > 0 {
		for i := keepLast; i < len(sorted); i++ {
			selected[sorted[i].ID] = true
		}
	}

	var toDelete []store.RunInfo
	for i := len(sorted) - 1; i >= 0; i-- {
		if selected[sorted[i].ID] {
			toDelete = append(toDelete, sorted[i])
		}
	}
	return toDelete
}

// selectStaleIncomplete returns incomplete runs not written to within incompleteGrace
func selectStaleIncomplete(infos []store.RunInfo, now time.Time) []store.RunInfo {
	var stale []store.RunInfo
	for _, info := range infos {
		if now.Sub(info.Timestamp) > incompleteGrace {
			stale = append(stale, info)
		}
	}
	return stale
}

func sortNewestFirst(infos []store.RunInfo) {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// dirSize calculates the total size of a directory
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
