package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/fit"
	"github.com/plantabyte/hillclimbfit/internal/opt"
	"github.com/plantabyte/hillclimbfit/internal/plot"
	"github.com/plantabyte/hillclimbfit/internal/report"
	"github.com/plantabyte/hillclimbfit/internal/store"
)

var (
	configPath string
	plotPath   string
	saveRun    bool
	runDataDir string

	trueParams     []float64
	initialParams  []float64
	xMin, xMax     float64
	points         int
	noiseSigma     float64
	seed           uint64
	methods        []string
	precision      float64
	iterationLimit int
	mayflyIters    int
	mayflyPop      int
	mayflyBound    float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate noisy samples and compare the fitting methods",
	Long: `Generates samples of a cubic with Gaussian noise, fits them with every
selected method and prints the fitted parameters and their errors against the
true coefficients. Flags override values from --config.`,
	Args: cobra.NoArgs,
	RunE: runComparison,
}

func init() {
	def := config.Default()

	f := runCmd.Flags()
	f.StringVar(&configPath, "config", "", "Scenario file (YAML, or JSON for .json)")
	f.StringVar(&plotPath, "plot", "", "Write the overlay plot here (.png, .svg, .pdf)")
	f.BoolVar(&saveRun, "save", false, "Persist the run and its hill-climb trace")
	f.StringVar(&runDataDir, "data-dir", "./data", "Base directory for saved runs")

	f.Float64SliceVar(&trueParams, "true-params", def.TrueParams, "True cubic coefficients, highest power first")
	f.Float64SliceVar(&initialParams, "initial-params", def.InitialParams, "Starting guess for every fitter")
	f.Float64Var(&xMin, "x-min", def.XMin, "Lowest sample x")
	f.Float64Var(&xMax, "x-max", def.XMax, "Highest sample x")
	f.IntVar(&points, "points", def.Points, "Number of evenly spaced samples")
	f.Float64Var(&noiseSigma, "noise", def.NoiseSigma, "Standard deviation of the Gaussian noise")
	f.Uint64Var(&seed, "seed", def.Seed, "Random seed")
	f.StringSliceVar(&methods, "methods", def.Methods, fmt.Sprintf("Fitting methods %v", config.Methods))
	f.Float64Var(&precision, "precision", def.HillClimb.Precision, "Hill-climb precision")
	f.IntVar(&iterationLimit, "iteration-limit", def.HillClimb.IterationLimit, "Hill-climb iteration limit")
	f.IntVar(&mayflyIters, "mayfly-iters", def.Mayfly.Iterations, "Mayfly iterations")
	f.IntVar(&mayflyPop, "mayfly-pop", def.Mayfly.Population, "Mayfly population size")
	f.Float64Var(&mayflyBound, "mayfly-bound", def.Mayfly.Bound, "Mayfly search radius around the initial guess")

	rootCmd.AddCommand(runCmd)
}

// scenarioFromFlags loads --config (or the defaults) and applies every flag
// the user set explicitly.
func scenarioFromFlags(cmd *cobra.Command) (config.Scenario, error) {
	sc := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return sc, err
		}
		sc = loaded
	}

	changed := cmd.Flags().Changed
	if changed("true-params") {
		sc.TrueParams = trueParams
	}
	if changed("initial-params") {
		sc.InitialParams = initialParams
	}
	if changed("x-min") {
		sc.XMin = xMin
	}
	if changed("x-max") {
		sc.XMax = xMax
	}
	if changed("points") {
		sc.Points = points
	}
	if changed("noise") {
		sc.NoiseSigma = noiseSigma
	}
	if changed("seed") {
		sc.Seed = seed
	}
	if changed("methods") {
		sc.Methods = methods
	}
	if changed("precision") {
		sc.HillClimb.Precision = precision
	}
	if changed("iteration-limit") {
		sc.HillClimb.IterationLimit = iterationLimit
	}
	if changed("mayfly-iters") {
		sc.Mayfly.Iterations = mayflyIters
	}
	if changed("mayfly-pop") {
		sc.Mayfly.Population = mayflyPop
	}
	if changed("mayfly-bound") {
		sc.Mayfly.Bound = mayflyBound
	}

	return sc, sc.Validate()
}

func runComparison(cmd *cobra.Command, args []string) (err error) {
	sc, err := scenarioFromFlags(cmd)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	slog.Info("Starting comparison", "run_id", runID, "methods", sc.Methods, "points", sc.Points, "seed", sc.Seed)

	var (
		st       *store.FSStore
		tw       *store.TraceWriter
		progress opt.ProgressFunc
	)
	if saveRun {
		st, err = store.NewFSStore(runDataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		tw, err = st.TraceWriter(runID, false)
		if err != nil {
			return err
		}
		defer func() {
			tw.Close()
			if err != nil {
				discardRun(st, runID)
			}
		}()
		progress = tw.Recorder(config.MethodHillClimb, true)
	}

	start := time.Now()
	cmp, err := fit.Compare(cmd.Context(), sc, progress)
	if err != nil {
		return err
	}
	slog.Info("Comparison complete", "run_id", runID, "elapsed", time.Since(start))

	if err := report.Write(cmd.OutOrStdout(), cmp); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if plotPath != "" {
		if err := plot.Save(cmp, plotPath); err != nil {
			return err
		}
		slog.Info("Wrote plot", "path", plotPath)
	}

	if st != nil {
		if err := tw.Close(); err != nil {
			return err
		}
		if err := tw.Err(); err != nil {
			return fmt.Errorf("failed to record trace: %w", err)
		}
		if err := st.SaveRun(store.NewRun(runID, cmp)); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		slog.Info("Saved run", "run_id", runID, "dir", runDataDir)
	}

	return nil
}

// discardRun removes the trace of a run that was never saved
func discardRun(st *store.FSStore, runID string) {
	if err := st.DeleteRun(runID); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("Failed to remove partial run", "run_id", runID, "error", err)
	}
}
