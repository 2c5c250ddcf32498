package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/experiment"
	"github.com/san-kum/legsim/internal/logging"
	"github.com/san-kum/legsim/internal/optim"
	"github.com/san-kum/legsim/internal/storage"
	"github.com/san-kum/legsim/internal/viz"
)

var (
	dataDir    string
	debug      bool
	configFile string
	preset     string
	dt         float64
	duration   float64
	integrator string
	controller string
	contactKp  float64
	contactKd  float64
	policy     string
	jointKp    float64
	jointKd    float64
	height     float64
	noSave     bool
	speed      float64
	plotVars   []string
	sweepArgs  []string
	metricName string
	parallel   int
	benchDts   []float64

	logger logging.Logger = logging.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "legsim",
		Short: "floating-base robot simulation with ground contact",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logger = logging.NewDebugLogger("legsim")
			} else {
				logger = logging.NewLogger("legsim")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunPicker(logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".legsim", "data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation and save it",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run a simulation with live visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().Float64Var(&speed, "speed", 1, "simulated seconds per second")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot columns of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotVars, "vars", []string{"z", "f0z"}, "columns to plot")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "grid search parameters for the lowest metric",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepArgs, "param", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "energy_drift", "metric to minimise")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (0 = GOMAXPROCS)")

	benchCmd := &cobra.Command{
		Use:   "bench [model]",
		Short: "benchmark step throughput",
		Args:  cobra.ExactArgs(1),
		RunE:  benchModel,
	}
	addConfigFlags(benchCmd)
	benchCmd.Flags().Float64SliceVar(&benchDts, "dts", []float64{0.0001, 0.0002, 0.0005}, "timesteps")

	compareCmd := &cobra.Command{
		Use:   "compare [model] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same scenario",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addConfigFlags(compareCmd)

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd,
		presetsCmd, sweepCmd, benchCmd, compareCmd)
	rootCmd.AddCommand(analysisCommands()...)

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration")
	f.StringVar(&integrator, "integrator", "semi_implicit", "integrator (semi_implicit, explicit)")
	f.StringVar(&controller, "controller", "pd", "controller (none, pd)")
	f.Float64Var(&contactKp, "contact-kp", config.DefaultContactKp, "ground stiffness")
	f.Float64Var(&contactKd, "contact-kd", config.DefaultContactKd, "ground damping")
	f.StringVar(&policy, "policy", "accumulate", "contact policy (accumulate, first)")
	f.Float64Var(&jointKp, "kp", config.DefaultJointKp, "joint pd kp")
	f.Float64Var(&jointKd, "kd", config.DefaultJointKd, "joint pd kd")
	f.Float64Var(&height, "height", 0, "initial base height")
}

// buildConfig layers the preset, then the config file, then any flags set
// on the command line.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.ForModel(model)
	if preset != "" {
		cfg = config.GetPreset(model, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, err
		}
		cfg.Model = model
	}

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("controller") {
		cfg.Controller = controller
	}
	if f.Changed("contact-kp") {
		cfg.Contact.Kp = contactKp
	}
	if f.Changed("contact-kd") {
		cfg.Contact.Kd = contactKd
	}
	if f.Changed("policy") {
		cfg.Contact.Policy = policy
	}
	if f.Changed("kp") {
		cfg.ControllerParams.Kp = jointKp
	}
	if f.Changed("kd") {
		cfg.ControllerParams.Kd = jointKd
	}
	if f.Changed("height") {
		cfg.InitState.Position[2] = height
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, metrics[name])
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, logger.Named("experiment"))
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s simulation...\n", cfg.Model)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.RunMetadata{
			Model:      cfg.Model,
			Preset:     preset,
			Dt:         cfg.Dt,
			Duration:   cfg.Duration,
			Integrator: cfg.Integrator,
			Controller: cfg.Controller,
			ContactKp:  cfg.Contact.Kp,
			ContactKd:  cfg.Contact.Kd,
		}, result)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	// the terminal belongs to the view; keep the simulator quiet
	exp := experiment.New(cfg, logging.NewNop())
	if err := exp.Setup(); err != nil {
		return err
	}
	rt, err := exp.Realtime()
	if err != nil {
		return err
	}
	rt.Speed = speed
	display, err := exp.DisplayModel()
	if err != nil {
		return err
	}

	title := cfg.Model
	if preset != "" {
		title += "/" + preset
	}
	live := viz.NewLive(title, rt, display, exp.Simulator().Scene(), exp.InitialState(), cfg.Duration)

	ctx, cancel := signalContext()
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	err = viz.RunLive(live)
	cancel()
	if runErr := <-done; runErr != nil {
		logger.Warnw("simulation stopped", "error", runErr)
	}
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tPRESET\tTIME\tDURATION\tDT\tINTEG\tCTRL\tSTEPS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%d\n",
			run.ID,
			run.Model,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Controller,
			run.Steps,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	header, rows, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(rows))

	for _, name := range plotVars {
		idx, ok := col[name]
		if !ok {
			fmt.Printf("no column %q (have %s)\n\n", name, strings.Join(header, ", "))
			continue
		}
		data := make([]float64, len(rows))
		for i, row := range rows {
			data[i] = row[idx]
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		))
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, result)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, result)
}

func listPresets(cmd *cobra.Command, args []string) error {
	models := experiment.NewRegistry().ListModels()
	if len(args) == 1 {
		models = args
	}
	for _, m := range models {
		presets := config.ListPresets(m)
		if len(presets) == 0 {
			fmt.Printf("no presets for model: %s\n", m)
			continue
		}
		sort.Strings(presets)
		fmt.Printf("presets for %s:\n", m)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func parseSweepParam(arg string) (string, []float64, error) {
	name, list, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("param %q: want name=v1,v2,...", arg)
	}
	var values []float64
	for _, s := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return "", nil, fmt.Errorf("param %q: %w", arg, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if len(sweepArgs) == 0 {
		return fmt.Errorf("no --param given")
	}

	names := make([]string, 0, len(sweepArgs))
	ranges := make([][]float64, 0, len(sweepArgs))
	for _, a := range sweepArgs {
		name, values, err := parseSweepParam(a)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	g := optim.NewGridSearch(names, ranges)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("sweeping %d configurations of %s for lowest %s...\n", g.Size(), base.Model, metricName)
	start := time.Now()
	res, err := g.Search(ctx, optim.Builder(func() *config.Config {
		c := *base
		c.InitState.Joints = append([]float64(nil), base.InitState.Joints...)
		c.ControllerParams.Target = append([]float64(nil), base.ControllerParams.Target...)
		return &c
	}), metricName)
	if res == nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(names, "\t")+"\t"+metricName)
	for _, p := range res.Points {
		for _, n := range names {
			fmt.Fprintf(w, "%g\t", p.Params[n])
		}
		if p.Err != nil {
			fmt.Fprintf(w, "error: %v\n", p.Err)
		} else {
			fmt.Fprintf(w, "%.6g\n", p.Value)
		}
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nbest (%.6g) in %v:\n", res.BestValue, time.Since(start))
	for _, n := range names {
		fmt.Printf("  %s = %g\n", n, res.Best[n])
	}
	return nil
}

func benchModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s (%.1fs simulated)\n\n", cfg.Model, cfg.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tTIME\tSTEPS/SEC\tREALTIME")

	for _, step := range benchDts {
		c := *cfg
		c.Dt = step
		exp := experiment.New(&c, nil)
		if err := exp.Setup(); err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%.5fs\t%d\t%v\t%.0f\t%.1fx\n",
			step, result.StepsTaken, elapsed.Round(time.Millisecond),
			float64(result.StepsTaken)/elapsed.Seconds(), c.Duration/elapsed.Seconds())
	}
	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators for %s (dt=%.5f, duration=%.1fs)\n\n", cfg.Model, cfg.Dt, cfg.Duration)
	fmt.Printf("%-14s  %-12s  %-12s  %-12s\n", "integrator", "final_z", "energy_drift", "time_ms")
	fmt.Println(strings.Repeat("-", 56))

	for _, name := range args[1:] {
		c := *cfg
		c.Integrator = name
		exp := experiment.New(&c, nil)
		if err := exp.Setup(); err != nil {
			fmt.Printf("%-14s  error: %v\n", name, err)
			continue
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-14s  error: %v\n", name, err)
			continue
		}

		finalZ := result.States[len(result.States)-1].BodyPosition[2]
		fmt.Printf("%-14s  %12.6f  %12.2e  %12.2f\n", name, finalZ, result.EnergyDrift, float64(elapsed.Microseconds())/1000)
	}
	return nil
}
