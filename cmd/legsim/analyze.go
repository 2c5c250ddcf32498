package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/legsim/internal/analysis"
	"github.com/san-kum/legsim/internal/automation"
	"github.com/san-kum/legsim/internal/model"
	"github.com/san-kum/legsim/internal/storage"
)

var (
	analyzeVar     string
	loadThreshold  float64
	phaseX, phaseY string
	trials         int
	seed           int64
	posNoise       float64
	angleNoise     float64
	velNoise       float64
)

func analysisCommands() []*cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum and contact schedule of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&analyzeVar, "var", "z", "column to analyse")
	analyzeCmd.Flags().Float64Var(&loadThreshold, "threshold", 1, "normal force counted as contact (N)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of two columns",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePortrait,
	}
	phaseCmd.Flags().StringVar(&phaseX, "x", "z", "horizontal column")
	phaseCmd.Flags().StringVar(&phaseY, "y", "vz", "vertical column")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	mcCmd := &cobra.Command{
		Use:   "montecarlo [model]",
		Short: "run trials from perturbed initial states",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	addConfigFlags(mcCmd)
	mcCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	mcCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	mcCmd.Flags().Float64Var(&posNoise, "pos-noise", 0.02, "position perturbation (m)")
	mcCmd.Flags().Float64Var(&angleNoise, "angle-noise", 0.1, "roll/pitch/yaw perturbation (rad)")
	mcCmd.Flags().Float64Var(&velNoise, "vel-noise", 0.1, "velocity perturbation")
	mcCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent trials (0 = unlimited)")

	return []*cobra.Command{analyzeCmd, phaseCmd, scenarioCmd, mcCmd}
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	header, rows, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	data, err := analysis.Column(header, rows, analyzeVar)
	if err != nil {
		return err
	}
	if len(data) < 4 {
		return fmt.Errorf("run %s has too few samples", meta.ID)
	}

	sampleDt := result.Times[1] - result.Times[0]
	freqs, power := analysis.PowerSpectrum(data, sampleDt)
	fmt.Printf("run: %s (%s, %d samples every %.4gs)\n\n", meta.ID, meta.Model, len(data), sampleDt)
	fmt.Println(asciigraph.Plot(power,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum of %s, 0 to %.1f Hz", analyzeVar, freqs[len(freqs)-1])),
	))
	fmt.Printf("\ndominant frequency: %.3f Hz\n", analysis.DominantFrequency(data, sampleDt))

	if meta.Contacts == 0 {
		return nil
	}
	sched := analysis.Schedule(result.ContactForces, loadThreshold)
	fmt.Println("\ncontacts:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTACT\tDUTY\tTOUCHDOWNS")
	for i, duty := range sched.DutyFactor {
		name := fmt.Sprint(i)
		if meta.Model == "quadruped" && i < len(model.LegNames) {
			name = model.LegNames[i]
		}
		fmt.Fprintf(w, "%s\t%.2f\t%d\n", name, duty, sched.Touchdowns[i])
	}
	return w.Flush()
}

func phasePortrait(cmd *cobra.Command, args []string) error {
	header, rows, _, err := storage.New(dataDir).LoadStates(args[0])
	if err != nil {
		return err
	}
	xs, err := analysis.Column(header, rows, phaseX)
	if err != nil {
		return err
	}
	ys, err := analysis.Column(header, rows, phaseY)
	if err != nil {
		return err
	}
	fmt.Printf("%s against %s\n\n", phaseY, phaseX)
	fmt.Println(analysis.PhasePortraitToASCII(xs, ys, 72, 24))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, runErr := automation.RunScenario(ctx, sc, logger)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	for i, result := range results {
		step := sc.Steps[i]
		fmt.Printf("\nstep %d: %s %s (%d steps)\n", i+1, step.Model, step.Preset, result.StepsTaken)
		printMetrics(result.Metrics)
		if step.SaveAs == "" {
			continue
		}
		cfg, err := step.Config()
		if err != nil {
			return err
		}
		id, err := st.Save(storage.RunMetadata{
			Model:      cfg.Model,
			Preset:     step.SaveAs,
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
		fmt.Printf("  saved as %s\n", id)
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %d perturbed %s trials...\n", trials, base.Model)
	start := time.Now()
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:          base,
		PositionNoise: posNoise,
		AngleNoise:    angleNoise,
		VelocityNoise: velNoise,
		NumTrials:     trials,
		Seed:          seed,
		Parallel:      parallel,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tZ0\tROLL\tPITCH\tMIN_Z\tPEAK_F\tSTABLE")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.3f\t%.4f\t%.1f\t%v\n",
			r.Trial, r.Position[2], r.RPY[0], r.RPY[1],
			r.Metrics["min_base_height"], r.Metrics["peak_contact_force"], r.Stable)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\n%d stable, %d unstable (%.0f%%) in %v\n",
		stable, unstable, 100*float64(stable)/float64(len(results)), time.Since(start).Round(time.Millisecond))
	return nil
}
