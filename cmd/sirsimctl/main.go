package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"sirsim/internal/scenario"
	"sirsim/internal/storage"
	"sirsim/pkg/sirsim"
)

const (
	artifactsDir = "runs"
	exportsDir   = "exports"
	dbPath       = "sirsim.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "replay":
		return runReplay(ctx, args[1:])
	case "sweep":
		return runSweep(ctx, args[1:])
	case "compare":
		return runCompare(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "sweeps":
		return runSweeps(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	case "presets":
		return runPresets(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// clientFlags are shared by every command that opens a client.
type clientFlags struct {
	storeKind    *string
	dbPath       *string
	artifactsDir *string
	logLevel     *string
}

func addClientFlags(fs *flag.FlagSet) *clientFlags {
	return &clientFlags{
		storeKind:    fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", dbPath, "sqlite database path"),
		artifactsDir: fs.String("artifacts", artifactsDir, "run artifacts directory"),
		logLevel:     fs.String("log-level", "warn", "log level: debug|info|warn|error"),
	}
}

func (f *clientFlags) open(ctx context.Context) (*sirsim.Client, error) {
	logger, err := newLogger(*f.logLevel)
	if err != nil {
		return nil, err
	}
	client, err := sirsim.New(sirsim.Options{
		StoreKind:    *f.storeKind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		ExportsDir:   exportsDir,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// newLogger writes to stderr: human-readable text on a terminal, JSON lines
// otherwise.
func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "sirsimctl",
	})
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger, nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := addClientFlags(fs)
	out := fs.String("out", "scenario.yaml", "scenario template path (.yaml, .yml or .json)")
	preset := fs.String("preset", "", "preset to start the template from")
	force := fs.Bool("force", false, "overwrite an existing scenario file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if !*force {
		if _, err := os.Stat(*out); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", *out)
		}
	}
	cfg := sirsim.DefaultConfig()
	if *preset != "" {
		cfg, err = sirsim.Preset(*preset)
		if err != nil {
			return err
		}
	}
	if err := scenario.Save(*out, cfg); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s artifacts=%s scenario=%s\n", *common.storeKind, *common.artifactsDir, *out)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	common := addClientFlags(fs)
	scn := addScenarioFlags(fs)
	plotCurves := fs.Bool("plot", false, "render curves.png into the run directory")
	jsonOut := fs.Bool("json", false, "emit the run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := scn.build(fs)
	if err != nil {
		return err
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Simulate(ctx, cfg)
	if err != nil {
		return err
	}
	if *plotCurves {
		if _, err := client.Plot(ctx, sirsim.PlotRequest{RunID: summary.RunID}); err != nil {
			return err
		}
	}
	return printRunSummary(summary, *jsonOut)
}

func runReplay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	common := addClientFlags(fs)
	runID := fs.String("run-id", "", "run id to replay")
	jsonOut := fs.Bool("json", false, "emit the run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("replay requires --run-id")
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Replay(ctx, *runID)
	if err != nil {
		return err
	}
	return printRunSummary(summary, *jsonOut)
}

func printRunSummary(summary sirsim.RunSummary, jsonOut bool) error {
	s := summary.Summary
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Printf("run_id=%s n=%d steps=%d peak_infected=%.4f peak_step=%d final_s=%.4f final_i=%.4f final_r=%.4f attack_rate=%.4f half_infected_step=%d dir=%s\n",
		summary.RunID,
		s.Population,
		s.Steps,
		s.PeakInfected,
		s.PeakStep,
		s.FinalSusceptible,
		s.FinalInfected,
		s.FinalRecovered,
		s.AttackRate,
		s.HalfInfectedStep,
		summary.ArtifactsDir,
	)
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("sweep requires a kind: rates|vaccination")
	}
	kind := args[0]
	if kind != "rates" && kind != "vaccination" {
		return fmt.Errorf("unsupported sweep kind: %s", kind)
	}
	fs := flag.NewFlagSet("sweep "+kind, flag.ContinueOnError)
	common := addClientFlags(fs)
	scn := addScenarioFlags(fs)
	var betas, gammas, probabilities floatList
	fs.Var(&betas, "betas", "comma-separated infection probabilities (rates)")
	fs.Var(&gammas, "gammas", "comma-separated recovery probabilities, paired with --betas (rates)")
	fs.Var(&probabilities, "probabilities", "comma-separated vaccination probabilities (vaccination; default 0,0.25,0.5,0.75,1)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	cfg, err := scn.build(fs)
	if err != nil {
		return err
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	var summary sirsim.SweepSummary
	switch kind {
	case "rates":
		if len(gammas) == 1 && len(betas) > 1 {
			for len(gammas) < len(betas) {
				gammas = append(gammas, gammas[0])
			}
		}
		summary, err = client.SweepRates(ctx, sirsim.SweepRatesRequest{Base: cfg, Betas: betas, Gammas: gammas})
	case "vaccination":
		summary, err = client.SweepVaccination(ctx, sirsim.SweepVaccinationRequest{Base: cfg, Probabilities: probabilities})
	}
	if err != nil {
		return err
	}
	printSweep(summary)
	return nil
}

func runCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	common := addClientFlags(fs)
	scn := addScenarioFlags(fs)
	topologies := fs.String("topologies", "complete,lattice", "comma-separated topologies: complete|lattice|villages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := scn.build(fs)
	if err != nil {
		return err
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.CompareTopologies(ctx, sirsim.CompareRequest{Base: cfg, Topologies: splitList(*topologies)})
	if err != nil {
		return err
	}
	printSweep(summary)
	return nil
}

func printSweep(summary sirsim.SweepSummary) {
	fmt.Printf("sweep_id=%s kind=%s points=%d\n", summary.SweepID, summary.Kind, len(summary.Points))
	for _, p := range summary.Points {
		fmt.Printf("label=%s run_id=%s beta=%.4f gamma=%.4f peak_infected=%.4f peak_step=%d final_r=%.4f attack_rate=%.4f\n",
			p.Label,
			p.RunID,
			p.Beta,
			p.Gamma,
			p.PeakInfected,
			p.PeakStep,
			p.FinalRecovered,
			p.AttackRate,
		)
	}
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	common := addClientFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, sirsim.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, e := range items {
		fmt.Printf("run_id=%s created=%q label=%s topology=%s kernel=%s n=%d beta=%.4f gamma=%.4f vaccination=%.2f steps=%d runs=%s seed=%d peak_infected=%.4f attack_rate=%.4f\n",
			e.RunID,
			age(e.CreatedAtUTC),
			labelOrDash(e.Label),
			e.Topology,
			e.Kernel,
			e.Population,
			e.Beta,
			e.Gamma,
			e.VaccinationProbability,
			e.Steps,
			humanize.Comma(int64(e.Runs)),
			e.Seed,
			e.PeakInfected,
			e.AttackRate,
		)
	}
	return nil
}

func runSweeps(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweeps", flag.ContinueOnError)
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	sweeps, err := client.Sweeps(ctx)
	if err != nil {
		return err
	}
	if len(sweeps) == 0 {
		fmt.Println("no sweeps found")
		return nil
	}
	for _, s := range sweeps {
		labels := make([]string, 0, len(s.Points))
		for _, p := range s.Points {
			labels = append(labels, p.Label)
		}
		fmt.Printf("sweep_id=%s kind=%s points=%d labels=%q\n", s.SweepID, s.Kind, len(s.Points), strings.Join(labels, ";"))
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	common := addClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	series := fs.Bool("series", false, "print the mean series")
	jsonOut := fs.Bool("json", false, "emit the run detail as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	detail, err := client.Show(ctx, sirsim.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	c := detail.Config
	s := detail.Summary
	fmt.Printf("run_id=%s label=%s topology=%s kernel=%s n=%d infected0=%d beta=%.4f gamma=%.4f vaccination=%.2f steps=%d runs=%d seed=%d\n",
		detail.RunID, labelOrDash(c.Label), c.Topology, c.Kernel, c.Population, c.InitialInfected,
		c.Beta, c.Gamma, c.VaccinationProbability, c.Steps, c.Runs, c.Seed)
	fmt.Printf("peak_infected=%.4f peak_step=%d final_s=%.4f final_i=%.4f final_r=%.4f attack_rate=%.4f half_infected_step=%d mean_infected_std=%.4f\n",
		s.PeakInfected, s.PeakStep, s.FinalSusceptible, s.FinalInfected, s.FinalRecovered,
		s.AttackRate, s.HalfInfectedStep, s.MeanInfectedStd)
	if *series {
		for t, p := range detail.Mean {
			std := 0.0
			if t < len(detail.InfectedStd) {
				std = detail.InfectedStd[t]
			}
			fmt.Printf("t=%d s=%.4f i=%.4f r=%.4f i_std=%.4f\n", t, p.S, p.I, p.R, std)
		}
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	common := addClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, sirsim.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runPlot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	common := addClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "plot the most recent run from run index")
	sweepID := fs.String("sweep-id", "", "overlay the infected curves of a sweep")
	villages := fs.Bool("villages", false, "plot the infected curve of each village")
	out := fs.String("out", "", "output PNG path (default: inside the run directory)")
	width := fs.Int("width", 0, "image width in pixels")
	height := fs.Int("height", 0, "image height in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	plotted, err := client.Plot(ctx, sirsim.PlotRequest{
		RunID:    *runID,
		Latest:   *latest,
		SweepID:  *sweepID,
		Villages: *villages,
		Out:      *out,
		Width:    *width,
		Height:   *height,
	})
	if err != nil {
		return err
	}
	if plotted.SweepID != "" {
		fmt.Printf("plotted sweep_id=%s to=%s\n", plotted.SweepID, plotted.Path)
		return nil
	}
	fmt.Printf("plotted run_id=%s to=%s\n", plotted.RunID, plotted.Path)
	return nil
}

func runPresets(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("presets", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit presets as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	presets := scenario.Presets()
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(presets)
	}
	for _, p := range presets {
		c := p.Config
		fmt.Printf("preset=%s topology=%s kernel=%s n=%d beta=%.2f gamma=%.2f steps=%d runs=%d description=%q\n",
			p.Name,
			c.Population.Topology.Kind,
			c.Kernel.Kind,
			c.Population.Size,
			c.Rates.Beta,
			c.Rates.Gamma,
			c.Steps,
			c.Runs,
			p.Description,
		)
	}
	return nil
}

func age(createdAtUTC string) string {
	created, err := time.Parse(time.RFC3339, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(created)
}

func labelOrDash(label string) string {
	if label == "" {
		return "-"
	}
	return label
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: sirsimctl <init|run|replay|sweep|compare|runs|sweeps|show|export|plot|presets> [flags]", msg)
}
