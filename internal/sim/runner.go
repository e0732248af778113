// Package sim drives the step kernel over fresh populations for T steps and M
// independent runs and averages the resulting compartment time series.
package sim

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"sirsim/internal/epidemic"
	"sirsim/internal/model"
	"sirsim/internal/population"
	"sirsim/internal/rng"
	"sirsim/internal/topology"
)

// Factory builds the fresh population for one run from that run's source.
type Factory func(src rng.Source) (*population.Population, error)

// Trajectory is one run's counts for t = 0..T.
type Trajectory struct {
	Counts []model.Counts `json:"counts"`
	// Villages[t][g] holds per-village counts when the topology is grouped.
	Villages [][]model.Counts `json:"villages,omitempty"`
}

// Result is the elementwise mean over all runs.
type Result struct {
	Size  int `json:"size"`
	Steps int `json:"steps"`
	Runs  int `json:"runs"`
	// Mean has Steps+1 entries, t=0 included.
	Mean        []model.Point `json:"mean"`
	InfectedStd []float64     `json:"infected_std"`
	// Villages[g][t] is the mean series of village g.
	Villages     [][]model.Point `json:"villages,omitempty"`
	Trajectories []Trajectory    `json:"trajectories,omitempty"`
}

// Runner executes Runs independent runs. Run k draws everything (population
// construction and steps) from rng.ForRun(Seed, k), so results do not depend
// on Workers.
type Runner struct {
	Factory  Factory
	Kernel   epidemic.Kernel
	Steps    int
	Runs     int
	Seed     int64
	Workers  int
	KeepRuns bool
	Logger   *log.Logger
	Observe  ObserveFunc
}

// Simulate validates cfg, builds the topology once and runs the scenario.
func Simulate(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	topo, err := topology.New(cfg.Population.Topology, cfg.Population.Size)
	if err != nil {
		return Result{}, err
	}
	kernel, err := epidemic.New(cfg.Kernel, cfg.Rates, topo.Kind())
	if err != nil {
		return Result{}, err
	}
	// Surface population errors (seed village, vaccinated villages) before
	// spawning workers.
	if _, err := population.NewWithTopology(cfg.Population, topo, rng.ForRun(cfg.Seed, 0)); err != nil {
		return Result{}, err
	}

	spec := cfg.Population
	runner := &Runner{
		Factory: func(src rng.Source) (*population.Population, error) {
			return population.NewWithTopology(spec, topo, src)
		},
		Kernel:   kernel,
		Steps:    cfg.Steps,
		Runs:     cfg.Runs,
		Seed:     cfg.Seed,
		Workers:  cfg.Workers,
		KeepRuns: cfg.KeepRuns,
		Logger:   cfg.Logger,
		Observe:  cfg.Observe,
	}
	return runner.Run(ctx)
}

func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Factory == nil {
		return Result{}, fmt.Errorf("%w: population factory is required", model.ErrInvalidConfig)
	}
	if r.Kernel == nil {
		return Result{}, fmt.Errorf("%w: kernel is required", model.ErrInvalidConfig)
	}
	if r.Steps <= 0 {
		return Result{}, fmt.Errorf("%w: steps must be > 0, got %d", model.ErrInvalidConfig, r.Steps)
	}
	if r.Runs < 1 {
		return Result{}, fmt.Errorf("%w: runs must be >= 1, got %d", model.ErrInvalidConfig, r.Runs)
	}
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	workerCount := r.Workers
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > r.Runs {
		workerCount = r.Runs
	}

	type result struct {
		idx        int
		trajectory Trajectory
		err        error
	}

	jobs := make(chan int)
	results := make(chan result, r.Runs)
	started := time.Now()
	logger.Info("simulation started", "kernel", r.Kernel.Name(), "steps", r.Steps, "runs", r.Runs, "seed", r.Seed, "workers", workerCount)

	for w := 0; w < workerCount; w++ {
		go func() {
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				trajectory, err := r.runOne(idx)
				if err == nil {
					logger.Debug("run finished", "run", idx, "final", trajectory.Counts[len(trajectory.Counts)-1])
				}
				results <- result{idx: idx, trajectory: trajectory, err: err}
			}
		}()
	}
	go func() {
		for i := 0; i < r.Runs; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	var agg *aggregate
	var kept []Trajectory
	if r.KeepRuns {
		kept = make([]Trajectory, r.Runs)
	}
	var firstErr error
	for received := 0; received < r.Runs; received++ {
		res := <-results
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("run %d: %w", res.idx, res.err)
			}
			continue
		}
		if firstErr != nil {
			continue
		}
		if agg == nil {
			agg = newAggregate(r.Steps, res.trajectory)
		}
		agg.add(res.trajectory)
		if kept != nil {
			kept[res.idx] = res.trajectory
		}
	}
	if firstErr != nil {
		return Result{}, firstErr
	}

	out := agg.result(r.Runs)
	out.Trajectories = kept
	final := out.Mean[len(out.Mean)-1]
	logger.Info("simulation finished", "elapsed", time.Since(started).Round(time.Millisecond), "final_s", final.S, "final_i", final.I, "final_r", final.R)
	return out, nil
}

func (r *Runner) runOne(idx int) (Trajectory, error) {
	src := rng.ForRun(r.Seed, idx)
	pop, err := r.Factory(src)
	if err != nil {
		return Trajectory{}, err
	}
	if err := pop.CheckConservation(); err != nil {
		return Trajectory{}, err
	}

	trajectory := Trajectory{Counts: make([]model.Counts, 0, r.Steps+1)}
	grouped := pop.Groups() > 0
	if grouped {
		trajectory.Villages = make([][]model.Counts, 0, r.Steps+1)
	}
	record := func(step int) {
		trajectory.Counts = append(trajectory.Counts, pop.Counts())
		if grouped {
			trajectory.Villages = append(trajectory.Villages, pop.VillageCounts())
		}
		if r.Observe != nil {
			r.Observe(idx, step, pop)
		}
	}

	record(0)
	for step := 1; step <= r.Steps; step++ {
		if err := r.Kernel.Step(pop, src); err != nil {
			return Trajectory{}, fmt.Errorf("step %d: %w", step, err)
		}
		record(step)
	}
	return trajectory, nil
}

// aggregate sums integer counts, so the mean is independent of the order in
// which runs arrive.
type aggregate struct {
	size     int
	s, i, r  []int64
	iSquares []int64
	villages [][3][]int64
}

func newAggregate(steps int, first Trajectory) *aggregate {
	a := &aggregate{
		size:     first.Counts[0].Total(),
		s:        make([]int64, steps+1),
		i:        make([]int64, steps+1),
		r:        make([]int64, steps+1),
		iSquares: make([]int64, steps+1),
	}
	if len(first.Villages) > 0 {
		groups := len(first.Villages[0])
		a.villages = make([][3][]int64, groups)
		for g := range a.villages {
			for c := 0; c < 3; c++ {
				a.villages[g][c] = make([]int64, steps+1)
			}
		}
	}
	return a
}

func (a *aggregate) add(tr Trajectory) {
	for t, c := range tr.Counts {
		a.s[t] += int64(c.S)
		a.i[t] += int64(c.I)
		a.r[t] += int64(c.R)
		a.iSquares[t] += int64(c.I) * int64(c.I)
	}
	for t, perVillage := range tr.Villages {
		for g, c := range perVillage {
			a.villages[g][0][t] += int64(c.S)
			a.villages[g][1][t] += int64(c.I)
			a.villages[g][2][t] += int64(c.R)
		}
	}
}

func (a *aggregate) result(runs int) Result {
	m := float64(runs)
	steps := len(a.s) - 1
	out := Result{
		Size:        a.size,
		Steps:       steps,
		Runs:        runs,
		Mean:        make([]model.Point, steps+1),
		InfectedStd: make([]float64, steps+1),
	}
	for t := range a.s {
		out.Mean[t] = model.Point{S: float64(a.s[t]) / m, I: float64(a.i[t]) / m, R: float64(a.r[t]) / m}
		mean := float64(a.i[t]) / m
		variance := float64(a.iSquares[t])/m - mean*mean
		if variance < 0 {
			variance = 0
		}
		out.InfectedStd[t] = math.Sqrt(variance)
	}
	if len(a.villages) > 0 {
		out.Villages = make([][]model.Point, len(a.villages))
		for g, sums := range a.villages {
			series := make([]model.Point, steps+1)
			for t := range series {
				series[t] = model.Point{S: float64(sums[0][t]) / m, I: float64(sums[1][t]) / m, R: float64(sums[2][t]) / m}
			}
			out.Villages[g] = series
		}
	}
	return out
}
