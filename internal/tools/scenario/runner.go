package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tabletoptools/scenoforge/internal/catalog"
	"github.com/tabletoptools/scenoforge/internal/generator"
	"github.com/tabletoptools/scenoforge/internal/platform/timeouts"
	"github.com/tabletoptools/scenoforge/internal/service"
	"github.com/tabletoptools/scenoforge/internal/storage/sqlite"
)

// defaultActor owns every card a scenario run creates unless the script
// shares them onwards.
const defaultActor = "scenario-runner"

// Config controls scenario execution.
type Config struct {
	DBPath     string
	OutDir     string
	Actor      string
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		DBPath:     "scenario.db",
		OutDir:     ".",
		Timeout:    timeouts.Step,
		Assertions: AssertionStrict,
		Verbose:    false,
	}
}

// Runner executes Lua scenarios against an in-process card service.
type Runner struct {
	store      *sqlite.Store
	svc        *service.Service
	assertions Assertions
	logger     *log.Logger
	verbose    bool
	timeout    time.Duration
	outDir     string
	actor      string
}

// NewRunner opens the card store and prepares a scenario runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	svc, err := service.New(generator.New(cat), store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	r, err := newRunnerWithDeps(cfg, svc)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	r.store = store
	return r, nil
}

// newRunnerWithDeps builds a Runner around a pre-built service.
// Config defaults (logger, timeout, actor) are applied here so they are
// testable.
func newRunnerWithDeps(cfg Config, svc *service.Service) (*Runner, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = timeouts.Step
	}

	actor := cfg.Actor
	if actor == "" {
		actor = defaultActor
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "."
	}

	assertions := Assertions{Mode: cfg.Assertions, Logger: logger}

	return &Runner{
		svc:        svc,
		assertions: assertions,
		logger:     logger,
		verbose:    cfg.Verbose,
		timeout:    timeout,
		outDir:     outDir,
		actor:      actor,
	}, nil
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	runner, err := NewRunner(cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	return runner.RunScenario(ctx, scenario)
}

// RunScenario executes the scenario steps in order.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))
	state := &scenarioState{cards: map[string]string{}}

	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, state, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

// scenarioState tracks the cards a run has generated, keyed by tag.
type scenarioState struct {
	cards   map[string]string
	lastTag string
}
