// Package config loads scheduler and demo workload settings from HCL files.
//
// A file may contain a scheduler, a log and a workload block, each at most
// once and every attribute optional:
//
//	scheduler {
//	  name         = "demo"
//	  quantum_us   = env.UTHREAD_QUANTUM_US
//	  max_threads  = 100
//	  history_size = 256
//	  manual_ticks = false
//	}
//
//	log {
//	  level  = "info"
//	  format = "text"
//	}
//
//	workload {
//	  threads     = 4
//	  iterations  = 20
//	  sleep_every = 5
//	  block_every = 7
//	}
//
// Expressions can read environment variables through the env object.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/Swind/go-uthread/core"
)

// Settings is the effective configuration after defaults and overrides.
type Settings struct {
	Scheduler SchedulerSettings
	Log       LogSettings
	Workload  WorkloadSettings
}

type SchedulerSettings struct {
	Name        string
	Quantum     time.Duration
	MaxThreads  int
	HistorySize int
	ManualTicks bool
}

type LogSettings struct {
	Level  string
	Format string
}

// WorkloadSettings drives the demo workload of the uthreads command.
// SleepEvery and BlockEvery are iteration periods; 0 disables them.
type WorkloadSettings struct {
	Threads    int
	Iterations int
	SleepEvery int
	BlockEvery int
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{
		Scheduler: SchedulerSettings{
			Name:        "uthread",
			Quantum:     core.DefaultQuantum,
			MaxThreads:  core.DefaultMaxThreads,
			HistorySize: core.DefaultHistorySize,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		Workload: WorkloadSettings{
			Threads:    4,
			Iterations: 20,
			SleepEvery: 5,
			BlockEvery: 7,
		},
	}
}

// =============================================================================
// HCL schema
// =============================================================================

type fileSchema struct {
	Scheduler *schedulerBlock `hcl:"scheduler,block"`
	Log       *logBlock       `hcl:"log,block"`
	Workload  *workloadBlock  `hcl:"workload,block"`
}

type schedulerBlock struct {
	Name        *string `hcl:"name,optional"`
	QuantumUS   *int    `hcl:"quantum_us,optional"`
	MaxThreads  *int    `hcl:"max_threads,optional"`
	HistorySize *int    `hcl:"history_size,optional"`
	ManualTicks *bool   `hcl:"manual_ticks,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type workloadBlock struct {
	Threads    *int `hcl:"threads,optional"`
	Iterations *int `hcl:"iterations,optional"`
	SleepEvery *int `hcl:"sleep_every,optional"`
	BlockEvery *int `hcl:"block_every,optional"`
}

// Load reads and decodes the HCL file at path on top of Default.
func Load(path string) (Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Settings{}, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(file, path)
}

// Parse decodes HCL source on top of Default. filename is only used in
// diagnostics.
func Parse(src []byte, filename string) (Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Settings{}, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (Settings, error) {
	var schema fileSchema
	if diags := gohcl.DecodeBody(file.Body, EvalContext(), &schema); diags.HasErrors() {
		return Settings{}, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}

	s := Default()
	schema.apply(&s)
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration in %s: %w", filename, err)
	}
	return s, nil
}

func (f *fileSchema) apply(s *Settings) {
	if b := f.Scheduler; b != nil {
		set(&s.Scheduler.Name, b.Name)
		if b.QuantumUS != nil {
			s.Scheduler.Quantum = time.Duration(*b.QuantumUS) * time.Microsecond
		}
		set(&s.Scheduler.MaxThreads, b.MaxThreads)
		set(&s.Scheduler.HistorySize, b.HistorySize)
		set(&s.Scheduler.ManualTicks, b.ManualTicks)
	}
	if b := f.Log; b != nil {
		set(&s.Log.Level, b.Level)
		set(&s.Log.Format, b.Format)
	}
	if b := f.Workload; b != nil {
		set(&s.Workload.Threads, b.Threads)
		set(&s.Workload.Iterations, b.Iterations)
		set(&s.Workload.SleepEvery, b.SleepEvery)
		set(&s.Workload.BlockEvery, b.BlockEvery)
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// EvalContext exposes the process environment as the env object.
func EvalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

// Validate checks every setting and reports all problems at once.
func (s Settings) Validate() error {
	var errs []error
	if s.Scheduler.Quantum <= 0 {
		errs = append(errs, errors.New("scheduler.quantum_us must be positive"))
	}
	if s.Scheduler.MaxThreads <= 0 {
		errs = append(errs, errors.New("scheduler.max_threads must be positive"))
	}
	if s.Scheduler.HistorySize < 0 {
		errs = append(errs, errors.New("scheduler.history_size must not be negative"))
	}
	if !slices.Contains(validLevels, s.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %v, got %q", validLevels, s.Log.Level))
	}
	if !slices.Contains(validFormats, s.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v, got %q", validFormats, s.Log.Format))
	}
	if s.Workload.Threads < 0 || s.Workload.Iterations < 0 || s.Workload.SleepEvery < 0 || s.Workload.BlockEvery < 0 {
		errs = append(errs, errors.New("workload values must not be negative"))
	}
	if s.Workload.Threads >= s.Scheduler.MaxThreads && s.Scheduler.MaxThreads > 0 {
		errs = append(errs, fmt.Errorf("workload.threads (%d) must leave room for the main thread under scheduler.max_threads (%d)",
			s.Workload.Threads, s.Scheduler.MaxThreads))
	}
	return errors.Join(errs...)
}

// CoreConfig converts the scheduler settings into a core.Config with
// default handlers. Callers add their own logger and metrics.
func (s Settings) CoreConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Name = s.Scheduler.Name
	cfg.Quantum = s.Scheduler.Quantum
	cfg.MaxThreads = s.Scheduler.MaxThreads
	cfg.HistorySize = s.Scheduler.HistorySize
	cfg.ManualTicks = s.Scheduler.ManualTicks
	return cfg
}
