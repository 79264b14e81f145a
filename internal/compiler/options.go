package compiler

import (
	"os"

	"github.com/cwasmjit/cwasmjit/internal/opt"
)

// Options configures one Module compilation, mirroring wazero's
// wazevo.NewCompiler/RuntimeConfig functional-options-free struct
// pattern: a plain struct with documented defaults rather than a
// builder, since the whole option set is small and flat.
type Options struct {
	// OptLevel selects the optimizer pipeline depth (spec §4.2).
	OptLevel opt.Level

	// PerfMetrics enables compile-time metric capture (spec §6.5,
	// PERF_METRICS=1). DefaultOptions reads this from the environment
	// each time it is called.
	PerfMetrics bool

	// PerfMetricsFile selects where captured metrics are written
	// (PERF_METRICS_FILE). Empty means process-relative default name.
	PerfMetricsFile string

	// PerfMap additionally emits a perf-<pid>.map file per compiled
	// function, consumed by Linux `perf` (SPEC_FULL's supplemented
	// feature, grounded on wazevoapi.PerfMap).
	PerfMap bool
}

// DefaultOptions returns O2 with the PERF_METRICS* environment variables
// applied; the environment is read on every call.
func DefaultOptions() Options {
	o := Options{OptLevel: opt.O2}
	if os.Getenv("PERF_METRICS") == "1" {
		o.PerfMetrics = true
	}
	o.PerfMetricsFile = os.Getenv("PERF_METRICS_FILE")
	return o
}
