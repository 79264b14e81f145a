package compiler

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FuncMetrics is one function's compile-time metrics, captured when
// Options.PerfMetrics is set (spec §6.5's PERF_METRICS=1). This is a
// supplemented feature (SPEC_FULL.md), grounded on the
// wazevoapi.PrintMachineCodeHexPerFunctionDisassembly-style per-function
// debug reporting the teacher's wazevo backend gathers behind its own
// env-driven debug flags.
type FuncMetrics struct {
	Name            string  `json:"name" yaml:"name"`
	Index           uint32  `json:"index" yaml:"index"`
	CompileSeconds  float64 `json:"compile_seconds" yaml:"compile_seconds"`
	NumBlocksIR     int     `json:"ir_blocks" yaml:"ir_blocks"`
	NumSpillSlots   int     `json:"spill_slots" yaml:"spill_slots"`
	CodeBytes       int     `json:"code_bytes" yaml:"code_bytes"`
	FellBackToInterp bool   `json:"fell_back_to_interpreter" yaml:"fell_back_to_interpreter"`
}

// Metrics is the whole-module capture written to Options.PerfMetricsFile.
type Metrics struct {
	ModuleName string        `json:"module_name" yaml:"module_name"`
	Functions  []FuncMetrics `json:"functions" yaml:"functions"`
}

// Write serializes m to path, choosing YAML when path ends in .yml/.yaml
// (the human-skimmable path the SPEC_FULL ambient stack adds) and JSON
// otherwise (the default machine-readable path).
func (m *Metrics) Write(path string) error {
	if path == "" {
		path = fmt.Sprintf("cwasmjit-metrics-%d.json", os.Getpid())
	}
	var data []byte
	var err error
	if isYAMLPath(path) {
		data, err = yaml.Marshal(m)
	} else {
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("compiler: marshal metrics: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func isYAMLPath(path string) bool {
	n := len(path)
	return n >= 4 && (path[n-4:] == ".yml" || (n >= 5 && path[n-5:] == ".yaml"))
}
