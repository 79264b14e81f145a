package compiler

import (
	"fmt"
	"os"
)

// writePerfMap appends one line per compiled function to
// /tmp/perf-<pid>.map in the format Linux `perf` expects
// (`<start-hex> <size-hex> <name>`), grounded on the
// wazevoapi.PerfMap / PerfMapFilename pattern the teacher's
// wazevoapi/debug_options.go uses for the same purpose.
func writePerfMap(entries []perfMapEntry) error {
	path := fmt.Sprintf("/tmp/perf-%d.map", os.Getpid())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("compiler: open perf map: %w", err)
	}
	defer f.Close()
	for _, e := range entries {
		if _, err := fmt.Fprintf(f, "%x %x %s\n", e.Addr, e.Size, e.Name); err != nil {
			return fmt.Errorf("compiler: write perf map: %w", err)
		}
	}
	return nil
}

type perfMapEntry struct {
	Addr uintptr
	Size int
	Name string
}
