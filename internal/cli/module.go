package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwasmjit/cwasmjit/internal/wasm"
)

// loadModule reads the core's own already-decoded module description,
// serialized as JSON. Decoding raw .wasm/.wat bytes is explicitly a
// collaborator's job (spec §1, §4.1; see internal/wasm's package doc), so
// every subcommand here takes that decoded shape directly rather than a
// binary module.
func loadModule(path string) (*wasm.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	var mod wasm.Module
	if err := json.Unmarshal(data, &mod); err != nil {
		return nil, fmt.Errorf("parse module %s: %w", path, err)
	}
	return &mod, nil
}

// exportedFunc resolves a function export by name to its index in the
// unified (imports-first) function index space.
func exportedFunc(mod *wasm.Module, name string) (uint32, error) {
	for _, ex := range mod.Exports {
		if ex.Kind == wasm.ImportKindFunc && ex.Name == name {
			return ex.Index, nil
		}
	}
	return 0, fmt.Errorf("no exported function named %q", name)
}

// definedFunc resolves a function export to its index into mod.Functions
// (module-defined functions only), used by explore's stages which only
// exist for module-defined code, never for imports.
func definedFunc(mod *wasm.Module, name string) (*wasm.Function, uint32, error) {
	idx, err := exportedFunc(mod, name)
	if err != nil {
		return nil, 0, err
	}
	importFns := uint32(mod.ImportFuncCount())
	if idx < importFns {
		return nil, 0, fmt.Errorf("%q is an imported function, not module-defined code", name)
	}
	return &mod.Functions[idx-importFns], idx, nil
}
