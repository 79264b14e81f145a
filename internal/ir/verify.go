package ir

import "fmt"

// Verify checks the §3.1 structural invariants: each value has exactly one
// definition, every block-parameter arity matches its predecessors'
// terminator argument lists, and every block ends in exactly one
// terminator. It is intended for use in tests and in debug builds of the
// optimizer/lowerer, not on the hot compilation path.
func (f *Function) Verify() error {
	defined := make([]bool, f.nextValueID)
	markDef := func(v Value) error {
		if !v.Valid() {
			return nil
		}
		if int(v.ID()) >= len(defined) {
			return fmt.Errorf("value %s out of range", v)
		}
		if defined[v.ID()] {
			return fmt.Errorf("value %s defined more than once", v)
		}
		defined[v.ID()] = true
		return nil
	}

	for _, b := range f.blocks {
		for _, p := range b.params {
			if err := markDef(p.Value); err != nil {
				return err
			}
		}
		for i := b.first; i != nil; i = i.next {
			if err := markDef(i.rValue); err != nil {
				return err
			}
			for _, r := range i.rValues {
				if err := markDef(r); err != nil {
					return err
				}
			}
		}
		if b.term == TermInvalid {
			return fmt.Errorf("block %s has no terminator", b)
		}
		for idx, t := range b.targets {
			if t == nil {
				continue
			}
			if got, want := len(b.args[idx]), len(t.params); got != want {
				return fmt.Errorf("block %s -> %s: %d args but %d params", b, t, got, want)
			}
			for ai, a := range b.args[idx] {
				if !a.Valid() {
					return fmt.Errorf("block %s -> %s: arg %d missing", b, t, ai)
				}
				if a.Type() != t.params[ai].Type {
					return fmt.Errorf("block %s -> %s: arg %d type %s != param type %s", b, t, ai, a.Type(), t.params[ai].Type)
				}
			}
		}
	}
	return nil
}
