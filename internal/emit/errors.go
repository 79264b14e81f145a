package emit

import "fmt"

// EmitErrorKind names two kinds of emission failure. Function does not
// check branch displacements against their encodable range, inserts no
// veneers, and materializes unencodable immediates into a scratch
// register, so none of its paths currently produces either kind.
type EmitErrorKind byte

const (
	UnencodableImm EmitErrorKind = iota
	BranchOutOfRange
)

// EmitError describes one emission failure of kind Kind. Function's error
// result is always nil; no path in this package returns an EmitError.
type EmitError struct {
	Kind EmitErrorKind
	Msg  string
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit: %v", e.Msg)
}
