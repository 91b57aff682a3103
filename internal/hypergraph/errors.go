package hypergraph

import "errors"

var (
	// ErrDuplicate is returned when a node or hypernode id is already present.
	ErrDuplicate = errors.New("duplicate id")

	// ErrMembership is returned when an utterance node is claimed by a second hypernode.
	ErrMembership = errors.New("node already belongs to a hypernode")

	// ErrNoEvidence is returned for a hypernode-to-hypernode edge without evidence.
	ErrNoEvidence = errors.New("hyperedge requires at least one evidence record")

	// ErrSealed is returned by mutating calls after Seal.
	ErrSealed = errors.New("graph is sealed")
)

// ErrNotFound is returned when an entity is not found.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.ID
}

// IsNotFound returns true if the error is, or wraps, an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
