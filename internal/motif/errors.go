package motif

import (
	"errors"
	"strconv"
)

var (
	// ErrMissingEvidence is returned when a triad slot has no evidence record.
	ErrMissingEvidence = errors.New("template edge has no evidence")

	// ErrUnsealed is returned when motifs are extracted from a graph that can
	// still change.
	ErrUnsealed = errors.New("graph is not sealed")

	// ErrInvalidEdgeIndex matches every InvalidEdgeIndexError.
	ErrInvalidEdgeIndex = errors.New("invalid edge index")
)

// InvalidEdgeIndexError is returned for an edge index outside a type's template.
type InvalidEdgeIndexError struct {
	Type  Type
	Index int
}

func (e *InvalidEdgeIndexError) Error() string {
	return "invalid edge index " + strconv.Itoa(e.Index) + " for " + e.Type.String()
}

// Is lets errors.Is(err, ErrInvalidEdgeIndex) match.
func (e *InvalidEdgeIndexError) Is(target error) bool { return target == ErrInvalidEdgeIndex }

func itoa(i int) string { return strconv.Itoa(i) }
