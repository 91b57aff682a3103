// Package motif enumerates three-participant interaction motifs (triads) over
// a sealed thread hypergraph and models how each one developed, one reply
// relation at a time.
package motif

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is one of the 16 canonical triad patterns.
type Type uint8

const (
	NoEdge Type = iota
	SingleEdge
	Incoming
	Outgoing
	Dyadic
	Unidirectional
	Incoming2To3
	Incoming1To3
	DirectedCycle
	Outgoing3To1
	IncomingReciprocal
	OutgoingReciprocal
	DirectedCycle1To3
	Direciprocal
	Direciprocal2To3
	Trireciprocal

	NumTypes = int(Trireciprocal) + 1
)

// Role is one of the three abstract positions in a triad template.
type Role uint8

const (
	R1 Role = iota
	R2
	R3
)

// Relation is a directed template edge between two roles.
type Relation struct {
	From, To Role
}

func (r Relation) String() string {
	return "C" + strconv.Itoa(int(r.From)+1) + "->C" + strconv.Itoa(int(r.To)+1)
}

type typeInfo struct {
	name     string
	template []Relation
}

var registry = [NumTypes]typeInfo{
	NoEdge:             {"NO_EDGE_TRIADS", nil},
	SingleEdge:         {"SINGLE_EDGE_TRIADS", []Relation{{R1, R2}}},
	Incoming:           {"INCOMING_TRIADS", []Relation{{R2, R1}, {R3, R1}}},
	Outgoing:           {"OUTGOING_TRIADS", []Relation{{R1, R2}, {R1, R3}}},
	Dyadic:             {"DYADIC_TRIADS", []Relation{{R1, R2}, {R2, R1}}},
	Unidirectional:     {"UNIDIRECTIONAL_TRIADS", []Relation{{R1, R2}, {R2, R3}}},
	Incoming2To3:       {"INCOMING_2TO3_TRIADS", []Relation{{R2, R1}, {R3, R1}, {R2, R3}}},
	Incoming1To3:       {"INCOMING_1TO3_TRIADS", []Relation{{R2, R1}, {R3, R1}, {R1, R3}}},
	DirectedCycle:      {"DIRECTED_CYCLE_TRIADS", []Relation{{R1, R2}, {R2, R3}, {R3, R1}}},
	Outgoing3To1:       {"OUTGOING_3TO1_TRIADS", []Relation{{R1, R2}, {R1, R3}, {R3, R1}}},
	IncomingReciprocal: {"INCOMING_RECIPROCAL_TRIADS", []Relation{{R2, R1}, {R3, R1}, {R2, R3}, {R3, R2}}},
	OutgoingReciprocal: {"OUTGOING_RECIPROCAL_TRIADS", []Relation{{R1, R2}, {R1, R3}, {R2, R3}, {R3, R2}}},
	DirectedCycle1To3:  {"DIRECTED_CYCLE_1TO3_TRIADS", []Relation{{R1, R2}, {R2, R3}, {R3, R1}, {R1, R3}}},
	Direciprocal:       {"DIRECIPROCAL_TRIADS", []Relation{{R1, R2}, {R2, R1}, {R1, R3}, {R3, R1}}},
	Direciprocal2To3:   {"DIRECIPROCAL_2TO3_TRIADS", []Relation{{R1, R2}, {R2, R1}, {R1, R3}, {R3, R1}, {R2, R3}}},
	Trireciprocal:      {"TRIRECIPROCAL_TRIADS", []Relation{{R1, R2}, {R2, R1}, {R2, R3}, {R3, R2}, {R3, R1}, {R1, R3}}},
}

// Types returns all motif types in registry order.
func Types() []Type {
	out := make([]Type, NumTypes)
	for i := range out {
		out[i] = Type(i)
	}
	return out
}

// Valid reports whether t is one of the 16 registered types.
func (t Type) Valid() bool { return int(t) < NumTypes }

// String returns the feature name of the type, e.g. "DYADIC_TRIADS".
func (t Type) String() string {
	if !t.Valid() {
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
	return registry[t].name
}

// Template returns the ordered role relations that define the type. The
// returned slice must not be modified.
func (t Type) Template() []Relation {
	return registry[t].template
}

// EdgeCount returns the number of template edges (0-6).
func (t Type) EdgeCount() int {
	return len(registry[t].template)
}

// Labels renders the template as "C1->C2" style strings.
func (t Type) Labels() []string {
	tmpl := t.Template()
	out := make([]string, len(tmpl))
	for i, r := range tmpl {
		out[i] = r.String()
	}
	return out
}

// MarshalText implements encoding.TextMarshaler so types key JSON maps by name.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid motif type %d", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType resolves a feature name. The "_TRIADS" suffix and case are optional.
func ParseType(s string) (Type, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasSuffix(name, "_TRIADS") {
		name += "_TRIADS"
	}
	for i, info := range registry {
		if info.name == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown motif type %q", s)
}
