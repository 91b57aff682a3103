package hypergraph

import "sort"

// Evidence is one reply observed between two participants. Hyperedges carry
// one record per reply; plain node edges usually carry none.
type Evidence struct {
	Timestamp   int64  `json:"timestamp" yaml:"timestamp"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
	Speaker     string `json:"speaker" yaml:"speaker"`
	Target      string `json:"target" yaml:"target"`
	UtteranceID string `json:"utterance_id,omitempty" yaml:"utterance_id,omitempty"`
	ReplyTo     string `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`

	// RootReply is set when the reply answers the conversation root directly.
	RootReply bool `json:"root_reply" yaml:"root_reply"`
}

// SortEvidence returns a copy of evs ordered by timestamp. Records sharing a
// timestamp keep their insertion order.
func SortEvidence(evs []Evidence) []Evidence {
	out := make([]Evidence, len(evs))
	copy(out, evs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}
