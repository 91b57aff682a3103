package thread

import (
	"fmt"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/hypergraph"
)

// BuildOptions controls graph construction.
type BuildOptions struct {
	// ExcludeID leaves one utterance out of the graph, along with every reply
	// edge pointing at it. Used for the mid-thread view without the root.
	ExcludeID string
}

// Build creates the sealed hypergraph of a set of utterances. Each utterance
// becomes a node owned by its speaker's hypernode. A reply whose target is in
// the input adds a node edge, a speaker-to-utterance edge and a
// speaker-to-speaker hyperedge carrying the reply as evidence. Replies to
// utterances outside the input are dropped. Replies identical in speaker,
// target, reply target, timestamp and text add a single hyperedge.
func Build(utts []Utterance, opts BuildOptions) (*hypergraph.Graph, error) {
	byID := make(map[string]Utterance, len(utts))
	for _, u := range utts {
		byID[u.ID] = u
	}

	g := hypergraph.New()
	var speakers []string
	members := make(map[string][]string)
	var replies []Utterance

	for _, u := range SortByTime(utts) {
		if u.ID == opts.ExcludeID {
			continue
		}
		if _, ok := members[u.Speaker]; !ok {
			speakers = append(speakers, u.Speaker)
		}
		members[u.Speaker] = append(members[u.Speaker], u.ID)
		if _, ok := byID[u.ReplyTo]; ok && u.ReplyTo != opts.ExcludeID {
			replies = append(replies, u)
		}
		if _, err := g.AddNode(u.ID, attributes(u)); err != nil {
			return nil, fmt.Errorf("build thread graph: %w", err)
		}
	}

	for _, s := range speakers {
		if _, err := g.AddHypernode(s, members[s], nil); err != nil {
			return nil, fmt.Errorf("build thread graph: %w", err)
		}
	}

	type replyKey struct {
		speaker, target, replyTo, text string
		timestamp                      int64
	}
	seen := make(map[replyKey]bool, len(replies))

	for _, u := range replies {
		from, _ := g.LookupNode(u.ID)
		to, _ := g.LookupNode(u.ReplyTo)
		speaker, _ := g.LookupHypernode(u.Speaker)
		target := byID[u.ReplyTo].Speaker
		targetHyper, _ := g.LookupHypernode(target)

		if err := g.AddEdge(hypergraph.NodeRef(from), hypergraph.NodeRef(to)); err != nil {
			return nil, fmt.Errorf("build thread graph: %w", err)
		}
		if err := g.AddEdge(hypergraph.HyperRef(speaker), hypergraph.NodeRef(to)); err != nil {
			return nil, fmt.Errorf("build thread graph: %w", err)
		}
		key := replyKey{u.Speaker, target, u.ReplyTo, u.Text, u.Timestamp}
		if seen[key] {
			continue
		}
		seen[key] = true
		ev := hypergraph.Evidence{
			Timestamp:   u.Timestamp,
			Text:        u.Text,
			Speaker:     u.Speaker,
			Target:      target,
			UtteranceID: u.ID,
			ReplyTo:     u.ReplyTo,
			RootReply:   u.ReplyTo == u.Root,
		}
		if err := g.AddEdge(hypergraph.HyperRef(speaker), hypergraph.HyperRef(targetHyper), ev); err != nil {
			return nil, fmt.Errorf("build thread graph: %w", err)
		}
	}

	g.Seal()
	return g, nil
}

func attributes(u Utterance) hypergraph.Attributes {
	attrs := hypergraph.Attributes{
		"speaker":   u.Speaker,
		"timestamp": u.Timestamp,
		"root":      u.Root,
	}
	if u.ReplyTo != "" {
		attrs["reply_to"] = u.ReplyTo
	}
	if u.Text != "" {
		attrs["text"] = u.Text
	}
	return attrs
}
