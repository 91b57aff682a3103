// Package thread turns utterance records into conversation threads and
// thread hypergraphs.
package thread

import (
	"cmp"
	"slices"
	"sort"
	"strconv"

	"github.com/zeebo/xxh3"
)

// Utterance is one message of a conversation.
type Utterance struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Speaker string `json:"speaker" yaml:"speaker" validate:"required"`
	// ReplyTo is empty for the conversation root.
	ReplyTo   string `json:"reply_to,omitempty" yaml:"reply_to,omitempty" validate:"omitempty,nefield=ID"`
	Root      string `json:"root" yaml:"root" validate:"required"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp" validate:"gte=0"`
	Text      string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Thread is a timestamp-ordered run of utterances sharing a root or a
// top-level comment.
type Thread struct {
	// ID is the conversation root, or the top-level comment when the root is
	// excluded.
	ID         string      `json:"id" yaml:"id"`
	Root       string      `json:"root" yaml:"root"`
	Utterances []Utterance `json:"utterances" yaml:"utterances"`
}

// Len returns the number of utterances.
func (t Thread) Len() int { return len(t.Utterances) }

// Participants returns the number of distinct speakers.
func (t Thread) Participants() int {
	seen := make(map[string]struct{}, len(t.Utterances))
	for _, u := range t.Utterances {
		seen[u.Speaker] = struct{}{}
	}
	return len(seen)
}

// SortByTime orders utterances by timestamp, keeping input order on ties.
func SortByTime(utts []Utterance) []Utterance {
	out := slices.Clone(utts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// GroupOptions controls how a corpus is cut into threads.
type GroupOptions struct {
	// PrefixLen keeps only the first PrefixLen utterances of each thread.
	// Zero or less keeps everything.
	PrefixLen int
	// IncludeRoot groups by conversation root. Otherwise each top-level
	// comment and its descendants form a thread and the root is left out.
	IncludeRoot bool
}

// Group partitions utterances into threads ordered by thread id.
func Group(utts []Utterance, opts GroupOptions) []Thread {
	sorted := SortByTime(utts)
	groups := make(map[string]*Thread)
	add := func(key, root string, u Utterance) {
		th, ok := groups[key]
		if !ok {
			th = &Thread{ID: key, Root: root}
			groups[key] = th
		}
		th.Utterances = append(th.Utterances, u)
	}

	if opts.IncludeRoot {
		for _, u := range sorted {
			add(u.Root, u.Root, u)
		}
	} else {
		byID := make(map[string]Utterance, len(sorted))
		for _, u := range sorted {
			byID[u.ID] = u
		}
		for _, u := range sorted {
			if tlc, ok := topLevel(u, byID); ok {
				add(tlc, u.Root, u)
			}
		}
	}

	out := make([]Thread, 0, len(groups))
	for _, th := range groups {
		if opts.PrefixLen > 0 && len(th.Utterances) > opts.PrefixLen {
			th.Utterances = th.Utterances[:opts.PrefixLen]
		}
		out = append(out, *th)
	}
	slices.SortFunc(out, func(a, b Thread) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// topLevel follows reply links up to the comment that answers the root.
func topLevel(u Utterance, byID map[string]Utterance) (string, bool) {
	seen := map[string]bool{}
	for cur := u; !seen[cur.ID]; {
		seen[cur.ID] = true
		if cur.ReplyTo == "" {
			return "", false
		}
		if cur.ReplyTo == cur.Root {
			return cur.ID, true
		}
		parent, ok := byID[cur.ReplyTo]
		if !ok {
			return "", false
		}
		cur = parent
	}
	return "", false
}

// Fingerprint hashes the structure of a thread: ids, speakers, reply
// targets and timestamps, in order.
func Fingerprint(t Thread) uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(t.ID)
	for _, u := range t.Utterances {
		_, _ = h.WriteString("\x00" + u.ID + "\x00" + u.Speaker + "\x00" + u.ReplyTo + "\x00")
		_, _ = h.WriteString(strconv.FormatInt(u.Timestamp, 10))
	}
	return h.Sum64()
}
