package thread

import (
	"fmt"
	"math/rand/v2"
)

// Randomize builds a null-model thread with the same speaker arrival order
// as t. Every utterance after the first answers a random earlier utterance
// by another speaker that it has not answered yet, or the first utterance
// when no such candidate exists. Timestamps are the arrival positions.
func Randomize(t Thread, rng *rand.Rand) Thread {
	if len(t.Utterances) == 0 {
		return Thread{ID: t.ID, Root: t.Root}
	}
	order := SortByTime(t.Utterances)

	root := Utterance{ID: t.ID, Speaker: order[0].Speaker, Root: t.ID}
	prev := []Utterance{root}
	answered := map[string]map[string]bool{root.ID: {}}

	for i, u := range order[1:] {
		var candidates []Utterance
		for _, p := range prev {
			if p.Speaker != u.Speaker && !answered[p.ID][u.Speaker] {
				candidates = append(candidates, p)
			}
		}
		target := prev[0]
		if len(candidates) > 0 {
			target = candidates[rng.IntN(len(candidates))]
		}
		answered[target.ID][u.Speaker] = true

		next := Utterance{
			ID:        fmt.Sprintf("%s_%d", t.ID, i),
			Speaker:   u.Speaker,
			ReplyTo:   target.ID,
			Root:      t.ID,
			Timestamp: int64(i + 1),
		}
		prev = append(prev, next)
		answered[next.ID] = map[string]bool{}
	}
	return Thread{ID: t.ID, Root: t.ID, Utterances: prev}
}
