// Package features turns conversation threads into motif feature vectors.
package features

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/config"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/hypergraph"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/lattice"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/thread"
)

// Feature name suffixes of the alternative thread views.
const (
	MidThreadSuffix = " over mid-thread"
	NullModelSuffix = " over null-model"
)

// ThreadFeatures are the motif statistics of one thread.
type ThreadFeatures struct {
	ThreadID     string `json:"thread_id" yaml:"thread_id"`
	Root         string `json:"root" yaml:"root"`
	Fingerprint  uint64 `json:"fingerprint" yaml:"fingerprint"`
	Utterances   int    `json:"utterances" yaml:"utterances"`
	Participants int    `json:"participants" yaml:"participants"`

	// Features is the flat name -> value map over every view.
	Features map[string]int `json:"features" yaml:"features"`

	Result    lattice.Result  `json:"result" yaml:"result"`
	MidThread *lattice.Result `json:"mid_thread,omitempty" yaml:"mid_thread,omitempty"`
	NullModel *lattice.Result `json:"null_model,omitempty" yaml:"null_model,omitempty"`
}

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	// Motifs holds participant limits, optional views and parallelism.
	Motifs config.MotifsConfig

	// MinThreadLen skips threads with fewer utterances.
	MinThreadLen int

	// Logger for skipped threads and progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Extractor computes ThreadFeatures for many threads concurrently.
type Extractor struct {
	cfg    ExtractorConfig
	logger *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Motifs.Parallelism < 1 {
		cfg.Motifs.Parallelism = 1
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract processes every eligible thread. Threads that are too short or
// have too many participants are skipped and logged. Results are ordered by
// thread id.
func (e *Extractor) Extract(ctx context.Context, threads []thread.Thread) ([]ThreadFeatures, error) {
	start := time.Now()
	results := make([]*ThreadFeatures, len(threads))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Motifs.Parallelism)
	for i, th := range threads {
		if ok, reason := e.eligible(th); !ok {
			e.logger.Debug("thread skipped", "thread", th.ID, "reason", reason,
				"utterances", th.Len(), "participants", th.Participants())
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tf, err := e.Thread(ctx, th)
			if err != nil {
				return err
			}
			results[i] = tf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ThreadFeatures, 0, len(results))
	for _, tf := range results {
		if tf != nil {
			out = append(out, *tf)
		}
	}
	slices.SortStableFunc(out, func(a, b ThreadFeatures) int { return cmp.Compare(a.ThreadID, b.ThreadID) })

	e.logger.Info("features extracted", "threads", len(threads), "kept", len(out),
		"duration", time.Since(start))
	return out, nil
}

func (e *Extractor) eligible(th thread.Thread) (bool, string) {
	if th.Len() < e.cfg.MinThreadLen {
		return false, "too short"
	}
	if n := th.Participants(); n > e.cfg.Motifs.MaxParticipants {
		return false, "too many participants"
	}
	return true, ""
}

// Thread computes the features of a single thread regardless of its size.
func (e *Extractor) Thread(ctx context.Context, th thread.Thread) (*ThreadFeatures, error) {
	tf := &ThreadFeatures{
		ThreadID:     th.ID,
		Root:         th.Root,
		Fingerprint:  thread.Fingerprint(th),
		Utterances:   th.Len(),
		Participants: th.Participants(),
		Features:     make(map[string]int),
	}

	full, err := aggregate(ctx, th.Utterances, thread.BuildOptions{})
	if err != nil {
		return nil, fmt.Errorf("thread %s: %w", th.ID, err)
	}
	tf.Result = full
	maps.Copy(tf.Features, lattice.Features(full, ""))

	if e.cfg.Motifs.MidThread {
		mid, err := aggregate(ctx, th.Utterances, thread.BuildOptions{ExcludeID: th.ID})
		if err != nil {
			return nil, fmt.Errorf("thread %s mid-thread: %w", th.ID, err)
		}
		tf.MidThread = &mid
		maps.Copy(tf.Features, lattice.Features(mid, MidThreadSuffix))
	}

	if e.cfg.Motifs.NullModel {
		rng := rand.New(rand.NewPCG(e.cfg.Motifs.Seed, tf.Fingerprint))
		null, err := aggregate(ctx, thread.Randomize(th, rng).Utterances, thread.BuildOptions{})
		if err != nil {
			return nil, fmt.Errorf("thread %s null model: %w", th.ID, err)
		}
		tf.NullModel = &null
		maps.Copy(tf.Features, lattice.Features(null, NullModelSuffix))
	}

	e.logger.Debug("thread processed", "thread", th.ID, "participants", tf.Participants,
		"triads", total(full.Counts))
	return tf, nil
}

func aggregate(ctx context.Context, utts []thread.Utterance, opts thread.BuildOptions) (lattice.Result, error) {
	m, _, err := Motifs(ctx, utts, opts)
	if err != nil {
		return lattice.Result{}, err
	}
	return lattice.Aggregate(m), nil
}

// Motifs builds the thread graph and extracts its motifs.
func Motifs(ctx context.Context, utts []thread.Utterance, opts thread.BuildOptions) (motif.Motifs, *hypergraph.Graph, error) {
	g, err := thread.Build(utts, opts)
	if err != nil {
		return nil, nil, err
	}
	m, err := motif.Extract(ctx, g)
	if err != nil {
		return nil, nil, err
	}
	return m, g, nil
}

// Pool sums the full-thread results of many threads.
func Pool(tfs []ThreadFeatures) lattice.Result {
	r := lattice.NewResult()
	for _, tf := range tfs {
		r.Merge(tf.Result)
	}
	return r
}

func total(counts map[motif.Type]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
