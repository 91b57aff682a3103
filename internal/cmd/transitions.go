package cmd

import (
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/features"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/lattice"
)

func init() {
	transitionsCmd.Flags().String("view", "full", "Thread view to pool (full, mid-thread, null-model)")
}

type transitionRow struct {
	Transition  lattice.Transition `json:"transition" yaml:"transition"`
	Count       int                `json:"count" yaml:"count"`
	Probability float64            `json:"probability" yaml:"probability"`
}

var transitionsCmd = &cobra.Command{
	Use:   "transitions <corpus>",
	Short: "Corpus-level motif transition probabilities",
	Long: heredoc.Doc(`
		Pool the transition tallies of every eligible thread and normalize them per
		parent motif. A parent's probabilities cover staying put and every child one
		reply away.
	`),
	Example: heredoc.Doc(`
		# Pooled probabilities over full threads
		hyperconvo transitions corpus.jsonl

		# Over randomized threads, as YAML
		hyperconvo transitions corpus.jsonl --view null-model -o yaml
	`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, _ := cmd.Flags().GetString("view")

		s, err := setup(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		switch view {
		case "full":
		case "mid-thread":
			s.cfg.Motifs.MidThread = true
		case "null-model":
			s.cfg.Motifs.NullModel = true
		default:
			return fmt.Errorf("unknown view %q", view)
		}

		threads, err := s.loadThreads(args[0])
		if err != nil {
			return err
		}
		tfs, err := features.NewExtractor(features.ExtractorConfig{
			Motifs:       s.cfg.Motifs,
			MinThreadLen: s.cfg.Threads.MinThreadLen,
			Logger:       s.logger,
		}).Extract(cmd.Context(), threads)
		if err != nil {
			return fmt.Errorf("extract features: %w", err)
		}

		pooled := pool(tfs, view)
		probs := lattice.Probabilities(pooled.Transitions)
		rows := make([]transitionRow, 0, len(probs))
		for _, tr := range lattice.Transitions() {
			rows = append(rows, transitionRow{Transition: tr, Count: pooled.Transitions[tr], Probability: probs[tr]})
		}

		return render(cmd, rows, func(w io.Writer) error {
			heading(w, fmt.Sprintf("Transitions over %d threads (%s)", len(tfs), view))
			fmt.Fprintln(w)
			for _, r := range rows {
				fmt.Fprintf(w, "  %-62s %8d  %.4f\n", r.Transition, r.Count, r.Probability)
			}
			return nil
		})
	},
}

func pool(tfs []features.ThreadFeatures, view string) lattice.Result {
	if view == "full" {
		return features.Pool(tfs)
	}
	r := lattice.NewResult()
	for _, tf := range tfs {
		v := tf.MidThread
		if view == "null-model" {
			v = tf.NullModel
		}
		if v != nil {
			r.Merge(*v)
		}
	}
	return r
}
