package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/features"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/store"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/thread"
)

func init() {
	featuresCmd.Flags().StringP("store", "s", "", "SQLite database to record the run in (overrides store.path)")
	featuresCmd.Flags().Bool("null-model", false, "Also extract features of randomized threads")
	featuresCmd.Flags().Uint64("seed", 0, "Null-model seed (overrides motifs.seed)")
	featuresCmd.Flags().Bool("skip-seen", false, "Skip threads already stored by an earlier run")
}

// featuresReport is the output of the features command.
type featuresReport struct {
	RunID   string                    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Threads []features.ThreadFeatures `json:"threads" yaml:"threads"`
}

var featuresCmd = &cobra.Command{
	Use:   "features <corpus>",
	Short: "Extract motif features per thread",
	Long:  "Extract count, latent count and transition features for every eligible thread of a corpus",
	Example: heredoc.Doc(`
		# Feature vectors as JSON
		hyperconvo features corpus.jsonl -o json

		# Include null-model features and record the run
		hyperconvo features corpus.jsonl --null-model --store features.db

		# Only threads not seen by earlier runs
		hyperconvo features corpus.jsonl --store features.db --skip-seen
	`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		skipSeen, _ := cmd.Flags().GetBool("skip-seen")

		s, err := setup(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if cmd.Flags().Changed("null-model") {
			s.cfg.Motifs.NullModel, _ = cmd.Flags().GetBool("null-model")
		}
		if cmd.Flags().Changed("seed") {
			s.cfg.Motifs.Seed, _ = cmd.Flags().GetUint64("seed")
		}
		if storePath != "" {
			s.cfg.Store.Path = storePath
		}
		if skipSeen && s.cfg.Store.Path == "" {
			return fmt.Errorf("--skip-seen needs a store")
		}

		threads, err := s.loadThreads(args[0])
		if err != nil {
			return err
		}

		var st *store.Store
		if s.cfg.Store.Path != "" {
			st, err = store.Open(cmd.Context(), store.Options{Path: s.cfg.Store.Path, Logger: s.logger})
			if err != nil {
				return err
			}
			defer st.Close()
		}

		if skipSeen {
			threads, err = unseen(cmd, st, threads)
			if err != nil {
				return err
			}
		}

		extractor := features.NewExtractor(features.ExtractorConfig{
			Motifs:       s.cfg.Motifs,
			MinThreadLen: s.cfg.Threads.MinThreadLen,
			Logger:       s.logger,
		})
		tfs, err := extractor.Extract(cmd.Context(), threads)
		if err != nil {
			return fmt.Errorf("extract features: %w", err)
		}

		report := featuresReport{Threads: tfs}
		if st != nil {
			run, err := st.CreateRun(cmd.Context(), store.RunParams{Corpus: args[0], Config: s.cfg})
			if err != nil {
				return err
			}
			for _, tf := range tfs {
				if err := st.SaveThread(cmd.Context(), run.ID, tf); err != nil {
					return err
				}
			}
			report.RunID = run.ID
			s.logger.Info("run stored", "run", run.ID, "threads", len(tfs), "path", st.Path())
		}

		return render(cmd, report, func(w io.Writer) error {
			printFeatures(w, report)
			return nil
		})
	},
}

func unseen(cmd *cobra.Command, st *store.Store, threads []thread.Thread) ([]thread.Thread, error) {
	var out []thread.Thread
	for _, th := range threads {
		seen, err := st.HasFingerprint(cmd.Context(), thread.Fingerprint(th))
		if err != nil {
			return nil, err
		}
		if !seen {
			out = append(out, th)
		}
	}
	return out, nil
}

func printFeatures(w io.Writer, report featuresReport) {
	heading(w, "Thread Features")
	fmt.Fprintln(w, "===============")
	if report.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", report.RunID)
	}
	fmt.Fprintln(w)

	if len(report.Threads) == 0 {
		fmt.Fprintln(w, "No eligible threads.")
		return
	}
	for _, tf := range report.Threads {
		fmt.Fprintf(w, "%s  (%d utterances, %d participants)\n", tf.ThreadID, tf.Utterances, tf.Participants)
		for _, name := range slices.Sorted(maps.Keys(tf.Features)) {
			if v := tf.Features[name]; v != 0 {
				fmt.Fprintf(w, "  %-60s %d\n", name, v)
			}
		}
		fmt.Fprintln(w)
	}
}
