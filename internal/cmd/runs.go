package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/store"
)

func init() {
	runsCmd.PersistentFlags().StringP("store", "s", "", "SQLite database (overrides store.path)")

	runsListCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs (0 for all)")

	runsExportCmd.Flags().StringP("file", "f", "", "Output file (default: stdout)")

	runsCmd.AddCommand(
		runsListCmd,
		runsShowCmd,
		runsExportCmd,
	)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Stored feature runs",
	Long:  "Commands for inspecting feature runs recorded in the SQLite store",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Example: heredoc.Doc(`
		# Most recent runs
		hyperconvo runs list --store features.db

		# Every run as JSON
		hyperconvo runs list -n 0 -o json
	`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		st, cleanup, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := st.ListRuns(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		return render(cmd, runs, func(w io.Writer) error {
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			heading(w, "Runs")
			fmt.Fprintln(w, "====")
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %s  %4d threads  %s\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Threads, r.Corpus)
			}
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the threads of a run",
	Example: heredoc.Doc(`
		hyperconvo runs show 0b4d6c1e-3f5a-4e8b-9a61-2f7d0c9e1a53 --store features.db
	`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, cleanup, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		threads, err := st.ThreadFeatures(cmd.Context(), run.ID)
		if err != nil {
			return err
		}

		out := struct {
			Run     *store.Run           `json:"run" yaml:"run"`
			Threads []store.StoredThread `json:"threads" yaml:"threads"`
		}{run, threads}

		return render(cmd, out, func(w io.Writer) error {
			heading(w, "Run "+run.ID)
			fmt.Fprintf(w, "Corpus:   %s\n", run.Corpus)
			fmt.Fprintf(w, "Created:  %s\n", run.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(w, "Threads:  %d\n", run.Threads)
			fmt.Fprintf(w, "Options:  mid-thread=%v null-model=%v seed=%d\n",
				run.Config.Motifs.MidThread, run.Config.Motifs.NullModel, run.Config.Motifs.Seed)
			fmt.Fprintln(w)
			for _, t := range threads {
				fmt.Fprintf(w, "  %-24s %016x  %3d utterances  %3d participants\n",
					t.ThreadID, t.Fingerprint, t.Utterances, t.Participants)
			}
			return nil
		})
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run as JSON Lines",
	Long:  "Write one JSON object per thread with its flat feature map",
	Example: heredoc.Doc(`
		# Export to stdout
		hyperconvo runs export 0b4d6c1e-3f5a-4e8b-9a61-2f7d0c9e1a53

		# Export to file
		hyperconvo runs export 0b4d6c1e-3f5a-4e8b-9a61-2f7d0c9e1a53 -f features.jsonl
	`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		st, cleanup, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		threads, err := st.ThreadFeatures(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if file != "" {
			f, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		encoder := json.NewEncoder(w)
		for _, t := range threads {
			row := struct {
				ThreadID string         `json:"thread_id"`
				Features map[string]int `json:"features"`
			}{t.ThreadID, t.Features}
			if err := encoder.Encode(row); err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
		}

		if file != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d threads to %s\n", len(threads), file)
		}
		return nil
	},
}

// openStore opens the feature store named by --store or the configuration.
func openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	s, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}

	path, _ := cmd.Flags().GetString("store")
	if path == "" {
		path = s.cfg.Store.Path
	}
	if path == "" {
		s.Close()
		return nil, nil, fmt.Errorf("no store configured: pass --store or set store.path")
	}

	st, err := store.Open(cmd.Context(), store.Options{Path: path, Logger: s.logger})
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	cleanup := func() {
		st.Close()
		s.Close()
	}
	return st, cleanup, nil
}
