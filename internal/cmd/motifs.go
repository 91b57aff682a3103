package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/features"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/hypergraph"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/thread"
)

func init() {
	motifsCmd.Flags().StringP("thread", "t", "", "Only report the thread with this id")
	motifsCmd.Flags().StringP("type", "T", "", "List instances of this motif type (e.g. DYADIC)")
	motifsCmd.Flags().Bool("replay", false, "Include the replies that built each listed instance")
	motifsCmd.Flags().Bool("mid-thread", false, "Leave the thread root out of the graph")
}

// threadMotifs is the motif report of one thread.
type threadMotifs struct {
	ThreadID     string             `json:"thread_id" yaml:"thread_id"`
	Participants int                `json:"participants" yaml:"participants"`
	Graph        hypergraph.Stats   `json:"graph" yaml:"graph"`
	Counts       map[motif.Type]int `json:"counts" yaml:"counts"`
	Speakers     []participant      `json:"speakers" yaml:"speakers"`
	Instances    []instance         `json:"instances,omitempty" yaml:"instances,omitempty"`
}

// participant summarises one speaker's place in the thread graph.
type participant struct {
	Name       string `json:"name" yaml:"name"`
	Utterances int    `json:"utterances" yaml:"utterances"`
	// Sent and Received count speaker-to-speaker replies.
	Sent     int `json:"sent" yaml:"sent"`
	Received int `json:"received" yaml:"received"`
	// Answered is the number of distinct utterances the speaker replied to,
	// Answers the number of replies their own utterances drew.
	Answered int `json:"answered" yaml:"answered"`
	Answers  int `json:"answers" yaml:"answers"`
}

// instance is one triad with speaker names in role order. Weights holds the
// reply count behind each template edge.
type instance struct {
	ID      string       `json:"id" yaml:"id"`
	Type    motif.Type   `json:"type" yaml:"type"`
	Roles   [3]string    `json:"roles" yaml:"roles"`
	Weights []int        `json:"weights" yaml:"weights"`
	Path    []motif.Type `json:"path" yaml:"path"`
	Text    []string     `json:"text,omitempty" yaml:"text,omitempty"`
	Replay  []motif.Step `json:"replay,omitempty" yaml:"replay,omitempty"`
}

var motifsCmd = &cobra.Command{
	Use:   "motifs <corpus>",
	Short: "Count triad motifs per thread",
	Long:  "Build the hypergraph of every thread in a corpus and count its sixteen triad motifs",
	Example: heredoc.Doc(`
		# Motif counts of every thread
		hyperconvo motifs corpus.jsonl

		# Dyadic instances of one thread, with the replies that built them
		hyperconvo motifs corpus.jsonl -t t3_abc -T dyadic --replay

		# JSON output
		hyperconvo motifs corpus.jsonl -o json
	`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetString("thread")
		typeName, _ := cmd.Flags().GetString("type")
		replay, _ := cmd.Flags().GetBool("replay")
		midThread, _ := cmd.Flags().GetBool("mid-thread")

		var (
			listType motif.Type
			list     bool
		)
		if typeName != "" {
			t, err := motif.ParseType(typeName)
			if err != nil {
				return err
			}
			listType, list = t, true
		}

		s, err := setup(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		threads, err := s.loadThreads(args[0])
		if err != nil {
			return err
		}

		var reports []threadMotifs
		for _, th := range threads {
			if only != "" && th.ID != only {
				continue
			}
			if only == "" && th.Participants() > s.cfg.Motifs.MaxParticipants {
				s.logger.Warn("thread skipped", "thread", th.ID, "participants", th.Participants())
				continue
			}

			opts := thread.BuildOptions{}
			if midThread {
				opts.ExcludeID = th.ID
			}
			m, g, err := features.Motifs(cmd.Context(), th.Utterances, opts)
			if err != nil {
				return fmt.Errorf("thread %s: %w", th.ID, err)
			}

			report := threadMotifs{
				ThreadID:     th.ID,
				Participants: g.NumHypernodes(),
				Graph:        g.Stats(),
				Counts:       m.Counts(),
				Speakers:     participants(g),
			}
			if list {
				for _, tri := range m[listType] {
					report.Instances = append(report.Instances, describe(g, tri, replay))
				}
			}
			reports = append(reports, report)
		}
		if only != "" && len(reports) == 0 {
			return fmt.Errorf("thread %q not found", only)
		}

		return render(cmd, reports, func(w io.Writer) error {
			for _, r := range reports {
				printThreadMotifs(w, r)
			}
			return nil
		})
	},
}

func participants(g *hypergraph.Graph) []participant {
	sent := g.OutDegrees(true, true)
	received := g.InDegrees(true, true)

	out := make([]participant, 0, g.NumHypernodes())
	for _, h := range g.Hypernodes() {
		hn, err := g.Hypernode(h)
		if err != nil {
			continue
		}
		p := participant{
			Name:       hn.ID,
			Utterances: len(hn.Members),
			Sent:       sent[h],
			Received:   received[h],
			Answered:   len(g.OutgoingNodes(hypergraph.HyperRef(h))),
		}
		for _, n := range hn.Members {
			p.Answers += len(g.IncomingNodes(hypergraph.NodeRef(n)))
		}
		out = append(out, p)
	}
	return out
}

func describe(g *hypergraph.Graph, tri motif.Triad, replay bool) instance {
	inst := instance{
		ID:   fmt.Sprintf("%016x", tri.Key()),
		Type: tri.Type(),
		Path: tri.DevelopmentPath(),
	}
	roles := tri.Roles()
	for i, h := range roles {
		inst.Roles[i] = g.HypernodeName(h)
	}
	for _, rel := range tri.Type().Template() {
		from, to := hypergraph.HyperRef(roles[rel.From]), hypergraph.HyperRef(roles[rel.To])
		inst.Weights = append(inst.Weights, g.Multiplicity(from, to))
	}
	if replay {
		inst.Text = tri.Text()
		inst.Replay = tri.Replay()
	}
	return inst
}

func printThreadMotifs(w io.Writer, r threadMotifs) {
	heading(w, fmt.Sprintf("Thread %s", r.ThreadID))
	fmt.Fprintf(w, "  Participants: %d  Replies: %d\n", r.Participants, r.Graph.Hyperedges)
	for _, t := range motif.Types() {
		if n := r.Counts[t]; n > 0 {
			fmt.Fprintf(w, "  %-28s %d\n", t, n)
		}
	}
	if len(r.Speakers) > 0 {
		fmt.Fprintf(w, "\n  %-20s %5s %5s %5s %8s %7s\n", "Speaker", "Utts", "Sent", "Recv", "Answered", "Answers")
		for _, p := range r.Speakers {
			fmt.Fprintf(w, "  %-20s %5d %5d %5d %8d %7d\n", p.Name, p.Utterances, p.Sent, p.Received, p.Answered, p.Answers)
		}
	}
	for i, inst := range r.Instances {
		fmt.Fprintf(w, "\n  [%d] %s %s  R1=%s R2=%s R3=%s  weights=%v\n",
			i+1, inst.ID, inst.Type, inst.Roles[0], inst.Roles[1], inst.Roles[2], inst.Weights)
		path := make([]string, len(inst.Path))
		for j, t := range inst.Path {
			path[j] = t.String()
		}
		fmt.Fprintf(w, "      %s\n", strings.Join(path, " -> "))
		for _, st := range inst.Replay {
			fmt.Fprintf(w, "      %s -> %s: %s replied to %s at %d\n",
				st.From, st.To, st.Evidence.Speaker, st.Evidence.Target, st.Evidence.Timestamp)
		}
	}
	fmt.Fprintln(w)
}
