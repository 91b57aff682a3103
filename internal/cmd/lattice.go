package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/lattice"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
)

type latticeEntry struct {
	Type     motif.Type   `json:"type" yaml:"type"`
	Edges    []string     `json:"edges" yaml:"edges"`
	Children []motif.Type `json:"children" yaml:"children"`
}

var latticeCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Show the motif types and how they grow",
	Long:  "List every motif type with its edge template and the types one reply away",
	Example: heredoc.Doc(`
		hyperconvo lattice
		hyperconvo lattice -o json
	`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lat := lattice.Lattice()
		var entries []latticeEntry
		for _, t := range motif.Types() {
			entries = append(entries, latticeEntry{
				Type:     t,
				Edges:    t.Labels(),
				Children: lat[t],
			})
		}

		return render(cmd, entries, func(w io.Writer) error {
			heading(w, "Motif Lattice")
			fmt.Fprintln(w)
			for _, e := range entries {
				fmt.Fprintf(w, "%s  [%s]\n", e.Type, strings.Join(e.Edges, ", "))
				for _, c := range e.Children {
					fmt.Fprintf(w, "  -> %s\n", c)
				}
			}
			return nil
		})
	},
}
