package cmd

import (
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/config"
)

func init() {
	configCmd.AddCommand(
		configShowCmd,
		configSchemaCmd,
		configValidateCmd,
	)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for inspecting the hyperconvo configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  "Display the configuration after merging defaults, the config file, .env and the environment",
	Example: heredoc.Doc(`
		# Show config in human-readable format
		hyperconvo config show

		# Show config as YAML, ready to edit
		hyperconvo config show -o yaml > hyperconvo.yaml
	`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		cfg := s.cfg

		return render(cmd, cfg, func(w io.Writer) error {
			heading(w, "Effective Configuration")
			fmt.Fprintln(w, "=======================")
			fmt.Fprintln(w)

			fmt.Fprintln(w, "Threads:")
			fmt.Fprintf(w, "  Prefix Length:     %d\n", cfg.Threads.PrefixLen)
			fmt.Fprintf(w, "  Min Length:        %d\n", cfg.Threads.MinThreadLen)
			fmt.Fprintf(w, "  Include Root:      %v\n", cfg.Threads.IncludeRoot)
			fmt.Fprintln(w)

			fmt.Fprintln(w, "Motifs:")
			fmt.Fprintf(w, "  Max Participants:  %d\n", cfg.Motifs.MaxParticipants)
			fmt.Fprintf(w, "  Mid-thread:        %v\n", cfg.Motifs.MidThread)
			fmt.Fprintf(w, "  Null Model:        %v (seed %d)\n", cfg.Motifs.NullModel, cfg.Motifs.Seed)
			fmt.Fprintf(w, "  Parallelism:       %d\n", cfg.Motifs.Parallelism)
			fmt.Fprintln(w)

			fmt.Fprintln(w, "Corpus:")
			fmt.Fprintf(w, "  Format:            %s\n", cfg.Corpus.Format)
			f := cfg.Corpus.Fields
			fmt.Fprintf(w, "  Fields:            id=%s speaker=%s reply_to=%s root=%s timestamp=%s text=%s\n",
				f.ID, f.Speaker, f.ReplyTo, f.Root, f.Timestamp, f.Text)
			fmt.Fprintln(w)

			store := cfg.Store.Path
			if store == "" {
				store = "(none)"
			}
			fmt.Fprintf(w, "Store:               %s\n", store)

			logTo := cfg.Log.File
			if logTo == "" {
				logTo = "stderr"
			}
			fmt.Fprintf(w, "Log:                 %s %s to %s\n", cfg.Log.Level, cfg.Log.Format, logTo)
			return nil
		})
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON schema",
	Example: heredoc.Doc(`
		hyperconvo config schema > hyperconvo.schema.json
	`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Load the configuration and report every invalid setting",
	Example: heredoc.Doc(`
		hyperconvo config validate -c hyperconvo.yaml
	`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if _, err := config.Load(path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ Configuration error: %v\n", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
		return nil
	},
}
