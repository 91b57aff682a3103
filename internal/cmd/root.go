// Package cmd implements the hyperconvo command line.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"charm.land/lipgloss/v2"
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/config"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/corpus"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/logging"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/thread"
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "hyperconvo.yaml", "Configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format (text, json, yaml)")

	rootCmd.AddCommand(
		motifsCmd,
		featuresCmd,
		transitionsCmd,
		latticeCmd,
		runsCmd,
		configCmd,
	)
}

var rootCmd = &cobra.Command{
	Use:   "hyperconvo",
	Short: "Triad motif features of conversation threads",
	Long: heredoc.Doc(`
		hyperconvo models each conversation thread as a hypergraph of speakers and
		their utterances, enumerates the sixteen three-speaker reply motifs and
		turns them into count, latent count and transition features.
	`),
	SilenceUsage: true,
}

// Root returns the root command.
func Root() *cobra.Command {
	return rootCmd
}

// session is the configuration and logger shared by one command invocation.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	closer io.Closer
}

func (s *session) Close() error {
	return s.closer.Close()
}

// setup loads the configuration and builds the logger for a command.
func setup(cmd *cobra.Command) (*session, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	logger, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, closer: closer}, nil
}

// loadThreads reads a corpus and groups it into threads.
func (s *session) loadThreads(path string) ([]thread.Thread, error) {
	utts, err := corpus.NewLoader(s.cfg.Corpus, s.logger).LoadFile(path)
	if err != nil {
		return nil, err
	}
	threads := thread.Group(utts, thread.GroupOptions{
		PrefixLen:   s.cfg.Threads.PrefixLen,
		IncludeRoot: s.cfg.Threads.IncludeRoot,
	})
	s.logger.Info("corpus loaded", "path", path, "utterances", len(utts), "threads", len(threads))
	return threads, nil
}

// render writes v as JSON or YAML, or calls text for the text format.
func render(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	format, _ := cmd.Flags().GetString("output")
	w := cmd.OutOrStdout()

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	case "text", "":
		return text(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func heading(w io.Writer, title string) {
	lipgloss.Fprintln(w, headingStyle.Render(title))
}
