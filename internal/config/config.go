// Package config holds the settings of the motif pipeline and its CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	// Threads controls how a corpus is cut into threads.
	Threads ThreadsConfig `json:"threads" yaml:"threads" jsonschema:"description=Thread grouping settings"`

	// Motifs controls motif extraction.
	Motifs MotifsConfig `json:"motifs" yaml:"motifs" jsonschema:"description=Motif extraction settings"`

	// Corpus describes the input records.
	Corpus CorpusConfig `json:"corpus" yaml:"corpus" jsonschema:"description=Corpus input settings"`

	// Store configures the feature database.
	Store StoreConfig `json:"store" yaml:"store" jsonschema:"description=Feature store settings"`

	// Log configures logging.
	Log LogConfig `json:"log" yaml:"log" jsonschema:"description=Logging settings"`
}

// ThreadsConfig controls thread grouping.
type ThreadsConfig struct {
	// PrefixLen keeps only the first utterances of each thread.
	PrefixLen int `json:"prefix_len" yaml:"prefix_len" jsonschema:"description=Utterances kept per thread (0 keeps all),minimum=0,default=10"`

	// MinThreadLen skips shorter threads.
	MinThreadLen int `json:"min_thread_len" yaml:"min_thread_len" jsonschema:"description=Threads with fewer utterances are skipped,minimum=0,default=10"`

	// IncludeRoot groups by conversation root instead of by top-level comment.
	IncludeRoot bool `json:"include_root" yaml:"include_root" jsonschema:"description=Group threads by conversation root,default=true"`
}

// MotifsConfig controls motif extraction.
type MotifsConfig struct {
	// MaxParticipants skips threads with more speakers. Enumeration is cubic
	// in the number of participants.
	MaxParticipants int `json:"max_participants" yaml:"max_participants" jsonschema:"description=Threads with more participants are skipped,minimum=3,default=100"`

	// MidThread also extracts features with the thread root left out.
	MidThread bool `json:"mid_thread" yaml:"mid_thread" jsonschema:"description=Also extract mid-thread features without the root,default=true"`

	// NullModel also extracts features of a randomized copy of each thread.
	NullModel bool `json:"null_model" yaml:"null_model" jsonschema:"description=Also extract features of a randomized thread,default=false"`

	// Seed drives the null-model randomizer.
	Seed uint64 `json:"seed" yaml:"seed" jsonschema:"description=Seed for the null-model randomizer,default=1"`

	// Parallelism bounds the threads processed at once.
	Parallelism int `json:"parallelism" yaml:"parallelism" jsonschema:"description=Threads processed concurrently,minimum=1,default=4"`
}

// CorpusConfig describes the input records.
type CorpusConfig struct {
	// Format is "jsonl", "json" (a top-level array) or "auto".
	Format string `json:"format" yaml:"format" jsonschema:"description=Input format,enum=auto,enum=jsonl,enum=json,default=auto"`

	// Fields locates each utterance field inside a record.
	Fields FieldPaths `json:"fields" yaml:"fields" jsonschema:"description=GJSON paths of utterance fields"`
}

// FieldPaths are GJSON paths into one input record.
type FieldPaths struct {
	ID        string `json:"id" yaml:"id" jsonschema:"description=Path of the utterance id,default=id"`
	Speaker   string `json:"speaker" yaml:"speaker" jsonschema:"description=Path of the speaker id,default=speaker,example=user.name"`
	ReplyTo   string `json:"reply_to" yaml:"reply_to" jsonschema:"description=Path of the reply target id,default=reply_to"`
	Root      string `json:"root" yaml:"root" jsonschema:"description=Path of the conversation root id,default=root"`
	Timestamp string `json:"timestamp" yaml:"timestamp" jsonschema:"description=Path of the timestamp (unix seconds or RFC 3339),default=timestamp"`
	Text      string `json:"text" yaml:"text" jsonschema:"description=Path of the utterance text,default=text"`
}

// StoreConfig configures the feature database.
type StoreConfig struct {
	// Path is the SQLite file. Empty keeps the database in memory.
	Path string `json:"path,omitempty" yaml:"path,omitempty" jsonschema:"description=SQLite database file (empty for in-memory),example=hyperconvo.db"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `json:"level" yaml:"level" jsonschema:"description=Minimum log level,enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// Format is "text" or "json".
	Format string `json:"format" yaml:"format" jsonschema:"description=Log output format,enum=text,enum=json,default=text"`

	// File sends logs to a rotated file instead of stderr.
	File string `json:"file,omitempty" yaml:"file,omitempty" jsonschema:"description=Log file (rotated); empty logs to stderr"`

	MaxSizeMB  int `json:"max_size_mb" yaml:"max_size_mb" jsonschema:"description=Rotate after this many megabytes,default=10"`
	MaxBackups int `json:"max_backups" yaml:"max_backups" jsonschema:"description=Rotated files kept,default=3"`
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days" jsonschema:"description=Days rotated files are kept,default=28"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Threads: ThreadsConfig{
			PrefixLen:    10,
			MinThreadLen: 10,
			IncludeRoot:  true,
		},
		Motifs: MotifsConfig{
			MaxParticipants: 100,
			MidThread:       true,
			Seed:            1,
			Parallelism:     4,
		},
		Corpus: CorpusConfig{
			Format: "auto",
			Fields: FieldPaths{
				ID:        "id",
				Speaker:   "speaker",
				ReplyTo:   "reply_to",
				Root:      "root",
				Timestamp: "timestamp",
				Text:      "text",
			},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds a configuration from defaults, then the YAML file at path (if
// it exists), then a .env file in the working directory, then HYPERCONVO_*
// environment variables. The result is validated.
func Load(path string) (Config, error) {
	return load(path, ".env", os.LookupEnv)
}

func load(path, envFile string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	env, err := readDotEnv(envFile)
	if err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg, func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Threads.PrefixLen < 0 {
		errs = append(errs, fmt.Errorf("threads.prefix_len must be >= 0, got %d", c.Threads.PrefixLen))
	}
	if c.Threads.MinThreadLen < 0 {
		errs = append(errs, fmt.Errorf("threads.min_thread_len must be >= 0, got %d", c.Threads.MinThreadLen))
	}
	if c.Motifs.MaxParticipants < 3 {
		errs = append(errs, fmt.Errorf("motifs.max_participants must be >= 3, got %d", c.Motifs.MaxParticipants))
	}
	if c.Motifs.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("motifs.parallelism must be >= 1, got %d", c.Motifs.Parallelism))
	}
	if !slices.Contains([]string{"auto", "jsonl", "json"}, c.Corpus.Format) {
		errs = append(errs, fmt.Errorf("corpus.format must be auto, jsonl or json, got %q", c.Corpus.Format))
	}
	f := c.Corpus.Fields
	for name, path := range map[string]string{"id": f.ID, "speaker": f.Speaker, "timestamp": f.Timestamp, "root": f.Root} {
		if path == "" {
			errs = append(errs, fmt.Errorf("corpus.fields.%s must be set", name))
		}
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
