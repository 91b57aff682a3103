package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HYPERCONVO_"

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

// applyEnv overrides cfg from HYPERCONVO_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	integer("PREFIX_LEN", &cfg.Threads.PrefixLen)
	integer("MIN_THREAD_LEN", &cfg.Threads.MinThreadLen)
	boolean("INCLUDE_ROOT", &cfg.Threads.IncludeRoot)
	integer("MAX_PARTICIPANTS", &cfg.Motifs.MaxParticipants)
	boolean("MID_THREAD", &cfg.Motifs.MidThread)
	boolean("NULL_MODEL", &cfg.Motifs.NullModel)
	integer("PARALLELISM", &cfg.Motifs.Parallelism)
	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSEED: %w", EnvPrefix, err))
		} else {
			cfg.Motifs.Seed = seed
		}
	}
	str("CORPUS_FORMAT", &cfg.Corpus.Format)
	str("STORE_PATH", &cfg.Store.Path)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)
	return errors.Join(errs...)
}
