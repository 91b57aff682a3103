// Package corpus reads utterance records from JSON Lines or JSON array input.
package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/config"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/thread"
)

// ErrMalformed is returned for a record that is not valid JSON or lacks a
// usable field.
var ErrMalformed = errors.New("malformed record")

// RecordError locates a bad record. Line is the input line for JSON Lines
// and the array position (from 1) for JSON arrays.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return "record " + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

func (e *RecordError) Unwrap() error { return e.Err }

// Loader decodes utterances using configurable field paths.
type Loader struct {
	cfg    config.CorpusConfig
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger uses slog.Default().
func NewLoader(cfg config.CorpusConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// LoadFile reads and validates every utterance in the file at path.
func (l *Loader) LoadFile(path string) ([]thread.Utterance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	utts, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return utts, nil
}

// Load reads and validates every utterance in r.
func (l *Loader) Load(r io.Reader) ([]thread.Utterance, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	format := l.cfg.Format
	if format == "" || format == "auto" {
		format = "jsonl"
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
			format = "json"
		}
	}

	var utts []thread.Utterance
	switch format {
	case "json":
		utts, err = l.decodeArray(data)
	case "jsonl":
		utts, err = l.decodeLines(data)
	default:
		return nil, fmt.Errorf("unknown corpus format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if err := thread.ValidateAll(utts); err != nil {
		return nil, fmt.Errorf("validate corpus: %w", err)
	}
	l.logger.Debug("corpus loaded", "utterances", len(utts), "format", format)
	return utts, nil
}

func (l *Loader) decodeArray(data []byte) ([]thread.Utterance, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("corpus array: %w", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("corpus is not a JSON array: %w", ErrMalformed)
	}

	var (
		utts []thread.Utterance
		err  error
		pos  int
	)
	root.ForEach(func(_, rec gjson.Result) bool {
		pos++
		var u thread.Utterance
		if u, err = l.decode(rec); err != nil {
			err = &RecordError{Line: pos, Err: err}
			return false
		}
		utts = append(utts, u)
		return true
	})
	return utts, err
}

func (l *Loader) decodeLines(data []byte) ([]thread.Utterance, error) {
	var utts []thread.Utterance
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		if !gjson.ValidBytes(raw) {
			return nil, &RecordError{Line: line, Err: ErrMalformed}
		}
		u, err := l.decode(gjson.ParseBytes(raw))
		if err != nil {
			return nil, &RecordError{Line: line, Err: err}
		}
		utts = append(utts, u)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	return utts, nil
}

func (l *Loader) decode(rec gjson.Result) (thread.Utterance, error) {
	if !rec.IsObject() {
		return thread.Utterance{}, fmt.Errorf("record is not an object: %w", ErrMalformed)
	}
	f := l.cfg.Fields
	u := thread.Utterance{
		ID:      rec.Get(f.ID).String(),
		Speaker: rec.Get(f.Speaker).String(),
		Root:    rec.Get(f.Root).String(),
	}
	if f.ReplyTo != "" {
		u.ReplyTo = rec.Get(f.ReplyTo).String()
	}
	if f.Text != "" {
		u.Text = rec.Get(f.Text).String()
	}
	// A record without a reply target and without a root starts its own
	// conversation.
	if u.Root == "" && u.ReplyTo == "" {
		u.Root = u.ID
	}

	ts, err := timestamp(rec.Get(f.Timestamp))
	if err != nil {
		return thread.Utterance{}, fmt.Errorf("utterance %q: %w", u.ID, err)
	}
	u.Timestamp = ts
	return u, nil
}

// timestamp accepts unix seconds as a number or numeric string, or an
// RFC 3339 string.
func timestamp(v gjson.Result) (int64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Int(), nil
	case gjson.String:
		if n, err := strconv.ParseInt(v.Str, 10, 64); err == nil {
			return n, nil
		}
		t, err := time.Parse(time.RFC3339, v.Str)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", v.Str, ErrMalformed)
		}
		return t.Unix(), nil
	default:
		return 0, fmt.Errorf("missing timestamp: %w", ErrMalformed)
	}
}
