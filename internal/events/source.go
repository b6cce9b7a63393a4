package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Source produces a batch of normalized events.
type Source interface {
	Load(ctx context.Context) (*Batch, error)
}

// rawEvent mirrors the on-disk shape before validation.
type rawEvent struct {
	Time      string `json:"time"`
	SessionID string `json:"session_id"`
	Domain    string `json:"domain"`
	Query     string `json:"query"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

// FileSource reads events from a JSON array or JSONL file.
type FileSource struct {
	Path   string
	Logger *zap.Logger
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{Path: path, Logger: logger}
}

// Load reads and validates every event in the file.
func (f *FileSource) Load(ctx context.Context) (*Batch, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer file.Close()

	batch, err := Decode(ctx, file)
	if err != nil {
		return nil, err
	}
	if batch.Dropped > 0 {
		f.Logger.Warn("dropped malformed events",
			zap.String("path", f.Path),
			zap.Int("dropped", batch.Dropped),
			zap.Int("kept", len(batch.Events)))
	}
	return batch, nil
}

// Decode reads events from r. A leading '[' selects JSON array mode,
// anything else is treated as JSONL. Malformed rows are skipped and counted.
func Decode(ctx context.Context, r io.Reader) (*Batch, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return &Batch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	if first == '[' {
		return decodeArray(ctx, br)
	}
	return decodeLines(ctx, br)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := br.ReadByte(); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}

func decodeArray(ctx context.Context, r io.Reader) (*Batch, error) {
	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read events array: %w", err)
	}

	batch := &Batch{}
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			// The array itself is broken; nothing after this point is recoverable.
			batch.Dropped++
			return batch, nil
		}
		batch.add(raw)
	}
	return batch, nil
}

func decodeLines(ctx context.Context, r io.Reader) (*Batch, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	batch := &Batch{}
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		batch.add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan events: %w", err)
	}
	return batch, nil
}

func (b *Batch) add(data []byte) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		b.Dropped++
		return
	}
	e, ok := raw.normalize()
	if !ok {
		b.Dropped++
		return
	}
	b.Events = append(b.Events, e)
}

func (r rawEvent) normalize() (Event, bool) {
	sid := strings.TrimSpace(r.SessionID)
	if sid == "" {
		return Event{}, false
	}
	t, ok := parseTime(r.Time)
	if !ok {
		return Event{}, false
	}
	return Event{
		Time:      t,
		SessionID: sid,
		Domain:    strings.ToLower(strings.TrimSpace(r.Domain)),
		Query:     strings.TrimSpace(r.Query),
		Title:     strings.TrimSpace(r.Title),
		URL:       strings.TrimSpace(r.URL),
	}, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
