package events

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"time":"2024-03-01T10:00:00Z","session_id":"a","domain":"IKEA.com","query":"kitchen island"}`,
		`not json`,
		`{"time":"2024-03-01T10:05:00Z","session_id":"","domain":"ikea.com"}`,
		`{"time":"yesterday","session_id":"a","domain":"ikea.com"}`,
		``,
		`{"time":"2024-03-01T09:59:00Z","session_id":"a","domain":"b.com","title":"B"}`,
	}, "\n")

	batch, err := Decode(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Dropped)
	require.Len(t, batch.Events, 2)
	assert.Equal(t, "ikea.com", batch.Events[0].Domain)
	assert.True(t, batch.Events[0].HasQuery())

	sessions := batch.Sessions()
	require.Len(t, sessions, 1)
	// Sorted by time within the session.
	assert.Equal(t, "b.com", sessions[0].Events[0].Domain)
}

func TestDecodeArray(t *testing.T) {
	input := `[
		{"time":"2024-03-01T10:00:00Z","session_id":"s1","domain":"x.com"},
		{"time":"2024-03-01T10:00:00Z","session_id":"s2","domain":"y.com","query":"q"},
		{"time":"","session_id":"s3","domain":"z.com"}
	]`

	batch, err := Decode(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Dropped)
	assert.Len(t, batch.Events, 2)
}

func TestDecodeEmpty(t *testing.T) {
	batch, err := Decode(context.Background(), strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, batch.Events)
	assert.Zero(t, batch.Dropped)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	data := `{"time":"2024-03-01T10:00:00Z","session_id":"a","domain":"x.com"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	batch, err := NewFileSource(path, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch.Events, 1)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing"), nil).Load(context.Background())
	assert.Error(t, err)
}

func TestGroupKeepsFirstSeenOrder(t *testing.T) {
	evts := []Event{
		{SessionID: "b", Domain: "1"},
		{SessionID: "a", Domain: "2"},
		{SessionID: "b", Domain: "3"},
		{SessionID: "", Domain: "4"},
	}
	sessions := Group(evts)
	require.Len(t, sessions, 2)
	assert.Equal(t, "b", sessions[0].ID)
	assert.Len(t, sessions[0].Events, 2)
	assert.Equal(t, "a", sessions[1].ID)
}

func TestTopCounts(t *testing.T) {
	counts := map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}
	top := TopCounts(counts, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "c", top[0].Key)
	assert.Equal(t, "a", top[1].Key)
	assert.Equal(t, "b", top[2].Key)
}
