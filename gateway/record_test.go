package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPreservesFieldOrder(t *testing.T) {
	rec := NewRecord()
	rec.Set("zebra", 1)
	rec.Set("apple", 2)
	rec.Set("mango", 3)

	assert.Equal(t, []string{"zebra", "apple", "mango"}, rec.Keys())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":1,"apple":2,"mango":3}`, string(data))
}

func TestRecordOverwriteKeepsPosition(t *testing.T) {
	rec := NewRecord()
	rec.Set("a", 1)
	rec.Set("b", 2)
	rec.Set("a", 10)

	assert.Equal(t, []string{"a", "b"}, rec.Keys())
	v, ok := rec.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestRecordJSONRoundTrip(t *testing.T) {
	rec := NewRecord()
	rec.Set("id", 7)
	rec.Set("name", "alice")
	rec.Set("active", true)
	rec.Set("note", nil)

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	restored := NewRecord()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, rec.Keys(), restored.Keys())
	name, _ := restored.Get("name")
	assert.Equal(t, "alice", name)
	id, _ := restored.Get("id")
	assert.Equal(t, float64(7), id)
}

func TestCoerceScalar(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{"nil", nil, nil},
		{"string", "hello", "hello"},
		{"int", 42, 42},
		{"float", 3.5, 3.5},
		{"bool", true, true},
		{"bytes", []byte("raw"), "raw"},
		{"time", ts, "2025-03-14T09:26:53Z"},
		{"duration", 90 * time.Second, "1m30s"},
		{"error", assert.AnError, assert.AnError.Error()},
		{"fallback struct", struct{ X int }{7}, "{7}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CoerceScalar(tt.input))
		})
	}
}

func TestCoercedRecordIsJSONSerializable(t *testing.T) {
	rec := NewRecord()
	rec.Set("when", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	rec.Set("blob", []byte{0x68, 0x69})
	rec.Set("weird", map[string]int{"a": 1})

	_, err := json.Marshal(rec)
	assert.NoError(t, err)
}

func TestRecordFromPairs(t *testing.T) {
	rec := RecordFromPairs("success", false, "error", "boom")
	assert.Equal(t, []string{"success", "error"}, rec.Keys())

	assert.Panics(t, func() { RecordFromPairs("odd") })
}
