package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchema(t *testing.T) {
	tests := []struct {
		direction string
		check     func(t *testing.T, doc map[string]any)
	}{
		{
			direction: "input",
			check: func(t *testing.T, doc map[string]any) {
				assert.Equal(t, "tickstate entity stream", doc["title"])
				assert.Len(t, doc["oneOf"], 6)
			},
		},
		{
			direction: "output",
			check: func(t *testing.T, doc map[string]any) {
				assert.Equal(t, "tickstate snapshot stream", doc["title"])
				assert.Len(t, doc["oneOf"], 3)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			schema, err := buildSchema(tt.direction)
			require.NoError(t, err)
			data, err := json.Marshal(schema)
			require.NoError(t, err)

			var doc map[string]any
			require.NoError(t, json.Unmarshal(data, &doc))
			defs, ok := doc["$defs"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, defs, "Value")
			tt.check(t, doc)
		})
	}
}

func TestBuildSchema_EnvelopeShape(t *testing.T) {
	schema, err := buildSchema("input")
	require.NoError(t, err)

	var types []any
	for _, env := range schema.OneOf {
		assert.Equal(t, []string{"type", "payload"}, env.Required)
		typ, ok := env.Properties.Get("type")
		require.True(t, ok)
		types = append(types, typ.Const)
	}
	assert.Equal(t, []any{"header", "class_table", "string_entry", "entity_update", "game_event", "packet_boundary"}, types)

	update := schema.OneOf[3]
	payload, ok := update.Properties.Get("payload")
	require.True(t, ok)
	kind, ok := payload.Properties.Get("kind")
	require.True(t, ok)
	assert.Equal(t, []any{"enter", "update", "preserve", "delete"}, kind.Enum)

	event := schema.OneOf[4]
	payload, ok = event.Properties.Get("payload")
	require.True(t, ok)
	assert.Equal(t, []string{"kind"}, payload.Required)
}

func TestBuildSchema_UnknownDirection(t *testing.T) {
	_, err := buildSchema("sideways")
	assert.Error(t, err)
}

func TestWriteSchema(t *testing.T) {
	schema, err := buildSchema("output")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "schemas", "snapshot.schema.json")
	require.NoError(t, writeSchema(out, schema))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}
