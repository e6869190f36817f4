package streamio

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/demolens/tickstate/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, src Source) []streaming.Message {
	t.Helper()
	var out []streaming.Message
	for {
		msg, err := src.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
}

func TestReader_Next(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, msgs []streaming.Message)
	}{
		{
			name: "ordered messages",
			input: `{"type":"class_table","payload":{"classes":["CWorld","CTFPlayer"]}}
{"type":"entity_update","payload":{"entity":3,"class":1,"kind":"enter","props":[]}}

{"type":"packet_boundary","payload":{"tick":7}}
`,
			check: func(t *testing.T, msgs []streaming.Message) {
				require.Len(t, msgs, 3)
				assert.Equal(t, streaming.ClassTable{Classes: []string{"CWorld", "CTFPlayer"}}, msgs[0])
				u, ok := msgs[1].(streaming.EntityUpdate)
				require.True(t, ok)
				assert.Equal(t, streaming.UpdateEnter, u.Kind)
				assert.Equal(t, streaming.PacketBoundary{Tick: 7}, msgs[2])
			},
		},
		{
			name:  "empty input",
			input: "",
			check: func(t *testing.T, msgs []streaming.Message) {
				assert.Empty(t, msgs)
			},
		},
		{
			name: "malformed property value does not stop the stream",
			input: `{"type":"packet_boundary","payload":{"tick":1}}
{"type":"entity_update","payload":{"entity":3,"class":1,"props":[{"table":"DT_BaseEntity","name":"m_vecOrigin","value":{"vector":[1,2]}}]}}
{"type":"packet_boundary","payload":{"tick":2}}
`,
			check: func(t *testing.T, msgs []streaming.Message) {
				require.Len(t, msgs, 3)
				u, ok := msgs[1].(streaming.EntityUpdate)
				require.True(t, ok)
				require.Len(t, u.Props, 1)
				assert.Equal(t, streaming.KindNone, u.Props[0].Value.Kind)
				assert.Equal(t, streaming.PacketBoundary{Tick: 2}, msgs[2])
			},
		},
		{
			name:    "malformed json reports the line",
			input:   "{\"type\":\"packet_boundary\",\"payload\":{\"tick\":1}}\n{nope\n",
			wantErr: "line 2",
		},
		{
			name:    "unknown type",
			input:   `{"type":"voice_data","payload":{}}`,
			wantErr: "unknown message type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input), CompressionNone)
			if tt.wantErr != "" {
				var err error
				for err == nil {
					_, err = r.Next()
				}
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			tt.check(t, readAll(t, r))
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		path string
		in   Compression
		want Compression
	}{
		{"demo.jsonl", CompressionAuto, CompressionNone},
		{"demo.jsonl.sz", CompressionAuto, CompressionSnappy},
		{"DEMO.SZ", CompressionAuto, CompressionSnappy},
		{"demo.jsonl.sz", CompressionNone, CompressionNone},
		{"demo.jsonl", CompressionSnappy, CompressionSnappy},
		{"demo.jsonl", "", CompressionNone},
	}
	for _, tt := range tests {
		t.Run(tt.path+"/"+string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.path, tt.in))
		})
	}
}

func TestWriterReader_RoundTrip(t *testing.T) {
	msgs := []streaming.Message{
		streaming.Header{Filename: "match.dem", MapName: "cp_process_final", Ticks: 3},
		streaming.ClassTable{Classes: []string{"CTFPlayer"}},
		streaming.EntityUpdate{
			Entity: 2, ServerClass: 0, Kind: streaming.UpdateEnter,
			Props: []streaming.Property{{Table: "DT_BasePlayer", Name: "m_iHealth", Value: streaming.IntValue(125)}},
		},
		streaming.GameEventMessage{Event: streaming.PlayerHurt{UserID: 4, Health: 60}},
		streaming.PacketBoundary{Tick: 1, IntervalPerTick: 0.015},
	}

	for _, c := range []Compression{CompressionNone, CompressionSnappy} {
		t.Run(string(c), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, c)
			for _, m := range msgs {
				require.NoError(t, w.Write(m))
			}
			require.NoError(t, w.Close())

			got := readAll(t, NewReader(&buf, c))
			assert.Equal(t, msgs, got)
		})
	}
}

func TestCreateOpen_AutoDetectsSnappy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.jsonl.sz")

	w, err := Create(path, CompressionAuto)
	require.NoError(t, err)
	require.NoError(t, w.Write(streaming.PacketBoundary{Tick: 9}))
	require.NoError(t, w.Close())

	// a plain reader must not make sense of the snappy frame
	plain, err := Open(path, CompressionNone)
	require.NoError(t, err)
	_, err = plain.Next()
	assert.Error(t, err)
	require.NoError(t, plain.Close())

	r, err := Open(path, CompressionAuto)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	got := readAll(t, r)
	assert.Equal(t, []streaming.Message{streaming.PacketBoundary{Tick: 9}}, got)
	assert.Equal(t, 1, r.Line())
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource(streaming.PacketBoundary{Tick: 1}, streaming.PacketBoundary{Tick: 2})
	assert.Equal(t, 2, src.Len())
	assert.Len(t, readAll(t, src), 2)
	_, err := src.Next()
	assert.Equal(t, io.EOF, err)
}
