package storage_test

import (
	"errors"
	"testing"
	"time"

	"github.com/demolens/tickstate/internal/storage"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.Backend = (*storage.Multi)(nil)

type recorder struct {
	name  string
	calls *[]string
	err   error
}

func (r *recorder) log(op string) error {
	*r.calls = append(*r.calls, r.name+":"+op)
	return r.err
}

func (r *recorder) Init() error                                { return r.log("init") }
func (r *recorder) Close() error                               { return r.log("close") }
func (r *recorder) StartDemo(*core.DemoHeader) error           { return r.log("start") }
func (r *recorder) EndDemo([]core.Round, *core.DrawInfo) error { return r.log("end") }
func (r *recorder) RecordSnapshot(*core.Snapshot) error        { return r.log("snapshot") }

type uploader struct {
	recorder
}

func (uploader) GetExportedFilePath() string { return "/tmp/demo.json.zst" }
func (uploader) GetExportMetadata() core.UploadMetadata {
	return core.UploadMetadata{MapName: "cp_granary_pro_rc8", Tag: "Scrim"}
}

type timed struct {
	recorder
}

func (timed) GetLastDBWriteDuration() time.Duration { return 40 * time.Millisecond }

func TestMulti_FansOutInOrder(t *testing.T) {
	var calls []string
	m := storage.NewMulti(&recorder{name: "a", calls: &calls}, nil, &recorder{name: "b", calls: &calls})
	require.Len(t, m.Backends(), 2)

	require.NoError(t, m.Init())
	require.NoError(t, m.StartDemo(&core.DemoHeader{}))
	require.NoError(t, m.RecordSnapshot(&core.Snapshot{Tick: 1}))
	require.NoError(t, m.EndDemo(nil, nil))
	require.NoError(t, m.Close())

	assert.Equal(t, []string{
		"a:init", "b:init",
		"a:start", "b:start",
		"a:snapshot", "b:snapshot",
		"a:end", "b:end",
		"b:close", "a:close",
	}, calls)
}

func TestMulti_ErrorsAreJoined(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	var calls []string
	m := storage.NewMulti(
		&recorder{name: "a", calls: &calls, err: errA},
		&recorder{name: "ok", calls: &calls},
		&recorder{name: "b", calls: &calls, err: errB},
	)

	err := m.RecordSnapshot(&core.Snapshot{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, []string{"a:snapshot", "ok:snapshot", "b:snapshot"}, calls, "a failure does not stop later backends")
}

func TestMulti_Uploadable(t *testing.T) {
	tests := []struct {
		name     string
		backends []storage.Backend
		check    func(t *testing.T, u storage.Uploadable, ok bool)
	}{
		{
			name:     "none",
			backends: []storage.Backend{&recorder{calls: new([]string)}},
			check: func(t *testing.T, u storage.Uploadable, ok bool) {
				assert.False(t, ok)
				assert.Nil(t, u)
			},
		},
		{
			name:     "found",
			backends: []storage.Backend{&recorder{calls: new([]string)}, &uploader{recorder{calls: new([]string)}}},
			check: func(t *testing.T, u storage.Uploadable, ok bool) {
				require.True(t, ok)
				assert.Equal(t, "/tmp/demo.json.zst", u.GetExportedFilePath())
				assert.Equal(t, "cp_granary_pro_rc8", u.GetExportMetadata().MapName)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok := storage.NewMulti(tt.backends...).Uploadable()
			tt.check(t, u, ok)
		})
	}
}

func TestMulti_GetLastDBWriteDuration(t *testing.T) {
	var calls []string
	assert.Zero(t, storage.NewMulti(&recorder{calls: &calls}).GetLastDBWriteDuration())

	m := storage.NewMulti(&recorder{calls: &calls}, &timed{recorder{calls: &calls}})
	assert.Equal(t, 40*time.Millisecond, m.GetLastDBWriteDuration())
}
