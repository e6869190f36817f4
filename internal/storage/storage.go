// internal/storage/storage.go
package storage

import "github.com/demolens/tickstate/pkg/core"

// Backend is the interface all snapshot sinks must satisfy. Calls arrive from
// a single goroutine in demo order: StartDemo, RecordSnapshot per tick, EndDemo.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Demo management
	StartDemo(header *core.DemoHeader) error
	EndDemo(rounds []core.Round, draw *core.DrawInfo) error

	// State recording. The snapshot is owned by the caller's pipeline and
	// must not be modified.
	RecordSnapshot(snap *core.Snapshot) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the web viewer.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
