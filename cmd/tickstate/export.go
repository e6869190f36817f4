package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/demolens/tickstate/internal/config"
	pgstorage "github.com/demolens/tickstate/internal/storage/postgres"
	"github.com/demolens/tickstate/internal/util"
	"github.com/demolens/tickstate/pkg/core"

	"github.com/spf13/pflag"
)

// storedDemo is the JSON dump of one demo read back from postgres.
type storedDemo struct {
	Demo *core.Demo     `json:"demo"`
	Draw *core.DrawInfo `json:"draw"`
}

func exportCommand(args []string) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	configDir := commonFlags(fs)
	outDir := fs.String("out", ".", "directory to write the dumps to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no demo IDs provided")
	}
	ids := make([]uint, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid demo ID %q: %w", arg, err)
		}
		ids = append(ids, uint(id))
	}

	loadConfig(*configDir)
	setupLogging(false)
	defer shutdownLogging()

	backend := pgstorage.New(pgstorage.Dependencies{
		Config:   config.GetStorageConfig().DB,
		Logger:   Logger,
		DBLogger: zerologFor("database"),
	})
	if err := backend.Init(); err != nil {
		return err
	}
	defer backend.Close()

	for _, id := range ids {
		start := time.Now()
		demo, draw, err := backend.LoadDemo(id)
		if err != nil {
			return err
		}
		path, err := writeStoredDemo(*outDir, id, storedDemo{Demo: demo, Draw: draw})
		if err != nil {
			return err
		}
		Logger.Info("Wrote demo data", "demoId", id, "path", path, "duration", time.Since(start))
	}
	return nil
}

// exportFileName names a dump after the demo map and id.
func exportFileName(id uint, d *core.Demo) string {
	name := util.DemoBaseName(d.Header.Filename)
	if name == "" {
		name = d.Header.MapName
	}
	return fmt.Sprintf("%s_%d.json.gz", util.SanitizeFilename(name), id)
}

func writeStoredDemo(dir string, id uint, data storedDemo) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %w", err)
	}
	path := filepath.Join(dir, exportFileName(id, data.Demo))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = gzWriter.Close()
		return "", fmt.Errorf("error writing to gzip: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return "", fmt.Errorf("error closing gzip: %w", err)
	}
	return path, nil
}
