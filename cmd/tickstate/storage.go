package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/influx"
	"github.com/demolens/tickstate/internal/logging"
	"github.com/demolens/tickstate/internal/storage"
	"github.com/demolens/tickstate/internal/storage/memory"
	pgstorage "github.com/demolens/tickstate/internal/storage/postgres"
	sqlitestorage "github.com/demolens/tickstate/internal/storage/sqlite"
	wsstorage "github.com/demolens/tickstate/internal/storage/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// zerologFor builds the zerolog logger of a storage component, writing to
// the session log.
func zerologFor(component string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if LogFile != nil {
		w = LogFile
	}
	return logging.NewZerolog(w, viper.GetString("logLevel"), component)
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend initialized", "host", storageCfg.DB.Host)
		return pgstorage.New(pgstorage.Dependencies{
			Config:           storageCfg.DB,
			Logger:           Logger,
			DBLogger:         zerologFor("database"),
			FallbackDumpPath: sessionPath(storageCfg.SQLite.DumpPath),
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "websocket":
		wsCfg := storageCfg.Websocket
		if wsCfg.URL == "" {
			wsCfg.URL = httpToWS(viper.GetString("api.serverUrl")) + "/api"
		}
		if wsCfg.Secret == "" {
			wsCfg.Secret = viper.GetString("api.apiKey")
		}
		Logger.Info("WebSocket storage backend initialized", "url", wsCfg.URL)
		return wsstorage.New(wsCfg, Logger), nil

	case "memory", "":
		Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// createSinks wraps the configured backend together with the influx tick
// metrics when storage.influx is set.
func createSinks(storageCfg config.StorageConfig) (*storage.Multi, *influx.Backend, error) {
	primary, err := createStorageBackend(storageCfg)
	if err != nil {
		return nil, nil, err
	}
	if !storageCfg.Influx {
		return storage.NewMulti(primary), nil, nil
	}

	influxCfg := config.GetInfluxConfig()
	if !influxCfg.Enabled {
		Logger.Warn("storage.influx is set but influx.enabled is false, skipping tick metrics")
		return storage.NewMulti(primary), nil, nil
	}
	backupPath := filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_%s.influx.gz", AppName, SessionStartTime.Format("20060102_150405")))
	ifx := influx.New(influxCfg, backupPath, zerologFor("influx"))
	Logger.Info("InfluxDB tick metrics enabled", "url", influx.ServerURL(influxCfg), "bucket", influxCfg.Bucket)
	return storage.NewMulti(primary, ifx), ifx, nil
}

// sessionPath stamps the session start time into a file name.
func sessionPath(path string) string {
	if path == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%s%s", strings.TrimSuffix(path, ext), SessionStartTime.Format("20060102_150405"), ext)
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
