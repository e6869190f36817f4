package main

import (
	"context"
	"fmt"

	"github.com/demolens/tickstate/internal/api"
	"github.com/demolens/tickstate/internal/storage"
	"github.com/spf13/viper"
)

// uploadDemo sends the exported file of the first uploadable sink to the
// viewer configured under api.
func uploadDemo(ctx context.Context, sinks *storage.Multi) error {
	u, ok := sinks.Uploadable()
	if !ok {
		Logger.Warn("Storage backend does not produce an upload file, skipping upload", "type", viper.GetString("storage.type"))
		return nil
	}
	path := u.GetExportedFilePath()
	if path == "" {
		return fmt.Errorf("no exported file to upload")
	}

	meta := u.GetExportMetadata()
	if meta.Tag == "" {
		meta.Tag = viper.GetString("defaultTag")
	}

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Error("Viewer is not reachable", "error", err)
		return err
	}
	if err := client.Upload(ctx, path, meta); err != nil {
		Logger.Error("Failed to upload demo", "error", err, "path", path)
		return err
	}
	Logger.Info("Uploaded demo", "path", path, "map", meta.MapName, "tag", meta.Tag)
	return nil
}
