package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/logging"
	"github.com/demolens/tickstate/internal/monitor"
	"github.com/demolens/tickstate/internal/streamio"
	"github.com/demolens/tickstate/internal/worker"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Services
var (
	workerManager  *worker.Manager
	monitorService *monitor.Service

	// log records are tagged with the position of the running job
	logPosition = &logging.Position{}
)

func runCommand(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	configDir := commonFlags(fs)
	fs.String("storage", "", "storage backend (memory, sqlite, postgres, websocket)")
	fs.String("compression", "", "stream framing (none, snappy, auto)")
	fs.Bool("keep-ticks", false, "keep every snapshot in the final demo")
	fs.Bool("influx", false, "also write tick metrics to influxdb")
	upload := fs.Bool("upload", false, "upload the exported demo to the viewer")
	statusPath := fs.String("status", "", "write a status JSON file here while running")
	_ = viper.BindPFlag("storage.type", fs.Lookup("storage"))
	_ = viper.BindPFlag("stream.compression", fs.Lookup("compression"))
	_ = viper.BindPFlag("worker.keepTicks", fs.Lookup("keep-ticks"))
	_ = viper.BindPFlag("storage.influx", fs.Lookup("influx"))
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one stream file, got %d arguments", fs.NArg())
	}

	loadConfig(*configDir)
	SlogManager.SetPosition(logPosition)
	setupLogging(true)
	defer shutdownLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, fs.Arg(0), *statusPath, *upload)
}

func run(ctx context.Context, streamPath, statusPath string, upload bool) error {
	compression := streamio.Compression(viper.GetString("stream.compression"))
	src, err := streamio.Open(streamPath, compression)
	if err != nil {
		return err
	}
	defer src.Close()
	Logger.Info("Opened entity stream", "path", streamPath, "compression", streamio.Resolve(streamPath, compression))

	sinks, ifx, err := createSinks(config.GetStorageConfig())
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := sinks.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		_ = sinks.Close()
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	workerManager = worker.NewManager(worker.Dependencies{
		Logger:     Logger,
		SinkLogger: logging.NewKeyValueLogger(zerologFor("sink")),
		Tracker:    logPosition,
		Backend:    sinks,
		Config:     config.GetWorkerConfig(),
	})

	monitorDeps := monitor.Dependencies{
		Logger:        Logger,
		WorkerManager: workerManager,
		StatusPath:    statusPath,
	}
	if ifx != nil {
		monitorDeps.Influx = ifx.Conn()
	}
	monitorService = monitor.NewService(monitorDeps)
	if err := monitorService.Start(); err != nil {
		Logger.Error("Failed to start status monitor", "error", err)
	}
	defer monitorService.Stop()

	start := time.Now()
	job, err := workerManager.Start(ctx, src)
	if err != nil {
		return err
	}
	for r := range job.Reports() {
		switch r.Kind {
		case worker.ReportInfo:
			Logger.Info("Demo header received", "ticks", r.Ticks)
		case worker.ReportWorking:
			if r.Ticks%1000 == 0 {
				Logger.Debug("Reconstruction progress", "tick", r.Ticks)
			}
		}
	}

	demo, draw, err := job.Wait()
	if err != nil {
		return err
	}
	Logger.Info("Demo reconstructed",
		"map", demo.Header.MapName,
		"rounds", len(demo.Rounds),
		"kills", len(demo.Kills),
		"maxPlayers", draw.MaxPlayers,
		"duration", time.Since(start),
	)

	if upload {
		return uploadDemo(ctx, sinks)
	}
	return nil
}
