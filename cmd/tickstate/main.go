package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/logging"
	intOtel "github.com/demolens/tickstate/internal/otel"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "tickstate"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// LogFile is the session log, nil when logging to stdout
	LogFile *os.File

	// gelfHandler ships logs to Graylog when enabled
	gelfHandler *logging.GelfHandler

	SessionStartTime time.Time = time.Now()
)

const usage = `usage: tickstate <command> [flags]

commands:
  run <stream>       reconstruct a demo from an entity stream file
  schema             write the JSON schema of the stream messages
  export <demoID>... dump demos stored in postgres to JSON
  version            print the version
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "run":
		err = runCommand(args[1:])
	case "schema":
		err = schemaCommand(args[1:])
	case "export":
		err = exportCommand(args[1:])
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every config-reading command shares and
// binds them over the config file values.
func commonFlags(fs *pflag.FlagSet) *string {
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("logs-dir", "", "directory for session log files")
	_ = viper.BindPFlag("logLevel", fs.Lookup("log-level"))
	_ = viper.BindPFlag("logsDir", fs.Lookup("logs-dir"))
	return configDir
}

// loadConfig reads the config file, falling back to the defaults.
func loadConfig(dir string) {
	if err := config.Load(dir); err != nil {
		config.LoadDefaults()
		Logger.Warn("Failed to load config, using defaults!", "error", err)
		return
	}
	Logger.Info("Loaded config", "path", filepath.Join(dir, config.FileName))
}

// setupLogging opens the session log file and wires the optional OTel and
// Graylog outputs. With toFile false, records go to stdout.
func setupLogging(toFile bool) {
	level := viper.GetString("logLevel")
	var err error

	if toFile {
		logsDir := viper.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
		}
		path := logging.LogFilePath(logsDir, AppName, SessionStartTime)
		// keep the previous file of the same session name
		if _, err := os.Stat(path); err == nil {
			_ = os.Rename(path, path+".old")
		}
		LogFile, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			Logger.Error("Failed to create/open log file!", "error", err, "path", path)
			LogFile = nil
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var w io.Writer
		if LogFile != nil {
			w = LogFile
		}
		OTelProvider, err = intOtel.New(context.Background(), otelCfg, w, intOtel.Session{
			Version: CurrentVersion,
			Started: SessionStartTime,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		addr := viper.GetString("graylog.address")
		gelfHandler, err = logging.NewGelfHandler(addr, AppName, logging.Level(level))
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", addr)
		} else {
			extra = append(extra, gelfHandler)
		}
	}

	if LogFile != nil {
		SlogManager.Setup(LogFile, level, OTelProvider.LoggerProvider(), extra...)
	} else {
		SlogManager.Setup(nil, level, OTelProvider.LoggerProvider(), extra...)
	}
	Logger = SlogManager.Logger()
	if LogFile != nil {
		Logger.Info("Logging to file", "path", LogFile.Name())
	}
}

// shutdownLogging flushes and closes every log output.
func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
	if err := OTelProvider.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to shut down otel: %v\n", err)
	}
	if gelfHandler != nil {
		_ = gelfHandler.Close()
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
