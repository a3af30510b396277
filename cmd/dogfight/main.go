package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/skyduel/dogfight/internal/api"
	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/database"
	"github.com/skyduel/dogfight/internal/logging"
	intOtel "github.com/skyduel/dogfight/internal/otel"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "dogfight"
)

// file paths
var (
	// ConfigDir holds dogfight.cfg.json. Overridden by DOGFIGHT_CONFIG_DIR.
	ConfigDir string = "."

	LogFilePath string
	LogFile     *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger feeds the database and influx managers
	ZLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

func setup(command string) {
	var err error

	if dir := os.Getenv("DOGFIGHT_CONFIG_DIR"); dir != "" {
		ConfigDir = dir
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err = config.Load(ConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", ConfigDir)
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, command, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var w io.Writer
		if LogFile != nil {
			w = LogFile
		}
		OTelProvider, err = intOtel.New(otelCfg, w, intOtel.Session{
			Version: CurrentVersion,
			Command: command,
			Started: SessionStartTime,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath)
		}
	}
	if OTelProvider == nil {
		OTelProvider, _ = intOtel.New(config.OTelConfig{}, nil, intOtel.Session{})
	}

	var sinks []io.Writer
	if viper.GetBool("graylog.enabled") {
		gw, err := logging.NewGraylogWriter(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Error("Failed to connect to graylog", "error", err)
		} else {
			sinks = append(sinks, gw)
		}
	}

	// Re-setup logging with file output and optional OTel
	var otelLogProvider *sdklog.LoggerProvider = OTelProvider.LoggerProvider()
	var file io.Writer
	if LogFile != nil {
		file = LogFile
	}
	SlogManager.Setup(file, viper.GetString("logLevel"), otelLogProvider, sinks...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath, "version", CurrentVersion, "build", BuildDate)

	var zout io.Writer = os.Stdout
	if LogFile != nil {
		zout = LogFile
	}
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("logLevel")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	ZLogger = zerolog.New(zerolog.ConsoleWriter{Out: zout, NoColor: true, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Str("app", AppName).Logger()
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

// loadOptions returns the configured battle options with the scenario
// file, if any, laid over them.
func loadOptions() (battle.Options, error) {
	opts := config.GetOptions()
	path := config.GetRunnerConfig().Scenario
	if path == "" {
		return opts, opts.Validate()
	}
	scenario, err := config.LoadScenario(path)
	if err != nil {
		return opts, err
	}
	scenario.Apply(&opts)
	Logger.Info("Loaded scenario", "name", scenario.Name, "path", path)
	return opts, opts.Validate()
}

func checkServerStatus(ctx context.Context) bool {
	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Info("Replay server is offline", "error", err)
		return false
	}
	Logger.Info("Replay server is online")
	return true
}

func setupDB() error {
	m := database.NewManager(ZLogger.With().Str("component", "database").Logger())
	if err := m.Connect(config.GetDBConfig()); err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	if m.ShouldSaveLocal {
		return errors.New("postgres is unreachable")
	}
	return m.Setup()
}

func usage() {
	fmt.Printf(`%s %s (%s)

Usage:
  %s run        play the configured number of episodes (default)
  %s repl       drive a single battle area from stdin
  %s setupdb    migrate the postgres schema
  %s episodes   list the latest episodes stored in postgres [limit]
  %s backups    list the episodes in the sqlite dumps [limit]
  %s version    print the version
`, AppName, CurrentVersion, BuildDate, AppName, AppName, AppName, AppName, AppName, AppName)
}

func main() {
	cmd := "run"
	if len(os.Args) > 1 {
		cmd = strings.ToLower(os.Args[1])
	}
	if cmd == "version" {
		fmt.Println(CurrentVersion, BuildDate)
		return
	}
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		usage()
		return
	}

	setup(cmd)
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "run":
		err = runEpisodes(ctx)
	case "repl":
		err = runREPL(ctx, os.Stdin, os.Stdout)
	case "episodes":
		err = showEpisodes(os.Stdout, listLimit(os.Args[2:]))
	case "backups":
		err = showBackups(os.Stdout, listLimit(os.Args[2:]))
	case "setupdb":
		err = setupDB()
		if err == nil {
			Logger.Info("DB setup complete.")
		}
	default:
		usage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		Logger.Error("Exiting with error", "command", cmd, "error", err)
		shutdown()
		os.Exit(1)
	}
}

// listLimit reads the optional row limit of the listing commands.
func listLimit(args []string) int {
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			return n
		}
	}
	return 20
}

// runnerLogDir is where per-run artifacts that are not recordings go.
func runnerLogDir() string {
	return filepath.Clean(viper.GetString("logsDir"))
}
