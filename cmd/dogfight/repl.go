package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/control"
	"github.com/skyduel/dogfight/internal/dispatcher"
	"github.com/skyduel/dogfight/internal/influx"
	"github.com/skyduel/dogfight/internal/logging"
	"github.com/skyduel/dogfight/internal/parser"
	"github.com/skyduel/dogfight/internal/util"
)

// errQuit ends the read loop.
var errQuit = errors.New("quit")

// registerLifecycleHandlers wires the commands that do not touch the area.
func registerLifecycleHandlers(d *dispatcher.Dispatcher, metrics *influx.Manager) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})

	d.Register(":METRIC:", func(e dispatcher.Event) (any, error) {
		if metrics == nil {
			return nil, influx.ErrDisabled
		}
		point, err := influx.ParsePoint(e.Args)
		if err != nil {
			return nil, err
		}
		if err := metrics.WritePoint(point); err != nil {
			return nil, err
		}
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(":QUIT:", func(e dispatcher.Event) (any, error) {
		return nil, errQuit
	})
}

// newControlDispatcher builds a dispatcher serving one area.
func newControlDispatcher(area *battle.BattleArea, metrics *influx.Manager) (*dispatcher.Dispatcher, error) {
	dl := logging.NewDispatcherLogger(Logger).AtTick(func() int64 { return int64(area.Tick()) })
	d, err := dispatcher.New(dl)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	registerLifecycleHandlers(d, metrics)
	session := control.NewSession(area, parser.NewParser(Logger), Logger)
	session.Register(d)
	return d, nil
}

// serve reads one command per line from in and writes one JSON reply per
// line to out until EOF, :QUIT: or ctx is done.
func serve(ctx context.Context, d *dispatcher.Dispatcher, in io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		command, args := util.SplitCommand(line)
		result, err := d.Dispatch(dispatcher.Event{Command: command, Args: util.CleanArgs(args)})
		if errors.Is(err, errQuit) {
			return nil
		}
		reply := map[string]any{"command": command}
		if err != nil {
			reply["error"] = err.Error()
		} else {
			reply["result"] = result
		}
		if err := enc.Encode(reply); err != nil {
			return fmt.Errorf("error writing reply: %w", err)
		}
	}
	return scanner.Err()
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer) error {
	opts, err := loadOptions()
	if err != nil {
		return fmt.Errorf("invalid battle options: %w", err)
	}

	var metrics *influx.Manager
	if config.GetInfluxConfig().Enabled {
		metrics = influx.NewManager(
			ZLogger.With().Str("component", "influx").Logger(),
			config.GetInfluxConfig(),
			logging.ArtifactPath(runnerLogDir(), ".lp.gz", SessionStartTime, "influx", "repl"),
		)
		if err := metrics.Connect(ctx); err != nil {
			Logger.Warn("InfluxDB unavailable", "error", err)
			metrics = nil
		} else {
			defer func() { _ = metrics.Close() }()
		}
	}

	area := battle.New(opts, Logger)
	defer area.Close()

	d, err := newControlDispatcher(area, metrics)
	if err != nil {
		return err
	}
	defer d.Close()

	Logger.Info("Control session ready", "commands", len(d.Commands()))
	return serve(ctx, d, in, out)
}
