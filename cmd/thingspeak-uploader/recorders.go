package main

import (
	"log/slog"
	"os"

	"github.com/juju/errors"
	"golang.org/x/term"

	"thingspeak-uploader/internal/config"
	"thingspeak-uploader/internal/logging"
	"thingspeak-uploader/internal/record"
)

// Output modes of the run command.
const (
	outputAuto = "auto"
	outputTUI  = "tui"
	outputJSON = "json"
	outputNone = "none"
)

// recorders bundles everything that observes sends during a run.
type recorders struct {
	recorder record.Recorder
	latest   *record.Latest
	tui      *record.TUIRecorder
	logger   *slog.Logger
	cleanup  func()
}

// resolveOutput turns "auto" into "tui" on a terminal and "json" otherwise.
func resolveOutput(mode string, isTerminal bool) (string, error) {
	switch mode {
	case outputAuto:
		if isTerminal {
			return outputTUI, nil
		}
		return outputJSON, nil
	case outputTUI, outputJSON, outputNone:
		return mode, nil
	}
	return "", errors.NotValidf("output mode %q", mode)
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newRecorders sets up the record sinks named by the config and output mode.
// The returned cleanup closes files and stops the TUI.
func newRecorders(cfg *config.Config, output string) (*recorders, error) {
	rs := &recorders{latest: record.NewLatest(), logger: logging.New(cfg.Log)}
	var closers []func()
	rs.cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	sinks := []record.Recorder{rs.latest}
	switch output {
	case outputTUI:
		names := make([]string, 0, len(cfg.Channels))
		for _, ch := range cfg.Channels {
			names = append(names, ch.Name)
		}
		rs.tui = record.NewTUIRecorder(names)
		closers = append(closers, func() { rs.tui.Close() })
		sinks = append(sinks, rs.tui)
		// Text logs would tear the alt screen; route them into the log pane.
		if cfg.Log {
			rs.logger = slog.New(slog.NewTextHandler(rs.tui, nil))
		}
	case outputJSON:
		sinks = append(sinks, record.NewStdoutRecorder())
	}

	if cfg.Mirror.File != "" {
		fr, err := record.NewFileRecorder(cfg.Mirror.File)
		if err != nil {
			rs.cleanup()
			return nil, errors.Annotate(err, "record file")
		}
		closers = append(closers, func() { fr.Close() })
		sinks = append(sinks, fr)
	}
	if g := cfg.Mirror.Greptime; g.Endpoint != "" {
		gr, err := record.NewGreptimeRecorder(g.Endpoint, g.Database, g.Table)
		if err != nil {
			rs.cleanup()
			return nil, err
		}
		sinks = append(sinks, gr)
	}

	rs.recorder = record.NewMultiRecorder(sinks...)
	return rs, nil
}
