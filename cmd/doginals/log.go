package main

import (
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/H3imdall-dev/Dogecoin-Tools/internal/broadcaster"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/builder"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/bulkmint"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/decoder"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/deps"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/rpc"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/runlog"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/store"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/wallet"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/walker"
)

// logWriter implements io.Writer by writing to both the rotator (if
// initialized) and stdout, matching the decred-family convention of always
// seeing logs on the console in addition to the on-disk rotated file.
type logWriter struct{}

var logRotator *rotator.Rotator

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		return logRotator.Write(p)
	}
	return len(p), nil
}

var backendLog = slog.NewBackend(logWriter{})

// subsystemLoggers names every package-level logger this process wires up,
// mirroring each internal package's UseLogger hook.
var subsystemLoggers = map[string]slog.Logger{
	"RPCC": backendLog.Logger("RPCC"),
	"WALK": backendLog.Logger("WALK"),
	"DEPS": backendLog.Logger("DEPS"),
	"STOR": backendLog.Logger("STOR"),
	"WLET": backendLog.Logger("WLET"),
	"BLDR": backendLog.Logger("BLDR"),
	"BCST": backendLog.Logger("BCST"),
	"MINT": backendLog.Logger("MINT"),
	"RLOG": backendLog.Logger("RLOG"),
	"DECO": backendLog.Logger("DECO"),
	"MAIN": backendLog.Logger("MAIN"),
}

var log = subsystemLoggers["MAIN"]

// initLogRotator creates a rotating log file at logFile, in addition to the
// always-on stdout writer. Called once at startup after the config's
// content/wallet directories are known.
func initLogRotator(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return err
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// useLoggers wires every package's UseLogger hook to its subsystem logger.
func useLoggers() {
	for _, lvl := range subsystemLoggers {
		lvl.SetLevel(slog.LevelInfo)
	}
	rpc.UseLogger(subsystemLoggers["RPCC"])
	walker.UseLogger(subsystemLoggers["WALK"])
	deps.UseLogger(subsystemLoggers["DEPS"])
	store.UseLogger(subsystemLoggers["STOR"])
	wallet.UseLogger(subsystemLoggers["WLET"])
	builder.UseLogger(subsystemLoggers["BLDR"])
	broadcaster.UseLogger(subsystemLoggers["BCST"])
	bulkmint.UseLogger(subsystemLoggers["MINT"])
	runlog.UseLogger(subsystemLoggers["RLOG"])
	decoder.UseLogger(subsystemLoggers["DECO"])
}
