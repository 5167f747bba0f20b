package rpc

import "github.com/decred/slog"

// log is the package-level logger, disabled until UseLogger is called by
// the application's logging setup.
var log = slog.Disabled
