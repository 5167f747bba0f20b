package deps

import "github.com/decred/slog"

var log = slog.Disabled
