package wallet

import "github.com/decred/slog"

var log = slog.Disabled
