package xcrypto

import "github.com/btcsuite/btclog"

// log is the package-level subsystem logger, wired up by UseLogger. It
// defaults to disabled so tests and library consumers that never call
// UseLogger don't pay for formatting.
var log = btclog.Disabled

// UseLogger sets the subsystem logger used by package xcrypto.
func UseLogger(logger btclog.Logger) {
	log = logger
}
