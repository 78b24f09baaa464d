package metrics

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the subsystem logger used by package metrics.
func UseLogger(logger btclog.Logger) {
	log = logger
}
