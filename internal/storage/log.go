package storage

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the subsystem logger used by package storage.
func UseLogger(logger btclog.Logger) {
	log = logger
}
