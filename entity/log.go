package entity

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the subsystem logger used by package entity.
func UseLogger(logger btclog.Logger) {
	log = logger
}
