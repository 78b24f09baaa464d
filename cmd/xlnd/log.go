package main

import (
	"os"
	"strings"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/metrics"
	"github.com/adimov-eth/xln-sub005/internal/storage"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/adimov-eth/xln-sub005/runtime"
	"github.com/adimov-eth/xln-sub005/settlement"
	"github.com/btcsuite/btclog"
)

// Loggers per subsystem. A single backend is created and every subsystem
// logger is carved from it, mirroring lnd's root-package log.go: each
// package owning a `log` var registers through UseLogger here rather than
// configuring its own output.
var (
	backendLog = btclog.NewBackend(os.Stdout)

	xlndLog = backendLog.Logger("XLND")
	runtLog = backendLog.Logger("RUNT")
	entyLog = backendLog.Logger("ENTY")
	acctLog = backendLog.Logger("ACCT")
	setlLog = backendLog.Logger("SETL")
	crptLog = backendLog.Logger("CRPT")
	storLog = backendLog.Logger("STOR")
	mtrcLog = backendLog.Logger("MTRC")
)

// subsystemLoggers maps each subsystem tag to its logger, so --debuglevel
// can target one subsystem or all of them.
var subsystemLoggers = map[string]btclog.Logger{
	"XLND": xlndLog,
	"RUNT": runtLog,
	"ENTY": entyLog,
	"ACCT": acctLog,
	"SETL": setlLog,
	"CRPT": crptLog,
	"STOR": storLog,
	"MTRC": mtrcLog,
}

func init() {
	runtime.UseLogger(runtLog)
	entity.UseLogger(entyLog)
	account.UseLogger(acctLog)
	settlement.UseLogger(setlLog)
	xcrypto.UseLogger(crptLog)
	storage.UseLogger(storLog)
	metrics.UseLogger(mtrcLog)
}

// setLogLevel sets the logging level for subsystemID. Unknown subsystems
// are ignored; an invalid level defaults to info.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels applies logLevel to the subsystem loggers. A plain level
// sets every subsystem; a comma-separated list of <subsystem>=<level>
// pairs sets only the named subsystems.
func setLogLevels(logLevel string) {
	if !strings.Contains(logLevel, "=") {
		for subsystemID := range subsystemLoggers {
			setLogLevel(subsystemID, logLevel)
		}
		return
	}
	for _, pair := range strings.Split(logLevel, ",") {
		fields := strings.SplitN(pair, "=", 2)
		if len(fields) != 2 {
			continue
		}
		setLogLevel(fields[0], fields[1])
	}
}
