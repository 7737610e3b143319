package main

import (
	"os"

	"keysweep/chainapi"
	"keysweep/search"

	"github.com/btcsuite/btclog"
)

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it write to stdout.
var (
	backendLog = btclog.NewBackend(os.Stdout)

	mainLog = backendLog.Logger("MAIN")
	capiLog = backendLog.Logger("CAPI")
	srchLog = backendLog.Logger("SRCH")
)

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"MAIN": mainLog,
	"CAPI": capiLog,
	"SRCH": srchLog,
}

func init() {
	chainapi.UseLogger(capiLog)
	search.UseLogger(srchLog)
}

// setLogLevels sets the log level for all subsystem loggers.
func setLogLevels(level btclog.Level) {
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}
