package main

import (
	"fmt"
	"os"

	"github.com/blkchain/chainstate"
	"github.com/blkchain/chainstate/finalized"
	"github.com/blkchain/chainstate/pending"
	"github.com/blkchain/chainstate/store/leveldb"
	"github.com/blkchain/chainstate/store/pgstore"
	"github.com/btcsuite/btclog"
)

var (
	backendLog = btclog.NewBackend(os.Stdout)

	log = backendLog.Logger("IMPT")

	subsystemLoggers = map[string]btclog.Logger{
		"IMPT": log,
		"CHST": backendLog.Logger("CHST"),
		"FNLZ": backendLog.Logger("FNLZ"),
		"PEND": backendLog.Logger("PEND"),
		"STOR": backendLog.Logger("STOR"),
	}
)

func init() {
	chainstate.UseLogger(subsystemLoggers["CHST"])
	finalized.UseLogger(subsystemLoggers["FNLZ"])
	pending.UseLogger(subsystemLoggers["PEND"])
	leveldb.UseLogger(subsystemLoggers["STOR"])
	pgstore.UseLogger(subsystemLoggers["STOR"])
}

// setLogLevels sets every subsystem logger to level.
func setLogLevels(level string) error {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("invalid debug level %q", level)
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(lvl)
	}
	return nil
}
