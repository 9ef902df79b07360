package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDirname = "chainstate"
	defaultBackend     = "leveldb"
	defaultDebugLevel  = "info"
	defaultCacheSize   = 64
	defaultStaleDepth  = 10
)

type config struct {
	DataDir     string `long:"datadir" description:"Directory of the LevelDb index store"`
	Backend     string `long:"backend" description:"Index store backend" choice:"leveldb" choice:"postgres"`
	PGConn      string `long:"pgconn" description:"Postgres connection string, for --backend=postgres"`
	BlocksPath  string `long:"blocks" description:"/path/to/blocks (directory of blk*.dat files)"`
	TestNet     bool   `long:"testnet" description:"Use testnet magic"`
	Sync        bool   `long:"sync" description:"Fsync every LevelDb write"`
	CacheSize   int    `long:"cachesize" description:"LevelDb block cache in MiB"`
	MaxQueued   int    `long:"maxqueued" description:"Reject blocks once this many are waiting for their parent (0 = no limit)"`
	StaleDepth  int    `long:"staledepth" description:"Blocks to wait for after a block before deciding it is not stale"`
	MetricsAddr string `long:"metricsaddr" description:"Serve prometheus metrics on this address, e.g. :9100"`
	Wait        bool   `long:"wait" description:"Keep serving metrics after the import is done, until interrupted"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical, off"`
}

func loadConfig() (*config, error) {
	cfg := config{
		DataDir:    filepath.Join(".", defaultDataDirname),
		Backend:    defaultBackend,
		CacheSize:  defaultCacheSize,
		StaleDepth: defaultStaleDepth,
		DebugLevel: defaultDebugLevel,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.BlocksPath == "" {
		return nil, fmt.Errorf("--blocks is required")
	}
	if cfg.Backend == "postgres" && cfg.PGConn == "" {
		return nil, fmt.Errorf("--pgconn is required with --backend=postgres")
	}
	if cfg.MaxQueued < 0 {
		return nil, fmt.Errorf("--maxqueued must not be negative")
	}

	return &cfg, nil
}
