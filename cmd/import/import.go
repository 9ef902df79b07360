// Command import builds the finalized chain state from a directory of
// Core blk*.dat files. Blocks in those files are not stored in chain
// order, so they go through the block queue, which holds each block
// until its parent is committed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/blkchain/chainstate"
	"github.com/blkchain/chainstate/btcnode"
	"github.com/blkchain/chainstate/finalized"
	"github.com/blkchain/chainstate/rlimit"
	"github.com/blkchain/chainstate/store"
	"github.com/blkchain/chainstate/store/leveldb"
	"github.com/blkchain/chainstate/store/pgstore"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// LevelDb opens many files.
const requiredOpenFiles = 1024

func main() {
	if err := run(); err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	state, err := finalized.New(db, finalized.Config{MaxQueued: cfg.MaxQueued})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// done is closed when the import is over, which stops the metrics
	// server unless we were asked to wait for an interrupt.
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		defer state.Close()
		return importBlocks(gctx, state, cfg)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, done, cfg.Wait)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// The state is closed by now, but reads go straight to the store.
	tip, err := state.Tip()
	if err != nil {
		return err
	}
	if tip == nil {
		log.Infof("No blocks committed.")
		return nil
	}
	log.Infof("Finalized tip is %v at height %d.", tip.Hash, tip.Height)

	// What a node would send its peers to continue from here.
	msg, err := btcnode.NewGetBlocksMsg(state, chainstate.Uint256{})
	if err != nil {
		return err
	}
	log.Infof("Peers can continue from a %s locator of %d hashes.",
		msg.Command(), len(msg.BlockLocatorHashes))
	for _, hash := range msg.BlockLocatorHashes {
		log.Debugf("Locator hash %v", hash)
	}
	return nil
}

func openStore(cfg *config) (store.DB, error) {
	switch cfg.Backend {
	case "postgres":
		return pgstore.Open(pgstore.Config{ConnectString: cfg.PGConn})
	default:
		if old, err := rlimit.SetRLimit(requiredOpenFiles); err != nil {
			return nil, fmt.Errorf("setting rlimit: %w", err)
		} else if old < requiredOpenFiles {
			log.Debugf("Raised open files limit from %d to %d", old, requiredOpenFiles)
		}
		return leveldb.Open(cfg.DataDir, leveldb.Config{
			Sync:      cfg.Sync,
			CacheSize: cfg.CacheSize,
		})
	}
}

func networkMagic(testNet bool) uint32 {
	if testNet {
		return uint32(chaincfg.TestNet3Params.Net)
	}
	return uint32(chaincfg.MainNetParams.Net)
}

// importBlocks streams the blocks of the blk*.dat files through the
// stale block filter into the block queue and waits for their results.
// Blocks that are still waiting for a parent when the files run out
// get ErrClosed.
func importBlocks(ctx context.Context, state *finalized.State, cfg *config) error {
	cs, err := chainstate.NewCoreStore(cfg.BlocksPath, networkMagic(cfg.TestNet))
	if err != nil {
		return err
	}
	defer cs.Close()

	root, rootHeight := chainstate.GenesisPreviousBlockHash, -1
	if tip, err := state.Tip(); err != nil {
		return err
	} else if tip != nil {
		root, rootHeight = tip.Hash, int(tip.Height)
	}
	in, out := chainstate.NewBlockStream(root, rootHeight, cfg.StaleDepth)

	var (
		wg        sync.WaitGroup
		read      atomic.Int64
		skipped   atomic.Int64
		committed atomic.Int64

		// The first store failure, after which nothing more commits.
		fatal = make(chan error, 1)
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(in)
		for gctx.Err() == nil && len(fatal) == 0 {
			b, err := cs.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading block %d: %w", read.Load(), err)
			}
			read.Add(1)

			// Already committed by an earlier run.
			if _, ok, err := state.Depth(b.Hash()); err != nil {
				return err
			} else if ok {
				skipped.Add(1)
				continue
			}

			select {
			case in <- b:
			case <-gctx.Done():
			}
		}
		return nil
	})

	g.Go(func() error {
		lastReport := start
		for b := range out {
			ch := state.QueueBlock(b)
			wg.Add(1)
			go func() {
				defer wg.Done()
				r := <-ch
				switch {
				case r.Err == nil:
					committed.Add(1)
				case errors.Is(r.Err, finalized.ErrStoreIO):
					select {
					case fatal <- r.Err:
					default:
					}
				case errors.Is(r.Err, finalized.ErrClosed):
					log.Debugf("Block %v never connected", r.Hash)
				default:
					log.Warnf("Block %v: %v", r.Hash, r.Err)
				}
			}()

			if time.Since(lastReport) > 10*time.Second {
				lastReport = time.Now()
				log.Infof("Read %d blocks, committed %d, %d queued (%.1f blk/s)",
					read.Load(), committed.Load(), state.QueuedLen(),
					float64(committed.Load())/time.Since(start).Seconds())
			}
		}
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil {
		log.Infof("Interrupted, stopping import...")
	}

	queued := state.QueuedLen()
	state.Close()
	wg.Wait()

	log.Infof("Read %d blocks (%d already committed), committed %d, "+
		"%d left without a parent in %v", read.Load(), skipped.Load(),
		committed.Load(), queued, time.Since(start).Round(time.Second))

	if err != nil {
		return err
	}
	select {
	case err := <-fatal:
		return err
	default:
		return nil
	}
}

// serveMetrics exposes the prometheus registry until ctx is done, or
// done is closed and wait is false.
func serveMetrics(ctx context.Context, addr string, done <-chan struct{}, wait bool) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Serving metrics on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	if wait {
		done = nil
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-done:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
