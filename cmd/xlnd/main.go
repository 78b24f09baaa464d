package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adimov-eth/xln-sub005/internal/metrics"
	"github.com/adimov-eth/xln-sub005/internal/storage"
	"github.com/adimov-eth/xln-sub005/runtime"
	flags "github.com/jessevdk/go-flags"
)

// Exit codes, spec §6 "Exit/error codes (runtime process)".
const (
	exitClean              = 0
	exitInvariantViolation = 1
	exitPersistenceFailure = 2
	exitConfigurationError = 3
)

// xlndMain is the true entry point, kept separate from main so deferred
// cleanups run before os.Exit, the same split lnd.go uses between main
// and lndMain.
func xlndMain() int {
	cfg, err := loadConfig()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return exitClean
		}
		if _, ok := err.(*configError); ok {
			fmt.Fprintln(os.Stderr, err)
			return exitConfigurationError
		}
		fmt.Fprintln(os.Stderr, err)
		return exitConfigurationError
	}

	xlndLog.Infof("starting xlnd, datadir=%s rpcport=%d", cfg.DataDir, cfg.RPCPort)

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		xlndLog.Errorf("unable to open storage: %v", err)
		return exitPersistenceFailure
	}
	defer db.Close()

	state := runtime.NewServerState()
	recorder := metrics.NewRecorder()

	height, found, err := db.LatestServerFrameHeight()
	if err != nil {
		xlndLog.Errorf("unable to read latest server-frame height: %v", err)
		return exitPersistenceFailure
	}
	if found {
		xlndLog.Infof("resuming from persisted server-frame height %d", height)
	} else {
		xlndLog.Info("no persisted server frames found, starting from genesis")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	inputs := make(chan runtime.Input, 256)

	shutdown := make(chan struct{})
	go runLoop(state, db, recorder, inputs, height, shutdown)

	<-interrupt
	xlndLog.Info("received interrupt, shutting down")
	close(shutdown)
	close(inputs)

	return exitClean
}

// runLoop batches pending inputs into server frames at a fixed tick and
// flushes each committed frame to storage, the shape server.go's main
// peer-event loop takes (drain a channel, act, repeat) generalized to the
// runtime's batch-of-inputs model (spec §4.4, §5).
func runLoop(state *runtime.ServerState, db *storage.DB, recorder *metrics.Recorder, inputs <-chan runtime.Input, startHeight uint64, shutdown <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	height := startHeight
	var batch []runtime.Input

	for {
		select {
		case <-shutdown:
			return
		case in, ok := <-inputs:
			if !ok {
				return
			}
			batch = append(batch, in)
		case now := <-ticker.C:
			if len(batch) == 0 {
				continue
			}
			height++
			start := time.Now()
			frame, rejects := runtime.ApplyServerFrame(state, batch, uint64(now.Unix()), height)
			recorder.ObserveTick(time.Since(start))
			for _, r := range rejects {
				recorder.RecordReject(rejectReason(r.Err))
			}
			if err := db.PutServerFrame(frame); err != nil {
				xlndLog.Errorf("unable to persist server frame %d: %v", height, err)
				continue
			}
			recorder.RecordCommit()
			batch = nil
		}
	}
}

func rejectReason(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

func main() {
	os.Exit(xlndMain())
}
