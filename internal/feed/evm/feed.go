// Package evm reads finalized lending-protocol logs from an Ethereum RPC
// endpoint and delivers them as ordered domain events.
package evm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// Config tunes the log polling loop.
type Config struct {
	// StartBlock is the first block to scan, usually the lending contract
	// deployment block.
	StartBlock uint64
	// EndBlock bounds a backfill run; zero means follow the chain head.
	EndBlock uint64
	// Confirmations is the distance kept behind the head so reorged logs
	// never reach the projection.
	Confirmations uint64
	// BatchSize caps the block range of a single eth_getLogs call.
	BatchSize uint64
	// PollInterval is the sleep between polls once caught up to the head.
	PollInterval time.Duration
}

// LogFeed implements domain.EventFeed over eth_getLogs polling.
type LogFeed struct {
	ec     *ethclient.Client
	dec    *Decoder
	cfg    Config
	logger *slog.Logger

	queue []domain.Event
	next  uint64
}

// NewLogFeed creates a feed starting at cfg.StartBlock.
func NewLogFeed(ec *ethclient.Client, dec *Decoder, cfg Config, logger *slog.Logger) *LogFeed {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	return &LogFeed{
		ec:     ec,
		dec:    dec,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "log_feed")),
		next:   cfg.StartBlock,
	}
}

// SetStart moves the scan cursor, typically to the checkpoint block on
// restart. Re-delivered events below the checkpoint are skipped downstream.
func (f *LogFeed) SetStart(block uint64) {
	if block > f.next {
		f.next = block
	}
}

// Next returns the next event in canonical order, blocking until one is
// available. A bounded feed returns domain.ErrEndOfFeed once the end block
// has been scanned.
func (f *LogFeed) Next(ctx context.Context) (domain.Event, error) {
	for len(f.queue) == 0 {
		fetched, err := f.poll(ctx)
		if err != nil {
			return domain.Event{}, err
		}
		if fetched || len(f.queue) > 0 {
			continue
		}
		if f.cfg.EndBlock > 0 && f.next > f.cfg.EndBlock {
			return domain.Event{}, domain.ErrEndOfFeed
		}
		select {
		case <-ctx.Done():
			return domain.Event{}, ctx.Err()
		case <-time.After(f.cfg.PollInterval):
		}
	}

	ev := f.queue[0]
	f.queue = f.queue[1:]
	return ev, nil
}

// poll scans at most one batch of blocks. It reports whether the cursor
// advanced; false means the feed is caught up to the safe head.
func (f *LogFeed) poll(ctx context.Context) (bool, error) {
	head, err := f.ec.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("evm: block number: %w", err)
	}
	if head < f.cfg.Confirmations {
		return false, nil
	}
	safe := head - f.cfg.Confirmations
	if f.cfg.EndBlock > 0 && safe > f.cfg.EndBlock {
		safe = f.cfg.EndBlock
	}
	if f.next > safe {
		return false, nil
	}

	to := f.next + f.cfg.BatchSize - 1
	if to > safe {
		to = safe
	}

	logs, err := f.ec.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(f.next),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: f.dec.Watched(),
	})
	if err != nil {
		return false, fmt.Errorf("evm: filter logs [%d, %d]: %w", f.next, to, err)
	}

	sort.Slice(logs, func(i, j int) bool {
		a, b := logs[i], logs[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		if a.TxIndex != b.TxIndex {
			return a.TxIndex < b.TxIndex
		}
		return a.Index < b.Index
	})

	timestamps := make(map[uint64]uint64, 4)
	decoded := 0
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ts, ok := timestamps[lg.BlockNumber]
		if !ok {
			header, err := f.ec.HeaderByNumber(ctx, new(big.Int).SetUint64(lg.BlockNumber))
			if err != nil {
				return false, fmt.Errorf("evm: header %d: %w", lg.BlockNumber, err)
			}
			ts = header.Time
			timestamps[lg.BlockNumber] = ts
		}

		ev, ok, err := f.dec.Decode(lg, ts)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		f.queue = append(f.queue, ev)
		decoded++
	}

	f.logger.DebugContext(ctx, "scanned block range",
		slog.Uint64("from", f.next),
		slog.Uint64("to", to),
		slog.Int("logs", len(logs)),
		slog.Int("events", decoded),
	)
	f.next = to + 1
	return true, nil
}
