package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxMessageBytes is the message size limit when none is configured.
const DefaultMaxMessageBytes = 280

// MinerOptions configures a Miner.
type MinerOptions struct {
	// MaxMessageBytes rejects longer messages as failed transactions.
	// Zero uses DefaultMaxMessageBytes; negative disables the limit.
	MaxMessageBytes int

	// BlockTime is how long Run waits on an empty mempool before looping.
	// Zero uses one second.
	BlockTime time.Duration
}

// Miner confirms pending transactions in submission order.
type Miner struct {
	client    *Client
	maxBytes  int
	blockTime time.Duration
}

// NewMiner creates a miner for the client's ledger.
func NewMiner(client *Client, opts MinerOptions) *Miner {
	maxBytes := opts.MaxMessageBytes
	switch {
	case maxBytes == 0:
		maxBytes = DefaultMaxMessageBytes
	case maxBytes < 0:
		maxBytes = 0
	}

	blockTime := opts.BlockTime
	if blockTime <= 0 {
		blockTime = time.Second
	}

	return &Miner{
		client:    client,
		maxBytes:  maxBytes,
		blockTime: blockTime,
	}
}

// Run mines transactions until ctx is cancelled.
func (m *Miner) Run(ctx context.Context) error {
	log.Printf("[Miner] Starting for ledger '%s'", m.client.ledgerName)

	for {
		if ctx.Err() != nil {
			log.Printf("[Miner] Shutting down...")
			return nil
		}

		ref, err := m.client.popPending(ctx, m.blockTime)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				log.Printf("[Miner] Shutting down...")
				return nil
			}
			return fmt.Errorf("failed to read mempool: %w", err)
		}

		if _, err := m.mine(ctx, ref); err != nil {
			log.Printf("[Miner] Failed to mine %s: %v", ref, err)
			select {
			case <-ctx.Done():
			case <-time.After(m.blockTime):
			}
		}
	}
}

// MineOnce mines the oldest pending transaction. It returns a nil
// transaction when the mempool is empty.
func (m *Miner) MineOnce(ctx context.Context) (*Transaction, error) {
	ref, err := m.client.popPending(ctx, 0)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read mempool: %w", err)
	}
	return m.mine(ctx, ref)
}

func (m *Miner) mine(ctx context.Context, ref string) (*Transaction, error) {
	tx, err := m.client.GetTransaction(ctx, ref)
	switch {
	case IsNotFound(err):
		return nil, fmt.Errorf("dropped unknown transaction %s", ref)
	case errors.Is(err, ErrCorruptTransaction):
		return nil, fmt.Errorf("dropped transaction %s: %w", ref, err)
	case err != nil:
		if qerr := m.client.requeuePending(ctx, ref); qerr != nil {
			return nil, fmt.Errorf("failed to load transaction %s (%v) and to requeue it: %w", ref, err, qerr)
		}
		return nil, fmt.Errorf("failed to load transaction %s, requeued: %w", ref, err)
	}
	if tx.Status != TxStatusPending {
		return tx, nil
	}

	if err := ValidateMessage(tx.Message, m.maxBytes); err != nil {
		return m.reject(ctx, tx, err)
	}

	wave := &Wave{
		Waver:     tx.From,
		Timestamp: m.client.now().Unix(),
		Message:   tx.Message,
	}
	if err := wave.Validate(); err != nil {
		return m.reject(ctx, tx, err)
	}
	tx.Status = TxStatusMined
	if err := m.client.settle(ctx, tx, wave); err != nil {
		return nil, err
	}
	log.Printf("[Miner] Mined %s from %s", tx.Ref, tx.From)
	return tx, nil
}

// reject settles tx as failed with reason.
func (m *Miner) reject(ctx context.Context, tx *Transaction, reason error) (*Transaction, error) {
	tx.Status = TxStatusFailed
	tx.Reason = reason.Error()
	if err := m.client.settle(ctx, tx, nil); err != nil {
		return nil, err
	}
	log.Printf("[Miner] Rejected %s: %s", tx.Ref, tx.Reason)
	return tx, nil
}
