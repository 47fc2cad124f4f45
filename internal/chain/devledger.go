// Package chain provides the contract endpoints the gateway talks to: an
// Ethereum JSON-RPC node and the Redis-backed dev ledger.
package chain

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/wallet"
	"github.com/dyluth/waveportal/pkg/ledger"
)

// DevLedger adapts a ledger.Client to gateway.Contract.
type DevLedger struct {
	client *ledger.Client
	miner  *ledger.Miner
}

// NewDevLedger wraps client. A non-nil miner is run once after every
// submit so writes confirm without a separate `devnet mine` process.
func NewDevLedger(client *ledger.Client, miner *ledger.Miner) *DevLedger {
	return &DevLedger{client: client, miner: miner}
}

// GetAllRecords returns every mined wave in ledger order.
func (d *DevLedger) GetAllRecords(ctx context.Context) ([]gateway.RawRecord, error) {
	waves, err := d.client.GetAllWaves(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]gateway.RawRecord, len(waves))
	for i, w := range waves {
		records[i] = gateway.RawRecord{
			Author:    w.Waver,
			Timestamp: w.Timestamp,
			Message:   w.Message,
		}
	}
	return records, nil
}

// GetTotalCount returns the number of mined waves.
func (d *DevLedger) GetTotalCount(ctx context.Context) (uint64, error) {
	return d.client.GetTotalWaves(ctx)
}

// SubmitRecord queues a wave in the mempool and returns its reference.
func (d *DevLedger) SubmitRecord(ctx context.Context, from wallet.Identity, message string) (string, error) {
	tx, err := d.client.SubmitWave(ctx, from.String(), message)
	if err != nil {
		return "", err
	}

	if d.miner != nil {
		go func() {
			if _, err := d.miner.MineOnce(context.WithoutCancel(ctx)); err != nil {
				log.Printf("[DevLedger] Automine failed: %v", err)
			}
		}()
	}
	return tx.Ref, nil
}

// WaitConfirmed blocks until the transaction settles. A failed
// transaction is reported as gateway.ErrConfirmationFailed.
func (d *DevLedger) WaitConfirmed(ctx context.Context, txRef string) error {
	tx, err := d.client.WaitSettled(ctx, txRef)
	if err != nil {
		if ledger.IsNotFound(err) {
			return fmt.Errorf("%w: unknown transaction", gateway.ErrConfirmationFailed)
		}
		return err
	}
	if tx.Status == ledger.TxStatusFailed {
		return fmt.Errorf("%w: %s", gateway.ErrConfirmationFailed, tx.Reason)
	}
	return nil
}

// Watch streams newly mined waves until ctx ends. The returned channel is
// closed when the subscription ends.
func (d *DevLedger) Watch(ctx context.Context) (<-chan gateway.RawRecord, error) {
	sub, err := d.client.SubscribeWaves(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan gateway.RawRecord)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case w, ok := <-sub.Events():
				if !ok {
					return
				}
				select {
				case out <- gateway.RawRecord{Author: w.Waver, Timestamp: w.Timestamp, Message: w.Message}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-sub.Errors():
				if !ok {
					return
				}
				log.Printf("[DevLedger] Watch: %v", err)
			}
		}
	}()
	return out, nil
}

// Close releases the Redis connection.
func (d *DevLedger) Close() error {
	return d.client.Close()
}
