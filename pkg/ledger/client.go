package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client provides ledger-scoped Redis operations.
// All keys and channels are namespaced with the ledger name.
// The client is safe for concurrent use.
type Client struct {
	rdb        *redis.Client
	ledgerName string
	now        func() time.Time
}

// NewClient creates a client for the named ledger.
// Returns an error if ledgerName is empty.
func NewClient(redisOpts *redis.Options, ledgerName string) (*Client, error) {
	if ledgerName == "" {
		return nil, fmt.Errorf("ledger name cannot be empty")
	}

	return &Client{
		rdb:        redis.NewClient(redisOpts),
		ledgerName: ledgerName,
		now:        time.Now,
	}, nil
}

// LedgerName returns the namespace this client operates on.
func (c *Client) LedgerName() string {
	return c.ledgerName
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetAllWaves returns every mined wave in insertion order.
func (c *Client) GetAllWaves(ctx context.Context) ([]Wave, error) {
	raw, err := c.rdb.LRange(ctx, WavesKey(c.ledgerName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read waves from Redis: %w", err)
	}

	waves := make([]Wave, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal([]byte(item), &waves[i]); err != nil {
			return nil, fmt.Errorf("failed to unmarshal wave %d: %w", i, err)
		}
	}
	return waves, nil
}

// GetTotalWaves returns the number of mined waves.
func (c *Client) GetTotalWaves(ctx context.Context) (uint64, error) {
	n, err := c.rdb.LLen(ctx, WavesKey(c.ledgerName)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count waves: %w", err)
	}
	return uint64(n), nil
}

// SubmitWave records a pending transaction and queues it for mining.
// The transaction hash and mempool entry are written atomically.
func (c *Client) SubmitWave(ctx context.Context, from, message string) (*Transaction, error) {
	tx := &Transaction{
		Ref:           uuid.New().String(),
		From:          from,
		Message:       message,
		Status:        TxStatusPending,
		SubmittedAtMs: c.now().UnixMilli(),
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, TransactionKey(c.ledgerName, tx.Ref), TransactionToHash(tx))
		pipe.RPush(ctx, MempoolKey(c.ledgerName), tx.Ref)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	return tx, nil
}

// GetTransaction retrieves a transaction by reference.
// Returns (nil, redis.Nil) if it does not exist.
func (c *Client) GetTransaction(ctx context.Context, ref string) (*Transaction, error) {
	hash, err := c.rdb.HGetAll(ctx, TransactionKey(c.ledgerName, ref)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction from Redis: %w", err)
	}
	if len(hash) == 0 {
		return nil, redis.Nil
	}

	tx, err := HashToTransaction(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTransaction, err)
	}
	return tx, nil
}

// ScanTransactions returns the refs of every transaction whose ref starts
// with prefix.
func (c *Client) ScanTransactions(ctx context.Context, prefix string) ([]string, error) {
	keyPrefix := TransactionKey(c.ledgerName, "")
	iter := c.rdb.Scan(ctx, 0, keyPrefix+prefix+"*", 100).Iterator()

	var refs []string
	for iter.Next(ctx) {
		refs = append(refs, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}
	sort.Strings(refs)
	return refs, nil
}

// requeuePending puts ref back at the head of the mempool.
func (c *Client) requeuePending(ctx context.Context, ref string) error {
	return c.rdb.LPush(ctx, MempoolKey(c.ledgerName), ref).Err()
}

// PendingCount returns the number of transactions waiting in the mempool.
func (c *Client) PendingCount(ctx context.Context) (int64, error) {
	n, err := c.rdb.LLen(ctx, MempoolKey(c.ledgerName)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read mempool: %w", err)
	}
	return n, nil
}

// WaitSettled blocks until the transaction is mined or failed, or ctx ends.
// It subscribes before reading the current status so a settlement between
// the two cannot be missed.
func (c *Client) WaitSettled(ctx context.Context, ref string) (*Transaction, error) {
	pubsub := c.rdb.Subscribe(ctx, TransactionEventsChannel(c.ledgerName))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to transaction events: %w", err)
	}

	tx, err := c.GetTransaction(ctx, ref)
	if err != nil {
		return nil, err
	}
	if tx.Status.Settled() {
		return tx, nil
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil, fmt.Errorf("transaction event subscription closed")
			}
			var event Transaction
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			if event.Ref == ref && event.Status.Settled() {
				return &event, nil
			}
		}
	}
}

// settle appends a mined wave, or marks the transaction failed, and
// publishes the outcome.
func (c *Client) settle(ctx context.Context, tx *Transaction, wave *Wave) error {
	tx.SettledAtMs = c.now().UnixMilli()

	var waveJSON []byte
	if wave != nil {
		var err error
		if waveJSON, err = json.Marshal(wave); err != nil {
			return fmt.Errorf("failed to marshal wave: %w", err)
		}
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if wave != nil {
			pipe.RPush(ctx, WavesKey(c.ledgerName), waveJSON)
		}
		pipe.HSet(ctx, TransactionKey(c.ledgerName, tx.Ref), TransactionToHash(tx))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to settle transaction %s: %w", tx.Ref, err)
	}

	txJSON, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction for event: %w", err)
	}
	if err := c.rdb.Publish(ctx, TransactionEventsChannel(c.ledgerName), txJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish transaction event: %w", err)
	}

	if wave != nil {
		if err := c.rdb.Publish(ctx, WaveEventsChannel(c.ledgerName), waveJSON).Err(); err != nil {
			return fmt.Errorf("failed to publish wave event: %w", err)
		}
	}
	return nil
}

// popPending removes the oldest pending reference from the mempool.
// A zero wait polls without blocking. Returns redis.Nil when empty.
func (c *Client) popPending(ctx context.Context, wait time.Duration) (string, error) {
	if wait <= 0 {
		return c.rdb.LPop(ctx, MempoolKey(c.ledgerName)).Result()
	}
	res, err := c.rdb.BLPop(ctx, wait, MempoolKey(c.ledgerName)).Result()
	if err != nil {
		return "", err
	}
	// BLPOP replies with [key, value].
	return res[1], nil
}

// Subscription delivers mined waves. Caller must call Close() when done.
type Subscription struct {
	events <-chan *Wave
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of mined waves. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan *Wave {
	return s.events
}

// Errors returns non-fatal decoding errors. Bad messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeWaves streams waves as they are mined.
// Delivery is at-most-once: a slow subscriber may miss waves.
func (c *Client) SubscribeWaves(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, WaveEventsChannel(c.ledgerName))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to wave events: %w", err)
	}

	eventsChan := make(chan *Wave, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var wave Wave
				if err := json.Unmarshal([]byte(msg.Payload), &wave); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal wave event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &wave:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// ErrCorruptTransaction is returned when a stored transaction cannot be
// decoded.
var ErrCorruptTransaction = errors.New("corrupt transaction")

// IsNotFound reports whether err is a Redis "key not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// ValidateMessage applies the ledger's message rule: non-empty and at most
// maxBytes bytes (0 means unlimited).
func ValidateMessage(message string, maxBytes int) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message is required")
	}
	if maxBytes > 0 && len(message) > maxBytes {
		return fmt.Errorf("message is %d bytes, limit is %d", len(message), maxBytes)
	}
	return nil
}
