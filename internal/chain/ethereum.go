package chain

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

//go:embed wave_portal.abi.json
var defaultABI []byte

// DefaultPollInterval is how often receipts and counts are polled.
const DefaultPollInterval = 200 * time.Millisecond

const codeUserRejected = 4001

// waveTuple mirrors the contract's Wave struct. Field order matches the ABI.
type waveTuple struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

// LoadABI reads a contract ABI from path. Both a bare ABI array and a
// compiler artifact with an "abi" field are accepted. An empty path
// returns the built-in WavePortal ABI.
func LoadABI(path string) (abi.ABI, error) {
	data := defaultABI
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return abi.ABI{}, fmt.Errorf("failed to read ABI file: %w", err)
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(trimmed, &artifact); err != nil {
			return abi.ABI{}, fmt.Errorf("failed to parse ABI artifact: %w", err)
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, fmt.Errorf("ABI artifact has no \"abi\" field")
		}
		trimmed = artifact.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(trimmed))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}
	for _, name := range []string{"getAllWaves", "getTotalWaves", "wave"} {
		if _, ok := parsed.Methods[name]; !ok {
			return abi.ABI{}, fmt.Errorf("ABI is missing method %q", name)
		}
	}
	return parsed, nil
}

// Ethereum talks to a deployed wave contract through a JSON-RPC node.
// Writes are sent with eth_sendTransaction, so the node or wallet behind
// the endpoint signs them.
type Ethereum struct {
	rpc          *rpc.Client
	client       *ethclient.Client
	abi          abi.ABI
	address      common.Address
	pollInterval time.Duration
}

// NewEthereum creates an endpoint for the contract at address.
func NewEthereum(rpcClient *rpc.Client, address common.Address, contractABI abi.ABI) *Ethereum {
	return &Ethereum{
		rpc:          rpcClient,
		client:       ethclient.NewClient(rpcClient),
		abi:          contractABI,
		address:      address,
		pollInterval: DefaultPollInterval,
	}
}

// SetPollInterval overrides DefaultPollInterval.
func (e *Ethereum) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.pollInterval = d
	}
}

func (e *Ethereum) call(ctx context.Context, method string, out interface{}) error {
	data, err := e.abi.Pack(method)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.address, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("%s call failed: %w", method, err)
	}

	if err := e.abi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return nil
}

// GetAllRecords calls getAllWaves.
func (e *Ethereum) GetAllRecords(ctx context.Context) ([]gateway.RawRecord, error) {
	var waves []waveTuple
	if err := e.call(ctx, "getAllWaves", &waves); err != nil {
		return nil, err
	}

	records := make([]gateway.RawRecord, len(waves))
	for i, w := range waves {
		if !w.Timestamp.IsInt64() {
			return nil, fmt.Errorf("wave %d timestamp %s overflows int64", i, w.Timestamp)
		}
		records[i] = gateway.RawRecord{
			Author:    w.Waver.Hex(),
			Timestamp: w.Timestamp.Int64(),
			Message:   w.Message,
		}
	}
	return records, nil
}

// GetTotalCount calls getTotalWaves.
func (e *Ethereum) GetTotalCount(ctx context.Context) (uint64, error) {
	var total *big.Int
	if err := e.call(ctx, "getTotalWaves", &total); err != nil {
		return 0, err
	}
	if !total.IsUint64() {
		return 0, fmt.Errorf("total wave count %s overflows uint64", total)
	}
	return total.Uint64(), nil
}

// SubmitRecord sends wave(message) from the given identity and returns the
// transaction hash.
func (e *Ethereum) SubmitRecord(ctx context.Context, from wallet.Identity, message string) (string, error) {
	data, err := e.abi.Pack("wave", message)
	if err != nil {
		return "", fmt.Errorf("failed to pack wave: %w", err)
	}

	args := map[string]interface{}{
		"from":  from.Address(),
		"to":    e.address,
		"input": hexutil.Bytes(data),
	}

	var hash common.Hash
	if err := e.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
			return "", fmt.Errorf("%w: %v", gateway.ErrSubmissionRejected, err)
		}
		return "", fmt.Errorf("eth_sendTransaction failed: %w", err)
	}
	return hash.Hex(), nil
}

// WaitConfirmed polls for the transaction receipt until it is mined or ctx
// ends. A reverted transaction is reported as gateway.ErrConfirmationFailed.
func (e *Ethereum) WaitConfirmed(ctx context.Context, txRef string) error {
	hash := common.HexToHash(txRef)
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return fmt.Errorf("%w: reverted in block %v", gateway.ErrConfirmationFailed, receipt.BlockNumber)
			}
			return nil
		case errors.Is(err, ethereum.NotFound):
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[Ethereum] Receipt lookup for %s failed: %v", txRef, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Watch polls the wave count and emits records appended after the call.
// The returned channel is closed when ctx ends.
func (e *Ethereum) Watch(ctx context.Context) (<-chan gateway.RawRecord, error) {
	seen, err := e.GetTotalCount(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan gateway.RawRecord)
	go func() {
		defer close(out)
		ticker := time.NewTicker(e.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			count, err := e.GetTotalCount(ctx)
			if err != nil || count <= seen {
				continue
			}
			records, err := e.GetAllRecords(ctx)
			if err != nil {
				log.Printf("[Ethereum] Watch: %v", err)
				continue
			}
			for _, r := range records[min(int(seen), len(records)):] {
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
			seen = uint64(len(records))
		}
	}()
	return out, nil
}

// Close closes the RPC connection.
func (e *Ethereum) Close() error {
	e.rpc.Close()
	return nil
}
