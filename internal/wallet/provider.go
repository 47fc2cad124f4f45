package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
)

// Provider is the wallet capability the resolver depends on.
//
// explicit=false returns accounts that are already granted without prompting.
// explicit=true prompts the user and returns the accounts they granted.
type Provider interface {
	RequestAccounts(ctx context.Context, explicit bool) ([]string, error)
}

// EIP-1193 "user rejected request" and JSON-RPC "method not found".
const (
	codeUserRejected   = 4001
	codeMethodNotFound = -32601
)

// RPCProvider asks an Ethereum JSON-RPC endpoint for its accounts.
// Browser wallets and signers such as Clef answer eth_requestAccounts;
// plain nodes only answer eth_accounts, which is used as a fallback.
type RPCProvider struct {
	client *rpc.Client
}

// NewRPCProvider wraps an already dialled RPC client.
func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

// RequestAccounts implements Provider.
func (p *RPCProvider) RequestAccounts(ctx context.Context, explicit bool) ([]string, error) {
	method := "eth_accounts"
	if explicit {
		method = "eth_requestAccounts"
	}

	var accounts []string
	err := p.client.CallContext(ctx, &accounts, method)
	if err == nil {
		return accounts, nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected:
			return nil, fmt.Errorf("%w: %v", ErrAuthorizationDenied, err)
		case codeMethodNotFound:
			if explicit {
				return p.RequestAccounts(ctx, false)
			}
		}
	}
	return nil, fmt.Errorf("%s failed: %w", method, err)
}

// Prompter asks the user whether to grant accounts to this session.
type Prompter interface {
	Confirm(ctx context.Context, accounts []string) (bool, error)
}

// StaticProvider serves a fixed account list. It backs the local dev ledger,
// where there is no wallet extension to ask.
type StaticProvider struct {
	accounts []string
	prompter Prompter

	mu      sync.Mutex
	granted bool
}

// NewStaticProvider creates a provider for the given accounts. When
// preauthorized is true the accounts are returned without prompting.
// A nil prompter grants explicit requests automatically.
func NewStaticProvider(accounts []string, preauthorized bool, prompter Prompter) *StaticProvider {
	return &StaticProvider{
		accounts: append([]string(nil), accounts...),
		prompter: prompter,
		granted:  preauthorized,
	}
}

// RequestAccounts implements Provider.
func (p *StaticProvider) RequestAccounts(ctx context.Context, explicit bool) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !explicit {
		if !p.granted {
			return []string{}, nil
		}
		return append([]string(nil), p.accounts...), nil
	}

	if !p.granted && p.prompter != nil {
		ok, err := p.prompter.Confirm(ctx, p.accounts)
		if err != nil {
			return nil, fmt.Errorf("prompt failed: %w", err)
		}
		if !ok {
			return nil, ErrAuthorizationDenied
		}
	}
	p.granted = true
	return append([]string(nil), p.accounts...), nil
}
