package wallet

import "errors"

var (
	// ErrProviderUnavailable is returned when no wallet-capable provider exists.
	ErrProviderUnavailable = errors.New("wallet provider unavailable")

	// ErrAuthorizationDenied is returned when the user declines to grant an account.
	ErrAuthorizationDenied = errors.New("authorization denied")
)
