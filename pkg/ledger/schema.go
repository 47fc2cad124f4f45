package ledger

import "fmt"

// Key pattern: waveportal:{ledger}:{entity}
// Channel pattern: waveportal:{ledger}:{event_type}_events

// WavesKey returns the key of the append-only wave list.
func WavesKey(ledgerName string) string {
	return fmt.Sprintf("waveportal:%s:waves", ledgerName)
}

// TransactionKey returns the key of a transaction hash.
func TransactionKey(ledgerName, ref string) string {
	return fmt.Sprintf("waveportal:%s:tx:%s", ledgerName, ref)
}

// MempoolKey returns the key of the pending transaction queue.
func MempoolKey(ledgerName string) string {
	return fmt.Sprintf("waveportal:%s:mempool", ledgerName)
}

// TransactionEventsChannel carries settled transactions.
func TransactionEventsChannel(ledgerName string) string {
	return fmt.Sprintf("waveportal:%s:tx_events", ledgerName)
}

// WaveEventsChannel carries newly mined waves.
func WaveEventsChannel(ledgerName string) string {
	return fmt.Sprintf("waveportal:%s:wave_events", ledgerName)
}
