// Package ledger is a Redis-backed, append-only wave ledger for local
// development. It stands in for the on-chain wave contract: writes are
// queued as pending transactions and only become waves once a Miner
// confirms them.
//
// # Redis Schema
//
// All keys and channels are namespaced by ledger name so several ledgers can
// share one Redis server.
//
// Waves:        waveportal:{ledger}:waves            (LIST of wave JSON, append-only)
// Transactions: waveportal:{ledger}:tx:{ref}         (HASH)
// Mempool:      waveportal:{ledger}:mempool          (LIST of pending refs, FIFO)
//
// Pub/Sub channels:
//
// Transaction settlements: waveportal:{ledger}:tx_events
// Mined waves:             waveportal:{ledger}:wave_events
//
// # Usage Example
//
//	client, err := ledger.NewClient(&redis.Options{Addr: "localhost:6379"}, "dev")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	tx, err := client.SubmitWave(ctx, "0x8AFd794A5D1BCFa8327507b18C0984147DAC7a91", "gm")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Elsewhere: ledger.NewMiner(client, ledger.MinerOptions{}).Run(ctx)
//
//	mined, err := client.WaitSettled(ctx, tx.Ref)
package ledger
