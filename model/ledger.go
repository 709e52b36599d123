package model

// UTXO identifies one unspent transaction output. All UTXOs along one fork
// are aggregated as a Ledger snapshotted at each node of the chain tree.
// Structural equality makes it usable directly as a map key.
type UTXO struct {
	// Hex hash of the producing transaction.
	PrevTxHash string
	// The index of the output in that transaction.
	Index int64
}

// Ledger is the pool of unspent outputs at one point of one fork, keyed by
// the output's UTXO reference.
type Ledger struct {
	L map[UTXO]Output
}

func NewLedger() Ledger {
	return Ledger{
		L: make(map[UTXO]Output),
	}
}
