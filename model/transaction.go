package model

type Input struct {
	// Hash of the transaction that produced the output being spent.
	PrevTxHash string
	// The index of that output in the producing transaction. Together with
	// PrevTxHash it identifies one unique unspent output.
	Index int64
	// Signature over this transaction's unsigned body, made with the private
	// key matching the spent output's owner.
	Signature []byte
}

type Output struct {
	// How much value to transfer.
	Value float64
	// Public key of the receiver, in bytes.
	PublicKey []byte
}

type Transaction struct {
	// Hex content hash of this transaction. We use this to uniquely identify
	// the transaction and as the first half of every UTXO key it produces.
	Hash string
	// All inputs of this transaction. A transaction with no inputs is a
	// coinbase (reward) transaction.
	Inputs []Input
	// All outputs of this transaction.
	Outputs []Output
	// Height is set only on coinbase transactions so that identical rewards
	// minted at different heights never hash to the same id. Zero for body
	// transactions.
	Height int64
}

// IsCoinbase reports whether this is a reward transaction. Coinbase
// transactions are exempt from the input-based validity rules.
func (t *Transaction) IsCoinbase() bool {
	return len(t.Inputs) == 0
}
