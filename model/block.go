package model

type Block struct {
	// Hex hash of this entire block, derived from its content.
	Hash string
	// Hash of the parent block. Empty only on the genesis block.
	PrevHash string
	// Coinbase transaction, the producer's reward. Credited unconditionally
	// once the body has been accepted.
	Coinbase *Transaction
	// Body transactions, validated against the parent's ledger.
	Txs []*Transaction
}
