package model

// TransactionPool holds pending transactions that have not been included in
// any admitted block. It is a submission inbox only: nothing in the admission
// path reads from it or validates against it. Key is the hex transaction
// hash.
type TransactionPool struct {
	TxPool map[string]*Transaction
}

// NewTransactionPool creates an empty pool.
func NewTransactionPool() TransactionPool {
	return TransactionPool{
		TxPool: make(map[string]*Transaction),
	}
}

// Add puts a transaction into the pool. Returns false if a transaction with
// the same hash is already pending.
func (p *TransactionPool) Add(tx *Transaction) bool {
	if _, exist := p.TxPool[tx.Hash]; exist {
		return false
	}
	p.TxPool[tx.Hash] = tx
	return true
}

// Remove drops the transaction with the given hash, if present.
func (p *TransactionPool) Remove(hash string) {
	delete(p.TxPool, hash)
}

// All returns every pending transaction, in no particular order.
func (p *TransactionPool) All() []*Transaction {
	txs := make([]*Transaction, 0, len(p.TxPool))
	for _, tx := range p.TxPool {
		txs = append(txs, tx)
	}
	return txs
}
