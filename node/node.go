// Package node composes the chain tree with the pending-transaction inbox
// and exposes the surface callers and block producers work against.
package node

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/Luismorlan/chaintree_in_go/chain"
	"github.com/Luismorlan/chaintree_in_go/config"
	"github.com/Luismorlan/chaintree_in_go/model"
	"github.com/Luismorlan/chaintree_in_go/visualize"
)

// Node owns one chain tree and one transaction pool. The tree carries its
// own lock; the node's mutex only guards the pool.
type Node struct {
	tree   *chain.ChainTree
	txPool model.TransactionPool
	config config.AppConfig
	m      sync.RWMutex
	// A unique identifier of this node. It never influences admission, only
	// things like render file names.
	uuid string
}

// NewNode builds a node whose tree holds only the given genesis block.
func NewNode(c config.AppConfig, genesis *model.Block) *Node {
	return &Node{
		tree:   chain.NewChainTree(genesis),
		txPool: model.NewTransactionPool(),
		config: c,
		uuid:   uuid.NewV4().String(),
	}
}

// SubmitTransaction drops tx into the pending pool. Pure pass-through: no
// validation happens here, the pool is an inbox for a producer to drain,
// never an input to admission.
func (n *Node) SubmitTransaction(tx *model.Transaction) error {
	n.m.Lock()
	defer n.m.Unlock()
	if !n.txPool.Add(tx) {
		return errors.Errorf("transaction %s is already pending", tx.Hash)
	}
	return nil
}

// PendingTransactions returns the current content of the inbox, for a
// producer assembling the next block body.
func (n *Node) PendingTransactions() []*model.Transaction {
	n.m.RLock()
	defer n.m.RUnlock()
	return n.txPool.All()
}

// AddBlock offers a block to the chain tree. On admission the block's body
// transactions are cleared out of the pending pool; any rejection leaves
// both the tree and the pool unchanged.
func (n *Node) AddBlock(block *model.Block) error {
	if err := n.tree.AddBlock(block); err != nil {
		return err
	}
	n.m.Lock()
	defer n.m.Unlock()
	for _, tx := range block.Txs {
		n.txPool.Remove(tx.Hash)
	}
	return nil
}

// BestBlock returns the block at the deepest tip.
func (n *Node) BestBlock() *model.Block {
	return n.tree.BestBlock()
}

// BestDepth returns the depth of the deepest tip.
func (n *Node) BestDepth() int64 {
	return n.tree.BestDepth()
}

// BestLedgerSnapshot returns a deep copy of the spendable outputs at the
// deepest tip.
func (n *Node) BestLedgerSnapshot() model.Ledger {
	return n.tree.BestLedgerSnapshot()
}

// FindByHash resolves an admitted block by id.
func (n *Node) FindByHash(hash string) (*chain.ChainNode, bool) {
	return n.tree.FindByHash(hash)
}

// GetUtxoForPublicKey filters the best ledger down to the outputs owned by
// pk. The result is a fresh ledger the caller may mutate freely.
func (n *Node) GetUtxoForPublicKey(pk []byte) model.Ledger {
	l := n.tree.BestLedgerSnapshot()
	owned := model.NewLedger()
	for ref, output := range l.L {
		if bytes.Equal(output.PublicKey, pk) {
			owned.L[ref] = output
		}
	}
	return owned
}

// Show renders the tree from the best node's d-th ancestor downwards.
func (n *Node) Show(d int) {
	visualize.Render(n.tree.SubtreeView(d), n.uuid)
}
