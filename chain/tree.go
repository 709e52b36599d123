// Package chain maintains a bounded-memory tree of cryptographically linked
// blocks, one ledger snapshot per node, and decides block admission.
package chain

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/Luismorlan/chaintree_in_go/model"
	"github.com/Luismorlan/chaintree_in_go/validator"
)

// CutoffAge bounds how far behind the best tip a block's parent may fall. A
// parent buried deeper than this can never again head a competitive chain,
// so extending it is refused and everything below the line that is off the
// best path gets reclaimed.
const CutoffAge = 10

// Admission errors. Every rejection leaves the tree untouched; nothing is
// retried internally, the caller decides whether to re-submit later.
var (
	ErrGenesisBlock        = errors.New("block carries no parent hash, a second genesis is rejected")
	ErrDuplicateBlock      = errors.New("block is already part of the tree")
	ErrUnknownParent       = errors.New("parent block is not in the tree")
	ErrTooOld              = errors.New("parent is buried more than the cutoff age below the best tip")
	ErrInvalidTransactions = errors.New("block contains a transaction that never becomes valid")
)

// ChainNode wraps one admitted block together with its position in the tree
// and the ledger that holds immediately after the block's transactions are
// applied. Block, Parent, Depth, Seq and Ledger never change once the node
// is constructed, so reading them needs no lock. The child list grows under
// the owning tree's write lock and is deliberately unexported: callers that
// want to walk the structure take a SubtreeView, which copies it under the
// read lock.
type ChainNode struct {
	Block  *model.Block
	Parent *ChainNode
	// More than one child means a fork diverges at this node.
	children []*ChainNode
	// Distance from genesis. Genesis sits at depth 0.
	Depth int64
	// Creation order, the deterministic tie-break between equal-depth tips:
	// the earlier node keeps the tip.
	Seq int64
	// Unspent outputs produced minus consumed along the path from genesis to
	// this node. The chain never mutates it after construction and neither
	// may callers: treat it as read-only and take LedgerSnapshot for a
	// private copy.
	Ledger model.Ledger
}

// LedgerSnapshot returns a deep copy of the node's ledger, for callers that
// want to mutate their view without aliasing the node's state.
func (n *ChainNode) LedgerSnapshot() model.Ledger {
	l := model.NewLedger()
	copier.CopyWithOption(&l, &n.Ledger, copier.Option{DeepCopy: true})
	return l
}

// NodeView is a detached copy of the tree structure at and below one node,
// safe to traverse without any lock. The blocks themselves are shared; they
// are immutable once admitted.
type NodeView struct {
	Block    *model.Block
	Depth    int64
	Seq      int64
	Children []*NodeView
}

// ChainTree owns the genesis node and, through parent-child links, every
// node admitted since. A hash index resolves parents in O(1) instead of
// walking the tree. All mutation happens in AddBlock under the write lock;
// queries share the read lock.
type ChainTree struct {
	m       sync.RWMutex
	genesis *ChainNode
	best    *ChainNode
	index   map[string]*ChainNode
	seq     *atomic.Int64
}

// NewChainTree builds a tree holding only the genesis block. The genesis
// ledger is seeded from an empty pool: the coinbase is credited
// unconditionally and any body transactions run through the regular
// acceptance path, same as every later block.
func NewChainTree(genesis *model.Block) *ChainTree {
	empty := model.NewLedger()
	v := validator.NewLedgerValidator(&empty)
	if genesis.Coinbase != nil {
		v.ApplyCoinbase(genesis.Coinbase)
	}
	v.AcceptBatch(genesis.Txs)

	root := &ChainNode{
		Block:  genesis,
		Depth:  0,
		Seq:    0,
		Ledger: v.Snapshot(),
	}
	return &ChainTree{
		genesis: root,
		best:    root,
		index:   map[string]*ChainNode{genesis.Hash: root},
		seq:     atomic.NewInt64(0),
	}
}

// AddBlock admits block if its whole body is valid against the parent's
// ledger and the parent is not buried below the cutoff. The admit-and-prune
// sequence is atomic under the write lock; no structural write happens on
// any rejection path.
func (t *ChainTree) AddBlock(block *model.Block) error {
	t.m.Lock()
	defer t.m.Unlock()

	if block.PrevHash == "" {
		return errors.Wrapf(ErrGenesisBlock, "block %s", block.Hash)
	}
	if _, exist := t.index[block.Hash]; exist {
		return errors.Wrapf(ErrDuplicateBlock, "block %s", block.Hash)
	}
	parent, ok := t.index[block.PrevHash]
	if !ok {
		return errors.Wrapf(ErrUnknownParent, "block %s extends %s", block.Hash, block.PrevHash)
	}
	if parent.Depth < t.best.Depth-CutoffAge {
		return errors.Wrapf(ErrTooOld, "parent at depth %d, best tip at depth %d", parent.Depth, t.best.Depth)
	}

	v := validator.NewLedgerValidator(&parent.Ledger)
	accepted := v.AcceptBatch(block.Txs)
	if len(accepted) != len(block.Txs) {
		return errors.Wrapf(ErrInvalidTransactions, "block %s: %d of %d transactions accepted", block.Hash, len(accepted), len(block.Txs))
	}
	if block.Coinbase != nil {
		v.ApplyCoinbase(block.Coinbase)
	}

	node := &ChainNode{
		Block:  block,
		Parent: parent,
		Depth:  parent.Depth + 1,
		Seq:    t.seq.Inc(),
		Ledger: v.Snapshot(),
	}
	parent.children = append(parent.children, node)
	t.index[block.Hash] = node

	// Strictly deeper only: on a depth tie the older node keeps the tip.
	if node.Depth > t.best.Depth {
		t.best = node
		t.prune()
	}
	return nil
}

// prune discards every subtree rooted below the cutoff line that is not on
// the genesis-to-best path. Ancestors of the best node always survive, even
// when shallow: their ledgers are not re-derivable without replaying from
// genesis. Every doomed subtree hangs off the best path at exactly one
// node, so one walk down the path finds them all.
func (t *ChainTree) prune() {
	cut := t.best.Depth - CutoffAge
	if cut <= 0 {
		return
	}

	onPath := mapset.NewThreadUnsafeSet()
	for n := t.best; n != nil; n = n.Parent {
		onPath.Add(n.Block.Hash)
	}

	for p := t.genesis; p != nil && p.Depth < cut; {
		var next *ChainNode
		kept := p.children[:0]
		for _, c := range p.children {
			if onPath.Contains(c.Block.Hash) {
				kept = append(kept, c)
				next = c
				continue
			}
			if c.Depth < cut {
				t.discard(c)
				continue
			}
			kept = append(kept, c)
		}
		p.children = kept
		p = next
	}
}

// discard unindexes n and its whole subtree, so nothing inside the tree can
// reach it again and the garbage collector reclaims it in bulk. Links within
// the subtree are left intact: a concurrent reader still holding a pruned
// node keeps it alive until it drops the reference and can finish walking
// its ancestry, which is the release discipline queries rely on.
func (t *ChainTree) discard(n *ChainNode) {
	delete(t.index, n.Block.Hash)
	for _, c := range n.children {
		t.discard(c)
	}
}

// BestNode returns the node of maximum depth, oldest first on ties. The
// returned node is shared, read-only state.
func (t *ChainTree) BestNode() *ChainNode {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.best
}

// SubtreeView copies, under the read lock, the structure of the subtree
// rooted d levels above the best tip. This is the supported way to traverse
// forks: the copy stays coherent no matter how many blocks are admitted
// while the caller walks it.
func (t *ChainTree) SubtreeView(d int) *NodeView {
	t.m.RLock()
	defer t.m.RUnlock()
	r := t.best
	for i := 0; i < d; i++ {
		if r.Parent == nil {
			break
		}
		r = r.Parent
	}
	return viewOf(r)
}

func viewOf(n *ChainNode) *NodeView {
	v := &NodeView{Block: n.Block, Depth: n.Depth, Seq: n.Seq}
	for _, c := range n.children {
		v.Children = append(v.Children, viewOf(c))
	}
	return v
}

// BestBlock returns the block at the best tip.
func (t *ChainTree) BestBlock() *model.Block {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.best.Block
}

// BestDepth returns the depth of the best tip.
func (t *ChainTree) BestDepth() int64 {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.best.Depth
}

// BestLedgerSnapshot returns a deep copy of the ledger at the best tip.
// This is what a block producer treats as currently spendable; handing out
// a copy keeps node ledgers immutable no matter what the caller does.
func (t *ChainTree) BestLedgerSnapshot() model.Ledger {
	t.m.RLock()
	defer t.m.RUnlock()
	l := model.NewLedger()
	copier.CopyWithOption(&l, &t.best.Ledger, copier.Option{DeepCopy: true})
	return l
}

// FindByHash resolves a block hash through the index, never by tree
// recursion. The second return is false for unknown and pruned blocks. The
// returned node is shared, read-only state; take its LedgerSnapshot before
// mutating anything.
func (t *ChainTree) FindByHash(hash string) (*ChainNode, bool) {
	t.m.RLock()
	defer t.m.RUnlock()
	n, ok := t.index[hash]
	return n, ok
}
