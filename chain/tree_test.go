package chain

import (
	"crypto/rsa"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Luismorlan/chaintree_in_go/model"
	"github.com/Luismorlan/chaintree_in_go/utils"
	"github.com/Luismorlan/chaintree_in_go/wallet"
)

const reward = 10.0

type account struct {
	sk *rsa.PrivateKey
	pk []byte
}

func newAccount(t *testing.T) account {
	sk, pk := utils.GenerateKeyPair(2048)
	assert.NotNil(t, sk)
	return account{sk: sk, pk: utils.PublicKeyToBytes(pk)}
}

func newTree(t *testing.T, owner account) (*ChainTree, *model.Block) {
	genesis, err := utils.CreateGenesisBlock(reward, owner.pk)
	assert.Nil(t, err)
	return NewChainTree(genesis), genesis
}

// emptyBlock extends parent with a body-less block rewarding owner.
func emptyBlock(t *testing.T, parentHash string, owner account, height int64) *model.Block {
	coinbase, err := utils.CreateCoinbaseTx(reward, owner.pk, height)
	assert.Nil(t, err)
	block := &model.Block{PrevHash: parentHash, Coinbase: coinbase}
	assert.Nil(t, utils.HashBlock(block))
	return block
}

// growChain appends n empty blocks after from and returns every new block.
func growChain(t *testing.T, tree *ChainTree, from *model.Block, owner account, fromHeight int64, n int) []*model.Block {
	blocks := make([]*model.Block, 0, n)
	prev := from
	for i := 0; i < n; i++ {
		b := emptyBlock(t, prev.Hash, owner, fromHeight+int64(i)+1)
		assert.Nil(t, tree.AddBlock(b))
		blocks = append(blocks, b)
		prev = b
	}
	return blocks
}

// spendTx signs a transaction spending every output owner has in l.
func spendTx(t *testing.T, owner account, l model.Ledger, outputs []model.Output) *model.Transaction {
	w := wallet.NewWalletFromKey(owner.sk)
	w.Refresh(&l)
	tx, err := w.CreatePendingTransaction(outputs)
	assert.Nil(t, err)
	return tx
}

func TestGenesisCoinbaseCredited(t *testing.T) {
	alice := newAccount(t)
	tree, genesis := newTree(t, alice)

	l := tree.BestLedgerSnapshot()
	assert.Len(t, l.L, 1)
	out, ok := l.L[model.UTXO{PrevTxHash: genesis.Coinbase.Hash, Index: 0}]
	assert.True(t, ok)
	assert.Equal(t, reward, out.Value)
	assert.Equal(t, int64(0), tree.BestNode().Depth)
}

func TestAddBlockRejectsSecondGenesis(t *testing.T) {
	alice := newAccount(t)
	tree, _ := newTree(t, alice)

	coinbase, _ := utils.CreateCoinbaseTx(reward, alice.pk, 0)
	impostor := &model.Block{PrevHash: "", Coinbase: coinbase}
	assert.Nil(t, utils.HashBlock(impostor))
	assert.True(t, errors.Is(tree.AddBlock(impostor), ErrGenesisBlock))
}

func TestAddBlockUnknownParent(t *testing.T) {
	alice := newAccount(t)
	tree, _ := newTree(t, alice)

	orphan := emptyBlock(t, "abcd", alice, 1)
	assert.True(t, errors.Is(tree.AddBlock(orphan), ErrUnknownParent))
	_, ok := tree.FindByHash(orphan.Hash)
	assert.False(t, ok)
}

func TestAddBlockDuplicateNeverDoubleCredits(t *testing.T) {
	alice := newAccount(t)
	tree, genesis := newTree(t, alice)

	b := emptyBlock(t, genesis.Hash, alice, 1)
	assert.Nil(t, tree.AddBlock(b))
	after := tree.BestLedgerSnapshot()

	assert.True(t, errors.Is(tree.AddBlock(b), ErrDuplicateBlock))
	assert.Equal(t, after.L, tree.BestLedgerSnapshot().L)
	assert.Equal(t, int64(1), tree.BestNode().Depth)
}

func TestAddBlockTooOld(t *testing.T) {
	alice := newAccount(t)
	bob := newAccount(t)
	tree, genesis := newTree(t, alice)

	// Best tip ends at depth 15, so the cutoff line sits at depth 5. The
	// forks below reward bob so they never hash like the main-chain blocks.
	blocks := growChain(t, tree, genesis, alice, 0, 15)
	assert.Equal(t, int64(15), tree.BestNode().Depth)

	// blocks[3] is at depth 4: one short of the line.
	tooOld := emptyBlock(t, blocks[3].Hash, bob, 5)
	assert.True(t, errors.Is(tree.AddBlock(tooOld), ErrTooOld))

	// blocks[4] is at depth 5: still extendable.
	ok := emptyBlock(t, blocks[4].Hash, bob, 6)
	assert.Nil(t, tree.AddBlock(ok))
}

func TestBestNodeTieBreakOldestWins(t *testing.T) {
	alice := newAccount(t)
	bob := newAccount(t)
	tree, genesis := newTree(t, alice)

	x := emptyBlock(t, genesis.Hash, alice, 1)
	y := emptyBlock(t, genesis.Hash, bob, 1)
	assert.Nil(t, tree.AddBlock(x))
	assert.Nil(t, tree.AddBlock(y))

	// Equal depth: the first-admitted block keeps the tip.
	assert.Equal(t, x.Hash, tree.BestBlock().Hash)

	// A strictly deeper descendant of y takes over.
	z := emptyBlock(t, y.Hash, bob, 2)
	assert.Nil(t, tree.AddBlock(z))
	assert.Equal(t, z.Hash, tree.BestBlock().Hash)
}

func TestAddBlockSnapshotRoundTrip(t *testing.T) {
	alice := newAccount(t)
	bob := newAccount(t)
	tree, genesis := newTree(t, alice)

	// alice spends her genesis coinbase: 3 to bob, change back to herself.
	parentLedger := tree.BestLedgerSnapshot()
	tx := spendTx(t, alice, parentLedger, []model.Output{{Value: 3, PublicKey: bob.pk}})

	feeLedger := tree.BestLedgerSnapshot()
	block, err := utils.CreateNewBlock([]*model.Transaction{tx}, genesis.Hash, reward, 1, bob.pk, &feeLedger)
	assert.Nil(t, err)
	assert.Nil(t, tree.AddBlock(block))

	node, ok := tree.FindByHash(block.Hash)
	assert.True(t, ok)

	// Expected: parent snapshot minus the consumed output, plus the two
	// produced outputs, plus the block's coinbase.
	expected := model.NewLedger()
	for ref, out := range parentLedger.L {
		expected.L[ref] = out
	}
	delete(expected.L, model.UTXO{PrevTxHash: genesis.Coinbase.Hash, Index: 0})
	for i := range tx.Outputs {
		expected.L[model.UTXO{PrevTxHash: tx.Hash, Index: int64(i)}] = tx.Outputs[i]
	}
	expected.L[model.UTXO{PrevTxHash: block.Coinbase.Hash, Index: 0}] = block.Coinbase.Outputs[0]

	assert.Equal(t, expected.L, node.Ledger.L)
}

func TestAddBlockIntraBlockDependency(t *testing.T) {
	alice := newAccount(t)
	bob := newAccount(t)
	tree, genesis := newTree(t, alice)

	// txA spends the genesis coinbase, txB spends txA's payout to bob. The
	// block lists txB first; the fixpoint pass must still admit it.
	txA := spendTx(t, alice, tree.BestLedgerSnapshot(), []model.Output{{Value: reward, PublicKey: bob.pk}})
	bobLedger := model.NewLedger()
	bobLedger.L[model.UTXO{PrevTxHash: txA.Hash, Index: 0}] = txA.Outputs[0]
	txB := spendTx(t, bob, bobLedger, []model.Output{{Value: 4, PublicKey: alice.pk}})

	coinbase, err := utils.CreateCoinbaseTx(reward, alice.pk, 1)
	assert.Nil(t, err)
	block := &model.Block{
		PrevHash: genesis.Hash,
		Coinbase: coinbase,
		Txs:      []*model.Transaction{txB, txA},
	}
	assert.Nil(t, utils.HashBlock(block))
	assert.Nil(t, tree.AddBlock(block))
}

func TestAddBlockWhollyRejectsPartiallyValidBody(t *testing.T) {
	alice := newAccount(t)
	bob := newAccount(t)
	tree, genesis := newTree(t, alice)

	good := spendTx(t, alice, tree.BestLedgerSnapshot(), []model.Output{{Value: 2, PublicKey: bob.pk}})
	bad := &model.Transaction{
		Inputs:  []model.Input{{PrevTxHash: "dead", Index: 9, Signature: []byte("junk")}},
		Outputs: []model.Output{{Value: 1, PublicKey: bob.pk}},
	}
	assert.Nil(t, utils.HashTransaction(bad))

	coinbase, err := utils.CreateCoinbaseTx(reward, alice.pk, 1)
	assert.Nil(t, err)
	block := &model.Block{
		PrevHash: genesis.Hash,
		Coinbase: coinbase,
		Txs:      []*model.Transaction{good, bad},
	}
	assert.Nil(t, utils.HashBlock(block))

	before := tree.BestLedgerSnapshot()
	assert.True(t, errors.Is(tree.AddBlock(block), ErrInvalidTransactions))

	// Whole-block atomicity: nothing changed, nothing was indexed.
	_, ok := tree.FindByHash(block.Hash)
	assert.False(t, ok)
	assert.Equal(t, int64(0), tree.BestNode().Depth)
	assert.Equal(t, before.L, tree.BestLedgerSnapshot().L)
}

func TestPruningReclaimsStaleForks(t *testing.T) {
	alice := newAccount(t)
	bob := newAccount(t)
	tree, genesis := newTree(t, alice)

	// A side fork off genesis, then a main chain far past the cutoff.
	side := emptyBlock(t, genesis.Hash, bob, 1)
	assert.Nil(t, tree.AddBlock(side))
	main := growChain(t, tree, genesis, alice, 0, CutoffAge+5)

	// The stale sibling is gone from the index; extending it now reads as an
	// unknown parent.
	_, ok := tree.FindByHash(side.Hash)
	assert.False(t, ok)
	orphan := emptyBlock(t, side.Hash, bob, 2)
	assert.True(t, errors.Is(tree.AddBlock(orphan), ErrUnknownParent))

	// Ancestors of the best node stay queryable however shallow they are.
	g, ok := tree.FindByHash(genesis.Hash)
	assert.True(t, ok)
	assert.Len(t, g.children, 1)
	for _, b := range main {
		_, ok := tree.FindByHash(b.Hash)
		assert.True(t, ok)
	}
}

func countViewNodes(v *NodeView) int {
	total := 1
	for _, c := range v.Children {
		total += countViewNodes(c)
	}
	return total
}

func TestSubtreeViewSafeDuringConcurrentAdmission(t *testing.T) {
	alice := newAccount(t)
	tree, genesis := newTree(t, alice)

	// 30 sibling forks of genesis, admitted from separate goroutines while
	// other goroutines keep walking detached views of the tree.
	forks := make([]*model.Block, 0, 30)
	for i := 0; i < 30; i++ {
		forks = append(forks, emptyBlock(t, genesis.Hash, alice, int64(i+1)))
	}

	done := make(chan struct{})
	var walkers sync.WaitGroup
	for i := 0; i < 2; i++ {
		walkers.Add(1)
		go func() {
			defer walkers.Done()
			for {
				select {
				case <-done:
					return
				default:
					v := tree.SubtreeView(CutoffAge)
					assert.GreaterOrEqual(t, countViewNodes(v), 1)
				}
			}
		}()
	}

	var admitters sync.WaitGroup
	for _, b := range forks {
		b := b
		admitters.Add(1)
		go func() {
			defer admitters.Done()
			assert.Nil(t, tree.AddBlock(b))
		}()
	}
	admitters.Wait()
	close(done)
	walkers.Wait()

	for _, b := range forks {
		_, ok := tree.FindByHash(b.Hash)
		assert.True(t, ok)
	}
	assert.Equal(t, 31, countViewNodes(tree.SubtreeView(CutoffAge)))
}

func TestNodeLedgerSnapshotIsInsulated(t *testing.T) {
	alice := newAccount(t)
	tree, genesis := newTree(t, alice)

	node, ok := tree.FindByHash(genesis.Hash)
	assert.True(t, ok)

	l := node.LedgerSnapshot()
	delete(l.L, model.UTXO{PrevTxHash: genesis.Coinbase.Hash, Index: 0})

	// The node's own ledger is untouched.
	assert.Len(t, node.Ledger.L, 1)
	assert.Len(t, tree.BestLedgerSnapshot().L, 1)
}

func TestRecentForksSurvivePruning(t *testing.T) {
	alice := newAccount(t)
	bob := newAccount(t)
	tree, genesis := newTree(t, alice)

	main := growChain(t, tree, genesis, alice, 0, CutoffAge+5)

	// A fork above the cutoff line stays reachable.
	forkParent := main[len(main)-3]
	fork := emptyBlock(t, forkParent.Hash, bob, int64(len(main)-2))
	assert.Nil(t, tree.AddBlock(fork))
	assert.Nil(t, tree.AddBlock(emptyBlock(t, main[len(main)-1].Hash, alice, int64(len(main)+1))))

	_, ok := tree.FindByHash(fork.Hash)
	assert.True(t, ok)
}
