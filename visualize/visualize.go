package visualize

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os/exec"

	"github.com/bradleyjkemp/memviz"

	"github.com/Luismorlan/chaintree_in_go/chain"
)

// The render model is re-declared here so the graph only carries the fields
// worth looking at, with hashes and keys shortened to a readable length.
type input struct {
	prevTxHash string
	index      int64
}

type output struct {
	value     float64
	publicKey string
}

type transaction struct {
	hash    string
	inputs  []input
	outputs []output
}

type block struct {
	hash     string
	prevHash string
	depth    int64
	seq      int64
	coinbase transaction
	txs      []transaction
	children []block
}

// The full string of a hash or public key is too long to render; keep the
// first 3 and last 3 characters. E.g. "abcdefghi" renders as "abc...ghi".
func shortenString(s string) string {
	if len(s) < 9 {
		return s
	}
	return fmt.Sprintf("%s...%s", s[0:3], s[len(s)-3:])
}

func shortenPK(s string) string {
	if len(s) < 9 {
		return s
	}
	mid := len(s) / 2
	return fmt.Sprintf("...%s...", s[mid-1:mid+2])
}

func nodeToBlock(n *chain.NodeView) block {
	b := n.Block
	out := block{
		hash:     shortenString(b.Hash),
		prevHash: shortenString(b.PrevHash),
		depth:    n.Depth,
		seq:      n.Seq,
	}

	if b.Coinbase != nil {
		cb := transaction{hash: shortenString(b.Coinbase.Hash)}
		for i := 0; i < len(b.Coinbase.Outputs); i++ {
			o := b.Coinbase.Outputs[i]
			cb.outputs = append(cb.outputs, output{value: o.Value, publicKey: shortenPK(string(o.PublicKey))})
		}
		out.coinbase = cb
	}

	for i := 0; i < len(b.Txs); i++ {
		tx := b.Txs[i]
		t := transaction{hash: shortenString(tx.Hash)}
		for j := 0; j < len(tx.Inputs); j++ {
			in := tx.Inputs[j]
			t.inputs = append(t.inputs, input{prevTxHash: shortenString(in.PrevTxHash), index: in.Index})
		}
		for j := 0; j < len(tx.Outputs); j++ {
			o := tx.Outputs[j]
			t.outputs = append(t.outputs, output{value: o.Value, publicKey: shortenPK(string(o.PublicKey))})
		}
		out.txs = append(out.txs, t)
	}
	return out
}

// Recursively build the tree in a dfs manner.
func buildTree(root *chain.NodeView) block {
	node := nodeToBlock(root)
	for i := 0; i < len(root.Children); i++ {
		node.children = append(node.children, buildTree(root.Children[i]))
	}
	return node
}

// Render draws a detached view of the tree and opens the resulting image.
// Taking a NodeView rather than a live node keeps the walk free of any
// locking concern. id keeps render files of different node instances apart.
func Render(root *chain.NodeView, id string) {
	buf := &bytes.Buffer{}
	tree := buildTree(root)
	memviz.Map(buf, &tree)

	fileName := "/tmp/chaindata-" + id
	outputName := "/tmp/rendered-chain-" + id + ".png"
	if err := ioutil.WriteFile(fileName, buf.Bytes(), 0644); err != nil {
		panic(err)
	}

	cmd := exec.Command("dot", "-Tpng", fileName, "-o", outputName)
	cmd.Run()

	opCmd := exec.Command("open", outputName)
	opCmd.Run()
}
