package utils

import (
	"github.com/pkg/errors"

	"github.com/Luismorlan/chaintree_in_go/model"
)

// GetBlockBytes returns the canonical byte form of a block: parent hash,
// coinbase, then every body transaction in order.
func GetBlockBytes(block *model.Block) ([]byte, error) {
	var rawBlock []byte

	prevHashBytes, err := HexToBytes(block.PrevHash)
	if err != nil {
		return nil, errors.Wrapf(err, "block has malformed parent hash %s", block.PrevHash)
	}
	rawBlock = append(rawBlock, prevHashBytes...)

	if block.Coinbase != nil {
		coinbaseBytes, err := GetTransactionBytes(block.Coinbase, true /*withSig=*/)
		if err != nil {
			return nil, err
		}
		rawBlock = append(rawBlock, coinbaseBytes...)
	}

	for i := 0; i < len(block.Txs); i++ {
		txBytes, err := GetTransactionBytes(block.Txs[i], true /*withSig=*/)
		if err != nil {
			return nil, err
		}
		rawBlock = append(rawBlock, txBytes...)
	}

	return rawBlock, nil
}

// HashBlock derives the block id from its content and stores it on the
// block.
func HashBlock(block *model.Block) error {
	blockBytes, err := GetBlockBytes(block)
	if err != nil {
		return err
	}
	block.Hash = BytesToHex(SHA256(blockBytes))
	return nil
}

// CreateNewBlock packages transactions into a block extending prevHash.
// The coinbase pays reward plus the implicit fees of the body to pk. The
// ledger is only read, to price the fees; admission is the chain's job, so
// no validation happens here and no proof of work is attached.
func CreateNewBlock(txs []*model.Transaction, prevHash string, reward float64, height int64, pk []byte, l *model.Ledger) (*model.Block, error) {
	fee, err := CalcTxFee(txs, l)
	if err != nil {
		return nil, err
	}

	coinbase, err := CreateCoinbaseTx(reward+fee, pk, height)
	if err != nil {
		return nil, err
	}

	block := &model.Block{
		PrevHash: prevHash,
		Coinbase: coinbase,
		Txs:      txs,
	}
	if err := HashBlock(block); err != nil {
		return nil, err
	}
	return block, nil
}

// CreateGenesisBlock mints the block the whole tree grows from: no parent,
// a single coinbase paying reward to pk, and an empty body.
func CreateGenesisBlock(reward float64, pk []byte) (*model.Block, error) {
	coinbase, err := CreateCoinbaseTx(reward, pk, 0)
	if err != nil {
		return nil, err
	}
	block := &model.Block{
		PrevHash: "",
		Coinbase: coinbase,
	}
	if err := HashBlock(block); err != nil {
		return nil, err
	}
	return block, nil
}
