package utils

import (
	"github.com/pkg/errors"

	"github.com/Luismorlan/chaintree_in_go/model"
)

// GetInputBytes converts an input to its canonical byte form, with or
// without the signature. The signature is excluded when producing the
// unsigned body that signatures themselves cover.
func GetInputBytes(input *model.Input, withSig bool) ([]byte, error) {
	var data []byte
	prevHash, err := HexToBytes(input.PrevTxHash)
	if err != nil {
		return nil, errors.Wrapf(err, "input references malformed hash %s", input.PrevTxHash)
	}
	data = append(data, prevHash...)
	data = append(data, Int64ToBytes(input.Index)...)
	if withSig {
		data = append(data, input.Signature...)
	}
	return data, nil
}

func GetOutputBytes(output *model.Output) []byte {
	var data []byte
	data = append(data, Float64ToBytes(output.Value)...)
	data = append(data, output.PublicKey...)
	return data
}

// GetTransactionBytes concatenates all inputs, all outputs and the coinbase
// height discriminator. With withSig set, the result is the canonical form
// the transaction id is hashed from.
func GetTransactionBytes(t *model.Transaction, withSig bool) ([]byte, error) {
	var data []byte
	for i := 0; i < len(t.Inputs); i++ {
		inputData, err := GetInputBytes(&t.Inputs[i], withSig)
		if err != nil {
			return nil, err
		}
		data = append(data, inputData...)
	}
	for i := 0; i < len(t.Outputs); i++ {
		data = append(data, GetOutputBytes(&t.Outputs[i])...)
	}
	data = append(data, Int64ToBytes(t.Height)...)
	return data, nil
}

// GetInputDataToSignByIndex returns the unsigned body covered by the
// signature of input number index: that input without its signature,
// followed by every output of the transaction.
func GetInputDataToSignByIndex(t *model.Transaction, index int) ([]byte, error) {
	if index < 0 || index >= len(t.Inputs) {
		return nil, errors.Errorf("input index %d out of range, transaction has %d inputs", index, len(t.Inputs))
	}
	data, err := GetInputBytes(&t.Inputs[index], false /*withSig=*/)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(t.Outputs); i++ {
		data = append(data, GetOutputBytes(&t.Outputs[i])...)
	}
	return data, nil
}

// HashTransaction derives the transaction id from its content and stores it
// on the transaction. The id doubles as the UTXO key prefix of its outputs.
func HashTransaction(t *model.Transaction) error {
	txBytes, err := GetTransactionBytes(t, true /*withSig=*/)
	if err != nil {
		return err
	}
	t.Hash = BytesToHex(SHA256(txBytes))
	return nil
}

// CreateCoinbaseTx mints a reward transaction paying value to pk. The height
// keeps coinbases of different blocks from colliding on one transaction id.
func CreateCoinbaseTx(value float64, pk []byte, height int64) (*model.Transaction, error) {
	tx := &model.Transaction{
		Outputs: []model.Output{
			{
				Value:     value,
				PublicKey: pk,
			},
		},
		Height: height,
	}
	if err := HashTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// CalcTxFee sums, over the given transactions, the difference between the
// value of the outputs they consume from the ledger and the value they
// declare. The ledger is read only. Transactions spending outputs produced
// inside the same batch are not supported here; this helper serves block
// assembly, where the producer works from a settled snapshot.
func CalcTxFee(txs []*model.Transaction, l *model.Ledger) (float64, error) {
	var fee float64
	for _, tx := range txs {
		for i := 0; i < len(tx.Inputs); i++ {
			input := &tx.Inputs[i]
			ref := model.UTXO{PrevTxHash: input.PrevTxHash, Index: input.Index}
			output, ok := l.L[ref]
			if !ok {
				return 0, errors.Errorf("transaction %s spends unknown output %s:%d", tx.Hash, input.PrevTxHash, input.Index)
			}
			fee += output.Value
		}
		for i := 0; i < len(tx.Outputs); i++ {
			fee -= tx.Outputs[i].Value
		}
	}
	return fee, nil
}
