// Package wallet signs spend transactions over the UTXOs a key owns. It is
// the producer-side counterpart of the chain's admission rules: everything
// it emits is meant to pass the five validity checks.
package wallet

import (
	"crypto/rsa"

	"github.com/pkg/errors"

	"github.com/Luismorlan/chaintree_in_go/model"
	"github.com/Luismorlan/chaintree_in_go/utils"
)

// Wallet holds a key pair and the owner's current view of its spendable
// outputs. The view is refreshed from a ledger snapshot, never mutated by
// the chain.
type Wallet struct {
	keys *rsa.PrivateKey
	// Spendable outputs owned by this wallet's key.
	UTXOs map[model.UTXO]*model.Output
}

// NewWallet loads (or with createNew, generates) the key stored at keyPath.
func NewWallet(keyPath string, createNew bool, bits int) (*Wallet, error) {
	keys, err := utils.ParseKeyFile(keyPath, createNew, bits)
	if err != nil {
		return nil, err
	}
	return NewWalletFromKey(keys), nil
}

// NewWalletFromKey wraps an already loaded key pair.
func NewWalletFromKey(keys *rsa.PrivateKey) *Wallet {
	return &Wallet{
		keys:  keys,
		UTXOs: make(map[model.UTXO]*model.Output),
	}
}

// GetPublicKey returns the wallet's identity in hex form.
func (w *Wallet) GetPublicKey() string {
	return utils.BytesToHex(utils.PublicKeyToBytes(&w.keys.PublicKey))
}

// PublicKeyBytes returns the identity in the byte form outputs carry.
func (w *Wallet) PublicKeyBytes() []byte {
	return utils.PublicKeyToBytes(&w.keys.PublicKey)
}

// Refresh replaces the wallet's view of its spendable outputs with the ones
// owned by its key in the given ledger snapshot.
func (w *Wallet) Refresh(l *model.Ledger) {
	pk := w.GetPublicKey()
	w.UTXOs = make(map[model.UTXO]*model.Output)
	for ref, output := range l.L {
		if utils.BytesToHex(output.PublicKey) == pk {
			out := output
			w.UTXOs[ref] = &out
		}
	}
}

// Balance sums the wallet's current view of its spendable value.
func (w *Wallet) Balance() float64 {
	var total float64
	for _, output := range w.UTXOs {
		total += output.Value
	}
	return total
}

// CreatePendingTransaction builds and signs a transaction paying the given
// outputs, spending every UTXO the wallet currently sees and returning the
// surplus to itself as a change output. Each input's signature covers that
// input's unsigned body; the content hash covers the signatures too, so it
// is derived last.
func (w *Wallet) CreatePendingTransaction(outputs []model.Output) (*model.Transaction, error) {
	var inputs []model.Input
	var totalValue float64
	for ref := range w.UTXOs {
		inputs = append(inputs, model.Input{
			PrevTxHash: ref.PrevTxHash,
			Index:      ref.Index,
		})
		totalValue += w.UTXOs[ref].Value
	}

	var totalTransferValue float64
	for i := 0; i < len(outputs); i++ {
		totalTransferValue += outputs[i].Value
	}
	if totalTransferValue > totalValue {
		return nil, errors.Errorf("insufficient funds: own %v, need %v", totalValue, totalTransferValue)
	}

	change := model.Output{
		Value:     totalValue - totalTransferValue,
		PublicKey: w.PublicKeyBytes(),
	}
	tx := &model.Transaction{
		Inputs:  inputs,
		Outputs: append(outputs, change),
	}

	for i := 0; i < len(tx.Inputs); i++ {
		body, err := utils.GetInputDataToSignByIndex(tx, i)
		if err != nil {
			return nil, err
		}
		sig, err := utils.Sign(body, w.keys)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to sign input %d", i)
		}
		tx.Inputs[i].Signature = sig
	}

	if err := utils.HashTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}
