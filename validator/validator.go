// Package validator decides which transactions of one candidate block are
// mutually valid against a snapshot of unspent outputs, and accumulates the
// ledger that results from accepting them.
package validator

import (
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/Luismorlan/chaintree_in_go/model"
	"github.com/Luismorlan/chaintree_in_go/utils"
)

// Per-transaction rejection reasons. The chain aggregates them behind a
// single invalid-transactions admission error; they are not individually
// surfaced to callers.
var (
	ErrUnknownInput        = errors.New("input does not reference an unspent output")
	ErrBadSignature        = errors.New("input signature does not verify against the output owner")
	ErrDoubleSpendWithinTx = errors.New("the same unspent output is claimed twice by one transaction")
	ErrNegativeOutput      = errors.New("transaction declares a negative output value")
	ErrValueNotConserved   = errors.New("transaction outputs exceed the value of its inputs")
)

// LedgerValidator owns a private working copy of a ledger, seeded from a
// caller-supplied snapshot. One validator serves exactly one candidate
// block; forks never share a validator.
type LedgerValidator struct {
	ledger model.Ledger
}

// NewLedgerValidator seeds a validator with a deep copy of l. The caller's
// ledger is never aliased or written. Plain copier.Copy shares map backing
// storage, so the deep-copy option is required here.
func NewLedgerValidator(l *model.Ledger) *LedgerValidator {
	working := model.NewLedger()
	copier.CopyWithOption(&working, l, copier.Option{DeepCopy: true})
	return &LedgerValidator{ledger: working}
}

// IsValid checks a non-coinbase transaction against the working ledger:
// 1. every input references an output present in the ledger,
// 2. every input's signature verifies against that output's owner and the
//    transaction's unsigned body,
// 3. no output is claimed twice within this transaction,
// 4. all declared output values are non-negative,
// 5. total input value covers total output value; the difference is the
//    implicit fee.
// The first failed check wins. A rejected transaction leaves no trace on
// the ledger.
func (v *LedgerValidator) IsValid(tx *model.Transaction) error {
	var totalInput, totalOutput float64
	claimed := make(map[model.UTXO]bool)

	for i := 0; i < len(tx.Inputs); i++ {
		input := &tx.Inputs[i]
		ref := model.UTXO{PrevTxHash: input.PrevTxHash, Index: input.Index}

		output, ok := v.ledger.L[ref]
		if !ok {
			return errors.Wrapf(ErrUnknownInput, "input %d of %s", i, tx.Hash)
		}

		body, err := utils.GetInputDataToSignByIndex(tx, i)
		if err != nil {
			return errors.Wrapf(err, "input %d of %s", i, tx.Hash)
		}
		pk := utils.BytesToPublicKey(output.PublicKey)
		if pk == nil || !utils.Verify(body, pk, input.Signature) {
			return errors.Wrapf(ErrBadSignature, "input %d of %s", i, tx.Hash)
		}

		if claimed[ref] {
			return errors.Wrapf(ErrDoubleSpendWithinTx, "input %d of %s", i, tx.Hash)
		}
		claimed[ref] = true

		totalInput += output.Value
	}

	for i := 0; i < len(tx.Outputs); i++ {
		if tx.Outputs[i].Value < 0 {
			return errors.Wrapf(ErrNegativeOutput, "output %d of %s", i, tx.Hash)
		}
		totalOutput += tx.Outputs[i].Value
	}

	if totalInput < totalOutput {
		return errors.Wrapf(ErrValueNotConserved, "%s spends %v but declares %v", tx.Hash, totalInput, totalOutput)
	}
	return nil
}

// apply claims every input and records every output of tx on the working
// ledger. The transaction must have been validated first.
func (v *LedgerValidator) apply(tx *model.Transaction) {
	for i := 0; i < len(tx.Inputs); i++ {
		input := &tx.Inputs[i]
		delete(v.ledger.L, model.UTXO{PrevTxHash: input.PrevTxHash, Index: input.Index})
	}
	for i := 0; i < len(tx.Outputs); i++ {
		ref := model.UTXO{PrevTxHash: tx.Hash, Index: int64(i)}
		v.ledger.L[ref] = tx.Outputs[i]
	}
}

// AcceptBatch processes the non-coinbase transactions of one block: a greedy
// pass in input order, then repeated re-scans of the still-pending set until
// a full pass accepts nothing more. The re-scan is what lets a transaction
// spend an output produced by a candidate that appears after it. The
// dependency relation inside one batch is acyclic, so each pass either
// shrinks the pending set or ends the loop.
func (v *LedgerValidator) AcceptBatch(candidates []*model.Transaction) []*model.Transaction {
	accepted := make([]*model.Transaction, 0, len(candidates))
	var pending []*model.Transaction

	for _, tx := range candidates {
		if err := v.IsValid(tx); err == nil {
			v.apply(tx)
			accepted = append(accepted, tx)
		} else {
			pending = append(pending, tx)
		}
	}

	progress := len(accepted) > 0
	for progress && len(pending) > 0 {
		progress = false
		remaining := pending[:0]
		for _, tx := range pending {
			if err := v.IsValid(tx); err == nil {
				v.apply(tx)
				accepted = append(accepted, tx)
				progress = true
			} else {
				remaining = append(remaining, tx)
			}
		}
		pending = remaining
	}

	return accepted
}

// ApplyCoinbase credits the reward outputs unconditionally. Coinbase
// transactions bypass IsValid entirely; the chain applies them only after
// the whole body has been accepted.
func (v *LedgerValidator) ApplyCoinbase(coinbase *model.Transaction) {
	v.apply(coinbase)
}

// Snapshot hands the working ledger over to the caller, who typically
// attaches it to a new chain node. The validator must not be used
// afterwards.
func (v *LedgerValidator) Snapshot() model.Ledger {
	return v.ledger
}
