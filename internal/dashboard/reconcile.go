package dashboard

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ghaggin/wallet/internal/model"
)

var (
	// ErrReconciliationInconsistency means a confirmed Edit or Delete named a
	// transaction the loaded snapshot does not hold.
	ErrReconciliationInconsistency = errors.New("reconciliation inconsistency")
	// ErrUnsaved is returned for a transaction still carrying model.NewID.
	ErrUnsaved = errors.New("transaction has no server id")
)

type InconsistencyError struct {
	Action model.Action
	ID     int
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s: no transaction with id %d in the loaded month", e.Action, e.ID)
}

func (e *InconsistencyError) Unwrap() error {
	return ErrReconciliationInconsistency
}

// reconcile merges a confirmed write into snap and returns the new
// snapshot; snap itself is left untouched. deleted holds the ids removed
// from this snapshot so far, letting a repeated Delete pass silently.
//
// On an inconsistency the returned snapshot is still the one to keep: an
// unknown Edit is appended rather than dropped.
func reconcile(snap *model.Snapshot, deleted map[int]struct{}, tx model.Transaction, action model.Action) (*model.Snapshot, error) {
	if !tx.Saved() {
		return nil, ErrUnsaved
	}

	next := snap.Clone()
	i, found := next.IndexOf(tx.ID)

	switch action {
	case model.Create:
		delete(deleted, tx.ID)
		if found {
			next.Transactions[i] = tx
		} else {
			next.Transactions = append(next.Transactions, tx)
		}
		return next, nil

	case model.Edit:
		if found {
			next.Transactions[i] = tx
			return next, nil
		}
		delete(deleted, tx.ID)
		next.Transactions = append(next.Transactions, tx)
		return next, &InconsistencyError{Action: action, ID: tx.ID}

	case model.Delete:
		if found {
			next.Transactions = slices.Delete(next.Transactions, i, i+1)
			deleted[tx.ID] = struct{}{}
			return next, nil
		}
		if _, ok := deleted[tx.ID]; ok {
			return next, nil
		}
		return next, &InconsistencyError{Action: action, ID: tx.ID}
	}

	return nil, fmt.Errorf("unknown action %v", action)
}
