// Package debt implements the FIFO debt-enforcement primitive used when a
// withdrawal or settlement would otherwise overdraw an entity's on-chain
// reserve (spec §4.5).
package debt

import (
	"math/big"

	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// Debt is a single outstanding obligation owed to Creditor, created when a
// withdrawal/settle would overdraw the debtor's reserve.
type Debt struct {
	Amount   *big.Int
	Creditor xcrypto.EntityID
}

// Credit is one payment made out of an incoming reserve while settling a
// Queue, keyed by the creditor it was paid to.
type Credit struct {
	Creditor xcrypto.EntityID
	Amount   *big.Int
}

// Queue is the FIFO debt queue for one (entity, token) pair (spec §3, §4.5).
// Entries are paid strictly in insertion order; a partial payment mutates
// only the head entry.
type Queue struct {
	entries []*Debt
	index   uint64
}

// NewQueue returns an empty debt queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a new debt to the tail of the queue.
func (q *Queue) Push(creditor xcrypto.EntityID, amount *big.Int) {
	q.entries = append(q.entries, &Debt{Creditor: creditor, Amount: new(big.Int).Set(amount)})
}

// Len returns the number of outstanding debts.
func (q *Queue) Len() int { return len(q.entries) }

// Clone returns a deep copy, used when snapshotting debt queues into a
// scratch state during frame building so the live queue is untouched until
// commit.
func (q *Queue) Clone() *Queue {
	cp := &Queue{index: q.index, entries: make([]*Debt, len(q.entries))}
	for i, d := range q.entries {
		cp.entries[i] = &Debt{Creditor: d.Creditor, Amount: new(big.Int).Set(d.Amount)}
	}
	return cp
}

// Index returns the monotonically advancing debtIndex: the count of fully
// paid-off debts that have left the queue.
func (q *Queue) Index() uint64 { return q.index }

// Outstanding returns the sum of all outstanding debt amounts.
func (q *Queue) Outstanding() *big.Int {
	sum := big.NewInt(0)
	for _, d := range q.entries {
		sum.Add(sum, d.Amount)
	}
	return sum
}

// Settle applies an incoming reserve amount against the queue, paying the
// oldest debt first (spec §4.5):
//
//   - If reserve >= head debt's amount: credit the creditor in full, remove
//     the head, advance the debt index, and continue with the remaining
//     reserve against the next entry.
//   - Else: credit the creditor the partial reserve amount, reduce the head
//     entry's amount by that much, and stop — the reserve is now fully
//     spent.
//
// It returns the list of credits made (in payment order) and whatever
// reserve remains once the queue is emptied (zero if debt absorbed it all).
func (q *Queue) Settle(reserve *big.Int) (credits []Credit, leftover *big.Int) {
	remaining := new(big.Int).Set(reserve)

	for remaining.Sign() > 0 && len(q.entries) > 0 {
		head := q.entries[0]

		if remaining.Cmp(head.Amount) >= 0 {
			remaining.Sub(remaining, head.Amount)
			credits = append(credits, Credit{Creditor: head.Creditor, Amount: new(big.Int).Set(head.Amount)})
			q.entries = q.entries[1:]
			q.index++
			continue
		}

		credits = append(credits, Credit{Creditor: head.Creditor, Amount: new(big.Int).Set(remaining)})
		head.Amount = new(big.Int).Sub(head.Amount, remaining)
		remaining.SetInt64(0)
	}

	return credits, remaining
}
