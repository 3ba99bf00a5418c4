// Package ledger implements the inventory ledger: batch stock mutations,
// product master data, sales and the append-only change history.
//
// Every quantity change is written together with its inventory_history row in
// one transaction, so for every batch
//
//	quantity == SUM(inventory_history.change)
//
// holds after any sequence of operations, including ones that failed and
// rolled back. Product history is advisory: a failed product_history insert
// is logged and the enclosing upsert continues.
//
// # Concurrency
//
// The store hands out a single pooled connection, so transactions from
// concurrent callers run one after another. Every read-then-write of a batch
// quantity re-reads the row inside the active transaction; two sales racing
// for the last units of a batch therefore cannot both commit.
package ledger
