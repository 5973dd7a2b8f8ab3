// Package transfer provides a transactional model for moving typed resource
// quantities between storages.
//
// A Manager owns one strictly nested stack of transactions. Storages join a
// transaction by composing a Participant, which records an opaque snapshot of
// their state the first time they mutate at each nesting depth. Committing a
// nested transaction folds its snapshots into the parent; aborting restores
// every registered participant to the state it had when the transaction
// opened. Only the outermost commit is durable, and only then do participants
// receive their final-commit notification.
//
// The model is single-actor: one logical caller drives one Manager, and
// nothing in this package blocks or suspends. Cross-goroutine coordination,
// when needed, belongs to the scheduler that invokes it.
package transfer
