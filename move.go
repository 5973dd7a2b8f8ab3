package transfer

// Move transfers up to maxAmount of resource from one storage to another,
// returning the amount moved. The attempt runs inside a nested transaction:
// if the target does not accept everything that was extracted, the attempt is
// rolled back and retried for exactly the amount the target accepted, so the
// source never loses resources the target did not take. Committing t (and
// its ancestors) makes the move durable; aborting undoes it.
func Move[T Resource](from, to Storage[T], resource T, maxAmount int64, t *Transaction) (int64, error) {
	if err := CheckTransfer(resource, maxAmount, t); err != nil {
		return 0, err
	}

	accepted, err := attemptMove(from, to, resource, maxAmount, t)
	if err != nil || accepted.moved {
		return accepted.amount, err
	}
	if accepted.amount == 0 {
		return 0, nil
	}

	retry, err := attemptMove(from, to, resource, accepted.amount, t)
	if err != nil || !retry.moved {
		return 0, err
	}
	return retry.amount, nil
}

type moveResult struct {
	// amount is the quantity transferred when moved is true, otherwise the
	// quantity the target accepted during the rolled-back attempt.
	amount int64
	moved  bool
}

func attemptMove[T Resource](from, to Storage[T], resource T, maxAmount int64, t *Transaction) (moveResult, error) {
	nested, err := t.OpenNested()
	if err != nil {
		return moveResult{}, err
	}

	extracted, err := from.Extract(resource, maxAmount, nested)
	if err != nil {
		return moveResult{}, abortMove(nested, err)
	}
	if extracted == 0 {
		return moveResult{}, abortMove(nested, nil)
	}

	inserted, err := to.Insert(resource, extracted, nested)
	if err != nil {
		return moveResult{}, abortMove(nested, err)
	}
	if inserted < extracted {
		return moveResult{amount: inserted}, abortMove(nested, nil)
	}
	if err := nested.Commit(); err != nil {
		return moveResult{}, err
	}
	return moveResult{amount: inserted, moved: true}, nil
}

// abortMove unwinds a failed attempt. An abort failure is fatal and takes
// precedence over the business error that triggered the unwind.
func abortMove(nested *Transaction, cause error) error {
	if err := nested.Abort(); err != nil {
		return err
	}
	return cause
}
