package core

// Balance is a derived income/expense summary over some subset of
// transactions. It is computed on demand and never stored.
type Balance struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

// Add accumulates t into b and recomputes the net balance.
func (b *Balance) Add(t Transaction) {
	if t.Type == Income {
		b.Income += t.Amount
	} else {
		b.Expense += t.Amount
	}
	b.Balance = b.Income - b.Expense
}
