package model

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Snapshot is the client copy of one month of dashboard data.
type Snapshot struct {
	Savings      Savings       `json:"savings"`
	Allocations  []Allocation  `json:"allocations"`
	Chart        Chart         `json:"chart"`
	Planned      Planned       `json:"planned"`
	Transactions []Transaction `json:"detail"`
}

type Savings struct {
	DBS float64 `json:"dbs"`
	BCA float64 `json:"bca"`
}

type Planned struct {
	SGD float64 `json:"sgd"`
	IDR float64 `json:"idr"`
}

type Chart struct {
	Balance []Balance `json:"balance"`
}

type Balance struct {
	Date int     `json:"date"`
	Sum  float64 `json:"sum"`
}

type Allocation struct {
	Name    string  `json:"name"`
	Expense float64 `json:"expense"`
	Alloc   float64 `json:"alloc"`
}

// Clone returns a copy that shares no slices with s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Allocations = slices.Clone(s.Allocations)
	c.Chart.Balance = slices.Clone(s.Chart.Balance)
	c.Transactions = slices.Clone(s.Transactions)
	return &c
}

// IndexOf looks up a transaction by id. The boolean is the only signal of
// presence; index 0 is a valid position.
func (s *Snapshot) IndexOf(id int) (int, bool) {
	i := slices.IndexFunc(s.Transactions, func(t Transaction) bool { return t.ID == id })
	return i, i >= 0
}

type Totals struct {
	Expense float64 `json:"expense"`
	Alloc   float64 `json:"alloc"`
}

// Totals sums expense and allocation across all categories.
func (s *Snapshot) Totals() Totals {
	expense, alloc := decimal.Zero, decimal.Zero
	for _, a := range s.Allocations {
		expense = expense.Add(decimal.NewFromFloat(a.Expense))
		alloc = alloc.Add(decimal.NewFromFloat(a.Alloc))
	}
	return Totals{
		Expense: expense.InexactFloat64(),
		Alloc:   alloc.InexactFloat64(),
	}
}

var hundred = decimal.NewFromInt(100)

// Percent is expense/alloc*100, unclamped. A category with nothing allocated
// counts as fully consumed.
func (a Allocation) Percent() float64 {
	alloc := decimal.NewFromFloat(a.Alloc)
	if !alloc.IsPositive() {
		return 100
	}
	return decimal.NewFromFloat(a.Expense).Div(alloc).Mul(hundred).InexactFloat64()
}

// Progress is Percent clamped to [0, 100] for progress bars.
func (a Allocation) Progress() float64 {
	return min(max(a.Percent(), 0), 100)
}

type Level int

const (
	LevelNormal Level = iota
	LevelElevated
	LevelWarning
	LevelExceeded
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelElevated:
		return "elevated"
	case LevelWarning:
		return "warning"
	}
	return "exceeded"
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Level classifies spending on the unclamped percent.
func (a Allocation) Level() Level {
	p := a.Percent()
	switch {
	case p < 60:
		return LevelNormal
	case p < 80:
		return LevelElevated
	case p < 100:
		return LevelWarning
	}
	return LevelExceeded
}

// AllocationView is an allocation with its derived values, as served to
// views.
type AllocationView struct {
	Allocation
	Percent  float64 `json:"percent"`
	Progress float64 `json:"progress"`
	Level    Level   `json:"level"`
}

func (s *Snapshot) AllocationViews() []AllocationView {
	views := make([]AllocationView, 0, len(s.Allocations))
	for _, a := range s.Allocations {
		views = append(views, AllocationView{
			Allocation: a,
			Percent:    a.Percent(),
			Progress:   a.Progress(),
			Level:      a.Level(),
		})
	}
	return views
}
