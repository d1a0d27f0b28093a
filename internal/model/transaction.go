package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// NewID marks a transaction that has not been saved by the service yet.
const NewID = -1

var (
	ErrInvalidMonth = errors.New("invalid month key")
)

type Transaction struct {
	ID       int     `json:"id"`
	Date     int     `json:"date"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
	Done     bool    `json:"done"`
	Account  string  `json:"account"`
}

func (t Transaction) Saved() bool {
	return t.ID != NewID
}

// Action tags the kind of write a confirmed transaction came from.
type Action int

const (
	Create Action = iota
	Edit
	Delete
)

func (a Action) String() string {
	switch a {
	case Create:
		return "Create"
	case Edit:
		return "Edit"
	case Delete:
		return "Delete"
	}
	return "Action(" + strconv.Itoa(int(a)) + ")"
}

// ParseAction accepts the names produced by Action.String.
func ParseAction(s string) (Action, error) {
	switch s {
	case "Create", "create":
		return Create, nil
	case "Edit", "edit":
		return Edit, nil
	case "Delete", "delete":
		return Delete, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// MonthKey formats t as YYYYMM.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d%02d", t.Year(), int(t.Month()))
}

// ParseMonthKey validates a YYYYMM key and returns it as the integer the
// service stores in Transaction.Date.
func ParseMonthKey(key string) (int, error) {
	if len(key) != 6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMonth, key)
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMonth, key)
	}
	if m := n % 100; m < 1 || m > 12 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMonth, key)
	}
	return n, nil
}
