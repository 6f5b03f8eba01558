package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Type = "income"
	Expense Type = "expense"
)

const (
	Salary     IncomeCategory = "salary"
	SideIncome IncomeCategory = "side-income"
	Allowance  IncomeCategory = "allowance"
)

const (
	Food          ExpenseCategory = "food"
	DailyGoods    ExpenseCategory = "daily-goods"
	Housing       ExpenseCategory = "housing"
	Social        ExpenseCategory = "social"
	Entertainment ExpenseCategory = "entertainment"
	Transport     ExpenseCategory = "transport"
)

// MaxContentLength is the upper bound for Content, counted in characters.
const MaxContentLength = 50

// DateLayout is the only accepted wire format for Date.
const DateLayout = "2006-01-02"

type (
	// Type tells whether a transaction adds to income or to expense.
	Type string

	// Category is the wire form shared by IncomeCategory and ExpenseCategory.
	Category string

	IncomeCategory  string
	ExpenseCategory string

	// Date is an ISO-8601 calendar date kept as its YYYY-MM-DD string.
	// Grouping and filtering compare the string, never a parsed time.
	Date string

	// Fields are the user-editable parts of a transaction.
	Fields struct {
		Date     Date     `json:"date"`
		Amount   int64    `json:"amount"`
		Content  string   `json:"content"`
		Type     Type     `json:"type"`
		Category Category `json:"category"`
	}

	// Transaction is a stored income or expense entry.
	Transaction struct {
		ID       string   `json:"id"`
		Date     Date     `json:"date"`
		Amount   int64    `json:"amount"`
		Content  string   `json:"content"`
		Type     Type     `json:"type"`
		Category Category `json:"category"`
	}

	// Kind is a validated type/category pairing. The zero value is invalid;
	// build one with NewIncome or NewExpense.
	Kind struct {
		typ      Type
		category Category
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyContent     = errors.New("empty content")
	ErrContentTooLong   = fmt.Errorf("content too long (max %d characters)", MaxContentLength)
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrCategoryMismatch = errors.New("category does not match transaction type")
)

var (
	incomeCategories  = []IncomeCategory{Salary, SideIncome, Allowance}
	expenseCategories = []ExpenseCategory{Food, DailyGoods, Housing, Social, Entertainment, Transport}
)

// Valid reports whether t is one of the two known types.
func (t Type) Valid() bool {
	return t == Income || t == Expense
}

func (c IncomeCategory) Valid() bool {
	for _, v := range incomeCategories {
		if v == c {
			return true
		}
	}
	return false
}

func (c ExpenseCategory) Valid() bool {
	for _, v := range expenseCategories {
		if v == c {
			return true
		}
	}
	return false
}

// TypeOf returns the type whose enumeration contains c.
func (c Category) TypeOf() (Type, bool) {
	switch {
	case IncomeCategory(c).Valid():
		return Income, true
	case ExpenseCategory(c).Valid():
		return Expense, true
	}
	return "", false
}

// Categories returns the fixed enumeration for t, in display order.
func Categories(t Type) []Category {
	switch t {
	case Income:
		out := make([]Category, len(incomeCategories))
		for i, c := range incomeCategories {
			out[i] = Category(c)
		}
		return out
	case Expense:
		out := make([]Category, len(expenseCategories))
		for i, c := range expenseCategories {
			out[i] = Category(c)
		}
		return out
	}
	return nil
}

// NewIncome returns the income pairing for c.
func NewIncome(c IncomeCategory) (Kind, error) {
	if !c.Valid() {
		return Kind{}, ErrInvalidCategory
	}
	return Kind{typ: Income, category: Category(c)}, nil
}

// NewExpense returns the expense pairing for c.
func NewExpense(c ExpenseCategory) (Kind, error) {
	if !c.Valid() {
		return Kind{}, ErrInvalidCategory
	}
	return Kind{typ: Expense, category: Category(c)}, nil
}

// KindOf validates a loose type/category pair.
func KindOf(t Type, c Category) (Kind, error) {
	if !t.Valid() {
		return Kind{}, ErrInvalidType
	}
	if strings.TrimSpace(string(c)) == "" {
		return Kind{}, ErrEmptyCategory
	}
	owner, ok := c.TypeOf()
	if !ok {
		return Kind{}, ErrInvalidCategory
	}
	if owner != t {
		return Kind{}, ErrCategoryMismatch
	}
	return Kind{typ: t, category: c}, nil
}

func (k Kind) Type() Type         { return k.typ }
func (k Kind) Category() Category { return k.category }
func (k Kind) IsZero() bool       { return k.typ == "" }

// Income reports the category when k is an income pairing.
func (k Kind) Income() (IncomeCategory, bool) {
	if k.typ != Income {
		return "", false
	}
	return IncomeCategory(k.category), true
}

// Expense reports the category when k is an expense pairing.
func (k Kind) Expense() (ExpenseCategory, bool) {
	if k.typ != Expense {
		return "", false
	}
	return ExpenseCategory(k.category), true
}

// Validate checks the YYYY-MM-DD shape and that the day exists.
func (d Date) Validate() error {
	s := string(d)
	if len(s) != len(DateLayout) || s[4] != '-' || s[7] != '-' {
		return ErrInvalidDate
	}
	for i := 0; i < len(s); i++ {
		if i == 4 || i == 7 {
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return ErrInvalidDate
		}
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the YYYY-MM prefix. It is only meaningful on a valid date.
func (d Date) Month() string {
	if len(d) < 7 {
		return ""
	}
	return string(d[:7])
}

func (d Date) String() string { return string(d) }

// DateOf formats t as a Date.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Validate applies the input schema.
func (f Fields) Validate() error {
	if err := f.Date.Validate(); err != nil {
		return err
	}
	if f.Amount < 1 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(f.Content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(f.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	if _, err := KindOf(f.Type, f.Category); err != nil {
		return err
	}
	return nil
}

// WithID attaches a store-assigned identifier.
func (f Fields) WithID(id string) Transaction {
	return Transaction{
		ID:       id,
		Date:     f.Date,
		Amount:   f.Amount,
		Content:  f.Content,
		Type:     f.Type,
		Category: f.Category,
	}
}

// Fields returns everything but the identifier.
func (t Transaction) Fields() Fields {
	return Fields{
		Date:     t.Date,
		Amount:   t.Amount,
		Content:  t.Content,
		Type:     t.Type,
		Category: t.Category,
	}
}

// Kind returns the validated pairing of the transaction.
func (t Transaction) Kind() (Kind, error) {
	return KindOf(t.Type, t.Category)
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("empty id")
	}
	return t.Fields().Validate()
}

// IsValidation reports whether err comes from input validation.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidDate, ErrInvalidAmount, ErrEmptyContent, ErrContentTooLong,
		ErrInvalidType, ErrEmptyCategory, ErrInvalidCategory, ErrCategoryMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
