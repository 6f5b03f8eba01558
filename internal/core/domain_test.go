package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{"2025-01-01", true},
		{"2025-12-31", true},
		{"2024-02-29", true},
		{"2025-02-29", false}, // not a leap year
		{"2025-13-01", false},
		{"2025-080-1", false},
		{"2025-8-1", false},
		{"2025/08/01", false},
		{"2025-08-01T00:00:00Z", false},
		{"", false},
	}
	for _, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.d, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.d, err)
		}
	}
}

func TestDateOfAndMonth(t *testing.T) {
	d := DateOf(time.Date(2025, time.August, 2, 23, 59, 0, 0, time.UTC))
	if d != "2025-08-02" {
		t.Fatalf("unexpected date %q", d)
	}
	if d.Month() != "2025-08" {
		t.Fatalf("unexpected month %q", d.Month())
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		typ Type
		cat Category
		err error
	}{
		{Income, "salary", nil},
		{Expense, "transport", nil},
		{Income, "food", ErrCategoryMismatch},
		{Expense, "allowance", ErrCategoryMismatch},
		{Expense, "", ErrEmptyCategory},
		{Expense, "gifts", ErrInvalidCategory},
		{"transfer", "food", ErrInvalidType},
	}
	for _, tc := range cases {
		k, err := KindOf(tc.typ, tc.cat)
		if !errors.Is(err, tc.err) {
			t.Fatalf("%s/%s: expected %v, got %v", tc.typ, tc.cat, tc.err, err)
		}
		if tc.err == nil && (k.Type() != tc.typ || k.Category() != tc.cat) {
			t.Fatalf("%s/%s: unexpected kind %+v", tc.typ, tc.cat, k)
		}
	}
}

func TestKindConstructors(t *testing.T) {
	k, err := NewIncome(Salary)
	if err != nil {
		t.Fatalf("NewIncome: %v", err)
	}
	if c, ok := k.Income(); !ok || c != Salary {
		t.Fatalf("expected income salary, got %v %v", c, ok)
	}
	if _, ok := k.Expense(); ok {
		t.Fatalf("income kind must not report an expense category")
	}

	k, err = NewExpense(Housing)
	if err != nil {
		t.Fatalf("NewExpense: %v", err)
	}
	if c, ok := k.Expense(); !ok || c != Housing {
		t.Fatalf("expected expense housing, got %v %v", c, ok)
	}

	if _, err := NewExpense(ExpenseCategory(Salary)); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if !(Kind{}).IsZero() {
		t.Fatalf("zero kind should report IsZero")
	}
}

func TestCategories(t *testing.T) {
	if got := Categories(Income); len(got) != 3 || got[0] != "salary" {
		t.Fatalf("unexpected income categories %v", got)
	}
	if got := Categories(Expense); len(got) != 6 || got[5] != "transport" {
		t.Fatalf("unexpected expense categories %v", got)
	}
	if Categories("other") != nil {
		t.Fatalf("unknown type should have no categories")
	}
	for _, typ := range []Type{Income, Expense} {
		for _, c := range Categories(typ) {
			if owner, ok := c.TypeOf(); !ok || owner != typ {
				t.Fatalf("category %s should belong to %s", c, typ)
			}
		}
	}
}

func TestFieldsValidate(t *testing.T) {
	good := Fields{
		Date:     "2025-08-01",
		Amount:   3000,
		Content:  "August salary",
		Type:     Income,
		Category: "salary",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// 50 multi-byte characters are still within the limit.
	wide := good
	wide.Content = strings.Repeat("給", MaxContentLength)
	if err := wide.Validate(); err != nil {
		t.Fatalf("expected 50 characters to pass, got %v", err)
	}

	mutate := func(fn func(*Fields)) Fields {
		f := good
		fn(&f)
		return f
	}
	bads := []struct {
		f   Fields
		err error
	}{
		{mutate(func(f *Fields) { f.Date = "" }), ErrInvalidDate},
		{mutate(func(f *Fields) { f.Date = "2025-08" }), ErrInvalidDate},
		{mutate(func(f *Fields) { f.Amount = 0 }), ErrInvalidAmount},
		{mutate(func(f *Fields) { f.Amount = -5 }), ErrInvalidAmount},
		{mutate(func(f *Fields) { f.Content = "   " }), ErrEmptyContent},
		{mutate(func(f *Fields) { f.Content = strings.Repeat("a", MaxContentLength+1) }), ErrContentTooLong},
		{mutate(func(f *Fields) { f.Type = "" }), ErrInvalidType},
		{mutate(func(f *Fields) { f.Category = "" }), ErrEmptyCategory},
		{mutate(func(f *Fields) { f.Category = "food" }), ErrCategoryMismatch},
	}
	for i, tc := range bads {
		if err := tc.f.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestTransactionFieldsRoundTrip(t *testing.T) {
	f := Fields{Date: "2025-08-02", Amount: 500, Content: "bus", Type: Expense, Category: "transport"}
	tx := f.WithID("abc")
	if tx.ID != "abc" || tx.Fields() != f {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("expected valid transaction, got %v", err)
	}
	if err := f.WithID(" ").Validate(); err == nil {
		t.Fatalf("expected error for blank id")
	}
	k, err := tx.Kind()
	if err != nil {
		t.Fatalf("Kind: %v", err)
	}
	if c, ok := k.Expense(); !ok || c != Transport {
		t.Fatalf("unexpected kind %+v", k)
	}
}

func TestBalanceAdd(t *testing.T) {
	var b Balance
	b.Add(Transaction{Type: Income, Amount: 3000})
	b.Add(Transaction{Type: Expense, Amount: 1200})
	b.Add(Transaction{Type: Expense, Amount: 500})
	if b != (Balance{Income: 3000, Expense: 1700, Balance: 1300}) {
		t.Fatalf("unexpected balance %+v", b)
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(fmt.Errorf("create: %w", ErrCategoryMismatch)) {
		t.Fatalf("wrapped validation error not recognised")
	}
	if IsValidation(errors.New("boom")) || IsValidation(nil) {
		t.Fatalf("unexpected validation match")
	}
}
