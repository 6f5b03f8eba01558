// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// month, day and page query parameters, and transaction bodies sent either as
// JSON or form-encoded.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/finance"
)

// errBadRequest marks malformed requests, as opposed to invalid fields.
var errBadRequest = errors.New("bad request")

// ParseMonthParam reads "month" as YYYY-MM, defaulting to the month of now.
func ParseMonthParam(query url.Values, now time.Time) (finance.MonthKey, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return finance.CurrentMonth(now), nil
	}
	m, err := finance.ParseMonthKey(v)
	if err != nil {
		return "", fmt.Errorf("%w: month %q", errBadRequest, v)
	}
	return m, nil
}

// ParseDayParam reads "day" as YYYY-MM-DD, defaulting to the day of now.
func ParseDayParam(query url.Values, now time.Time) (core.Date, error) {
	v := strings.TrimSpace(query.Get("day"))
	if v == "" {
		return core.DateOf(now), nil
	}
	d := core.Date(v)
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%w: day %q", errBadRequest, v)
	}
	return d, nil
}

// PageParams are the zero-based page index and its size.
type PageParams struct {
	Page int
	Size int
}

// ParsePageParams reads "page" and "size". Missing values fall back to page 0
// and defaultSize; non-numeric values are rejected.
func ParsePageParams(query url.Values, defaultSize int) (PageParams, error) {
	p := PageParams{Size: defaultSize}
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("%w: page %q", errBadRequest, v)
		}
		p.Page = n
	}
	if v := strings.TrimSpace(query.Get("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("%w: size %q", errBadRequest, v)
		}
		p.Size = n
	}
	return p, nil
}

// ParseTypeParam reads "type", defaulting to expense.
func ParseTypeParam(query url.Values) (core.Type, error) {
	v := core.Type(strings.TrimSpace(query.Get("type")))
	if v == "" {
		return core.Expense, nil
	}
	if !v.Valid() {
		return "", fmt.Errorf("%w: type %q", errBadRequest, v)
	}
	return v, nil
}

// ParseIDList reads a comma separated id list, dropping blanks.
func ParseIDList(v string) []string {
	var ids []string
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(r.Body)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: read body: %v", errBadRequest, p.err)
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if p.IsJSON() || trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("%w: %v", errBadRequest, err)
			return p.err
		}
		return nil
	}

	form, err := url.ParseQuery(trimmed)
	if err != nil {
		p.err = fmt.Errorf("%w: %v", errBadRequest, err)
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON reports whether the body is declared or parsed as JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil || strings.HasPrefix(p.contentType, "application/json")
}

// Fields decodes a transaction body. Missing or non-numeric amounts become
// zero so that validation reports them.
func (p *RequestBodyParser) Fields() (core.Fields, error) {
	if err := p.Parse(); err != nil {
		return core.Fields{}, err
	}
	f := core.Fields{
		Date:     core.Date(p.Get("date")),
		Content:  p.Get("content"),
		Type:     core.Type(p.Get("type")),
		Category: core.Category(p.Get("category")),
	}
	amount, err := p.amount()
	if err != nil {
		return f, err
	}
	f.Amount = amount
	return f, nil
}

// amount reads the "amount" field. JSON numbers must be whole; grouped
// strings are only accepted as text.
func (p *RequestBodyParser) amount() (int64, error) {
	if p.jsonData != nil {
		switch val := p.jsonData["amount"].(type) {
		case nil:
			return 0, nil
		case json.Number:
			n, err := val.Int64()
			if err != nil || n < 1 {
				return 0, core.ErrInvalidAmount
			}
			return n, nil
		case string:
			if strings.TrimSpace(val) == "" {
				return 0, nil
			}
			return core.ParseAmount(val)
		default:
			return 0, core.ErrInvalidAmount
		}
	}
	v := p.Get("amount")
	if v == "" {
		return 0, nil
	}
	return core.ParseAmount(v)
}

// IDs decodes a bulk body: {"ids": [...]} or a form "ids" list.
func (p *RequestBodyParser) IDs() ([]string, error) {
	if err := p.Parse(); err != nil {
		return nil, err
	}
	if p.jsonData != nil {
		raw, ok := p.jsonData["ids"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: ids must be a list", errBadRequest)
		}
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: ids must be strings", errBadRequest)
			}
			if s = strings.TrimSpace(s); s != "" {
				ids = append(ids, s)
			}
		}
		return ids, nil
	}
	var ids []string
	for _, v := range p.formData["ids"] {
		ids = append(ids, ParseIDList(v)...)
	}
	return ids, nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
