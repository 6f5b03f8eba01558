// Package sheets mirrors transactions into a Google Sheets tab, one row per
// transaction keyed by the id in column A.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kakeibo/internal/core"
)

// Header is written to row 1 of the mirror tab.
var Header = []interface{}{"ID", "Date", "Type", "Category", "Amount", "Content"}

// Config locates the spreadsheet and its credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	mu      sync.Mutex
	sheetID *int64
}

// New creates a mirror authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Mirror, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Mirror {
	if sheet == "" {
		sheet = "Transactions"
	}
	return &Mirror{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// EnsureHeader writes the header row when A1 is empty.
func (m *Mirror) EnsureHeader(ctx context.Context) error {
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, m.sheet+"!A1:F1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", m.sheet, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{Header}}
	_, err = m.svc.Spreadsheets.Values.Update(m.spreadsheetID, m.sheet+"!A1:F1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", m.sheet, err)
	}
	return nil
}

// IDs returns the ids in column A below the header, in row order.
func (m *Mirror) IDs(ctx context.Context) ([]string, error) {
	col, err := m.idColumn(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(col))
	for i, id := range col {
		if i == 0 || id == "" {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Upsert overwrites the row of t or appends a new one.
func (m *Mirror) Upsert(ctx context.Context, t core.Transaction) error {
	row, err := m.findRow(ctx, t.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{toRow(t)}}

	if row > 0 {
		rng := fmt.Sprintf("%s!A%d:F%d", m.sheet, row, row)
		_, err = m.svc.Spreadsheets.Values.Update(m.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d of %s: %w", row, m.sheet, err)
		}
		slog.DebugContext(ctx, "Mirror row updated", "id", t.ID, "row", row)
		return nil
	}

	_, err = m.svc.Spreadsheets.Values.Append(m.spreadsheetID, m.sheet+"!A:F", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", m.sheet, err)
	}
	slog.DebugContext(ctx, "Mirror row appended", "id", t.ID)
	return nil
}

// Remove deletes the row of id. Unknown ids are ignored.
func (m *Mirror) Remove(ctx context.Context, id string) error {
	row, err := m.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}
	sheetID, err := m.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
			// sheetId 0 is a valid id and must not be dropped.
			ForceSendFields: []string{"SheetId"},
		}},
	}}}
	if _, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", row, m.sheet, err)
	}
	slog.DebugContext(ctx, "Mirror row removed", "id", id, "row", row)
	return nil
}

func (m *Mirror) idColumn(ctx context.Context) ([]string, error) {
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, m.sheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids of %s: %w", m.sheet, err)
	}
	out := make([]string, len(resp.Values))
	for i, r := range resp.Values {
		if len(r) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(r[0]))
		}
	}
	return out, nil
}

// findRow returns the 1-based row holding id, or 0. Row 1 is the header.
func (m *Mirror) findRow(ctx context.Context, id string) (int, error) {
	col, err := m.idColumn(ctx)
	if err != nil {
		return 0, err
	}
	for i, v := range col {
		if i > 0 && v == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (m *Mirror) resolveSheetID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sheetID != nil {
		return *m.sheetID, nil
	}
	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == m.sheet {
			id := s.Properties.SheetId
			m.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", m.sheet)
}

func toRow(t core.Transaction) []interface{} {
	return []interface{}{t.ID, string(t.Date), string(t.Type), string(t.Category), t.Amount, t.Content}
}
