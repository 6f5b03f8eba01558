package http

import (
	"net/http"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/finance"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/table"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ready(); err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"status": "ready",
		"count":  len(s.ledger.All()),
	}).Write(w)
}

// fail writes the response for err. Store failures are already logged by
// the ledger; anything unclassified is logged here.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := FromError(err)
	if resp.statusCode == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	}
	resp.Write(w)
}

type transactionList struct {
	Month        finance.MonthKey   `json:"month,omitempty"`
	Day          core.Date          `json:"day,omitempty"`
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if strings.TrimSpace(query.Get("day")) != "" {
		day, err := ParseDayParam(query, s.now())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		NewJSONResponse().Body(transactionList{Day: day, Transactions: s.ledger.Day(day)}).Write(w)
		return
	}

	month, err := ParseMonthParam(query, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep := s.reports.Month(month)
	NewJSONResponse().Body(transactionList{Month: month, Transactions: rep.Transactions}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	fields, err := NewRequestBodyParser(r).Fields()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tx, err := s.ledger.Create(r.Context(), fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(tx).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	fields, err := NewRequestBodyParser(r).Fields()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tx, err := s.ledger.Update(r.Context(), id, fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(r.Context(), strings.TrimSpace(r.PathValue("id"))); err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type bulkDeleteFailure struct {
	services.BulkDeleteResult
	ErrorBody
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	ids, err := NewRequestBodyParser(r).IDs()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		BadRequestError("no ids to delete").Write(w)
		return
	}

	res, err := s.ledger.BulkDelete(r.Context(), ids)
	if err != nil {
		resp := FromError(err)
		var body ErrorBody
		if eb, ok := resp.body.(ErrorBody); ok {
			body = eb
		}
		resp.Body(bulkDeleteFailure{BulkDeleteResult: res, ErrorBody: body}).Write(w)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

// dedupe keeps the first occurrence of every id, in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// formattedBalance is the display form of a Balance.
type formattedBalance struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

func format(b core.Balance) formattedBalance {
	return formattedBalance{
		Income:  finance.FormatAmount(b.Income),
		Expense: finance.FormatAmount(b.Expense),
		Balance: finance.FormatAmount(b.Balance),
	}
}

type summaryResponse struct {
	Month     finance.MonthKey `json:"month"`
	Prev      finance.MonthKey `json:"prev"`
	Next      finance.MonthKey `json:"next"`
	Balance   core.Balance     `json:"balance"`
	Formatted formattedBalance `json:"formatted"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep := s.reports.Month(month)
	NewJSONResponse().Body(summaryResponse{
		Month:     month,
		Prev:      month.Prev(),
		Next:      month.Next(),
		Balance:   rep.Balance,
		Formatted: format(rep.Balance),
	}).Write(w)
}

type dailyResponse struct {
	services.DayReport
	Formatted formattedBalance `json:"formatted"`
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	day, err := ParseDayParam(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep := s.reports.Day(day)
	NewJSONResponse().Body(dailyResponse{DayReport: rep, Formatted: format(rep.Balance)}).Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"month":  month,
		"events": s.reports.Month(month).Calendar,
	}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	month, err := ParseMonthParam(query, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	typ, err := ParseTypeParam(query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"month":      month,
		"type":       typ,
		"categories": s.reports.Month(month).Categories(typ),
	}).Write(w)
}

func (s *Server) handleDailyChart(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"month":  month,
		"series": s.reports.Month(month).Daily,
	}).Write(w)
}

type selectionResponse struct {
	IDs   []string `json:"ids"`
	State string   `json:"state"`
}

type tableResponse struct {
	Month     finance.MonthKey  `json:"month"`
	Balance   core.Balance      `json:"balance"`
	Page      table.Page        `json:"page"`
	Selection selectionResponse `json:"selection"`
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	month, err := ParseMonthParam(query, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pp, err := ParsePageParams(query, s.pageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rep := s.reports.Month(month)
	page := rep.Table(pp.Page, pp.Size)

	// Ids outside the month are not part of the table selection.
	rows := table.SelectAll(rep.Transactions)
	var selected []string
	for _, id := range ParseIDList(query.Get("selected")) {
		if rows.Has(id) {
			selected = append(selected, id)
		}
	}
	sel := table.NewSelection(selected...)

	NewJSONResponse().Body(tableResponse{
		Month:   month,
		Balance: rep.Balance,
		Page:    page,
		Selection: selectionResponse{
			IDs:   sel.IDs(),
			State: table.SelectionState(sel, rows.Len()).String(),
		},
	}).Write(w)
}
