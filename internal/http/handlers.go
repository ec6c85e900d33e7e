package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tally/internal/categories"
	"tally/internal/core"
	"tally/internal/report"
)

// Request body limit. Transactions are small; anything bigger is abuse.
const maxBodyBytes = 1 << 20

type transactionRequest struct {
	AmountCents int64 `json:"amount_cents"`
	// Decimal alternative to amount_cents ("12.34" or "12,34"),
	// matching form input. Takes precedence when present.
	Amount      string `json:"amount"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	ImageURI    string `json:"image_uri"`
	Notes       string `json:"notes"`
}

type transactionPatchRequest struct {
	AmountCents *int64  `json:"amount_cents"`
	Amount      *string `json:"amount"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id"`
	Date        *string `json:"date"`
	Type        *string `json:"type"`
	ImageURI    *string `json:"image_uri"`
	Notes       *string `json:"notes"`
}

type recurringRequest struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Every       string `json:"every"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	Type        string `json:"type"`
	Notes       string `json:"notes"`
}

type summaryResponse struct {
	Period      report.Period `json:"period"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Totals      report.Totals `json:"totals"`
	ProfitCents int64         `json:"profit_cents"`
}

type groupedResponse struct {
	Period report.Period      `json:"period"`
	Groups []report.DateGroup `json:"groups"`
}

type chartResponse struct {
	Period  report.Period   `json:"period"`
	Buckets []report.Bucket `json:"buckets"`
}

// transactionView pairs a transaction with its resolved category, so
// clients never have to resolve ids themselves. Unresolvable ids carry
// the Unknown placeholder.
type transactionView struct {
	core.Transaction
	Category categories.Category `json:"category"`
}

func viewOf(t core.Transaction) transactionView {
	return transactionView{Transaction: t, Category: categories.Get(t.CategoryID)}
}

func viewsOf(ts []core.Transaction) []transactionView {
	out := make([]transactionView, len(ts))
	for i, t := range ts {
		out[i] = viewOf(t)
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty request body")
		} else {
			writeError(w, http.StatusBadRequest, "malformed JSON: "+err.Error())
		}
		return false
	}
	return true
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	cents := req.AmountCents
	if strings.TrimSpace(req.Amount) != "" {
		cents, err = core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+req.Amount)
			return
		}
	}

	in := core.TransactionInput{
		AmountCents: cents,
		Description: sanitizeInput(req.Description),
		CategoryID:  sanitizeInput(req.CategoryID),
		Date:        date,
		Type:        core.TransactionType(req.Type),
		ImageURI:    strings.TrimSpace(req.ImageURI),
		Notes:       sanitizeInput(req.Notes),
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	t := s.svc.Create(r.Context(), in)
	s.reportCache.Clear()

	writeJSON(w, http.StatusCreated, viewOf(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewsOf(s.svc.Snapshot()))
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	s.svc.ClearAll(r.Context())
	s.reportCache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, ok := s.svc.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	patch := core.TransactionPatch{
		AmountCents: req.AmountCents,
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+*req.Amount)
			return
		}
		patch.AmountCents = &cents
	}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		patch.Description = &desc
	}
	if req.CategoryID != nil {
		cat := sanitizeInput(*req.CategoryID)
		patch.CategoryID = &cat
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		patch.Date = &date
	}
	if req.Type != nil {
		typ := core.TransactionType(*req.Type)
		patch.Type = &typ
	}
	if req.ImageURI != nil {
		uri := strings.TrimSpace(*req.ImageURI)
		patch.ImageURI = &uri
	}
	if req.Notes != nil {
		notes := sanitizeInput(*req.Notes)
		patch.Notes = &notes
	}

	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	t, ok := s.svc.Update(r.Context(), r.PathValue("id"), patch)
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	s.reportCache.Clear()

	writeJSON(w, http.StatusOK, viewOf(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Delete(r.Context(), r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	s.reportCache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now()
	start, end := period.Range(now)

	key := reportCacheKey("summary", period, start)
	if payload, ok := s.reportCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Report cache hit", "key", key)
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	filtered := report.FilterByPeriod(s.svc.Snapshot(), period, now)

	resp := summaryResponse{
		Period:      period,
		Start:       start,
		End:         end,
		Totals:      report.CalculateTotals(filtered),
		ProfitCents: report.CalculateProfit(filtered),
	}
	s.cacheAndWrite(w, r, key, resp)
}

func (s *Server) handleGrouped(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now()
	start, _ := period.Range(now)

	key := reportCacheKey("grouped", period, start)
	if payload, ok := s.reportCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Report cache hit", "key", key)
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	filtered := report.FilterByPeriod(s.svc.Snapshot(), period, now)
	groups := report.GroupByDate(filtered)
	if groups == nil {
		groups = []report.DateGroup{}
	}

	s.cacheAndWrite(w, r, key, groupedResponse{Period: period, Groups: groups})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimitParam(r, report.DefaultRecentLimit)

	recent := report.Recent(s.svc.Snapshot(), limit)
	writeJSON(w, http.StatusOK, viewsOf(recent))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now()
	start, _ := period.Range(now)

	key := reportCacheKey("chart", period, start)
	if payload, ok := s.reportCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Report cache hit", "key", key)
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	filtered := report.FilterByPeriod(s.svc.Snapshot(), period, now)
	buckets := report.ChartBuckets(filtered, period)

	s.cacheAndWrite(w, r, key, chartResponse{Period: period, Buckets: buckets})
}

// cacheAndWrite marshals once, stores the payload, and sends it.
func (s *Server) cacheAndWrite(w http.ResponseWriter, r *http.Request, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal report", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.reportCache.Set(key, payload)
	writeRawJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if !decodeBody(w, r, &req) {
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var endDate time.Time
	if strings.TrimSpace(req.EndDate) != "" {
		endDate, err = parseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	rt := core.RecurringTransaction{
		StartDate:   startDate,
		EndDate:     endDate,
		Every:       core.Repetition(req.Every),
		AmountCents: req.AmountCents,
		Description: sanitizeInput(req.Description),
		CategoryID:  sanitizeInput(req.CategoryID),
		Type:        core.TransactionType(req.Type),
		Notes:       sanitizeInput(req.Notes),
	}
	if err := rt.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	created := s.recurring.Add(r.Context(), rt)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rts := s.recurring.Snapshot()
	if rts == nil {
		rts = []core.RecurringTransaction{}
	}
	writeJSON(w, http.StatusOK, rts)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if !s.recurring.Delete(r.Context(), r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "recurring transaction not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	typeParam := strings.TrimSpace(r.URL.Query().Get("type"))
	if typeParam == "" {
		writeJSON(w, http.StatusOK, categories.All())
		return
	}

	t := core.TransactionType(typeParam)
	if !t.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid transaction type: "+typeParam)
		return
	}
	cats := categories.ByType(t)
	if cats == nil {
		cats = []categories.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}
