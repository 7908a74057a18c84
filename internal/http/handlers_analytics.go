package http

import (
	"net/http"
)

// writeResult writes v, or err when the computation failed.
func writeResult[T any](w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", v)
}

func (s *Server) handleFinancialHealth(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	today := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	health, err := s.ledger.Dashboard.FinancialHealth(r.Context(), userFrom(r.Context()), today)
	writeResult(w, r, health, err)
}

func (s *Server) handleSpendingGrowth(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	accountID := q.ID("account_id")
	today := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	growth, err := s.ledger.Dashboard.SpendingGrowth(r.Context(), userFrom(r.Context()), accountID, today)
	writeResult(w, r, growth, err)
}

func (s *Server) handleCashFlowForecast(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	months := q.Int("months", 0)
	today := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	forecast, err := s.ledger.Dashboard.CashFlowForecast(r.Context(), userFrom(r.Context()), months, today)
	writeResult(w, r, forecast, err)
}

func (s *Server) handleBudgetBurnRate(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	today := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	burn, err := s.ledger.Dashboard.BudgetBurnRate(r.Context(), userFrom(r.Context()), today)
	writeResult(w, r, burn, err)
}

func (s *Server) handleSpendingPatterns(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	accountID := q.ID("account_id")
	today := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	patterns, err := s.ledger.Dashboard.SpendingPatterns(r.Context(), userFrom(r.Context()), accountID, today)
	writeResult(w, r, patterns, err)
}

func (s *Server) handleCategoryInsights(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	accountID := q.ID("account_id")
	today := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	insights, err := s.ledger.Dashboard.CategoryInsights(r.Context(), userFrom(r.Context()), accountID, today)
	writeResult(w, r, insights, err)
}

// handleTransactionStats summarizes the last days days (30 by default).
func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	accountID := q.ID("account_id")
	days := q.Int("days", 0)
	today := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := s.ledger.Dashboard.TransactionStats(r.Context(), userFrom(r.Context()), accountID, days, today)
	writeResult(w, r, stats, err)
}

func (s *Server) handleComparePeriods(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	f := dashboardFilter(q)
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	cmp, err := s.ledger.Dashboard.ComparePeriods(r.Context(), userFrom(r.Context()), f.AccountID, f.From, f.To)
	writeResult(w, r, cmp, err)
}
