package http

import (
	"net/http"

	"fintrack/internal/services"
)

func dashboardFilter(q *QueryParser) services.DashboardFilter {
	return services.DashboardFilter{
		AccountID: q.ID("account_id"),
		From:      q.Date("from"),
		To:        q.Date("to"),
	}
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	f := dashboardFilter(q)
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.ledger.Dashboard.Summary(r.Context(), userFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", summary)
}

func (s *Server) handleDashboardCategories(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	f := dashboardFilter(q)
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	breakdown, err := s.ledger.Dashboard.CategoryBreakdown(r.Context(), userFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", breakdown)
}

// handleDashboardBudgets lists budget status; date restricts it to the
// budgets running on that day.
func (s *Server) handleDashboardBudgets(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	activeOn := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.ledger.Dashboard.BudgetStatus(r.Context(), userFrom(r.Context()), activeOn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", status)
}

func (s *Server) handleDashboardTrend(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	accountID := q.ID("account_id")
	months := q.Int("months", 0)
	today := q.Date("date")
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	trend, err := s.ledger.Dashboard.MonthlyTrend(r.Context(), userFrom(r.Context()), accountID, months, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", trend)
}

// handleAudit reports cached aggregates that drifted from the transactions.
// It never modifies anything.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	drifts, err := s.ledger.Auditor.Audit(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "ledger consistent"
	if len(drifts) > 0 {
		msg = "ledger drift detected"
	}
	writeData(w, http.StatusOK, msg, drifts)
}
