package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	templates, err := s.ledger.Recurring.List(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", mapSlice(templates, newRecurringResponse))
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := s.ledger.Recurring.Create(r.Context(), req.toCore(userFrom(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "recurring template created", newRecurringResponse(rt))
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := s.ledger.Recurring.Get(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", newRecurringResponse(rt))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateRecurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := s.ledger.Recurring.Update(r.Context(), userFrom(r.Context()), id, req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "recurring template updated", newRecurringResponse(rt))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "recurring template deleted", func(user core.UserID, id int64) error {
		return s.ledger.Recurring.Delete(r.Context(), user, id)
	})
}

// handleRunRecurring materializes the caller's due templates. dry_run=true
// reports the dates without writing; date overrides today.
func (s *Server) handleRunRecurring(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	opts := services.RunOptions{
		Today:  q.Date("date"),
		DryRun: q.Bool("dry_run"),
		UserID: userFrom(r.Context()),
	}
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.ledger.Processor.Run(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := NewResponse().Data(report).Message("recurring run completed")
	if report.DryRun {
		resp.Message("dry run completed, nothing was written")
	}
	for _, f := range report.Failures() {
		resp.FieldError("template", f.Error)
	}
	resp.Write(w)
}
