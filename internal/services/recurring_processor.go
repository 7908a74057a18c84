package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type TemplateStatus string

const (
	StatusProcessed TemplateStatus = "processed"
	StatusSkipped   TemplateStatus = "skipped"
	StatusFailed    TemplateStatus = "failed"
)

var errWatermarkMoved = errors.New("watermark changed by a concurrent run")

// RunOptions configures one materializer run. An empty UserID processes
// the templates of every user.
type RunOptions struct {
	Today  core.Date
	DryRun bool
	UserID core.UserID
}

// TemplateResult is the outcome of one template. Dates are the emitted
// dates, or the would-be dates in a dry run.
type TemplateResult struct {
	TemplateID int64          `json:"template_id"`
	UserID     core.UserID    `json:"user_id"`
	Status     TemplateStatus `json:"status"`
	Dates      []core.Date    `json:"dates"`
	Error      string         `json:"error,omitempty"`
}

// RunReport is returned by every run, including partially failed ones.
type RunReport struct {
	RunID      string           `json:"run_id"`
	Today      core.Date        `json:"today"`
	DryRun     bool             `json:"dry_run"`
	Templates  []TemplateResult `json:"templates"`
	Processed  int              `json:"processed"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Emitted    int              `json:"emitted"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Failures returns the failed template results.
func (r RunReport) Failures() []TemplateResult {
	var out []TemplateResult
	for _, t := range r.Templates {
		if t.Status == StatusFailed {
			out = append(out, t)
		}
	}
	return out
}

func (r *RunReport) add(res TemplateResult, dryRun bool) {
	r.Templates = append(r.Templates, res)
	switch res.Status {
	case StatusProcessed:
		r.Processed++
		if !dryRun {
			r.Emitted += len(res.Dates)
		}
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// RecurringProcessor materializes recurring templates into transactions,
// once per elapsed period, advancing each template's watermark.
type RecurringProcessor struct {
	storage      *storage.SQLiteRepository
	transactions *TransactionService
}

// NewRecurringProcessor creates a new recurring template processor
func NewRecurringProcessor(storage *storage.SQLiteRepository, transactions *TransactionService) *RecurringProcessor {
	return &RecurringProcessor{
		storage:      storage,
		transactions: transactions,
	}
}

// Run processes every template in scope as of opts.Today. Each template is
// materialized in its own database transaction; a failing template is
// rolled back and reported while the others proceed. The error return is
// reserved for failures that stop the whole run.
func (p *RecurringProcessor) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	if p.storage == nil || p.transactions == nil {
		return RunReport{}, fmt.Errorf("processor not properly initialized")
	}
	if opts.Today.IsZero() {
		opts.Today = core.Today()
	}

	report := RunReport{
		RunID:     uuid.NewString(),
		Today:     opts.Today,
		DryRun:    opts.DryRun,
		Templates: []TemplateResult{},
		StartedAt: time.Now().UTC(),
	}
	logger := log.FromContext(ctx).WithComponent(log.ComponentRecurring).With(
		"run_id", report.RunID,
		"dry_run", opts.DryRun,
		log.FieldOperation, log.OpMaterialize)

	rows, err := p.storage.Queries().ListRecurring(ctx, string(opts.UserID))
	if err != nil {
		return report, fmt.Errorf("list recurring templates: %w", err)
	}

	logger.InfoContext(ctx, "Processing recurring templates",
		"total", len(rows),
		"today", opts.Today.String(),
		log.FieldUserID, opts.UserID)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}

		res := p.processTemplate(ctx, row.ToCore(), opts)
		report.add(res, opts.DryRun)

		switch res.Status {
		case StatusFailed:
			logger.ErrorContext(ctx, "Failed to materialize recurring template",
				log.FieldTemplateID, res.TemplateID,
				log.FieldUserID, res.UserID,
				log.FieldError, res.Error)
		case StatusProcessed:
			if len(res.Dates) > 0 {
				logger.InfoContext(ctx, "Materialized recurring template",
					log.FieldTemplateID, res.TemplateID,
					log.FieldUserID, res.UserID,
					"occurrences", len(res.Dates),
					"last_date", res.Dates[len(res.Dates)-1].String())
			}
		}
	}

	report.FinishedAt = time.Now().UTC()
	logger.InfoContext(ctx, "Recurring template processing complete",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"emitted", report.Emitted)

	return report, nil
}

func (p *RecurringProcessor) processTemplate(ctx context.Context, rt core.RecurringTemplate, opts RunOptions) TemplateResult {
	res := TemplateResult{TemplateID: rt.ID, UserID: rt.UserID, Dates: []core.Date{}}

	if !rt.IsActive(opts.Today) {
		res.Status = StatusSkipped
		return res
	}

	if opts.DryRun {
		due, err := DueOccurrences(rt, opts.Today)
		if err != nil {
			return failed(res, &MaterializationError{TemplateID: rt.ID, Err: err})
		}
		res.Status = StatusProcessed
		res.Dates = append(res.Dates, due...)
		return res
	}

	var (
		emitted []core.Date
		events  []committedEvent
	)
	err := p.storage.InTx(ctx, func(q *storage.Queries) error {
		emitted, events = nil, nil

		// Re-read inside the write transaction: another run may have
		// advanced the watermark since the listing.
		row, err := q.GetRecurringByID(ctx, rt.ID)
		if err != nil {
			if storage.IsNoRows(err) {
				return nil
			}
			return &MaterializationError{TemplateID: rt.ID, Err: err}
		}
		fresh := row.ToCore()
		if !fresh.IsActive(opts.Today) {
			return nil
		}

		due, err := DueOccurrences(fresh, opts.Today)
		if err != nil {
			return &MaterializationError{TemplateID: rt.ID, Err: err}
		}
		for _, d := range due {
			_, ev, err := p.transactions.createInTx(ctx, q, materialize(fresh, d))
			if err != nil {
				return &MaterializationError{TemplateID: rt.ID, Date: d, Err: err}
			}
			emitted = append(emitted, d)
			events = append(events, ev)
		}
		if len(emitted) == 0 {
			return nil
		}

		n, err := q.AdvanceRecurringWatermark(ctx, storage.AdvanceRecurringWatermarkParams{
			LastProcessedDate: emitted[len(emitted)-1].String(),
			ID:                rt.ID,
			Previous:          storage.NullDate(fresh.LastProcessedDate),
		})
		if err != nil {
			return &MaterializationError{TemplateID: rt.ID, Err: fmt.Errorf("advance watermark: %w", err)}
		}
		if n != 1 {
			return &MaterializationError{TemplateID: rt.ID, Err: errWatermarkMoved}
		}
		return nil
	})
	if err != nil {
		return failed(res, err)
	}

	res.Status = StatusProcessed
	res.Dates = append(res.Dates, emitted...)
	if len(events) > 0 {
		p.transactions.afterCommit(ctx, rt.UserID, events...)
	}
	return res
}

// materialize builds the transaction for one occurrence of rt.
func materialize(rt core.RecurringTemplate, date core.Date) core.Transaction {
	id := rt.ID
	return core.Transaction{
		UserID:      rt.UserID,
		AccountID:   rt.AccountID,
		CategoryID:  rt.CategoryID,
		Kind:        rt.Kind,
		Amount:      rt.Amount,
		Note:        rt.Note,
		Date:        date,
		RecurringID: &id,
	}
}

func failed(res TemplateResult, err error) TemplateResult {
	res.Status = StatusFailed
	res.Dates = []core.Date{}
	res.Error = err.Error()
	return res
}
