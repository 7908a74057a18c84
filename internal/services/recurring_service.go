package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// RecurringService manages recurring templates. The watermark is owned by
// the RecurringProcessor and cannot be set here.
type RecurringService struct {
	storage *storage.SQLiteRepository
}

func NewRecurringService(storage *storage.SQLiteRepository) *RecurringService {
	return &RecurringService{storage: storage}
}

type RecurringPatch struct {
	AccountID     *int64
	CategoryID    *int64
	ClearCategory bool
	Kind          *core.Kind
	Amount        *core.Money
	Note          *string
	Frequency     *core.Frequency
	StartDate     *core.Date
	EndDate       *core.Date
	ClearEndDate  bool
}

func (p RecurringPatch) Apply(rt core.RecurringTemplate) core.RecurringTemplate {
	if p.AccountID != nil {
		rt.AccountID = *p.AccountID
	}
	if p.ClearCategory {
		rt.CategoryID = nil
	} else if p.CategoryID != nil {
		id := *p.CategoryID
		rt.CategoryID = &id
	}
	if p.Kind != nil {
		rt.Kind = *p.Kind
	}
	if p.Amount != nil {
		rt.Amount = *p.Amount
	}
	if p.Note != nil {
		rt.Note = *p.Note
	}
	if p.Frequency != nil {
		rt.Frequency = *p.Frequency
	}
	if p.StartDate != nil {
		rt.StartDate = *p.StartDate
	}
	if p.ClearEndDate {
		rt.EndDate = core.Date{}
	} else if p.EndDate != nil {
		rt.EndDate = *p.EndDate
	}
	return rt
}

func (s *RecurringService) Create(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	if rt.Kind == "" {
		rt.Kind = core.Expense
	}
	if err := rt.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}

	var created core.RecurringTemplate
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if _, _, err := resolveRefs(ctx, q, rt.UserID, rt.AccountID, rt.CategoryID); err != nil {
			return err
		}
		row, err := q.CreateRecurring(ctx, storage.CreateRecurringParams{
			UserID:      string(rt.UserID),
			AccountID:   rt.AccountID,
			CategoryID:  storage.NullID(rt.CategoryID),
			Kind:        string(rt.Kind),
			AmountCents: rt.Amount.Cents,
			Note:        rt.Note,
			Frequency:   string(rt.Frequency),
			StartDate:   rt.StartDate.String(),
			EndDate:     storage.NullDate(rt.EndDate),
		})
		if err != nil {
			return fmt.Errorf("insert recurring template: %w", err)
		}
		created = row.ToCore()
		return nil
	})
	if err != nil {
		return core.RecurringTemplate{}, err
	}

	slog.InfoContext(ctx, "Recurring template created",
		log.FieldTemplateID, created.ID,
		log.FieldUserID, created.UserID,
		"frequency", created.Frequency,
		log.FieldAmountCents, created.Amount.Cents)
	return created, nil
}

func (s *RecurringService) Update(ctx context.Context, user core.UserID, id int64, patch RecurringPatch) (core.RecurringTemplate, error) {
	var updated core.RecurringTemplate
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		row, err := q.GetRecurring(ctx, storage.GetRecurringParams{ID: id, UserID: string(user)})
		if err != nil {
			if storage.IsNoRows(err) {
				return core.NotFound("recurring template", id)
			}
			return fmt.Errorf("get recurring template: %w", err)
		}
		next := patch.Apply(row.ToCore())
		if err := next.Validate(); err != nil {
			return err
		}
		if _, _, err := resolveRefs(ctx, q, user, next.AccountID, next.CategoryID); err != nil {
			return err
		}
		row, err = q.UpdateRecurring(ctx, storage.UpdateRecurringParams{
			AccountID:   next.AccountID,
			CategoryID:  storage.NullID(next.CategoryID),
			Kind:        string(next.Kind),
			AmountCents: next.Amount.Cents,
			Note:        next.Note,
			Frequency:   string(next.Frequency),
			StartDate:   next.StartDate.String(),
			EndDate:     storage.NullDate(next.EndDate),
			ID:          id,
			UserID:      string(user),
		})
		if err != nil {
			return fmt.Errorf("update recurring template: %w", err)
		}
		updated = row.ToCore()
		return nil
	})
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	slog.InfoContext(ctx, "Recurring template updated", log.FieldTemplateID, id, log.FieldUserID, user)
	return updated, nil
}

// Delete removes the template. Transactions it already emitted stay.
func (s *RecurringService) Delete(ctx context.Context, user core.UserID, id int64) error {
	n, err := s.storage.Queries().DeleteRecurring(ctx, storage.DeleteRecurringParams{ID: id, UserID: string(user)})
	if err != nil {
		return fmt.Errorf("delete recurring template: %w", err)
	}
	if n == 0 {
		return core.NotFound("recurring template", id)
	}
	slog.InfoContext(ctx, "Recurring template deleted", log.FieldTemplateID, id, log.FieldUserID, user)
	return nil
}

func (s *RecurringService) Get(ctx context.Context, user core.UserID, id int64) (core.RecurringTemplate, error) {
	row, err := s.storage.Queries().GetRecurring(ctx, storage.GetRecurringParams{ID: id, UserID: string(user)})
	if err != nil {
		if storage.IsNoRows(err) {
			return core.RecurringTemplate{}, core.NotFound("recurring template", id)
		}
		return core.RecurringTemplate{}, fmt.Errorf("get recurring template: %w", err)
	}
	return row.ToCore(), nil
}

func (s *RecurringService) List(ctx context.Context, user core.UserID) ([]core.RecurringTemplate, error) {
	rows, err := s.storage.Queries().ListRecurring(ctx, string(user))
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	out := make([]core.RecurringTemplate, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToCore())
	}
	return out, nil
}
