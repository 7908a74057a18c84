// Package services provides business logic and orchestration services.
//
// This file implements the per-frequency schedule of recurring templates.
// Each frequency has its own stepper; monthly and yearly schedules are
// anchored on the template's start date so a day clamped in a short month
// returns to the start day afterwards (Jan 31, Feb 28, Mar 31, Apr 30).

package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// OccurrenceStepper yields the schedule of one frequency.
type OccurrenceStepper interface {
	// Next returns the first occurrence strictly after after. anchor is the
	// template's start date and is itself the first occurrence.
	Next(anchor, after core.Date) core.Date
}

// DailyStepper implements OccurrenceStepper for daily templates.
type DailyStepper struct{}

func (DailyStepper) Next(anchor, after core.Date) core.Date {
	if after.Before(anchor) {
		return anchor
	}
	return after.AddDays(1)
}

// WeeklyStepper implements OccurrenceStepper for weekly templates.
type WeeklyStepper struct{}

func (WeeklyStepper) Next(anchor, after core.Date) core.Date {
	if after.Before(anchor) {
		return anchor
	}
	days := int(after.Sub(anchor.Time).Hours() / 24)
	return anchor.AddDays((days/7 + 1) * 7)
}

// MonthlyStepper implements OccurrenceStepper for monthly templates.
type MonthlyStepper struct{}

func (MonthlyStepper) Next(anchor, after core.Date) core.Date {
	if after.Before(anchor) {
		return anchor
	}
	k := (after.Year()-anchor.Year())*12 + after.Month() - anchor.Month()
	if d := monthlyOccurrence(anchor, k); d.After(after) {
		return d
	}
	return monthlyOccurrence(anchor, k+1)
}

// monthlyOccurrence is the k-th monthly occurrence after anchor, with the
// anchor's day clamped to the length of the target month.
func monthlyOccurrence(anchor core.Date, k int) core.Date {
	first := time.Date(anchor.Year(), time.Month(anchor.Month()+k), 1, 0, 0, 0, 0, time.UTC)
	day := min(anchor.Day(), core.DaysIn(first.Year(), first.Month()))
	return core.NewDate(first.Year(), int(first.Month()), day)
}

// YearlyStepper implements OccurrenceStepper for yearly templates.
type YearlyStepper struct{}

func (YearlyStepper) Next(anchor, after core.Date) core.Date {
	if after.Before(anchor) {
		return anchor
	}
	k := after.Year() - anchor.Year()
	if d := yearlyOccurrence(anchor, k); d.After(after) {
		return d
	}
	return yearlyOccurrence(anchor, k+1)
}

// yearlyOccurrence clamps Feb 29 anchors to Feb 28 in common years.
func yearlyOccurrence(anchor core.Date, k int) core.Date {
	year := anchor.Year() + k
	month := time.Month(anchor.Month())
	day := min(anchor.Day(), core.DaysIn(year, month))
	return core.NewDate(year, int(month), day)
}

// occurrenceStrategies maps frequencies to their steppers.
var occurrenceStrategies = map[core.Frequency]OccurrenceStepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetOccurrenceStepper returns the stepper for a frequency.
func GetOccurrenceStepper(frequency core.Frequency) (OccurrenceStepper, error) {
	stepper, ok := occurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return stepper, nil
}

// DueOccurrences lists the dates rt still owes as of today, oldest first:
// every occurrence after the watermark (or from the start date when the
// watermark is unset) that is not after today nor after the end date.
func DueOccurrences(rt core.RecurringTemplate, today core.Date) ([]core.Date, error) {
	stepper, err := GetOccurrenceStepper(rt.Frequency)
	if err != nil {
		return nil, err
	}

	cursor := rt.StartDate
	if !rt.LastProcessedDate.IsZero() {
		cursor = stepper.Next(rt.StartDate, rt.LastProcessedDate)
	}

	var dates []core.Date
	for !cursor.After(today) && (rt.EndDate.IsZero() || !cursor.After(rt.EndDate)) {
		dates = append(dates, cursor)
		cursor = stepper.Next(rt.StartDate, cursor)
	}
	return dates, nil
}
