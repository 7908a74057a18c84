package services

import (
	"testing"

	"fintrack/internal/core"
)

func dates(ds ...core.Date) []core.Date { return ds }

func TestSteppers_Next(t *testing.T) {
	tests := []struct {
		name    string
		stepper OccurrenceStepper
		anchor  core.Date
		after   core.Date
		want    core.Date
	}{
		{"daily", DailyStepper{}, core.NewDate(2024, 1, 1), core.NewDate(2024, 2, 28), core.NewDate(2024, 2, 29)},
		{"daily before anchor", DailyStepper{}, core.NewDate(2024, 1, 10), core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 10)},
		{"weekly aligned", WeeklyStepper{}, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 8), core.NewDate(2024, 1, 15)},
		{"weekly off grid", WeeklyStepper{}, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 10), core.NewDate(2024, 1, 15)},
		{"weekly across year", WeeklyStepper{}, core.NewDate(2024, 12, 30), core.NewDate(2024, 12, 30), core.NewDate(2025, 1, 6)},
		{"monthly clamps to february", MonthlyStepper{}, core.NewDate(2025, 1, 31), core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28)},
		{"monthly returns to anchor day", MonthlyStepper{}, core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28), core.NewDate(2025, 3, 31)},
		{"monthly clamps to thirty", MonthlyStepper{}, core.NewDate(2025, 1, 31), core.NewDate(2025, 3, 31), core.NewDate(2025, 4, 30)},
		{"monthly leap february", MonthlyStepper{}, core.NewDate(2024, 1, 30), core.NewDate(2024, 1, 30), core.NewDate(2024, 2, 29)},
		{"monthly across year", MonthlyStepper{}, core.NewDate(2024, 11, 15), core.NewDate(2024, 12, 15), core.NewDate(2025, 1, 15)},
		{"monthly mid month watermark", MonthlyStepper{}, core.NewDate(2025, 1, 15), core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 15)},
		{"yearly", YearlyStepper{}, core.NewDate(2020, 6, 1), core.NewDate(2020, 6, 1), core.NewDate(2021, 6, 1)},
		{"yearly leap day clamps", YearlyStepper{}, core.NewDate(2024, 2, 29), core.NewDate(2024, 2, 29), core.NewDate(2025, 2, 28)},
		{"yearly leap day restores", YearlyStepper{}, core.NewDate(2024, 2, 29), core.NewDate(2027, 2, 28), core.NewDate(2028, 2, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.stepper.Next(tt.anchor, tt.after)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%s, %s) = %s, want %s", tt.anchor, tt.after, got, tt.want)
			}
		})
	}
}

func TestGetOccurrenceStepper(t *testing.T) {
	for _, f := range []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetOccurrenceStepper(f); err != nil {
			t.Errorf("GetOccurrenceStepper(%s) error = %v", f, err)
		}
	}
	if _, err := GetOccurrenceStepper("hourly"); err == nil {
		t.Error("expected error for unknown frequency")
	}
}

func TestDueOccurrences(t *testing.T) {
	tests := []struct {
		name     string
		template core.RecurringTemplate
		today    core.Date
		want     []core.Date
	}{
		{
			name: "fresh monthly catch-up",
			template: core.RecurringTemplate{
				Frequency: core.Monthly,
				StartDate: core.NewDate(2025, 1, 31),
			},
			today: core.NewDate(2025, 4, 30),
			want:  dates(core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28), core.NewDate(2025, 3, 31), core.NewDate(2025, 4, 30)),
		},
		{
			name: "watermark at today",
			template: core.RecurringTemplate{
				Frequency:         core.Monthly,
				StartDate:         core.NewDate(2025, 1, 31),
				LastProcessedDate: core.NewDate(2025, 4, 30),
			},
			today: core.NewDate(2025, 4, 30),
			want:  nil,
		},
		{
			name: "resumes after watermark",
			template: core.RecurringTemplate{
				Frequency:         core.Monthly,
				StartDate:         core.NewDate(2025, 1, 31),
				LastProcessedDate: core.NewDate(2025, 2, 28),
			},
			today: core.NewDate(2025, 4, 29),
			want:  dates(core.NewDate(2025, 3, 31)),
		},
		{
			name: "end date bounds emission",
			template: core.RecurringTemplate{
				Frequency: core.Daily,
				StartDate: core.NewDate(2025, 1, 1),
				EndDate:   core.NewDate(2025, 1, 3),
			},
			today: core.NewDate(2025, 1, 3),
			want:  dates(core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 2), core.NewDate(2025, 1, 3)),
		},
		{
			name: "weekly",
			template: core.RecurringTemplate{
				Frequency: core.Weekly,
				StartDate: core.NewDate(2025, 1, 1),
			},
			today: core.NewDate(2025, 1, 21),
			want:  dates(core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 8), core.NewDate(2025, 1, 15)),
		},
		{
			name: "start in future",
			template: core.RecurringTemplate{
				Frequency: core.Yearly,
				StartDate: core.NewDate(2026, 1, 1),
			},
			today: core.NewDate(2025, 12, 31),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DueOccurrences(tt.template, tt.today)
			if err != nil {
				t.Fatalf("DueOccurrences() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("DueOccurrences() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("occurrence %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
