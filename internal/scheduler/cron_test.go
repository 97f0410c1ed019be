package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Conduit/internal/domain"
)

func TestCalculateNextDue_Interval(t *testing.T) {
	sched := &domain.Schedule{
		IntervalSec: 300,
		Timezone:    "UTC",
	}
	from := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue() error = %v", err)
	}

	want := from.Add(5 * time.Minute)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDue_Cron(t *testing.T) {
	tests := []struct {
		name     string
		cronExpr string
		from     time.Time
		want     time.Time
	}{
		{
			name:     "daily at 9am",
			cronExpr: "0 9 * * *",
			from:     time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
			want:     time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "every 5 minutes",
			cronExpr: "*/5 * * * *",
			from:     time.Date(2026, 1, 15, 10, 2, 0, 0, time.UTC),
			want:     time.Date(2026, 1, 15, 10, 5, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &domain.Schedule{
				CronExpr: tt.cronExpr,
				Timezone: "UTC",
			}
			next, err := CalculateNextDue(sched, tt.from)
			if err != nil {
				t.Fatalf("CalculateNextDue() error = %v", err)
			}
			if !next.Equal(tt.want) {
				t.Errorf("next = %v, want %v", next, tt.want)
			}
		})
	}
}

func TestCalculateNextDue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	sched := &domain.Schedule{
		IntervalSec: 60,
		Timezone:    "Not/AZone",
	}
	from := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue() error = %v", err)
	}
	if !next.Equal(from.Add(time.Minute)) {
		t.Errorf("next = %v, want %v", next, from.Add(time.Minute))
	}
}

func TestCalculateNextDue_NeitherCronNorInterval(t *testing.T) {
	sched := &domain.Schedule{Timezone: "UTC"}

	if _, err := CalculateNextDue(sched, time.Now()); err == nil {
		t.Error("expected error for schedule without cron_expr and interval_sec")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("0 9 * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Error("invalid expression accepted")
	}
}
