package cron

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Scheduled is implemented by jobs that only run on some ticks.
type Scheduled interface {
	Due(now time.Time) bool
}

// DailyJob runs the wrapped job at most once per calendar day in loc, on the
// first tick at or after hour. A failed run is retried on the next tick.
type DailyJob struct {
	job  Job
	hour int
	loc  *time.Location

	mu      sync.Mutex
	lastRun string
	now     func() time.Time
}

func NewDailyJob(job Job, hour int, loc *time.Location) (*DailyJob, error) {
	if job == nil {
		return nil, errors.New("job required")
	}
	if hour < 0 || hour > 23 {
		return nil, errors.New("hour must be between 0 and 23")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailyJob{job: job, hour: hour, loc: loc, now: time.Now}, nil
}

func (d *DailyJob) Name() string { return d.job.Name() }

func (d *DailyJob) Due(now time.Time) bool {
	local := now.In(d.loc)
	if local.Hour() < d.hour {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRun != local.Format(dayLayout)
}

func (d *DailyJob) Run(ctx context.Context) error {
	day := d.now().In(d.loc).Format(dayLayout)
	if err := d.job.Run(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	d.lastRun = day
	d.mu.Unlock()
	return nil
}

const dayLayout = "2006-01-02"

// startOfDay returns local midnight of t in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
