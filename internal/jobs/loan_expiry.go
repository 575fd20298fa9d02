package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds one expiry run.
const sweepTimeout = 4 * time.Minute

// Expirer is the slice of the loan service the sweep needs.
type Expirer interface {
	ExpireOverdue(ctx context.Context, today time.Time) (int64, error)
}

// LoanExpiry periodically moves overdue RENTED loans to EXPIRED.
type LoanExpiry struct {
	cron     *cron.Cron
	loans    Expirer
	schedule string
	now      func() time.Time
}

// NewLoanExpiry registers the sweep on schedule (standard 5-field cron or a
// descriptor such as "@daily"). Runs never overlap.
func NewLoanExpiry(schedule string, loans Expirer) (*LoanExpiry, error) {
	j := &LoanExpiry{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		loans:    loans,
		schedule: schedule,
		now:      time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("loan expiry schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *LoanExpiry) Start() {
	log.Printf("[INFO] LoanExpiry: started schedule=%q", j.schedule)
	j.cron.Start()
}

// Stop prevents new runs and returns a context that is done once a running
// sweep has finished.
func (j *LoanExpiry) Stop() context.Context {
	return j.cron.Stop()
}

func (j *LoanExpiry) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := j.loans.ExpireOverdue(ctx, j.now()); err != nil {
		log.Printf("[ERROR] LoanExpiry: sweep failed: %v", err)
	}
}
