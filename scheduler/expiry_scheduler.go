package scheduler

import (
	"cardhub/config"
	"cardhub/helper"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiryMarker moves cards whose expiry has passed to expired.
type ExpiryMarker interface {
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

type ExpiryScheduler struct {
	cron     *cron.Cron
	marker   ExpiryMarker
	schedule string
}

func NewExpiryScheduler(marker ExpiryMarker) *ExpiryScheduler {
	log.Printf("Scheduler timezone: %s", helper.ReferenceZone.String())

	return &ExpiryScheduler{
		cron:     cron.New(cron.WithLocation(helper.ReferenceZone)),
		marker:   marker,
		schedule: config.Config("EXPIRY_SWEEP_CRON", "*/5 * * * *"),
	}
}

func (es *ExpiryScheduler) Start() error {
	entryID, err := es.cron.AddFunc(es.schedule, func() {
		es.Sweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("error scheduling expiry sweep %q: %w", es.schedule, err)
	}

	log.Printf("Expiry scheduler started with entry ID: %d, schedule %q", entryID, es.schedule)
	for _, entry := range es.cron.Entries() {
		log.Printf("Cron Entry ID: %d, Next Run: %s", entry.ID, entry.Next.Format("2006-01-02 15:04:05"))
	}

	es.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (es *ExpiryScheduler) Stop() {
	<-es.cron.Stop().Done()
}

// Sweep runs one expiry pass and returns how many cards changed.
func (es *ExpiryScheduler) Sweep(ctx context.Context) int64 {
	count, err := es.marker.MarkExpired(ctx, time.Now())
	if err != nil {
		helper.Error("[ExpirySweep] %v", err)
		return 0
	}
	if count > 0 {
		helper.Info("[ExpirySweep] marked %d cards expired", count)
	}
	return count
}

func (es *ExpiryScheduler) GetStatus() map[string]interface{} {
	entries := es.cron.Entries()
	status := make(map[string]interface{})

	for i, entry := range entries {
		status[fmt.Sprintf("entry_%d", i)] = map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next.Format("2006-01-02 15:04:05"),
			"schedule": es.schedule,
		}
	}

	return status
}
