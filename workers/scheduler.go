package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"cat-game-backend/services"

	"github.com/go-co-op/gocron/v2"
)

const adsgramSweepInterval = time.Hour

// StartScheduler registers the background jobs and starts them. The caller
// shuts the scheduler down on exit.
func StartScheduler(ctx context.Context, webhooks *FailureWebhookDispatcher, webhookEvery time.Duration,
	adsgram *services.AdsgramService, staleAfter time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	// Every webhookEvery: push pending failure notifications
	if _, err := sched.NewJob(
		gocron.DurationJob(webhookEvery),
		gocron.NewTask(func() {
			if _, err := webhooks.DeliverPending(ctx); err != nil {
				log.Printf("[Scheduler] webhook delivery: %v", err)
			}
		}),
		gocron.WithName("failure-webhooks"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	// Hourly: give up on ad assignments nobody completed
	if _, err := sched.NewJob(
		gocron.DurationJob(adsgramSweepInterval),
		gocron.NewTask(func() {
			n, err := adsgram.ExpireStale(ctx, staleAfter)
			if err != nil {
				log.Printf("[Scheduler] adsgram sweep: %v", err)
				return
			}
			if n > 0 {
				log.Printf("🧹 Marked %d stale ad assignment(s) as failed", n)
			}
		}),
		gocron.WithName("adsgram-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
