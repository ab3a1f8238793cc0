package renewalqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"revenda-crm/internal/stories/clients"
	"revenda-crm/internal/stories/plans"
	"revenda-crm/internal/stories/renewal"
)

// batchLimit caps one drain pass. A challenge-gated renewal can hold its
// job for 150s, so a pass must stay small enough for the backlog to keep
// moving.
const batchLimit = 20

// Worker drains the renewal job queue. Dispatch never runs on a request
// path; the billing collaborator only enqueues, this worker does the slow
// panel I/O.
type Worker struct {
	queue      Queue
	dispatcher Dispatcher
	storage    Storage
	logger     *slog.Logger
	cron       *cron.Cron
}

func NewWorker(queue Queue, dispatcher Dispatcher, storage Storage, logger *slog.Logger) *Worker {
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		storage:    storage,
		logger:     logger,
		cron:       cron.New(),
	}
}

func (w *Worker) Name() string {
	return "renewal-queue"
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc("* * * * *", func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("Panic in renewal queue worker", "panic", r)
			}
		}()
		ctx := context.Background()
		if err := w.run(ctx); err != nil {
			w.logger.Error("Renewal queue worker failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule renewal queue worker: %w", err)
	}

	w.cron.Start()
	return nil
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping renewal queue worker")
	w.cron.Stop()
}

func (w *Worker) run(ctx context.Context) error {
	jobs, err := w.queue.Pending(ctx, batchLimit)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("Draining renewal queue", "count", len(jobs))

	for _, job := range jobs {
		// A pass can outlive the cron interval when it hits slow
		// challenge-gated renewals, so the next tick may list the same
		// rows. Claiming flips the job to running atomically; whoever
		// loses the claim walks away and the panel sees one renewal.
		claimed, err := w.queue.Claim(ctx, job.ID)
		if err != nil {
			w.logger.Error("Failed to claim renewal job",
				"job_id", job.ID,
				"job_key", job.Key,
				"error", err)
			continue
		}
		if !claimed {
			continue
		}

		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("Failed to process renewal job",
				"job_id", job.ID,
				"job_key", job.Key,
				"error", err)
			continue
		}
	}

	return nil
}

func (w *Worker) processJob(ctx context.Context, job *renewal.Job) error {
	client, err := w.storage.GetClient(ctx, clients.GetCriteria{ID: &job.ClientID})
	if err != nil {
		return fmt.Errorf("get client: %w", err)
	}

	plan, err := w.storage.GetPlan(ctx, plans.GetCriteria{ID: &job.PlanID})
	if err != nil {
		return fmt.Errorf("get plan: %w", err)
	}

	var result renewal.Result
	if client == nil || plan == nil {
		result = renewal.Result{Outcome: renewal.OutcomeFailed, Reason: renewal.ReasonRecordMissing}
		w.logger.Warn("Renewal job references a deleted record",
			"job_id", job.ID,
			"client_id", job.ClientID,
			"plan_id", job.PlanID)
	} else {
		result = w.dispatcher.Dispatch(ctx, client, plan, renewal.PaymentContext{
			PaymentID: job.PaymentID,
			Amount:    job.Amount,
		})
	}

	if _, err := w.queue.Finish(ctx, job.ID, result); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}

	return nil
}
