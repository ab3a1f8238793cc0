package renewal

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Service owns the renewal job queue. Enqueueing is the only thing that
// happens on the billing path; the worker drains jobs and runs the
// dispatcher off it.
type Service struct {
	storage Storage
}

func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// Enqueue records a pending renewal dispatch for a committed payment.
func (s *Service) Enqueue(ctx context.Context, clientID, planID int64, payment PaymentContext) (*Job, error) {
	if clientID <= 0 {
		return nil, errors.New("client id is required")
	}
	if planID <= 0 {
		return nil, errors.New("plan id is required")
	}

	job, err := s.storage.CreateRenewalJob(ctx, Job{
		Key:       uuid.New().String(),
		ClientID:  clientID,
		PlanID:    planID,
		PaymentID: payment.PaymentID,
		Amount:    payment.Amount,
		Status:    JobStatusPending,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create renewal job")
	}

	return job, nil
}

// Pending returns up to limit jobs still waiting for a dispatch.
func (s *Service) Pending(ctx context.Context, limit int) ([]*Job, error) {
	jobs, err := s.storage.ListPendingRenewalJobs(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list pending renewal jobs")
	}

	return jobs, nil
}

// Claim takes ownership of a pending job before dispatch. A false return
// means another drain pass got there first and the caller must not touch
// the panel for this job.
func (s *Service) Claim(ctx context.Context, jobID int64) (bool, error) {
	claimed, err := s.storage.ClaimRenewalJob(ctx, jobID)
	if err != nil {
		return false, errors.Wrap(err, "claim renewal job")
	}

	return claimed, nil
}

// Finish marks a job with the outcome of its dispatch.
func (s *Service) Finish(ctx context.Context, jobID int64, result Result) (*Job, error) {
	status := JobStatusFailed
	switch result.Outcome {
	case OutcomeSucceeded:
		status = JobStatusSucceeded
	case OutcomeSkipped:
		status = JobStatusSkipped
	}

	params := JobUpdateParams{
		Status:  lo.ToPtr(status),
		Outcome: lo.ToPtr(string(result.Outcome)),
	}
	if result.Reason != "" {
		params.LastError = lo.ToPtr(string(result.Reason))
	}

	job, err := s.storage.UpdateRenewalJob(ctx, jobID, params)
	if err != nil {
		return nil, errors.Wrap(err, "update renewal job")
	}

	return job, nil
}
