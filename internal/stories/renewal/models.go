package renewal

import (
	"time"

	"revenda-crm/internal/panels"
)

// Outcome is the terminal state of one renewal dispatch.
type Outcome string

const (
	// OutcomeSucceeded: the panel confirmed the renewal.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeSkipped: nothing to do on any panel. Not an error; the local
	// renewal the billing collaborator already committed stands on its own.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed: something needs operator attention. Billing state is
	// unaffected; the dispatcher never rolls anything back.
	OutcomeFailed Outcome = "failed"
)

type Reason string

const (
	ReasonNoIntegration     Reason = "no_integration"
	ReasonAmbiguousPlanType Reason = "ambiguous_plan_type"
	ReasonNotLinked         Reason = "not_linked"
	ReasonNoCredentials     Reason = "no_credentials"
	ReasonCredentialsError  Reason = "credentials_error"
	ReasonConfigInvalid     Reason = "config_invalid"
	// ReasonRecordMissing: the client or plan was deleted between enqueue
	// and drain.
	ReasonRecordMissing Reason = "record_missing"
)

// Result is the structured, non-throwing outcome of a dispatch.
type Result struct {
	Outcome Outcome
	Reason  Reason
	Receipt *panels.Receipt
}

func succeeded(receipt *panels.Receipt) Result {
	return Result{Outcome: OutcomeSucceeded, Receipt: receipt}
}

func skipped(reason Reason) Result {
	return Result{Outcome: OutcomeSkipped, Reason: reason}
}

func failed(reason Reason) Result {
	return Result{Outcome: OutcomeFailed, Reason: reason}
}

// PaymentContext identifies the already-committed payment that triggered
// the dispatch. Advisory data for the webhook and audit trail only.
type PaymentContext struct {
	PaymentID int64
	Amount    float64
}

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning: a drain pass claimed the job and owns the dispatch.
	// A job must be claimed before any panel call; a renewal must never run
	// twice for one payment.
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusSkipped   JobStatus = "skipped"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one queued renewal dispatch. The billing collaborator enqueues a
// job right after committing a payment; the worker drains the queue off the
// request path, which keeps 150s challenge solves away from request
// handlers.
type Job struct {
	ID        int64
	Key       string // uuid, for idempotent enqueue and log correlation
	ClientID  int64
	PlanID    int64
	PaymentID int64
	Amount    float64
	Status    JobStatus
	Outcome   string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Parameters for updating a job after a dispatch attempt
type JobUpdateParams struct {
	Status    *JobStatus
	Outcome   *string
	LastError *string
}
