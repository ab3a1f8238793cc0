package renewal

import (
	"context"
	"time"

	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/clients"
	"revenda-crm/internal/webhook"
)

type (
	// AdapterFactory builds the panel adapter a plan's integration points at.
	AdapterFactory interface {
		Adapter(spec panels.AdapterSpec) (panels.Adapter, error)
	}

	// CredentialSource resolves a reseller's panel login.
	CredentialSource interface {
		Get(ctx context.Context, userID int64, panel panels.Panel, domain string) (*panels.Credentials, error)
	}

	// ClientStamper records a confirmed renewal on the client record.
	ClientStamper interface {
		StampRenewal(ctx context.Context, clientID int64, newDue time.Time, note string) (*clients.Client, error)
	}

	// ResultNotifier delivers the renewal outcome to the configured
	// webhook. Delivery failures are the notifier's problem; they never
	// surface here.
	ResultNotifier interface {
		NotifyRenewal(ctx context.Context, event webhook.RenewalEvent)
	}

	// Alerter pushes operator-facing failure notices.
	Alerter interface {
		Alert(text string)
	}

	// Storage provides the renewal job queue.
	Storage interface {
		CreateRenewalJob(ctx context.Context, job Job) (*Job, error)
		ListPendingRenewalJobs(ctx context.Context, limit int) ([]*Job, error)
		// ClaimRenewalJob flips one job from pending to running. False
		// means the job was no longer pending.
		ClaimRenewalJob(ctx context.Context, jobID int64) (bool, error)
		UpdateRenewalJob(ctx context.Context, jobID int64, params JobUpdateParams) (*Job, error)
	}
)
