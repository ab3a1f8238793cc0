package packages

import (
	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/plans"
)

type ResolutionAction string

const (
	ActionCreate  ResolutionAction = "create"
	ActionReplace ResolutionAction = "replace"
)

// Resolution is the operator's decision for one conflicting package.
type Resolution struct {
	Action       ResolutionAction
	TargetPlanID int64
}

// ConflictRecord pairs a fetched package with the local plan already
// stamped with the same (panel, domain, code). It lives only inside one
// reconciliation round-trip and is never persisted.
type ConflictRecord struct {
	Package panels.Package
	Plan    *plans.Plan
}

// Report classifies a batch of fetched packages against the local catalog.
type Report struct {
	Conflicts []ConflictRecord
	New       []panels.Package
}

// ItemError scopes a failure to one package in a batch. PackageCode names
// the failed package so callers can key on it without parsing Message.
type ItemError struct {
	PackageCode string
	Code        string
	Message     string
}

const (
	ErrInvalidResolution = "invalid_resolution"
	ErrUnknownPackage    = "unknown_package"
	ErrStorageFailure    = "storage_failure"
)

// Summary is the best-effort outcome of one Apply batch.
type Summary struct {
	Created int
	Updated int
	Errors  []ItemError
}
