package packagerefresh

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/credentials"
)

// Worker refreshes the cached package catalog for every panel deployment
// that has stored credentials. Runs nightly; a stale cache only degrades
// the reconciliation UI, so failures are logged per deployment and the
// pass continues.
type Worker struct {
	store    CredentialStore
	source   CredentialSource
	adapters AdapterFactory
	importer Importer
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewWorker(
	store CredentialStore,
	source CredentialSource,
	adapters AdapterFactory,
	importer Importer,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		store:    store,
		source:   source,
		adapters: adapters,
		importer: importer,
		logger:   logger,
		cron:     cron.New(),
	}
}

func (w *Worker) Name() string {
	return "package-refresh"
}

func (w *Worker) Start() error {
	// Nightly at 03:00, when no operator is importing.
	_, err := w.cron.AddFunc("0 3 * * *", func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("Panic in package refresh worker", "panic", r)
			}
		}()
		ctx := context.Background()
		if err := w.run(ctx); err != nil {
			w.logger.Error("Package refresh worker failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule package refresh worker: %w", err)
	}

	w.cron.Start()
	return nil
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping package refresh worker")
	w.cron.Stop()
}

func (w *Worker) run(ctx context.Context) error {
	stored, err := w.store.ListCredentials(ctx)
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}

	for _, row := range stored {
		if err := w.refreshDeployment(ctx, row); err != nil {
			w.logger.Error("Failed to refresh package catalog",
				"panel", row.Panel,
				"domain", row.Domain,
				"user_id", row.UserID,
				"error", err)
			continue
		}
	}

	return nil
}

func (w *Worker) refreshDeployment(ctx context.Context, row *credentials.StoredCredentials) error {
	creds, err := w.source.Get(ctx, row.UserID, row.Panel, row.Domain)
	if err != nil {
		return fmt.Errorf("get credentials: %w", err)
	}

	adapter, err := w.adapters.Adapter(panels.AdapterSpec{
		Panel:       row.Panel,
		Domain:      row.Domain,
		Credentials: *creds,
	})
	if err != nil {
		return fmt.Errorf("build adapter: %w", err)
	}

	session, err := adapter.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	pkgs, err := adapter.ListPackages(ctx, session)
	if err != nil {
		return fmt.Errorf("list packages: %w", err)
	}

	if err := w.importer.ImportPackages(ctx, pkgs); err != nil {
		return fmt.Errorf("import packages: %w", err)
	}

	w.logger.Info("Refreshed package catalog",
		"panel", row.Panel,
		"domain", row.Domain,
		"count", len(pkgs))

	return nil
}
