package environment

import (
	"context"
	"log/slog"

	"revenda-crm/internal/config"
	"revenda-crm/internal/panels"
	"revenda-crm/internal/storage"
	"revenda-crm/internal/stories/clients"
	"revenda-crm/internal/stories/credentials"
	"revenda-crm/internal/stories/packages"
	"revenda-crm/internal/stories/plans"
	"revenda-crm/internal/stories/renewal"
	"revenda-crm/internal/webhook"
	"revenda-crm/internal/workers"
	"revenda-crm/internal/workers/packagerefresh"
	"revenda-crm/internal/workers/renewalqueue"
)

type Services struct {
	Plans       *plans.Service
	Clients     *clients.Service
	Credentials *credentials.Service
	Renewal     *renewal.Service
	Dispatcher  *renewal.Dispatcher
	Packages    *packages.Service
	Adapters    *panels.Factory
	Workers     *workers.Manager
}

func newServices(_ context.Context, c *Clients, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	var s Services

	storageImpl := storage.New(c.SQLiteDB.DB)

	s.Plans = plans.NewService(storageImpl)
	s.Clients = clients.NewService(storageImpl)
	s.Credentials = credentials.NewService(storageImpl)
	s.Renewal = renewal.NewService(storageImpl)
	s.Packages = packages.NewService(storageImpl, storageImpl, logger)

	s.Adapters = panels.NewFactory(c.AntiCaptcha, c.Rotator, cfg.Panels, logger)

	notifier := webhook.NewNotifier(cfg.Webhook, logger)

	// A nil telegram client must stay a nil interface, or the dispatcher's
	// nil check passes and the call panics.
	var alerter renewal.Alerter
	if c.Telegram != nil {
		alerter = c.Telegram
	}

	s.Dispatcher = renewal.NewDispatcher(
		s.Adapters,
		s.Credentials,
		s.Clients,
		notifier,
		alerter,
		logger,
	)

	queueWorker := renewalqueue.NewWorker(
		s.Renewal,
		s.Dispatcher,
		storageImpl,
		logger.With("worker", "renewal-queue"),
	)
	refreshWorker := packagerefresh.NewWorker(
		storageImpl,
		s.Credentials,
		s.Adapters,
		s.Packages,
		logger.With("worker", "package-refresh"),
	)
	s.Workers = workers.NewManager(logger, queueWorker, refreshWorker)

	return &s, nil
}
