package clients

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/samber/lo"
)

// Service provides the narrow slice of client operations the renewal core
// needs. Full client CRUD belongs to the billing collaborator.
type Service struct {
	storage Storage
	now     func() time.Time
}

func NewService(storage Storage) *Service {
	return &Service{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, clientID int64) (*Client, error) {
	return s.storage.GetClient(ctx, GetCriteria{ID: &clientID})
}

// LinkExternalCustomer records the panel-side identity of a client.
func (s *Service) LinkExternalCustomer(ctx context.Context, clientID int64, externalCustomerID string) (*Client, error) {
	if externalCustomerID == "" {
		return nil, errors.New("external customer id must not be empty")
	}

	return s.storage.UpdateClient(ctx, GetCriteria{ID: &clientID}, UpdateParams{
		ExternalCustomerID: &externalCustomerID,
	})
}

// StampRenewal records a successful panel renewal: new due date and the
// panel's receipt note. Called only after the panel confirmed; never rolls
// anything back.
func (s *Service) StampRenewal(ctx context.Context, clientID int64, newDue time.Time, note string) (*Client, error) {
	return s.storage.UpdateClient(ctx, GetCriteria{ID: &clientID}, UpdateParams{
		DueDate:         &newDue,
		LastRenewedAt:   lo.ToPtr(s.now()),
		LastRenewalNote: &note,
	})
}
