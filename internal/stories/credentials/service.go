package credentials

import (
	"context"
	"encoding/base64"

	"github.com/go-faster/errors"

	"revenda-crm/internal/panels"
)

// ErrNotFound means no credentials are stored for the requested panel.
var ErrNotFound = errors.New("credentials not found")

// Service resolves panel credentials for a reseller account.
type Service struct {
	storage Storage
}

func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// Get returns decoded credentials for the given user and panel deployment.
func (s *Service) Get(ctx context.Context, userID int64, panel panels.Panel, domain string) (*panels.Credentials, error) {
	stored, err := s.storage.GetCredentials(ctx, GetCriteria{
		UserID: userID,
		Panel:  panel,
		Domain: domain,
	})
	if err != nil {
		return nil, errors.Wrap(err, "get credentials")
	}
	if stored == nil {
		return nil, ErrNotFound
	}

	password, err := decodePassword(stored.Password)
	if err != nil {
		return nil, errors.Wrap(err, "decode stored password")
	}

	return &panels.Credentials{
		Username: stored.Username,
		Password: password,
	}, nil
}

// Save stores credentials with the password base64-encoded at rest.
func (s *Service) Save(ctx context.Context, creds StoredCredentials) error {
	creds.Password = encodePassword(creds.Password)
	_, err := s.storage.UpsertCredentials(ctx, creds)
	return err
}

// Base64 is an encoding, not encryption: anyone who can read the table can
// read the passwords. Kept as-is because the production rows are already in
// this format and the panels need the plaintext back on every login; an
// upgrade to real encryption requires a data migration.
func encodePassword(plain string) string {
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

func decodePassword(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
