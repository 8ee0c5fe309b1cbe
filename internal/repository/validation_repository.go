package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/ekklesia-certificates/internal/model"
)

// ValidationRepo appends to the `certificate_validations` audit table.
type ValidationRepo struct{ db *sql.DB }

func NewValidationRepo(db *sql.DB) *ValidationRepo { return &ValidationRepo{db: db} }

// Record stores one validation attempt.  An empty ID is filled with a new
// UUID.
func (r *ValidationRepo) Record(ctx context.Context, v *model.CertificateValidation) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO certificate_validations (id, certificate_id, is_valid, ip_address, user_agent, notes) VALUES (?,?,?,?,?,?)",
		v.ID, v.CertificateID, v.IsValid, v.IPAddress, v.UserAgent, v.Notes)
	if err != nil {
		return fmt.Errorf("record validation: %w", err)
	}
	return nil
}

// CountForCertificate returns how many validation attempts a certificate has.
func (r *ValidationRepo) CountForCertificate(ctx context.Context, certificateID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM certificate_validations WHERE certificate_id = ?", certificateID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count validations: %w", err)
	}
	return n, nil
}
