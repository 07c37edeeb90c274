package repository

import (
	"context"

	"github.com/oksasatya/medrecords-users/internal/domain/entity"
)

// PatientRepository holds the patient queries the user registry exposes.
type PatientRepository interface {
	// FindPatient matches family names with SQL LIKE; the caller supplies the wildcards.
	FindPatient(ctx context.Context, familyNamePattern string) ([]entity.PatientMatch, error)
}
