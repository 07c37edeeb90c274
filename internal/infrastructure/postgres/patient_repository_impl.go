package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/medrecords-users/internal/domain/entity"
	"github.com/oksasatya/medrecords-users/internal/domain/repository"
)

type PatientRepository struct {
	uow *UnitOfWork
}

func NewPatientRepository(uow *UnitOfWork) *PatientRepository {
	return &PatientRepository{uow: uow}
}

func (r *PatientRepository) FindPatient(ctx context.Context, familyNamePattern string) ([]entity.PatientMatch, error) {
	matches := make([]entity.PatientMatch, 0)
	err := r.uow.InReadTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT p.patient_id, p.gender, p.birthdate, p.voided,
				pn.patient_name_id, pn.given_name, pn.middle_name, pn.family_name, pn.preferred
			FROM patient p
			JOIN patient_name pn ON p.patient_id = pn.patient_id
			WHERE pn.family_name LIKE $1
		`, familyNamePattern)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var m entity.PatientMatch
			if err := rows.Scan(&m.Patient.ID, &m.Patient.Gender, &m.Patient.Birthdate, &m.Patient.Voided,
				&m.Name.ID, &m.Name.GivenName, &m.Name.MiddleName, &m.Name.FamilyName, &m.Name.Preferred); err != nil {
				return err
			}
			m.Name.PatientID = m.Patient.ID
			matches = append(matches, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

var _ repository.PatientRepository = (*PatientRepository)(nil)
