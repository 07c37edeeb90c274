package entity

import "time"

type Patient struct {
	ID        int64
	Gender    string
	Birthdate *time.Time
	Voided    bool
}

type PatientName struct {
	ID         int64
	PatientID  int64
	GivenName  string
	MiddleName string
	FamilyName string
	Preferred  bool
}

// PatientMatch is one joined (patient, name) row returned by a family-name search.
type PatientMatch struct {
	Patient Patient
	Name    PatientName
}
