package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the admin-controlled state of a registration.
type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusRejected  RegistrationStatus = "rejected"
)

// Valid reports whether s is one of the stored statuses.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

// Registration is a person's intent to attend one hackathon.
// Status is empty when the column is NULL; such records count as pending.
type Registration struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	Status      RegistrationStatus `json:"status,omitempty"`
	HackathonID uuid.UUID          `json:"hackathon_id"`
	CreatedAt   time.Time          `json:"created_at"`

	// HackathonTitle is joined in on reads for listings and exports.
	HackathonTitle string `json:"hackathon_title,omitempty"`
}

// EffectiveStatus returns the status with the NULL default applied.
func (r Registration) EffectiveStatus() RegistrationStatus {
	if r.Status == "" {
		return StatusPending
	}
	return r.Status
}
