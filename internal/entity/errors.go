package entity

import "errors"

var (
	// ErrDuplicateLead signals a re-import of an email we already hold.
	// Callers treat it as "already present", not as a failure.
	ErrDuplicateLead = errors.New("lead já existe para este email")

	// ErrLeadNotFound signals a lookup on an unknown lead.
	ErrLeadNotFound = errors.New("lead não encontrado")

	// ErrLeadConflict signals that a guarded write found the lead in a
	// different state than expected (concurrent run touched it first).
	ErrLeadConflict = errors.New("lead mudou de estado durante a escrita")
)
