package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDuplicateSubmission = errors.New("assignment already submitted")
	ErrConflict            = errors.New("record was modified by someone else")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)
