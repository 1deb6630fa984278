package errors

import "errors"

var (
	ErrMappingNotFound = errors.New("ota mapping not found")

	ErrMappingExists = errors.New("ota mapping already exists")

	ErrUnknownSource = errors.New("unknown ota source")

	ErrBadSignature = errors.New("webhook signature verification failed")

	ErrMissingIdentity = errors.New("source and external_id are required")
)
