// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap gives errors.Is access to the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// FromLedger maps the error kinds returned by the ledger to a trusted error
// with the matching status. Any other error is returned unchanged.
func FromLedger(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return NewTrusted(err, http.StatusNotFound)

	case errors.Is(err, database.ErrInvalidTransaction),
		errors.Is(err, database.ErrInvalidTransactionInput),
		errors.Is(err, database.ErrInvalidBlock),
		errors.Is(err, database.ErrInvalidMerkleRoot),
		errors.Is(err, database.ErrData),
		errors.Is(err, network.ErrMessage):
		return NewTrusted(err, http.StatusBadRequest)
	}

	return err
}
