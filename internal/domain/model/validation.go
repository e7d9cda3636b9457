package model

import (
	"errors"
	"fmt"
)

// ValidationError describes the first record or setting that failed
// validation. Index is the position of the offending record in its document,
// or -1 when the failure is not tied to a record.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}
	return fmt.Sprintf("account %d: %s", e.Index, e.Reason)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// ValidateAccounts checks every record and returns the first failure with its
// index filled in.
func ValidateAccounts(accounts []Credential) error {
	for i, c := range accounts {
		if err := c.Validate(); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				verr.Index = i
				return verr
			}
			return err
		}
	}
	return nil
}
