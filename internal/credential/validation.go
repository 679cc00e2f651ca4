package credential

import (
	"strings"
	"time"
)

// TimestampLayout is the wire format for all timestamps: ISO-8601 with
// millisecond precision in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ValidationError is a client input failure. It carries one message per
// failed check and surfaces as a 400 with the messages concatenated.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, ", ")
}

// IsValidTimestamp reports whether ts is an ISO-8601 timestamp that
// round-trips through parse and format unchanged.
func IsValidTimestamp(ts string) bool {
	parsed, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		return false
	}
	return parsed.UTC().Format(TimestampLayout) == ts
}

// Validate checks the credential's shape: the identifying fields must be
// non-empty strings, data must be an object, and dates must round-trip
// through the timestamp layout. A nil return means the credential is valid.
func (c Credential) Validate() error {
	var errs []string
	if c.ID == "" {
		errs = append(errs, "Credential ID is required and must be a string")
	}
	if c.HolderName == "" {
		errs = append(errs, "Holder name is required and must be a string")
	}
	if c.CredentialType == "" {
		errs = append(errs, "Credential type is required and must be a string")
	}
	if c.IssueDate == "" {
		errs = append(errs, "Issue date is required and must be a string")
	}
	if c.IssuerName == "" {
		errs = append(errs, "Issuer name is required and must be a string")
	}
	if c.Data == nil {
		errs = append(errs, "Credential data is required and must be an object")
	}
	if c.IssueDate != "" && !IsValidTimestamp(c.IssueDate) {
		errs = append(errs, "Issue date must be in ISO format (YYYY-MM-DDTHH:mm:ss.sssZ)")
	}
	if c.ExpiryDate != "" && !IsValidTimestamp(c.ExpiryDate) {
		errs = append(errs, "Expiry date must be in ISO format (YYYY-MM-DDTHH:mm:ss.sssZ)")
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
