// Package voterfile parses, validates, and reconciles uploaded voter rolls.
//
// An upload moves through three fixed phases: decode (bytes to rows),
// validate (pure, no I/O), and reconcile (a diff against the stored roll
// that the caller applies in one transaction). The phases are exposed
// separately so the first two can be exercised without a database.
package voterfile

import (
	"fmt"
	"strings"
)

// DecodeError reports a byte stream that could not be decoded as delimited
// text, including a stream with no header row.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode voter file: %s", e.Reason)
}

// SchemaError reports declared columns missing from the file header. It is
// fatal to the whole batch.
type SchemaError struct {
	MissingColumns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("voter file is missing required columns: %s", strings.Join(e.MissingColumns, ", "))
}

// ValidationError aggregates every value-level and definition-mismatch
// problem found in a batch, so a bad source file can be fixed in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("voter file is invalid: %s", strings.Join(e.Problems, "; "))
}

// DuplicateEmailError reports emails that appear on more than one record
// within a single upload. Each duplicated email is listed exactly once.
type DuplicateEmailError struct {
	Emails []string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("voter file contains duplicate emails: %s", strings.Join(e.Emails, ", "))
}

// ParseError reports a structurally malformed XML voter file, naming the
// offending voter element and field where one can be identified.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse voter file: %s", e.Reason)
}
