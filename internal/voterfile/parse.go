package voterfile

import (
	"bytes"
	"fmt"
	"sort"
)

// Voter file column names for the CSV format.
const (
	ColumnExternalID  = "External ID"
	ColumnEmail       = "Email"
	ColumnPrecinct    = "Precinct"
	ColumnBallotStyle = "Ballot Style"
)

// CSVSchema declares the expected voter file columns. Email uniqueness is
// handled separately so both the CSV and XML paths report duplicates the
// same way.
var CSVSchema = Schema{
	{Name: ColumnExternalID, Type: ColumnTypeText, Unique: true},
	{Name: ColumnEmail, Type: ColumnTypeEmail},
	{Name: ColumnPrecinct, Type: ColumnTypeText},
	{Name: ColumnBallotStyle, Type: ColumnTypeText},
}

// VoterRecord is the canonical parsed unit both file formats produce.
type VoterRecord struct {
	ExternalID       string `json:"externalId"`
	Email            string `json:"email"`
	Precinct         string `json:"precinct"`
	BallotStyle      string `json:"ballotStyle"`
	WasManuallyAdded bool   `json:"-"`
}

// ParseCSV decodes and validates a CSV voter file and returns its records in
// source order.
func ParseCSV(data []byte, encodingName string) ([]VoterRecord, error) {
	table, err := DecodeTabular(bytes.NewReader(data), encodingName)
	if err != nil {
		return nil, err
	}

	rows, err := ValidateColumns(table, CSVSchema)
	if err != nil {
		return nil, err
	}

	records := make([]VoterRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, VoterRecord{
			ExternalID:  row[ColumnExternalID],
			Email:       row[ColumnEmail],
			Precinct:    row[ColumnPrecinct],
			BallotStyle: row[ColumnBallotStyle],
		})
	}

	if err := checkDuplicateEmails(records); err != nil {
		return nil, err
	}

	return records, nil
}

// ValidateRecord applies the voter file value checks to one record, for
// voters added outside a bulk upload. Values are expected already trimmed.
func ValidateRecord(record VoterRecord) error {
	var problems []string

	fields := []struct {
		column string
		value  string
	}{
		{ColumnExternalID, record.ExternalID},
		{ColumnEmail, record.Email},
		{ColumnPrecinct, record.Precinct},
		{ColumnBallotStyle, record.BallotStyle},
	}
	for _, field := range fields {
		if field.value == "" {
			problems = append(problems, fmt.Sprintf("missing value for %q", field.column))
		}
	}

	if record.Email != "" && !isEmailAddress(record.Email) {
		problems = append(problems, fmt.Sprintf("%q is not a valid email address", record.Email))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// checkDuplicateEmails rejects a batch containing two or more records with
// the same email. Emails are compared as exact strings; no case folding.
func checkDuplicateEmails(records []VoterRecord) error {
	counts := make(map[string]int, len(records))
	for _, record := range records {
		counts[record.Email]++
	}

	var duplicates []string
	for email, count := range counts {
		if count > 1 {
			duplicates = append(duplicates, email)
		}
	}

	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return &DuplicateEmailError{Emails: duplicates}
	}
	return nil
}
