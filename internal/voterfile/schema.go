package voterfile

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

type ColumnType int

const (
	ColumnTypeText ColumnType = iota
	ColumnTypeEmail
)

// Column declares one expected voter file column. Unique columns are checked
// across the whole batch, not per row.
type Column struct {
	Name   string
	Type   ColumnType
	Unique bool
}

type Schema []Column

// ValidateColumns checks every decoded row against the declared schema and
// returns the rows keyed by declared column name with trimmed values.
//
// A declared column missing from the header aborts the batch with a
// SchemaError. Value problems are collected across all rows and all columns
// before failing, so one ValidationError reports everything wrong with the
// file. Validation is atomic: any problem fails the whole batch.
func ValidateColumns(table *Table, schema Schema) ([]Row, error) {
	if err := checkHeader(table.Header, schema); err != nil {
		return nil, err
	}

	var problems []string
	seen := make(map[string]map[string]int, len(schema))
	for _, column := range schema {
		if column.Unique {
			seen[column.Name] = make(map[string]int)
		}
	}

	validated := make([]Row, 0, len(table.Rows))
	for i, row := range table.Rows {
		// Row numbers count the header, matching what an operator sees
		// in a spreadsheet.
		rowNumber := i + 2

		out := make(Row, len(schema))
		for _, column := range schema {
			value := strings.TrimSpace(row[column.Name])

			switch {
			case value == "":
				problems = append(problems,
					fmt.Sprintf("row %d: missing value for column %q", rowNumber, column.Name))
			case column.Type == ColumnTypeEmail && !isEmailAddress(value):
				problems = append(problems,
					fmt.Sprintf("row %d: %q is not a valid email address (column %q)", rowNumber, value, column.Name))
			}

			if column.Unique && value != "" {
				seen[column.Name][value]++
			}
			out[column.Name] = value
		}
		validated = append(validated, out)
	}

	problems = append(problems, duplicateProblems(schema, seen)...)

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return validated, nil
}

func checkHeader(header []string, schema Schema) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string
	for _, column := range schema {
		if !present[column.Name] {
			missing = append(missing, column.Name)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{MissingColumns: missing}
	}
	return nil
}

func duplicateProblems(schema Schema, seen map[string]map[string]int) []string {
	var problems []string
	for _, column := range schema {
		if !column.Unique {
			continue
		}

		var duplicates []string
		for value, count := range seen[column.Name] {
			if count > 1 {
				duplicates = append(duplicates, value)
			}
		}
		if len(duplicates) > 0 {
			sort.Strings(duplicates)
			problems = append(problems,
				fmt.Sprintf("column %q contains duplicate values: %s", column.Name, strings.Join(duplicates, ", ")))
		}
	}
	return problems
}

// isEmailAddress accepts only a bare address, not the display-name forms
// net/mail would otherwise allow.
func isEmailAddress(value string) bool {
	parsed, err := mail.ParseAddress(value)
	return err == nil && parsed.Address == value
}
