package voterfile

import (
	"fmt"

	"server/internal/models"
)

// ValidateAgainstDefinition checks every record against the election's
// precinct/ballot-style definition: the precinct must exist, the ballot
// style must exist, and the ballot style must be assigned to the precinct.
//
// Each record contributes its first failing invariant; problems for all
// records are aggregated into a single ValidationError so the whole file
// can be corrected at once. Callers must not persist anything when an error
// is returned.
func ValidateAgainstDefinition(records []VoterRecord, definition *models.ElectionDefinition) error {
	var problems []string
	for _, record := range records {
		if problem := validateRecordDefinition(record, definition); problem != "" {
			problems = append(problems, problem)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateRecordDefinition(record VoterRecord, definition *models.ElectionDefinition) string {
	if !definition.HasPrecinct(record.Precinct) {
		return fmt.Sprintf("voter %s: precinct %q is not in the election definition",
			record.Email, record.Precinct)
	}

	style, ok := definition.GetBallotStyle(record.BallotStyle)
	if !ok {
		return fmt.Sprintf("voter %s: ballot style %q is not in the election definition",
			record.Email, record.BallotStyle)
	}

	if !style.HasPrecinct(record.Precinct) {
		return fmt.Sprintf("voter %s: ballot style %q is not assigned to precinct %q",
			record.Email, record.BallotStyle, record.Precinct)
	}

	return ""
}
