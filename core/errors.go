package core

import (
	"fmt"
	"strings"
)

// maxReportedViolations bounds how many records an error message lists.
const maxReportedViolations = 10

// RecordViolation identifies one record that failed an integrity check.
type RecordViolation struct {
	KeywordID string `json:"keyword_id"`
	AdGroup   string `json:"ad_group,omitempty"`
	Reason    string `json:"reason"`
}

func (v RecordViolation) String() string {
	if v.AdGroup == "" {
		return fmt.Sprintf("%s: %s", v.KeywordID, v.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", v.KeywordID, v.AdGroup, v.Reason)
}

// JoinIntegrityError is returned when joined records are missing ARS, carry a
// malformed year, or keys are not unique.
type JoinIntegrityError struct {
	Violations []RecordViolation
}

func (e *JoinIntegrityError) Error() string {
	return "join integrity check failed: " + summarizeViolations(e.Violations)
}

// BidRangeError is returned when a final bid falls outside [0, cap].
type BidRangeError struct {
	Cap        float64
	Violations []RecordViolation
}

func (e *BidRangeError) Error() string {
	return fmt.Sprintf("output integrity check failed (bids must be within [0, %.2f]): %s",
		e.Cap, summarizeViolations(e.Violations))
}

func summarizeViolations(violations []RecordViolation) string {
	parts := make([]string, 0, maxReportedViolations)
	for i, v := range violations {
		if i == maxReportedViolations {
			parts = append(parts, fmt.Sprintf("and %d more", len(violations)-maxReportedViolations))
			break
		}
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%d record(s): %s", len(violations), strings.Join(parts, "; "))
}
