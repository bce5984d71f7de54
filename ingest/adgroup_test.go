package ingest

import (
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestExtractAdGroupAttributes(t *testing.T) {
	attrs, err := ExtractAdGroupAttributes("SRCH-I-DAL-MK_Toyota-MO_Camry-YR_19")
	assert.NoError(t, err)
	check.Equal(t, AdGroupAttributes{Market: "DAL", Make: "Toyota", Model: "Camry", Year: "2019"}, attrs)

	// Multi-word make and model values stop at the next dash
	attrs, err = ExtractAdGroupAttributes("SRCH-I-HOU-MK_Land Rover-MO_Range Rover Sport-YR_21")
	assert.NoError(t, err)
	check.Equal(t, AdGroupAttributes{Market: "HOU", Make: "Land Rover", Model: "Range Rover Sport", Year: "2021"}, attrs)
}

func TestExtractAdGroupAttributes_Errors(t *testing.T) {
	tests := []struct {
		name    string
		adGroup string
		message string
	}{
		{"no market", "SRCH-MK_Toyota-MO_Camry-YR_19", "missing [market]"},
		{"no make or model", "SRCH-I-DAL-YR_19", "missing [make model]"},
		{"no year", "SRCH-I-DAL-MK_Toyota-MO_Camry-", "missing [year]"},
		{"three digit year", "SRCH-I-DAL-MK_Toyota-MO_Camry-YR_019", `year "20019" is not four digits`},
		{"non numeric year", "SRCH-I-DAL-MK_Toyota-MO_Camry-YR_XX", `year "20XX" is not four digits`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractAdGroupAttributes(tt.adGroup)
			assert.Error(t, err)
			check.True(t, strings.Contains(err.Error(), tt.message))
		})
	}
}
