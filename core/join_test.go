package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func baseTables() ReferenceTables {
	return ReferenceTables{
		Attributes: []KeywordAttributes{
			keyword("kw1", "ag1", MatchExact),
			keyword("kw2", "ag1", MatchBroad),
		},
		Performance: []KeywordPerformance{
			performance("kw1", 100, 5),
		},
		ARS: []ModelARS{
			{Make: "Toyota", Model: "Camry", ARS: 250},
			{Make: "Honda", Model: "Civic", ARS: 180},
		},
		CurrentInventory: []InventoryLevel{
			{Make: "Toyota", Model: "Camry", Year: "2019", Count: 40},
		},
		HistoricalInventory: []InventoryLevel{
			{Make: "Toyota", Model: "Camry", Year: "2019", Count: 80},
			{Make: "Toyota", Model: "Camry", Year: "2020", Count: 10},
		},
	}
}

func TestJoinReferenceTables(t *testing.T) {
	records, err := JoinReferenceTables(baseTables())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))

	kw1 := records[0]
	check.Equal(t, "kw1", kw1.KeywordID)
	check.True(t, kw1.HasPerformance)
	check.Equal(t, 100.0, kw1.Clicks)
	check.Equal(t, 5.0, kw1.Conversions)
	check.Equal(t, 250.0, kw1.ARS)
	assert.NotNil(t, kw1.CurrentInventory)
	assert.NotNil(t, kw1.HistoricalAvgInventory)
	check.Equal(t, 40.0, *kw1.CurrentInventory)
	check.Equal(t, 80.0, *kw1.HistoricalAvgInventory)

	// Left join: no performance row keeps the keyword with zero counters
	kw2 := records[1]
	check.Equal(t, "kw2", kw2.KeywordID)
	check.False(t, kw2.HasPerformance)
	check.Equal(t, 0.0, kw2.Clicks)
	check.Equal(t, 0.0, kw2.Conversions)
	check.Equal(t, 250.0, kw2.ARS)
}

func TestJoinReferenceTables_MissingInventoryIsNotAnError(t *testing.T) {
	tables := baseTables()
	tables.CurrentInventory = nil
	tables.HistoricalInventory = nil

	records, err := JoinReferenceTables(tables)
	assert.NoError(t, err)
	for _, record := range records {
		check.Nil(t, record.CurrentInventory)
		check.Nil(t, record.HistoricalAvgInventory)
	}
}

func TestJoinReferenceTables_IntegrityFailures(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*ReferenceTables)
		violations int
		reason     string
	}{
		{
			name: "missing ARS",
			mutate: func(tables *ReferenceTables) {
				tables.ARS = tables.ARS[1:]
			},
			violations: 2,
			reason:     "no ARS for Toyota/Camry",
		},
		{
			name: "three digit year",
			mutate: func(tables *ReferenceTables) {
				tables.Attributes[1].Year = "201"
			},
			violations: 1,
			reason:     `year "201" is not four digits`,
		},
		{
			name: "non numeric year",
			mutate: func(tables *ReferenceTables) {
				tables.Attributes[0].Year = "20AB"
			},
			violations: 1,
			reason:     `year "20AB" is not four digits`,
		},
		{
			name: "duplicate keyword id",
			mutate: func(tables *ReferenceTables) {
				tables.Attributes = append(tables.Attributes, keyword("kw1", "ag2", MatchPhrase))
			},
			violations: 1,
			reason:     "duplicate keyword id",
		},
		{
			name: "duplicate performance row",
			mutate: func(tables *ReferenceTables) {
				tables.Performance = append(tables.Performance, performance("kw1", 1, 1))
			},
			violations: 1,
			reason:     "duplicate keyword id in performance table",
		},
		{
			name: "duplicate inventory row",
			mutate: func(tables *ReferenceTables) {
				tables.CurrentInventory = append(tables.CurrentInventory, tables.CurrentInventory[0])
			},
			violations: 1,
			reason:     "duplicate current inventory row for Toyota/Camry/2019",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := baseTables()
			tt.mutate(&tables)

			records, err := JoinReferenceTables(tables)
			check.Nil(t, records)
			assert.Error(t, err)

			var joinErr *JoinIntegrityError
			assert.True(t, errors.As(err, &joinErr))
			check.Equal(t, tt.violations, len(joinErr.Violations))
			check.Equal(t, tt.reason, joinErr.Violations[0].Reason)
			check.True(t, strings.Contains(err.Error(), tt.reason))
		})
	}
}

func TestJoinIntegrityError_TruncatesLongLists(t *testing.T) {
	violations := make([]RecordViolation, 0, 15)
	for i := 0; i < 15; i++ {
		violations = append(violations, RecordViolation{KeywordID: "kw", Reason: "no ARS"})
	}
	err := &JoinIntegrityError{Violations: violations}

	check.True(t, strings.Contains(err.Error(), "15 record(s)"))
	check.True(t, strings.Contains(err.Error(), "and 5 more"))
}
