package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/cloudx-io/kwbidder/core"
)

// Column headers of the source spreadsheets.
const (
	ColCampaign            = "Campaign"
	ColAdGroup             = "Ad group"
	ColKeyword             = "Keyword"
	ColKeywordID           = "KW ID"
	ColMatchType           = "Match type"
	ColQualityScore        = "Quality score"
	ColEstFirstPositionBid = "Est First Pos. Bid"
	ColEstTopOfPageBid     = "Est Top of Page Bid"
	ColImpressions         = "Impressions"
	ColClicks              = "Clicks"
	ColCost                = "Cost"
	ColConversions         = "Conversions"
	ColMake                = "Make"
	ColModel               = "Model"
	ColYear                = "Year"
	ColARS                 = "ARS"
	ColCurrentInventory    = "CurrentOnsiteInventory"
	ColHistoricalInventory = "HistAvgInv"
)

const maxReportedProblems = 10

// missingValues are the cell contents read as missing.
var missingValues = []string{"", "NA", "NaN", "#N/A"}

// LoadError lists every problem found in one input table.
type LoadError struct {
	Source   string
	Problems []string
}

func (e *LoadError) Error() string {
	problems := e.Problems
	suffix := ""
	if len(problems) > maxReportedProblems {
		suffix = fmt.Sprintf("; and %d more", len(problems)-maxReportedProblems)
		problems = problems[:maxReportedProblems]
	}
	return fmt.Sprintf("%s: %s%s", e.Source, strings.Join(problems, "; "), suffix)
}

// table wraps a dataframe read with every column as text.
type table struct {
	source   string
	df       dataframe.DataFrame
	problems []string
}

func readTable(r io.Reader, source string, columns ...string) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		// gota refuses a header without data rows; that is an empty table, not an error
		header, ok := headerOnly(data)
		if !ok {
			return nil, &LoadError{Source: source, Problems: []string{df.Err.Error()}}
		}
		df = emptyFrame(header)
		if df.Err != nil {
			return nil, &LoadError{Source: source, Problems: []string{df.Err.Error()}}
		}
	}

	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	var missing []string
	for _, column := range columns {
		if !present[column] {
			missing = append(missing, fmt.Sprintf("%q", column))
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Source: source, Problems: []string{"missing columns " + strings.Join(missing, ", ")}}
	}

	return &table{source: source, df: df}, nil
}

// headerOnly returns the header of a CSV file that has no data rows.
func headerOnly(data []byte) ([]string, bool) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(records) != 1 {
		return nil, false
	}
	return records[0], true
}

// emptyFrame builds a zero-row text dataframe with the given columns.
func emptyFrame(header []string) dataframe.DataFrame {
	columns := make([]series.Series, len(header))
	for i, name := range header {
		columns[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(columns...)
}

func (t *table) rows() int {
	return t.df.Nrow()
}

// fileRow converts a zero-based data index to the line number in the file.
func fileRow(i int) int {
	return i + 2
}

func (t *table) addProblem(i int, column, format string, args ...any) {
	t.problems = append(t.problems, fmt.Sprintf("row %d column %q: %s", fileRow(i), column, fmt.Sprintf(format, args...)))
}

func (t *table) err() error {
	if len(t.problems) == 0 {
		return nil
	}
	return &LoadError{Source: t.source, Problems: t.problems}
}

// text returns the trimmed cell values of a column, with missing cells as "".
func (t *table) text(column string) []string {
	col := t.df.Col(column)
	values := col.Records()
	for i := range values {
		if col.Elem(i).IsNA() {
			values[i] = ""
			continue
		}
		values[i] = strings.TrimSpace(values[i])
	}
	return values
}

// requiredText is text that records a problem for every blank cell.
func (t *table) requiredText(column string) []string {
	values := t.text(column)
	for i, v := range values {
		if v == "" {
			t.addProblem(i, column, "missing value")
		}
	}
	return values
}

// numbers parses a column as non-negative numbers. present reports which cells held a
// value; a blank cell is a problem only when the column is required.
func (t *table) numbers(column string, required bool) (values []float64, present []bool) {
	col := t.df.Col(column)
	values = col.Float()
	raw := col.Records()
	present = make([]bool, len(values))

	for i := range values {
		if col.Elem(i).IsNA() {
			if required {
				t.addProblem(i, column, "missing value")
			}
			values[i] = 0
			continue
		}
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			t.addProblem(i, column, "%q is not a number", raw[i])
			values[i] = 0
			continue
		}
		if values[i] < 0 {
			t.addProblem(i, column, "%v must be non-negative", values[i])
			values[i] = 0
			continue
		}
		present[i] = true
	}
	return values, present
}

// ReadKeywordAttributes reads the keyword attribute table and extracts market, make,
// model and year from each ad group name.
func ReadKeywordAttributes(r io.Reader, source string) ([]core.KeywordAttributes, error) {
	t, err := readTable(r, source,
		ColCampaign, ColAdGroup, ColKeywordID, ColMatchType,
		ColQualityScore, ColEstFirstPositionBid, ColEstTopOfPageBid)
	if err != nil {
		return nil, err
	}

	ids := t.requiredText(ColKeywordID)
	adGroups := t.requiredText(ColAdGroup)
	campaigns := t.text(ColCampaign)
	matchTypes := t.requiredText(ColMatchType)
	qualityScores, _ := t.numbers(ColQualityScore, true)
	firstPos, _ := t.numbers(ColEstFirstPositionBid, true)
	topOfPage, _ := t.numbers(ColEstTopOfPageBid, true)

	var keywords []string
	if t.hasColumn(ColKeyword) {
		keywords = t.text(ColKeyword)
	}

	attributes := make([]core.KeywordAttributes, 0, t.rows())
	for i := 0; i < t.rows(); i++ {
		matchType, err := core.ParseMatchType(matchTypes[i])
		if err != nil && matchTypes[i] != "" {
			t.addProblem(i, ColMatchType, "%v", err)
		}
		if qualityScores[i] != math.Trunc(qualityScores[i]) {
			t.addProblem(i, ColQualityScore, "%v is not an integer", qualityScores[i])
		}

		var dims AdGroupAttributes
		if adGroups[i] != "" {
			dims, err = ExtractAdGroupAttributes(adGroups[i])
			if err != nil {
				t.addProblem(i, ColAdGroup, "%v", err)
			}
		}

		attr := core.KeywordAttributes{
			KeywordID:           ids[i],
			AdGroup:             adGroups[i],
			Campaign:            campaigns[i],
			MatchType:           matchType,
			QualityScore:        int(qualityScores[i]),
			EstFirstPositionBid: firstPos[i],
			EstTopOfPageBid:     topOfPage[i],
			Market:              dims.Market,
			Make:                dims.Make,
			Model:               dims.Model,
			Year:                dims.Year,
		}
		if keywords != nil {
			attr.Keyword = keywords[i]
		}
		attributes = append(attributes, attr)
	}

	if err := t.err(); err != nil {
		return nil, err
	}
	return attributes, nil
}

// ReadKeywordPerformance reads the keyword performance table. Blank counters are zero.
func ReadKeywordPerformance(r io.Reader, source string) ([]core.KeywordPerformance, error) {
	t, err := readTable(r, source, ColKeywordID, ColClicks, ColConversions)
	if err != nil {
		return nil, err
	}

	ids := t.requiredText(ColKeywordID)
	clicks, _ := t.numbers(ColClicks, false)
	conversions, _ := t.numbers(ColConversions, false)
	impressions := make([]float64, t.rows())
	cost := make([]float64, t.rows())
	if t.hasColumn(ColImpressions) {
		impressions, _ = t.numbers(ColImpressions, false)
	}
	if t.hasColumn(ColCost) {
		cost, _ = t.numbers(ColCost, false)
	}

	performance := make([]core.KeywordPerformance, t.rows())
	for i := range performance {
		performance[i] = core.KeywordPerformance{
			KeywordID:   ids[i],
			Impressions: impressions[i],
			Clicks:      clicks[i],
			Cost:        cost[i],
			Conversions: conversions[i],
		}
	}

	if err := t.err(); err != nil {
		return nil, err
	}
	return performance, nil
}

// ReadModelARS reads the make/model ARS table. Rows with a blank ARS are dropped so
// the keywords that need them fail the join integrity check.
func ReadModelARS(r io.Reader, source string) ([]core.ModelARS, error) {
	t, err := readTable(r, source, ColMake, ColModel, ColARS)
	if err != nil {
		return nil, err
	}

	makes := t.requiredText(ColMake)
	models := t.requiredText(ColModel)
	values, present := t.numbers(ColARS, false)

	ars := make([]core.ModelARS, 0, t.rows())
	for i := 0; i < t.rows(); i++ {
		if !present[i] {
			continue
		}
		ars = append(ars, core.ModelARS{Make: makes[i], Model: models[i], ARS: values[i]})
	}

	if err := t.err(); err != nil {
		return nil, err
	}
	return ars, nil
}

// ReadInventory reads a make/model/year inventory table whose count lives in
// countColumn. Rows with a blank count are dropped.
func ReadInventory(r io.Reader, source, countColumn string) ([]core.InventoryLevel, error) {
	t, err := readTable(r, source, ColMake, ColModel, ColYear, countColumn)
	if err != nil {
		return nil, err
	}

	makes := t.requiredText(ColMake)
	models := t.requiredText(ColModel)
	years := t.requiredText(ColYear)
	counts, present := t.numbers(countColumn, false)

	levels := make([]core.InventoryLevel, 0, t.rows())
	for i := 0; i < t.rows(); i++ {
		if !present[i] {
			continue
		}
		levels = append(levels, core.InventoryLevel{Make: makes[i], Model: models[i], Year: years[i], Count: counts[i]})
	}

	if err := t.err(); err != nil {
		return nil, err
	}
	return levels, nil
}

func (t *table) hasColumn(column string) bool {
	for _, name := range t.df.Names() {
		if name == column {
			return true
		}
	}
	return false
}
