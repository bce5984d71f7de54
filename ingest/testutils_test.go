package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	performanceCSV = "KW ID,Impressions,Clicks,Cost,Conversions\n1001,900,200,310,18\n1002,400,200,120,28\n"
	arsCSV         = "Make,Model,Make Model,ARS\nToyota,Camry,Toyota Camry,100\n"
	currentCSV     = "Make,Model,Year,CurrentOnsiteInventory\nToyota,Camry,2019,5\n"
	historicalCSV  = "Make,Model,Year,HistAvgInv\nToyota,Camry,2019,10\n"
)

// writeFixture writes content to name inside dir and returns the path.
func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// writeFixtureSet writes a complete, consistent set of reference tables.
func writeFixtureSet(t *testing.T, dir string) Paths {
	t.Helper()
	return Paths{
		KeywordAttributes:   writeFixture(t, dir, "KW_Attributes.csv", attributesCSV),
		KeywordPerformance:  writeFixture(t, dir, "KW_Performance_L120D.csv", performanceCSV),
		MakeModelARS:        writeFixture(t, dir, "Make_Model_ARS.csv", arsCSV),
		InventoryCurrent:    writeFixture(t, dir, "Inventory_Current_Onsite.csv", currentCSV),
		InventoryHistorical: writeFixture(t, dir, "Inventory_Historical.csv", historicalCSV),
	}
}
