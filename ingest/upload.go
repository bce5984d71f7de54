package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/cloudx-io/kwbidder/core"
)

// Bid upload file headers.
const (
	ColUploadKeywordID = "Keyword ID"
	ColUploadBid       = "Bid"
)

// WriteUploadFile writes the two-column bid upload CSV.
func WriteUploadFile(w io.Writer, rows []core.UploadRow) error {
	ids := make([]string, len(rows))
	bids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.KeywordID
		bids[i] = row.Bid
	}

	df := dataframe.New(
		series.New(ids, series.String, ColUploadKeywordID),
		series.New(bids, series.String, ColUploadBid),
	)
	if df.Err != nil {
		return fmt.Errorf("build upload frame: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write upload file: %w", err)
	}
	return nil
}

// WriteUploadFileAtomic writes the upload file to a temporary sibling and renames it
// into place, so a failed run never leaves a partial upload behind.
func WriteUploadFileAtomic(path string, rows []core.UploadRow) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp upload file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = WriteUploadFile(tmp, rows); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp upload file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename upload file: %w", err)
	}
	return nil
}

// ReadUploadFile reads a bid upload CSV back into rows, keeping bids as written.
func ReadUploadFile(r io.Reader, source string) ([]core.UploadRow, error) {
	t, err := readTable(r, source, ColUploadKeywordID, ColUploadBid)
	if err != nil {
		return nil, err
	}

	ids := t.requiredText(ColUploadKeywordID)
	bids := t.requiredText(ColUploadBid)
	if err := t.err(); err != nil {
		return nil, err
	}

	rows := make([]core.UploadRow, len(ids))
	for i := range ids {
		rows[i] = core.UploadRow{KeywordID: ids[i], Bid: bids[i]}
	}
	return rows, nil
}
