package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/cloudx-io/kwbidder/core"
)

// Paths locates the five reference tables on disk.
type Paths struct {
	KeywordAttributes   string
	KeywordPerformance  string
	MakeModelARS        string
	InventoryCurrent    string
	InventoryHistorical string
}

// LoadReferenceTables reads all reference tables concurrently and returns them once
// every file has been parsed. The first failure cancels the remaining reads.
func LoadReferenceTables(ctx context.Context, paths Paths) (core.ReferenceTables, error) {
	var tables core.ReferenceTables
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return readFile(ctx, paths.KeywordAttributes, func(r io.Reader) (err error) {
			tables.Attributes, err = ReadKeywordAttributes(r, paths.KeywordAttributes)
			return err
		})
	})
	g.Go(func() error {
		return readFile(ctx, paths.KeywordPerformance, func(r io.Reader) (err error) {
			tables.Performance, err = ReadKeywordPerformance(r, paths.KeywordPerformance)
			return err
		})
	})
	g.Go(func() error {
		return readFile(ctx, paths.MakeModelARS, func(r io.Reader) (err error) {
			tables.ARS, err = ReadModelARS(r, paths.MakeModelARS)
			return err
		})
	})
	g.Go(func() error {
		return readFile(ctx, paths.InventoryCurrent, func(r io.Reader) (err error) {
			tables.CurrentInventory, err = ReadInventory(r, paths.InventoryCurrent, ColCurrentInventory)
			return err
		})
	})
	g.Go(func() error {
		return readFile(ctx, paths.InventoryHistorical, func(r io.Reader) (err error) {
			tables.HistoricalInventory, err = ReadInventory(r, paths.InventoryHistorical, ColHistoricalInventory)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		return core.ReferenceTables{}, err
	}
	return tables, nil
}

func readFile(ctx context.Context, path string, parse func(io.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("input path not configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return parse(f)
}
