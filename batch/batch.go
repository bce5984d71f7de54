package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"

	"github.com/cloudx-io/kwbidder/bidapi"
	"github.com/cloudx-io/kwbidder/config"
	"github.com/cloudx-io/kwbidder/core"
	"github.com/cloudx-io/kwbidder/ingest"
	"github.com/cloudx-io/kwbidder/metrics"
	"github.com/cloudx-io/kwbidder/signing"
)

// Exit codes of the batch and validator commands.
const (
	ExitOK              = 0
	ExitValidationError = 1
	ExitRuntimeError    = 2
)

// Summary describes a completed run.
type Summary struct {
	RunID         string
	Result        *core.BiddingResult
	UploadFile    string
	ManifestFile  string
	PublicKeyFile string
	Duration      time.Duration
}

// Run executes one batch: load the reference tables, derive bids, write the upload file,
// sign its manifest and, when configured, write run metrics. Nothing is written when
// bid derivation fails.
func Run(ctx context.Context, cfg *config.Configuration) (*Summary, error) {
	start := time.Now()
	bidCfg := cfg.BiddingConfig()

	glog.Infof("Loading reference tables (attributes=%s performance=%s)", cfg.Inputs.KeywordAttributes, cfg.Inputs.KeywordPerformance)
	tables, err := ingest.LoadReferenceTables(ctx, cfg.InputPaths())
	if err != nil {
		return nil, fmt.Errorf("load reference tables: %w", err)
	}
	glog.Infof("Loaded %d keywords, %d performance rows, %d ARS rows, %d/%d inventory rows",
		len(tables.Attributes), len(tables.Performance), len(tables.ARS),
		len(tables.CurrentInventory), len(tables.HistoricalInventory))

	result, err := core.RunBidding(tables, bidCfg)
	if err != nil {
		glog.Errorf("Bid derivation failed: %v", err)
		return nil, err
	}
	if _, ok := result.OverallCVR.Get(); !ok {
		glog.Warningf("Overall CVR undefined (no clicks in performance table); market adjustment skipped")
	}
	params := core.RunParams{Config: bidCfg, OverallCVR: result.OverallCVR}
	if skipped := core.MarketAdjustmentsSkipped(result.Records, params); skipped > 0 {
		glog.Warningf("Market adjustment skipped for %d keyword(s) with undefined market CVR", skipped)
	}
	glog.Infof("Derived bids: %s", result.Summary())

	// Sign before writing so a signing failure leaves no unsigned upload behind
	rows := core.UploadRows(result.Bids, bidCfg.BidPrecision)
	km, err := keyManager(cfg.Output)
	if err != nil {
		return nil, err
	}
	manifest, err := signing.BuildManifest(result, bidCfg, rows, filepath.Base(cfg.Output.UploadFile), time.Now())
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}
	signed, err := signing.SignManifest(km, manifest)
	if err != nil {
		return nil, err
	}
	manifestData, err := signed.EncodeFile(cfg.Output.ManifestEncoding)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	if err := ingest.WriteUploadFileAtomic(cfg.Output.UploadFile, rows); err != nil {
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	glog.Infof("Wrote %d bids to %s", len(rows), cfg.Output.UploadFile)

	if err := os.WriteFile(cfg.Output.ManifestFile, manifestData, 0o644); err != nil {
		if rmErr := os.Remove(cfg.Output.UploadFile); rmErr != nil {
			glog.Errorf("Could not remove unsigned upload file %s: %v", cfg.Output.UploadFile, rmErr)
		}
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	glog.Infof("Wrote %s manifest %s (run_id=%s upload_hash=%s)", encodingName(cfg.Output.ManifestEncoding), cfg.Output.ManifestFile, manifest.RunID, manifest.UploadHash)

	if cfg.Output.PublicKey != "" {
		if err := writePublicKey(km, cfg.Output.PublicKey); err != nil {
			return nil, err
		}
	}

	summary := &Summary{
		RunID:         manifest.RunID,
		Result:        result,
		UploadFile:    cfg.Output.UploadFile,
		ManifestFile:  cfg.Output.ManifestFile,
		PublicKeyFile: cfg.Output.PublicKey,
		Duration:      time.Since(start),
	}

	if cfg.Output.MetricsTextfile != "" {
		m := metrics.NewRunMetrics()
		m.ObserveResult(result)
		m.ObserveDuration(summary.Duration)
		m.MarkSuccess(time.Now())
		if err := m.WriteTextfile(cfg.Output.MetricsTextfile); err != nil {
			return nil, err
		}
	}

	glog.Infof("Run %s finished in %v", summary.RunID, summary.Duration)
	return summary, nil
}

func encodingName(encoding string) string {
	if encoding == "" {
		return bidapi.EncodingRaw
	}
	return encoding
}

func keyManager(out config.Output) (*signing.KeyManager, error) {
	if out.SigningKey == "" {
		glog.Infof("No signing key configured; generating a key for this run")
		km, err := signing.NewKeyManager()
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		return km, nil
	}
	km, err := signing.LoadKeyManager(out.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	return km, nil
}

func writePublicKey(km *signing.KeyManager, path string) error {
	publicKeyPEM, err := km.PublicKeyPEM()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(publicKeyPEM), 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

// ExitCode maps a run error to the process exit code: data that fails a validation
// check exits 1, anything else 2.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		joinErr  *core.JoinIntegrityError
		rangeErr *core.BidRangeError
		loadErr  *ingest.LoadError
	)
	if errors.As(err, &joinErr) || errors.As(err, &rangeErr) || errors.As(err, &loadErr) {
		return ExitValidationError
	}
	return ExitRuntimeError
}
