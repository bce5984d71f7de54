package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/cloudx-io/kwbidder/bidapi"
	"github.com/cloudx-io/kwbidder/config"
	"github.com/cloudx-io/kwbidder/core"
	"github.com/cloudx-io/kwbidder/ingest"
	"github.com/cloudx-io/kwbidder/validation"
)

func main() {
	// Define CLI flags
	var (
		manifestPath  = flag.String("manifest", "", "Signed manifest file (raw, base64 or gzip encoded)")
		publicKeyPath = flag.String("public-key", "", "PEM-encoded public key of the signer")
		uploadPath    = flag.String("upload", "", "Bid upload CSV file the manifest describes")
		expectConfig  = flag.String("expect-config", "", "kw-bidder config file whose bidding section the run must have used")
		outputFormat  = flag.String("format", "text", "Output format: text or json")
		help          = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *manifestPath == "" || *publicKeyPath == "" || *uploadPath == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: All three inputs are required (--manifest, --public-key, --upload)\n")
		os.Exit(1)
	}

	manifest, err := readManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading manifest: %v\n", err)
		os.Exit(2)
	}

	publicKeyPEM, err := os.ReadFile(*publicKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	rows, err := readUpload(*uploadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading upload file: %v\n", err)
		os.Exit(2)
	}

	input := &validation.ManifestValidationInput{
		ManifestCOSE: manifest,
		PublicKeyPEM: string(publicKeyPEM),
		Rows:         rows,
	}
	if *expectConfig != "" {
		v := viper.New()
		config.SetupViper(v, "kwbidder")
		expected, err := config.LoadBiddingConfig(v, *expectConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading expected config: %v\n", err)
			os.Exit(2)
		}
		input.ExpectedConfig = &expected
	}

	result, err := validation.ValidateManifest(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	// Output results
	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Bid Upload Manifest Validator")
	fmt.Println()
	fmt.Println("Verifies that a bid upload file is exactly the one described by its signed manifest.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  manifest-validator --manifest <file> --public-key <file> --upload <file> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --manifest <file>                 bid_upload_manifest.cose written by kw-bidder")
	fmt.Println("  --public-key <file>               PEM public key of the signing key")
	fmt.Println("  --upload <file>                   bid_upload_file.csv written by kw-bidder")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --expect-config <file>            Fail unless the run used this config's bidding settings")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  manifest-validator \\")
	fmt.Println("    --manifest out/bid_upload_manifest.cose \\")
	fmt.Println("    --public-key out/bid_upload_manifest.pub.pem \\")
	fmt.Println("    --upload out/bid_upload_file.csv")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

// readManifest accepts any output.manifest_encoding kw-bidder can write.
func readManifest(path string) (bidapi.ManifestCOSE, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return bidapi.DecodeFile(data)
}

func readUpload(path string) ([]core.UploadRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadUploadFile(f, path)
}

func outputText(result *validation.ManifestValidationResult) {
	fmt.Println("Bid Upload Manifest Validator")
	fmt.Println("=============================")
	fmt.Println()

	manifest := result.Manifest
	fmt.Println("Manifest:")
	fmt.Printf("  Run ID:                  %s\n", manifest.RunID)
	fmt.Printf("  Timestamp:               %s\n", manifest.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Printf("  Keywords:                %d\n", manifest.KeywordCount)
	fmt.Printf("  Cap Bid:                 %v\n", manifest.Config.CapBid)
	fmt.Printf("  Min Conversions:         %v\n", manifest.Config.MinConversionThreshold)

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	fmt.Printf("  Config Hash Valid:       %v\n", result.ConfigHashValid)
	fmt.Printf("  Upload Hash Valid:       %v\n", result.UploadHashValid)
	fmt.Printf("  Row Count Valid:         %v\n", result.RowCountValid)
	fmt.Printf("  Bid Range Valid:         %v\n", result.BidRangeValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("=============================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.ManifestValidationResult) {
	output := map[string]any{
		"valid":             result.IsValid(),
		"run_id":            result.Manifest.RunID,
		"keyword_count":     result.Manifest.KeywordCount,
		"signature_valid":   result.SignatureValid,
		"config_hash_valid": result.ConfigHashValid,
		"upload_hash_valid": result.UploadHashValid,
		"row_count_valid":   result.RowCountValid,
		"bid_range_valid":   result.BidRangeValid,
		"details":           result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
