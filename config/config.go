package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/cloudx-io/kwbidder/bidapi"
	"github.com/cloudx-io/kwbidder/core"
	"github.com/cloudx-io/kwbidder/ingest"
)

// EnvPrefix namespaces environment overrides, e.g. KWBIDDER_BIDDING_CAP_BID_THRES.
const EnvPrefix = "KWBIDDER"

// Configuration of one batch run
type Configuration struct {
	Bidding Bidding `mapstructure:"bidding"`
	Inputs  Inputs  `mapstructure:"inputs"`
	Output  Output  `mapstructure:"output"`
}

type Bidding struct {
	MinConversionThreshold float64 `mapstructure:"min_conv_thres"`
	CapBid                 float64 `mapstructure:"cap_bid_thres"`
	BidPrecision           int32   `mapstructure:"bid_precision"`
}

// Inputs are the CSV paths of the reference tables
type Inputs struct {
	KeywordAttributes   string `mapstructure:"keyword_attributes"`
	KeywordPerformance  string `mapstructure:"keyword_performance"`
	MakeModelARS        string `mapstructure:"make_model_ars"`
	InventoryCurrent    string `mapstructure:"inventory_current"`
	InventoryHistorical string `mapstructure:"inventory_historical"`
}

type Output struct {
	UploadFile       string `mapstructure:"upload_file"`
	ManifestFile     string `mapstructure:"manifest_file"`
	ManifestEncoding string `mapstructure:"manifest_encoding"` // raw, base64, base64url or gzip
	// SigningKey is a PEM private key path; empty signs with a key generated for the run
	SigningKey      string `mapstructure:"signing_key"`
	PublicKey       string `mapstructure:"public_key"`
	MetricsTextfile string `mapstructure:"metrics_textfile"` // empty = disabled
}

// SetupViper registers defaults, config file search paths and environment overrides.
func SetupViper(v *viper.Viper, filename string) {
	v.SetConfigName(filename)
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/kwbidder")

	v.SetDefault("bidding.min_conv_thres", core.DefaultMinConversionThreshold)
	v.SetDefault("bidding.cap_bid_thres", core.DefaultCapBid)
	v.SetDefault("bidding.bid_precision", core.DefaultBidPrecision)

	v.SetDefault("inputs.keyword_attributes", "")
	v.SetDefault("inputs.keyword_performance", "")
	v.SetDefault("inputs.make_model_ars", "")
	v.SetDefault("inputs.inventory_current", "")
	v.SetDefault("inputs.inventory_historical", "")

	v.SetDefault("output.upload_file", "bid_upload_file.csv")
	v.SetDefault("output.manifest_file", "bid_upload_manifest.cose")
	v.SetDefault("output.manifest_encoding", bidapi.EncodingRaw)
	v.SetDefault("output.signing_key", "")
	v.SetDefault("output.public_key", "bid_upload_manifest.pub.pem")
	// no metrics textfile by default
	v.SetDefault("output.metrics_textfile", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadConfigFile loads an explicit config file, or searches the paths registered by
// SetupViper when path is empty. A missing file is only an error when it was named.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	}
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if path == "" && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config file: %w", err)
}

// New uses viper to build and validate the run configuration
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (cfg *Configuration) validate() error {
	var problems []string

	var bidErr *core.ConfigError
	if err := cfg.BiddingConfig().Validate(); errors.As(err, &bidErr) {
		problems = append(problems, bidErr.Problems...)
	}

	required := []struct {
		key   string
		value string
	}{
		{"inputs.keyword_attributes", cfg.Inputs.KeywordAttributes},
		{"inputs.keyword_performance", cfg.Inputs.KeywordPerformance},
		{"inputs.make_model_ars", cfg.Inputs.MakeModelARS},
		{"inputs.inventory_current", cfg.Inputs.InventoryCurrent},
		{"inputs.inventory_historical", cfg.Inputs.InventoryHistorical},
		{"output.upload_file", cfg.Output.UploadFile},
		{"output.manifest_file", cfg.Output.ManifestFile},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, fmt.Sprintf("%s must be set", r.key))
		}
	}
	if !slices.Contains(bidapi.ManifestEncodings, cfg.Output.ManifestEncoding) {
		problems = append(problems, fmt.Sprintf("output.manifest_encoding must be one of %s, got %q",
			strings.Join(bidapi.ManifestEncodings, ", "), cfg.Output.ManifestEncoding))
	}
	if cfg.Output.SigningKey == "" && cfg.Output.PublicKey == "" {
		problems = append(problems, "output.public_key must be set when output.signing_key is empty")
	}

	if len(problems) > 0 {
		return &core.ConfigError{Problems: problems}
	}
	return nil
}

// BiddingConfig returns the immutable constants handed to the bid pipeline.
func (cfg *Configuration) BiddingConfig() core.Config {
	return cfg.Bidding.config()
}

func (b Bidding) config() core.Config {
	return core.Config{
		MinConversionThreshold: b.MinConversionThreshold,
		CapBid:                 b.CapBid,
		BidPrecision:           b.BidPrecision,
	}
}

// LoadBiddingConfig reads only the bidding section of a config file, with defaults and
// environment overrides applied. Inputs and outputs are neither read nor required.
func LoadBiddingConfig(v *viper.Viper, path string) (core.Config, error) {
	if err := ReadConfigFile(v, path); err != nil {
		return core.Config{}, err
	}
	b := Bidding{
		MinConversionThreshold: v.GetFloat64("bidding.min_conv_thres"),
		CapBid:                 v.GetFloat64("bidding.cap_bid_thres"),
		BidPrecision:           v.GetInt32("bidding.bid_precision"),
	}
	cfg := b.config()
	if err := cfg.Validate(); err != nil {
		return core.Config{}, err
	}
	return cfg, nil
}

// InputPaths returns the reference table locations for the loader.
func (cfg *Configuration) InputPaths() ingest.Paths {
	return ingest.Paths{
		KeywordAttributes:   cfg.Inputs.KeywordAttributes,
		KeywordPerformance:  cfg.Inputs.KeywordPerformance,
		MakeModelARS:        cfg.Inputs.MakeModelARS,
		InventoryCurrent:    cfg.Inputs.InventoryCurrent,
		InventoryHistorical: cfg.Inputs.InventoryHistorical,
	}
}
