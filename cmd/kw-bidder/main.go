package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/viper"

	"github.com/cloudx-io/kwbidder/batch"
	"github.com/cloudx-io/kwbidder/config"
)

const configFileName = "kwbidder"

func main() {
	configPath := flag.String("config", "", "Config file (default: kwbidder.{yaml,toml,json} in . or /etc/kwbidder)")
	flag.Parse() // required for glog flags

	cfg, err := loadConfig(*configPath)
	if err != nil {
		glog.Errorf("Configuration could not be loaded or did not pass validation: %v", err)
		glog.Flush()
		os.Exit(batch.ExitRuntimeError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	summary, err := batch.Run(ctx, cfg)
	stop()
	if err != nil {
		glog.Errorf("kw-bidder failed: %v", err)
		glog.Flush()
		os.Exit(batch.ExitCode(err))
	}

	glog.Infof("Uploaded bids for %d keywords to %s (manifest %s)", len(summary.Result.Bids), summary.UploadFile, summary.ManifestFile)
	glog.Flush()
}

func loadConfig(path string) (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, configFileName)
	if err := config.ReadConfigFile(v, path); err != nil {
		return nil, err
	}
	return config.New(v)
}
