package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/flagx"
)

// parseFlags reads only -a, -i and -d; anything else on the command line is
// filtered out by flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("foodhub-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API")
	timeout := fs.Int("i", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DeviceID, "d", cfg.DeviceID, "device id for guest sessions")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-i", "-d"})); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
