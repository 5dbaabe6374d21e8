package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/foodhub/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-d", "-r", "-t", "-f", "-e", "-l"}

// parseFlags overlays the short command-line flags:
//
//	-a string   HTTP bind address
//	-g string   gRPC ops bind address
//	-d string   PostgreSQL DSN
//	-r string   Redis address (empty disables the blacklist cache)
//	-t duration access token ttl
//	-f duration refresh token ttl
//	-e string   environment ("production" turns on Secure cookies)
//	-l string   log level
//
// Secrets are deliberately not accepted on the command line.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("foodhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC ops address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token ttl")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "f", config.RefreshTokenValidityDuration, "refresh token ttl")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}
