package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/socialhub/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string     gRPC bind address (e.g. ":50051")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t duration   access token validity
//	-r duration   refresh token validity
//	-u string     S3 user
//	-p string     S3 password
//	-b string     S3 bucket prefix
//	-g string     S3 region
//	-e string     S3 endpoint
//	-public-url   base of public object URLs
//	-log-format   json, text or zap
//	-log-level    debug, info, warn or error
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e",
		"-public-url", "-log-format", "-log-level",
	})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3BucketPrefix, "b", config.S3BucketPrefix, "S3 bucket prefix")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 endpoint")
	fs.StringVar(&config.StoragePublicURL, "public-url", config.StoragePublicURL, "base of public object URLs")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format: json, text or zap")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config flags: %w", err)
	}
	return nil
}
