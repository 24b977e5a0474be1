package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-m", "-d", "-s", "-t", "-r", "-o", "-u", "-p", "-b", "-g", "-e", "-l"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-m string   gRPC health bind address
//	-d string   PostgreSQL DSN, or "memory" for in-process storage
//	-s string   token signing secret
//	-t int      bearer token lifetime, minutes
//	-r bool     open self-registration
//	-o string   public origin used in emailed links
//	-u/-p       S3 credentials
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-l string   log file (rotated)
//
// Unknown arguments are filtered out first so the config-file flag and other
// components can share os.Args.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("gatekeeper", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP")
	fs.StringVar(&config.EndpointAddrHealth, "m", config.EndpointAddrHealth, "address and port to serve gRPC health")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	lifetime := fs.Int("t", int(config.BearerTokenLifetime.Minutes()), "bearer token lifetime (in minutes)")
	fs.BoolVar(&config.RegistrationEnabled, "r", config.RegistrationEnabled, "allow registration without invite")
	fs.StringVar(&config.AppOrigin, "o", config.AppOrigin, "public origin for emailed links")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogFile, "l", config.LogFile, "log file")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.BearerTokenLifetime = time.Duration(*lifetime) * time.Minute
		}
	})
}
