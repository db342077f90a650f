package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmcardle/netpathd/pkg/version"
)

// Config holds the application configuration from CLI flags
type Config struct {
	Host         string
	Port         int
	LogLevel     string
	Source       string
	PollInterval time.Duration
	MDNS         bool
}

// ParseFlags parses command line arguments and returns a Config
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Host, "host", "127.0.0.1", "Host to bind to")
	flag.IntVar(&cfg.Port, "port", 60199, "Port to listen on")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	flag.StringVar(&cfg.Source, "source", "auto", "Path source to use (auto, native, poll)")
	flag.DurationVar(&cfg.PollInterval, "poll-interval", 5*time.Second, "Interface scan interval for the poll source")
	flag.BoolVar(&cfg.MDNS, "mdns", false, "Announce the API over mDNS")
	showVersion := flag.Bool("version", false, "Show version information")

	flag.Parse()

	if *showVersion {
		fmt.Printf("netpathd version %s (commit: %s, built at: %s)\n",
			version.Version,
			version.CommitHash,
			version.BuildTime)
		os.Exit(0)
	}

	return cfg
}

// String returns a string representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf("Host: %s, Port: %d, Source: %s, PollInterval: %s, MDNS: %t, LogLevel: %s",
		c.Host, c.Port, c.Source, c.PollInterval, c.MDNS, c.LogLevel)
}
