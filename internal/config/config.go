// Package config loads server configuration from a .env file and the
// process environment, then lets CLI flags override the result — the
// same LoadConfig shape used across the retrieved corpus's network
// services, adapted to this server's handful of knobs.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds everything the server needs to start.
type Config struct {
	Port            int    `env:"RESPD_PORT" envDefault:"6379"`
	ReplicaOf       string `env:"RESPD_REPLICAOF"`
	MetricsAddr     string `env:"RESPD_METRICS_ADDR"`
	LogLevel        string `env:"RESPD_LOG_LEVEL" envDefault:"info"`
	LogPretty       bool   `env:"RESPD_LOG_PRETTY" envDefault:"false"`
	SweepInterval   string `env:"RESPD_SWEEP_INTERVAL" envDefault:"100ms"`
	SweepSampleSize int    `env:"RESPD_SWEEP_SAMPLE" envDefault:"20"`

	// MasterHost/MasterPort are derived from ReplicaOf by parseReplicaOf.
	MasterHost string
	MasterPort int
}

// Load reads .env (if present) and the process environment into a
// Config, then applies CLI flag overrides from args (typically
// os.Args[1:]). logger is optional and only used to narrate the .env
// load; pass a discard logger in tests.
func Load(args []string, logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Debug().Msg("no .env file found, using process environment only")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	fs := flag.NewFlagSet("respd", flag.ContinueOnError)
	port := fs.Int("port", cfg.Port, "TCP port to bind on 127.0.0.1")
	replicaOf := fs.String("replicaof", cfg.ReplicaOf, `make this server a replica of "<host> <port>"`)
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "address for the Prometheus /metrics endpoint, empty disables it")
	logLevel := fs.String("log-level", cfg.LogLevel, "debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Port = *port
	cfg.ReplicaOf = *replicaOf
	cfg.MetricsAddr = *metricsAddr
	cfg.LogLevel = *logLevel

	if err := cfg.parseReplicaOf(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseReplicaOf() error {
	if c.ReplicaOf == "" {
		return nil
	}
	fields := strings.Fields(c.ReplicaOf)
	if len(fields) != 2 {
		return fmt.Errorf(`--replicaof must be "<host> <port>", got %q`, c.ReplicaOf)
	}
	var port int
	if _, err := fmt.Sscanf(fields[1], "%d", &port); err != nil {
		return fmt.Errorf("--replicaof port %q is not a number", fields[1])
	}
	c.MasterHost = fields[0]
	c.MasterPort = port
	return nil
}

// IsReplica reports whether this config makes the server a replica.
func (c *Config) IsReplica() bool { return c.MasterHost != "" }
