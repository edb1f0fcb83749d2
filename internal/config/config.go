package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eigerco/timelord/internal/constants"
	"github.com/eigerco/timelord/pkg/log"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// TIMELORD_LISTEN_ADDR.
const EnvPrefix = "TIMELORD"

const (
	flagConfig       = "config"
	flagListenAddr   = "listen-addr"
	flagDataDir      = "data-dir"
	flagKeyFile      = "key-file"
	flagLogLevel     = "log-level"
	flagLogType      = "log-type"
	flagMetricsAddr  = "metrics-addr"
	flagBluebox      = "bluebox"
	flagNetwork      = "network"
	flagEventBuffer  = "event-buffer"
	flagCertValidity = "cert-validity"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ListenAddr string `mapstructure:"listen-addr"`
	// DataDir holds the event journal. Empty keeps it in memory.
	DataDir string `mapstructure:"data-dir"`
	// KeyFile holds the node's Ed25519 key. Empty uses a fresh key per run.
	KeyFile     string `mapstructure:"key-file"`
	LogLevel    string `mapstructure:"log-level"`
	LogType     string `mapstructure:"log-type"`
	MetricsAddr string `mapstructure:"metrics-addr"`
	Bluebox     bool   `mapstructure:"bluebox"`
	Network     string `mapstructure:"network"`
	// EventBuffer is how many events may wait for the journal before new
	// ones are dropped.
	EventBuffer  int           `mapstructure:"event-buffer"`
	CertValidity time.Duration `mapstructure:"cert-validity"`
}

func Default() Config {
	return Config{
		ListenAddr:   "0.0.0.0:8000",
		LogLevel:     "info",
		LogType:      "console",
		MetricsAddr:  "127.0.0.1:9100",
		Network:      constants.Mainnet.Name,
		EventBuffer:  1024,
		CertValidity: 365 * 24 * time.Hour,
	}
}

// BindFlags registers every setting on fs with its default.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(flagConfig, "", "path to a config file (yaml, toml or json)")
	fs.String(flagListenAddr, d.ListenAddr, "QUIC listen address for full node connections")
	fs.String(flagDataDir, d.DataDir, "event journal directory, empty keeps it in memory")
	fs.String(flagKeyFile, d.KeyFile, "Ed25519 key file, created when missing")
	fs.String(flagLogLevel, d.LogLevel, "log level (trace, debug, info, warn, error)")
	fs.String(flagLogType, d.LogType, "log output (console or json)")
	fs.String(flagMetricsAddr, d.MetricsAddr, "prometheus metrics address, empty disables it")
	fs.Bool(flagBluebox, d.Bluebox, "only serve compact proof requests")
	fs.String(flagNetwork, d.Network, "consensus constants preset (mainnet or testnet)")
	fs.Int(flagEventBuffer, d.EventBuffer, "events buffered for the journal")
	fs.Duration(flagCertValidity, d.CertValidity, "validity of the self-signed TLS certificate")
}

// Load reads the configuration from v: defaults, then a config file if one
// was named, then TIMELORD_* environment variables, then flags bound to v.
func Load(v *viper.Viper) (Config, error) {
	d := Default()
	v.SetDefault(flagListenAddr, d.ListenAddr)
	v.SetDefault(flagDataDir, d.DataDir)
	v.SetDefault(flagKeyFile, d.KeyFile)
	v.SetDefault(flagLogLevel, d.LogLevel)
	v.SetDefault(flagLogType, d.LogType)
	v.SetDefault(flagMetricsAddr, d.MetricsAddr)
	v.SetDefault(flagBluebox, d.Bluebox)
	v.SetDefault(flagNetwork, d.Network)
	v.SetDefault(flagEventBuffer, d.EventBuffer)
	v.SetDefault(flagCertValidity, d.CertValidity)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: listen address %q: %v", ErrInvalidConfig, c.ListenAddr, err))
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: metrics address %q: %v", ErrInvalidConfig, c.MetricsAddr, err))
		}
	}
	if _, err := log.ParseLogLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel))
	}
	if _, err := log.ParseLoggerType(c.LogType); err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}
	if _, err := constants.ByName(c.Network); err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}
	if c.EventBuffer <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: event buffer must be positive, got %d", ErrInvalidConfig, c.EventBuffer))
	}
	if c.CertValidity <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: certificate validity must be positive, got %s", ErrInvalidConfig, c.CertValidity))
	}
	return result.ErrorOrNil()
}

// Constants returns the consensus constants of the configured network.
func (c Config) Constants() (constants.Constants, error) {
	return constants.ByName(c.Network)
}

// LogOptions maps the log settings onto pkg/log.
func (c Config) LogOptions() (log.Options, error) {
	level, err := log.ParseLogLevel(c.LogLevel)
	if err != nil {
		return log.Options{}, err
	}
	typ, err := log.ParseLoggerType(c.LogType)
	if err != nil {
		return log.Options{}, err
	}
	return log.Options{LogLevel: level, Type: typ}, nil
}
