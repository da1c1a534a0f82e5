// Package config resolves the exporter configuration from flags and the environment.
package config

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/vshulcz/vnstat-exporter/internal/misc"
)

const (
	defaultPort            = 9469
	defaultInterval        = 60
	defaultTimeout         = 10
	defaultStoreInterval   = 300
	defaultSource          = SourceVnstat
	defaultVnstatPath      = "vnstat"
	defaultCounterDecrease = DecreaseReset
	defaultRestore         = true
	defaultLogLevel        = "info"
	daemonLogLevel         = "warn"

	envPrefix = "VNSTAT_EXPORTER_"
)

// Source selects where interface counters come from.
type Source string

const (
	SourceVnstat Source = "vnstat"
	SourceNetIO  Source = "netio"
)

// CounterDecrease selects how a decreasing source counter is exported.
type CounterDecrease string

const (
	// DecreaseReset exports the lower value and counts a reset.
	DecreaseReset CounterDecrease = "reset"
	// DecreaseClamp keeps the previous value until the source catches up.
	DecreaseClamp CounterDecrease = "clamp"
)

type ExporterConfig struct {
	ListenAddress   string
	Source          Source
	VnstatPath      string
	CounterDecrease CounterDecrease
	StateFile       string
	DatabaseDSN     string
	LogLevel        string
	Interfaces      []string
	Interval        time.Duration
	Timeout         time.Duration
	StoreInterval   time.Duration
	Port            int
	Daemon          bool
	Restore         bool
}

// Addr is the host:port the HTTP server binds to.
func (c ExporterConfig) Addr() string {
	return net.JoinHostPort(c.ListenAddress, strconv.Itoa(c.Port))
}

// Flags holds the raw flag destinations registered on a FlagSet.
type Flags struct {
	listen          string
	source          string
	vnstatPath      string
	counterDecrease string
	stateFile       string
	dsn             string
	logLevel        string
	interfaces      []string
	port            int
	interval        int
	timeout         int
	storeInterval   int
	daemon          bool
	restore         bool
}

// RegisterFlags defines every exporter flag on fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.IntVar(&f.port, "port", defaultPort, "port to expose metrics on")
	fs.StringVar(&f.listen, "listen-address", "", "host to bind, empty for all interfaces")
	fs.IntVar(&f.interval, "interval", defaultInterval, "metrics update interval in seconds")
	fs.IntVar(&f.timeout, "timeout", defaultTimeout, "seconds to wait for the statistics tool")
	fs.BoolVar(&f.daemon, "daemon", false, "run under a service supervisor: warn-level JSON logs only")
	fs.StringVar(&f.source, "source", string(defaultSource), "counter source: vnstat or netio")
	fs.StringVar(&f.vnstatPath, "vnstat-path", defaultVnstatPath, "vnstat binary to execute")
	fs.StringSliceVar(&f.interfaces, "interfaces", nil, "only export these interfaces (comma separated)")
	fs.StringVar(&f.counterDecrease, "counter-decrease", string(defaultCounterDecrease), "how to export a decreasing counter: reset or clamp")
	fs.StringVar(&f.stateFile, "state-file", "", "file to persist last known counters to")
	fs.StringVar(&f.dsn, "database-dsn", "", "Postgres DSN to persist last known counters to")
	fs.IntVar(&f.storeInterval, "store-interval", defaultStoreInterval, "seconds between state saves (0 - after every update)")
	fs.BoolVar(&f.restore, "restore", defaultRestore, "restore last known counters on start")
	fs.StringVar(&f.logLevel, "log-level", "", fmt.Sprintf("log level, default: %s (%s with --daemon)", defaultLogLevel, daemonLogLevel))
	return f
}

// Resolve merges parsed flags with the environment. CLI > ENV > defaults.
func Resolve(fs *pflag.FlagSet, f *Flags) (ExporterConfig, error) {
	cfg := ExporterConfig{
		Port:          pickInt(fs, "port", f.port, "PORT"),
		ListenAddress: pickString(fs, "listen-address", f.listen, "LISTEN_ADDRESS"),
		Interval:      pickSeconds(fs, "interval", f.interval, "INTERVAL"),
		Timeout:       pickSeconds(fs, "timeout", f.timeout, "TIMEOUT"),
		Daemon:        pickBool(fs, "daemon", f.daemon, "DAEMON"),
		Source:        Source(strings.ToLower(pickString(fs, "source", f.source, "SOURCE"))),
		VnstatPath:    pickString(fs, "vnstat-path", f.vnstatPath, "VNSTAT_PATH"),
		StateFile:     pickString(fs, "state-file", f.stateFile, "STATE_FILE"),
		DatabaseDSN:   pickString(fs, "database-dsn", f.dsn, "DATABASE_DSN"),
		StoreInterval: pickSeconds(fs, "store-interval", f.storeInterval, "STORE_INTERVAL"),
		Restore:       pickBool(fs, "restore", f.restore, "RESTORE"),
		LogLevel:      strings.ToLower(pickString(fs, "log-level", f.logLevel, "LOG_LEVEL")),
		CounterDecrease: CounterDecrease(strings.ToLower(
			pickString(fs, "counter-decrease", f.counterDecrease, "COUNTER_DECREASE"))),
	}

	if fs.Changed("interfaces") {
		cfg.Interfaces = normalizeList(f.interfaces)
	} else {
		cfg.Interfaces = misc.GetList(envPrefix+"INTERFACES", nil)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
		if cfg.Daemon {
			cfg.LogLevel = daemonLogLevel
		}
	}

	if err := cfg.validate(); err != nil {
		return ExporterConfig{}, err
	}
	if cfg.Timeout > cfg.Interval {
		cfg.Timeout = cfg.Interval
	}
	return cfg, nil
}

// LoadExporterConfig parses args on a fresh FlagSet and resolves the result.
func LoadExporterConfig(args []string, out io.Writer) (ExporterConfig, error) {
	if out == nil {
		out = io.Discard
	}
	fs := pflag.NewFlagSet("vnstat-exporter", pflag.ContinueOnError)
	fs.SetOutput(out)
	f := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return ExporterConfig{}, err
	}
	return Resolve(fs, f)
}

func (c ExporterConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0, got %v", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.StoreInterval < 0 {
		return fmt.Errorf("store interval must be >= 0, got %v", c.StoreInterval)
	}
	switch c.Source {
	case SourceVnstat, SourceNetIO:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	switch c.CounterDecrease {
	case DecreaseReset, DecreaseClamp:
	default:
		return fmt.Errorf("unknown counter-decrease policy %q", c.CounterDecrease)
	}
	if c.Source == SourceVnstat && strings.TrimSpace(c.VnstatPath) == "" {
		return fmt.Errorf("vnstat path must not be empty")
	}
	return nil
}

func normalizeList(items []string) []string {
	return misc.SplitList(strings.Join(items, ","))
}
