package config

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/vshulcz/vnstat-exporter/internal/misc"
)

// The pick helpers return the flag value when it was given on the command line,
// otherwise the VNSTAT_EXPORTER_-prefixed env value, otherwise the flag default.

func pickString(fs *pflag.FlagSet, name, flagVal, env string) string {
	if fs.Changed(name) {
		return flagVal
	}
	return misc.Getenv(envPrefix+env, flagVal)
}

func pickInt(fs *pflag.FlagSet, name string, flagVal int, env string) int {
	if fs.Changed(name) {
		return flagVal
	}
	return misc.GetInt(envPrefix+env, flagVal)
}

func pickBool(fs *pflag.FlagSet, name string, flagVal bool, env string) bool {
	if fs.Changed(name) {
		return flagVal
	}
	return misc.GetBool(envPrefix+env, flagVal)
}

func pickSeconds(fs *pflag.FlagSet, name string, flagSeconds int, env string) time.Duration {
	def := time.Duration(flagSeconds) * time.Second
	if fs.Changed(name) {
		return def
	}
	return misc.GetSeconds(envPrefix+env, def)
}
