// Package misc holds small environment and retry helpers shared by the exporter.
package misc

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup returns the trimmed value of key and whether it was set to something non-blank.
func Lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func Getenv(key, def string) string {
	if v, ok := Lookup(key); ok {
		return v
	}
	return def
}

// GetInt parses key as a base-10 integer, falling back to def on absence or garbage.
func GetInt(key string, def int) int {
	v, ok := Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetSeconds reads a duration given either as whole seconds or in Go syntax.
func GetSeconds(key string, def time.Duration) time.Duration {
	v, ok := Lookup(key)
	if !ok {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n <= 0 {
			return 0
		}
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return 0
		}
		return d
	}
	return def
}

func GetBool(key string, def bool) bool {
	v, ok := Lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y":
		return true
	case "0", "false", "f", "no", "n":
		return false
	default:
		return def
	}
}

// GetList splits a comma separated value, dropping blanks.
func GetList(key string, def []string) []string {
	v, ok := Lookup(key)
	if !ok {
		return def
	}
	return SplitList(v)
}

// SplitList splits s on commas, trimming items and dropping empty ones.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
