// Package env reads typed settings from environment variables. Blank values
// mean unset; malformed values are logged and replaced by the default.
package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func Int(key string, def int) int {
	v := String(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func Float(key string, def float64) float64 {
	v := String(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logrus.Warnf("invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func Bool(key string, def bool) bool {
	switch strings.ToLower(String(key, "")) {
	case "":
		return def
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}

// Duration accepts Go durations ("90s") or a plain number of seconds.
func Duration(key string, def time.Duration) time.Duration {
	v := String(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	logrus.Warnf("invalid %s=%q, using %s", key, v, def)
	return def
}

// List splits a sep-separated value, dropping blank items.
func List(key, def, sep string) []string {
	var out []string
	for _, p := range strings.Split(String(key, def), sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
