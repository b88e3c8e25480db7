package casregistry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Options are the string settings a backend is opened with, taken from the
// store.backends[].options map of the configuration file.
type Options map[string]string

// String returns the trimmed value of key, or def when unset.
func (o Options) String(key, def string) string {
	if v := strings.TrimSpace(o[key]); v != "" {
		return v
	}
	return def
}

// Require returns the value of key or an error naming it.
func (o Options) Require(backend, key string) (string, error) {
	v := o.String(key, "")
	if v == "" {
		return "", fmt.Errorf("%s: missing option %q", backend, key)
	}
	return v, nil
}

func (o Options) Duration(key string, def time.Duration) (time.Duration, error) {
	v := o.String(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return d, nil
}

func (o Options) Int(key string, def int) (int, error) {
	v := o.String(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return n, nil
}
