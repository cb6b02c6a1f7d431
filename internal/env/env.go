// Package env provides utility functions for reading environment
// variables with defaults.
package env

import (
	"os"
	"strconv"
)

// GetBool fetches and parses a boolean typed environment variable. The
// fallback is returned when the variable is unset or unparseable.
func GetBool(name string, fallback bool) bool {
	s := os.Getenv(name)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

// GetString fetches a string typed environment variable, falling back
// when it is unset or empty.
func GetString(name string, fallback string) string {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	return v
}
