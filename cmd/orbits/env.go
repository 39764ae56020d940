package main

import (
	"os"
	"strconv"
)

// envInt returns the integer in the environment variable key, or def when it
// is unset or malformed.
func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
