package devnet

import (
	"fmt"
	"os"
)

// RedisHost returns the hostname that reaches ports published by Docker.
// Inside a container that is host.docker.internal, otherwise localhost.
func RedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// RedisURL constructs the full Redis URL for a given port.
func RedisURL(port int) string {
	return fmt.Sprintf("redis://%s:%d", RedisHost(), port)
}
