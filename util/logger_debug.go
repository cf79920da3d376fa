//go:build console_debug_logging

package util

import (
	"log"
)

const debugLogging = true

func init() {
	log.Printf("console debug logging enabled")
}
