//go:build !console_debug_logging

package util

const debugLogging = false
