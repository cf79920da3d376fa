package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSONConfig provides centralized JSON configuration for consistent serialization behavior
type JSONConfig struct {
	// DisallowUnknownFields controls whether unknown fields should be rejected
	DisallowUnknownFields bool
	// UseNumber controls whether numbers should be decoded as json.Number
	UseNumber bool
}

// DefaultConfig returns the default JSON configuration
func DefaultConfig() *JSONConfig {
	return &JSONConfig{
		DisallowUnknownFields: false, // Allow unknown fields for API compatibility
		UseNumber:             false,
	}
}

// StrictConfig returns a strict JSON configuration that disallows unknown fields
func StrictConfig() *JSONConfig {
	return &JSONConfig{
		DisallowUnknownFields: true,
		UseNumber:             false,
	}
}

// Decode decodes a single JSON value using the specified configuration.
// Trailing data after the value is an error.
func Decode(data []byte, v interface{}, config *JSONConfig) error {
	if config == nil {
		config = DefaultConfig()
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	if config.DisallowUnknownFields {
		decoder.DisallowUnknownFields()
	}
	if config.UseNumber {
		decoder.UseNumber()
	}
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing data after JSON value")
	}
	return nil
}

// Encode encodes data to JSON
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
