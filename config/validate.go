package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: expected 20 bytes, got %d", raw, len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// ParseStrategyID decodes a 0x-prefixed 32-byte hex strategy identifier.
func ParseStrategyID(raw string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("invalid strategy id %q: %w", raw, err)
	}
	if len(decoded) != len(id) {
		return id, fmt.Errorf("invalid strategy id %q: expected 32 bytes, got %d", raw, len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

// Validate checks the configuration for structural errors. Optional fields
// (operator, reward source, strategy id) are validated only when set.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config must not be nil")
	}
	switch strings.ToLower(strings.TrimSpace(c.StorageBackend)) {
	case "leveldb", "bolt":
	default:
		return fmt.Errorf("unsupported storage backend %q (want leveldb or bolt)", c.StorageBackend)
	}
	required := map[string]string{
		"VaultAddress":     c.VaultAddress,
		"StrategyAddress":  c.StrategyAddress,
		"CustodianAddress": c.CustodianAddress,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", field)
		}
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	optional := map[string]string{
		"OperatorAddress":     c.OperatorAddress,
		"RewardSourceAddress": c.RewardSourceAddress,
	}
	for field, value := range optional {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	if strings.TrimSpace(c.StrategyID) != "" {
		if _, err := ParseStrategyID(c.StrategyID); err != nil {
			return err
		}
	}
	return nil
}
