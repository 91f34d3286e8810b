package store

import "encoding/binary"

// Prefix constants for all store types
const (
	prefixConfig byte = iota + 1
	prefixState
	prefixEvent
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixConfig:
		return "config"
	case prefixState:
		return "state"
	case prefixEvent:
		return "event"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and a contract address
func makeKey(prefix byte, contract []byte) []byte {
	key := make([]byte, 1+len(contract))
	key[0] = prefix
	copy(key[1:], contract)
	return key
}

// makeEventKey creates an event key
// The key format is: [prefix(1 byte)][contract(20 bytes)][seq(8 bytes, big-endian)]
func makeEventKey(contract []byte, seq uint64) []byte {
	key := make([]byte, 1+len(contract)+8)
	key[0] = prefixEvent
	copy(key[1:], contract)
	binary.BigEndian.PutUint64(key[1+len(contract):], seq)
	return key
}
