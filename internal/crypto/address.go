package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Address identifies an account on the hosting platform
type Address [AddressSize]byte

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AddressFromHex parses a 0x-prefixed (or bare) 40 character hex string
func AddressFromHex(s string) (Address, error) {
	var a Address
	if err := decodeFixedHex(s, a[:]); err != nil {
		return Address{}, fmt.Errorf("parse address: %w", err)
	}
	return a, nil
}

// AddressFromLabel derives a deterministic address from a label. It is
// meant for tests and local deployments where no key material exists.
func AddressFromLabel(label string) Address {
	h := KeccakData([]byte(label))
	var a Address
	copy(a[:], h[HashSize-AddressSize:])
	return a
}

// ContractAddress derives the address of a contract created by creator.
// The nonce distinguishes successive contracts of the same creator.
func ContractAddress(creator Address, nonce uint64) Address {
	buf := make([]byte, AddressSize+8)
	copy(buf, creator[:])
	binary.BigEndian.PutUint64(buf[AddressSize:], nonce)
	h := KeccakData(buf)
	var a Address
	copy(a[:], h[HashSize-AddressSize:])
	return a
}
