package crypto

import (
	"encoding/binary"
	"encoding/hex"
)

// Secret is a 256-bit unsigned integer stored big-endian. Its encoding
// matches the EVM word layout so digests agree with keccak256(abi.encodePacked(uint256)).
type Secret [SecretSize]byte

// SecretFromUint64 returns the secret holding the integer v
func SecretFromUint64(v uint64) Secret {
	var s Secret
	binary.BigEndian.PutUint64(s[SecretSize-8:], v)
	return s
}

func (s Secret) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// CommitSecret is the commitment published at purchase time: keccak256(secret).
func CommitSecret(s Secret) Hash {
	return KeccakData(s[:])
}

// FoldSecret chains a revealed secret into a running digest:
// keccak256(secret ++ digest).
func FoldSecret(s Secret, digest Hash) Hash {
	buf := make([]byte, 0, SecretSize+HashSize)
	buf = append(buf, s[:]...)
	buf = append(buf, digest[:]...)
	return KeccakData(buf)
}

// Matches reports whether s opens the commitment c
func (s Secret) Matches(c Hash) bool {
	return CommitSecret(s) == c
}
