package testutils

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eigerco/lottery/internal/crypto"
)

func RandomHash(t *testing.T) crypto.Hash {
	var hash crypto.Hash
	_, err := rand.Read(hash[:])
	require.NoError(t, err)
	return hash
}

func RandomSecret(t *testing.T) crypto.Secret {
	var secret crypto.Secret
	_, err := rand.Read(secret[:])
	require.NoError(t, err)
	return secret
}

func RandomAddress(t *testing.T) crypto.Address {
	var addr crypto.Address
	_, err := rand.Read(addr[:])
	require.NoError(t, err)
	return addr
}

// Participant is an account together with the secret it commits to.
type Participant struct {
	Address crypto.Address
	Secret  crypto.Secret
}

func (p Participant) Commitment() crypto.Hash {
	return crypto.CommitSecret(p.Secret)
}

// RandomParticipants returns n participants with distinct addresses.
func RandomParticipants(t *testing.T, n int) []Participant {
	seen := make(map[crypto.Address]struct{}, n)
	out := make([]Participant, 0, n)
	for len(out) < n {
		p := Participant{Address: RandomAddress(t), Secret: RandomSecret(t)}
		if _, dup := seen[p.Address]; dup {
			continue
		}
		seen[p.Address] = struct{}{}
		out = append(out, p)
	}
	return out
}
