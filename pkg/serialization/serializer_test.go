package serialization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/pkg/serialization"
)

type record struct {
	Owner  crypto.Address `cbor:"1,keyasint"`
	Commit crypto.Hash    `cbor:"2,keyasint"`
	Paid   uint64         `cbor:"3,keyasint"`
	Tags   map[string]int `cbor:"4,keyasint,omitempty"`
}

func TestCBORSerializer(t *testing.T) {
	s := serialization.NewCBORSerializer()

	in := record{
		Owner:  crypto.AddressFromLabel("alice"),
		Commit: crypto.CommitSecret(crypto.SecretFromUint64(7)),
		Paid:   10,
		Tags:   map[string]int{"b": 2, "a": 1},
	}
	encoded, err := s.Encode(&in)
	require.NoError(t, err)

	var out record
	require.NoError(t, s.Decode(encoded, &out))
	assert.Equal(t, in, out)
}

func TestCBORSerializerDeterministic(t *testing.T) {
	s := serialization.NewCBORSerializer()

	a, err := s.Encode(map[string]int{"z": 1, "a": 2, "m": 3})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := s.Encode(map[string]int{"m": 3, "z": 1, "a": 2})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestCBORSerializerRejectsGarbage(t *testing.T) {
	s := serialization.NewCBORSerializer()
	var out record
	assert.Error(t, s.Decode([]byte{0xff, 0x00}, &out))
}
