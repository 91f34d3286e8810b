// Package entropy derives the winning draw from revealed secrets.
//
// Every revealed secret is chained into a running digest,
//
//	d' = keccak256(secret ++ d),  d_0 = 0
//
// in the order the reveals were accepted, and the owner's secret is folded
// last at the end of the round. No single revealer can steer the result
// because the final fold is over a secret committed before the sale closed
// and revealed only after every other reveal.
package entropy

import (
	"errors"
	"math/big"

	"github.com/eigerco/lottery/internal/crypto"
)

var ErrNoReveals = errors.New("no revealed secrets to draw from")

// Fold chains one secret into the digest.
func Fold(digest crypto.Hash, secret crypto.Secret) crypto.Hash {
	return crypto.FoldSecret(secret, digest)
}

// Replay recomputes the digest from an ordered list of secrets.
func Replay(secrets ...crypto.Secret) crypto.Hash {
	var d crypto.Hash
	for _, s := range secrets {
		d = Fold(d, s)
	}
	return d
}

// Accumulator is the running digest together with the number of secrets
// folded into it.
type Accumulator struct {
	Digest crypto.Hash
	Count  uint64
}

// Add folds the next revealed secret.
func (a *Accumulator) Add(secret crypto.Secret) {
	a.Digest = Fold(a.Digest, secret)
	a.Count++
}

// WinnerIndex maps the final digest, read as a big-endian uint256, onto
// [0, n).
func WinnerIndex(digest crypto.Hash, n int) (int, error) {
	if n <= 0 {
		return 0, ErrNoReveals
	}
	d := new(big.Int).SetBytes(digest[:])
	idx := new(big.Int).Mod(d, big.NewInt(int64(n)))
	return int(idx.Int64()), nil
}
