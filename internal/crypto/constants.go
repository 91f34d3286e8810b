package crypto

const (
	HashSize    = 32
	SecretSize  = 32
	AddressSize = 20
)
