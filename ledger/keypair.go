package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/MixinNetwork/mixin/crypto"
	"github.com/gofrs/uuid"
	"github.com/mr-tron/base58"
)

// Address is the base58 text form of a 32 bytes public key or account key.
type Address string

func NewAddress() Address {
	id, err := uuid.NewV4()
	if err != nil {
		panic(err)
	}
	h := crypto.NewHash(id.Bytes())
	return Address(base58.Encode(h[:]))
}

func AddressFromString(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("invalid address %s: %w", s, err)
	}
	if len(b) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid address %s: size %d", s, len(b))
	}
	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}

func (a Address) Valid() bool {
	_, err := AddressFromString(string(a))
	return err == nil
}

func (a Address) bytes() []byte {
	b, err := base58.Decode(string(a))
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil
	}
	return b
}

// Signer authorizes mutations on behalf of a principal.
type Signer interface {
	Address() Address
	Sign(message []byte) []byte
}

type Keypair struct {
	private ed25519.PrivateKey
	address Address
}

func NewKeypair() (*Keypair, error) {
	seed := make([]byte, ed25519.SeedSize)
	_, err := rand.Read(seed)
	if err != nil {
		return nil, err
	}
	return KeypairFromSeed(seed)
}

func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed size %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{
		private: priv,
		address: Address(base58.Encode(pub)),
	}, nil
}

func (kp *Keypair) Address() Address {
	return kp.address
}

func (kp *Keypair) Seed() []byte {
	return kp.private.Seed()
}

func (kp *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.private, message)
}

func Verify(addr Address, message, sig []byte) bool {
	pub := addr.bytes()
	if pub == nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}
