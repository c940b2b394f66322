package noise

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"hash"
	"io"

	"github.com/cloudflare/circl/dh/x25519"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidPublicKey is returned by DH when the remote key has the wrong
// length or is a low-order point.
var ErrInvalidPublicKey = errors.New("noise: invalid DH public key")

// NewCipherSuite returns a CipherSuite constructed from the specified
// primitives.
func NewCipherSuite(dh DHFunc, c CipherFunc, h HashFunc) CipherSuite {
	return ciphersuite{
		DHFunc:     dh,
		CipherFunc: c,
		HashFunc:   h,
		name:       []byte(dh.DHName() + "_" + c.CipherName() + "_" + h.HashName()),
	}
}

// DefaultCipherSuite is the suite peers of the filesystem negotiate with:
// Curve25519, AES-256-GCM and BLAKE2b-512.
var DefaultCipherSuite = NewCipherSuite(DH25519, CipherAESGCM, HashBLAKE2b)

type ciphersuite struct {
	DHFunc
	CipherFunc
	HashFunc
	name []byte
}

func (s ciphersuite) Name() []byte { return s.name }

// DH25519 is the Curve25519 ECDH function.
var DH25519 DHFunc = dh25519{}

type dh25519 struct{}

func (dh25519) GenerateKeypair(rng io.Reader) (DHKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var secret, public x25519.Key
	if _, err := io.ReadFull(rng, secret[:]); err != nil {
		return DHKey{}, err
	}
	x25519.KeyGen(&public, &secret)
	key := DHKey{
		Private: make([]byte, x25519.Size),
		Public:  make([]byte, x25519.Size),
	}
	copy(key.Private, secret[:])
	copy(key.Public, public[:])
	secureZero(secret[:])
	return key, nil
}

func (dh25519) DH(privkey, pubkey []byte) ([]byte, error) {
	if len(privkey) != x25519.Size || len(pubkey) != x25519.Size {
		return nil, ErrInvalidPublicKey
	}
	var secret, public, shared x25519.Key
	copy(secret[:], privkey)
	copy(public[:], pubkey)
	defer secureZero(secret[:])
	if !x25519.Shared(&shared, &secret, &public) {
		return nil, ErrInvalidPublicKey
	}
	out := make([]byte, x25519.Size)
	copy(out, shared[:])
	secureZero(shared[:])
	return out, nil
}

func (dh25519) DHLen() int     { return x25519.Size }
func (dh25519) DHName() string { return "25519" }

// DHKeyFromPrivate rebuilds a Curve25519 keypair from a stored private key.
// The public key is derived the same way GenerateKeypair derives it.
func DHKeyFromPrivate(priv []byte) (DHKey, error) {
	if len(priv) != x25519.Size {
		return DHKey{}, protocolError("dh key", "private key has length %d", len(priv))
	}
	var secret, public x25519.Key
	copy(secret[:], priv)
	defer secureZero(secret[:])
	x25519.KeyGen(&public, &secret)

	key := DHKey{
		Private: make([]byte, x25519.Size),
		Public:  make([]byte, x25519.Size),
	}
	copy(key.Private, priv)
	copy(key.Public, public[:])
	return key, nil
}

// CipherAESGCM is the AES256-GCM AEAD cipher. The counter is encoded big
// endian in the last eight bytes of the nonce.
var CipherAESGCM CipherFunc = cipherFn{cipherAESGCM, "AESGCM"}

// CipherChaChaPoly is the ChaCha20-Poly1305 AEAD cipher construction.
var CipherChaChaPoly CipherFunc = cipherFn{cipherChaChaPoly, "ChaChaPoly"}

type cipherFn struct {
	fn   func([SymKeyLen]byte) Cipher
	name string
}

func (c cipherFn) Cipher(k [SymKeyLen]byte) Cipher { return c.fn(k) }
func (c cipherFn) CipherName() string              { return c.name }

func cipherAESGCM(k [SymKeyLen]byte) Cipher {
	c, err := aes.NewCipher(k[:])
	if err != nil {
		panic(err)
	}
	gcm, err := cipher.NewGCM(c)
	if err != nil {
		panic(err)
	}
	return aeadCipher{
		gcm,
		func(n uint64) []byte {
			var nonce [12]byte
			binary.BigEndian.PutUint64(nonce[4:], n)
			return nonce[:]
		},
	}
}

func cipherChaChaPoly(k [SymKeyLen]byte) Cipher {
	c, err := chacha20poly1305.New(k[:])
	if err != nil {
		panic(err)
	}
	return aeadCipher{
		c,
		func(n uint64) []byte {
			var nonce [12]byte
			binary.LittleEndian.PutUint64(nonce[4:], n)
			return nonce[:]
		},
	}
}

type aeadCipher struct {
	cipher.AEAD
	nonce func(uint64) []byte
}

func (c aeadCipher) Encrypt(out []byte, n uint64, ad, plaintext []byte) []byte {
	return c.Seal(out, c.nonce(n), plaintext, ad)
}

func (c aeadCipher) Decrypt(out []byte, n uint64, ad, ciphertext []byte) ([]byte, error) {
	return c.Open(out, c.nonce(n), ciphertext, ad)
}

type hashFn struct {
	fn   func() hash.Hash
	name string
}

func (h hashFn) Hash() hash.Hash  { return h.fn() }
func (h hashFn) HashName() string { return h.name }

// HashBLAKE2b is the BLAKE2b-512 hash function.
var HashBLAKE2b HashFunc = hashFn{blake2b512, "BLAKE2b"}

// HashSHA256 is the SHA-256 hash function.
var HashSHA256 HashFunc = hashFn{sha256.New, "SHA256"}

// HashSHA512 is the SHA-512 hash function.
var HashSHA512 HashFunc = hashFn{sha512.New, "SHA512"}

func blake2b512() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic(err)
	}
	return h
}
