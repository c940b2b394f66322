package noise

import (
	"hash"
	"io"
)

// A DHFunc is the key agreement primitive of a cipher suite.
type DHFunc interface {
	// GenerateKeypair draws a private key from random and derives its public
	// key.
	GenerateKeypair(random io.Reader) (DHKey, error)

	// DH returns the shared secret of privkey and pubkey. It fails when the
	// peer key is malformed or the result is all zeros.
	DH(privkey, pubkey []byte) ([]byte, error)

	// DHLen is the length of public keys and shared secrets.
	DHLen() int

	// DHName appears in the protocol name, e.g. "25519".
	DHName() string
}

// A HashFunc supplies the transcript hash and the hash under HMAC and HKDF.
type HashFunc interface {
	Hash() hash.Hash
	HashName() string
}

// A CipherFunc builds keyed AEAD instances.
type CipherFunc interface {
	Cipher(k [SymKeyLen]byte) Cipher
	CipherName() string
}

// A Cipher is an AEAD keyed with one transport or handshake key. The 64-bit
// counter n is serialized into the cipher's nonce by the implementation; tags
// are TagLen bytes and appended to the ciphertext.
type Cipher interface {
	// Encrypt appends the sealed plaintext and its tag to out.
	Encrypt(out []byte, n uint64, ad, plaintext []byte) []byte

	// Decrypt verifies the tag and appends the plaintext to out. Nothing is
	// appended when verification fails.
	Decrypt(out []byte, n uint64, ad, ciphertext []byte) ([]byte, error)
}

// A CipherSuite is the set of cryptographic primitives every component of
// this package is handed explicitly. It should be constructed with
// NewCipherSuite.
type CipherSuite interface {
	DHFunc
	CipherFunc
	HashFunc
	Name() []byte
}
