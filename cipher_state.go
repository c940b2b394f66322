package noise

import (
	"math"
)

// A CipherState holds one symmetric key and its nonce counter. During the
// handshake it lives inside a SymmetricState; afterwards Split hands one to
// each direction of a SecureChannel. A CipherState is not safe for concurrent
// use; each one has a single owner.
type CipherState struct {
	cs   CipherSuite
	c    Cipher
	k    [SymKeyLen]byte
	n    uint64
	hasK bool

	rekeyInterval uint64
	destroyed     bool
}

// NewCipherState returns a CipherState without a key. Until InitializeKey is
// called it passes data through unchanged.
func NewCipherState(cs CipherSuite) *CipherState {
	return &CipherState{cs: cs}
}

// UnsafeNewCipherState reconstructs a CipherState from exported components.
// It is important that, when resuming from an exported state, care is taken
// to synchronize the nonce state and not allow rollbacks.
func UnsafeNewCipherState(cs CipherSuite, k [SymKeyLen]byte, n uint64) *CipherState {
	return &CipherState{
		cs:   cs,
		c:    cs.Cipher(k),
		k:    k,
		n:    n,
		hasK: true,
	}
}

// InitializeKey replaces the key with the first SymKeyLen bytes of key and
// resets the nonce.
func (s *CipherState) InitializeKey(key []byte) {
	secureZero(s.k[:])
	copy(s.k[:], key)
	s.c = s.cs.Cipher(s.k)
	s.n = 0
	s.hasK = true
	s.destroyed = false
}

// HasKey reports whether a key has been set.
func (s *CipherState) HasKey() bool {
	return s.hasK
}

// Encrypt encrypts the plaintext and then appends the ciphertext and an
// authentication tag across the ciphertext and optional authenticated data to
// out. This method automatically increments the nonce after every call, so
// messages must be decrypted in the same order. ErrMaxNonce is returned after
// the maximum nonce of 2^64-2 is reached. Without a key the plaintext is
// appended unchanged and the nonce does not move.
func (s *CipherState) Encrypt(out, ad, plaintext []byte) ([]byte, error) {
	if s.destroyed {
		return nil, &ProtocolError{Op: "encrypt", Err: ErrNoKey}
	}
	if !s.hasK {
		return append(out, plaintext...), nil
	}
	if s.n > MaxNonce {
		return nil, ErrMaxNonce
	}
	if s.rekeyDue() {
		s.Rekey()
	}
	out = s.c.Encrypt(out, s.n, ad, plaintext)
	s.n++
	return out, nil
}

// Decrypt checks the authenticity of the ciphertext and authenticated data and
// then decrypts and appends the plaintext to out. The nonce, and any rekey
// due at this message, only take effect once the tag has verified, so a
// forged message leaves the state untouched.
func (s *CipherState) Decrypt(out, ad, ciphertext []byte) ([]byte, error) {
	if s.destroyed {
		return nil, &ProtocolError{Op: "decrypt", Err: ErrNoKey}
	}
	if !s.hasK {
		return append(out, ciphertext...), nil
	}
	if s.n > MaxNonce {
		return nil, ErrMaxNonce
	}

	c := s.c
	var next [SymKeyLen]byte
	rekeyed := s.rekeyDue()
	if rekeyed {
		next, c = s.nextKey()
	}
	out, err := c.Decrypt(out, s.n, ad, ciphertext)
	if err != nil {
		secureZero(next[:])
		return nil, &AuthenticationError{Op: "decrypt", Err: err}
	}
	if rekeyed {
		s.k = next
		s.c = c
		secureZero(next[:])
	}
	s.n++
	return out, nil
}

func (s *CipherState) rekeyDue() bool {
	return s.rekeyInterval > 0 && (s.n+1)%s.rekeyInterval == 0
}

// Nonce returns the current value of n. This can be used to determine if a
// new handshake should be performed due to approaching MaxNonce.
func (s *CipherState) Nonce() uint64 {
	return s.n
}

// SetNonce sets the current value of n.
func (s *CipherState) SetNonce(n uint64) {
	s.n = n
}

// SetRekeyInterval makes the CipherState rekey itself in front of every
// message whose nonce n satisfies (n+1) % interval == 0. Zero disables it.
func (s *CipherState) SetRekeyInterval(interval uint64) {
	s.rekeyInterval = interval
}

// RekeyInterval returns the automatic rekey interval.
func (s *CipherState) RekeyInterval() uint64 {
	return s.rekeyInterval
}

// UnsafeKey returns the current value of k. This exports the current key for the
// CipherState. Intended to be used alongside UnsafeNewCipherState to resume a
// CipherState at a later point.
func (s *CipherState) UnsafeKey() [SymKeyLen]byte {
	return s.k
}

// Rekey advances the key material and securely zeros intermediate values.
func (s *CipherState) Rekey() {
	if !s.hasK {
		return
	}
	s.k, s.c = s.nextKey()
}

// nextKey computes REKEY(k): the first SymKeyLen bytes of ENCRYPT(k, 2^64-1,
// zerolen, zeros).
func (s *CipherState) nextKey() ([SymKeyLen]byte, Cipher) {
	var zeros [SymKeyLen]byte
	out := sensitive(s.c.Encrypt(nil, math.MaxUint64, []byte{}, zeros[:]))
	defer out.wipe()

	var k [SymKeyLen]byte
	copy(k[:], out[:SymKeyLen])
	return k, s.cs.Cipher(k)
}

// Destroy zeroes the key. A destroyed CipherState refuses to encrypt or
// decrypt rather than falling back to pass-through.
func (s *CipherState) Destroy() {
	secureZero(s.k[:])
	s.c = nil
	s.hasK = false
	s.destroyed = true
}
