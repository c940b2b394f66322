package noise

// A symmetricState holds the chaining key and transcript hash of a handshake
// together with the CipherState that encrypts handshake payloads.
type symmetricState struct {
	cs     CipherSuite
	cipher *CipherState
	ck     []byte
	h      []byte
	split  bool
}

// newSymmetricState initializes the symmetric state with a protocol name.
func newSymmetricState(cs CipherSuite, protocolName []byte) *symmetricState {
	s := &symmetricState{cs: cs, cipher: NewCipherState(cs)}
	h := cs.Hash()
	if len(protocolName) <= h.Size() {
		s.h = make([]byte, h.Size())
		copy(s.h, protocolName)
	} else {
		h.Write(protocolName)
		s.h = h.Sum(nil)
	}
	s.ck = make([]byte, len(s.h))
	copy(s.ck, s.h)
	return s
}

// MixKey mixes input key material, usually a DH output, into the chaining key
// and rekeys the handshake cipher.
func (s *symmetricState) MixKey(ikm []byte) {
	okm, out := hkdfSplit(s.cs, s.ck, ikm, 2)
	defer okm.wipe()
	copy(s.ck, out[0])
	s.cipher.InitializeKey(out[1][:SymKeyLen])
}

// MixHash appends data to the transcript hash.
func (s *symmetricState) MixHash(data []byte) {
	h := s.cs.Hash()
	h.Write(s.h)
	h.Write(data)
	s.h = h.Sum(s.h[:0])
}

// MixKeyAndHash mixes data with both the chaining key and handshake hash.
func (s *symmetricState) MixKeyAndHash(ikm []byte) {
	okm, out := hkdfSplit(s.cs, s.ck, ikm, 3)
	defer okm.wipe()
	copy(s.ck, out[0])
	s.MixHash(out[1])
	s.cipher.InitializeKey(out[2][:SymKeyLen])
}

// EncryptAndHash encrypts plaintext under the current transcript hash and
// mixes the ciphertext into the transcript.
func (s *symmetricState) EncryptAndHash(out, plaintext []byte) ([]byte, error) {
	ciphertext, err := s.cipher.Encrypt(out, s.h, plaintext)
	if err != nil {
		return nil, err
	}
	s.MixHash(ciphertext[len(out):])
	return ciphertext, nil
}

// DecryptAndHash decrypts data and mixes the ciphertext, not the plaintext,
// into the transcript so both sides hash identical bytes.
func (s *symmetricState) DecryptAndHash(out, data []byte) ([]byte, error) {
	plaintext, err := s.cipher.Decrypt(out, s.h, data)
	if err != nil {
		return nil, err
	}
	s.MixHash(data)
	return plaintext, nil
}

// HasKey reports whether the handshake cipher has been keyed yet.
func (s *symmetricState) HasKey() bool {
	return s.cipher.HasKey()
}

// Hash returns the transcript hash.
func (s *symmetricState) Hash() []byte {
	return s.h
}

// Split ends the handshake: it returns the two transport CipherStates plus an
// auxiliary secret derived from the third HKDF output, then zeroes the
// chaining key and the handshake cipher.
func (s *symmetricState) Split() (*CipherState, *CipherState, []byte, error) {
	if s.split {
		return nil, nil, nil, &ProtocolError{Op: "split", Err: ErrSymmetricStateSplit}
	}
	okm, out := hkdfSplit(s.cs, s.ck, nil, 3)
	defer okm.wipe()

	c1, c2 := NewCipherState(s.cs), NewCipherState(s.cs)
	c1.InitializeKey(out[0][:SymKeyLen])
	c2.InitializeKey(out[1][:SymKeyLen])
	secret := append([]byte(nil), out[2][:SymKeyLen]...)

	// Zero the chaining key as it's no longer needed after split
	secureZero(s.ck)
	s.cipher.Destroy()
	s.split = true
	return c1, c2, secret, nil
}
