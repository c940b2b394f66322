package noise

import (
	"encoding/binary"

	"github.com/dchest/siphash"
)

// A SipObfuscator masks the 16-bit length headers of a SecureChannel with a
// SipHash keystream, as NTCP2 does. Each direction has its own SipState; the
// initiator's write state matches the responder's read state.
type SipObfuscator struct {
	read, write *SipState
}

// A SipState is one direction of a SipObfuscator. Both ends of a direction
// must draw from it in lockstep, one value per frame.
type SipState struct {
	k0, k1 uint64
	iv     uint64
}

// NewSipObfuscator derives both directions from ikm, normally the auxiliary
// secret of a completed handshake.
func NewSipObfuscator(cs HashFunc, ikm []byte, initiator bool) *SipObfuscator {
	key1 := authenticate(cs, ikm, []byte{0x01})
	key2 := authenticate(cs, ikm, append(append([]byte(nil), key1...), 0x02))
	defer secureZero(key1)
	defer secureZero(key2)

	if initiator {
		return &SipObfuscator{read: newSipState(cs, key1), write: newSipState(cs, key2)}
	}
	return &SipObfuscator{write: newSipState(cs, key1), read: newSipState(cs, key2)}
}

func newSipState(cs HashFunc, seed []byte) *SipState {
	material := sensitive(expand(cs, seed, 16+8, nil, []byte("siphash")))
	defer material.wipe()
	return &SipState{
		k0: binary.LittleEndian.Uint64(material[0:8]),
		k1: binary.LittleEndian.Uint64(material[8:16]),
		iv: binary.BigEndian.Uint64(material[16:24]),
	}
}

// Read returns the state that unmasks received headers.
func (o *SipObfuscator) Read() *SipState { return o.read }

// Write returns the state that masks sent headers.
func (o *SipObfuscator) Write() *SipState { return o.write }

// Obfuscate2 XORs v with the low 16 bits of the next keystream value. It is
// its own inverse for a peer whose state is at the same position.
func (s *SipState) Obfuscate2(v uint16) uint16 {
	return uint16(s.nextKey()) ^ v
}

// nextKey chains the IV through SipHash-2-4: iv = siphash(key, iv).
func (s *SipState) nextKey() uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.iv)
	s.iv = siphash.Hash(s.k0, s.k1, buf[:])
	return s.iv
}
