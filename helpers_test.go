package noise

import (
	"io"
)

// randomInc is a deterministic io.Reader producing an incrementing byte
// sequence. Never use it outside tests.
type randomInc byte

func (r *randomInc) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(*r)
		*r = (*r) + 1
	}
	return len(p), nil
}

var _ io.Reader = (*randomInc)(nil)

// pump shuttles bytes between two handshakes until neither has anything to
// say and returns their final states.
func pump(a, b *HandshakeState) (State, State) {
	toB, stA := a.Advance(nil)
	toA, stB := b.Advance(nil)
	for i := 0; i < 16 && (len(toA) > 0 || len(toB) > 0); i++ {
		var outA, outB []byte
		if len(toA) > 0 {
			outA, stA = a.Advance(toA)
		}
		if len(toB) > 0 {
			outB, stB = b.Advance(toB)
		}
		toA, toB = outB, outA
	}
	return stA, stB
}

// keypair generates a Curve25519 keypair from a deterministic seed.
func keypair(seed byte) DHKey {
	rng := randomInc(seed)
	k, err := DH25519.GenerateKeypair(&rng)
	if err != nil {
		panic(err)
	}
	return k
}

func testPSK() []byte {
	psk := make([]byte, 32)
	for i := range psk {
		psk[i] = byte(0xa0 + i)
	}
	return psk
}

// xkPSKConfigs returns matching initiator and responder configs for XKpsk3.
func xkPSKConfigs() (Config, Config) {
	istatic, rstatic := keypair(1), keypair(2)
	irng, rrng := randomInc(10), randomInc(20)
	init := Config{
		Pattern:       HandshakeXKpsk3,
		Initiator:     true,
		Random:        &irng,
		Prologue:      []byte("zksync"),
		PresharedKey:  testPSK(),
		StaticKeypair: istatic,
		PeerStatic:    rstatic.Public,
	}
	resp := Config{
		Pattern:       HandshakeXKpsk3,
		Random:        &rrng,
		Prologue:      []byte("zksync"),
		PresharedKey:  testPSK(),
		StaticKeypair: rstatic,
	}
	return init, resp
}

// xxConfigs returns matching initiator and responder configs for XX.
func xxConfigs() (Config, Config) {
	irng, rrng := randomInc(10), randomInc(20)
	init := Config{
		Pattern:       HandshakeXX,
		Initiator:     true,
		Random:        &irng,
		StaticKeypair: keypair(1),
	}
	resp := Config{
		Pattern:       HandshakeXX,
		Random:        &rrng,
		StaticKeypair: keypair(2),
	}
	return init, resp
}

// completedPair runs an XX handshake to completion.
func completedPair() (*HandshakeResult, *HandshakeResult) {
	ic, rc := xxConfigs()
	init, err := NewHandshakeState(ic)
	if err != nil {
		panic(err)
	}
	resp, err := NewHandshakeState(rc)
	if err != nil {
		panic(err)
	}
	si, sr := pump(init, resp)
	if si.Status != StatusComplete || sr.Status != StatusComplete {
		panic("handshake did not complete")
	}
	return si.Result, sr.Result
}
