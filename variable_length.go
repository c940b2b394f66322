package noise

import (
	"bytes"
	"fmt"
	"io"
)

// A VariableLengthHandshakeState runs a handshake over a raw byte stream
// that has no message framing. Tokens are read straight off the stream and
// every message ends with a pseudorandom terminator derived from the
// transcript, so message lengths never appear on the wire.
type VariableLengthHandshakeState struct {
	*HandshakeState
	framing *terminatorFraming
}

// NewVariableLengthHandshakeState is NewHandshakeState with terminator
// framing.
func NewVariableLengthHandshakeState(c Config) (*VariableLengthHandshakeState, error) {
	f := &terminatorFraming{}
	hs, err := newHandshakeState(c, f)
	if err != nil {
		return nil, err
	}
	return &VariableLengthHandshakeState{HandshakeState: hs, framing: f}, nil
}

// SetSimplePayload installs the payload hooks. Empty payloads cost no bytes
// on the wire: nothing is encrypted and the reader is handed a nil payload.
func (v *VariableLengthHandshakeState) SetSimplePayload(writer PayloadWriter, reader PayloadReader) {
	v.SetPayload(writer, reader)
}

// PreHash returns the transcript hash as it was before the most recently
// received payload was mixed in.
func (v *VariableLengthHandshakeState) PreHash() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.framing.prehash
}

type terminatorFraming struct {
	scanning bool
	term     []byte
	prehash  []byte
}

// terminator derives the end-of-message marker of a round from the current
// transcript hash.
func (f *terminatorFraming) terminator(hs *HandshakeState, round int) []byte {
	label := []byte(fmt.Sprintf("terminator %d", round))
	return expand(hs.cs, label, hs.cs.Hash().Size(), hs.ss.Hash(), nil)
}

func (f *terminatorFraming) openRead(hs *HandshakeState) (int, error) {
	return 0, nil
}

func (f *terminatorFraming) take(hs *HandshakeState, n int) ([]byte, int, error) {
	if len(hs.in) < n {
		return nil, n - len(hs.in), nil
	}
	b := hs.in[:n:n]
	hs.in = hs.in[n:]
	return b, 0, nil
}

func (f *terminatorFraming) writePayload(hs *HandshakeState, round int) error {
	payload := hs.payloadFor(round)
	term := f.terminator(hs, round)

	msg := hs.wmsg
	hs.wmsg = nil
	if len(payload) > 0 {
		if len(payload)+TagLen > maxTerminatorScan {
			return &ProtocolError{Op: "write payload", Err: ErrMessageTooLong}
		}
		var err error
		if msg, err = hs.ss.EncryptAndHash(msg, payload); err != nil {
			return err
		}
	}
	hs.ss.MixHash(term)
	hs.out = append(hs.out, msg...)
	hs.out = append(hs.out, term...)
	return nil
}

func (f *terminatorFraming) readPayload(hs *HandshakeState, round int) (int, error) {
	if !f.scanning {
		f.term = f.terminator(hs, round)
		f.prehash = append([]byte(nil), hs.ss.Hash()...)
		f.scanning = true
	}

	idx := bytes.Index(hs.in, f.term)
	if idx < 0 {
		if len(hs.in) >= maxTerminatorScan+len(f.term) {
			return 0, &DesyncError{Op: "read terminator", Err: fmt.Errorf("no terminator within %d bytes", maxTerminatorScan)}
		}
		return awaitTerminator(hs.in, f.term), nil
	}
	if idx > maxTerminatorScan {
		return 0, &DesyncError{Op: "read terminator", Err: fmt.Errorf("no terminator within %d bytes", maxTerminatorScan)}
	}

	ciphertext := hs.in[:idx]
	hs.in = hs.in[idx+len(f.term):]
	f.scanning = false

	var payload []byte
	if len(ciphertext) > 0 {
		var err error
		if payload, err = hs.ss.DecryptAndHash(nil, ciphertext); err != nil {
			return 0, err
		}
	}
	hs.ss.MixHash(f.term)
	return 0, hs.deliverPayload(round, payload)
}

// eof is always a desync: a suspended handshake is inside a message whose
// terminator has not been seen.
func (f *terminatorFraming) eof(hs *HandshakeState) error {
	return &DesyncError{Op: "read terminator", Err: io.ErrUnexpectedEOF}
}

// awaitTerminator returns how many more bytes must arrive before buf could
// end with term, given the longest suffix of buf that is a prefix of term.
func awaitTerminator(buf, term []byte) int {
	k := len(term) - 1
	if len(buf) < k {
		k = len(buf)
	}
	for ; k > 0; k-- {
		if bytes.Equal(buf[len(buf)-k:], term[:k]) {
			return len(term) - k
		}
	}
	return len(term)
}
