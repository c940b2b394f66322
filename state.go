// Package noise implements the handshake and transport engine peers of the
// filesystem use to open authenticated, encrypted channels to each other. It
// is a general implementation of revision 34 of the Noise Protocol
// Framework: handshake patterns are written in Noise notation, parsed, and
// interpreted by a HandshakeState that never blocks on I/O. The CipherStates
// it produces drive a SecureChannel, which frames application bytes with
// AEAD and SipHash-obfuscated length headers.
//
// For more details on Noise, visit https://noiseprotocol.org.
package noise

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Status is the coarse state of a HandshakeState.
type Status int

const (
	// StatusRunning means handlers are being executed.
	StatusRunning Status = iota
	// StatusSuspended means the handshake needs more bytes from the peer.
	StatusSuspended
	// StatusComplete means the handshake finished and produced CipherStates.
	StatusComplete
	// StatusFailed means the handshake was aborted. It cannot be resumed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is returned by every call that drives a handshake.
type State struct {
	Status Status

	// Awaiting is the number of further bytes the handshake needs before it
	// can make progress. Only set while suspended. Feeding exactly this many
	// bytes never over-reads into data that follows the handshake.
	Awaiting int

	// Result is set once the handshake is complete.
	Result *HandshakeResult

	// Err is set once the handshake has failed.
	Err error
}

// HandshakeResult holds everything a completed handshake hands to the
// transport.
type HandshakeResult struct {
	// Rx decrypts messages from the peer; Tx encrypts messages to it.
	Rx, Tx *CipherState

	// Secret is a 32 byte key derived alongside Rx and Tx. It seeds the
	// length obfuscation of a SecureChannel.
	Secret []byte

	// HandshakeHash is the final transcript hash, usable as channel binding.
	HandshakeHash []byte

	// PeerStatic is the remote static public key, if the pattern carried one.
	PeerStatic []byte

	// Initiator records which role this side played.
	Initiator bool

	// Leftover holds bytes passed to Advance after the last handshake
	// message. They belong to the transport.
	Leftover []byte
}

// PayloadWriter returns the payload to send after the tokens of a round.
type PayloadWriter func(round int) []byte

// PayloadReader receives the decrypted payload of a round. Returning an error
// fails the handshake.
type PayloadReader func(round int, payload []byte) error

// KeyObfuscator encodes a public key for the wire. The encoding must be
// exactly as long as the key.
type KeyObfuscator func(pub []byte) []byte

// KeyDeobfuscator decodes a public key received from the wire.
type KeyDeobfuscator func(wire []byte) ([]byte, error)

type stepKind uint8

const (
	stepOpen stepKind = iota
	stepToken
	stepPayload
)

type step struct {
	kind  stepKind
	token Token
	write bool
	round int
}

// A HandshakeState tracks the state of a Noise handshake. It is a
// cooperative state machine: Advance runs token handlers until one needs
// bytes that have not arrived yet and then returns, so no goroutine is ever
// parked on the network. It may be discarded after the handshake is complete;
// discarding an unfinished one is how a handshake is cancelled.
type HandshakeState struct {
	mu sync.Mutex

	ss           *symmetricState
	cs           CipherSuite
	s            DHKey  // local static keypair
	e            DHKey  // local ephemeral keypair
	rs           []byte // remote party's static public key
	re           []byte // remote party's ephemeral public key
	psk          []byte // preshared key, maybe zero length
	usePSK       bool
	pattern      HandshakePattern
	protocolName string
	initiator    bool
	rng          io.Reader
	rekey        uint64

	steps []step
	next  int
	round int

	in   []byte // received, not yet consumed
	msg  []byte // body of the message being read
	wmsg []byte // body of the message being written
	out  []byte // produced for the peer, not yet returned

	framing     messageFraming
	obfuscate   KeyObfuscator
	deobfuscate KeyDeobfuscator
	writePay    PayloadWriter
	readPay     PayloadReader
	onError     func(error)
	onComplete  func(*HandshakeResult)

	state  State
	tracer trace.Tracer
	span   trace.Span

	// holdCompletion defers the completion handler until a driver has
	// delivered the last message; heldResult is the completion waiting.
	holdCompletion bool
	heldResult     *HandshakeResult
}

// NewHandshakeState starts a new handshake using the provided configuration.
// The prologue and any premessage keys are mixed into the transcript
// immediately.
func NewHandshakeState(c Config) (*HandshakeState, error) {
	return newHandshakeState(c, lengthPrefixed{})
}

func newHandshakeState(c Config, framing messageFraming) (*HandshakeState, error) {
	pattern := c.Pattern
	if pattern.Name == "" && len(pattern.Messages) == 0 {
		if c.PatternText == "" {
			return nil, protocolError("new handshake", "no handshake pattern configured")
		}
		var err error
		if pattern, err = ParseHandshakePattern(c.PatternText); err != nil {
			return nil, err
		}
	}

	cs := c.CipherSuite
	if cs == nil {
		cs = DefaultCipherSuite
	}

	hs := &HandshakeState{
		cs:          cs,
		s:           c.StaticKeypair,
		pattern:     pattern,
		initiator:   c.Initiator,
		rng:         c.Random,
		rekey:       c.RekeyInterval,
		usePSK:      pattern.UsesPSK(),
		framing:     framing,
		obfuscate:   identityObfuscate,
		deobfuscate: identityDeobfuscate,
		tracer:      c.Tracer,
	}
	if hs.rng == nil {
		hs.rng = rand.Reader
	}
	if len(c.EphemeralKeypair.Public) > 0 || len(c.EphemeralKeypair.Private) > 0 {
		hs.e = DHKey{
			Private: append([]byte(nil), c.EphemeralKeypair.Private...),
			Public:  append([]byte(nil), c.EphemeralKeypair.Public...),
		}
	}
	if len(c.PeerStatic) > 0 {
		hs.rs = append([]byte(nil), c.PeerStatic...)
	}
	if len(c.PeerEphemeral) > 0 {
		hs.re = append([]byte(nil), c.PeerEphemeral...)
	}
	if len(c.PresharedKey) > 0 {
		if err := hs.SetPresharedKey(c.PresharedKey); err != nil {
			return nil, err
		}
	}

	hs.protocolName = c.ProtocolName
	if hs.protocolName == "" {
		hs.protocolName = "Noise_" + pattern.Name + "_" + string(cs.Name())
	}
	hs.ss = newSymmetricState(cs, []byte(hs.protocolName))
	hs.ss.MixHash(c.Prologue)

	if err := hs.mixPremessages(pattern.InitiatorPreMessages, true); err != nil {
		return nil, err
	}
	if err := hs.mixPremessages(pattern.ResponderPreMessages, false); err != nil {
		return nil, err
	}

	hs.compile()
	return hs, nil
}

// mixPremessages hashes the keys a premessage line says both sides already
// know. fromInitiator names the side that owns the keys.
func (hs *HandshakeState) mixPremessages(tokens []Token, fromInitiator bool) error {
	local := fromInitiator == hs.initiator
	for _, t := range tokens {
		var key []byte
		switch {
		case t == TokenS && local:
			key = hs.s.Public
		case t == TokenS:
			key = hs.rs
		case t == TokenE && local:
			key = hs.e.Public
		case t == TokenE:
			key = hs.re
		default:
			return protocolError("premessage", "token %v not allowed in premessage", t)
		}
		if len(key) == 0 {
			return protocolError("premessage", "missing key for premessage token %v (local=%v)", t, local)
		}
		hs.ss.MixHash(key)
	}
	return nil
}

// compile turns the message lines into the ordered handler queue.
func (hs *HandshakeState) compile() {
	for round, line := range hs.pattern.Messages {
		write := line.FromInitiator == hs.initiator
		if !write {
			hs.steps = append(hs.steps, step{kind: stepOpen, round: round})
		}
		for _, t := range line.Tokens {
			hs.steps = append(hs.steps, step{kind: stepToken, token: t, write: write, round: round})
		}
		hs.steps = append(hs.steps, step{kind: stepPayload, write: write, round: round})
	}
}

// SetPresharedKey sets the 32 byte preshared key used by psk tokens.
func (hs *HandshakeState) SetPresharedKey(psk []byte) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if len(psk) != 32 {
		return protocolError("set psk", "preshared key must be 32 bytes, got %d", len(psk))
	}
	// Clear any existing PSK first
	if hs.psk != nil {
		secureZero(hs.psk)
	}
	hs.psk = make([]byte, 32)
	copy(hs.psk, psk)
	return nil
}

// SetPayload installs the payload hooks. Either may be nil, meaning an empty
// payload is sent and received payloads are discarded.
func (hs *HandshakeState) SetPayload(writer PayloadWriter, reader PayloadReader) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.writePay = writer
	hs.readPay = reader
}

// SetObfuscation installs the public key encoding used for e tokens and for
// s tokens sent before any key has been agreed.
func (hs *HandshakeState) SetObfuscation(obfuscator KeyObfuscator, deobfuscator KeyDeobfuscator) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if obfuscator == nil {
		obfuscator = identityObfuscate
	}
	if deobfuscator == nil {
		deobfuscator = identityDeobfuscate
	}
	hs.obfuscate = obfuscator
	hs.deobfuscate = deobfuscator
}

// SetExceptionHandler installs the function called, exactly once, when the
// handshake fails.
func (hs *HandshakeState) SetExceptionHandler(handler func(error)) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.onError = handler
}

// SetCompletionHandler installs the function called when the handshake
// completes.
func (hs *HandshakeState) SetCompletionHandler(handler func(*HandshakeResult)) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.onComplete = handler
}

// Advance feeds bytes received from the peer (possibly none) into the
// handshake and runs handlers until the handshake suspends, completes or
// fails. The returned bytes must be delivered to the peer in order, also when
// the returned state is Complete.
func (hs *HandshakeState) Advance(in []byte) ([]byte, State) {
	hs.mu.Lock()
	if hs.state.Status == StatusComplete || hs.state.Status == StatusFailed {
		st := hs.state
		hs.mu.Unlock()
		return nil, st
	}
	hs.startSpan()
	hs.in = append(hs.in, in...)
	hs.state = State{Status: StatusRunning}

	for hs.next < len(hs.steps) {
		need, err := hs.run(hs.steps[hs.next])
		if err != nil {
			return nil, hs.failLocked(err)
		}
		if need > 0 {
			hs.state = State{Status: StatusSuspended, Awaiting: need}
			out := hs.flush()
			st := hs.state
			hs.mu.Unlock()
			return out, st
		}
		hs.next++
	}
	return hs.completeLocked()
}

// ResumeHandshake continues a suspended handshake with newly received bytes.
func (hs *HandshakeState) ResumeHandshake(in []byte) ([]byte, State) {
	return hs.Advance(in)
}

// EndOfStream tells the handshake that the peer closed its side of the
// connection.
func (hs *HandshakeState) EndOfStream() State {
	hs.mu.Lock()
	if hs.state.Status == StatusComplete || hs.state.Status == StatusFailed {
		st := hs.state
		hs.mu.Unlock()
		return st
	}
	return hs.failLocked(hs.framing.eof(hs))
}

// Abort fails the handshake with err unless it already finished.
func (hs *HandshakeState) Abort(err error) State {
	hs.mu.Lock()
	if hs.state.Status == StatusComplete || hs.state.Status == StatusFailed {
		st := hs.state
		hs.mu.Unlock()
		return st
	}
	return hs.failLocked(err)
}

// State returns the current state without driving the handshake.
func (hs *HandshakeState) State() State {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.state
}

func (hs *HandshakeState) flush() []byte {
	out := hs.out
	hs.out = nil
	return out
}

// run executes one handler. need > 0 means the handler is waiting for that
// many more bytes and has not changed any state.
func (hs *HandshakeState) run(st step) (need int, err error) {
	switch st.kind {
	case stepOpen:
		hs.round = st.round
		return hs.framing.openRead(hs)
	case stepPayload:
		hs.round = st.round
		if st.write {
			return 0, hs.framing.writePayload(hs, st.round)
		}
		return hs.framing.readPayload(hs, st.round)
	}

	hs.round = st.round
	if st.write {
		return 0, hs.writeToken(st.token)
	}
	return hs.readToken(st.token)
}

func (hs *HandshakeState) writeToken(t Token) error {
	switch t {
	case TokenE:
		e, err := hs.cs.GenerateKeypair(hs.rng)
		if err != nil {
			return protocolError("write e", "generate ephemeral: %v", err)
		}
		hs.e.Destroy()
		hs.e = e
		wire := hs.obfuscate(hs.e.Public)
		if len(wire) != len(hs.e.Public) {
			return protocolError("write e", "obfuscated key has length %d", len(wire))
		}
		hs.wmsg = append(hs.wmsg, wire...)
		hs.ss.MixHash(wire)
		if hs.usePSK {
			hs.ss.MixKey(hs.e.Public)
		}
	case TokenS:
		if len(hs.s.Public) == 0 {
			return protocolError("write s", "invalid state, s.Public is nil")
		}
		if hs.ss.HasKey() {
			var err error
			hs.wmsg, err = hs.ss.EncryptAndHash(hs.wmsg, hs.s.Public)
			if err != nil {
				return err
			}
			return nil
		}
		wire := hs.obfuscate(hs.s.Public)
		if len(wire) != len(hs.s.Public) {
			return protocolError("write s", "obfuscated key has length %d", len(wire))
		}
		hs.wmsg = append(hs.wmsg, wire...)
		hs.ss.MixHash(wire)
	case TokenEE, TokenES, TokenSE, TokenSS:
		return hs.mixDH(t)
	case TokenPSK:
		return hs.mixPSK()
	default:
		return protocolError("write message", "unknown token %v", t)
	}
	return nil
}

func (hs *HandshakeState) readToken(t Token) (int, error) {
	switch t {
	case TokenE:
		if len(hs.re) > 0 {
			return 0, protocolError("read e", "invalid state, re is not nil")
		}
		wire, need, err := hs.framing.take(hs, hs.cs.DHLen())
		if need > 0 || err != nil {
			return need, err
		}
		pub, err := hs.deobfuscate(wire)
		if err != nil {
			return 0, protocolError("read e", "deobfuscate: %v", err)
		}
		hs.ss.MixHash(wire)
		hs.re = pub
		if hs.usePSK {
			hs.ss.MixKey(hs.re)
		}
	case TokenS:
		if len(hs.rs) > 0 {
			return 0, protocolError("read s", "invalid state, rs is not nil")
		}
		if hs.ss.HasKey() {
			ciphertext, need, err := hs.framing.take(hs, hs.cs.DHLen()+TagLen)
			if need > 0 || err != nil {
				return need, err
			}
			rs, err := hs.ss.DecryptAndHash(nil, ciphertext)
			if err != nil {
				return 0, err
			}
			hs.rs = rs
			return 0, nil
		}
		wire, need, err := hs.framing.take(hs, hs.cs.DHLen())
		if need > 0 || err != nil {
			return need, err
		}
		pub, err := hs.deobfuscate(wire)
		if err != nil {
			return 0, protocolError("read s", "deobfuscate: %v", err)
		}
		hs.ss.MixHash(wire)
		hs.rs = pub
	case TokenEE, TokenES, TokenSE, TokenSS:
		return 0, hs.mixDH(t)
	case TokenPSK:
		return 0, hs.mixPSK()
	default:
		return 0, protocolError("read message", "unknown token %v", t)
	}
	return 0, nil
}

// dhOperands picks the local private and remote public key a DH token
// combines. The first letter names the initiator's key and the second the
// responder's.
func (hs *HandshakeState) dhOperands(t Token) (priv, pub []byte) {
	switch t {
	case TokenEE:
		return hs.e.Private, hs.re
	case TokenES:
		if hs.initiator {
			return hs.e.Private, hs.rs
		}
		return hs.s.Private, hs.re
	case TokenSE:
		if hs.initiator {
			return hs.s.Private, hs.re
		}
		return hs.e.Private, hs.rs
	case TokenSS:
		return hs.s.Private, hs.rs
	}
	return nil, nil
}

func (hs *HandshakeState) mixDH(t Token) error {
	priv, pub := hs.dhOperands(t)
	if len(priv) == 0 || len(pub) == 0 {
		return protocolError(t.String(), "missing key material")
	}
	dh, err := hs.cs.DH(priv, pub)
	if err != nil {
		return &ProtocolError{Op: t.String(), Err: err}
	}
	defer secureZero(dh)
	hs.ss.MixKey(dh)
	return nil
}

func (hs *HandshakeState) mixPSK() error {
	if len(hs.psk) == 0 {
		return protocolError("psk", "cannot process psk token without psk set")
	}
	hs.ss.MixKeyAndHash(hs.psk)
	return nil
}

func (hs *HandshakeState) payloadFor(round int) []byte {
	if hs.writePay == nil {
		return nil
	}
	return hs.writePay(round)
}

func (hs *HandshakeState) deliverPayload(round int, payload []byte) error {
	if hs.readPay == nil {
		return nil
	}
	if err := hs.readPay(round, payload); err != nil {
		return &ProtocolError{Op: "read payload", Err: err}
	}
	return nil
}

// completeLocked splits the symmetric state and releases hs.mu.
func (hs *HandshakeState) completeLocked() ([]byte, State) {
	c1, c2, secret, err := hs.ss.Split()
	if err != nil {
		return nil, hs.failLocked(err)
	}
	hs.e.Destroy()
	hs.wipePSK()

	rx, tx := c1, c2
	if !hs.initiator {
		rx, tx = c2, c1
	}
	rx.SetRekeyInterval(hs.rekey)
	tx.SetRekeyInterval(hs.rekey)

	res := &HandshakeResult{
		Rx:            rx,
		Tx:            tx,
		Secret:        secret,
		HandshakeHash: append([]byte(nil), hs.ss.Hash()...),
		PeerStatic:    hs.rs,
		Initiator:     hs.initiator,
	}
	if len(hs.in) > 0 {
		res.Leftover = hs.in
		hs.in = nil
	}
	hs.state = State{Status: StatusComplete, Result: res}
	out := hs.flush()
	st := hs.state
	if hs.holdCompletion {
		hs.heldResult = res
		hs.mu.Unlock()
		return out, st
	}
	hs.endSpan(nil)
	onComplete := hs.onComplete
	hs.mu.Unlock()

	hs.announce(res, onComplete)
	return out, st
}

func (hs *HandshakeState) announce(res *HandshakeResult, onComplete func(*HandshakeResult)) {
	log.WithFields(logrus.Fields{
		"function":  "Advance",
		"protocol":  hs.protocolName,
		"initiator": hs.initiator,
		"peer":      keyPrefix(res.PeerStatic),
	}).Debug("Handshake complete")

	if onComplete != nil {
		onComplete(res)
	}
}

// releaseCompletion reports a held completion once its last message is on
// the wire.
func (hs *HandshakeState) releaseCompletion() {
	hs.mu.Lock()
	hs.holdCompletion = false
	res := hs.heldResult
	hs.heldResult = nil
	if res == nil {
		hs.mu.Unlock()
		return
	}
	hs.endSpan(nil)
	onComplete := hs.onComplete
	hs.mu.Unlock()

	hs.announce(res, onComplete)
}

// revokeCompletion fails a held completion whose last message could not be
// delivered. The transport keys are destroyed before the exception handler
// runs.
func (hs *HandshakeState) revokeCompletion(err error) State {
	hs.mu.Lock()
	hs.holdCompletion = false
	res := hs.heldResult
	hs.heldResult = nil
	if res == nil {
		hs.mu.Unlock()
		return hs.Abort(err)
	}
	res.Rx.Destroy()
	res.Tx.Destroy()
	secureZero(res.Secret)
	return hs.failLocked(err)
}

// failLocked records err, wipes secrets and releases hs.mu. The exception
// handler runs once because a failed state is terminal.
func (hs *HandshakeState) failLocked(err error) State {
	hs.state = State{Status: StatusFailed, Err: err}
	hs.e.Destroy()
	hs.wipePSK()
	hs.ss.cipher.Destroy()
	secureZero(hs.ss.ck)
	hs.out, hs.wmsg, hs.msg, hs.in = nil, nil, nil, nil
	hs.endSpan(err)
	st := hs.state
	onError := hs.onError
	hs.mu.Unlock()

	log.WithFields(logrus.Fields{
		"function":  "Advance",
		"protocol":  hs.protocolName,
		"initiator": hs.initiator,
		"round":     hs.round,
		"error":     err,
	}).Warn("Handshake failed")

	if onError != nil {
		onError(err)
	}
	return st
}

func (hs *HandshakeState) wipePSK() {
	secureZero(hs.psk)
	hs.psk = nil
}

// ChannelBinding provides a value that uniquely identifies the session and can
// be used as a channel binding. It is an error to call this method before the
// handshake is complete.
func (hs *HandshakeState) ChannelBinding() []byte {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.ss.h
}

// PeerStatic returns the static key provided by the remote peer during
// a handshake. It is an error to call this method if a handshake message
// containing a static key has not been read.
func (hs *HandshakeState) PeerStatic() []byte {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.rs
}

// MessageIndex returns the current handshake message id
func (hs *HandshakeState) MessageIndex() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.round
}

// PeerEphemeral returns the ephemeral key provided by the remote peer during
// a handshake.
func (hs *HandshakeState) PeerEphemeral() []byte {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.re
}

// LocalEphemeral returns the local ephemeral key pair generated during
// a handshake. Its private half is gone once the handshake has finished.
func (hs *HandshakeState) LocalEphemeral() DHKey {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.e
}

// ProtocolName returns the name mixed into the initial transcript hash.
func (hs *HandshakeState) ProtocolName() string {
	return hs.protocolName
}

func identityObfuscate(pub []byte) []byte {
	return append([]byte(nil), pub...)
}

func identityDeobfuscate(wire []byte) ([]byte, error) {
	return append([]byte(nil), wire...), nil
}

// messageFraming decides how handshake messages are delimited on the wire.
type messageFraming interface {
	// openRead prepares the next incoming message.
	openRead(hs *HandshakeState) (need int, err error)
	// take consumes exactly n bytes of the incoming message.
	take(hs *HandshakeState, n int) (b []byte, need int, err error)
	// writePayload appends the payload to the outgoing message and emits it.
	writePayload(hs *HandshakeState, round int) error
	// readPayload consumes and delivers the rest of the incoming message.
	readPayload(hs *HandshakeState, round int) (need int, err error)
	// eof returns the error for a stream that ended mid-handshake.
	eof(hs *HandshakeState) error
}

// lengthPrefixed frames each handshake message as a big endian uint16
// length followed by the Noise message: token bytes then
// EncryptAndHash(payload).
type lengthPrefixed struct{}

func (lengthPrefixed) openRead(hs *HandshakeState) (int, error) {
	if len(hs.in) < headerLen {
		return headerLen - len(hs.in), nil
	}
	n := int(binary.BigEndian.Uint16(hs.in))
	if len(hs.in) < headerLen+n {
		return headerLen + n - len(hs.in), nil
	}
	hs.msg = append(hs.msg[:0], hs.in[headerLen:headerLen+n]...)
	hs.in = hs.in[headerLen+n:]
	return 0, nil
}

func (lengthPrefixed) take(hs *HandshakeState, n int) ([]byte, int, error) {
	if len(hs.msg) < n {
		return nil, 0, &DesyncError{Op: "read message", Err: ErrShortMessage}
	}
	b := hs.msg[:n]
	hs.msg = hs.msg[n:]
	return b, 0, nil
}

func (lengthPrefixed) writePayload(hs *HandshakeState, round int) error {
	msg, err := hs.ss.EncryptAndHash(hs.wmsg, hs.payloadFor(round))
	if err != nil {
		return err
	}
	hs.wmsg = nil
	if len(msg) > MaxMsgLen {
		return &ProtocolError{Op: "write message", Err: ErrMessageTooLong}
	}
	var header [headerLen]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(msg)))
	hs.out = append(hs.out, header[:]...)
	hs.out = append(hs.out, msg...)
	return nil
}

func (lengthPrefixed) readPayload(hs *HandshakeState, round int) (int, error) {
	payload, err := hs.ss.DecryptAndHash(nil, hs.msg)
	if err != nil {
		return 0, err
	}
	hs.msg = nil
	return 0, hs.deliverPayload(round, payload)
}

func (lengthPrefixed) eof(hs *HandshakeState) error {
	return &TransportError{Op: "read message", Err: io.ErrUnexpectedEOF}
}
