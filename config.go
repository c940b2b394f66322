package noise

import (
	"io"
	"runtime"

	"go.opentelemetry.io/otel/trace"
)

// A Config provides the details necessary to process a Noise handshake. It is
// never modified by this package, and can be reused.
type Config struct {
	// CipherSuite is the set of cryptographic primitives that will be used.
	// If nil, DefaultCipherSuite is used.
	CipherSuite CipherSuite

	// Random is the source for cryptographically appropriate random bytes. If
	// zero, it is automatically configured.
	Random io.Reader

	// Pattern is the pattern for the handshake. If its Name is empty,
	// PatternText is parsed instead.
	Pattern HandshakePattern

	// PatternText is the pattern in Noise notation, used when Pattern is unset.
	PatternText string

	// ProtocolName overrides the name mixed into the initial transcript hash.
	// By default it is "Noise_" + pattern name + "_" + cipher suite name.
	ProtocolName string

	// Initiator must be true if the first message in the handshake will be sent
	// by this peer.
	Initiator bool

	// Prologue is an optional message that has already be communicated and must
	// be identical on both sides for the handshake to succeed.
	Prologue []byte

	// PresharedKey is the 32 byte preshared key for patterns containing psk.
	PresharedKey []byte

	// StaticKeypair is this peer's static keypair, required if part of the
	// handshake.
	StaticKeypair DHKey

	// EphemeralKeypair is this peer's ephemeral keypair that was provided as
	// a pre-message in the handshake.
	EphemeralKeypair DHKey

	// PeerStatic is the static public key of the remote peer that was provided
	// as a pre-message in the handshake.
	PeerStatic []byte

	// PeerEphemeral is the ephemeral public key of the remote peer that was
	// provided as a pre-message in the handshake.
	PeerEphemeral []byte

	// RekeyInterval is copied into both transport CipherStates produced by
	// the handshake. Zero disables automatic rekeying.
	RekeyInterval uint64

	// Tracer receives one span per handshake. If nil, the tracer of the
	// global OpenTelemetry provider is used.
	Tracer trace.Tracer
}

// MonitorConfig configures a SecureChannelMonitor.
type MonitorConfig struct {
	// Workers bounds how many channels may be decoding and running callbacks
	// at once. Defaults to runtime.NumCPU().
	Workers int

	// ReadBufferSize is the size of the raw read buffer of each watched
	// channel. Defaults to MaxFrameLen.
	ReadBufferSize int
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = MaxFrameLen
	}
	return c
}
