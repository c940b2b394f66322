package noise

import (
	"errors"
	"math"
)

// MaxNonce is the maximum value of n that is allowed. ErrMaxNonce is returned
// by Encrypt and Decrypt after this has been reached. 2^64-1 is reserved for rekeys.
const MaxNonce = uint64(math.MaxUint64) - 1

// MaxMsgLen is the maximum number of bytes that can be sent in a single Noise
// handshake message. It is also the largest value the 16-bit handshake length
// header can carry.
const MaxMsgLen = 65535

// MaxFrameLen is the maximum number of plaintext bytes carried by a single
// SecureChannel frame.
const MaxFrameLen = 65536

// Key and tag sizes of the primitives this package is built for.
const (
	// SymKeyLen is the length of a symmetric cipher key.
	SymKeyLen = 32

	// TagLen is the length of the AEAD authentication tag appended to every
	// ciphertext.
	TagLen = 16

	// DHKeyLen is the length of a Curve25519 public or private key.
	DHKeyLen = 32

	// headerLen is the size of the length prefix of handshake messages and
	// transport frames.
	headerLen = 2

	// maxTerminatorScan bounds how many bytes a VariableLengthHandshakeState
	// reader buffers while looking for a terminator.
	maxTerminatorScan = MaxFrameLen
)

// Sentinel errors used throughout the package.
var ErrMaxNonce = errors.New("noise: cipherstate has reached maximum n, a new handshake must be performed")
var ErrShortMessage = errors.New("noise: message is too short")
var ErrMessageTooLong = errors.New("noise: message exceeds maximum length")
var ErrNoKey = errors.New("noise: cipherstate has no key")
var ErrSymmetricStateSplit = errors.New("noise: symmetric state has already been split")
var ErrChannelClosed = errors.New("noise: secure channel is closed")
var ErrMonitorClosed = errors.New("noise: channel monitor is closed")
