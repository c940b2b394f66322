package noise

import (
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A SecureChannel carries application bytes over conn once a handshake has
// completed. Every frame is
//
//	[uint16 (plaintext length - 1) XOR SipHash mask][AEAD ciphertext]
//
// and holds between 1 and MaxFrameLen bytes of plaintext. Read and Write may
// be called concurrently with each other; concurrent Reads (or Writes) are
// serialized.
type SecureChannel struct {
	conn io.ReadWriteCloser
	obf  *SipObfuscator

	rmu     sync.Mutex
	dec     frameDecoder
	cached  []byte
	scratch []byte

	wmu sync.Mutex
	tx  *CipherState

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewSecureChannel wraps conn. rx and tx must be keyed: a CipherState without
// a key would pass application data through in the clear.
func NewSecureChannel(conn io.ReadWriteCloser, rx, tx *CipherState, obf *SipObfuscator) (*SecureChannel, error) {
	if rx == nil || tx == nil || !rx.HasKey() || !tx.HasKey() {
		return nil, &ProtocolError{Op: "new secure channel", Err: ErrNoKey}
	}
	if obf == nil {
		return nil, protocolError("new secure channel", "no length obfuscator")
	}
	return &SecureChannel{
		conn: conn,
		obf:  obf,
		tx:   tx,
		dec:  frameDecoder{rx: rx, mask: obf.Read()},
	}, nil
}

// NewSecureChannelFromResult wraps conn with the CipherStates of a completed
// handshake. The length obfuscator is seeded from the handshake secret, and
// bytes the handshake received past its last message are read first.
func NewSecureChannelFromResult(conn io.ReadWriteCloser, res *HandshakeResult) (*SecureChannel, error) {
	if res == nil || len(res.Secret) == 0 {
		return nil, protocolError("new secure channel", "handshake result has no secret")
	}
	if len(res.Leftover) > 0 {
		conn = &prefixedConn{ReadWriteCloser: conn, prefix: res.Leftover}
	}
	cs := DefaultCipherSuite
	if res.Rx != nil && res.Rx.cs != nil {
		cs = res.Rx.cs
	}
	return NewSecureChannel(conn, res.Rx, res.Tx, NewSipObfuscator(cs, res.Secret, res.Initiator))
}

// Write encrypts p into as many frames as it takes and writes them to the
// underlying connection. An empty p sends nothing.
func (c *SecureChannel) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.closed.Load() {
		return 0, &TransportError{Op: "write", Err: ErrChannelClosed}
	}

	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > MaxFrameLen {
			chunk = chunk[:MaxFrameLen]
		}
		frame := make([]byte, headerLen, headerLen+len(chunk)+TagLen)
		binary.BigEndian.PutUint16(frame, c.obf.Write().Obfuscate2(uint16(len(chunk)-1)))
		frame, err := c.tx.Encrypt(frame, nil, chunk)
		if err != nil {
			return written, err
		}
		if err := writeFull(c.conn, frame); err != nil {
			return written, &TransportError{Op: "write", Err: errors.Wrap(err, "write frame")}
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// Read returns decrypted application bytes. Plaintext that does not fit in p
// is kept for the next call. If the connection returns no data, or times out,
// Read returns with the partial frame retained so a later call can resume.
// A frame that fails authentication closes the channel.
func (c *SecureChannel) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if len(c.cached) > 0 {
		n := copy(p, c.cached)
		c.cached = c.cached[n:]
		return n, nil
	}
	if c.closed.Load() {
		return 0, &TransportError{Op: "read", Err: ErrChannelClosed}
	}
	if len(p) == 0 {
		return 0, nil
	}

	for {
		need := c.dec.need()
		if cap(c.scratch) < need {
			c.scratch = make([]byte, headerLen+MaxFrameLen+TagLen)
		}
		n, err := c.conn.Read(c.scratch[:need])
		c.dec.fill(c.scratch[:n])

		plaintext, ok, derr := c.dec.next()
		if derr != nil {
			c.authFailed(derr)
			return 0, derr
		}
		if ok {
			n := copy(p, plaintext)
			c.cached = plaintext[n:]
			return n, nil
		}

		if err != nil {
			if err == io.EOF {
				if c.dec.empty() {
					return 0, io.EOF
				}
				err = io.ErrUnexpectedEOF
			}
			return 0, &TransportError{Op: "read", Err: errors.Wrap(err, "read frame")}
		}
		if n == 0 {
			return 0, nil
		}
	}
}

// absorb decodes raw bytes already read from the connection and returns the
// plaintext of every frame they complete.
func (c *SecureChannel) absorb(raw []byte) ([][]byte, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	var out [][]byte
	if len(c.cached) > 0 {
		out = append(out, c.cached)
		c.cached = nil
	}
	for len(raw) > 0 {
		raw = raw[c.dec.fill(raw):]
		plaintext, ok, err := c.dec.next()
		if err != nil {
			c.authFailed(err)
			return out, err
		}
		if ok {
			out = append(out, plaintext)
		}
	}
	return out, nil
}

func (c *SecureChannel) authFailed(err error) {
	log.WithFields(logrus.Fields{
		"function": "SecureChannel.Read",
		"error":    err,
	}).Warn("Closing secure channel after failed frame")
	c.Close()
}

// IsOpen reports whether Close has not been called.
func (c *SecureChannel) IsOpen() bool {
	return !c.closed.Load()
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *SecureChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// WriteChannel returns a write-only view of c.
func (c *SecureChannel) WriteChannel() *SecureWriteChannel {
	return &SecureWriteChannel{ch: c}
}

// A SecureWriteChannel exposes only the sending half of a SecureChannel.
type SecureWriteChannel struct {
	ch *SecureChannel
}

func (w *SecureWriteChannel) Write(p []byte) (int, error) { return w.ch.Write(p) }

func (w *SecureWriteChannel) Close() error { return w.ch.Close() }

func (w *SecureWriteChannel) IsOpen() bool { return w.ch.IsOpen() }

// frameDecoder reassembles frames from arbitrarily split input.
type frameDecoder struct {
	rx   *CipherState
	mask *SipState
	buf  []byte
	want int // full frame length, 0 until the header is complete
}

// need is the number of bytes that would complete the header or the frame.
func (d *frameDecoder) need() int {
	if d.want == 0 {
		return headerLen - len(d.buf)
	}
	return d.want - len(d.buf)
}

func (d *frameDecoder) empty() bool {
	return len(d.buf) == 0
}

// fill consumes at most need() bytes of p and reports how many it took.
func (d *frameDecoder) fill(p []byte) int {
	n := d.need()
	if n > len(p) {
		n = len(p)
	}
	d.buf = append(d.buf, p[:n]...)
	if d.want == 0 && len(d.buf) == headerLen {
		plaintextLen := int(d.mask.Obfuscate2(binary.BigEndian.Uint16(d.buf))) + 1
		d.want = headerLen + plaintextLen + TagLen
	}
	return n
}

// next decrypts the buffered frame once it is complete.
func (d *frameDecoder) next() ([]byte, bool, error) {
	if d.want == 0 || len(d.buf) < d.want {
		return nil, false, nil
	}
	plaintext, err := d.rx.Decrypt(nil, nil, d.buf[headerLen:])
	if err != nil {
		return nil, false, err
	}
	d.buf = d.buf[:0]
	d.want = 0
	return plaintext, true, nil
}

// prefixedConn serves prefix before reading from the wrapped connection.
type prefixedConn struct {
	io.ReadWriteCloser
	prefix []byte
}

func (p *prefixedConn) Read(b []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]
		return n, nil
	}
	return p.ReadWriteCloser.Read(b)
}
