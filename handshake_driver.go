package noise

import (
	"context"
	"errors"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/zksync-go/noise"

// startSpan opens the handshake span on the first Advance. Caller holds hs.mu.
func (hs *HandshakeState) startSpan() {
	if hs.span != nil {
		return
	}
	tracer := hs.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	_, hs.span = tracer.Start(context.Background(), "noise.handshake",
		trace.WithAttributes(
			attribute.String("noise.protocol", hs.protocolName),
			attribute.Bool("noise.initiator", hs.initiator),
		))
}

// endSpan closes the handshake span. Caller holds hs.mu.
func (hs *HandshakeState) endSpan(err error) {
	if hs.span == nil {
		return
	}
	hs.span.SetAttributes(attribute.Int("noise.messages", hs.round+1))
	if err != nil {
		hs.span.RecordError(err)
		hs.span.SetStatus(codes.Error, err.Error())
	} else {
		hs.span.SetStatus(codes.Ok, "")
	}
	hs.span.End()
}

// Handshake runs the whole handshake over rw, blocking on every read and
// write. It reads exactly the bytes each suspension asks for, so nothing that
// follows the handshake on rw is consumed. The handshake only counts as
// complete once its last message has been written: onComplete, if not nil,
// and the completion handler then receive the transport CipherStates before
// Handshake returns. If that last write fails the handshake fails instead.
func (hs *HandshakeState) Handshake(rw io.ReadWriter, onComplete func(rx, tx *CipherState)) error {
	hs.mu.Lock()
	hs.holdCompletion = true
	hs.mu.Unlock()

	out, st := hs.Advance(nil)
	for {
		if len(out) > 0 {
			if err := writeFull(rw, out); err != nil {
				terr := &TransportError{Op: "write handshake", Err: err}
				if st.Status == StatusComplete {
					return hs.revokeCompletion(terr).Err
				}
				return hs.Abort(terr).Err
			}
		}
		switch st.Status {
		case StatusComplete:
			hs.releaseCompletion()
			if onComplete != nil {
				onComplete(st.Result.Rx, st.Result.Tx)
			}
			return nil
		case StatusFailed:
			return st.Err
		}

		buf := make([]byte, st.Awaiting)
		if _, err := io.ReadFull(rw, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return hs.EndOfStream().Err
			}
			return hs.Abort(&TransportError{Op: "read handshake", Err: err}).Err
		}
		out, st = hs.Advance(buf)
	}
}

// writeFull writes all of p, retrying partial writes.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
