package noise

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variablePair(t *testing.T) (*VariableLengthHandshakeState, *VariableLengthHandshakeState) {
	t.Helper()
	ic, rc := xxConfigs()
	init, err := NewVariableLengthHandshakeState(ic)
	require.NoError(t, err)
	resp, err := NewVariableLengthHandshakeState(rc)
	require.NoError(t, err)
	return init, resp
}

// streamPump moves bytes between two handshakes, handing each side exactly
// as many bytes as it asks for, like a blocking reader would.
func streamPump(t *testing.T, a, b *HandshakeState) (State, State) {
	t.Helper()
	var toA, toB []byte
	out, stA := a.Advance(nil)
	toB = append(toB, out...)
	out, stB := b.Advance(nil)
	toA = append(toA, out...)

	for i := 0; i < 10000; i++ {
		progressed := false
		if stA.Status == StatusSuspended && len(toA) >= stA.Awaiting {
			chunk := toA[:stA.Awaiting]
			toA = toA[stA.Awaiting:]
			out, stA = a.Advance(chunk)
			toB = append(toB, out...)
			progressed = true
		}
		if stB.Status == StatusSuspended && len(toB) >= stB.Awaiting {
			chunk := toB[:stB.Awaiting]
			toB = toB[stB.Awaiting:]
			out, stB = b.Advance(chunk)
			toA = append(toA, out...)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	assert.Empty(t, toA)
	assert.Empty(t, toB)
	return stA, stB
}

func TestVariableLengthXX(t *testing.T) {
	init, resp := variablePair(t)

	si, sr := streamPump(t, init.HandshakeState, resp.HandshakeState)
	require.Equal(t, StatusComplete, si.Status)
	require.Equal(t, StatusComplete, sr.Status)

	assert.Equal(t, si.Result.Rx.UnsafeKey(), sr.Result.Tx.UnsafeKey())
	assert.Equal(t, si.Result.Tx.UnsafeKey(), sr.Result.Rx.UnsafeKey())
	assert.Equal(t, si.Result.HandshakeHash, sr.Result.HandshakeHash)
	assert.Empty(t, sr.Result.Leftover)
	assert.Empty(t, si.Result.Leftover)
}

func TestVariableLengthKeysMatchFramed(t *testing.T) {
	vi, vr := variablePair(t)
	vsi, vsr := streamPump(t, vi.HandshakeState, vr.HandshakeState)
	require.Equal(t, StatusComplete, vsi.Status)
	require.Equal(t, StatusComplete, vsr.Status)

	ic, rc := xxConfigs()
	fi, err := NewHandshakeState(ic)
	require.NoError(t, err)
	fr, err := NewHandshakeState(rc)
	require.NoError(t, err)
	fsi, _ := pump(fi, fr)
	require.Equal(t, StatusComplete, fsi.Status)

	// Only the chaining key feeds Split, and framing never touches it.
	assert.Equal(t, fsi.Result.Rx.UnsafeKey(), vsi.Result.Rx.UnsafeKey())
	assert.Equal(t, fsi.Result.Tx.UnsafeKey(), vsi.Result.Tx.UnsafeKey())
	assert.NotEqual(t, fsi.Result.HandshakeHash, vsi.Result.HandshakeHash)
}

func TestVariableLengthEmptyPayloadCostsNothing(t *testing.T) {
	init, _ := variablePair(t)
	msg1, st := init.Advance(nil)
	require.Equal(t, StatusSuspended, st.Status)
	assert.Len(t, msg1, DHKeyLen+64)
}

func TestVariableLengthPayloads(t *testing.T) {
	init, resp := variablePair(t)

	var got [][]byte
	init.SetSimplePayload(func(round int) []byte {
		if round == 0 {
			return []byte("hello")
		}
		return nil
	}, nil)
	resp.SetSimplePayload(nil, func(round int, payload []byte) error {
		got = append(got, payload)
		return nil
	})

	si, sr := streamPump(t, init.HandshakeState, resp.HandshakeState)
	require.Equal(t, StatusComplete, si.Status)
	require.Equal(t, StatusComplete, sr.Status)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("hello"), got[0])
	assert.Nil(t, got[1])

	assert.NotEmpty(t, resp.PreHash())
	assert.NotEqual(t, resp.PreHash(), resp.ChannelBinding())
}

func TestVariableLengthNoTerminator(t *testing.T) {
	_, resp := variablePair(t)
	_, st := resp.Advance(nil)
	require.Equal(t, StatusSuspended, st.Status)

	_, st = resp.Advance(make([]byte, DHKeyLen+maxTerminatorScan+64))
	require.Equal(t, StatusFailed, st.Status)
	assert.True(t, IsDesyncFailure(st.Err))
}

func TestVariableLengthEOFBeforeTerminator(t *testing.T) {
	init, resp := variablePair(t)
	msg1, _ := init.Advance(nil)

	_, st := resp.Advance(msg1[:len(msg1)-10])
	require.Equal(t, StatusSuspended, st.Status)

	st = resp.EndOfStream()
	require.Equal(t, StatusFailed, st.Status)
	assert.True(t, IsDesyncFailure(st.Err))
	assert.False(t, IsTransportFailure(st.Err))
}

func TestVariableLengthBlockingHandshake(t *testing.T) {
	init, resp := variablePair(t)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	errs := make(chan error, 2)
	go func() { errs <- init.Handshake(a, nil) }()
	go func() { errs <- resp.Handshake(b, nil) }()
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, init.ChannelBinding(), resp.ChannelBinding())
}

func TestAwaitTerminator(t *testing.T) {
	term := []byte("abcd")
	assert.Equal(t, 4, awaitTerminator(nil, term))
	assert.Equal(t, 4, awaitTerminator([]byte("xyz"), term))
	assert.Equal(t, 3, awaitTerminator([]byte("xya"), term))
	assert.Equal(t, 1, awaitTerminator([]byte("xabc"), term))
}
