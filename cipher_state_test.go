package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyedPair(t *testing.T) (*CipherState, *CipherState) {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}
	a, b := NewCipherState(DefaultCipherSuite), NewCipherState(DefaultCipherSuite)
	a.InitializeKey(key)
	b.InitializeKey(key)
	return a, b
}

func TestCipherStateRoundTrip(t *testing.T) {
	tx, rx := keyedPair(t)
	ad := []byte("associated")

	for i := 0; i < 20; i++ {
		pt := []byte{byte(i), 1, 2, 3}
		ct, err := tx.Encrypt(nil, ad, pt)
		require.NoError(t, err)
		assert.Len(t, ct, len(pt)+TagLen)

		got, err := rx.Decrypt(nil, ad, ct)
		require.NoError(t, err)
		assert.Equal(t, pt, got)
	}
	assert.EqualValues(t, 20, tx.Nonce())
	assert.EqualValues(t, 20, rx.Nonce())
}

func TestCipherStateFailedDecryptKeepsNonce(t *testing.T) {
	tx, rx := keyedPair(t)

	ct, err := tx.Encrypt(nil, nil, []byte("hello"))
	require.NoError(t, err)

	bad := append([]byte(nil), ct...)
	bad[len(bad)-1] ^= 0x01
	_, err = rx.Decrypt(nil, nil, bad)
	require.Error(t, err)
	assert.True(t, IsAuthenticationFailure(err))
	assert.EqualValues(t, 0, rx.Nonce())

	_, err = rx.Decrypt(nil, []byte("wrong ad"), ct)
	assert.True(t, IsAuthenticationFailure(err))
	assert.EqualValues(t, 0, rx.Nonce())

	got, err := rx.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
	assert.EqualValues(t, 1, rx.Nonce())
}

func TestCipherStatePassThroughWithoutKey(t *testing.T) {
	c := NewCipherState(DefaultCipherSuite)
	assert.False(t, c.HasKey())

	out, err := c.Encrypt(nil, []byte("ad"), []byte("clear"))
	require.NoError(t, err)
	assert.Equal(t, []byte("clear"), out)

	out, err = c.Decrypt(nil, []byte("ad"), []byte("clear"))
	require.NoError(t, err)
	assert.Equal(t, []byte("clear"), out)
	assert.EqualValues(t, 0, c.Nonce())
}

func TestCipherStateMaxNonce(t *testing.T) {
	tx, _ := keyedPair(t)
	tx.SetNonce(MaxNonce)
	_, err := tx.Encrypt(nil, nil, []byte("x"))
	require.NoError(t, err)
	_, err = tx.Encrypt(nil, nil, []byte("x"))
	assert.Equal(t, ErrMaxNonce, err)
}

func TestCipherStateRekeyPeriodicity(t *testing.T) {
	const interval = 4
	tx, rx := keyedPair(t)
	tx.SetRekeyInterval(interval)
	rx.SetRekeyInterval(interval)

	initial := tx.UnsafeKey()
	for i := 1; i <= 3*interval; i++ {
		before := tx.UnsafeKey()
		ct, err := tx.Encrypt(nil, nil, []byte("data"))
		require.NoError(t, err)
		_, err = rx.Decrypt(nil, nil, ct)
		require.NoError(t, err)

		// The key changes in front of the call with nonce n where (n+1) % k == 0.
		n := uint64(i - 1)
		if (n+1)%interval == 0 {
			assert.NotEqual(t, before, tx.UnsafeKey(), "call %d", i)
		} else {
			assert.Equal(t, before, tx.UnsafeKey(), "call %d", i)
		}
		assert.Equal(t, tx.UnsafeKey(), rx.UnsafeKey())
	}
	assert.NotEqual(t, initial, tx.UnsafeKey())
}

func TestCipherStateRekeyNotCommittedOnFailure(t *testing.T) {
	tx, rx := keyedPair(t)
	tx.SetRekeyInterval(1)
	rx.SetRekeyInterval(1)

	ct, err := tx.Encrypt(nil, nil, []byte("data"))
	require.NoError(t, err)

	before := rx.UnsafeKey()
	bad := append([]byte(nil), ct...)
	bad[0] ^= 0xff
	_, err = rx.Decrypt(nil, nil, bad)
	require.Error(t, err)
	assert.Equal(t, before, rx.UnsafeKey())

	_, err = rx.Decrypt(nil, nil, ct)
	require.NoError(t, err)
}

func TestCipherStateManualRekey(t *testing.T) {
	tx, rx := keyedPair(t)
	tx.Rekey()
	rx.Rekey()
	assert.Equal(t, tx.UnsafeKey(), rx.UnsafeKey())

	ct, err := tx.Encrypt(nil, nil, []byte("after rekey"))
	require.NoError(t, err)
	pt, err := rx.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("after rekey"), pt)
}

func TestCipherStateUnsafeResume(t *testing.T) {
	tx, rx := keyedPair(t)
	_, err := tx.Encrypt(nil, nil, []byte("one"))
	require.NoError(t, err)

	resumed := UnsafeNewCipherState(DefaultCipherSuite, tx.UnsafeKey(), tx.Nonce())
	ct, err := resumed.Encrypt(nil, nil, []byte("two"))
	require.NoError(t, err)

	rx.SetNonce(1)
	pt, err := rx.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), pt)
}

func TestCipherStateDestroyRefusesUse(t *testing.T) {
	tx, _ := keyedPair(t)
	tx.Destroy()

	assert.Equal(t, [SymKeyLen]byte{}, tx.UnsafeKey())
	_, err := tx.Encrypt(nil, nil, []byte("x"))
	assert.True(t, IsProtocolViolation(err))
	_, err = tx.Decrypt(nil, nil, make([]byte, TagLen))
	assert.True(t, IsProtocolViolation(err))
}
