package noise

import (
	"crypto/hmac"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hashOf returns HASH(data...) under the suite's hash function.
func hashOf(cs HashFunc, data ...[]byte) []byte {
	h := cs.Hash()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// authenticate returns HMAC-HASH(key, data).
func authenticate(cs HashFunc, key, data []byte) []byte {
	mac := hmac.New(cs.Hash, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// expand runs RFC 5869 HKDF (extract with salt, then expand with info) over
// ikm and returns length bytes. With salt set to a Noise chaining key and an
// empty info it yields the concatenated outputs of the Noise HKDF function,
// so expand(ck, ikm, 2*HASHLEN) is output1 || output2.
func expand(cs HashFunc, ikm []byte, length int, salt, info []byte) []byte {
	out := make([]byte, length)
	r := hkdf.New(cs.Hash, ikm, salt, info)
	if _, err := io.ReadFull(r, out); err != nil {
		// hkdf only fails once more than 255 blocks have been requested.
		panic(err)
	}
	return out
}

// hkdfSplit runs expand with ck as salt and returns n HASHLEN-sized outputs
// backed by one sensitive buffer the caller must wipe.
func hkdfSplit(cs HashFunc, ck, ikm []byte, n int) (sensitive, [][]byte) {
	hashLen := cs.Hash().Size()
	okm := sensitive(expand(cs, ikm, n*hashLen, ck, nil))
	outputs := make([][]byte, n)
	for i := range outputs {
		outputs[i] = okm[i*hashLen : (i+1)*hashLen]
	}
	return okm, outputs
}
