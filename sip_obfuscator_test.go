package noise

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sipPair() (*SipObfuscator, *SipObfuscator) {
	ikm := make([]byte, 32)
	for i := range ikm {
		ikm[i] = byte(i)
	}
	return NewSipObfuscator(HashBLAKE2b, ikm, true), NewSipObfuscator(HashBLAKE2b, ikm, false)
}

func TestSipObfuscatorLockstepInverse(t *testing.T) {
	init, resp := sipPair()
	for v := 0; v < 1<<16; v++ {
		masked := init.Write().Obfuscate2(uint16(v))
		if got := resp.Read().Obfuscate2(masked); got != uint16(v) {
			t.Fatalf("value %d came back as %d", v, got)
		}
	}
	for v := 0; v < 1024; v++ {
		masked := resp.Write().Obfuscate2(uint16(v))
		assert.Equal(t, uint16(v), init.Read().Obfuscate2(masked))
	}
}

func TestSipObfuscatorDirectionsDiffer(t *testing.T) {
	init, _ := sipPair()
	same := 0
	for i := 0; i < 64; i++ {
		if init.Write().Obfuscate2(0) == init.Read().Obfuscate2(0) {
			same++
		}
	}
	assert.Less(t, same, 4)
}

func TestSipObfuscatorBitFrequency(t *testing.T) {
	const trials = 20000
	init, _ := sipPair()
	var counts [16]int
	for i := 0; i < trials; i++ {
		v := init.Write().Obfuscate2(0)
		for b := 0; b < 16; b++ {
			if v&(1<<b) != 0 {
				counts[b]++
			}
		}
	}
	for b, n := range counts {
		ratio := float64(n) / trials
		assert.InDelta(t, 0.5, ratio, 0.03, "bit %d", b)
	}
}

func TestSipObfuscatorMasksChange(t *testing.T) {
	init, _ := sipPair()
	a := init.Write().Obfuscate2(0x1234)
	b := init.Write().Obfuscate2(0x1234)
	assert.NotEqual(t, a, b)
	assert.NotZero(t, bits.OnesCount16(a^b))
}
