package noise

import "runtime"

// secureZero overwrites b with zeros. KeepAlive keeps the stores from being
// eliminated as dead writes.
func secureZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// sensitive is key material owned by a single scope. Allocate it, then
// `defer buf.wipe()` so every return path clears it.
type sensitive []byte

func (b sensitive) wipe() {
	secureZero(b)
}
