package noise

// A DHKey is a keypair used for Diffie-Hellman key agreement.
type DHKey struct {
	Private []byte
	Public  []byte
}

// Destroy zeroes the private half of the keypair.
func (k *DHKey) Destroy() {
	secureZero(k.Private)
	k.Private = nil
}
