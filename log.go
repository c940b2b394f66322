package noise

import (
	"encoding/hex"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("package", "noise")

// keyPrefix renders the first bytes of a public key for log fields.
func keyPrefix(pub []byte) string {
	if len(pub) > 8 {
		pub = pub[:8]
	}
	return hex.EncodeToString(pub)
}
