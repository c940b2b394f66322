// Command vectorgen prints deterministic handshake vectors as JSON so other
// implementations of the zksync handshake can check themselves against this
// one.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ogier/pflag"
	"github.com/sirupsen/logrus"
	"github.com/zksync-go/noise"
)

const (
	initStaticHex    = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	respStaticHex    = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
	initEphemeralHex = "202122232425262728292a2b2c2d2e2f303132333435363738393a3b3c3d3e3f"
	respEphemeralHex = "4142434445464748494a4b4c4d4e4f505152535455565758595a5b5c5d5e5f60"
	pskHex           = "54686973206973206d7920417573747269616e20706572737065637469766521"
	prologue         = "John Galt"
)

type message struct {
	Payload    string `json:"payload"`
	Ciphertext string `json:"ciphertext"`
}

type vector struct {
	ProtocolName     string    `json:"protocol_name"`
	Framing          string    `json:"framing"`
	Prologue         string    `json:"init_prologue"`
	PSK              string    `json:"psk,omitempty"`
	InitStatic       string    `json:"init_static"`
	InitEphemeral    string    `json:"init_ephemeral"`
	RespStatic       string    `json:"resp_static"`
	RespEphemeral    string    `json:"resp_ephemeral"`
	Messages         []message `json:"messages"`
	HandshakeHash    string    `json:"handshake_hash"`
	InitiatorRxKey   string    `json:"initiator_rx_key"`
	InitiatorTxKey   string    `json:"initiator_tx_key"`
	ObfuscatorSecret string    `json:"obfuscator_secret"`
}

func main() {
	variable := pflag.BoolP("variable", "v", false, "use terminator framing instead of length prefixes")
	pretty := pflag.BoolP("pretty", "p", false, "indent the JSON output")
	pflag.Parse()

	var vectors []vector
	for _, pattern := range []noise.HandshakePattern{noise.HandshakeXX, noise.HandshakeXKpsk3} {
		v, err := generate(pattern, *variable)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "main",
				"pattern":  pattern.Name,
				"error":    err,
			}).Fatal("Failed to generate vector")
		}
		vectors = append(vectors, v)
	}

	if err := write(os.Stdout, vectors, *pretty); err != nil {
		logrus.WithError(err).Fatal("Failed to write vectors")
	}
}

func write(w io.Writer, vectors []vector, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(map[string][]vector{"vectors": vectors})
}

func staticKey(h string) noise.DHKey {
	k, err := noise.DH25519.GenerateKeypair(hexReader(h))
	if err != nil {
		panic(err)
	}
	return k
}

// handshaker is the part of a handshake state vectorgen drives.
type handshaker interface {
	Advance(in []byte) ([]byte, noise.State)
	SetPayload(noise.PayloadWriter, noise.PayloadReader)
	ProtocolName() string
}

func newHandshaker(c noise.Config, variable bool) (handshaker, error) {
	if variable {
		return noise.NewVariableLengthHandshakeState(c)
	}
	return noise.NewHandshakeState(c)
}

func generate(pattern noise.HandshakePattern, variable bool) (vector, error) {
	istatic, rstatic := staticKey(initStaticHex), staticKey(respStaticHex)

	ic := noise.Config{
		Pattern:       pattern,
		Initiator:     true,
		Random:        hexReader(initEphemeralHex),
		Prologue:      []byte(prologue),
		StaticKeypair: istatic,
	}
	rc := noise.Config{
		Pattern:       pattern,
		Random:        hexReader(respEphemeralHex),
		Prologue:      []byte(prologue),
		StaticKeypair: rstatic,
	}
	v := vector{
		Framing:       "length",
		Prologue:      hex.EncodeToString([]byte(prologue)),
		InitStatic:    initStaticHex,
		InitEphemeral: initEphemeralHex,
		RespStatic:    respStaticHex,
		RespEphemeral: respEphemeralHex,
	}
	if variable {
		v.Framing = "terminator"
	}
	if pattern.UsesPSK() {
		psk, _ := hex.DecodeString(pskHex)
		ic.PresharedKey, rc.PresharedKey = psk, psk
		v.PSK = pskHex
	}
	if len(pattern.ResponderPreMessages) > 0 {
		ic.PeerStatic = rstatic.Public
	}

	init, err := newHandshaker(ic, variable)
	if err != nil {
		return v, err
	}
	resp, err := newHandshaker(rc, variable)
	if err != nil {
		return v, err
	}
	v.ProtocolName = init.ProtocolName()

	payload := func(round int) []byte { return []byte(fmt.Sprintf("round %d", round)) }
	init.SetPayload(payload, nil)
	resp.SetPayload(payload, nil)

	// Messages alternate strictly, so each side can be handed the other's
	// whole output.
	sender, receiver := init, resp
	var in []byte
	var ist noise.State
	for round := range pattern.Messages {
		if !pattern.Messages[round].FromInitiator {
			sender, receiver = resp, init
		} else {
			sender, receiver = init, resp
		}
		out, st := sender.Advance(in)
		if st.Status == noise.StatusFailed {
			return v, st.Err
		}
		if sender == init {
			ist = st
		}
		v.Messages = append(v.Messages, message{
			Payload:    hex.EncodeToString(payload(round)),
			Ciphertext: hex.EncodeToString(out),
		})
		in = out
	}
	_, st := receiver.Advance(in)
	if st.Status != noise.StatusComplete {
		return v, fmt.Errorf("handshake ended in state %v: %v", st.Status, st.Err)
	}
	if receiver == init {
		ist = st
	}
	if ist.Status != noise.StatusComplete {
		return v, fmt.Errorf("initiator ended in state %v: %v", ist.Status, ist.Err)
	}

	rx, tx := ist.Result.Rx.UnsafeKey(), ist.Result.Tx.UnsafeKey()
	v.HandshakeHash = hex.EncodeToString(ist.Result.HandshakeHash)
	v.InitiatorRxKey = hex.EncodeToString(rx[:])
	v.InitiatorTxKey = hex.EncodeToString(tx[:])
	v.ObfuscatorSecret = hex.EncodeToString(ist.Result.Secret)
	return v, nil
}
