package main

import (
	"bytes"
	"encoding/hex"
	"io"
)

// hexReader turns a hex string into a reader, so keys and ephemerals in the
// vectors are reproducible.
func hexReader(s string) io.Reader {
	res, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return bytes.NewBuffer(res)
}
