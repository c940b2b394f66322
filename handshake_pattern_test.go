package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseXX(t *testing.T) {
	p, err := ParseHandshakePattern("XX:\n -> e\n <- e, ee, s, es\n -> s, se\n")
	require.NoError(t, err)

	assert.Equal(t, "XX", p.Name)
	assert.Empty(t, p.InitiatorPreMessages)
	assert.Empty(t, p.ResponderPreMessages)
	assert.Equal(t, []MessageLine{
		{FromInitiator: true, Tokens: []Token{TokenE}},
		{FromInitiator: false, Tokens: []Token{TokenE, TokenEE, TokenS, TokenES}},
		{FromInitiator: true, Tokens: []Token{TokenS, TokenSE}},
	}, p.Messages)
	assert.False(t, p.UsesPSK())
}

func TestParseKK(t *testing.T) {
	p, err := ParseHandshakePattern("KK:\n -> s\n <- s\n ...\n -> e, es, ss\n <- e, ee, se")
	require.NoError(t, err)

	assert.Equal(t, []Token{TokenS}, p.InitiatorPreMessages)
	assert.Equal(t, []Token{TokenS}, p.ResponderPreMessages)
	assert.Equal(t, []MessageLine{
		{FromInitiator: true, Tokens: []Token{TokenE, TokenES, TokenSS}},
		{FromInitiator: false, Tokens: []Token{TokenE, TokenEE, TokenSE}},
	}, p.Messages)
}

func TestParseXKpsk3(t *testing.T) {
	p := HandshakeXKpsk3
	assert.Equal(t, "XKpsk3", p.Name)
	assert.Empty(t, p.InitiatorPreMessages)
	assert.Equal(t, []Token{TokenS}, p.ResponderPreMessages)
	require.Len(t, p.Messages, 3)
	assert.Equal(t, []Token{TokenS, TokenSE, TokenPSK}, p.Messages[2].Tokens)
	assert.True(t, p.UsesPSK())
}

func TestParseWhitespaceSeparatedTokens(t *testing.T) {
	p, err := ParseHandshakePattern("-> e\n<- e ee\n")
	require.NoError(t, err)
	assert.Equal(t, "", p.Name)
	assert.Equal(t, []Token{TokenE, TokenEE}, p.Messages[1].Tokens)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown token":   "XX:\n -> e, xx\n",
		"premessage dh":   "X:\n -> ee\n ...\n -> e\n",
		"empty line":      "X:\n -> \n",
		"no messages":     "X:\n",
		"garbage":         "X:\n e\n",
		"premessage only": "X:\n -> s\n ...\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHandshakePattern(text)
			require.Error(t, err)
			assert.True(t, IsProtocolViolation(err))
		})
	}
}

func TestTokenString(t *testing.T) {
	for _, name := range []string{"e", "s", "ee", "es", "se", "ss", "psk"} {
		tok, err := ParseToken(name)
		require.NoError(t, err)
		assert.Equal(t, name, tok.String())
	}
	assert.Equal(t, "Token(42)", Token(42).String())
}
