package noise

import (
	"fmt"
	"strings"
	"unicode"
)

// A Token is one operation of a Noise message pattern.
type Token uint8

// Token constants define the operations of a Noise handshake.
const (
	TokenE Token = iota
	TokenS
	TokenEE
	TokenES
	TokenSE
	TokenSS
	TokenPSK
)

var tokenNames = [...]string{
	TokenE:   "e",
	TokenS:   "s",
	TokenEE:  "ee",
	TokenES:  "es",
	TokenSE:  "se",
	TokenSS:  "ss",
	TokenPSK: "psk",
}

func (t Token) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("Token(%d)", uint8(t))
}

// ParseToken maps the textual form of a token to its Token.
func ParseToken(s string) (Token, error) {
	for i, name := range tokenNames {
		if name == s {
			return Token(i), nil
		}
	}
	return 0, protocolError("parse pattern", "unknown token %q", s)
}

// A MessageLine is one handshake message: who sends it and the tokens it
// carries, in order.
type MessageLine struct {
	FromInitiator bool
	Tokens        []Token
}

// A HandshakePattern is a list of messages and operations that are used to
// perform a specific Noise handshake.
type HandshakePattern struct {
	Name                 string
	InitiatorPreMessages []Token
	ResponderPreMessages []Token
	Messages             []MessageLine
}

// UsesPSK reports whether any message line contains a psk token.
func (p HandshakePattern) UsesPSK() bool {
	for _, m := range p.Messages {
		for _, t := range m.Tokens {
			if t == TokenPSK {
				return true
			}
		}
	}
	return false
}

// Handshake pattern texts, as written in revision 34 of the Noise
// specification.
const (
	PatternXX = "XX:\n" +
		"  -> e\n" +
		"  <- e, ee, s, es\n" +
		"  -> s, se\n"

	PatternXKpsk3 = "XKpsk3:\n" +
		"  <- s\n" +
		"  ...\n" +
		"  -> e, es\n" +
		"  <- e, ee\n" +
		"  -> s, se, psk\n"

	PatternKK = "KK:\n" +
		"  -> s\n" +
		"  <- s\n" +
		"  ...\n" +
		"  -> e, es, ss\n" +
		"  <- e, ee, se\n"
)

// Built-in patterns.
var (
	HandshakeXX     = mustParsePattern(PatternXX)
	HandshakeXKpsk3 = mustParsePattern(PatternXKpsk3)
	HandshakeKK     = mustParsePattern(PatternKK)
)

func mustParsePattern(text string) HandshakePattern {
	p, err := ParseHandshakePattern(text)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseHandshakePattern parses the pattern notation of the Noise
// specification. An optional first line "NAME:" names the pattern. Lines
// starting with "->" are sent by the initiator and lines starting with "<-" by
// the responder. If a line "..." is present, every arrow line above it is a
// premessage. Tokens are separated by commas and/or whitespace.
func ParseHandshakePattern(text string) (HandshakePattern, error) {
	var p HandshakePattern
	lines := strings.Split(text, "\n")

	inPremessage := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "..." {
			inPremessage = true
			break
		}
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case line == "...":
			inPremessage = false
			continue
		case strings.HasPrefix(line, "->"), strings.HasPrefix(line, "<-"):
		case strings.HasSuffix(line, ":") && p.Name == "" && len(p.Messages) == 0:
			p.Name = strings.TrimSpace(strings.TrimSuffix(line, ":"))
			continue
		default:
			return HandshakePattern{}, protocolError("parse pattern", "line %d: unrecognized line %q", i+1, line)
		}

		fromInitiator := strings.HasPrefix(line, "->")
		tokens, err := parseTokens(line[2:])
		if err != nil {
			return HandshakePattern{}, err
		}
		if len(tokens) == 0 {
			return HandshakePattern{}, protocolError("parse pattern", "line %d: no tokens", i+1)
		}

		if inPremessage {
			for _, t := range tokens {
				if t != TokenE && t != TokenS {
					return HandshakePattern{}, protocolError("parse pattern", "line %d: token %v not allowed in premessage", i+1, t)
				}
			}
			if fromInitiator {
				p.InitiatorPreMessages = append(p.InitiatorPreMessages, tokens...)
			} else {
				p.ResponderPreMessages = append(p.ResponderPreMessages, tokens...)
			}
			continue
		}
		p.Messages = append(p.Messages, MessageLine{FromInitiator: fromInitiator, Tokens: tokens})
	}

	if len(p.Messages) == 0 {
		return HandshakePattern{}, protocolError("parse pattern", "pattern has no message lines")
	}
	return p, nil
}

func parseTokens(s string) ([]Token, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		t, err := ParseToken(f)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}
