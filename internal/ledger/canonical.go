package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// EncodingVersion is the version tag embedded in every signed payload.
// Any change to the canonical encoding or to the signed field set bumps
// this constant; signer and verifier must agree on it byte-for-byte.
const EncodingVersion = 1

// Canonical produces the frozen v1 signing encoding of the payload.
//
// The encoding is RFC 8785 canonical JSON of a fixed seven-field object,
// keys in sorted order:
//
//	{"amount":N,"kind":"transfer","nonce":N,"receiver":"...","sender":"...","timestamp":N,"v":1}
//
// Rules:
//   - object keys appear in the exact order above (already UTF-16 sorted)
//   - integers are base-10 int64, floats never occur
//   - strings are NFC normalized, without HTML escaping; only control
//     characters, backslash and quote are escaped
//
// This is the ONLY byte representation signatures are computed over.
// Two conforming implementations must serialize identically or their
// signatures will not interoperate.
func (p Payload) Canonical() ([]byte, error) {
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("canonical encoding: invalid kind %q", p.Kind)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	fmt.Fprintf(&buf, `"amount":%d`, p.Amount)

	buf.WriteString(`,"kind":`)
	if err := writeCanonicalString(&buf, string(p.Kind)); err != nil {
		return nil, fmt.Errorf("canonical encoding: kind: %w", err)
	}

	fmt.Fprintf(&buf, `,"nonce":%d`, p.Nonce)

	buf.WriteString(`,"receiver":`)
	if err := writeCanonicalString(&buf, p.Receiver); err != nil {
		return nil, fmt.Errorf("canonical encoding: receiver: %w", err)
	}

	buf.WriteString(`,"sender":`)
	if err := writeCanonicalString(&buf, p.Sender); err != nil {
		return nil, fmt.Errorf("canonical encoding: sender: %w", err)
	}

	fmt.Fprintf(&buf, `,"timestamp":%d`, p.Timestamp)
	fmt.Fprintf(&buf, `,"v":%d`, EncodingVersion)

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeCanonicalString appends the RFC 8785 canonical JSON form of s.
//
// The string is NFC normalized at the serialization boundary so that
// visually identical identifiers hash and sign identically. With HTML
// escaping disabled, Go's encoder already matches RFC 8785 string rules
// except for two control characters: it emits \u0008 and \u000c where
// the RFC mandates the \b and \f short escapes. Those are rewritten
// below; everything else (<, > and & literal, U+2028/U+2029 literal,
// lowercase \u00xx for the remaining control characters) comes out of
// the encoder as required.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var enc bytes.Buffer
	e := json.NewEncoder(&enc)
	e.SetEscapeHTML(false)
	if err := e.Encode(normalized); err != nil {
		return err
	}

	out := enc.Bytes()
	// json.Encoder appends a trailing newline.
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}

	buf.Write(normalizeControlEscapes(out))
	return nil
}

// normalizeControlEscapes rewrites \u0008 to \b and \u000c to \f, the two
// spots where Go's encoder and RFC 8785 disagree. Sequences preceded by
// an odd number of backslashes (an escaped backslash followed by literal
// "u0008" text) are left untouched.
func normalizeControlEscapes(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u000`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if i+6 <= len(data) &&
			data[i] == '\\' && data[i+1] == 'u' &&
			data[i+2] == '0' && data[i+3] == '0' && data[i+4] == '0' &&
			(data[i+5] == '8' || data[i+5] == 'c') {

			// Count backslashes already emitted immediately before this
			// position. An even count means the \u000x escape itself starts
			// here and should be shortened.
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, `\b`...)
				} else {
					out = append(out, `\f`...)
				}
				i += 6
				continue
			}
		}
		out = append(out, data[i])
		i++
	}
	return out
}
