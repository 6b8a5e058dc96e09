package ledger

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical_FieldOrder(t *testing.T) {
	p := Payload{
		Sender:    "111111111111111111",
		Receiver:  "222222222222222222",
		Amount:    150,
		Kind:      KindTransfer,
		Nonce:     3,
		Timestamp: 1700000000,
	}

	got, err := p.Canonical()
	require.NoError(t, err)

	want := `{"amount":150,"kind":"transfer","nonce":3,"receiver":"222222222222222222","sender":"111111111111111111","timestamp":1700000000,"v":1}`
	assert.Equal(t, want, string(got))
}

func TestCanonical_Deterministic(t *testing.T) {
	p := Payload{
		Sender:    "alice",
		Receiver:  "bob",
		Amount:    1,
		Kind:      KindMint,
		Nonce:     0,
		Timestamp: 42,
	}

	a, err := p.Canonical()
	require.NoError(t, err)
	b, err := p.Canonical()
	require.NoError(t, err)

	assert.Equal(t, a, b, "encoding must be byte-stable")
}

func TestCanonical_InvalidKind(t *testing.T) {
	p := Payload{Sender: "a", Receiver: "b", Amount: 1, Kind: Kind("loan")}

	_, err := p.Canonical()
	assert.Error(t, err)
}

func TestCanonical_NoHTMLEscaping(t *testing.T) {
	p := Payload{
		Sender:    "a<b>&c",
		Receiver:  "sink",
		Amount:    5,
		Kind:      KindBurn,
		Nonce:     1,
		Timestamp: 10,
	}

	got, err := p.Canonical()
	require.NoError(t, err)

	// RFC 8785: <, > and & pass through literally.
	assert.Contains(t, string(got), `"sender":"a<b>&c"`)
}

func TestCanonical_NFCNormalization(t *testing.T) {
	// U+0065 U+0301 (e + combining acute) normalizes to U+00E9.
	decomposed := Payload{Sender: "café", Receiver: "x", Amount: 1, Kind: KindTransfer}
	composed := Payload{Sender: "café", Receiver: "x", Amount: 1, Kind: KindTransfer}

	a, err := decomposed.Canonical()
	require.NoError(t, err)
	b, err := composed.Canonical()
	require.NoError(t, err)

	assert.Equal(t, a, b, "NFC-equivalent identifiers must encode identically")
}

func TestCanonical_LineSeparatorsLiteral(t *testing.T) {
	p := Payload{Sender: "a b c", Receiver: "x", Amount: 1, Kind: KindTransfer}

	got, err := p.Canonical()
	require.NoError(t, err)

	assert.Contains(t, string(got), "a b c", "U+2028/U+2029 must be literal, not escaped")
	assert.NotContains(t, string(got), `\u2028`)
}

func TestCanonical_EscapedBackslashPreserved(t *testing.T) {
	// A literal backslash followed by the text "u2028" must stay escaped.
	p := Payload{Sender: `a\u2028`, Receiver: "x", Amount: 1, Kind: KindTransfer}

	got, err := p.Canonical()
	require.NoError(t, err)

	assert.Contains(t, string(got), `"a\\u2028"`)
}

// TestCanonical_Golden freezes the v1 encoding. If this test fails, the
// wire format changed and every existing signature is invalidated: bump
// EncodingVersion instead of updating the golden file.
func TestCanonical_Golden(t *testing.T) {
	payloads := []Payload{
		{Sender: "111111111111111111", Receiver: "222222222222222222", Amount: 150, Kind: KindTransfer, Nonce: 3, Timestamp: 1700000000},
		{Sender: "SYSTEM", Receiver: "222222222222222222", Amount: 500, Kind: KindMint, Nonce: 12, Timestamp: 1700000100},
		{Sender: "222222222222222222", Receiver: "SINK", Amount: 20, Kind: KindBurn, Nonce: 0, Timestamp: 1700000200},
	}

	var out []byte
	for _, p := range payloads {
		enc, err := p.Canonical()
		require.NoError(t, err)
		out = append(out, enc...)
		out = append(out, '\n')
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "canonical_v1", out)
}

func TestCanonical_ControlShortEscapes(t *testing.T) {
	// Backspace and form feed take the short escapes; other control
	// characters keep the \u00xx form.
	p := Payload{Sender: "a\bb\fc", Receiver: "x\x01y", Amount: 1, Kind: KindTransfer}

	got, err := p.Canonical()
	require.NoError(t, err)

	assert.Contains(t, string(got), `"a\bb\fc"`)
	assert.Contains(t, string(got), `"x\u0001y"`)
	assert.NotContains(t, string(got), `\u0008`)
	assert.NotContains(t, string(got), `\u000c`)
}

func TestCanonical_BackslashBeforeControlText(t *testing.T) {
	// A literal backslash followed by the text "u0008" is not an escape
	// and must stay double-escaped.
	p := Payload{Sender: `a\u0008`, Receiver: "x", Amount: 1, Kind: KindTransfer}

	got, err := p.Canonical()
	require.NoError(t, err)

	assert.Contains(t, string(got), `"a\\u0008"`)
}
