package memo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "hi//f//alice@", Encode("hi", "alice@"))
	assert.Equal(t, "//f//alice@", Encode("", "alice@"))
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		text   string
		sender string
	}{
		{"hello", "alice@"},
		{"", "bob@"},
		{"multi word message, with punctuation!", "carol.parent@"},
		{"trailing space ", "dave@"},
		{"slashes / // ///", "eve@"},
		{"unicode ok: héllo", "frank@"},
	}
	for _, tt := range tests {
		t.Run(tt.text+"|"+tt.sender, func(t *testing.T) {
			got, ok := Decode(Encode(tt.text, tt.sender))
			require.True(t, ok)
			assert.Equal(t, Decoded{Text: tt.text, Sender: tt.sender}, got)
		})
	}
}

func TestDecodeEmbeddedMarker(t *testing.T) {
	got, ok := Decode(Encode("a//f//b", "carol@"))
	require.True(t, ok)
	assert.Equal(t, "carol@", got.Sender)
	assert.Equal(t, "a//f//b", got.Text)
}

func TestDecodeTrimsSenderOnly(t *testing.T) {
	for _, wire := range []string{" hi //f//bob@ ", " hi //f//bob@\n", " hi //f// bob@\t"} {
		got, ok := Decode(wire)
		require.True(t, ok, "Decode(%q)", wire)
		assert.Equal(t, Decoded{Text: " hi ", Sender: "bob@"}, got)
	}
}

func TestDecodeRejectsNonChatMemos(t *testing.T) {
	for _, wire := range []string{
		"",
		"just a memo",
		"payment for invoice 42",
		"text//f//",
		"text//f//@",
		"text//f//alice",
		"text//f//alice@ trailing",
		"text//f//al ice@",
		"//f//",
	} {
		_, ok := Decode(wire)
		assert.False(t, ok, "Decode(%q) should not match", wire)
	}
}

func TestValidIdentityName(t *testing.T) {
	assert.True(t, ValidIdentityName("alice@"))
	assert.True(t, ValidIdentityName("sub.parent@"))
	assert.False(t, ValidIdentityName("@"))
	assert.False(t, ValidIdentityName("alice"))
	assert.False(t, ValidIdentityName("ali\tce@"))
}

func TestHexRoundTrip(t *testing.T) {
	h, err := EncodeHex("hi", "bob@")
	require.NoError(t, err)
	assert.Equal(t, "68692f2f662f2f626f6240", h)

	wire, err := DecodeHex(h + strings.Repeat("00", 20))
	require.NoError(t, err)
	assert.Equal(t, "hi//f//bob@", wire)
}

func TestEncodeHexTooLong(t *testing.T) {
	_, err := EncodeHex(strings.Repeat("x", MaxMemoBytes), "bob@")
	require.ErrorIs(t, err, ErrMemoTooLong)

	_, err = EncodeHex(strings.Repeat("x", MaxMemoBytes-len(Marker)-len("bob@")), "bob@")
	require.NoError(t, err)
}

func TestDecodeHexInvalid(t *testing.T) {
	_, err := DecodeHex("zz")
	require.Error(t, err)
}
