// Package memo implements the chat wire format carried in shielded payment memos.
//
// A chat memo is "<text>//f//<sender@>". The sender suffix always follows the
// last marker, so message text may itself contain the marker.
package memo

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Marker separates the message text from the sender identity.
const Marker = "//f//"

// MaxMemoBytes is the size of a shielded memo field.
const MaxMemoBytes = 512

// ErrMemoTooLong is returned when an encoded memo does not fit the memo field.
var ErrMemoTooLong = errors.New("memo exceeds 512 bytes")

// Decoded is a chat message recovered from a memo.
type Decoded struct {
	Text   string
	Sender string
}

// Encode builds the wire string for a message. The marker is always present so
// a value-only payment still names its sender.
func Encode(text, sender string) string {
	return text + Marker + sender
}

// Decode parses a wire string. Memos that are not chat messages return ok=false;
// they belong to other applications and are not an error. Whitespace around
// the sender is ignored; the text is returned exactly.
func Decode(wire string) (Decoded, bool) {
	i := strings.LastIndex(wire, Marker)
	if i < 0 {
		return Decoded{}, false
	}
	sender := strings.TrimSpace(wire[i+len(Marker):])
	if !ValidIdentityName(sender) {
		return Decoded{}, false
	}
	return Decoded{Text: wire[:i], Sender: sender}, true
}

// ValidIdentityName reports whether s looks like a formatted VerusID name ("alice@", "bob.parent@").
func ValidIdentityName(s string) bool {
	if len(s) < 2 || !strings.HasSuffix(s, "@") {
		return false
	}
	if strings.Contains(s, Marker) {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// EncodeHex returns the hex transport form of the wire string, as expected by z_sendmany.
func EncodeHex(text, sender string) (string, error) {
	wire := Encode(text, sender)
	if len(wire) > MaxMemoBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrMemoTooLong, len(wire))
	}
	return hex.EncodeToString([]byte(wire)), nil
}

// DecodeHex reverses EncodeHex. The chain zero-pads memo fields, so trailing
// NUL bytes are dropped.
func DecodeHex(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode memo hex: %w", err)
	}
	return strings.TrimRight(string(b), "\x00"), nil
}
