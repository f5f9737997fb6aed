package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/matheus3301/vchat/internal/api"
	qrcode "github.com/skip2/go-qrcode"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// sanitizeForTerminal drops control characters, which arrive in memos from
// arbitrary senders, and the joiner and modifier codepoints that break
// column alignment.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(' ')
		case !isProblematicRune(r):
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return true
	case unicode.IsControl(r):
		return true
	// Skin tone modifiers.
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	// Zero Width Joiner.
	case r == 0x200D:
		return true
	// Bidi overrides and isolates.
	case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069:
		return true
	// Variation Selectors.
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	// Variation Selectors Supplement.
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters. Two bitmap rows become one terminal line.
func renderQR(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("generate qr code: %w", err)
	}
	qr.DisableBorder = false

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x] // true = black module
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('\u2588') // █
			case top && !bot:
				sb.WriteRune('\u2580') // ▀
			case !top && bot:
				sb.WriteRune('\u2584') // ▄
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String(), nil
}

func formatTimestamp(unixMs int64) string {
	if unixMs == 0 {
		return fmt.Sprintf("%-16s", "unconfirmed")
	}
	return time.UnixMilli(unixMs).Local().Format("2006-01-02 15:04")
}

// formatMessage renders one message as a single line.
func formatMessage(m api.Message) string {
	var sb strings.Builder
	sb.WriteString(formatTimestamp(m.TimestampUnixMs))
	sb.WriteString("  ")

	sender := sanitizeForTerminal(m.Sender)
	if m.Direction == "sent" {
		sender = "you"
	}
	fmt.Fprintf(&sb, "%-20s ", sender)
	sb.WriteString(sanitizeForTerminal(m.Text))

	if m.Amount != "" && m.Amount != "0" {
		fmt.Fprintf(&sb, "  [%s VRSC]", m.Amount)
	}
	switch {
	case m.Status == "failed":
		fmt.Fprintf(&sb, "  FAILED: %s", sanitizeForTerminal(m.Error))
	case m.Direction == "received":
		fmt.Fprintf(&sb, "  (%d conf)", m.Confirmations)
	}
	return sb.String()
}

func formatConversation(c api.Conversation) string {
	marker := " "
	if c.Unread {
		marker = "*"
	}
	return fmt.Sprintf("%s %-30s %s", marker, sanitizeForTerminal(c.Name), c.Address)
}
