package eth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedMessage = errors.New("malformed sign-in message")

const siweHeaderSuffix = " wants you to sign in with your Ethereum account:"

// SIWEMessage is the structured challenge a wallet signs
type SIWEMessage struct {
	Domain    string
	Address   string
	Statement string
	URI       string
	Version   string
	ChainID   int64
	Nonce     string
	IssuedAt  time.Time
}

// BuildMessage renders the canonical message form
func BuildMessage(m SIWEMessage) string {
	var b strings.Builder
	b.WriteString(m.Domain + siweHeaderSuffix + "\n")
	b.WriteString(m.Address + "\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement + "\n\n")
	}
	version := m.Version
	if version == "" {
		version = "1"
	}
	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %s\n", version)
	fmt.Fprintf(&b, "Chain ID: %d\n", m.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", m.IssuedAt.UTC().Format(time.RFC3339))
	return b.String()
}

// ParseMessage reads the fields back out of a signed message
func ParseMessage(raw string) (SIWEMessage, error) {
	var m SIWEMessage
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 2 || !strings.HasSuffix(lines[0], siweHeaderSuffix) {
		return m, ErrMalformedMessage
	}
	m.Domain = strings.TrimSuffix(lines[0], siweHeaderSuffix)
	m.Address = strings.TrimSpace(lines[1])

	var statement []string
	for _, line := range lines[2:] {
		key, value, found := strings.Cut(line, ": ")
		if !found {
			if line = strings.TrimSpace(line); line != "" && m.URI == "" {
				statement = append(statement, line)
			}
			continue
		}

		switch key {
		case "URI":
			m.URI = value
		case "Version":
			m.Version = value
		case "Chain ID":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return m, fmt.Errorf("%w: chain id: %v", ErrMalformedMessage, err)
			}
			m.ChainID = id
		case "Nonce":
			m.Nonce = value
		case "Issued At":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return m, fmt.Errorf("%w: issued at: %v", ErrMalformedMessage, err)
			}
			m.IssuedAt = t
		default:
			if m.URI == "" {
				statement = append(statement, line)
			}
		}
	}
	m.Statement = strings.Join(statement, "\n")

	if m.Nonce == "" {
		return m, fmt.Errorf("%w: missing nonce", ErrMalformedMessage)
	}
	return m, nil
}
