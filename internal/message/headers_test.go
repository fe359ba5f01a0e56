package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHeader(t *testing.T) {
	raw := "To: a@example.com\r\nBcc: hidden@example.com,\r\n more@example.com\r\nSubject: x\r\n\r\nBcc: stays in body\r\n"

	got := string(StripHeader([]byte(raw), "Bcc"))
	assert.Equal(t, "To: a@example.com\r\nSubject: x\r\n\r\nBcc: stays in body\r\n", got)
}

func TestRecipients(t *testing.T) {
	got := Recipients("Bob <bob@example.com>", "amy@example.com, BOB@example.com", "")
	assert.Equal(t, []string{"bob@example.com", "amy@example.com"}, got)
}
