package message

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readEnvelope(t *testing.T, msg *core.OutboundMessage) *enmime.Envelope {
	t.Helper()
	data, err := base64.URLEncoding.DecodeString(msg.Raw)
	require.NoError(t, err)
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	require.NoError(t, err)
	return env
}

func children(p *enmime.Part) []*enmime.Part {
	var out []*enmime.Part
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func TestBuild_HeadersRoundTrip(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	msg, err := b.Build(core.BuildRequest{
		To:       "john@example.com",
		Subject:  "Tuesday Meeting",
		BodyText: "See you Tuesday.",
		Cc:       "a@example.com, b@example.com",
		Bcc:      "hidden@example.com",
		Sender:   "me@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.Raw)
	assert.Equal(t, "hidden@example.com", msg.Bcc)

	env := readEnvelope(t, msg)
	assert.Equal(t, "john@example.com", env.GetHeader("To"))
	assert.Equal(t, "Tuesday Meeting", env.GetHeader("Subject"))
	assert.Equal(t, "me@example.com", env.GetHeader("From"))
	assert.Equal(t, "a@example.com, b@example.com", env.GetHeader("Cc"))
	assert.Equal(t, "hidden@example.com", env.GetHeader("Bcc"))
	assert.Equal(t, "See you Tuesday.", strings.TrimSpace(env.Text))
}

func TestBuild_NonASCIISubject(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	msg, err := b.Build(core.BuildRequest{To: "a@b.com", Subject: "Café ☕ plans", BodyText: "x"})
	require.NoError(t, err)

	env := readEnvelope(t, msg)
	assert.Equal(t, "Café ☕ plans", env.GetHeader("Subject"))
}

func TestBuild_PlainOnlyIsWrappedInAlternative(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	msg, err := b.Build(core.BuildRequest{To: "a@b.com", Subject: "s", BodyText: "plain body"})
	require.NoError(t, err)

	env := readEnvelope(t, msg)
	assert.Equal(t, ctAlternative, env.Root.ContentType)
	parts := children(env.Root)
	require.Len(t, parts, 1)
	assert.Equal(t, ctPlain, parts[0].ContentType)
	assert.Empty(t, env.GetHeader("From"))
	assert.Empty(t, env.GetHeader("Cc"))
}

func TestBuild_HTMLWinsWithoutAttachments(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	msg, err := b.Build(core.BuildRequest{To: "a@b.com", Subject: "s", BodyText: "plain", BodyHTML: "<p>rich</p>"})
	require.NoError(t, err)

	env := readEnvelope(t, msg)
	parts := children(env.Root)
	require.Len(t, parts, 1)
	assert.Equal(t, ctHTML, parts[0].ContentType)
	assert.Contains(t, env.HTML, "<p>rich</p>")
}

func TestBuild_EmptyBodyDefaultsToPlain(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	msg, err := b.Build(core.BuildRequest{To: "a@b.com", Subject: "s"})
	require.NoError(t, err)

	env := readEnvelope(t, msg)
	parts := children(env.Root)
	require.Len(t, parts, 1)
	assert.Equal(t, ctPlain, parts[0].ContentType)
}

func TestBuild_AttachmentsForceMixed(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")
	blob := filepath.Join(dir, "data.unknownext")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 fake"), 0o600))
	require.NoError(t, os.WriteFile(blob, []byte{0x00, 0x01, 0x02}, 0o600))

	b := NewBuilder(zap.NewNop())
	msg, err := b.Build(core.BuildRequest{
		To:          "a@b.com",
		Subject:     "files",
		BodyText:    "see attached",
		BodyHTML:    "<p>see attached</p>",
		Attachments: []string{pdf, " ", blob},
	})
	require.NoError(t, err)

	env := readEnvelope(t, msg)
	assert.Equal(t, ctMixed, env.Root.ContentType)

	parts := children(env.Root)
	require.Len(t, parts, 3)
	assert.Equal(t, ctAlternative, parts[0].ContentType)
	alt := children(parts[0])
	require.Len(t, alt, 2)
	assert.Equal(t, ctPlain, alt[0].ContentType)
	assert.Equal(t, ctHTML, alt[1].ContentType)

	require.Len(t, env.Attachments, 2)
	assert.Equal(t, "report.pdf", env.Attachments[0].FileName)
	assert.Equal(t, "application/pdf", env.Attachments[0].ContentType)
	assert.Equal(t, []byte("%PDF-1.4 fake"), env.Attachments[0].Content)
	assert.Equal(t, "data.unknownext", env.Attachments[1].FileName)
	assert.Equal(t, ctOctetStream, env.Attachments[1].ContentType)
}

func TestBuild_SingleAttachmentPlainOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	msg, err := NewBuilder(zap.NewNop()).Build(core.BuildRequest{
		To:          "a@b.com",
		Subject:     "s",
		BodyText:    "text",
		Attachments: []string{path},
	})
	require.NoError(t, err)

	env := readEnvelope(t, msg)
	assert.Equal(t, ctMixed, env.Root.ContentType)
	assert.Len(t, children(env.Root), 2)
}

func TestBuild_MissingAttachment(t *testing.T) {
	present := filepath.Join(t.TempDir(), "ok.txt")
	require.NoError(t, os.WriteFile(present, []byte("ok"), 0o600))

	msg, err := NewBuilder(zap.NewNop()).Build(core.BuildRequest{
		To:          "a@b.com",
		Subject:     "s",
		BodyText:    "text",
		Attachments: []string{present, filepath.Join(t.TempDir(), "missing.pdf")},
	})
	assert.ErrorIs(t, err, core.ErrAttachmentNotFound)
	assert.Nil(t, msg)
}

func TestBuild_RequiresRecipient(t *testing.T) {
	_, err := NewBuilder(zap.NewNop()).Build(core.BuildRequest{Subject: "s"})
	assert.Error(t, err)
}

func TestBuild_HeaderInjectionIsFlattened(t *testing.T) {
	msg, err := NewBuilder(zap.NewNop()).Build(core.BuildRequest{
		To:       "a@b.com",
		Subject:  "hi\r\nBcc: evil@example.com",
		BodyText: "x",
	})
	require.NoError(t, err)

	env := readEnvelope(t, msg)
	assert.Empty(t, env.GetHeader("Bcc"))
	assert.Equal(t, "hi  Bcc: evil@example.com", env.GetHeader("Subject"))
}

func TestDecode(t *testing.T) {
	msg, err := NewBuilder(zap.NewNop()).Build(core.BuildRequest{To: "a@b.com", Subject: "s", BodyText: "x"})
	require.NoError(t, err)

	data, err := Decode(msg.Raw)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: s\r\n")

	_, err = Decode("%%%")
	assert.Error(t, err)
}

func TestGuessContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", guessContentType("/tmp/x.PDF"))
	assert.Equal(t, ctOctetStream, guessContentType("/tmp/noext"))
	assert.Equal(t, ctOctetStream, guessContentType("/tmp/file.zzzunknown"))
}
