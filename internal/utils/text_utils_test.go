package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 100))
	assert.Equal(t, "anything", tp.TruncateText("anything", 0))

	// "é" is two bytes; cutting inside it must back off to a rune boundary
	got := tp.TruncateText("abé", 3)
	assert.True(t, strings.HasPrefix(got, "ab\n"))
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "truncated")
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "valid ✓", tp.SanitizeUTF8("valid ✓"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
}

func TestNormalize(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	decomposed := "Cafe\u0301"
	assert.Equal(t, "Caf\u00e9", tp.Normalize(decomposed))
}

func TestPreparePrompt(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	got := tp.PreparePrompt("  email bob@example.com about Cafe\u0301\xff  ", 0)
	assert.Equal(t, "email bob@example.com about Caf\u00e9", got)
}

func TestPreview(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "Hi Bob", tp.Preview("Hi Bob"))

	long := strings.Repeat("é", PreviewLength+10)
	got := tp.Preview(long)
	assert.Equal(t, strings.Repeat("é", PreviewLength)+"...", got)
}
