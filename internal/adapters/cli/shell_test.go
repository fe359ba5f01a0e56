package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mikey/llm-email-agent/internal/adapters/history"
	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/mikey/llm-email-agent/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, prompt string, useHTML bool) (*core.DeliveryResult, error) {
	args := m.Called(ctx, prompt, useHTML)
	if r := args.Get(0); r != nil {
		return r.(*core.DeliveryResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestShell(runner Runner, opts Options) (*Shell, *bytes.Buffer) {
	out := &bytes.Buffer{}
	logger := zap.NewNop()
	return NewShell(runner, utils.NewTextProcessor(logger), logger, out, opts), out
}

func sentResult(plain string) *core.DeliveryResult {
	return &core.DeliveryResult{
		OK:        true,
		Mode:      core.ActionSend,
		MessageID: "msg-1",
		To:        "sam@example.com",
		Subject:   "Lunch",
		Preview:   &core.Preview{Plain: plain},
	}
}

func TestRunOnceSent(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "Email sam@example.com about lunch", true).
		Return(sentResult(strings.Repeat("a", 200)), nil)

	shell, out := newTestShell(runner, Options{UseHTML: true, MaxPromptSize: 8192})
	result, err := shell.RunOnce(context.Background(), "  Email sam@example.com about lunch \n")

	require.NoError(t, err)
	assert.True(t, result.OK)
	text := out.String()
	assert.Contains(t, text, "Email sent")
	assert.Contains(t, text, "To: sam@example.com")
	assert.Contains(t, text, "Subject: Lunch")
	assert.Contains(t, text, "Preview: "+strings.Repeat("a", 150)+"...")
	assert.Contains(t, text, "Message ID: msg-1")
	runner.AssertExpectations(t)
}

func TestRunOnceDraftVerbose(t *testing.T) {
	result := &core.DeliveryResult{
		OK:      true,
		Mode:    core.ActionDraft,
		DraftID: "r-42",
		To:      "sam@example.com",
		Subject: "Plan",
		Preview: &core.Preview{Plain: strings.Repeat("b", 200)},
	}
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "Draft a note to sam@example.com", false).Return(result, nil)

	shell, out := newTestShell(runner, Options{Verbose: true})
	_, err := shell.RunOnce(context.Background(), "Draft a note to sam@example.com")

	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "Draft saved")
	assert.Contains(t, text, strings.Repeat("b", 200))
	assert.Contains(t, text, "Draft ID: r-42")
	assert.NotContains(t, text, "Message ID")
}

func TestRunOnceStructuredFailure(t *testing.T) {
	result := &core.DeliveryResult{
		OK:     false,
		Error:  core.MissingRecipientMessage,
		Parsed: &core.ExtractedIntent{Tone: "casual", Action: core.ActionSend},
	}
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "say hi", false).Return(result, nil)

	shell, out := newTestShell(runner, Options{Verbose: true})
	_, err := shell.RunOnce(context.Background(), "say hi")

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Error: "+core.MissingRecipientMessage)
	assert.Contains(t, out.String(), `"tone": "casual"`)
}

func TestRunOnceError(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "boom", false).Return(nil, core.ErrExtractionFailed)

	shell, out := newTestShell(runner, Options{})
	_, err := shell.RunOnce(context.Background(), "boom")

	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.Contains(t, out.String(), "Error: ")
}

func TestRunOnceJSON(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hi", false).Return(sentResult("hello"), nil)

	shell, out := newTestShell(runner, Options{JSON: true})
	_, err := shell.RunOnce(context.Background(), "hi")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, true, decoded["ok"])
	assert.Equal(t, "send", decoded["mode"])
	assert.Equal(t, "msg-1", decoded["message_id"])
	assert.Equal(t, map[string]interface{}{"plain": "hello"}, decoded["preview"])
}

func TestRunInteractive(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "Email sam@example.com", false).Return(sentResult("x"), nil).Once()
	runner.On("Run", mock.Anything, "Draft note to sam@example.com", false).Return(nil, errors.New("quota")).Once()
	runner.On("Run", mock.Anything, "Email kim@example.com", false).Return(sentResult("y"), nil).Once()

	shell, out := newTestShell(runner, Options{})
	in := strings.NewReader("Email sam@example.com\n\n   \nDRAFT: note to sam@example.com\nEmail kim@example.com\nquit\nEmail never@example.com\n")

	err := shell.RunInteractive(context.Background(), in)

	require.NoError(t, err)
	runner.AssertExpectations(t)
	runner.AssertNumberOfCalls(t, "Run", 3)
	assert.Contains(t, out.String(), "Error: quota")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestRunInteractiveEOF(t *testing.T) {
	runner := new(MockRunner)
	shell, out := newTestShell(runner, Options{})

	err := shell.RunInteractive(context.Background(), strings.NewReader(""))

	require.NoError(t, err)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestRunInteractiveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	shell, _ := newTestShell(new(MockRunner), Options{})

	err := shell.RunInteractive(ctx, strings.NewReader("Email sam@example.com\n"))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRewriteDraft(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"draft: hello sam@example.com", "Draft hello sam@example.com"},
		{"Draft:hello", "Draft hello"},
		{"Email sam about the draft: v2", "Email sam about the draft: v2"},
		{"draft", "draft"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteDraft(tt.in))
		})
	}
	assert.Equal(t, "Draft email kim", DraftPrompt("email kim"))
}

func TestPrintHistory(t *testing.T) {
	repo := history.NewMemoryHistory(zap.NewNop())
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, &core.HistoryEntry{
		ID: "1", Mode: core.ActionSend, To: "sam@example.com", Subject: "Lunch",
		ProviderID: "m-1", OK: true, CreatedAt: created,
	}))
	require.NoError(t, repo.Record(ctx, &core.HistoryEntry{
		ID: "2", Mode: core.ActionSend, To: "kim@example.com",
		OK: false, Error: "not allowed", CreatedAt: created.Add(time.Minute),
	}))

	out := &bytes.Buffer{}
	require.NoError(t, PrintHistory(ctx, out, repo, 10, false))

	text := out.String()
	assert.Contains(t, text, "=== History (2) ===")
	assert.Contains(t, text, "sam@example.com")
	assert.Contains(t, text, "failed: not allowed")
	assert.Less(t, strings.Index(text, "kim@example.com"), strings.Index(text, "sam@example.com"))
}

func TestPrintHistoryJSON(t *testing.T) {
	repo := history.NewMemoryHistory(zap.NewNop())
	ctx := context.Background()
	require.NoError(t, repo.Record(ctx, &core.HistoryEntry{ID: "1", Mode: core.ActionDraft, OK: true, CreatedAt: time.Now()}))

	out := &bytes.Buffer{}
	require.NoError(t, PrintHistory(ctx, out, repo, 1, true))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "draft", decoded[0]["mode"])
}
