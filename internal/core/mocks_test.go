package core

import (
	"context"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockIntentExtractor struct {
	mock.Mock
}

func (m *MockIntentExtractor) Extract(ctx context.Context, prompt string) (*ExtractedIntent, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ExtractedIntent), args.Error(1)
}

type MockBodyComposer struct {
	mock.Mock
}

func (m *MockBodyComposer) Compose(ctx context.Context, toName, instruction, tone string) (*ComposedBody, error) {
	args := m.Called(ctx, toName, instruction, tone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ComposedBody), args.Error(1)
}

type MockMessageBuilder struct {
	mock.Mock
}

func (m *MockMessageBuilder) Build(req BuildRequest) (*OutboundMessage, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OutboundMessage), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg *OutboundMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *MockMailer) CreateDraft(ctx context.Context, msg *OutboundMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Record(ctx context.Context, entry *HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) Recent(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type denyAllPolicy struct{}

func (denyAllPolicy) IsAllowed(string) bool { return false }

// domainPolicy allows addresses ending in @domain
type domainPolicy string

func (d domainPolicy) IsAllowed(addr string) bool {
	return strings.HasSuffix(strings.ToLower(addr), "@"+string(d))
}
