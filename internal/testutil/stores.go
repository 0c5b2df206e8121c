// stores.go
//
// Shared fakes for install.Exchanger, install.EventRecorder, install.TokenSink
// and install.HealthChecker. Imported by test files across packages to avoid
// duplicate mock definitions.
package testutil

import (
	"context"
	"sync"

	"github.com/MGallo-Code/obol/internal/shopline"
	"github.com/MGallo-Code/obol/internal/store"
)

// MockExchanger implements install.Exchanger.
// Returns Result/Err and records every call.
type MockExchanger struct {
	Result *shopline.TokenResult
	Err    error

	mu    sync.Mutex
	Calls []ExchangeCall
}

// ExchangeCall is one recorded Exchange invocation.
type ExchangeCall struct {
	Handle string
	Code   string
}

func (m *MockExchanger) Exchange(_ context.Context, handle, code string) (*shopline.TokenResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ExchangeCall{Handle: handle, Code: code})
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// CallCount returns how many times Exchange was called.
func (m *MockExchanger) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Snapshot returns a copy of the recorded calls. Safe while handlers run.
func (m *MockExchanger) Snapshot() []ExchangeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExchangeCall(nil), m.Calls...)
}

// MockRecorder implements install.EventRecorder in memory.
// Set Err to inject a failure; events are not kept when Err is set.
type MockRecorder struct {
	Err error

	mu     sync.Mutex
	events []store.InstallEvent
}

func (m *MockRecorder) RecordEvent(_ context.Context, ev store.InstallEvent) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events in order.
func (m *MockRecorder) Events() []store.InstallEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.InstallEvent(nil), m.events...)
}

// Actions returns just the action of each recorded event.
func (m *MockRecorder) Actions() []string {
	var out []string
	for _, ev := range m.Events() {
		out = append(out, ev.Action)
	}
	return out
}

// MockSink implements install.TokenSink and keeps the last token per handle.
type MockSink struct {
	Err error

	mu     sync.Mutex
	Tokens map[string]*shopline.TokenResult
}

func (m *MockSink) Accept(_ context.Context, handle string, tok *shopline.TokenResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Tokens == nil {
		m.Tokens = make(map[string]*shopline.TokenResult)
	}
	m.Tokens[handle] = tok
	return m.Err
}

// Token returns the token accepted for handle, or nil.
func (m *MockSink) Token(handle string) *shopline.TokenResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Tokens[handle]
}

// MockHealth implements install.HealthChecker, returning Err.
type MockHealth struct {
	Err error
}

func (m *MockHealth) CheckHealth(context.Context) error { return m.Err }
