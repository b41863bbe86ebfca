package upstream

import "context"

// MockUpstream is a hand-written test double: a function field stands in
// for a mocking framework, matching this codebase's preference for small
// capability interfaces over generated mocks.
type MockUpstream struct {
	PostFunc func(ctx context.Context, body []byte) ([]byte, error)
}

var _ Upstream = (*MockUpstream)(nil)

func (m *MockUpstream) Post(ctx context.Context, body []byte) ([]byte, error) {
	return m.PostFunc(ctx, body)
}
