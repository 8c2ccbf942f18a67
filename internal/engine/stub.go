package engine

import (
	"context"
	"sync"
)

// StubClient implements Client for tests with a scripted sequence of
// responses or errors. When the script runs out, the last entry repeats.
type StubClient struct {
	mu       sync.Mutex
	script   []stubStep
	requests []Request
}

type stubStep struct {
	resp *Response
	err  error
}

// NewStubClient creates an empty stub. Use Respond and Fail to script it.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// Respond appends a scripted response.
func (s *StubClient) Respond(resp *Response) *StubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, stubStep{resp: resp})
	return s
}

// Fail appends a scripted error.
func (s *StubClient) Fail(err error) *StubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, stubStep{err: err})
	return s
}

// CreateTurn returns the next scripted step, recording the request.
func (s *StubClient) CreateTurn(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.script) == 0 {
		return &Response{StopReason: StopEndTurn}, nil
	}
	idx := len(s.requests) - 1
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	step := s.script[idx]
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

// Requests returns a copy of all recorded requests.
func (s *StubClient) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CallCount returns how many turns were requested.
func (s *StubClient) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
