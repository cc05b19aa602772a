package server

import (
	"context"

	"github.com/agenthands/pillguide/internal/core/model"
	"github.com/agenthands/pillguide/internal/llm"
)

type MockClassifier struct {
	Candidates []model.Candidate
	Err        error
}

func (m *MockClassifier) Classify(ctx context.Context, image []byte) ([]model.Candidate, error) {
	return m.Candidates, m.Err
}

type MockReader struct {
	Text string
}

func (m *MockReader) ReadText(ctx context.Context, image []byte) (string, error) {
	return m.Text, nil
}

type MockLLM struct {
	Response string
	Calls    int
	Requests []llm.Request
	Closed   bool
}

func (m *MockLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.Calls++
	m.Requests = append(m.Requests, req)
	return m.Response, nil
}

func (m *MockLLM) Close() error {
	m.Closed = true
	return nil
}
