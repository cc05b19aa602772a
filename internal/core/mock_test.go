package core

import (
	"context"

	"github.com/agenthands/pillguide/internal/core/model"
	"github.com/agenthands/pillguide/internal/llm"
)

type MockClassifier struct {
	Candidates []model.Candidate
	Err        error
	Calls      int
	LastImage  []byte
}

func (m *MockClassifier) Classify(ctx context.Context, image []byte) ([]model.Candidate, error) {
	m.Calls++
	m.LastImage = image
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Candidates, nil
}

type MockReader struct {
	Text  string
	Err   error
	Calls int
}

func (m *MockReader) ReadText(ctx context.Context, image []byte) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Requests      []llm.Request
}

func (m *MockLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}
