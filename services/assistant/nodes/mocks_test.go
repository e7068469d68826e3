// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// Shared test doubles for the pipeline nodes

package nodes

import (
	"context"
	"errors"

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/tryon"
	"github.com/zaraara/concierge/services/llm"
)

var errUnavailable = errors.New("service unavailable")

// mockLLM returns canned completions keyed by whoever set GenerateFunc.
type mockLLM struct {
	GenerateFunc func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error)
	prompts      []string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.GenerateFunc == nil {
		return "", errUnavailable
	}
	return m.GenerateFunc(ctx, prompt, params)
}

// staticLLM always answers with the same completion.
func staticLLM(answer string) *mockLLM {
	return &mockLLM{GenerateFunc: func(context.Context, string, llm.GenerationParams) (string, error) {
		return answer, nil
	}}
}

// failingLLM always errors.
func failingLLM() *mockLLM { return &mockLLM{} }

type mockBackend struct {
	SearchFunc     func(ctx context.Context, filter datatypes.Filter) ([]datatypes.Product, error)
	ByCategoryFunc func(ctx context.Context, category string) ([]datatypes.Product, error)
	OrderFunc      func(ctx context.Context, orderNumber, authToken string) (*datatypes.Order, error)
	OrdersFunc     func(ctx context.Context, authToken string) ([]datatypes.Order, error)
	DownloadFunc   func(ctx context.Context, imageURL string) ([]byte, error)

	searchedFilters []datatypes.Filter
}

func (m *mockBackend) SearchProducts(ctx context.Context, filter datatypes.Filter) ([]datatypes.Product, error) {
	m.searchedFilters = append(m.searchedFilters, filter)
	if m.SearchFunc == nil {
		return nil, errUnavailable
	}
	return m.SearchFunc(ctx, filter)
}

func (m *mockBackend) ProductsByCategory(ctx context.Context, category string) ([]datatypes.Product, error) {
	if m.ByCategoryFunc == nil {
		return nil, errUnavailable
	}
	return m.ByCategoryFunc(ctx, category)
}

func (m *mockBackend) OrderByNumber(ctx context.Context, orderNumber, authToken string) (*datatypes.Order, error) {
	if m.OrderFunc == nil {
		return nil, errUnavailable
	}
	return m.OrderFunc(ctx, orderNumber, authToken)
}

func (m *mockBackend) OrdersForUser(ctx context.Context, authToken string) ([]datatypes.Order, error) {
	if m.OrdersFunc == nil {
		return nil, errUnavailable
	}
	return m.OrdersFunc(ctx, authToken)
}

func (m *mockBackend) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	if m.DownloadFunc == nil {
		return nil, errUnavailable
	}
	return m.DownloadFunc(ctx, imageURL)
}

type mockTryOn struct {
	SubmitFunc func(ctx context.Context, person, garment []byte) (*tryon.Job, error)
	PollFunc   func(ctx context.Context, job *tryon.Job) (string, error)
}

func (m *mockTryOn) Submit(ctx context.Context, person, garment []byte) (*tryon.Job, error) {
	if m.SubmitFunc == nil {
		return nil, errUnavailable
	}
	return m.SubmitFunc(ctx, person, garment)
}

func (m *mockTryOn) Poll(ctx context.Context, job *tryon.Job) (string, error) {
	if m.PollFunc == nil {
		return "", errUnavailable
	}
	return m.PollFunc(ctx, job)
}
