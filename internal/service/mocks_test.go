package service_test

import (
	"context"

	"mapchat.app/server/common/llm"
	"mapchat.app/server/internal/model"
)

type mockLLMClient struct {
	chatFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
	calls  int
}

func (m *mockLLMClient) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.calls++
	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return &llm.Response{Content: "ok", FinishReason: "stop"}, nil
}

func (m *mockLLMClient) Model() string { return "mock" }

type mockLinkService struct {
	authorizationURLFn func(provider model.Provider, state string) (string, error)
	exchangeFn         func(ctx context.Context, provider model.Provider, code string) (string, error)
	profileFn          func(ctx context.Context, provider model.Provider, token string) (*model.Profile, error)
	repositoriesFn     func(ctx context.Context, sessionID string, provider model.Provider, token string) ([]model.Repository, error)
	invalidateFn       func(ctx context.Context, sessionID string, provider model.Provider) error
}

func (m *mockLinkService) AuthorizationURL(provider model.Provider, state string) (string, error) {
	if m.authorizationURLFn != nil {
		return m.authorizationURLFn(provider, state)
	}
	return "https://example.test/authorize", nil
}

func (m *mockLinkService) Exchange(ctx context.Context, provider model.Provider, code string) (string, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, provider, code)
	}
	return "token", nil
}

func (m *mockLinkService) Profile(ctx context.Context, provider model.Provider, token string) (*model.Profile, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, provider, token)
	}
	return &model.Profile{Handle: "octocat"}, nil
}

func (m *mockLinkService) Repositories(ctx context.Context, sessionID string, provider model.Provider, token string) ([]model.Repository, error) {
	if m.repositoriesFn != nil {
		return m.repositoriesFn(ctx, sessionID, provider, token)
	}
	return nil, nil
}

func (m *mockLinkService) Invalidate(ctx context.Context, sessionID string, provider model.Provider) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, sessionID, provider)
	}
	return nil
}
