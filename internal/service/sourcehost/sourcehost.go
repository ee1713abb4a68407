package sourcehost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"mapchat.app/server/internal/model"
	"mapchat.app/server/internal/store"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrInvalidCode     = errors.New("invalid authorization code")
)

// repoCacheTTL bounds how long a linked account's repository summary is
// served without re-hitting the provider.
const repoCacheTTL = 5 * time.Minute

// Host performs the provider-specific upstream calls for one source-control
// host. Implementations hold OAuth app credentials but never tokens; tokens
// stay in the caller's session.
type Host interface {
	Name() model.Provider
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	Profile(ctx context.Context, token string) (*model.Profile, error)
	Repositories(ctx context.Context, token string) ([]model.Repository, error)
}

// LinkService is the account-link proxy: it builds authorization URLs,
// exchanges callback codes for tokens, and re-issues authenticated reads
// against whichever host a session has linked.
type LinkService interface {
	AuthorizationURL(provider model.Provider, state string) (string, error)
	Exchange(ctx context.Context, provider model.Provider, code string) (string, error)
	Profile(ctx context.Context, provider model.Provider, token string) (*model.Profile, error)
	Repositories(ctx context.Context, sessionID string, provider model.Provider, token string) ([]model.Repository, error)
	Invalidate(ctx context.Context, sessionID string, provider model.Provider) error
}

type linkService struct {
	hosts map[model.Provider]Host
	cache store.RepoCache
}

func NewLinkService(cache store.RepoCache, hosts ...Host) LinkService {
	byName := make(map[model.Provider]Host, len(hosts))
	for _, h := range hosts {
		byName[h.Name()] = h
	}
	return &linkService{hosts: byName, cache: cache}
}

func (s *linkService) AuthorizationURL(provider model.Provider, state string) (string, error) {
	host, err := s.host(provider)
	if err != nil {
		return "", err
	}
	return host.AuthorizationURL(state), nil
}

func (s *linkService) Exchange(ctx context.Context, provider model.Provider, code string) (string, error) {
	host, err := s.host(provider)
	if err != nil {
		return "", err
	}

	token, err := host.Exchange(ctx, code)
	if err != nil {
		slog.WarnContext(ctx, "code exchange failed", "provider", provider, "error", err)
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", fmt.Errorf("%w: %v", ErrInvalidCode, err)
		}
		return "", fmt.Errorf("exchanging %s code: %w", provider, err)
	}

	slog.InfoContext(ctx, "account linked", "provider", provider)
	return token, nil
}

func (s *linkService) Profile(ctx context.Context, provider model.Provider, token string) (*model.Profile, error) {
	host, err := s.host(provider)
	if err != nil {
		return nil, err
	}

	profile, err := host.Profile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetching %s profile: %w", provider, err)
	}
	return profile, nil
}

func (s *linkService) Repositories(ctx context.Context, sessionID string, provider model.Provider, token string) ([]model.Repository, error) {
	host, err := s.host(provider)
	if err != nil {
		return nil, err
	}

	if repos, ok, err := s.cache.Get(ctx, sessionID, provider); err != nil {
		slog.WarnContext(ctx, "repo cache read failed", "provider", provider, "error", err)
	} else if ok {
		return repos, nil
	}

	repos, err := host.Repositories(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetching %s repositories: %w", provider, err)
	}

	if len(repos) > model.RepositoryLimit {
		repos = repos[:model.RepositoryLimit]
	}

	if err := s.cache.Set(ctx, sessionID, provider, repos, repoCacheTTL); err != nil {
		slog.WarnContext(ctx, "repo cache write failed", "provider", provider, "error", err)
	}

	return repos, nil
}

func (s *linkService) Invalidate(ctx context.Context, sessionID string, provider model.Provider) error {
	return s.cache.Delete(ctx, sessionID, provider)
}

func (s *linkService) host(provider model.Provider) (Host, error) {
	host, ok := s.hosts[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return host, nil
}
