package sourcehost

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"mapchat.app/server/core/config"
	"mapchat.app/server/internal/model"
)

type githubHost struct {
	oauth      *oauth2.Config
	apiBaseURL string // test override; empty means api.github.com
}

// NewGitHubHost builds the GitHub account-link host. Scopes cover reading
// the user's profile and repositories, nothing more.
func NewGitHubHost(cfg config.OAuthProviderConfig) Host {
	return &githubHost{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"read:user", "repo"},
			Endpoint:     githuboauth.Endpoint,
		},
	}
}

func (h *githubHost) Name() model.Provider {
	return model.ProviderGitHub
}

func (h *githubHost) AuthorizationURL(state string) string {
	return h.oauth.AuthCodeURL(state)
}

func (h *githubHost) Exchange(ctx context.Context, code string) (string, error) {
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging code: %w", err)
	}
	return token.AccessToken, nil
}

func (h *githubHost) Profile(ctx context.Context, token string) (*model.Profile, error) {
	client, err := h.client(token)
	if err != nil {
		return nil, err
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("getting authenticated user: %w", err)
	}

	displayName := user.GetName()
	if displayName == "" {
		displayName = user.GetLogin()
	}

	return &model.Profile{
		Handle:      user.GetLogin(),
		DisplayName: displayName,
		AvatarURI:   user.GetAvatarURL(),
	}, nil
}

func (h *githubHost) Repositories(ctx context.Context, token string) ([]model.Repository, error) {
	client, err := h.client(token)
	if err != nil {
		return nil, err
	}

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: model.RepositoryLimit},
	}

	ghRepos, _, err := client.Repositories.ListByAuthenticatedUser(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}

	repos := make([]model.Repository, 0, len(ghRepos))
	for _, r := range ghRepos {
		repos = append(repos, model.Repository{
			Name:        r.GetName(),
			URI:         r.GetHTMLURL(),
			Description: r.GetDescription(),
		})
	}
	return repos, nil
}

func (h *githubHost) client(token string) (*github.Client, error) {
	client := github.NewClient(nil).WithAuthToken(token)
	if h.apiBaseURL != "" {
		base, err := url.Parse(h.apiBaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing api base url: %w", err)
		}
		client.BaseURL = base
	}
	return client, nil
}
