package sourcehost

import (
	"context"
	"fmt"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/oauth2"
	gitlaboauth "golang.org/x/oauth2/gitlab"

	"mapchat.app/server/core/config"
	"mapchat.app/server/internal/model"
)

type gitlabHost struct {
	oauth       *oauth2.Config
	instanceURL string
}

// NewGitLabHost builds the GitLab account-link host. A self-hosted instance
// URL swaps both the OAuth endpoints and the API base.
func NewGitLabHost(cfg config.OAuthProviderConfig) Host {
	endpoint := gitlaboauth.Endpoint
	if cfg.InstanceURL != "" && cfg.InstanceURL != "https://gitlab.com" {
		endpoint = oauth2.Endpoint{
			AuthURL:  cfg.InstanceURL + "/oauth/authorize",
			TokenURL: cfg.InstanceURL + "/oauth/token",
		}
	}

	return &gitlabHost{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"read_user", "read_api"},
			Endpoint:     endpoint,
		},
		instanceURL: cfg.InstanceURL,
	}
}

func (h *gitlabHost) Name() model.Provider {
	return model.ProviderGitLab
}

func (h *gitlabHost) AuthorizationURL(state string) string {
	return h.oauth.AuthCodeURL(state)
}

func (h *gitlabHost) Exchange(ctx context.Context, code string) (string, error) {
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging code: %w", err)
	}
	return token.AccessToken, nil
}

func (h *gitlabHost) Profile(ctx context.Context, token string) (*model.Profile, error) {
	client, err := h.client(token)
	if err != nil {
		return nil, err
	}

	user, _, err := client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	displayName := user.Name
	if displayName == "" {
		displayName = user.Username
	}

	return &model.Profile{
		Handle:      user.Username,
		DisplayName: displayName,
		AvatarURI:   user.AvatarURL,
	}, nil
}

func (h *gitlabHost) Repositories(ctx context.Context, token string) ([]model.Repository, error) {
	client, err := h.client(token)
	if err != nil {
		return nil, err
	}

	opts := &gitlab.ListProjectsOptions{
		Membership: gitlab.Ptr(true),
		OrderBy:    gitlab.Ptr("last_activity_at"),
		Sort:       gitlab.Ptr("desc"),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: model.RepositoryLimit,
		},
	}

	projects, _, err := client.Projects.ListProjects(opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	repos := make([]model.Repository, 0, len(projects))
	for _, p := range projects {
		repos = append(repos, model.Repository{
			Name:        p.Name,
			URI:         p.WebURL,
			Description: p.Description,
		})
	}
	return repos, nil
}

func (h *gitlabHost) client(token string) (*gitlab.Client, error) {
	return gitlab.NewOAuthClient(
		token,
		gitlab.WithBaseURL(h.instanceURL+"/api/v4"),
	)
}
