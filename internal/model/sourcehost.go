package model

// Provider identifies a linkable source-control host.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

func (p Provider) Valid() bool {
	return p == ProviderGitHub || p == ProviderGitLab
}

// Profile is the linked account's identity as reported by the provider.
// Absence of a link is represented by absence of the value, never a sentinel.
type Profile struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURI   string `json:"avatar_uri"`
}

// Repository is one entry of a linked account's repository summary,
// ordered most-recently-updated first and capped at RepositoryLimit.
type Repository struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
}

// RepositoryLimit caps how many repositories are fetched and rendered.
const RepositoryLimit = 5
