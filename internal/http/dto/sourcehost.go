package dto

import "mapchat.app/server/internal/model"

type AuthURLResponse struct {
	URL string `json:"url"`
}

type ProfileResponse struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURI   string `json:"avatar_uri"`
}

func FromProfile(p model.Profile) ProfileResponse {
	return ProfileResponse{
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		AvatarURI:   p.AvatarURI,
	}
}

type Repository struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
}

type RepositoriesResponse struct {
	Repositories []Repository `json:"repositories"`
}

func FromRepositories(repos []model.Repository) RepositoriesResponse {
	out := RepositoriesResponse{Repositories: make([]Repository, 0, len(repos))}
	for _, r := range repos {
		out.Repositories = append(out.Repositories, Repository{
			Name:        r.Name,
			URI:         r.URI,
			Description: r.Description,
		})
	}
	return out
}
