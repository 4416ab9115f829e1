package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoRef identifies one repository on one platform.
type RepoRef struct {
	Platform Platform
	Owner    string
	Name     string
}

// FullName returns "owner/name", the Repo key used in the store.
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r RepoRef) String() string {
	return fmt.Sprintf("%s:%s", r.Platform, r.FullName())
}

// ParseRepoRef accepts "owner/repo" (GitHub) or a repository URL on a GitHub
// or GitLab host. For URLs the last two path segments are owner and repo.
func ParseRepoRef(s string) (RepoRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RepoRef{}, fmt.Errorf("empty repository reference")
	}

	if !strings.Contains(s, "://") {
		owner, name, err := SplitRepo(s)
		if err != nil {
			return RepoRef{}, err
		}
		return RepoRef{Platform: PlatformGitHub, Owner: owner, Name: name}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return RepoRef{}, fmt.Errorf("invalid repository URL %q: %w", s, err)
	}

	var platform Platform
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "github"):
		platform = PlatformGitHub
	case strings.Contains(host, "gitlab"):
		platform = PlatformGitLab
	default:
		return RepoRef{}, fmt.Errorf("unsupported repository host %q (expected github or gitlab)", u.Host)
	}

	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	// GitLab web URLs may carry a "/-/..." suffix (e.g. /-/merge_requests).
	if i := strings.Index(path, "/-/"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return RepoRef{}, fmt.Errorf("invalid repository URL %q: expected .../owner/repo", s)
	}

	return RepoRef{
		Platform: platform,
		Owner:    parts[len(parts)-2],
		Name:     parts[len(parts)-1],
	}, nil
}

// SplitRepo splits "owner/name" into its parts.
func SplitRepo(fullName string) (owner, name string, err error) {
	parts := strings.Split(strings.Trim(fullName, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
