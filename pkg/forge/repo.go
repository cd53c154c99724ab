package forge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPR is returned for a PR number that is not a positive integer.
var ErrInvalidPR = errors.New("invalid PR number")

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// Slug returns "owner/name".
func (r Repo) Slug() string {
	return r.Owner + "/" + r.Name
}

func (r Repo) String() string { return r.Slug() }

// Transport selects the clone URL flavour.
type Transport string

const (
	SSH   Transport = "ssh"
	HTTPS Transport = "https"
)

// ParseRepo accepts "owner/name", a github.com URL or an SSH remote.
func ParseRepo(s string) (Repo, error) {
	repoURL := strings.TrimSpace(s)
	repoURL = strings.TrimPrefix(repoURL, "https://")
	repoURL = strings.TrimPrefix(repoURL, "http://")
	repoURL = strings.TrimPrefix(repoURL, "git@github.com:")
	repoURL = strings.TrimPrefix(repoURL, "github.com/")
	repoURL = strings.TrimSuffix(repoURL, "/")
	repoURL = strings.TrimSuffix(repoURL, ".git")

	parts := strings.SplitN(repoURL, "/", 3)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("cannot parse GitHub repo from %q", s)
	}
	return Repo{Owner: parts[0], Name: parts[1]}, nil
}

// ParsePRNumber validates a PR number given as text.
func ParsePRNumber(s string) (int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPR, s)
	}
	return n, nil
}
