package source

import (
	"fmt"
	"strings"
)

// RepoRef is a repository reference of the form <url> or <url>#<ref>.
// An empty Ref selects the remote's default branch.
type RepoRef struct {
	URL string
	Ref string
}

// ParseRepoRef splits s on its first '#'. Everything after it is the ref.
func ParseRepoRef(s string) (RepoRef, error) {
	s = strings.TrimSpace(s)
	url, ref, _ := strings.Cut(s, "#")
	if url == "" {
		return RepoRef{}, fmt.Errorf("repository reference %q has no URL", s)
	}
	if strings.HasPrefix(url, "-") {
		return RepoRef{}, fmt.Errorf("repository URL %q must not start with '-'", url)
	}
	if strings.HasPrefix(ref, "-") {
		return RepoRef{}, fmt.Errorf("ref %q must not start with '-'", ref)
	}
	return RepoRef{URL: url, Ref: ref}, nil
}

// String returns the reference in <url>[#<ref>] form.
func (r RepoRef) String() string {
	if r.Ref == "" {
		return r.URL
	}
	return r.URL + "#" + r.Ref
}
