package entities

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Site is a website whose sources live in a working directory tracked by one repository.
type Site struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
	Dir string `json:"dir"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateIdentifier checks that a site or batch id is safe to use in paths and ref names.
func ValidateIdentifier(kind, id string) error {
	if !identifierPattern.MatchString(id) || len(id) > 128 {
		return fmt.Errorf("invalid %s id %q: use letters, digits, '.', '_' or '-'", kind, id)
	}
	return nil
}

// gitDirName is the repository metadata directory, owned by the change-tracking engine.
const gitDirName = ".git"

// CleanSitePath normalises a path relative to a site root to slash form and rejects
// absolute paths, paths escaping the root and paths inside repository metadata.
func CleanSitePath(raw string) (string, error) {
	slashed := filepath.ToSlash(strings.TrimSpace(raw))
	if slashed == "" || path.IsAbs(slashed) || filepath.IsAbs(raw) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideSite, raw)
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideSite, raw)
	}
	for _, segment := range strings.Split(cleaned, "/") {
		if strings.EqualFold(segment, gitDirName) {
			return "", fmt.Errorf("%w: %q is repository metadata", ErrPathOutsideSite, raw)
		}
	}
	return cleaned, nil
}
