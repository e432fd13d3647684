package git

import (
	"fmt"
	"regexp"
)

var (
	repoPattern   = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)
	commitPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)
)

// ValidateRepositoryFormat validates that a repository string is in owner/repo format
func ValidateRepositoryFormat(repo string) error {
	if !repoPattern.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %q - expected format: owner/repo", repo)
	}
	return nil
}

// ValidateCommit accepts an abbreviated or full hex commit SHA
func ValidateCommit(commit string) error {
	if !commitPattern.MatchString(commit) {
		return fmt.Errorf("invalid commit: %q - expected 7 to 40 hex characters", commit)
	}
	return nil
}
