package git

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotRepository is returned when no .git directory is found above the start directory
var ErrNotRepository = errors.New("not in a git repository")

const maxSearchDepth = 10

// DetectRepository finds the enclosing git repository of the working directory
// and returns its origin remote in owner/repo form
func DetectRepository() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return DetectRepositoryFrom(cwd)
}

// DetectRepositoryFrom is DetectRepository starting at dir
func DetectRepositoryFrom(dir string) (string, error) {
	configPath, err := findGitConfig(dir)
	if err != nil {
		return "", err
	}
	return parseGitConfig(configPath)
}

// findGitConfig walks upward from dir looking for .git/config
func findGitConfig(dir string) (string, error) {
	for range maxSearchDepth {
		configPath := filepath.Join(dir, ".git", "config")
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrNotRepository
}

// parseGitConfig returns the owner/repo of the origin remote in a git config file
func parseGitConfig(configPath string) (string, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read git config: %w", err)
	}
	defer f.Close()

	var inOrigin bool
	var remote string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inOrigin = line == `[remote "origin"]`
			continue
		}
		if !inOrigin {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(key) == "url" {
			remote = strings.TrimSpace(value)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read git config: %w", err)
	}

	if remote == "" {
		return "", fmt.Errorf("no origin remote found in git config")
	}

	return ParseRemoteURL(remote)
}

// ParseRemoteURL converts a GitHub remote URL to owner/repo.
// Handles:
//   - https://github.com/owner/repo(.git)
//   - ssh://git@github.com/owner/repo(.git)
//   - git@github.com:owner/repo(.git)
func ParseRemoteURL(remote string) (string, error) {
	var path string

	if after, ok := strings.CutPrefix(remote, "git@github.com:"); ok {
		path = after
	} else if u, err := url.Parse(remote); err == nil && u.Hostname() == "github.com" {
		switch u.Scheme {
		case "https", "http", "ssh", "git":
			path = strings.TrimPrefix(u.Path, "/")
		}
	}

	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	if !repoPattern.MatchString(path) {
		return "", fmt.Errorf("failed to extract owner/repo from URL: %s", remote)
	}
	return path, nil
}
