package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// AppName is the application name used in config paths
	AppName = "gh-ci-status"

	// ConfigFileName is the name of the user config file
	ConfigFileName = "config.yaml"

	// ProjectConfigFileName is the name of the per-repository config file
	ProjectConfigFileName = ".gh-ci-status.yaml"
)

// ConfigSource indicates where a setting came from
type ConfigSource int

const (
	SourceUnknown ConfigSource = iota
	SourceDefault
	SourceUserConfig
	SourceProjectConfig
	SourceExplicitFile
	SourceEnvVar
	SourceCLIFlag
)

func (s ConfigSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceUserConfig:
		return "user config"
	case SourceProjectConfig:
		return "project config"
	case SourceExplicitFile:
		return "--config file"
	case SourceEnvVar:
		return "environment variable"
	case SourceCLIFlag:
		return "CLI flag"
	default:
		return "unknown"
	}
}

// Paths locates config files in the XDG base directories
type Paths struct {
	// UserConfigDir is the user's config directory (~/.config/gh-ci-status)
	UserConfigDir string

	// ProjectRoot is the root of the current git repository (if any)
	ProjectRoot string
}

// Candidate is a config location and whether a file exists there
type Candidate struct {
	Path   string
	Source ConfigSource
	Exists bool
}

func New() (*Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config directory: %w", err)
	}
	return &Paths{UserConfigDir: filepath.Join(configDir, AppName)}, nil
}

// NewWithProject also considers the project config below projectRoot
func NewWithProject(projectRoot string) (*Paths, error) {
	p, err := New()
	if err != nil {
		return nil, err
	}
	p.ProjectRoot = projectRoot
	return p, nil
}

func (p *Paths) UserConfigFile() string {
	return filepath.Join(p.UserConfigDir, ConfigFileName)
}

// ProjectConfigFile is empty outside a repository
func (p *Paths) ProjectConfigFile() string {
	if p.ProjectRoot == "" {
		return ""
	}
	return filepath.Join(p.ProjectRoot, ProjectConfigFileName)
}

// Candidates lists every location that is consulted, lowest priority first
func (p *Paths) Candidates() []Candidate {
	candidates := []Candidate{{Path: p.UserConfigFile(), Source: SourceUserConfig}}
	if project := p.ProjectConfigFile(); project != "" {
		candidates = append(candidates, Candidate{Path: project, Source: SourceProjectConfig})
	}

	for i := range candidates {
		info, err := os.Stat(candidates[i].Path)
		candidates[i].Exists = err == nil && !info.IsDir()
	}
	return candidates
}

// GetConfigPaths returns the existing config files, lowest priority first
func (p *Paths) GetConfigPaths() []string {
	var found []string
	for _, c := range p.Candidates() {
		if c.Exists {
			found = append(found, c.Path)
		}
	}
	return found
}

// GetConfigSource determines which source a config path corresponds to
func (p *Paths) GetConfigSource(path string) ConfigSource {
	switch path {
	case p.UserConfigFile():
		return SourceUserConfig
	case p.ProjectConfigFile():
		if path != "" {
			return SourceProjectConfig
		}
	}
	return SourceUnknown
}
