package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Cloudsky01/gh-ci-status/internal/config"
	"github.com/Cloudsky01/gh-ci-status/internal/paths"
)

const sectionDivider = "════════════════════════════════════════════════════════════"

func newConfigCmd(a *app, opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect gh-ci-status configuration",
		Long: `Inspect gh-ci-status configuration files.

Configuration Locations:
  User config:     ~/.config/gh-ci-status/config.yaml
  Project config:  <repository root>/.gh-ci-status.yaml

Configuration Precedence (lowest to highest):
  1. Built-in defaults
  2. User config
  3. Project config
  4. Environment variables (GH_CI_STATUS_*, plus DEBUG and NO_COLOR)
  5. CLI flags

--config replaces the user and project files with a single file.`,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Long:  `Display the paths to all configuration files and their existence status.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigPath(cmd, opts)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long:  `Show the effective configuration after merging all sources.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow(cmd, opts)
		},
	})

	return configCmd
}

func (a *app) runConfigPath(cmd *cobra.Command, opts *rootOptions) error {
	p, err := a.configPaths(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration File Locations")
	fmt.Fprintln(out, sectionDivider)
	fmt.Fprintln(out)

	for _, c := range p.Candidates() {
		fmt.Fprintf(out, "%-16s %s %s\n", label(c.Source)+":", c.Path, existsIndicator(c.Exists))
	}
	if p.ProjectRoot != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%-16s %s\n", "Project Root:", p.ProjectRoot)
	}
	if opts.configFile != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%-16s %s %s\n", "--config:", opts.configFile, existsIndicator(fileExists(opts.configFile)))
	}

	return nil
}

func (a *app) runConfigShow(cmd *cobra.Command, opts *rootOptions) error {
	loaded, err := a.loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	data, err := yaml.Marshal(loaded.cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(out, "Effective Configuration")
	fmt.Fprintln(out, sectionDivider)
	fmt.Fprint(out, string(data))
	fmt.Fprintln(out, sectionDivider)

	fmt.Fprintln(out, "Value Sources:")
	for _, key := range config.Keys {
		fmt.Fprintf(out, "  %s: %s\n", key, loaded.sources[key])
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Active Configuration Files:")
	files := activeFiles(loaded.paths, opts)
	if len(files) == 0 {
		fmt.Fprintln(out, "  (none, using defaults)")
	}
	for _, f := range files {
		fmt.Fprintf(out, "  • %s (%s)\n", f.path, f.source)
	}

	return nil
}

type activeFile struct {
	path   string
	source paths.ConfigSource
}

func activeFiles(p *paths.Paths, opts *rootOptions) []activeFile {
	if opts.configFile != "" {
		return []activeFile{{opts.configFile, paths.SourceExplicitFile}}
	}
	var files []activeFile
	for _, path := range p.GetConfigPaths() {
		files = append(files, activeFile{path, p.GetConfigSource(path)})
	}
	return files
}

func label(source paths.ConfigSource) string {
	switch source {
	case paths.SourceUserConfig:
		return "User Config"
	case paths.SourceProjectConfig:
		return "Project Config"
	default:
		return source.String()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func existsIndicator(exists bool) string {
	if exists {
		return "✓"
	}
	return "✗"
}
