package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/devisible/internal/application"
	"github.com/ericfisherdev/devisible/internal/domain/model"
)

// outOfSpecInput is the file format read by the outofspec command.
type outOfSpecInput struct {
	Preferred map[string]string           `yaml:"preferred"`
	Repos     map[int64]map[string]string `yaml:"repos"`
}

// outOfSpecEntry is one flagged repository in the command output.
type outOfSpecEntry struct {
	RepoID        int64        `yaml:"repo_id" json:"repo_id"`
	DepsOutOfSpec []string     `yaml:"deps_out_of_spec" json:"deps_out_of_spec"`
	Drift         []driftEntry `yaml:"drift" json:"drift"`
}

type driftEntry struct {
	Name      string `yaml:"name" json:"name"`
	Installed string `yaml:"installed" json:"installed"`
	Preferred string `yaml:"preferred" json:"preferred"`
	Direction string `yaml:"direction" json:"direction"`
}

func newOutOfSpecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outofspec FILE",
		Short: "Report repositories whose dependencies differ from the preferred versions",
		Long: `Read preferred versions and per-repository dependencies from a YAML file
and print the repositories with out-of-spec dependencies.

Use "-" to read from standard input.

Example input:
  preferred:
    react: 18.2.0
  repos:
    1:
      react: 17.0.2
      lodash: 4.17.21`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			return runOutOfSpec(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], format)
		},
	}
	cmd.Flags().StringP("output", "o", "yaml", "output format: yaml or json")
	return cmd
}

func runOutOfSpec(stdin io.Reader, out io.Writer, path, format string) error {
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported output format %q", format)
	}

	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var in outOfSpecInput
	if err := yaml.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	preferred := model.PreferredVersions(in.Preferred)
	deps := make(model.RepoDependencies, len(in.Repos))
	for id, set := range in.Repos {
		deps[id] = model.DependencySet(set)
	}

	entries := buildOutOfSpecEntries(preferred, deps)

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}

// buildOutOfSpecEntries runs the matcher and orders the result by repository ID.
func buildOutOfSpecEntries(preferred model.PreferredVersions, deps model.RepoDependencies) []outOfSpecEntry {
	report := application.FindOutOfSpecRepos(preferred, deps)
	drift := application.ComputeDrift(report, preferred, deps)

	ids := make([]int64, 0, len(report))
	for id := range report {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	entries := make([]outOfSpecEntry, 0, len(ids))
	for _, id := range ids {
		d := make([]driftEntry, 0, len(drift[id]))
		for _, x := range drift[id] {
			d = append(d, driftEntry{
				Name:      x.Name,
				Installed: x.Installed,
				Preferred: x.Preferred,
				Direction: string(x.Direction),
			})
		}
		entries = append(entries, outOfSpecEntry{
			RepoID:        id,
			DepsOutOfSpec: report[id],
			Drift:         d,
		})
	}
	return entries
}
