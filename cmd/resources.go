package cmd

import (
	"fmt"
	"io"

	"github.com/plumgrid/pg-gateway/internal/resources"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type resourceDoc struct {
	Path     string   `yaml:"path"`
	Services []string `yaml:"services"`
	Contexts []string `yaml:"contexts"`
}

type resourcesOutput struct {
	Resources  []resourceDoc       `yaml:"resources"`
	RestartMap map[string][]string `yaml:"restart_map"`
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Print the managed files and the services they restart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeResources(cmd.OutOrStdout())
	},
}

func writeResources(w io.Writer) error {
	m := resources.New()
	out := resourcesOutput{RestartMap: m.RestartMap()}
	for _, e := range m.Entries() {
		svcs := e.Services
		if svcs == nil {
			svcs = []string{}
		}
		out.Resources = append(out.Resources, resourceDoc{Path: e.Path, Services: svcs, Contexts: e.Contexts})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode resources: %w", err)
	}
	return enc.Close()
}

func init() {
	RootCmd.AddCommand(resourcesCmd)
}
