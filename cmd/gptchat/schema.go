package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/gptchat/schema"
)

type schemaOutput struct {
	Fields   map[string]schema.Field `yaml:"fields"`
	Defaults map[string]interface{}  `yaml:"defaults"`
}

func (a *app) newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the run configuration schema and its defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			s, defaults := schema.NewLoader(c, a.logger).Load(cmd.Context())
			if s == nil {
				return fmt.Errorf("config schema unavailable")
			}

			data, err := yaml.Marshal(schemaOutput{Fields: s.Fields, Defaults: defaults.Configurable})
			if err != nil {
				return fmt.Errorf("failed to encode schema: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
