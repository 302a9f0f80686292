package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type configOptions struct {
	*rootOptions
	Write bool
}

func newConfigCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &configOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file, environment
variables and flags have been applied.

With --write the result is saved to the --config path instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if opts.Write {
				if err := cfg.Save(opts.ConfigPath); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "wrote", opts.ConfigPath)
				return nil
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.Write, "write", false, "save the effective configuration to the config file")

	return cmd
}
