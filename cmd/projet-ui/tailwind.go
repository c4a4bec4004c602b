package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eneky/projet-ui/internal/config"
	"github.com/eneky/projet-ui/internal/tailwind"
)

func tailwindCmd(load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tailwind",
		Short: "Manage the Tailwind CSS build",
	}
	cmd.AddCommand(tailwindBuildCmd(load), tailwindConfigCmd(load))
	return cmd
}

func tailwindBuildCmd(load func() (*config.Config, error)) *cobra.Command {
	var minify bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the stylesheet once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.TailwindConfigPath()); os.IsNotExist(err) {
				if err := tailwind.WriteConfig(cfg.TailwindConfigPath(), tailwind.Options{Content: cfg.Tailwind.Content}); err != nil {
					return err
				}
				info("Wrote %s", cfg.TailwindConfigPath())
			}

			runner := tailwind.NewRunner(tailwind.NewBinary(cfg.Tailwind.Version), cfg.Dir())
			runner.Stdout = cmd.OutOrStdout()
			runner.Stderr = cmd.ErrOrStderr()
			err = runner.Build(cmd.Context(), tailwind.RunnerConfig{
				InputPath:  cfg.TailwindInputPath(),
				OutputPath: cfg.TailwindOutputPath(),
				ConfigPath: cfg.TailwindConfigPath(),
				Minify:     minify,
				Progress:   func(msg string) { info("%s", msg) },
			})
			if err != nil {
				return err
			}
			success("Built %s", cfg.TailwindOutputPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&minify, "minify", false, "Minify the output")
	return cmd
}

func tailwindConfigCmd(load func() (*config.Config, error)) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write tailwind.config.js with the projet palette",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			path := cfg.TailwindConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				warn("%s already exists (use --force to overwrite)", path)
				return nil
			}
			if err := tailwind.WriteConfig(path, tailwind.Options{Content: cfg.Tailwind.Content}); err != nil {
				return err
			}
			success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
