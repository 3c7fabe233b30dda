package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/solrscout/configs"
	"github.com/Aman-CERP/solrscout/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage solrscout configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/solrscout/config.yaml)
  3. Project config (.solrscout.yaml)
  4. .env in the project directory
  5. Environment variables (SOLRSCOUT_*)`,
		Example: `  # Create .solrscout.yaml in the current directory
  solrscout config init

  # Show effective configuration
  solrscout config show

  # Roll back the project config to its newest backup
  solrscout config restore`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		user  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the template",
		Long: `Create .solrscout.yaml in the project directory, or the user config
with --user. An existing file is kept unless --force is given, in which
case it is backed up first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, template := filepath.Join(projectDir, config.ProjectFile), configs.ProjectConfigTemplate
			if user {
				path, template = config.GetUserConfigPath(), configs.UserConfigTemplate
			}
			return runConfigInit(cmd, path, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&user, "user", false, "Create the user config instead of the project config")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path, template string, force bool) error {
	out := newWriter(cmd)

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Status("📁", "Location: "+path)
			out.Status("💡", "Use --force to overwrite (the current file is backed up)")
			return nil
		}
		backupPath, err := config.Backup(path)
		if err != nil {
			return err
		}
		out.Status("💾", "Backup: "+backupPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created configuration")
	out.Status("📁", "Location: "+path)
	out.Status("📋", "Declare your models, then run 'solrscout config show' to verify")
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")

	return cmd
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	var (
		cfg *config.Config
		err error
	)
	switch source {
	case "merged":
		if cfg, err = loadConfig(); err != nil {
			return err
		}
	case "defaults":
		cfg = config.NewConfig()
	default:
		return fmt.Errorf("invalid source: %s (use: merged, defaults)", source)
	}

	out := newWriter(cmd)
	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := newWriter(cmd)
			out.KeyValues([][2]string{
				{"user", config.GetUserConfigPath()},
				{"project", filepath.Join(projectDir, config.ProjectFile)},
			})
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore the project config from a backup",
		Long: `Restore .solrscout.yaml from a backup made by 'config init --force'.
Without an argument the newest backup is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newWriter(cmd)
			path := filepath.Join(projectDir, config.ProjectFile)

			backups, err := config.ListBackups(path)
			if err != nil {
				return err
			}
			if list {
				out.Lines(backups)
				return nil
			}

			var backup string
			switch {
			case len(args) == 1:
				backup = args[0]
			case len(backups) > 0:
				backup = backups[0]
			default:
				out.Warning("No backups found")
				return nil
			}

			if err := config.Restore(path, backup); err != nil {
				return err
			}
			out.Success("Restored " + path + " from " + backup)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List backups, newest first")

	return cmd
}
