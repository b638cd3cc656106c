package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trackpick/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded config template to disk for the user to
// fill in.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("Config template written to %s\n", configPath)
	r.writePlain("Fill in your Spotify client credentials before running serve.\n")

	return nil
}
