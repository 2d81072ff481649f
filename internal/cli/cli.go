// Package cli implements the stickerctl command line.
//
//	stickerctl generate --ref face.png --out ./pack
//	stickerctl generate --ref face.png --labels "Happy,Sad" --provider openai
//	stickerctl compose --in raw.png --label "Thumbs Up" --out thumbs.png
//	stickerctl labels --labels-file presets.yaml --set office
//
// generate runs one batch in the foreground and writes every completed
// sticker plus the zipped pack through the file store. Configuration comes
// from the environment (and .env) exactly like the API server.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stickerforge/internal/infra"
	"stickerforge/internal/providers/image"
)

// Version is reported by --version.
const Version = "0.1.0"

// GeneratorFactory builds the image backend from configuration.
type GeneratorFactory func(cfg *infra.Config, logger *infra.Logger) (image.Generator, error)

type app struct {
	newGenerator GeneratorFactory
	loadConfig   func() (*infra.Config, error)
	verbose      bool
}

// BuildCLI returns the root command wired to the configured providers.
func BuildCLI() *cobra.Command {
	return newRootCommand(&app{newGenerator: image.NewFromConfig, loadConfig: infra.LoadConfig})
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "stickerctl",
		Short:        "Generate Telegram sticker packs from a single reference image",
		Version:      Version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	cmd.AddCommand(a.buildGenerateCommand())
	cmd.AddCommand(a.buildComposeCommand())
	cmd.AddCommand(a.buildLabelsCommand())
	return cmd
}

func (a *app) logger(cmd *cobra.Command) infra.Logger {
	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	return infra.NewConsoleLogger(cmd.ErrOrStderr(), level)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
