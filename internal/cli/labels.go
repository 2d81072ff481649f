package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stickerforge/internal/labels"
)

func (a *app) buildLabelsCommand() *cobra.Command {
	var (
		file     string
		set      string
		listSets bool
	)
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Print the labels a batch would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			file = firstNonEmpty(file, cfg.LabelsFile)
			out := cmd.OutOrStdout()

			if listSets {
				if file == "" {
					return errors.New("labels: --sets needs a preset file")
				}
				preset, err := labels.ReadPreset(file)
				if err != nil {
					return err
				}
				for _, name := range preset.SetNames() {
					marker := " "
					if name == preset.Default {
						marker = "*"
					}
					fmt.Fprintf(out, "%s %s (%d)\n", marker, name, len(preset.Sets[name]))
				}
				return nil
			}

			list, err := labels.Load(file, firstNonEmpty(set, cfg.LabelSet))
			if err != nil {
				return err
			}
			for _, label := range list {
				fmt.Fprintln(out, label)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "labels-file", "", "YAML label preset file (default $LABELS_FILE)")
	f.StringVar(&set, "set", "", "Preset set name (default $LABEL_SET)")
	f.BoolVar(&listSets, "sets", false, "List the named sets in the preset file")
	return cmd
}
