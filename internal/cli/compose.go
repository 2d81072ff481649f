package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"stickerforge/internal/compositor"
	"stickerforge/internal/domain"
	"stickerforge/internal/export"
	"stickerforge/internal/storage"
)

func (a *app) buildComposeCommand() *cobra.Command {
	var (
		in       string
		label    string
		out      string
		size     int
		fontSize float64
	)
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Badge an existing image offline, without calling a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrIO, err)
			}
			comp, err := compositor.NewDefault(size, fontSize)
			if err != nil {
				return err
			}
			data, err := comp.Render(raw, label)
			if err != nil {
				return err
			}
			if out == "" {
				out = stickerKey(label)
			}
			store, err := storage.NewFileStore(filepath.Dir(out))
			if err != nil {
				return err
			}
			key, err := store.Write(cmd.Context(), filepath.Base(out), data)
			if err != nil {
				return err
			}
			path, _ := store.Path(key)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in, "in", "i", "", "Source image")
	f.StringVarP(&label, "label", "l", "", "Badge text")
	f.StringVarP(&out, "out", "o", "", "Output PNG path (default "+export.SingleFilename("<label>")+")")
	f.IntVar(&size, "size", compositor.DefaultSize, "Output edge length in pixels")
	f.Float64Var(&fontSize, "font-size", compositor.DefaultFontSize, "Badge font size")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}
