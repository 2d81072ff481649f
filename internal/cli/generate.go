package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stickerforge/internal/codec"
	"stickerforge/internal/compositor"
	"stickerforge/internal/domain"
	"stickerforge/internal/export"
	"stickerforge/internal/labels"
	"stickerforge/internal/sticker"
	"stickerforge/internal/storage"
)

type generateOptions struct {
	reference  string
	outDir     string
	labels     []string
	labelsFile string
	set        string
	provider   string
}

func (a *app) buildGenerateCommand() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one sticker per label and write the pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.reference, "ref", "r", "", "Reference image (png, jpeg or webp)")
	f.StringVarP(&opts.outDir, "out", "o", export.FolderName, "Output directory")
	f.StringSliceVarP(&opts.labels, "labels", "l", nil, "Comma separated labels, overrides presets")
	f.StringVar(&opts.labelsFile, "labels-file", "", "YAML label preset file (default $LABELS_FILE)")
	f.StringVar(&opts.set, "set", "", "Preset set name (default $LABEL_SET)")
	f.StringVar(&opts.provider, "provider", "", "Image provider, gemini or openai (default $IMAGE_PROVIDER)")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, opts generateOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if opts.provider != "" {
		cfg.ImageProvider = opts.provider
	}
	logger := a.logger(cmd)

	list, err := resolveLabels(opts.labels, firstNonEmpty(opts.labelsFile, cfg.LabelsFile), firstNonEmpty(opts.set, cfg.LabelSet))
	if err != nil {
		return err
	}
	ref, err := codec.EncodeFile(opts.reference)
	if err != nil {
		return err
	}

	generator, err := a.newGenerator(cfg, &logger)
	if err != nil {
		return err
	}
	comp, err := compositor.NewDefault(cfg.OutputSize, cfg.BadgeFontSize)
	if err != nil {
		return err
	}
	orch, err := sticker.NewOrchestrator(sticker.Options{Generator: generator, Compositor: comp, Logger: &logger})
	if err != nil {
		return err
	}
	session := sticker.NewSession(orch, list)
	if err := session.SetReference(ref); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	unsubscribe := orch.Subscribe(newProgressPrinter(out).handle)
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, err := session.Generate(ctx)
	if err != nil {
		return err
	}

	store, err := storage.NewFileStore(opts.outDir)
	if err != nil {
		return err
	}
	written, writeErr := writeOutputs(context.WithoutCancel(ctx), store, jobs)

	stats := domain.ComputeStats(jobs)
	summary := color.New(color.FgGreen, color.Bold)
	if stats.Failed > 0 || stats.Completed < stats.Total {
		summary = color.New(color.FgYellow, color.Bold)
	}
	_, _ = summary.Fprintf(out, "%d completed, %d failed, %d not started\n", stats.Completed, stats.Failed, stats.Total-stats.Processed())
	for _, key := range written {
		path, _ := store.Path(key)
		fmt.Fprintf(out, "  %s\n", path)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return writeErr
}

func resolveLabels(explicit []string, file, set string) ([]string, error) {
	var list []string
	if len(explicit) > 0 {
		list = labels.Normalize(explicit)
	} else {
		loaded, err := labels.Load(file, set)
		if err != nil {
			return nil, err
		}
		list = loaded
	}
	if err := labels.Validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

// writeOutputs stores each completed sticker and then the pack archive.
func writeOutputs(ctx context.Context, store *storage.FileStore, jobs []domain.StickerJob) ([]string, error) {
	var written []string
	for _, job := range jobs {
		if job.Status != domain.JobStatusCompleted {
			continue
		}
		data, _, err := codec.DecodeDataURL(job.FinalImage)
		if err != nil {
			return written, fmt.Errorf("sticker %q: %w", job.Label, err)
		}
		key, err := store.Write(ctx, stickerKey(job.Label), data)
		if err != nil {
			return written, err
		}
		written = append(written, key)
	}

	archive, err := export.Export(jobs)
	if err != nil {
		return written, err
	}
	key, err := store.Write(ctx, export.ArchiveName, archive)
	if err != nil {
		return written, err
	}
	return append(written, key), nil
}

// stickerKey keeps a label with slashes from creating directories.
func stickerKey(label string) string {
	return strings.ReplaceAll(export.SingleFilename(label), "/", "_")
}

type progressPrinter struct {
	out     io.Writer
	working *color.Color
	ok      *color.Color
	failed  *color.Color
	dim     *color.Color
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{
		out:     out,
		working: color.New(color.FgYellow),
		ok:      color.New(color.FgGreen),
		failed:  color.New(color.FgRed),
		dim:     color.New(color.FgHiBlack),
	}
}

func (p *progressPrinter) handle(ev sticker.Event) {
	if ev.Kind != sticker.EventTransition {
		return
	}
	job := ev.Job
	total := ev.Stats.Total
	width := len(fmt.Sprint(total))
	switch job.Status {
	case domain.JobStatusGenerating:
		prefix := fmt.Sprintf("[%*d/%d]", width, ev.Stats.Processed()+1, total)
		_, _ = p.dim.Fprint(p.out, prefix)
		_, _ = p.working.Fprintf(p.out, " %s generating\n", job.Label)
	case domain.JobStatusCompleted:
		prefix := fmt.Sprintf("[%*d/%d]", width, ev.Stats.Processed(), total)
		_, _ = p.dim.Fprint(p.out, prefix)
		_, _ = p.ok.Fprintf(p.out, " %s done\n", job.Label)
	case domain.JobStatusFailed:
		prefix := fmt.Sprintf("[%*d/%d]", width, ev.Stats.Processed(), total)
		_, _ = p.dim.Fprint(p.out, prefix)
		_, _ = p.failed.Fprintf(p.out, " %s failed: %s\n", job.Label, job.ErrorMessage)
	}
}
