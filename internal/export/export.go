// Package export packages completed stickers for download.
package export

import (
	"fmt"
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stickerforge/internal/codec"
	"stickerforge/internal/domain"
	"stickerforge/pkg/zip"
)

const (
	// FolderName is the directory every sticker sits under inside the archive.
	FolderName = "sticker_pack"
	// ArchiveName is the suggested download name of the pack.
	ArchiveName = "telegram_sticker_pack.zip"
)

// ErrNoCompletedJobs means there is nothing to export.
var ErrNoCompletedJobs = fmt.Errorf("%w: no completed stickers to export", domain.ErrNotFound)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename derives the archive entry name for a label: lower-cased, runs of
// whitespace replaced by one underscore, with a .png suffix.
func Filename(label string) string {
	return whitespaceRun.ReplaceAllString(cases.Lower(language.Und).String(label), "_") + ".png"
}

// SingleFilename is the download name of one sticker outside the archive.
func SingleFilename(label string) string {
	return "sticker_" + label + ".png"
}

// Assets decodes the final image of every completed job, in list order.
func Assets(jobs []domain.StickerJob) ([]zip.Asset, error) {
	var assets []zip.Asset
	for _, job := range jobs {
		if job.Status != domain.JobStatusCompleted {
			continue
		}
		data, mediaType, err := codec.DecodeDataURL(job.FinalImage)
		if err != nil {
			return nil, fmt.Errorf("export: job %s: %w", job.ID, err)
		}
		if mediaType == "" {
			mediaType = "image/png"
		}
		assets = append(assets, zip.Asset{Filename: Filename(job.Label), MIME: mediaType, Data: data})
	}
	if len(assets) == 0 {
		return nil, ErrNoCompletedJobs
	}
	return assets, nil
}

// Export builds the sticker pack archive from the completed jobs. It returns
// ErrNoCompletedJobs, and no archive, when none are completed.
func Export(jobs []domain.StickerJob) ([]byte, error) {
	assets, err := Assets(jobs)
	if err != nil {
		return nil, err
	}
	data, err := zip.ArchiveAssets(FolderName, assets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return data, nil
}
