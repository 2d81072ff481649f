// Package zip packs named byte blobs into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// Dedupe collapses assets sharing a filename. The first occurrence keeps its
// position and the last occurrence provides the data.
func Dedupe(assets []Asset) []Asset {
	pos := make(map[string]int, len(assets))
	out := make([]Asset, 0, len(assets))
	for _, asset := range assets {
		if i, ok := pos[asset.Filename]; ok {
			out[i] = asset
			continue
		}
		pos[asset.Filename] = len(out)
		out = append(out, asset)
	}
	return out
}

// ArchiveAssets writes assets into a zip, each under folder when it is not
// empty. Entries carry no timestamps so equal input gives equal bytes.
func ArchiveAssets(folder string, assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range Dedupe(assets) {
		name := asset.Filename
		if folder != "" {
			name = path.Join(folder, name)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
