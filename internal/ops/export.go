package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/errors"
)

// ExportReportInput contains parameters for ExportReport.
type ExportReportInput struct {
	ID     string
	Path   string // optional, default: ~/.mahader/exports/<title>-<timestamp>.<ext>
	Format string // markdown|html, default: inferred from Path, else markdown
	// Raw writes the stored markdown without the display tables.
	Raw bool
}

// ExportReportOutput contains the result of ExportReport.
type ExportReportOutput struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Format     string `json:"format"`
	Bytes      int    `json:"bytes"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportReport writes a report to a file. The file is written to a
// temporary name and renamed into place, so an existing file is kept if
// the export fails.
func ExportReport(ctx context.Context, store Store, cfg *config.Config, input ExportReportInput) (*ExportReportOutput, error) {
	format := input.Format
	if format == "" && strings.EqualFold(filepath.Ext(input.Path), ".html") {
		format = FormatHTML
	}
	format, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	if input.Raw && format == FormatHTML {
		return nil, errors.NewInvalidRequest("raw export is only available as markdown")
	}

	r, err := FetchReport(ctx, store, input.ID)
	if err != nil {
		return nil, err
	}

	var content string
	if input.Raw {
		content = r.Content
	} else if content, err = render(r, format); err != nil {
		return nil, err
	}

	now := time.Now()
	exportPath := input.Path
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s-%s%s", SanitizeForFilename(r.Title), now.Format("2006-01-02T150405"), exportExtensions[format])
		exportPath = filepath.Join(dir, name)
	}

	// Default paths are checked too: the title is user-controlled.
	if err := ValidatePath(exportPath, []string{exportExtensions[format]}, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	if err := writeFileAtomic(exportPath, []byte(content)); err != nil {
		return nil, err
	}

	return &ExportReportOutput{
		ID:         r.ID,
		Path:       exportPath,
		Format:     format,
		Bytes:      len(content),
		ExportedAt: now.Unix(),
	}, nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	defer func() {
		if file != nil {
			file.Close()
		}
		if err != nil {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows os.Rename fails when the destination exists; the existing
	// file is left alone rather than deleted first.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	return nil
}
