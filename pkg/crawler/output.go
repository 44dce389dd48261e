package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"company-crawler/pkg/models"
	"company-crawler/pkg/utils"
)

const (
	manifestFilename = "manifest.json"
	pagesLogFilename = "pages.jsonl"
)

// OutputDir owns the artifact files for one company crawl attempt: the three
// per-section files, the pages.jsonl append log, and the manifest. Artifacts
// are overwritten wholesale on re-crawl; the manifest is written last so its
// absence marks an incomplete crawl.
type OutputDir struct {
	dir string
	log *logrus.Entry

	pagesFile *os.File
	pagesMu   sync.Mutex
}

// OpenOutputDir creates the directory if needed and truncates the pages log.
func OpenOutputDir(dir string, log *logrus.Entry) (*OutputDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory %s: %v", utils.ErrFilesystem, dir, err)
	}
	pagesPath := filepath.Join(dir, pagesLogFilename)
	pagesFile, err := os.OpenFile(pagesPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening pages log %s: %v", utils.ErrFilesystem, pagesPath, err)
	}
	return &OutputDir{dir: dir, log: log, pagesFile: pagesFile}, nil
}

// SavePage writes <section>.html, <section>.txt and <section>.meta.json, then
// appends the page's entry to pages.jsonl. The raw HTML bytes written here
// are exactly the bytes the meta fingerprint was computed over.
func (o *OutputDir) SavePage(section models.Section, rawHTML []byte, cleanText string, meta models.PageMeta, changed *bool) error {
	base := filepath.Join(o.dir, string(section))

	if err := os.WriteFile(base+".html", rawHTML, 0644); err != nil {
		return fmt.Errorf("%w: saving %s.html: %v", utils.ErrFilesystem, section, err)
	}
	if err := os.WriteFile(base+".txt", []byte(cleanText), 0644); err != nil {
		return fmt.Errorf("%w: saving %s.txt: %v", utils.ErrFilesystem, section, err)
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling %s.meta.json: %v", utils.ErrParsing, section, err)
	}
	if err := os.WriteFile(base+".meta.json", metaJSON, 0644); err != nil {
		return fmt.Errorf("%w: saving %s.meta.json: %v", utils.ErrFilesystem, section, err)
	}

	entry := models.PageLogEntry{
		CompanyName: meta.CompanyName,
		Section:     section,
		SourceURL:   meta.SourceURL,
		CrawledAt:   meta.CrawledAt,
		Status:      meta.HTTPStatus,
		Bytes:       meta.ContentLength,
		Changed:     changed,
	}
	return o.appendPageLog(entry)
}

func (o *OutputDir) appendPageLog(entry models.PageLogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshaling pages.jsonl entry: %v", utils.ErrParsing, err)
	}
	o.pagesMu.Lock()
	defer o.pagesMu.Unlock()
	if _, err := o.pagesFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: appending to pages.jsonl: %v", utils.ErrFilesystem, err)
	}
	return nil
}

// WriteManifest persists the manifest. Call last: consumers treat a directory
// without a manifest as "incomplete, re-run this company".
func (o *OutputDir) WriteManifest(m *models.CompanyManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling manifest: %v", utils.ErrParsing, err)
	}
	path := filepath.Join(o.dir, manifestFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: saving manifest %s: %v", utils.ErrFilesystem, path, err)
	}
	o.log.Debugf("Wrote manifest: %s", path)
	return nil
}

// Close syncs and closes the pages log.
func (o *OutputDir) Close() error {
	o.pagesMu.Lock()
	defer o.pagesMu.Unlock()
	if o.pagesFile == nil {
		return nil
	}
	if err := o.pagesFile.Sync(); err != nil {
		o.log.Warnf("Syncing pages.jsonl: %v", err)
	}
	err := o.pagesFile.Close()
	o.pagesFile = nil
	return err
}

// writeFailureManifest creates the output directory if needed and records a
// company-level failure. An empty pages log is created only when none exists,
// keeping the directory shape uniform without erasing a previous successful
// run's page log on a transient failure.
func writeFailureManifest(dir string, m *models.CompanyManifest, log *logrus.Entry) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Errorf("Could not create output directory for failure manifest: %v", err)
		return
	}

	pagesPath := filepath.Join(dir, pagesLogFilename)
	if _, err := os.Stat(pagesPath); os.IsNotExist(err) {
		if err := os.WriteFile(pagesPath, nil, 0644); err != nil {
			log.Errorf("Could not create empty pages log: %v", err)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		log.Errorf("Could not marshal failure manifest: %v", err)
		return
	}
	path := filepath.Join(dir, manifestFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Errorf("Could not write failure manifest: %v", err)
	}
}
