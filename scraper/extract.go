package scraper

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/KNBS-StatsChat/statschat-ke/docstore"
)

// Converter turns downloaded PDFs into publication records, one section per
// page. New conversions always arrive flagged latest=true; the update run
// decides afterwards whether they supersede anything.
type Converter struct {
	logger *zap.Logger
}

func NewConverter(logger *zap.Logger) *Converter {
	return &Converter{logger: logger}
}

// Convert extracts a publication record from the PDF at path. The record id
// is derived from the filename; pageURL points at the report page the PDF
// was found on.
func (c *Converter) Convert(path, url, pageURL string) (*docstore.Publication, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	c.logger.Debug("Converting PDF",
		zap.String("path", path),
		zap.Int("pages", totalPages))

	var sections []docstore.Section
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			c.logger.Warn("Skipping null page",
				zap.String("path", path),
				zap.Int("page", pageNum))
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			c.logger.Warn("Failed to extract text from page",
				zap.String("path", path),
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		sections = append(sections, docstore.Section{
			PageNumber: pageNum,
			PageText:   strings.TrimSpace(text),
			PageURL:    pageURL,
		})
	}

	id := PublicationID(path)
	return &docstore.Publication{
		ID:          id,
		Title:       titleFromID(id),
		ReleaseDate: time.Now().Format("2006-01-02"),
		URL:         url,
		PageURL:     pageURL,
		Latest:      true,
		Content:     sections,
	}, nil
}

// ConvertAll converts every PDF under dir into a publication record in the
// given store. Conversion failures are logged and skipped.
func (c *Converter) ConvertAll(dir string, store *docstore.FileStore, urls map[string]string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return 0, err
	}

	converted := 0
	for _, path := range paths {
		name := filepath.Base(path)
		pub, err := c.Convert(path, urls[name], "")
		if err != nil {
			c.logger.Warn("Skipping unconvertible PDF",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		if err := store.SavePublication(pub); err != nil {
			c.logger.Warn("Failed to save publication",
				zap.String("id", pub.ID),
				zap.Error(err))
			continue
		}
		converted++
	}
	c.logger.Info("Converted PDFs to publication records",
		zap.String("dir", dir),
		zap.Int("converted", converted))
	return converted, nil
}

// PublicationID derives a stable record identifier from a PDF filename.
func PublicationID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, " ", "-")
}

func titleFromID(id string) string {
	return strings.TrimSpace(strings.ReplaceAll(id, "-", " "))
}
