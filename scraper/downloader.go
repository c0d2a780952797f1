// Package scraper fetches statistical bulletin PDFs from the publisher's
// report listing and converts them into publication records.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Downloader crawls the paginated report listing and stages new PDFs into a
// download directory, recording each fetch in the download ledger.
type Downloader struct {
	baseURL    string
	dir        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewDownloader(baseURL, dir string, logger *zap.Logger) *Downloader {
	return &Downloader{
		baseURL: baseURL,
		dir:     dir,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Crawl walks the report listing page by page, downloading every PDF it has
// not seen before. Crawling stops at the first page with no PDF links.
// Returns the number of new PDFs downloaded.
func (d *Downloader) Crawl(ctx context.Context) (int, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return 0, err
	}
	ledger, err := d.loadLedger()
	if err != nil {
		return 0, err
	}

	downloaded := 0
	for page := 1; ; page++ {
		pageURL := fmt.Sprintf("%s/%d/", strings.TrimRight(d.baseURL, "/"), page)
		links, err := d.fetchPDFLinks(ctx, pageURL)
		if err != nil {
			return downloaded, err
		}
		if len(links) == 0 {
			d.logger.Info("Reached end of report listing",
				zap.Int("pages", page-1),
				zap.Int("downloaded", downloaded))
			break
		}

		for _, link := range links {
			name := path.Base(link)
			if _, seen := ledger[name]; seen {
				continue
			}
			if err := d.download(ctx, link, name); err != nil {
				d.logger.Warn("Failed to download PDF",
					zap.String("url", link),
					zap.Error(err))
				continue
			}
			ledger[name] = link
			downloaded++
		}
	}

	if err := d.saveLedger(ledger); err != nil {
		return downloaded, err
	}
	return downloaded, nil
}

func (d *Downloader) fetchPDFLinks(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	// A 404 past the last listing page is the normal stop condition.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	links, err := ExtractPDFLinks(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return resolveLinks(pageURL, links), nil
}

func (d *Downloader) download(ctx context.Context, link, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	dst := filepath.Join(d.dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	d.logger.Info("Downloaded PDF", zap.String("file", name))
	return nil
}

// ExtractPDFLinks returns the href of every anchor in the document that
// points at a PDF, in document order, deduplicated.
func ExtractPDFLinks(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if strings.HasSuffix(strings.ToLower(href), ".pdf") && !seen[href] {
					seen[href] = true
					links = append(links, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// resolveLinks makes relative hrefs absolute against the page they came
// from. Unparseable hrefs are dropped.
func resolveLinks(pageURL string, links []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return links
	}
	resolved := make([]string, 0, len(links))
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		resolved = append(resolved, base.ResolveReference(u).String())
	}
	return resolved
}

const ledgerName = "url_dict.json"

func (d *Downloader) loadLedger() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(d.dir, ledgerName))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	var ledger map[string]string
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (d *Downloader) saveLedger(ledger map[string]string) error {
	data, err := json.MarshalIndent(ledger, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.dir, ledgerName), data, 0o644)
}
