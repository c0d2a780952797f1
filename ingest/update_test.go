package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/KNBS-StatsChat/statschat-ke/config"
	"github.com/KNBS-StatsChat/statschat-ke/docstore"
	"github.com/KNBS-StatsChat/statschat-ke/index"
)

func flatEmbed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func updateConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		PDFDir:              filepath.Join(root, "pdf"),
		BulletinDir:         filepath.Join(root, "bulletins"),
		SplitDir:            filepath.Join(root, "split"),
		LatestPDFDir:        filepath.Join(root, "latest_pdf"),
		InboundDir:          filepath.Join(root, "inbound"),
		LatestSplitDir:      filepath.Join(root, "latest_split"),
		FuzzyMatchThreshold: 75,
		SectionPrefixLength: 60,
		ChunkSize:           1000,
		ChunkOverlap:        100,
	}
	for _, dir := range []string{cfg.PDFDir, cfg.BulletinDir, cfg.SplitDir, cfg.LatestPDFDir, cfg.InboundDir, cfg.LatestSplitDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

const (
	pub2024 = `{
    "id": "Economic-Survey-2024",
    "title": "Economic Survey 2024",
    "release_date": "2024-05-07",
    "url": "https://example.org/economic-survey-2024.pdf",
    "latest": true,
    "content": [{"page_number": 1, "page_text": "GDP grew by 5.0 per cent in 2023."}]
}`
	section2024 = `{
    "id": "Economic-Survey-2024",
    "title": "Economic Survey 2024",
    "release_date": "2024-05-07",
    "url": "https://example.org/economic-survey-2024.pdf",
    "latest": true,
    "page_number": 1,
    "page_text": "GDP grew by 5.0 per cent in 2023."
}`
	pub2025 = `{
    "id": "Economic-Survey-2025",
    "title": "Economic Survey 2025",
    "release_date": "2025-05-06",
    "url": "https://example.org/economic-survey-2025.pdf",
    "latest": true,
    "content": [{"page_number": 1, "page_text": "GDP grew by 5.6 per cent in 2024."}]
}`
	section2025 = `{
    "id": "Economic-Survey-2025",
    "title": "Economic Survey 2025",
    "release_date": "2025-05-06",
    "url": "https://example.org/economic-survey-2025.pdf",
    "latest": true,
    "page_number": 1,
    "page_text": "GDP grew by 5.6 per cent in 2024."
}`
)

func TestUpdaterRun(t *testing.T) {
	ctx := context.Background()
	cfg := updateConfig(t)
	logger := zap.NewNop()

	// Permanent stores hold the 2024 edition, flagged latest and indexed.
	writeFile(t, cfg.BulletinDir, "Economic-Survey-2024.json", pub2024)
	writeFile(t, cfg.SplitDir, "Economic-Survey-2024_0.json", section2024)

	idx := index.NewMemoryIndex(flatEmbed)
	if err := idx.Add(ctx, []index.Fragment{{
		Key:      "stale-2024",
		ParentID: "Economic-Survey-2024",
		Source:   filepath.Join(cfg.SplitDir, "Economic-Survey-2024_0.json"),
		Content:  "GDP grew by 5.0 per cent in 2023.",
		Meta:     index.Metadata{Title: "Economic Survey 2024", Latest: true},
	}}); err != nil {
		t.Fatal(err)
	}

	// The 2025 edition arrives staged.
	writeFile(t, cfg.InboundDir, "Economic-Survey-2025.json", pub2025)
	writeFile(t, cfg.LatestSplitDir, "Economic-Survey-2025_0.json", section2025)

	u := NewUpdater(cfg, idx, logger)
	if err := u.Run(ctx); err != nil {
		t.Fatal(err)
	}

	// The 2024 publication and its section are demoted on disk.
	bulletins := docstore.NewFileStore(cfg.BulletinDir, logger)
	rec, err := bulletins.ReadRaw("Economic-Survey-2024.json")
	if err != nil {
		t.Fatal(err)
	}
	if flag, _ := docstore.LatestFlag(rec); flag {
		t.Error("superseded publication still flagged latest")
	}
	sections := docstore.NewFileStore(cfg.SplitDir, logger)
	sec, err := sections.LoadSection("Economic-Survey-2024_0.json")
	if err != nil {
		t.Fatal(err)
	}
	if sec.Latest {
		t.Error("superseded section still flagged latest")
	}

	// The staged files moved into the permanent stores.
	if _, err := bulletins.ReadRaw("Economic-Survey-2025.json"); err != nil {
		t.Errorf("staged publication not merged: %v", err)
	}
	if _, err := sections.LoadSection("Economic-Survey-2025_0.json"); err != nil {
		t.Errorf("staged section not merged: %v", err)
	}
	if names, _ := docstore.NewFileStore(cfg.InboundDir, logger).ListNames(); len(names) != 0 {
		t.Errorf("inbound directory not drained: %v", names)
	}

	// The stale fragment is gone; both editions are indexed with the
	// latest flag reflecting the propagation.
	keys, err := idx.ListKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range keys {
		if k.Key == "stale-2024" {
			t.Error("stale fragment survived the prune")
		}
	}

	hits, err := idx.Search(ctx, "gdp growth", 10, false)
	if err != nil {
		t.Fatal(err)
	}
	byTitle := map[string]bool{}
	for _, h := range hits {
		byTitle[h.Fragment.Meta.Title] = h.Fragment.Meta.Latest
	}
	if latest, ok := byTitle["Economic Survey 2024"]; !ok || latest {
		t.Errorf("2024 edition should be indexed with latest=false, got (%v, %v)", latest, ok)
	}
	if latest, ok := byTitle["Economic Survey 2025"]; !ok || !latest {
		t.Errorf("2025 edition should be indexed with latest=true, got (%v, %v)", latest, ok)
	}
}

func TestUpdaterRunEmptyInbound(t *testing.T) {
	cfg := updateConfig(t)
	idx := index.NewMemoryIndex(flatEmbed)

	u := NewUpdater(cfg, idx, zap.NewNop())
	if err := u.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if count, _ := idx.Count(context.Background()); count != 0 {
		t.Errorf("index modified on empty inbound run, count = %d", count)
	}
}

func TestMergeURLDictAddOnly(t *testing.T) {
	cfg := updateConfig(t)
	writeFile(t, cfg.PDFDir, "url_dict.json", `{"a.pdf": "https://example.org/original-a"}`)
	writeFile(t, cfg.LatestPDFDir, "url_dict.json", `{"a.pdf": "https://example.org/rewritten-a", "b.pdf": "https://example.org/b"}`)

	u := NewUpdater(cfg, index.NewMemoryIndex(flatEmbed), zap.NewNop())
	if err := u.mergeURLDict(); err != nil {
		t.Fatal(err)
	}

	merged, err := readURLDict(filepath.Join(cfg.PDFDir, "url_dict.json"))
	if err != nil {
		t.Fatal(err)
	}
	if merged["a.pdf"] != "https://example.org/original-a" {
		t.Errorf("existing entry rewritten: %v", merged["a.pdf"])
	}
	if merged["b.pdf"] != "https://example.org/b" {
		t.Errorf("new entry missing: %v", merged["b.pdf"])
	}
	if _, err := os.Stat(filepath.Join(cfg.LatestPDFDir, "url_dict.json")); !os.IsNotExist(err) {
		t.Error("staged ledger not removed after merge")
	}
}

func TestPruneIndexNoMatches(t *testing.T) {
	cfg := updateConfig(t)
	idx := index.NewMemoryIndex(flatEmbed)
	if err := idx.Add(context.Background(), []index.Fragment{{Key: "keep", Source: "unrelated_0.json", Content: "text"}}); err != nil {
		t.Fatal(err)
	}

	u := NewUpdater(cfg, idx, zap.NewNop())
	if err := u.PruneIndex(context.Background(), []string{"missing-publication.json"}); err != nil {
		t.Fatal(err)
	}
	if count, _ := idx.Count(context.Background()); count != 1 {
		t.Errorf("unrelated fragment pruned, count = %d", count)
	}
}
