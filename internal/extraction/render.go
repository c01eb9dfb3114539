package extraction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var pageFilePattern = regexp.MustCompile(`^page-(\d+)\.jpg$`)

// PopplerRenderer shells out to pdftoppm (poppler-utils).
type PopplerRenderer struct {
	binary  string
	dpi     int
	timeout time.Duration
}

func NewPopplerRenderer(dpi int) *PopplerRenderer {
	if dpi <= 0 {
		dpi = 150
	}
	return &PopplerRenderer{binary: "pdftoppm", dpi: dpi, timeout: 2 * time.Minute}
}

// Ready reports whether pdftoppm is on PATH.
func (p *PopplerRenderer) Ready() error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", p.binary, err)
	}
	return nil
}

// RenderPages writes page-N.jpg files into outDir and returns them in page order.
func (p *PopplerRenderer) RenderPages(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outDir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{"-r", strconv.Itoa(p.dpi), "-jpeg", pdfPath, filepath.Join(outDir, "page")}
	cmd := exec.CommandContext(ctx, p.binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, strings.TrimSpace(string(out)))
	}

	pages, err := collectPages(outDir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no images produced by pdftoppm; out=%s", strings.TrimSpace(string(out)))
	}
	return pages, nil
}

// collectPages lists page-N.jpg files sorted by N. pdftoppm zero-pads N
// to the page-count width, so numeric order is the safe comparison.
func collectPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pageFilePattern.FindStringSubmatch(strings.ToLower(e.Name()))
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		pages = append(pages, page{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.path)
	}
	return out, nil
}
