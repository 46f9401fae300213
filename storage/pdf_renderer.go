package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"hpi-forecast/utils"
)

// PDFRenderer prints HTML documents to PDF with headless Chrome.
type PDFRenderer struct {
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger
	retry     *utils.RetryConfig
}

// NewPDFRenderer creates a renderer. An empty chromeBin is resolved from
// CHROME_BIN, PATH and the usual install locations at render time.
func NewPDFRenderer(chromeBin string, maxRetries int, logger *utils.Logger) *PDFRenderer {
	return &PDFRenderer{
		chromeBin: chromeBin,
		timeout:   60 * time.Second,
		logger:    logger,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Render loads htmlPath in a headless browser and writes it to pdfPath.
func (r *PDFRenderer) Render(ctx context.Context, htmlPath, pdfPath string) error {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("pdf: resolve %s: %w", htmlPath, err)
	}
	target := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()

	chromeBin := r.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if chromeBin == "" {
		return fmt.Errorf("pdf: no Chrome/Chromium binary found (set CHROME_BIN)")
	}
	r.logger.Info("[pdf] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.ExecPath(chromeBin),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	var buf []byte
	err = r.retry.DoContext(ctx, "render-pdf", func(context.Context) error {
		// Suppress chromedp log noise
		tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
		defer cancelTimeout()

		return chromedp.Run(tabCtx,
			chromedp.Navigate(target),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.ActionFunc(func(ctx context.Context) error {
				var err error
				buf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
				return err
			}),
		)
	})
	if err != nil {
		return fmt.Errorf("pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pdfPath), 0755); err != nil {
		return fmt.Errorf("pdf: create output dir: %w", err)
	}
	if err := os.WriteFile(pdfPath, buf, 0644); err != nil {
		return fmt.Errorf("pdf: write %s: %w", pdfPath, err)
	}

	r.logger.Info("[pdf] Rendered %s → %s (%d bytes)", htmlPath, pdfPath, len(buf))
	return nil
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
