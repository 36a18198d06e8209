package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"paperjet/internal/platform/config"
)

const (
	// A4 in inches, portrait.
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
)

// ChromeRasterizer prints HTML to PDF through headless Chrome. Each call
// runs its own browser context; rendering is the long-latency step and
// holds no store-level state while it runs.
type ChromeRasterizer struct {
	execPath string
	timeout  time.Duration
}

func NewChromeRasterizer(cfg config.RenderConfig) *ChromeRasterizer {
	timeout := cfg.PDFTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromeRasterizer{execPath: cfg.ChromePath, timeout: timeout}
}

func (c *ChromeRasterizer) PDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf render: %w", err)
	}
	return pdf, nil
}
