package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Renderer returns the HTML of a page after scripts have run.
type Renderer interface {
	Render(ctx context.Context, link string) ([]byte, error)
}

// Browser renders pages in headless Chrome. It is the fallback for pages whose
// static HTML holds no readable text.
type Browser struct {
	logger          *zap.Logger
	timeout         time.Duration
	ChromedpOptions []chromedp.ExecAllocatorOption
}

func NewBrowser(logger *zap.Logger, proxyURL string, timeout time.Duration) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),

		// Stealth options
		chromedp.Flag("accept-language", "en-US,en;q=0.9"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", ""),
	)
	if proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(proxyURL))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Browser{
		logger:          logger,
		timeout:         timeout,
		ChromedpOptions: opts,
	}
}

func (b *Browser) Render(ctx context.Context, link string) ([]byte, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.ChromedpOptions...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()
	timeoutCtx, timeoutCancel := context.WithTimeout(taskCtx, b.timeout)
	defer timeoutCancel()

	var domHTML string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(link),
		chromedp.WaitVisible("body"),
		chromedp.OuterHTML("html", &domHTML),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", link, err)
	}

	b.logger.Debug("rendered page",
		zap.String("url", link),
		zap.Int("dom_length", len(domHTML)))
	return []byte(domHTML), nil
}
