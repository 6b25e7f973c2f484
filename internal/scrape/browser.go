package scrape

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/linkpipe/internal/model"
)

// ErrBlocked marks a visit that hit the authwall or a captcha instead of
// content. Callers retry these like any transient failure.
var ErrBlocked = errors.New("scrape: blocked")

// Logged-out page selectors. LinkedIn serves the "guest" layout to
// unauthenticated browsers; these match that layout only.
const (
	selJobTitle       = "h1.top-card-layout__title"
	selJobCompany     = "a.topcard__org-name-link"
	selJobLocation    = "span.topcard__flavor--bullet"
	selJobPosted      = "span.posted-time-ago__text"
	selJobClosed      = "figcaption.closed-job__flavor"
	selJobDescription = "div.show-more-less-html__markup"

	selPostText   = "p.attributed-text-segment-list__content"
	selPostAuthor = "a.base-main-card__title"
	selPostTime   = "time"
)

// Options configures the browser scraper.
type Options struct {
	Headless    bool
	UserAgent   string
	NavTimeout  time.Duration
	SettleDelay time.Duration
}

// browserScraper drives headless Chrome. Allocator contexts are pooled so
// concurrent workers reuse browser processes.
type browserScraper struct {
	pool *sync.Pool
	opts Options
}

// NewBrowserScraper creates a chromedp-backed scraper.
func NewBrowserScraper(opts Options) Scraper {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 45 * time.Second
	}
	pool := &sync.Pool{
		New: func() any {
			allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", opts.Headless),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
			)
			if opts.UserAgent != "" {
				allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
			}
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), allocOpts...)
			return allocCtx
		},
	}
	return &browserScraper{pool: pool, opts: opts}
}

func (s *browserScraper) Name() string { return "browser" }

func (s *browserScraper) Scrape(ctx context.Context, url string, kind model.Classification) (*Result, error) {
	allocCtx := s.pool.Get().(context.Context)
	defer s.pool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	taskCtx, cancel = context.WithTimeout(taskCtx, s.opts.NavTimeout)
	defer cancel()

	res := &Result{URL: url}
	var finalURL string

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.opts.SettleDelay > 0 {
		actions = append(actions, chromedp.Sleep(s.opts.SettleDelay))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.Title(&res.Title),
		chromedp.OuterHTML("html", &res.HTML, chromedp.ByQuery),
	)
	actions = append(actions, extractActions(kind, res)...)
	actions = append(actions, chromedp.FullScreenshot(&res.Screenshot, 80))

	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		// ctx errors from the parent are not the page's fault.
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "scrape: cancelled")
		}
		return nil, eris.Wrapf(err, "scrape: visit %s", url)
	}

	if blocked, blockType := DetectBlock(finalURL, res.HTML); blocked {
		zap.L().Warn("page blocked",
			zap.String("url", url),
			zap.String("block_type", string(blockType)))
		return nil, eris.Wrapf(ErrBlocked, "%s at %s", blockType, url)
	}

	tidy(res)
	zap.L().Debug("page scraped",
		zap.String("url", url),
		zap.String("kind", string(kind)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("html_bytes", len(res.HTML)))
	return res, nil
}

// extractActions returns the per-kind text extractions. AtLeast(0) keeps a
// missing node from blocking the run; absent fields stay empty.
func extractActions(kind model.Classification, res *Result) []chromedp.Action {
	text := func(sel string, out *string) chromedp.Action {
		return chromedp.Text(sel, out, chromedp.ByQuery, chromedp.AtLeast(0))
	}

	if kind == model.ClassPost {
		return []chromedp.Action{
			text(selPostText, &res.Description),
			text(selPostAuthor, &res.Company),
			text(selPostTime, &res.PostedTime),
		}
	}
	return []chromedp.Action{
		text(selJobTitle, &res.Title),
		text(selJobCompany, &res.Company),
		text(selJobLocation, &res.Location),
		text(selJobPosted, &res.PostedTime),
		text(selJobClosed, &res.JobStatus),
		text(selJobDescription, &res.Description),
	}
}

func tidy(res *Result) {
	res.Title = strings.TrimSpace(res.Title)
	res.Company = strings.TrimSpace(res.Company)
	res.Location = strings.TrimSpace(res.Location)
	res.PostedTime = strings.TrimSpace(res.PostedTime)
	res.JobStatus = strings.TrimSpace(res.JobStatus)
	res.Description = strings.TrimSpace(res.Description)
}
