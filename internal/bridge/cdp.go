package bridge

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const TargetTypePage = "page"

// NavigatePage uses raw CDP Page.navigate + polls document.readyState for completion.
func NavigatePage(ctx context.Context, url string) error {
	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errText, _, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return &NavigationError{URL: url, Text: errText}
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		var state string
		err = chromedp.Run(ctx, chromedp.Evaluate("document.readyState", &state))
		if err == nil && (state == "interactive" || state == "complete") {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// NavigationError carries Chrome's net error text, e.g. net::ERR_CONNECTION_REFUSED.
type NavigationError struct {
	URL  string
	Text string
}

func (e *NavigationError) Error() string {
	return "navigate " + e.URL + ": " + e.Text
}
