// Package preflight checks that the reservation page is reachable before
// a browser is launched for it. A failed preflight means the cycle aborts
// cheaply instead of paying browser startup for a dead target.
package preflight

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/tablewatch/internal/logger"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Check fetches the URL statically and returns the page title. A non-2xx
// response or transport failure is an error; anti-bot interstitials are
// tolerated because the browser may still get through.
func Check(url string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := colly.NewCollector(
		colly.UserAgent(defaultUserAgent),
	)
	c.SetRequestTimeout(timeout)

	var title string
	var status int

	c.OnHTML("title", func(e *colly.HTMLElement) {
		if title == "" {
			title = strings.TrimSpace(e.Text)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})

	if err := c.Visit(url); err != nil {
		// Challenge pages answer 403/503 to plain HTTP clients while the
		// full browser gets through; treat those as reachable.
		if status == 403 || status == 503 {
			logger.Debug("preflight got challenge response, continuing", "status", status)
			return title, nil
		}
		return "", fmt.Errorf("preflight %s: %w", url, err)
	}
	c.Wait()

	logger.Debug("preflight ok", "url", url, "status", status, "title", title)
	return title, nil
}
