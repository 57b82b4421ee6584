// Package browser implements the page-probing capability on chromedp.
// A Session owns one Chrome instance with one tab; it is created at cycle
// start and torn down at cycle end regardless of outcome.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/tablewatch/internal/logger"
	"github.com/jmylchreest/tablewatch/pkg/page"
)

// Config tunes the browsing session.
type Config struct {
	Headless      bool
	Stealth       bool
	UserAgent     string
	ScreenshotDir string
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Session is a chromedp-backed page.Session.
type Session struct {
	cfg         Config
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	shotSeq     int
}

var _ page.Session = (*Session)(nil)

// New launches a browser and opens its tab.
func New(cfg Config) (*Session, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Stealth {
		opts = append(opts, stealthAllocatorOptions()...)
	}
	if chromePath := findChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
	}

	if cfg.Stealth {
		if err := s.installStealth(); err != nil {
			s.Close()
			return nil, fmt.Errorf("stealth install: %w", err)
		}
	}

	logger.Debug("browser session created",
		"headless", cfg.Headless, "stealth", cfg.Stealth)
	return s, nil
}

// Navigate loads the URL and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	logger.Debug("navigating", "url", url)
	err := s.run(ctx, 0,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// CurrentURL returns the current page URL.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, 0, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Find waits up to timeout for one element matching q in the given state.
func (s *Session) Find(ctx context.Context, q page.Query, state page.WaitState, timeout time.Duration) (*page.Element, error) {
	sel, opt := translate(q)

	actions := []chromedp.Action{}
	if state == page.StateClickable {
		actions = append(actions,
			chromedp.WaitVisible(sel, opt),
			chromedp.WaitEnabled(sel, opt),
		)
	}
	var nodes []*cdp.Node
	actions = append(actions, chromedp.Nodes(sel, &nodes, opt, chromedp.AtLeast(1)))

	if err := s.run(ctx, timeout, actions...); err != nil {
		if isDeadline(err) {
			return nil, fmt.Errorf("%w: %s %q", page.ErrNotFound, q.By, q.Pattern)
		}
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s %q", page.ErrNotFound, q.By, q.Pattern)
	}
	return s.element(ctx, nodes[0]), nil
}

// FindAll polls for matching elements until the timeout and returns
// whatever matched. An empty result with a nil error is a clean run.
func (s *Session) FindAll(ctx context.Context, q page.Query, timeout time.Duration) ([]*page.Element, error) {
	sel, opt := translate(q)
	deadline := time.Now().Add(timeout)

	for {
		var nodes []*cdp.Node
		if err := s.run(ctx, timeout, chromedp.Nodes(sel, &nodes, opt, chromedp.AtLeast(0))); err != nil {
			return nil, err
		}
		if len(nodes) > 0 {
			els := make([]*page.Element, 0, len(nodes))
			for _, n := range nodes {
				els = append(els, s.element(ctx, n))
			}
			return els, nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return nil, nil
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// Click clicks a previously resolved element by its recorded path.
func (s *Session) Click(ctx context.Context, el *page.Element) error {
	xpath, err := refPath(el)
	if err != nil {
		return err
	}
	if err := s.run(ctx, 0, chromedp.Click(xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("%w: click %s: %v", page.ErrNotInteractable, xpath, err)
	}
	return nil
}

// SetValue replaces an input's value, falling back to script injection
// with synthetic input/change events when direct assignment is ignored.
func (s *Session) SetValue(ctx context.Context, el *page.Element, value string) error {
	xpath, err := refPath(el)
	if err != nil {
		return err
	}
	if err := s.run(ctx, 0, chromedp.SetValue(xpath, value, chromedp.BySearch)); err == nil {
		return nil
	}

	script := injectValueScript(xpath, value)
	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("%w: set value on %s: %v", page.ErrNotInteractable, xpath, err)
	}
	if !ok {
		return fmt.Errorf("%w: set value on %s", page.ErrNotInteractable, xpath)
	}
	return nil
}

// Evaluate runs a script in the page. Pass nil out to discard the result.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	return s.run(ctx, 0, chromedp.Evaluate(script, out))
}

// HTML returns a snapshot of the current document markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, 0, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return html, nil
}

// Screenshot captures the viewport to <dir>/<seq>_<label>.png. No-op when
// no screenshot dir is configured.
func (s *Session) Screenshot(ctx context.Context, label string) error {
	if s.cfg.ScreenshotDir == "" {
		return nil
	}
	var buf []byte
	if err := s.run(ctx, 0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}

	s.shotSeq++
	name := fmt.Sprintf("%03d_%s.png", s.shotSeq, sanitizeLabel(label))
	path := filepath.Join(s.cfg.ScreenshotDir, name)
	if err := os.MkdirAll(s.cfg.ScreenshotDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return err
	}
	logger.Debug("screenshot saved", "path", path)
	return nil
}

// Close tears the browser down. Safe to call more than once.
func (s *Session) Close() error {
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
	return nil
}

// run executes chromedp actions on the tab, bounded by timeout when set.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.tabCtx.Err() != nil {
		return page.ErrSessionClosed
	}

	runCtx := joinContext(s.tabCtx, ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && s.tabCtx.Err() != nil {
		return page.ErrSessionClosed
	}
	return err
}

// element builds the engine-facing handle for a resolved node. Text and
// the disabled flag are captured now; the full path is kept for later
// clicks and typing.
func (s *Session) element(ctx context.Context, n *cdp.Node) *page.Element {
	xpath := n.FullXPath()

	el := &page.Element{
		Ref:      xpath,
		Disabled: nodeDisabled(n),
		Selected: hasAttr(n, "checked") || hasAttr(n, "selected"),
	}

	var text string
	if err := s.run(ctx, 2*time.Second, chromedp.Text(xpath, &text, chromedp.BySearch)); err == nil {
		el.Text = strings.TrimSpace(text)
	}
	if el.Text == "" {
		// Hidden or oddly nested nodes still expose textContent.
		var tc string
		if err := s.Evaluate(ctx, textContentScript(xpath), &tc); err == nil {
			el.Text = strings.TrimSpace(tc)
		}
	}
	return el
}

func nodeDisabled(n *cdp.Node) bool {
	if hasAttr(n, "disabled") {
		return true
	}
	return strings.Contains(n.AttributeValue("class"), "disabled")
}

// hasAttr reports attribute presence, covering bare boolean attributes like
// "disabled" and "checked" that carry no value.
func hasAttr(n *cdp.Node, name string) bool {
	for i := 0; i+1 < len(n.Attributes); i += 2 {
		if n.Attributes[i] == name {
			return true
		}
	}
	return false
}

// translate maps a page query onto chromedp's selector model.
func translate(q page.Query) (string, chromedp.QueryOption) {
	switch q.By {
	case page.ByXPath:
		return q.Pattern, chromedp.BySearch
	case page.ByText:
		expr := fmt.Sprintf(
			"//*[self::button or self::a or @role='button'][contains(., %s)]",
			xpathString(q.Pattern))
		return expr, chromedp.BySearch
	default:
		return q.Pattern, chromedp.ByQueryAll
	}
}

// xpathString quotes s as an XPath string literal.
func xpathString(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, "'")
	return `concat('` + strings.Join(parts, `', "'", '`) + `')`
}

func refPath(el *page.Element) (string, error) {
	if el == nil {
		return "", errors.New("nil element")
	}
	xpath, ok := el.Ref.(string)
	if !ok || xpath == "" {
		return "", errors.New("element has no usable handle")
	}
	return xpath, nil
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func sanitizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, label)
}

// joinContext derives a context from parent that is also canceled when
// aux is canceled, so operator interrupts cut browser waits short.
func joinContext(parent, aux context.Context) context.Context {
	if aux == nil || aux == context.Background() {
		return parent
	}
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-aux.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}

// textContentScript reads textContent through the DOM for nodes whose
// rendered text is empty.
func textContentScript(xpath string) string {
	return fmt.Sprintf(`(function() {
	var r = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
	return r.singleNodeValue ? r.singleNodeValue.textContent : '';
})()`, jsString(xpath))
}

// injectValueScript sets an input's value directly and fires the events
// frameworks listen for. Last resort when typing is rejected.
func injectValueScript(xpath, value string) string {
	return fmt.Sprintf(`(function() {
	var r = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
	var el = r.singleNodeValue;
	if (!el) { return false; }
	el.value = %s;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, jsString(xpath), jsString(value))
}

func jsString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + r.Replace(s) + "'"
}

// Common Chrome/Chromium binary names across different systems
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
}

// findChromePath searches PATH and common install locations for a Chrome
// binary. Returns empty string when none is found.
func findChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found, browser startup may fail")
	return ""
}
