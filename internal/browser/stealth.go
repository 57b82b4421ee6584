package browser

import (
	"context"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthScript hides the usual headless-Chrome giveaways. It runs before
// any page script on every navigation.
const stealthScript = `
(function() {
    'use strict';

    // navigator.webdriver is the first thing detectors look at.
    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
        configurable: true
    });
    delete Object.getPrototypeOf(navigator).webdriver;

    // Headless Chrome ships an empty plugins array.
    const fakePlugins = [
        { name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
        { name: 'Native Client', filename: 'internal-nacl-plugin', description: '' }
    ];
    Object.defineProperty(navigator, 'plugins', {
        get: () => fakePlugins,
        configurable: true
    });

    Object.defineProperty(navigator, 'languages', {
        get: () => ['en-US', 'en'],
        configurable: true
    });

    // Real Chrome exposes window.chrome even before any extension loads.
    if (!window.chrome) {
        window.chrome = { runtime: {} };
    }

    // Headless answers permission queries differently for notifications.
    const origQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
    window.navigator.permissions.query = (parameters) =>
        parameters.name === 'notifications'
            ? Promise.resolve({ state: Notification.permission })
            : origQuery(parameters);
})();
`

// stealthAllocatorOptions are extra Chrome flags for evasion mode.
func stealthAllocatorOptions() []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("disable-site-isolation-trials", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("exclude-switches", "enable-automation"),
	}
}

// installStealth registers the evasion script to run on every new document.
func (s *Session) installStealth() error {
	return chromedp.Run(s.tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := cdppage.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
}
