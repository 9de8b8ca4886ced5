package console

import (
	"io"
	"sync"

	"github.com/pkg/browser"
)

// Opener shows a destination to the local user.
type Opener interface {
	Open(url string) error
}

var silenceBrowser sync.Once

// BrowserOpener opens URLs in the system browser. The launcher's own output
// is discarded so it cannot interleave with the menu.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	silenceLauncher()
	return browser.OpenURL(url)
}

func silenceLauncher() {
	silenceBrowser.Do(func() {
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
	})
}
