// Package navigate opens call-to-action URLs outside the terminal.
package navigate

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"

	"github.com/vanderheijden86/storyreel/pkg/debug"
)

// ErrCopied is returned, wrapped, when no browser could be started and the
// URL was copied to the clipboard instead. Callers usually show it as a
// status message rather than a failure.
var ErrCopied = errors.New("copied to clipboard")

// Starter launches a command without waiting for it.
type Starter func(name string, args ...string) error

// Browser opens URLs with the platform opener and falls back to the clipboard.
type Browser struct {
	GOOS  string
	Start Starter
	Copy  func(text string) error

	// Disabled skips the opener, e.g. over SSH, and goes straight to the
	// clipboard.
	Disabled bool
}

// NewBrowser returns a Browser for the running platform.
func NewBrowser() *Browser {
	return &Browser{
		GOOS:  runtime.GOOS,
		Start: startDetached,
		Copy:  clipboard.WriteAll,
	}
}

func startDetached(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// Command returns the opener command line for the platform.
func Command(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// OpenURL implements story.Navigator. Only http, https and mailto URLs are
// opened.
func (b *Browser) OpenURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "mailto":
	default:
		return fmt.Errorf("refusing to open %q: unsupported scheme %q", raw, u.Scheme)
	}

	if !b.Disabled && b.Start != nil {
		name, args := Command(b.GOOS, raw)
		err := b.Start(name, args...)
		if err == nil {
			debug.Log("navigate: %s %v", name, args)
			return nil
		}
		debug.Log("navigate: %s failed: %v", name, err)
	}

	if b.Copy == nil {
		return fmt.Errorf("no way to open %s", raw)
	}
	if err := b.Copy(raw); err != nil {
		return fmt.Errorf("opening %s: %w", raw, err)
	}
	return fmt.Errorf("%s: %w", raw, ErrCopied)
}
