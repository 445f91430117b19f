package sw

import (
	"context"
	"log/slog"
	"sync"
)

// Notification is what gets shown for an incoming push event.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
	Tag   string `json:"tag"`
	URL   string `json:"url"`
}

// StoryNotification is the fixed notification shown for a story push event,
// whatever the payload carried.
func StoryNotification() Notification {
	return Notification{
		Title: "Cerita di Sekitarmu",
		Body:  "Ada cerita baru di sekitarmu! 🗺️",
		Icon:  "/favicon.png",
		Badge: "/favicon.png",
		Tag:   "story-notification",
		URL:   "/",
	}
}

// Notifier displays notifications. Implementations decide the delivery
// surface.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Window is one open client window known to the registry.
type Window struct {
	ID  string
	URL string
}

// WindowRegistry tracks open client windows so a notification click can
// focus an existing one instead of always opening a new one.
type WindowRegistry struct {
	logger *slog.Logger

	mu      sync.Mutex
	windows []Window
	focused string

	// OpenFunc opens a new window and returns it. Injected by the host.
	OpenFunc func(url string) Window
}

// NewWindowRegistry creates an empty registry.
func NewWindowRegistry(logger *slog.Logger) *WindowRegistry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WindowRegistry{logger: logger}
}

// Register records an open window.
func (r *WindowRegistry) Register(w Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.windows {
		if existing.ID == w.ID {
			return
		}
	}
	r.windows = append(r.windows, w)
}

// Unregister removes a closed window.
func (r *WindowRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.windows {
		if w.ID == id {
			r.windows = append(r.windows[:i], r.windows[i+1:]...)
			break
		}
	}
	if r.focused == id {
		r.focused = ""
	}
}

// Focused returns the id of the window focused by the last click, or "".
func (r *WindowRegistry) Focused() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused
}

// NotificationClick handles a click on a notification: the first window
// already showing the target URL is focused, otherwise a new window opens at
// the app root.
func (r *WindowRegistry) NotificationClick(targetURL string) Window {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.windows {
		if w.URL == targetURL {
			r.focused = w.ID
			r.logger.Debug("notification click focused window", "window", w.ID)
			return w
		}
	}

	opened := Window{URL: targetURL}
	if r.OpenFunc != nil {
		opened = r.OpenFunc(targetURL)
	}
	r.windows = append(r.windows, opened)
	r.focused = opened.ID
	r.logger.Debug("notification click opened window", "url", targetURL)
	return opened
}
