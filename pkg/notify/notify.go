// Package notify surfaces run completion through desktop notifications.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"
)

// Provider delivers one desktop notification.
type Provider interface {
	Send(title, message string) error
}

// DesktopProvider implements Provider using the platform notifier.
type DesktopProvider struct{}

func (DesktopProvider) Send(title, message string) error {
	return beeep.Notify(title, message, "")
}

// FakeProvider records notifications for tests.
type FakeProvider struct {
	mu    sync.Mutex
	Calls []Call
}

type Call struct {
	Title   string
	Message string
}

func (f *FakeProvider) Send(title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Title: title, Message: message})
	return nil
}

func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Config holds notification settings.
type Config struct {
	Enabled bool
}

// Notifier sends completion notifications when enabled. Delivery errors
// are returned to the caller but are never fatal to a run.
type Notifier struct {
	config   Config
	provider Provider
}

// NewNotifier builds a desktop notifier.
func NewNotifier(config Config) *Notifier {
	return NewNotifierWithProvider(config, DesktopProvider{})
}

// NewNotifierWithProvider builds a notifier with a custom provider.
func NewNotifierWithProvider(config Config, provider Provider) *Notifier {
	return &Notifier{config: config, provider: provider}
}

// Notify delivers a notification, or does nothing when disabled.
func (n *Notifier) Notify(title, message string) error {
	if !n.config.Enabled {
		return nil
	}
	return n.provider.Send(title, message)
}
