package alert

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"
	appName      = "gh-notifier"
	expireMillis = int32(-1)
)

type busObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Desktop posts alerts through the freedesktop notification service on the
// D-Bus session bus. Each alert replaces the previous one so badges do not
// stack up.
type Desktop struct {
	obj busObject

	mu     sync.Mutex
	lastID uint32
}

// NewDesktop connects to the session bus.
func NewDesktop() (*Desktop, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Desktop{obj: conn.Object(notifyDest, notifyPath)}, nil
}

// Notify posts the alert, replacing the one posted before.
func (d *Desktop) Notify(ctx context.Context, newCount int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	title, body := Message(newCount)
	call := d.obj.CallWithContext(ctx, notifyMethod, 0,
		appName,
		d.lastID,
		"",
		title,
		body,
		[]string{},
		map[string]dbus.Variant{},
		expireMillis,
	)
	if call.Err != nil {
		return fmt.Errorf("post desktop notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("read notification id: %w", err)
	}
	d.lastID = id
	return nil
}
