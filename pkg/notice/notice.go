// Package notice carries transient user-visible messages (toasts, banners).
package notice

import (
	"context"
	"fmt"
)

// Kind identifies what a notice reports
type Kind string

const (
	KindQueued  Kind = "queued"
	KindSynced  Kind = "synced"
	KindPending Kind = "pending"
	KindDropped Kind = "dropped"
	KindOnline  Kind = "online"
	KindOffline Kind = "offline"
)

// Notice is a single user-visible message
type Notice struct {
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Destructive bool   `json:"destructive,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// Notifier shows notices to the user
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Queued is shown when an action is stored while offline
func Queued() Notice {
	return Notice{
		Kind:    KindQueued,
		Title:   "Action queued",
		Message: "This will be synced when you're back online.",
	}
}

// Synced reports the number of actions delivered by a pass
func Synced(count int) Notice {
	return Notice{
		Kind:    KindSynced,
		Title:   "Sync complete",
		Message: fmt.Sprintf("%d queued %s synced successfully.", count, plural(count, "action")),
		Count:   count,
	}
}

// Pending reports actions kept for the next pass
func Pending(count int) Notice {
	return Notice{
		Kind:        KindPending,
		Title:       "Some actions pending",
		Message:     fmt.Sprintf("%d %s will retry later.", count, plural(count, "action")),
		Destructive: true,
		Count:       count,
	}
}

// Dropped reports an action removed after its last attempt
func Dropped(actionType string, attempts int) Notice {
	return Notice{
		Kind:        KindDropped,
		Title:       "Action dropped",
		Message:     fmt.Sprintf("A %s action could not be synced after %d %s.", actionType, attempts, plural(attempts, "attempt")),
		Destructive: true,
		Count:       1,
	}
}

// Online is shown when connectivity returns
func Online() Notice {
	return Notice{
		Kind:    KindOnline,
		Title:   "Back online",
		Message: "Syncing queued actions...",
	}
}

// Offline is shown when connectivity is lost
func Offline() Notice {
	return Notice{
		Kind:        KindOffline,
		Title:       "You're offline",
		Message:     "Actions will be queued and synced when back online.",
		Destructive: true,
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
