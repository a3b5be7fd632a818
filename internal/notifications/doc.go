// Package notifications publishes conversion run events to ntfy.
//
// The topic URL comes from config.toml; without one NewService returns a
// no-op so callers never branch on whether notifications are configured.
package notifications
