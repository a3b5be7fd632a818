package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aaxconv/internal/config"
	"aaxconv/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunReport{Total: 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyRunCompletedFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		report         notifications.RunReport
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "success",
			report:        notifications.RunReport{Total: 2, Completed: 2, Elapsed: 90 * time.Second},
			expectTitle:   "aaxconv - Finished",
			expectMessage: "Converted 2 of 2 books in 1m30s",
			expectTags:    "aaxconv,completed",
		},
		{
			name:           "failures",
			report:         notifications.RunReport{Total: 3, Completed: 2, Failed: 1, Elapsed: time.Second},
			expectTitle:    "aaxconv - Finished with failures",
			expectMessage:  "Converted 2 of 3 books in 1s, 1 failure",
			expectTags:     "aaxconv,completed,warning",
			expectPriority: "high",
		},
		{
			name:          "cancelled",
			report:        notifications.RunReport{Total: 4, Completed: 1, WasCancelled: true},
			expectTitle:   "aaxconv - Cancelled",
			expectMessage: "cancelled with 3 unfinished",
			expectTags:    "aaxconv,cancelled",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, got := newNtfyServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			svc := notifications.NewService(&cfg)

			if err := svc.NotifyRunCompleted(context.Background(), tc.report); err != nil {
				t.Fatalf("NotifyRunCompleted: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", got.title, tc.expectTitle)
			}
			if !strings.Contains(got.body, tc.expectMessage) {
				t.Fatalf("body %q missing %q", got.body, tc.expectMessage)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", got.tags, tc.expectTags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tc.expectPriority)
			}
		})
	}
}

func TestNotifyErrorIncludesContext(t *testing.T) {
	srv, got := newNtfyServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL

	err := notifications.NewService(&cfg).NotifyError(context.Background(), errors.New("boom"), "convert")
	if err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if got.body != "Error during convert: boom" || got.priority != "high" {
		t.Fatalf("unexpected payload: %#v", got)
	}
}

func TestSendReportsServerError(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
