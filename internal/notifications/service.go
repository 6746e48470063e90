package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"splice/internal/config"
)

const userAgent = "Splice/0.1.0"

// Event names a notification trigger.
type Event string

const (
	EventProjectCreated   Event = "project_created"
	EventRenderDispatched Event = "render_dispatched"
	EventRenderCompleted  Event = "render_completed"
	EventDeadLetter       Event = "dead_letter"
	EventError            Event = "error"
	EventTestNotification Event = "test"
)

// Payload carries event fields such as projectId, versionId, path, reason.
type Payload map[string]any

// Service publishes pipeline events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		toggles:  cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	project := payload.text("projectId")
	switch event {
	case EventProjectCreated:
		if !n.toggles.ProjectCreated {
			return message{}, false
		}
		return message{
			title: "Splice - Project Created",
			body:  fmt.Sprintf("New project %s from template %s", project, payload.text("template")),
			tags:  []string{"splice", "project", "created"},
		}, true
	case EventRenderCompleted:
		if !n.toggles.RenderCompleted {
			return message{}, false
		}
		body := fmt.Sprintf("Render ready: %s", project)
		if file := payload.text("file"); file != "" {
			body += "\nFile: " + file
		}
		return message{
			title: "Splice - Render Ready",
			body:  body,
			tags:  []string{"splice", "render", "done"},
		}, true
	case EventDeadLetter:
		if !n.toggles.Errors {
			return message{}, false
		}
		return message{
			title:    "Splice - Render File Stuck",
			body:     fmt.Sprintf("%s gave up after %s attempts: %s", payload.text("path"), payload.text("attempts"), payload.text("reason")),
			tags:     []string{"splice", "deadletter", "warning"},
			priority: "high",
		}, true
	case EventError:
		if !n.toggles.Errors {
			return message{}, false
		}
		body := payload.text("error")
		if ctx := payload.text("context"); ctx != "" {
			body = ctx + ": " + body
		}
		if project != "" {
			body = fmt.Sprintf("[%s] %s", project, body)
		}
		return message{
			title:    "Splice - Error",
			body:     body,
			tags:     []string{"splice", "error"},
			priority: "high",
		}, true
	case EventTestNotification:
		return message{
			title: "Splice - Test",
			body:  "Notifications are working.",
			tags:  []string{"splice", "test"},
		}, true
	default:
		// Dispatch happens on every edit; too chatty for push.
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", msg.title)
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
