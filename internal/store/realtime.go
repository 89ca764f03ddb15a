package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/memcardhq/memcard/internal/session"
)

// Action is the kind of change a realtime event describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is one change delivered on a live subscription: the affected
// record plus what happened to it.
type Event struct {
	Action Action          `json:"action"`
	Record json.RawMessage `json:"record"`
}

// Subscription is an open realtime feed. Events() yields changes until
// the feed is closed; after the channel closes, Err() reports whether
// the feed ended abnormally.
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Err reports why the feed ended. It is only meaningful after Events()
// has been closed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Close tears the subscription down. Safe to call from any exit path;
// Events() closes shortly after.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// sseFrame is one server-sent event: its name and raw data payload.
type sseFrame struct {
	event string
	data  string
}

// Subscribe opens the store's realtime feed and registers interest in
// the given collection topics. The server assigns a client id in the
// initial handshake frame; the subscription set is then posted back
// before any change events flow.
func (c *Client) Subscribe(ctx context.Context, sess *session.Session, topics ...string) (*Subscription, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("at least one subscription topic is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/realtime", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build realtime request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The configured client's timeout would kill the long-lived stream,
	// so the stream gets its own client sharing the same transport.
	stream := &http.Client{Transport: c.http.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open realtime stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &APIError{Status: resp.StatusCode, Message: "realtime stream rejected"}
	}

	reader := bufio.NewReader(resp.Body)

	// The first frame announces the server-assigned client id.
	frame, err := readFrame(reader)
	if err != nil {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("failed to read realtime handshake: %w", err)
	}
	if frame.event != "PB_CONNECT" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected realtime handshake event %q", frame.event)
	}

	var connect struct {
		ClientID string `json:"clientId"`
	}
	if err := json.Unmarshal([]byte(frame.data), &connect); err != nil {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("invalid realtime handshake payload: %w", err)
	}
	if connect.ClientID == "" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("realtime handshake carried no client id")
	}

	if err := c.registerSubscriptions(ctx, sess, connect.ClientID, topics); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	c.log.Debug("realtime stream open, client id %s, topics %v", connect.ClientID, topics)

	sub := &Subscription{
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.events)
		defer resp.Body.Close()

		wanted := make(map[string]bool, len(topics))
		for _, t := range topics {
			wanted[t] = true
		}

		for {
			frame, err := readFrame(reader)
			if err != nil {
				if ctx.Err() == nil {
					sub.err = fmt.Errorf("realtime stream closed: %w", err)
				}
				return
			}
			if !wanted[frame.event] {
				continue
			}

			var ev Event
			if err := json.Unmarshal([]byte(frame.data), &ev); err != nil {
				c.log.Warn("dropping malformed realtime event on %s: %v", frame.event, err)
				continue
			}

			select {
			case sub.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

func (c *Client) registerSubscriptions(ctx context.Context, sess *session.Session, clientID string, topics []string) error {
	body := map[string]interface{}{
		"clientId":      clientID,
		"subscriptions": topics,
	}
	if err := c.send(ctx, sess, http.MethodPost, "/api/realtime", nil, body, nil); err != nil {
		return fmt.Errorf("failed to register subscriptions: %w", err)
	}
	return nil
}

// readFrame consumes one server-sent event from the stream. Multiple
// data lines concatenate; comment and retry lines are ignored.
func readFrame(r *bufio.Reader) (sseFrame, error) {
	var frame sseFrame
	var data []string

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return frame, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if frame.event != "" || len(data) > 0 {
				frame.data = strings.Join(data, "\n")
				return frame, nil
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			frame.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}
