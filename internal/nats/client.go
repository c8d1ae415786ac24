package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

const (
	StreamName = "COACH_EVENTS"

	// SubjectEventsPrefix prefixes one subject per event kind
	SubjectEventsPrefix = "coach.events"
	SubjectEventsAll    = SubjectEventsPrefix + ".>"
	SubjectCommands     = "coach.commands"
)

var ErrNilMessage = errors.New("nil message")

// Client publishes coach events on JetStream and receives commands over core NATS
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger
}

// New connects to NATS and makes sure the event stream exists
func New(url string, logger *slog.Logger) (*Client, error) {
	nc, err := nats.Connect(url, nats.Name("steepturn-coach"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectEventsAll},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{
		conn:   nc,
		js:     js,
		logger: logging.OrDiscard(logger).With(slog.String("component", "nats")),
	}, nil
}

// EventSubject returns the subject an event kind is published on,
// e.g. coach.events.flight_sample_updated
func EventSubject(kind types.EventKind) string {
	return SubjectEventsPrefix + "." + strings.ToLower(string(kind))
}

// PublishEvent publishes a boundary event
func (c *Client) PublishEvent(event *types.Event) error {
	if event == nil {
		return ErrNilMessage
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := c.js.Publish(EventSubject(event.Kind), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// SubscribeEvents delivers events matching subject, which may contain wildcards
func (c *Client) SubscribeEvents(subject string, handler func(*types.Event)) error {
	_, err := c.js.Subscribe(subject, func(msg *nats.Msg) {
		var event types.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.Warn("failed to unmarshal event", slog.String("subject", msg.Subject), slog.Any("error", err))
			return
		}
		handler(&event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	return nil
}

// PublishCommand sends a command to the coach
func (c *Client) PublishCommand(cmd *types.Command) error {
	if cmd == nil {
		return ErrNilMessage
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	if err := c.conn.Publish(SubjectCommands, data); err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}

	return nil
}

// SubscribeCommands delivers commands. Commands are not persisted; a coach that is down misses them.
func (c *Client) SubscribeCommands(handler func(*types.Command)) error {
	_, err := c.conn.Subscribe(SubjectCommands, func(msg *nats.Msg) {
		var cmd types.Command
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			c.logger.Warn("failed to unmarshal command", slog.Any("error", err))
			return
		}
		handler(&cmd)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to commands: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
