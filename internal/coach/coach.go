package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/maneuver"
	"github.com/saviobatista/steepturn-coach/internal/requirements"
	"github.com/saviobatista/steepturn-coach/internal/stats"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

// Publisher sends boundary events to the presentation layer
type Publisher interface {
	PublishEvent(event *types.Event) error
}

// Cache keeps the latest state for clients that join late
type Cache interface {
	StoreFlightSample(ctx context.Context, sample *types.FlightSample) error
	StoreConnectionStatus(ctx context.Context, status types.ConnectionStatus) error
	StoreManeuverStatus(ctx context.Context, status *types.ManeuverStatus) error
}

// SampleStore records flight samples
type SampleStore interface {
	StoreFlightSample(sample *types.FlightSample, attemptID string) error
}

// Phase of the current maneuver attempt
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseRecording Phase = "RECORDING"
	PhaseEnded     Phase = "ENDED"
)

var (
	ErrNoManeuverSelected = errors.New("no maneuver selected")
	ErrAlreadyRecording   = errors.New("maneuver already recording")
	ErrNotRecording       = errors.New("no maneuver recording")
	ErrUnknownCommand     = errors.New("unknown command")
)

// Dependencies of a Coach. Only Publisher is required.
type Dependencies struct {
	Publisher Publisher
	Cache     Cache
	Store     SampleStore
	Stats     *stats.Stats
	Logger    *slog.Logger
}

// Snapshot is a copy of the coach state
type Snapshot struct {
	Sample     types.FlightSample
	Connection types.ConnectionStatus
	Selected   types.ManeuverType
	Phase      Phase
	Entry      *types.EntrySettings
	Status     *types.ManeuverStatus
}

// Coach owns the flight state and the active maneuver session. It is not safe for concurrent
// use; Run applies events and commands one at a time in arrival order.
type Coach struct {
	publisher Publisher
	cache     Cache
	store     SampleStore
	stats     *stats.Stats
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time

	sample     types.FlightSample
	connection types.ConnectionStatus
	selected   types.ManeuverType
	phase      Phase
	entry      *types.EntrySettings
	session    maneuver.Session
	lastStatus *types.ManeuverStatus

	lastRequirements *types.RequirementsUpdated
}

// New creates a coach with nothing selected
func New(deps Dependencies) *Coach {
	st := deps.Stats
	if st == nil {
		st = stats.New()
	}

	return &Coach{
		publisher:  deps.Publisher,
		cache:      deps.Cache,
		store:      deps.Store,
		stats:      st,
		logger:     logging.OrDiscard(deps.Logger).With(slog.String("component", "coach")),
		newID:      uuid.NewString,
		now:        time.Now,
		connection: types.NotConnected,
		selected:   types.ManeuverNone,
		phase:      PhaseIdle,
	}
}

// Run applies events and commands until ctx is done or the event channel is closed.
func (c *Coach) Run(ctx context.Context, events <-chan types.Event, commands <-chan types.Command) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			c.HandleEvent(ctx, event)
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if err := c.HandleCommand(ctx, cmd); err != nil {
				c.logger.Warn("command rejected", slog.String("command", string(cmd.Kind)), slog.Any("error", err))
			}
		}
	}
}

// HandleEvent applies one event from the link
func (c *Coach) HandleEvent(ctx context.Context, event types.Event) {
	start := time.Now()
	defer func() { c.stats.AddProcessingTime(time.Since(start)) }()

	switch event.Kind {
	case types.EventFlightSampleUpdated:
		if event.FlightSample == nil {
			return
		}
		c.publish(&event)
		c.mergePosition(*event.FlightSample, event.Timestamp)
		c.applySample(ctx)

	case types.EventDatarefUpdated:
		if event.Dataref == nil {
			return
		}
		c.publish(&event)
		if !c.mergeDataref(*event.Dataref, event.Timestamp) {
			return
		}
		c.applySample(ctx)

	case types.EventConnectionStatusChanged:
		if event.Connection == nil {
			return
		}
		c.connection = event.Connection.Status
		c.publish(&event)
		if c.cache != nil {
			if err := c.cache.StoreConnectionStatus(ctx, c.connection); err != nil {
				c.logger.Warn("failed to cache connection status", slog.Any("error", err))
			}
		}

	default:
		c.logger.Debug("ignoring event", slog.String("kind", string(event.Kind)))
	}
}

func (c *Coach) mergePosition(pos types.FlightSampleUpdated, at time.Time) {
	next := c.sample
	next.Heading = pos.Heading
	next.ElevASL = pos.ElevASL
	next.ElevAGL = pos.ElevAGL
	next.Roll = pos.Roll
	next.Timestamp = at
	c.sample = next
}

// mergeDataref reports whether the dataref is one the flight state tracks
func (c *Coach) mergeDataref(ref types.DatarefUpdated, at time.Time) bool {
	next := c.sample
	switch ref.Name {
	case types.DatarefIndicatedAirspeed:
		next.IndicatedAirspeed = float64(ref.Value)
	case types.DatarefEngineRPM:
		next.EngineRPM = float64(ref.Value)
	default:
		c.logger.Debug("ignoring untracked dataref", slog.String("dataref", string(ref.Name)))
		return false
	}
	next.Timestamp = at
	c.sample = next
	return true
}

func (c *Coach) applySample(ctx context.Context) {
	c.stats.IncrementSamplesApplied()
	sample := c.sample

	if c.cache != nil {
		if err := c.cache.StoreFlightSample(ctx, &sample); err != nil {
			c.logger.Warn("failed to cache flight sample", slog.Any("error", err))
		}
	}

	if c.store != nil {
		if err := c.store.StoreFlightSample(&sample, c.attemptID()); err != nil {
			c.logger.Warn("failed to store flight sample", slog.Any("error", err))
		} else {
			c.stats.IncrementStoredSamples()
		}
	}

	if c.phase == PhaseRecording {
		status := c.session.Update(sample)
		c.publishStatus(ctx, status)
		if status.Terminate {
			c.end(status)
		}
	}

	c.publishRequirements(false)
}

func (c *Coach) attemptID() string {
	if c.phase == PhaseRecording && c.entry != nil {
		return c.entry.AttemptID
	}
	return ""
}

// HandleCommand applies one command from the presentation layer
func (c *Coach) HandleCommand(ctx context.Context, cmd types.Command) error {
	switch cmd.Kind {
	case types.CommandSetSelectedManeuver:
		c.selected = cmd.Maneuver
		if c.selected == "" {
			c.selected = types.ManeuverNone
		}
		c.clearAttempt()
		c.logger.Info("maneuver selected", slog.String("maneuver", string(c.selected)))

	case types.CommandStartManeuver:
		if err := c.start(ctx, cmd.Entry); err != nil {
			return err
		}

	case types.CommandStopManeuver:
		if c.phase != PhaseRecording {
			return ErrNotRecording
		}
		status := c.session.Stop(cmd.Success)
		c.publishStatus(ctx, status)
		c.end(status)

	case types.CommandRestartManeuver:
		c.clearAttempt()

	case types.CommandResetManeuver:
		c.selected = types.ManeuverNone
		c.clearAttempt()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}

	c.publishRequirements(true)
	return nil
}

func (c *Coach) start(ctx context.Context, entrySample *types.FlightSample) error {
	if c.phase == PhaseRecording {
		return ErrAlreadyRecording
	}
	if c.selected == types.ManeuverNone {
		return ErrNoManeuverSelected
	}

	sample := c.sample
	if entrySample != nil {
		sample = *entrySample
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = c.now()
	}

	entry := types.EntrySettings{AttemptID: c.newID(), Sample: sample}
	c.entry = &entry
	c.session = maneuver.New(c.selected, entry)
	c.phase = PhaseRecording
	c.stats.RecordAttempt(c.selected)

	c.logger.Info("maneuver started",
		slog.String("maneuver", string(c.selected)),
		slog.String("attempt_id", entry.AttemptID),
		slog.Float64("entry_heading", sample.Heading),
		slog.Float64("entry_roll", sample.Roll))

	c.publishStatus(ctx, c.session.Status())
	return nil
}

func (c *Coach) end(status types.ManeuverStatus) {
	c.phase = PhaseEnded
	c.stats.RecordOutcome(c.selected, status.Success)

	attrs := []any{
		slog.String("maneuver", string(status.Maneuver)),
		slog.String("attempt_id", status.AttemptID),
		slog.Bool("success", status.Success),
		slog.String("reason", string(c.session.Reason())),
	}
	if status.Summary.RolloutHeading != nil {
		attrs = append(attrs, slog.Float64("rollout_heading", *status.Summary.RolloutHeading))
	}
	c.logger.Info("maneuver ended", attrs...)
}

func (c *Coach) clearAttempt() {
	c.phase = PhaseIdle
	c.session = nil
	c.entry = nil
	c.lastStatus = nil
}

func (c *Coach) publishStatus(ctx context.Context, status types.ManeuverStatus) {
	c.lastStatus = &status

	c.publish(&types.Event{
		Kind:      types.EventManeuverStatusUpdated,
		Timestamp: c.now(),
		Maneuver:  &status,
	})

	if c.cache != nil {
		if err := c.cache.StoreManeuverStatus(ctx, &status); err != nil {
			c.logger.Warn("failed to cache maneuver status", slog.Any("error", err))
		}
	}
}

// publishRequirements publishes the entry gate when it changed, or always when forced
func (c *Coach) publishRequirements(force bool) {
	set := requirements.Evaluate(c.selected, c.sample)
	update := types.RequirementsUpdated{
		Maneuver:        c.selected,
		Requirements:    set,
		EngagementReady: requirements.EngagementReady(set, c.sample, c.phase == PhaseRecording, c.phase == PhaseEnded),
	}

	if !force && c.lastRequirements != nil && sameRequirements(*c.lastRequirements, update) {
		return
	}
	c.lastRequirements = &update

	c.publish(&types.Event{
		Kind:         types.EventRequirementsUpdated,
		Timestamp:    c.now(),
		Requirements: &update,
	})
}

func sameRequirements(a, b types.RequirementsUpdated) bool {
	if a.Maneuver != b.Maneuver || a.EngagementReady != b.EngagementReady ||
		a.Requirements.AllFulfilled != b.Requirements.AllFulfilled ||
		len(a.Requirements.Items) != len(b.Requirements.Items) {
		return false
	}
	for i := range a.Requirements.Items {
		if a.Requirements.Items[i] != b.Requirements.Items[i] {
			return false
		}
	}
	return true
}

func (c *Coach) publish(event *types.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishEvent(event); err != nil {
		c.stats.IncrementPublishErrors()
		c.logger.Warn("failed to publish event", slog.String("kind", string(event.Kind)), slog.Any("error", err))
	}
}

// Snapshot returns a copy of the current state
func (c *Coach) Snapshot() Snapshot {
	s := Snapshot{
		Sample:     c.sample,
		Connection: c.connection,
		Selected:   c.selected,
		Phase:      c.phase,
	}
	if c.entry != nil {
		entry := *c.entry
		s.Entry = &entry
	}
	if c.lastStatus != nil {
		status := *c.lastStatus
		s.Status = &status
	}
	return s
}
