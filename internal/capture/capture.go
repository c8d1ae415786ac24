package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/parser"
	"github.com/saviobatista/steepturn-coach/internal/stats"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

// Defaults for the X-Plane link
const (
	DefaultWatchdogInterval = 500 * time.Millisecond
	DefaultLivenessTimeout  = time.Second
	DefaultRPOSRate         = 5

	maxDatagramSize = 1500
	eventBufferSize = 1000
)

// Config describes where the simulator is and what to ask it for
type Config struct {
	// RemoteAddr is the simulator's host:port
	RemoteAddr string
	// LocalPort is the fixed port the simulator sends to. 0 picks a free port.
	LocalPort        int
	RPOSRate         int
	Registrations    []types.Registration
	WatchdogInterval time.Duration
	LivenessTimeout  time.Duration
}

// Link owns the UDP socket to the simulator. It subscribes to telemetry, decodes what comes
// back and derives the connection status from how recently anything arrived.
type Link struct {
	cfg     Config
	decoder *parser.Decoder
	stats   *stats.Stats
	logger  *slog.Logger
	now     func() time.Time

	conn   *net.UDPConn
	remote *net.UDPAddr

	events chan types.Event

	// unix nanoseconds, written by the receive loop only
	lastMessage atomic.Int64

	// status is written by the watchdog only
	statusMu sync.Mutex
	status   types.ConnectionStatus

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a link. Nil stats or logger are replaced with private ones.
func New(cfg Config, st *stats.Stats, logger *slog.Logger) *Link {
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = DefaultWatchdogInterval
	}
	if cfg.LivenessTimeout <= 0 {
		cfg.LivenessTimeout = DefaultLivenessTimeout
	}
	if st == nil {
		st = stats.New()
	}
	logger = logging.OrDiscard(logger).With(slog.String("component", "link"))

	return &Link{
		cfg:      cfg,
		decoder:  parser.NewDecoder(cfg.Registrations, logger),
		stats:    st,
		logger:   logger,
		now:      time.Now,
		events:   make(chan types.Event, eventBufferSize),
		status:   types.NotConnected,
		stopChan: make(chan struct{}),
	}
}

// Start binds the local port, sends the subscriptions and starts the receive loop and watchdog.
// A bind failure is returned; send failures are only logged.
func (l *Link) Start() error {
	remote, err := net.ResolveUDPAddr("udp", l.cfg.RemoteAddr)
	if err != nil {
		return fmt.Errorf("failed to resolve simulator address %s: %w", l.cfg.RemoteAddr, err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: l.cfg.LocalPort})
	if err != nil {
		return fmt.Errorf("failed to bind local port %d: %w", l.cfg.LocalPort, err)
	}

	l.conn = conn
	l.remote = remote

	l.logger.Info("link started",
		slog.String("local", conn.LocalAddr().String()),
		slog.String("remote", remote.String()))

	l.sendSubscriptions()

	l.wg.Add(2)
	go l.receive()
	go l.watchdog()

	return nil
}

// Stop asks the simulator to stop sending, closes the socket and closes the event channel.
func (l *Link) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
		if l.conn != nil {
			l.send(parser.EncodeRPOSRequest(0))
			if err := l.conn.Close(); err != nil {
				l.logger.Warn("failed to close socket", slog.Any("error", err))
			}
		}
		l.wg.Wait()
		close(l.events)
	})
}

// Events returns the channel of decoded samples, dataref values and status changes
func (l *Link) Events() <-chan types.Event {
	return l.events
}

// Status returns the current connection status
func (l *Link) Status() types.ConnectionStatus {
	l.statusMu.Lock()
	defer l.statusMu.Unlock()
	return l.status
}

// LocalAddr returns the bound address, or nil before Start
func (l *Link) LocalAddr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

func (l *Link) sendSubscriptions() {
	rate := l.cfg.RPOSRate
	if rate <= 0 {
		rate = DefaultRPOSRate
	}

	l.send(parser.EncodeRPOSRequest(rate))
	for _, reg := range l.cfg.Registrations {
		l.send(parser.EncodeRREFRequest(reg))
	}
}

// send is fire and forget; the watchdog retries while the link is down
func (l *Link) send(data []byte) {
	l.stats.IncrementSubscriptionSends()
	if _, err := l.conn.WriteToUDP(data, l.remote); err != nil {
		l.stats.IncrementSendFailures()
		l.logger.Warn("failed to send request", slog.Int("bytes", len(data)), slog.Any("error", err))
	}
}

func (l *Link) receive() {
	defer l.wg.Done()

	buffer := make([]byte, maxDatagramSize)
	for {
		n, _, err := l.conn.ReadFromUDP(buffer)
		if err != nil {
			select {
			case <-l.stopChan:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("failed to read datagram", slog.Any("error", err))
			continue
		}

		l.handleDatagram(buffer[:n])
	}
}

// handleDatagram runs once per datagram and never blocks
func (l *Link) handleDatagram(data []byte) {
	now := l.now()
	l.lastMessage.Store(now.UnixNano())
	l.stats.UpdateLastMessageTime(now)

	frame := l.decoder.Decode(data)
	l.stats.IncrementDatagrams(frame.Kind)

	switch frame.Kind {
	case parser.FrameRPOS:
		pos := frame.Position
		l.emit(types.Event{Kind: types.EventFlightSampleUpdated, Timestamp: now, FlightSample: &pos})
	case parser.FrameRREF:
		l.emit(types.Event{
			Kind:      types.EventDatarefUpdated,
			Timestamp: now,
			Dataref:   &types.DatarefUpdated{Name: frame.Dataref, Value: frame.Value},
		})
	}
}

func (l *Link) emit(event types.Event) {
	select {
	case l.events <- event:
	default:
		l.stats.IncrementDroppedEvents()
		l.logger.Debug("event channel full, dropping event", slog.String("kind", string(event.Kind)))
	}
}

func (l *Link) watchdog() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.checkLiveness(l.now())
		}
	}
}

// checkLiveness runs one watchdog observation. While the link is silent the subscriptions are
// sent again on every tick; the status event is emitted only on a transition.
func (l *Link) checkLiveness(now time.Time) {
	last := l.lastMessage.Load()
	silent := last == 0 || now.Sub(time.Unix(0, last)) > l.cfg.LivenessTimeout

	next := types.Connected
	if silent {
		next = types.NotConnected
	}

	l.statusMu.Lock()
	prev := l.status
	l.status = next
	l.statusMu.Unlock()

	if silent {
		l.sendSubscriptions()
	}

	if next == prev {
		return
	}

	l.stats.IncrementConnectionFlips()
	l.logger.Info("connection status changed",
		slog.String("status", string(next)),
		slog.String("since_last_message", sinceLabel(last, now)))

	// transitions are rare and must not be lost
	select {
	case l.events <- types.Event{
		Kind:       types.EventConnectionStatusChanged,
		Timestamp:  now,
		Connection: &types.ConnectionStatusChanged{Status: next},
	}:
	case <-l.stopChan:
	}
}

func sinceLabel(last int64, now time.Time) string {
	if last == 0 {
		return "never"
	}
	return strconv.FormatInt(now.Sub(time.Unix(0, last)).Milliseconds(), 10) + "ms"
}
