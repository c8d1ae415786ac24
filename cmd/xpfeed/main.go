// Command xpfeed stands in for X-Plane. It answers RPOS and RREF subscriptions with a
// scripted steep turn so the coach can be exercised without a simulator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/parser"
	"github.com/saviobatista/steepturn-coach/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	maxDatagramSize = 1500
	idlePoll        = 100 * time.Millisecond
)

func main() {
	if err := run(); err != nil {
		slog.Error("xpfeed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	script := DefaultScript()

	listen := flag.String("listen", ":49000", "UDP address to receive subscriptions on")
	flag.Float64Var(&script.EntryHeading, "heading", script.EntryHeading, "Entry heading in degrees")
	flag.Float64Var(&script.Bank, "bank", script.Bank, "Bank angle in degrees")
	flag.Float64Var(&script.TurnRate, "rate", script.TurnRate, "Turn rate in degrees per second")
	flag.BoolVar(&script.Left, "left", false, "Turn left instead of right")
	flag.DurationVar(&script.LeadIn, "lead-in", script.LeadIn, "Level flight before the turn")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger, closer := logging.New(logging.Options{Level: *logLevel})
	defer closer.Close()

	addr, err := net.ResolveUDPAddr("udp", *listen)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", *listen, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", *listen, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("xpfeed listening",
		slog.String("addr", conn.LocalAddr().String()),
		slog.Float64("heading", script.EntryHeading),
		slog.Bool("left", script.Left),
		slog.Duration("duration", script.Duration()))

	return NewFeeder(conn, script, logger).Run(ctx)
}

// Feeder serves one subscriber at a time, the last one to send a request
type Feeder struct {
	conn   *net.UDPConn
	script Script
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	client  *net.UDPAddr
	rateHz  int
	refs    map[int]types.Registration
	started time.Time
}

// NewFeeder creates a feeder on conn. Run closes conn.
func NewFeeder(conn *net.UDPConn, script Script, logger *slog.Logger) *Feeder {
	return &Feeder{
		conn:   conn,
		script: script,
		logger: logging.OrDiscard(logger),
		now:    time.Now,
		refs:   make(map[int]types.Registration),
	}
}

// Run serves subscriptions until ctx is done
func (f *Feeder) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return f.conn.Close()
	})
	g.Go(func() error {
		return f.receive()
	})
	g.Go(func() error {
		return f.stream(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (f *Feeder) receive() error {
	buffer := make([]byte, maxDatagramSize)
	for {
		n, from, err := f.conn.ReadFromUDP(buffer)
		if err != nil {
			return err
		}
		f.handleRequest(from, buffer[:n])
	}
}

func (f *Feeder) handleRequest(from *net.UDPAddr, data []byte) {
	req, err := parser.ParseRequest(data)
	if err != nil {
		f.logger.Debug("ignoring datagram", slog.String("from", from.String()), slog.Any("error", err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch req.Kind {
	case parser.FrameRPOS:
		if req.RateHz == 0 {
			f.logger.Info("subscriber stopped telemetry", slog.String("from", from.String()))
			f.rateHz = 0
			return
		}
		if f.client == nil || f.client.String() != from.String() || f.rateHz == 0 {
			f.started = f.now()
			f.logger.Info("subscriber started telemetry", slog.String("from", from.String()), slog.Int("rate_hz", req.RateHz))
		}
		f.client = from
		f.rateHz = req.RateHz

	case parser.FrameRREF:
		if req.Registration.FrequencyHz == 0 {
			delete(f.refs, req.Registration.ID)
			return
		}
		f.refs[req.Registration.ID] = req.Registration
	}
}

// interval returns the time to the next frame, or 0 when nobody is subscribed
func (f *Feeder) interval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil || f.rateHz == 0 {
		return 0
	}
	return time.Second / time.Duration(f.rateHz)
}

func (f *Feeder) stream(ctx context.Context) error {
	timer := time.NewTimer(idlePoll)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		interval := f.interval()
		if interval == 0 {
			timer.Reset(idlePoll)
			continue
		}
		if err := f.tick(); err != nil {
			f.logger.Warn("failed to send frame", slog.Any("error", err))
		}
		timer.Reset(interval)
	}
}

// tick sends the current frame to the subscriber. Datarefs go out at the RPOS rate.
func (f *Feeder) tick() error {
	f.mu.Lock()
	client := f.client
	frame := f.script.At(f.now().Sub(f.started))
	datagrams := f.datagrams(frame)
	f.mu.Unlock()

	if client == nil {
		return nil
	}
	for _, d := range datagrams {
		if _, err := f.conn.WriteToUDP(d, client); err != nil {
			return err
		}
	}
	return nil
}

// datagrams encodes frame as one RPOS frame plus one RREF frame per registration, in id order.
// Callers hold f.mu.
func (f *Feeder) datagrams(frame Frame) [][]byte {
	ids := make([]int, 0, len(f.refs))
	for id := range f.refs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := [][]byte{parser.EncodeRPOSFrame(frame.Position)}
	for _, id := range ids {
		out = append(out, parser.EncodeRREFFrame(id, frame.Value(f.refs[id].Dataref)))
	}
	return out
}
