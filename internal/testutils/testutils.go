package testutils

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/types"
)

// ReadySample returns a flight sample that meets every steep turn requirement, banked right
func ReadySample() types.FlightSample {
	return types.FlightSample{
		Heading:           90,
		ElevASL:           3500,
		ElevAGL:           2700,
		Roll:              45,
		IndicatedAirspeed: 95,
		EngineRPM:         2300,
		Timestamp:         time.Now().UTC(),
	}
}

// SteepTurnEntry returns entry settings for a right steep turn at the given heading
func SteepTurnEntry(attemptID string, heading float64) types.EntrySettings {
	sample := ReadySample()
	sample.Heading = heading
	return types.EntrySettings{AttemptID: attemptID, Sample: sample}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// Datagram is a packet received by a FakeSimulator
type Datagram struct {
	From *net.UDPAddr
	Data []byte
}

// FakeSimulator is a loopback UDP endpoint standing in for X-Plane
type FakeSimulator struct {
	conn     *net.UDPConn
	received chan Datagram
	wg       sync.WaitGroup
}

// NewFakeSimulator listens on a free loopback port
func NewFakeSimulator() (*FakeSimulator, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := &FakeSimulator{
		conn:     conn,
		received: make(chan Datagram, 256),
	}

	s.wg.Add(1)
	go s.read()

	return s, nil
}

func (s *FakeSimulator) read() {
	defer s.wg.Done()
	defer close(s.received)

	buffer := make([]byte, 2048)
	for {
		n, from, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buffer[:n])

		select {
		case s.received <- Datagram{From: from, Data: data}:
		default:
		}
	}
}

// Addr returns the simulator's address
func (s *FakeSimulator) Addr() string {
	return s.conn.LocalAddr().String()
}

// Received returns the datagrams sent to the simulator
func (s *FakeSimulator) Received() <-chan Datagram {
	return s.received
}

// Next waits for the next datagram
func (s *FakeSimulator) Next(timeout time.Duration) (Datagram, error) {
	select {
	case d, ok := <-s.received:
		if !ok {
			return Datagram{}, fmt.Errorf("simulator closed")
		}
		return d, nil
	case <-time.After(timeout):
		return Datagram{}, fmt.Errorf("timeout waiting for datagram")
	}
}

// SendTo sends a datagram to addr
func (s *FakeSimulator) SendTo(addr net.Addr, data []byte) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", addr, err)
	}
	if _, err := s.conn.WriteToUDP(data, udpAddr); err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	return nil
}

// Close stops the simulator
func (s *FakeSimulator) Close() error {
	err := s.conn.Close()
	s.wg.Wait()
	return err
}
