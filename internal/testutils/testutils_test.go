package testutils

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/types"
)

func TestReadySample(t *testing.T) {
	s := ReadySample()

	if s.ElevAGL <= 2500 || s.IndicatedAirspeed < 90 || s.IndicatedAirspeed > 100 || s.EngineRPM < 2185 || s.EngineRPM > 2415 {
		t.Errorf("ReadySample() does not meet steep turn requirements: %+v", s)
	}
	if s.Roll < 45 {
		t.Errorf("Expected engagement bank, got %v", s.Roll)
	}
	if time.Since(s.Timestamp) > 5*time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestSteepTurnEntry(t *testing.T) {
	entry := SteepTurnEntry("abc", 270)

	if entry.AttemptID != "abc" || entry.Sample.Heading != 270 {
		t.Errorf("Unexpected entry: %+v", entry)
	}
	if entry.Sample.Roll != ReadySample().Roll {
		t.Error("Expected the rest of the sample to match ReadySample")
	}
	var _ types.EntrySettings = entry
}

func TestWaitForCondition(t *testing.T) {
	var flag atomic.Bool
	go func() {
		time.Sleep(30 * time.Millisecond)
		flag.Store(true)
	}()

	if err := WaitForCondition(flag.Load, time.Second); err != nil {
		t.Errorf("WaitForCondition() failed: %v", err)
	}
}

func TestWaitForCondition_Timeout(t *testing.T) {
	start := time.Now()
	err := WaitForCondition(func() bool { return false }, 50*time.Millisecond)

	if err == nil {
		t.Error("Expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Error("WaitForCondition took too long to time out")
	}
}

func TestFakeSimulator(t *testing.T) {
	sim, err := NewFakeSimulator()
	if err != nil {
		t.Fatalf("NewFakeSimulator() failed: %v", err)
	}
	defer sim.Close()

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer client.Close()

	simAddr, err := net.ResolveUDPAddr("udp", sim.Addr())
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if _, err := client.WriteToUDP([]byte("RPOS05"), simAddr); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	d, err := sim.Next(2 * time.Second)
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if string(d.Data) != "RPOS05" {
		t.Errorf("Data = %q, want RPOS05", d.Data)
	}

	if err := sim.SendTo(client.LocalAddr(), []byte("RREF,")); err != nil {
		t.Fatalf("SendTo() failed: %v", err)
	}
	if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set deadline: %v", err)
	}
	buf := make([]byte, 16)
	n, _, err := client.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(buf[:n]) != "RREF," {
		t.Errorf("Reply = %q, want RREF,", buf[:n])
	}
}

func TestFakeSimulator_NextTimeout(t *testing.T) {
	sim, err := NewFakeSimulator()
	if err != nil {
		t.Fatalf("NewFakeSimulator() failed: %v", err)
	}
	defer sim.Close()

	if _, err := sim.Next(20 * time.Millisecond); err == nil {
		t.Error("Expected timeout")
	}
}
