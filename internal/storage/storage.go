package storage

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

const dayLayout = "2006-01-02"

// Storage writes coach events as JSON lines to one file per UTC day.
// Finished days are gzip-compressed.
type Storage struct {
	outputDir string
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	file *os.File
	day  string

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Storage instance
func New(outputDir string, logger *slog.Logger) *Storage {
	return &Storage{
		outputDir: outputDir,
		logger:    logging.OrDiscard(logger).With(slog.String("component", "storage")),
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// FileName returns the recording file name for a day
func FileName(day time.Time) string {
	return fmt.Sprintf("coach_%s.jsonl", day.UTC().Format(dayLayout))
}

// Start creates the output directory, opens today's file and starts the midnight rotation timer
func (s *Storage) Start() error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	s.mu.Lock()
	err := s.rotateIfNeeded()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go s.rotationTimer()

	return nil
}

// Stop closes the current file and stops the rotation timer
func (s *Storage) Stop() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// WriteEvent appends one event as a JSON line
func (s *Storage) WriteEvent(event *types.Event) error {
	if event == nil {
		return errors.New("nil event")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return s.WriteMessage(data)
}

// WriteMessage appends one line to the current day's file
func (s *Storage) WriteMessage(message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotateIfNeeded(); err != nil {
		return err
	}

	if _, err := s.file.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if len(message) == 0 || message[len(message)-1] != '\n' {
		if _, err := s.file.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
	}
	return nil
}

func (s *Storage) rotationTimer() {
	defer s.wg.Done()

	for {
		now := s.now().UTC()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

		select {
		case <-time.After(nextMidnight.Sub(now)):
			s.mu.Lock()
			err := s.rotateIfNeeded()
			s.mu.Unlock()
			if err != nil {
				s.logger.Error("failed to rotate recording", slog.Any("error", err))
			}
		case <-s.stopChan:
			return
		}
	}
}

// rotateIfNeeded opens today's file, closing and compressing the previous day's. Caller holds mu.
func (s *Storage) rotateIfNeeded() error {
	today := s.now().UTC().Format(dayLayout)
	if s.file != nil && s.day == today {
		return nil
	}

	if s.file != nil {
		previous := s.file.Name()
		if err := s.file.Close(); err != nil {
			s.logger.Warn("failed to close recording", slog.String("file", previous), slog.Any("error", err))
		}
		s.file = nil

		if err := compressFile(previous); err != nil {
			s.logger.Error("failed to compress recording", slog.String("file", previous), slog.Any("error", err))
		} else {
			s.logger.Info("compressed recording", slog.String("file", previous+".gz"))
		}
	}

	filename := filepath.Join(s.outputDir, FileName(s.now()))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create recording file: %w", err)
	}

	s.file = file
	s.day = today
	return nil
}

// compressFile gzips path to path.gz and removes the original
func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer target.Close()

	gzipWriter := gzip.NewWriter(target)
	if _, err := io.Copy(gzipWriter, source); err != nil {
		gzipWriter.Close()
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}
