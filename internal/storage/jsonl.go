package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// JsonlSink appends events and pair records as JSON lines. The pairs file is
// an append log, so the last line for an address is its current record.
type JsonlSink struct {
	mu         sync.Mutex
	eventsPath string
	pairsPath  string
}

// NewJsonlSink returns a sink writing to the given files. An empty pairsPath
// disables pair record output.
func NewJsonlSink(eventsPath, pairsPath string) *JsonlSink {
	return &JsonlSink{eventsPath: eventsPath, pairsPath: pairsPath}
}

func (s *JsonlSink) PutEventBatch(_ context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	lines := make([][]byte, 0, len(events))
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", e.Seq, err)
		}
		lines = append(lines, line)
	}
	return s.append(s.eventsPath, lines)
}

func (s *JsonlSink) UpsertPairs(_ context.Context, pairs []model.PairRecord) error {
	if len(pairs) == 0 || s.pairsPath == "" {
		return nil
	}
	lines := make([][]byte, 0, len(pairs))
	for _, p := range pairs {
		line, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal pair %s: %w", p.Address, err)
		}
		lines = append(lines, line)
	}
	return s.append(s.pairsPath, lines)
}

func (s *JsonlSink) append(path string, lines [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Sync()
}
