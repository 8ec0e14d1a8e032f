package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kapu/gridmatch/internal/obslog"
	"go.uber.org/zap"
)

// FileStore is the default store: an index file plus one record file per
// replay. Index layout: a header line holding the last-used index, then one
// "index,player1,player2" line per replay. Record layout: one
// "location,team" line per move with a blank line marking a turn boundary.
type FileStore struct {
	dir       string
	lastIndex int
	entries   []IndexEntry
}

// OpenFileStore loads the index from dir (created when missing).
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create replay dir: %w", err)
	}
	s := &FileStore{dir: dir}

	f, err := os.Open(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open replay index: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if sc.Scan() {
		if n, err := strconv.Atoi(strings.TrimSpace(sc.Text())); err == nil {
			s.lastIndex = n
		}
	}
	for sc.Scan() {
		if e, ok := parseEntry(sc.Text()); ok {
			s.entries = append(s.entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay index: %w", err)
	}
	obslog.L().Info("replay_index_loaded", zap.Int("entries", len(s.entries)), zap.Int("last_index", s.lastIndex))
	return s, nil
}

func (s *FileStore) indexPath() string { return filepath.Join(s.dir, "index.txt") }

func (s *FileStore) recordPath(index int) string {
	return filepath.Join(s.dir, strconv.Itoa(index)+".txt")
}

func (s *FileStore) Save(_ context.Context, steps []string, player1, player2 string) (int, error) {
	s.lastIndex++
	index := s.lastIndex
	s.entries = append(s.entries, IndexEntry{Index: index, Player1: player1, Player2: player2})

	record := strings.Join(steps, "\n")
	if len(steps) > 0 {
		record += "\n"
	}
	if err := os.WriteFile(s.recordPath(index), []byte(record), 0o644); err != nil {
		return 0, fmt.Errorf("write replay record: %w", err)
	}
	if err := s.writeIndex(); err != nil {
		return 0, err
	}
	return index, nil
}

func (s *FileStore) writeIndex() error {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.lastIndex))
	b.WriteString("\n")
	for _, e := range s.entries {
		b.WriteString(e.line())
		b.WriteString("\n")
	}
	if err := os.WriteFile(s.indexPath(), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write replay index: %w", err)
	}
	return nil
}

func (s *FileStore) ListIndicesForPlayer(_ context.Context, name string) ([]int, error) {
	var out []int
	for _, e := range s.entries {
		if e.Player1 == name || e.Player2 == name {
			out = append(out, e.Index)
		}
	}
	return out, nil
}

func (s *FileStore) LoadSteps(_ context.Context, index int) ([]string, error) {
	raw, err := os.ReadFile(s.recordPath(index))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read replay record: %w", err)
	}
	text := strings.TrimSuffix(string(raw), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines, nil
}

func (s *FileStore) Entries(_ context.Context) ([]IndexEntry, error) {
	out := make([]IndexEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *FileStore) Close() error { return nil }
