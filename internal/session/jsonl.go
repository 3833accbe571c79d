package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadSession reads a JSONL transcript, one message per line. Lines that do
// not parse are skipped; a partially corrupt transcript still yields the
// messages that do parse. The session id is the file name without extension.
func LoadSession(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat transcript: %w", err)
	}

	s := &Session{
		ID:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:       path,
		ModifiedAt: info.ModTime(),
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		s.Messages = append(s.Messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	s.MessageCount = len(s.Messages)
	if len(s.Messages) > 0 && s.Messages[0].Timestamp != nil {
		s.CreatedAt = *s.Messages[0].Timestamp
	}
	return s, nil
}

// LoadDir loads every .jsonl transcript directly under dir, sorted by file
// name for a stable analysis order.
func LoadDir(dir string) ([]Session, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var sessions []Session
	for _, name := range names {
		s, err := LoadSession(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, nil
}
