package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State is what the agent persists between runs: the Telegram credentials
// and the backup throttle bookkeeping.
type State struct {
	BotToken         string `json:"bot_token,omitempty"`
	ChatID           string `json:"chat_id,omitempty"`
	LastBackupUnix   int64  `json:"last_backup,omitempty"`
	MinIntervalHours int    `json:"min_interval_hours,omitempty"`
}

func (s State) LastBackup() time.Time {
	if s.LastBackupUnix == 0 {
		return time.Time{}
	}
	return time.Unix(s.LastBackupUnix, 0)
}

// Store reads and writes the state file. The file holds a bot token, so it
// is always written owner read/write only.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted state, or a zero state when the file does not
// exist yet.
func (st *Store) Load() (State, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.load()
}

func (st *Store) load() (State, error) {
	var s State
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse state file: %w", err)
	}
	return s, nil
}

// Save writes the state atomically via a same-directory temp file.
func (st *Store) Save(s State) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.save(s)
}

func (st *Store) save(s State) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Update applies fn to the current state and persists the result.
func (st *Store) Update(fn func(*State)) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.load()
	if err != nil {
		return err
	}
	fn(&s)
	return st.save(s)
}

// CheckInterval reports whether enough time has passed since the last backup.
// defaultHours applies when the state carries no interval of its own. The
// returned duration is how much longer to wait when the answer is no.
func (st *Store) CheckInterval(now time.Time, defaultHours int) (bool, time.Duration, error) {
	s, err := st.Load()
	if err != nil {
		return false, 0, err
	}

	last := s.LastBackup()
	if last.IsZero() {
		return true, 0, nil
	}

	hours := s.MinIntervalHours
	if hours <= 0 {
		hours = defaultHours
	}

	minInterval := time.Duration(hours) * time.Hour
	elapsed := now.Sub(last)
	if elapsed >= minInterval {
		return true, 0, nil
	}
	return false, minInterval - elapsed, nil
}
