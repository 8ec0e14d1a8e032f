// Package account keeps the player account list and its on-disk mirror.
// Passwords are stored and compared as plaintext: the client protocol
// predates any hashing scheme and the file format is fixed by it.
package account

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kapu/gridmatch/internal/obslog"
	"go.uber.org/zap"
)

var (
	ErrNameInUse      = errors.New("account name already in use")
	ErrUnknownAccount = errors.New("no such account")
	ErrWrongPassword  = errors.New("wrong password")
	ErrBadName        = errors.New("invalid account name")
)

// Account is one stored credential pair.
type Account struct {
	Name     string
	Password string
}

// Store holds every account in memory and rewrites the whole file on each
// creation. The population is small and bounded; linear scans are fine.
// Owned by the hub actor, so no locking here.
type Store struct {
	path     string
	accounts []Account
}

// Open loads the account file when it exists and returns a ready store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		name, password, ok := strings.Cut(line, ",")
		if !ok {
			obslog.L().Warn("accounts_skip_line", zap.String("line", line))
			continue
		}
		s.accounts = append(s.accounts, Account{Name: name, Password: password})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	obslog.L().Info("accounts_loaded", zap.Int("count", len(s.accounts)))
	return s, nil
}

// Create registers a new account and persists the full set before returning.
// Names must be unique (case-sensitive exact match) and must not contain the
// field delimiter.
func (s *Store) Create(name, password string) error {
	if name == "" || strings.ContainsAny(name, ",\n") || strings.ContainsAny(password, ",\n") {
		return ErrBadName
	}
	for _, a := range s.accounts {
		if a.Name == name {
			return ErrNameInUse
		}
	}
	s.accounts = append(s.accounts, Account{Name: name, Password: password})
	if err := s.persist(); err != nil {
		// roll back so the failed name stays free and never outlives a restart
		s.accounts = s.accounts[:len(s.accounts)-1]
		return fmt.Errorf("persist accounts: %w", err)
	}
	return nil
}

// Login checks the credential pair: exact match on both fields.
func (s *Store) Login(name, password string) error {
	for _, a := range s.accounts {
		if a.Name == name {
			if a.Password != password {
				return ErrWrongPassword
			}
			return nil
		}
	}
	return ErrUnknownAccount
}

// Count returns the number of stored accounts.
func (s *Store) Count() int { return len(s.accounts) }

// persist rewrites the account file, one "name,password" line per account.
func (s *Store) persist() error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	var b strings.Builder
	for _, a := range s.accounts {
		b.WriteString(a.Name)
		b.WriteString(",")
		b.WriteString(a.Password)
		b.WriteString("\n")
	}
	return os.WriteFile(s.path, []byte(b.String()), 0o644)
}
