package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var tokenRe = regexp.MustCompile(`^[0-9a-f-]{36}$`)

// Staging persists parsed tables between the upload request and the
// apply-mapping request. Every staged table is stored as a CSV snapshot
// under an opaque token, so replays look the same for every source.
type Staging struct {
	dir string
}

// NewStaging ensures the staging directory exists.
func NewStaging(dir string) (*Staging, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ingest: create staging dir: %w", err)
	}
	return &Staging{dir: dir}, nil
}

// Put writes the table and returns its token.
func (s *Staging) Put(t *Table) (string, error) {
	token := uuid.NewString()

	b, err := t.Bytes()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.path(token), b, 0o644); err != nil {
		return "", fmt.Errorf("ingest: stage table: %w", err)
	}
	// Remember where the rows came from for the import log.
	if err := os.WriteFile(s.path(token)+".src", []byte(t.Source), 0o644); err != nil {
		return "", fmt.Errorf("ingest: stage source name: %w", err)
	}
	return token, nil
}

// Get loads a staged table by token. The token is validated before it is
// used in a path.
func (s *Staging) Get(token string) (*Table, error) {
	if !tokenRe.MatchString(token) {
		return nil, fmt.Errorf("ingest: invalid staging token %q", token)
	}
	f, err := os.Open(s.path(token))
	if err != nil {
		return nil, fmt.Errorf("ingest: open staged table: %w", err)
	}
	defer f.Close()

	source := token
	if b, err := os.ReadFile(s.path(token) + ".src"); err == nil {
		if v := strings.TrimSpace(string(b)); v != "" {
			source = v
		}
	}
	return ParseCSV(source, f)
}

// Remove deletes a staged table once it has been processed.
func (s *Staging) Remove(token string) {
	if !tokenRe.MatchString(token) {
		return
	}
	_ = os.Remove(s.path(token))
	_ = os.Remove(s.path(token) + ".src")
}

func (s *Staging) path(token string) string {
	return filepath.Join(s.dir, token+".csv")
}
