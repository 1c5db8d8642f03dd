package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteArchive exports a session snapshot as an indented JSON file under
// root, one file per session id. The in-memory store stays authoritative;
// the archive is a best-effort record written when an interview completes.
func WriteArchive(root string, s *Session) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(root, fmt.Sprintf("session_%s.json", s.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("archive encode: %w", err)
	}
	return path, nil
}
