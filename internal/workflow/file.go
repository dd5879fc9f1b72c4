package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// BackupSuffix is appended to a workflow path to name its backup copy.
const BackupSuffix = ".backup"

// Load reads and parses the workflow file at path. A missing or unreadable
// file is returned as an error; callers treat it as fatal.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes doc to path. If path already exists its current content is
// first copied to path+BackupSuffix.
func Save(path string, doc *Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return err
	}

	prev, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := os.WriteFile(path+BackupSuffix, prev, 0o644); err != nil {
			return fmt.Errorf("writing backup: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("reading existing workflow: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing workflow: %w", err)
	}
	return nil
}
