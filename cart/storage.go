package cart

import (
	"encoding/json"
	"errors"
	"os"
)

// FileStore persists the cart as a JSON blob in a single file, the
// device-local equivalent of a browser local-storage slot.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (fs *FileStore) Save(lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return os.WriteFile(fs.Path, data, 0o600)
}

func (fs *FileStore) Load() ([]Line, error) {
	data, err := os.ReadFile(fs.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}
