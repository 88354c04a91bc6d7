// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// FilesystemStore keeps preferences as JSON files under a base folder. It is
// meant for single-instance deployments without a database.
type FilesystemStore struct {
	baseFolder string
}

var _ Store = FilesystemStore{}

// NewFilesystemStore returns a store rooted at the given folder. The folder
// is created if it does not exist.
func NewFilesystemStore(baseFolder string) (FilesystemStore, error) {
	if err := os.MkdirAll(baseFolder, 0700); err != nil {
		return FilesystemStore{}, err
	}
	return FilesystemStore{baseFolder: baseFolder}, nil
}

// path maps a key onto a file path. Path separators and dots in keys are
// flattened so a key cannot escape the base folder.
func (s FilesystemStore) path(key string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return filepath.Join(s.baseFolder, replacer.Replace(key)+".json")
}

// Read reads a value. The timestamp is the file modification time; a missing
// file yields a zero timestamp and no error.
func (s FilesystemStore) Read(ctx context.Context, key string, value interface{}) (time.Time, error) {
	var timestamp time.Time
	path := s.path(key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return timestamp, nil
	}
	if err != nil {
		return timestamp, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return timestamp, fmt.Errorf("cannot read key '%s': %s", key, err.Error())
	}
	err = json.Unmarshal(data, &value)
	return info.ModTime().UTC(), err
}

// Write writes a value.
func (s FilesystemStore) Write(ctx context.Context, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(key), body, 0600)
}

// Delete deletes a value.
func (s FilesystemStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
