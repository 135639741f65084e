package types

import (
	"errors"
	"path/filepath"
	"strings"
)

// DefaultDBFile is the database file name used when Config.DBFile is empty.
const DefaultDBFile = "taskstore.db"

// Config holds the storage location and behavioural switches for a Store.
type Config struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
	DBFile  string `json:"db_file" yaml:"db_file"`

	// DeepProjectPropagation makes a task's project change propagate to its
	// whole subtree. When false only direct children follow the parent.
	DeepProjectPropagation bool `json:"deep_project_propagation" yaml:"deep_project_propagation"`

	// SingleOpenRecord rejects a second open record (duration 0) per task.
	SingleOpenRecord bool `json:"single_open_record" yaml:"single_open_record"`
}

// Config validation errors.
var (
	ErrDataDirEmpty  = errors.New("data directory must not be empty")
	ErrDBFileInvalid = errors.New("database file must be a plain file name")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.DBFile == "" {
		return nil
	}
	if c.DBFile == ":memory:" || strings.ContainsRune(c.DBFile, filepath.Separator) || c.DBFile != filepath.Base(c.DBFile) {
		return ErrDBFileInvalid
	}
	return nil
}

// DBPath returns the absolute-or-relative path of the database file.
func (c Config) DBPath() string {
	name := c.DBFile
	if name == "" {
		name = DefaultDBFile
	}
	return filepath.Join(c.DataDir, name)
}
