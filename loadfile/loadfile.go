// Package loadfile resolves and caches files referenced from step configurations.
package loadfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileCache resolves relative file paths against a root directory and caches the
// content of the files it has read. It is not safe for concurrent use.
type FileCache interface {
	// RootDir returns the directory relative paths are resolved against.
	RootDir() string
	// Resolve turns a relative or absolute path into a cleaned absolute path.
	Resolve(path string) string
	// Load returns the content of the file at the given path, reading it from disk
	// on first use.
	Load(path string) ([]byte, error)
}

// New creates a file cache rooted at the given directory.
func New(rootDir string) (FileCache, error) {
	absDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("error determining root directory absolute path %s (%w)", rootDir, err)
	}
	return &fileCache{
		rootDir: absDir,
		files:   map[string][]byte{},
	}, nil
}

// NewPreloaded creates a file cache that serves the given contents from memory and never
// touches the disk. The keys of fileContents are resolved against rootDir the same way
// Load resolves its argument.
func NewPreloaded(rootDir string, fileContents map[string][]byte) (FileCache, error) {
	cache, err := New(rootDir)
	if err != nil {
		return nil, err
	}
	fc := cache.(*fileCache)
	fc.memoryOnly = true
	for path, content := range fileContents {
		fc.files[fc.Resolve(path)] = content
	}
	return fc, nil
}

type fileCache struct {
	rootDir    string
	memoryOnly bool
	files      map[string][]byte
}

func (fc *fileCache) RootDir() string {
	return fc.rootDir
}

func (fc *fileCache) Resolve(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(fc.rootDir, path)
	}
	return filepath.Clean(path)
}

func (fc *fileCache) Load(path string) ([]byte, error) {
	absPath := fc.Resolve(path)
	if content, ok := fc.files[absPath]; ok {
		return content, nil
	}
	if fc.memoryOnly {
		return nil, fmt.Errorf("file cache does not contain %s", absPath)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s (%w)", absPath, err)
	}
	fc.files[absPath] = content
	return content, nil
}
