package schedule

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

// FileSource reads the schedule document from a filesystem path.
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource reads path from fs; a nil fs means the OS filesystem.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSource{fs: fs, path: path}
}

func (s *FileSource) String() string {
	return "file " + s.path
}

// Path is the file being read.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("schedule: read %s: %w", s.path, err)
	}
	if len(body) == 0 {
		// Writers that truncate-then-write leave a short empty window.
		return nil, fmt.Errorf("schedule: %s is empty", s.path)
	}
	return body, nil
}
