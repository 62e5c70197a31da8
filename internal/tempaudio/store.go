// Package tempaudio materializes uploaded audio as uniquely named files for
// providers that read from disk, and removes them again.
package tempaudio

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
)

const (
	// ErrEmptyUpload is the message reported for an empty upload
	ErrEmptyUpload = "上传的音频文件为空"
	errSaveFailed  = "保存音频文件失败"
	errSavedEmpty  = "保存的音频文件为空"
)

// Store owns a directory of temporary audio files. Each file belongs to exactly
// one request; names combine a nanosecond timestamp and a random UUID so
// concurrent requests never collide.
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates dir if needed and returns a store rooted at it
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("temp audio directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp audio directory: %w", err)
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the directory holding the files
func (s *Store) Dir() string {
	return s.dir
}

// Materialize writes data to a new file and returns its path. The write is
// verified by re-reading the file size. On failure no file is left behind.
func (s *Store) Materialize(data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.NewValidationError(ErrEmptyUpload)
	}

	name := fmt.Sprintf("audio_%d_%s.wav", s.now().UnixNano(), uuid.NewString())
	path := filepath.Join(s.dir, name)

	if err := writeSynced(path, data); err != nil {
		s.Release(path)
		return "", domain.NewResourceError(errSaveFailed, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		s.Release(path)
		return "", domain.NewResourceError(errSaveFailed, err)
	}
	if info.Size() == 0 {
		s.Release(path)
		return "", domain.NewResourceError(errSavedEmpty, nil)
	}
	if info.Size() != int64(len(data)) {
		s.Release(path)
		return "", domain.NewResourceError(errSaveFailed,
			fmt.Errorf("wrote %d bytes, file has %d", len(data), info.Size()))
	}

	s.logger.Info("Saved audio file",
		zap.String("path", path),
		zap.Int64("size", info.Size()),
		zap.Bool("wav", isWAV(data)))

	return path, nil
}

// Release removes the file at path. It is safe to call more than once and never
// fails; problems are logged.
func (s *Store) Release(path string) {
	if path == "" {
		return
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		s.logger.Info("Deleted temp audio file", zap.String("path", path))
	case errors.Is(err, fs.ErrNotExist):
	default:
		s.logger.Error("Failed to delete temp audio file", zap.String("path", path), zap.Error(err))
	}
}

// With materializes data, hands the path to fn, and releases the file when fn
// returns or panics.
func (s *Store) With(data []byte, fn func(path string) error) error {
	path, err := s.Materialize(data)
	if err != nil {
		return err
	}
	defer s.Release(path)
	return fn(path)
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// isWAV reports whether data starts with a RIFF/WAVE header. Non-WAV uploads are
// still accepted; providers decide what they can decode.
func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}
