package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileWriter is an io.Writer appending to a log file with size based
// rotation. Rotated files are named <path>.1 (newest) to <path>.<MaxFiles>.
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	maxSize  int64
	maxFiles int
	written  int64
}

// FileConfig configures a FileWriter.
type FileConfig struct {
	Path     string // log file path
	MaxSize  int64  // max file size in bytes (default: 10MB)
	MaxFiles int    // number of rotated files to keep (default: 5)
}

// NewFileWriter opens cfg.Path for appending, creating its directory.
func NewFileWriter(cfg FileConfig) (*FileWriter, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024 // 10MB
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 5
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	fw := &FileWriter{
		file:     f,
		path:     cfg.Path,
		maxSize:  maxSize,
		maxFiles: maxFiles,
	}
	if info, err := f.Stat(); err == nil {
		fw.written = info.Size()
	}
	return fw, nil
}

// Write implements io.Writer. The file is rotated once it reaches the
// configured size; a record is never split across files.
func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.file == nil {
		return 0, fmt.Errorf("log file closed")
	}

	n, err := fw.file.Write(p)
	if err != nil {
		return n, err
	}
	fw.written += int64(n)

	if fw.written >= fw.maxSize {
		fw.rotate()
	}
	return n, nil
}

// Close closes the log file.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file != nil {
		err := fw.file.Close()
		fw.file = nil
		return err
	}
	return nil
}

func (fw *FileWriter) rotate() {
	fw.file.Close()
	fw.file = nil

	for i := fw.maxFiles - 1; i > 0; i-- {
		old := fmt.Sprintf("%s.%d", fw.path, i)
		next := fmt.Sprintf("%s.%d", fw.path, i+1)
		os.Rename(old, next)
	}
	os.Rename(fw.path, fw.path+".1")
	os.Remove(fmt.Sprintf("%s.%d", fw.path, fw.maxFiles+1))

	f, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		// The default logger may write here, so report on stderr.
		fmt.Fprintf(os.Stderr, "failed to open rotated log file: %v\n", err)
		return
	}
	fw.file = f
	fw.written = 0
}
