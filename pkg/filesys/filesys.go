// Package filesys provides the file system primitives the index families
// and the table layer build on: directory and file creation, reading, and
// the atomic write-to-temp/fsync/rename pattern rebuilds and merges rely on.
package filesys

import (
	"errors"
	"os"
	"path/filepath"

	emberrors "github.com/emberdb/emberdb/pkg/errors"
)

var (
	ErrIsNotDir = errors.New("path isn't a directory")
)

// CreateDir creates a directory at the specified path with the given permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	// Get file information for the given path.
	stat, err := os.Stat(dirPath)
	// If 'force' is false and the path exists
	// return the error (indicating the directory already exists).
	if !force && !os.IsNotExist(err) {
		if err == nil {
			return os.ErrExist
		}
		return err
	}

	// If the path exists and it's not a directory, return an error.
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	// Create all necessary parent directories if they don't exist, with the specified permissions.
	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	// Change the permissions of the newly created directory to 0755 (rwxr-xr-x).
	return os.Chmod(dirPath, 0755)
}

// DeleteDir deletes a directory and all its contents recursively.
// It returns any error encountered during the removal.
func DeleteDir(path string) error {
	return os.RemoveAll(path)
}

// ReadDir reads the directory specified by `dirName` and returns a list of matching file paths.
// It uses `filepath.Glob` which means `dirName` can contain glob patterns (e.g., "mydir/*.txt").
func ReadDir(dirName string) ([]string, error) {
	files, err := filepath.Glob(dirName)
	return files, err
}

// ReadFile reads the entire content of the file at `filePath` into a byte slice.
// It returns the file content and any error encountered.
func ReadFile(filePath string) ([]byte, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return contents, err
}

// AtomicReplace implements the write-to-temp/fsync/rename pattern required
// by §5 for index rebuilds and merges: a cancelled or crashed rebuild must
// leave the previous generation of `path` untouched and fully queryable.
//
// `write` receives a freshly created temporary file in the same directory as
// `path` (so the final rename is same-filesystem and therefore atomic) and
// must write the complete new contents to it. AtomicReplace fsyncs the
// temporary file before renaming it over `path`, then fsyncs the containing
// directory so the rename itself is durable.
func AtomicReplace(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return emberrors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	tmpPath := tmp.Name()
	tmpName := filepath.Base(tmpPath)

	// Any early return below must not leave the temp file behind.
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := write(tmp); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return emberrors.ClassifySyncError(err, tmpName, tmpPath, 0)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Fsync the directory so the rename survives a crash immediately after.
	dirHandle, err := os.Open(dir)
	if err != nil {
		return nil // rename already succeeded; directory durability is best-effort.
	}
	defer dirHandle.Close()
	_ = dirHandle.Sync()
	return nil
}
