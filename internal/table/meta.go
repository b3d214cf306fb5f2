package table

import (
	"os"

	json "github.com/goccy/go-json"

	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/filesys"
)

func metaPath(dir string) string { return dir + "/meta.json" }

// SaveMeta writes m to dir/meta.json using the atomic write-to-temp/
// fsync/rename pattern (spec.md §5), so a crash mid-write never corrupts
// a previously valid meta.json.
func SaveMeta(dir string, m Meta) error {
	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode table metadata")
	}
	if err := filesys.CreateDir(dir, 0755, true); err != nil {
		return errors.ClassifyDirectoryCreationError(err, dir)
	}
	return filesys.AtomicReplace(metaPath(dir), func(f *os.File) error {
		_, err := f.Write(buf)
		return err
	})
}

// LoadMeta reads dir/meta.json.
func LoadMeta(dir string) (Meta, error) {
	var m Meta
	data, err := filesys.ReadFile(metaPath(dir))
	if err != nil {
		return m, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read table metadata").WithPath(metaPath(dir))
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "table metadata corrupted").WithPath(metaPath(dir))
	}
	return m, nil
}
