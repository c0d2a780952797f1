package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/KNBS-StatsChat/statschat-ke/errors"

	"go.uber.org/zap"
)

// RawRecord is a parsed JSON document whose field values are kept verbatim.
// Rewriting a RawRecord changes only the fields explicitly set on it; every
// other value round-trips byte-for-byte (formatting aside).
type RawRecord map[string]json.RawMessage

// FileStore reads and writes one-JSON-file-per-record document directories.
// It is the compatibility layer over the on-disk layout the conversion
// pipeline produces; relationship discovery is by filename prefix.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) Dir() string {
	return s.dir
}

// ListNames returns the basenames of all JSON records in the store,
// sorted for deterministic iteration.
func (s *FileStore) ListNames() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, apperrors.WrapErrorf(err, "list records in %s", s.dir)
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)
	return names, nil
}

// GlobNames returns basenames of JSON records matching the given filename
// pattern inside the store directory.
func (s *FileStore) GlobNames(pattern string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return nil, apperrors.WrapErrorf(err, "glob %q in %s", pattern, s.dir)
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)
	return names, nil
}

// ReadRaw loads a record by name preserving all field values verbatim.
func (s *FileStore) ReadRaw(name string) (RawRecord, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.WrapErrorf(apperrors.ErrNotFound, "record %s", name)
		}
		return nil, apperrors.WrapErrorf(err, "read record %s", name)
	}
	var rec RawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrMalformedRecord, "parse %s: %v", name, err)
	}
	return rec, nil
}

// WriteRaw persists a record by name with indented formatting.
func (s *FileStore) WriteRaw(name string, rec RawRecord) error {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return apperrors.WrapErrorf(err, "marshal record %s", name)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return apperrors.WrapErrorf(err, "write record %s", name)
	}
	return nil
}

// LoadPublication loads and parses a full publication record by name.
func (s *FileStore) LoadPublication(name string) (*Publication, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.WrapErrorf(apperrors.ErrNotFound, "publication %s", name)
		}
		return nil, apperrors.WrapErrorf(err, "read publication %s", name)
	}
	var pub Publication
	if err := json.Unmarshal(data, &pub); err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrMalformedRecord, "parse publication %s: %v", name, err)
	}
	return &pub, nil
}

// LoadSection loads and parses a section record by name.
func (s *FileStore) LoadSection(name string) (*SectionRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.WrapErrorf(apperrors.ErrNotFound, "section %s", name)
		}
		return nil, apperrors.WrapErrorf(err, "read section %s", name)
	}
	var rec SectionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrMalformedRecord, "parse section %s: %v", name, err)
	}
	return &rec, nil
}

// SavePublication writes a publication record named {id}.json.
func (s *FileStore) SavePublication(pub *Publication) error {
	if pub.ID == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "publication has no id")
	}
	data, err := json.MarshalIndent(pub, "", "    ")
	if err != nil {
		return apperrors.WrapErrorf(err, "marshal publication %s", pub.ID)
	}
	name := pub.ID + ".json"
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return apperrors.WrapErrorf(err, "write publication %s", name)
	}
	return nil
}

// LatestFlag extracts the `latest` field from a raw record. The second
// return is false when the field is absent or not a boolean, which legacy
// records occasionally are.
func LatestFlag(rec RawRecord) (value bool, ok bool) {
	raw, present := rec["latest"]
	if !present {
		return false, false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	return v, true
}

// SetLatestFlag overwrites the `latest` field on a raw record.
func SetLatestFlag(rec RawRecord, v bool) {
	rec["latest"] = json.RawMessage(fmt.Sprintf("%t", v))
}
