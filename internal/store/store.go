// Package store implements the content-addressed on-disk cache of decoded
// inscription payloads and its master index.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/mimetype"
)

// Entry is one row of the master index: everything known about a single
// materialized inscription.
type Entry struct {
	Txid      string    `json:"txid"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mimeType"`
	Ext       string    `json:"ext"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store owns the content/ directory: the decoded-payload files and the
// master/master.json index that is the sole source of truth about what has
// been decoded.
type Store struct {
	contentDir string
	masterPath string

	mu    sync.Mutex
	index map[string]Entry
}

// Open ensures the content directory tree exists under rootDir and loads
// (or initializes) the master index.
func Open(rootDir string) (*Store, error) {
	contentDir := filepath.Join(rootDir, "content")
	masterDir := filepath.Join(contentDir, "master")
	if err := os.MkdirAll(masterDir, 0o755); err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "create content directories")
	}

	s := &Store{
		contentDir: contentDir,
		masterPath: filepath.Join(masterDir, "master.json"),
		index:      make(map[string]Entry),
	}

	raw, err := os.ReadFile(s.masterPath)
	switch {
	case os.IsNotExist(err):
		// No index yet; start empty.
	case err != nil:
		return nil, doginals.Newf(doginals.KindIOError, err, "read master index")
	default:
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &s.index); err != nil {
				return nil, doginals.Newf(doginals.KindIOError, err, "parse master index")
			}
		}
	}

	return s, nil
}

// Get returns the master entry for id if it exists and its backing file is
// still readable. A mapping whose file has gone missing is considered
// stale: it is dropped from the in-memory index (a subsequent save will
// persist the removal) and Get reports not found, so the caller re-decodes.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}

	path := filepath.Join(s.contentDir, entry.Filename)
	if _, err := os.Stat(path); err != nil {
		log.Warnf("master entry %s points at missing file %s, treating as stale", id, path)
		delete(s.index, id)
		return Entry{}, false
	}

	return entry, true
}

// ReadBytes loads the decoded payload bytes for id from disk.
func (s *Store) ReadBytes(id string) ([]byte, error) {
	entry, ok := s.Get(id)
	if !ok {
		return nil, doginals.Newf(doginals.KindIOError, nil, "no content for %s", id)
	}
	data, err := os.ReadFile(filepath.Join(s.contentDir, entry.Filename))
	if err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "read content for %s", id)
	}
	return data, nil
}

// extForMime maps a normalized mime type to the extension the content file
// is named with when no sniffing override applies.
func extForMime(normalized string) string {
	switch normalized {
	case "text/plain":
		return "txt"
	case "text/html":
		return "html"
	case "image/svg+xml":
		return "svg"
	case "application/javascript", "application/x-javascript", "text/javascript":
		return "js"
	case "text/css":
		return "css"
	case "application/json":
		return "json"
	case "model/gltf+json":
		return "gltf"
	case "model/gltf-binary":
		return "glb"
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}

// Put writes the decoded payload for id, sniffing and renaming when the
// declared classification is weak, then upserts the master index. This
// implements the "Contract on first materialization" from the data model:
// write raw bytes under the declared extension, sniff-and-rename if weak,
// upsert preserving createdAt.
func (s *Store) Put(id, txid string, data []byte, declaredMime string) (Entry, error) {
	normalized := mimetype.Normalize(declaredMime)
	ext := extForMime(normalized)

	if err := s.writeFile(id+"."+ext, data); err != nil {
		return Entry{}, err
	}
	filename := id + "." + ext

	if mimetype.IsWeak(normalized, ext) {
		if sniffed, ok := mimetype.Sniff(data); ok {
			renamed, err := s.rename(filename, id+"."+sniffed.Ext)
			if err != nil {
				return Entry{}, err
			}
			filename = renamed
			normalized = sniffed.MimeType
			ext = sniffed.Ext
		}
		// Sniff failure: keep the weak classification as-is, per contract.
	}

	return s.upsert(id, txid, filename, normalized, ext, int64(len(data)))
}

// PutRawNoExtension writes data under a bare filename (no extension), for
// the model-viewer src dependency quirk where the final extension is
// decided by the caller via RenameTo rather than sniffing here.
func (s *Store) PutRawNoExtension(id string, data []byte) (string, error) {
	filename := id
	if err := s.writeFile(filename, data); err != nil {
		return "", err
	}
	return filename, nil
}

// RenameTo renames an existing content file to id.<ext> and upserts the
// master index with the new classification.
func (s *Store) RenameTo(id, txid, currentFilename, ext, mime string) (Entry, error) {
	newFilename := id + "." + ext
	renamed, err := s.rename(currentFilename, newFilename)
	if err != nil {
		return Entry{}, err
	}

	info, err := os.Stat(filepath.Join(s.contentDir, renamed))
	if err != nil {
		return Entry{}, doginals.Newf(doginals.KindIOError, err, "stat renamed content for %s", id)
	}

	return s.upsert(id, txid, renamed, mimetype.Normalize(mime), ext, info.Size())
}

func (s *Store) writeFile(filename string, data []byte) error {
	path := filepath.Join(s.contentDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "write content file %s", filename)
	}
	return nil
}

func (s *Store) rename(oldFilename, newFilename string) (string, error) {
	if oldFilename == newFilename {
		return newFilename, nil
	}
	oldPath := filepath.Join(s.contentDir, oldFilename)
	newPath := filepath.Join(s.contentDir, newFilename)
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", doginals.Newf(doginals.KindIOError, err, "rename %s to %s", oldFilename, newFilename)
	}
	return newFilename, nil
}

// upsert writes (or updates) the master index entry for id, preserving
// CreatedAt across updates, then atomically persists the index to disk.
func (s *Store) upsert(id, txid, filename, mimeType, ext string, size int64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := time.Now().UTC()
	if existing, ok := s.index[id]; ok {
		createdAt = existing.CreatedAt
	}

	entry := Entry{
		Txid:      txid,
		Filename:  filename,
		MimeType:  mimeType,
		Ext:       ext,
		Size:      size,
		CreatedAt: createdAt,
	}
	s.index[id] = entry

	if err := s.saveLocked(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// saveLocked atomically persists the master index. The caller must hold
// s.mu.
func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "marshal master index")
	}

	tmp := s.masterPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "write master index temp file")
	}
	if err := os.Rename(tmp, s.masterPath); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "rename master index into place")
	}
	return nil
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
