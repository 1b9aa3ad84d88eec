// Package dcache stores generator outputs on disk, keyed by a digest of the
// exact exchange that produced them.
package dcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

// Current schema version - increment when Payload format changes
const schemaVersion uint16 = 1

// Digest is a SHA-256 cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// KeyOf hashes the parts of an exchange in order. Each part is length
// prefixed so ("ab","c") and ("a","bc") differ.
func KeyOf(parts ...[]byte) Digest {
	h := sha256.New()
	var lenBuf [8]byte
	for _, p := range parts {
		n := uint64(len(p))
		for i := range lenBuf {
			lenBuf[i] = byte(n >> (8 * i))
		}
		_, _ = h.Write(lenBuf[:])
		_, _ = h.Write(p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Cache is a directory of msgpack payloads. Safe for concurrent use. A nil
// *Cache is a valid cache that never hits.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Payload is one cached generator output.
type Payload struct {
	// Schema version for safe invalidation when format changes
	Schema    uint16
	Generator string
	Stored    int64 // unix seconds

	Errors   []Message
	Warnings []Message
	Files    []File
}

type Message struct {
	Message string
	Labels  [][2]string
}

type File struct {
	Path   string
	Source string
}

// Open uses dir, creating it if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// OpenDefault opens the cache under $XDG_CACHE_HOME/<app>, falling back to
// ~/.cache/<app>.
func OpenDefault(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return Open(filepath.Join(base, app))
}

func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "outputs", key.String()+".mp")
}

// Put serializes and writes a payload.
func (c *Cache) Put(key Digest, payload *Payload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	payload.Schema = schemaVersion
	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads a payload. A payload written by another schema version is a miss.
func (c *Cache) Get(key Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	// #nosec G304 -- path is derived from the digest
	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if out.Schema != schemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// FromOutput converts a generator output for storage.
func FromOutput(generator string, out *schema.Output) *Payload {
	p := &Payload{Generator: generator, Stored: time.Now().Unix()}
	p.Errors = fromMessages(out.Errors)
	p.Warnings = fromMessages(out.Warnings)
	p.Files = make([]File, len(out.Files))
	for i, f := range out.Files {
		p.Files[i] = File{Path: f.Path, Source: f.Source}
	}
	return p
}

// Output rebuilds the generator output.
func (p *Payload) Output() *schema.Output {
	out := &schema.Output{
		Errors:   toMessages(p.Errors),
		Warnings: toMessages(p.Warnings),
		Files:    make([]schema.OutputFile, len(p.Files)),
	}
	for i, f := range p.Files {
		out.Files[i] = schema.OutputFile{Path: f.Path, Source: f.Source}
	}
	return out
}

func fromMessages(in []schema.OutputMessage) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i].Message = m.Message
		for _, l := range m.Labels {
			out[i].Labels = append(out[i].Labels, [2]string{l.Text, string(l.Location)})
		}
	}
	return out
}

func toMessages(in []Message) []schema.OutputMessage {
	out := make([]schema.OutputMessage, len(in))
	for i, m := range in {
		out[i].Message = m.Message
		for _, l := range m.Labels {
			out[i].Labels = append(out[i].Labels, schema.Label{Text: l[0], Location: source.LocationID(l[1])})
		}
	}
	return out
}
