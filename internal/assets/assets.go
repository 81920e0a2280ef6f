// Package assets indexes texture files on disk and resolves RMesh texture
// references against them.
package assets

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ftrvxmtrx/tga"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"github.com/Faultbox/rmesh/pkg/encoding"
	"github.com/Faultbox/rmesh/pkg/mesh"
)

// ErrUnsupportedTexture is returned for files whose extension has no decoder.
var ErrUnsupportedTexture = errors.New("unsupported texture format")

// DefaultExtensions lists the texture file types indexed when none are given.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tga", ".webp", ".gif"}

type configDecoder func(io.Reader) (image.Config, error)

// Decoders are picked by extension. TGA has no magic number, so content
// sniffing through image.DecodeConfig would misroute other formats to it.
var decoders = map[string]struct {
	format string
	decode configDecoder
}{
	".png":  {"png", png.DecodeConfig},
	".jpg":  {"jpeg", jpeg.DecodeConfig},
	".jpeg": {"jpeg", jpeg.DecodeConfig},
	".gif":  {"gif", gif.DecodeConfig},
	".bmp":  {"bmp", bmp.DecodeConfig},
	".webp": {"webp", webp.DecodeConfig},
	".tga":  {"tga", tga.DecodeConfig},
}

// Texture describes a resolved texture file.
type Texture struct {
	Name   string // Lookup key (lowercase base filename)
	Path   string
	Format string
	Width  int
	Height int
}

// TexturePath returns the file path of the texture.
func (t *Texture) TexturePath() string {
	return t.Path
}

// ProbeTexture reads the header of a texture file.
func ProbeTexture(path string) (*Texture, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTexture, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening texture: %w", err)
	}
	defer f.Close()

	cfg, err := dec.decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s header of %s: %w", dec.format, path, err)
	}

	return &Texture{
		Name:   encoding.TextureKey(path),
		Path:   path,
		Format: dec.format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

type cacheEntry struct {
	tex *Texture // nil when the probe failed
}

// TextureIndex maps lowercase base filenames to texture files and caches
// probe results. It implements mesh.Resolver and is safe for concurrent use.
type TextureIndex struct {
	exts map[string]bool
	log  *zap.Logger

	mu      sync.RWMutex
	entries map[string]string
	cache   map[string]*cacheEntry

	// Stats
	hits   int
	misses int
}

var _ mesh.Resolver = (*TextureIndex)(nil)

// NewTextureIndex creates an empty index for the given extensions.
// A nil logger discards probe failures.
func NewTextureIndex(exts []string, log *zap.Logger) *TextureIndex {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	if log == nil {
		log = zap.NewNop()
	}

	idx := &TextureIndex{
		exts:    make(map[string]bool, len(exts)),
		log:     log,
		entries: make(map[string]string),
		cache:   make(map[string]*cacheEntry),
	}
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		idx.exts[ext] = true
	}
	return idx
}

// AddDir indexes every texture file below dir.
// Directories added later take priority for duplicate names.
func (idx *TextureIndex) AddDir(dir string) error {
	found := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() || !idx.exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		key := encoding.TextureKey(path)
		// Within one directory tree the first file in lexical order wins.
		if _, exists := found[key]; !exists {
			found[key] = path
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexing textures in %s: %w", dir, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for key, path := range found {
		idx.entries[key] = path
		delete(idx.cache, key)
	}

	idx.log.Debug("indexed texture directory",
		zap.String("dir", dir),
		zap.Int("textures", len(found)))
	return nil
}

// Lookup returns the indexed path for a texture reference.
func (idx *TextureIndex) Lookup(name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	path, ok := idx.entries[encoding.TextureKey(name)]
	return path, ok
}

// Resolve returns a *Texture for a texture reference. References may carry
// a directory or extension; only the base filename is matched.
func (idx *TextureIndex) Resolve(name string) (mesh.Resource, bool) {
	tex := idx.Texture(name)
	if tex == nil {
		return nil, false
	}
	return tex, true
}

// Texture resolves a texture reference, probing the file on first use.
func (idx *TextureIndex) Texture(name string) *Texture {
	key := encoding.TextureKey(name)

	idx.mu.RLock()
	if entry, ok := idx.cache[key]; ok {
		idx.mu.RUnlock()
		idx.count(entry.tex != nil)
		return entry.tex
	}
	path, ok := idx.entries[key]
	idx.mu.RUnlock()

	if !ok {
		idx.count(false)
		return nil
	}

	tex, err := ProbeTexture(path)
	if err != nil {
		idx.log.Warn("unreadable texture", zap.String("path", path), zap.Error(err))
		tex = nil
	}

	idx.mu.Lock()
	if entry, exists := idx.cache[key]; exists {
		tex = entry.tex
	} else {
		idx.cache[key] = &cacheEntry{tex: tex}
	}
	if tex != nil {
		idx.hits++
	} else {
		idx.misses++
	}
	idx.mu.Unlock()

	return tex
}

func (idx *TextureIndex) count(hit bool) {
	idx.mu.Lock()
	if hit {
		idx.hits++
	} else {
		idx.misses++
	}
	idx.mu.Unlock()
}

// Len returns the number of indexed textures.
func (idx *TextureIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Stats returns resolve statistics.
func (idx *TextureIndex) Stats() (hits, misses int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.hits, idx.misses
}

// Clear drops cached probe results and resets statistics.
func (idx *TextureIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.cache = make(map[string]*cacheEntry)
	idx.hits = 0
	idx.misses = 0
}
