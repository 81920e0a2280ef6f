// Package export writes normalized meshes as glTF 2.0 documents.
package export

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/rmesh/pkg/mesh"
)

// ErrEmptyMesh is returned when a mesh has no triangles to export.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// TextureSource is implemented by resolved textures that live on disk.
type TextureSource interface {
	TexturePath() string
}

// Options controls document generation.
type Options struct {
	// Name of the model. Prefixes material names and names the node.
	Name string
	// BaseDir is the directory the document will be written to.
	// Image URIs are made relative to it.
	BaseDir string
}

var upNormal = mgl32.Vec3{0, 0, 1}

type builder struct {
	doc     *gltf.Document
	opts    Options
	images  map[string]uint32 // texture path -> texture index
	sampler *uint32
}

// GLTF converts a mesh into a glTF document with one primitive per non-empty
// polygon group. Corners are expanded into per-vertex attribute streams.
func GLTF(m *mesh.Mesh, opts Options) (*gltf.Document, error) {
	if m.TriangleCount() == 0 {
		return nil, ErrEmptyMesh
	}

	b := &builder{
		doc:    gltf.NewDocument(),
		opts:   opts,
		images: make(map[string]uint32),
	}

	materials := make([]uint32, len(m.Materials))
	for i := range m.Materials {
		idx, err := b.material(&m.Materials[i])
		if err != nil {
			return nil, err
		}
		materials[i] = idx
	}

	gm := &gltf.Mesh{Name: opts.Name}
	for _, g := range m.Groups {
		if len(g.Triangles) == 0 {
			continue
		}
		prim := b.primitive(m, g)
		if g.Material >= 0 && g.Material < len(materials) {
			prim.Material = gltf.Index(materials[g.Material])
		}
		gm.Primitives = append(gm.Primitives, prim)
	}

	b.doc.Meshes = append(b.doc.Meshes, gm)
	meshIndex := uint32(len(b.doc.Meshes) - 1)

	b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, uint32(len(b.doc.Nodes)))
	b.doc.Nodes = append(b.doc.Nodes, &gltf.Node{
		Name: opts.Name,
		Mesh: gltf.Index(meshIndex),
	})

	return b.doc, nil
}

func (b *builder) primitive(m *mesh.Mesh, g mesh.PolygonGroup) *gltf.Primitive {
	n := len(g.Triangles) * 3
	positions := make([][3]float32, 0, n)
	normals := make([][3]float32, 0, n)
	uvs := make([][2]float32, 0, n)
	colors := make([][4]uint8, 0, n)
	indices := make([]uint32, 0, n)

	for _, tri := range g.Triangles {
		for _, c := range tri.Corners {
			normal := c.Normal
			if normal.LenSqr() == 0 {
				normal = upNormal
			}
			positions = append(positions, m.Positions[c.Vertex])
			normals = append(normals, normal)
			uvs = append(uvs, c.UV)
			colors = append(colors, m.Colors[c.Vertex])
			indices = append(indices, uint32(len(indices)))
		}
	}

	return &gltf.Primitive{
		Mode:    gltf.PrimitiveTriangles,
		Indices: gltf.Index(modeler.WriteIndices(b.doc, indices)),
		Attributes: map[string]uint32{
			"POSITION":   modeler.WritePosition(b.doc, positions),
			"NORMAL":     modeler.WriteNormal(b.doc, normals),
			"TEXCOORD_0": modeler.WriteTextureCoord(b.doc, uvs),
			"COLOR_0":    modeler.WriteColor(b.doc, colors),
		},
	}
}

func (b *builder) material(mat *mesh.Material) (uint32, error) {
	name := mat.Name
	if b.opts.Name != "" {
		name = b.opts.Name + "_" + mat.Name
	}

	gm := &gltf.Material{
		Name:                 name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{MetallicFactor: gltf.Float(0)},
	}
	if mat.Collision {
		gm.Extras = map[string]any{"collision": true}
	}

	if src, ok := mat.BaseColor.(TextureSource); ok {
		tex, err := b.texture(src.TexturePath())
		if err != nil {
			return 0, err
		}
		gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: tex}
	}
	if src, ok := mat.Normal.(TextureSource); ok && mat.UseNormal {
		tex, err := b.texture(src.TexturePath())
		if err != nil {
			return 0, err
		}
		gm.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(tex)}
	}

	b.doc.Materials = append(b.doc.Materials, gm)
	return uint32(len(b.doc.Materials) - 1), nil
}

// texture returns the glTF texture for an image file, adding it on first use.
func (b *builder) texture(path string) (uint32, error) {
	if idx, ok := b.images[path]; ok {
		return idx, nil
	}

	uri, err := b.imageURI(path)
	if err != nil {
		return 0, err
	}

	if b.sampler == nil {
		b.doc.Samplers = append(b.doc.Samplers, &gltf.Sampler{
			MagFilter: gltf.MagLinear,
			MinFilter: gltf.MinLinearMipMapLinear,
			WrapS:     gltf.WrapRepeat,
			WrapT:     gltf.WrapRepeat,
		})
		b.sampler = gltf.Index(uint32(len(b.doc.Samplers) - 1))
	}

	base := filepath.Base(path)
	b.doc.Images = append(b.doc.Images, &gltf.Image{
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		URI:  uri,
	})
	b.doc.Textures = append(b.doc.Textures, &gltf.Texture{
		Sampler: b.sampler,
		Source:  gltf.Index(uint32(len(b.doc.Images) - 1)),
	})

	idx := uint32(len(b.doc.Textures) - 1)
	b.images[path] = idx
	return idx, nil
}

func (b *builder) imageURI(path string) (string, error) {
	target := path
	if b.opts.BaseDir != "" {
		absBase, err := filepath.Abs(b.opts.BaseDir)
		if err != nil {
			return "", fmt.Errorf("resolving output dir: %w", err)
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolving texture path: %w", err)
		}
		if rel, err := filepath.Rel(absBase, absPath); err == nil {
			target = rel
		} else {
			target = absPath
		}
	}
	u := url.URL{Path: filepath.ToSlash(target)}
	return u.String(), nil
}

// Write saves doc to path. A ".glb" extension selects the binary container;
// anything else writes JSON with embedded buffers.
func Write(doc *gltf.Document, path string) (err error) {
	binary := strings.EqualFold(filepath.Ext(path), ".glb")
	if !binary {
		for _, buf := range doc.Buffers {
			if buf.URI == "" {
				buf.EmbeddedResource()
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	enc := gltf.NewEncoder(f)
	enc.AsBinary = binary
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
