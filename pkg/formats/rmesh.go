// Package formats provides parsers for RMesh room geometry files.
// RMesh (room mesh) format parser for level geometry.
package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rmesh/pkg/encoding"
)

// RMesh format errors.
var (
	ErrInvalidRMeshHeader = errors.New("invalid RMesh header: expected 'RoomMesh' or 'RoomMesh.HasTriggerBox'")
	ErrTruncatedRMeshData = errors.New("truncated RMesh data")
	ErrInvalidRMeshCount  = errors.New("invalid RMesh count")
	ErrInvalidRoomScale   = errors.New("invalid room scale: must be positive")
)

// Recognized header strings.
const (
	RMeshHeader           = "RoomMesh"
	RMeshHeaderTriggerBox = "RoomMesh.HasTriggerBox"
)

// Material name prefixes, followed by the zero-based surface index within its block.
const (
	DrawnMaterialPrefix     = "drawnmesh"
	CollisionMaterialPrefix = "collisionmesh"
)

// texturesPerSurface is the number of texture slots stored for each drawn surface.
// Slot 0 is base color, slot 1 is the normal map.
const texturesPerSurface = 2

// Record sizes in bytes, used to cap preallocation against the remaining stream.
const (
	drawnVertexSize     = 12 + 8 + 8 + 3
	collisionVertexSize = 12
	triangleSize        = 12
)

// lightmapSuffixes mark baked-lighting texture variants.
var lightmapSuffixes = []string{"_lm1", "_lm2", "_lm3", "_lm4", "_lm5", "_lm6", "_lm7"}

// RMeshOptions controls decoding.
// A zero RoomScale means unscaled; negative and NaN scales are rejected.
type RMeshOptions struct {
	RoomScale        float32 // Uniform scale applied to every position (0 = 1)
	IncludeCollision bool    // Parse the collision block after the drawn surfaces
}

// DefaultRMeshOptions returns unscaled decoding with collision enabled.
func DefaultRMeshOptions() RMeshOptions {
	return RMeshOptions{
		RoomScale:        1.0,
		IncludeCollision: true,
	}
}

// RMeshVertex is a decoded vertex in the target axis convention.
type RMeshVertex struct {
	Position mgl32.Vec3 // Converted and scaled position
	UV       mgl32.Vec2 // Texture coordinates (zero for collision)
	Normal   mgl32.Vec3 // Not stored in the file; defaults to up
	Color    [4]uint8   // RGBA, alpha always 255
}

// RMeshTriangle is a triangle with global vertex and material indices.
type RMeshTriangle struct {
	Indices  [3]int        // Global vertex indices in storage order
	Material int           // Global material index
	Normal   mgl32.Vec3    // Flat face normal
	UVs      [3]mgl32.Vec2 // UVs copied from the referenced vertices
	Invalid  bool          // An index was out of range when the triangle was read
}

// RMeshMaterial names a surface and lists its texture paths.
type RMeshMaterial struct {
	Name      string   // drawnmesh<N> or collisionmesh<N>
	Textures  []string // Base color first, then normal map; lightmaps excluded
	Collision bool     // True for collision surfaces
}

// RMeshSurface records the ranges one surface occupies in the flat arrays.
type RMeshSurface struct {
	Material      int // Index into RMesh.Materials
	FirstVertex   int // Global index of the surface's local vertex 0
	VertexCount   int
	FirstTriangle int
	TriangleCount int
}

// RMesh represents a parsed RMesh file.
type RMesh struct {
	Header        string  // RMeshHeader or RMeshHeaderTriggerBox
	HasTriggerBox bool    // Header variant
	RoomScale     float32 // Scale applied during decoding

	Vertices  []RMeshVertex
	Triangles []RMeshTriangle
	Materials []RMeshMaterial

	Surfaces          []RMeshSurface // Drawn surfaces in stream order
	CollisionSurfaces []RMeshSurface // Empty when collision was not decoded
}

// ParseRMesh parses RMesh data from a byte slice.
func ParseRMesh(data []byte, opts RMeshOptions) (*RMesh, error) {
	scale := opts.RoomScale
	if scale < 0 || scale != scale {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRoomScale, scale)
	}
	if scale == 0 {
		scale = 1.0
	}

	r := &rmeshReader{data: data}

	header, err := r.string("header")
	if err != nil {
		return nil, err
	}
	if header != RMeshHeader && header != RMeshHeaderTriggerBox {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidRMeshHeader, header)
	}

	rmesh := &RMesh{
		Header:        header,
		HasTriggerBox: header == RMeshHeaderTriggerBox,
		RoomScale:     scale,
	}

	surfaceCount, err := r.count("surface count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < surfaceCount; i++ {
		if err := rmesh.parseDrawnSurface(r, i); err != nil {
			return nil, fmt.Errorf("parsing surface %d: %w", i, err)
		}
	}

	// The collision block is left unread entirely when disabled.
	if !opts.IncludeCollision {
		return rmesh, nil
	}

	collisionCount, err := r.count("collision surface count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < collisionCount; i++ {
		if err := rmesh.parseCollisionSurface(r, i); err != nil {
			return nil, fmt.Errorf("parsing collision surface %d: %w", i, err)
		}
	}

	return rmesh, nil
}

// parseDrawnSurface parses texture slots, vertices and triangles of one drawn surface.
func (m *RMesh) parseDrawnSurface(r *rmeshReader, index int) error {
	material := RMeshMaterial{Name: fmt.Sprintf("%s%d", DrawnMaterialPrefix, index)}

	for slot := 0; slot < texturesPerSurface; slot++ {
		name, err := readTextureSlot(r)
		if err != nil {
			return fmt.Errorf("texture slot %d: %w", slot, err)
		}
		// Filtered names still consumed their bytes above.
		if name == "" || IsLightmapTexture(name) {
			continue
		}
		material.Textures = append(material.Textures, name)
	}

	surface := RMeshSurface{
		Material:    len(m.Materials),
		FirstVertex: len(m.Vertices),
	}
	m.Materials = append(m.Materials, material)

	vertexCount, err := r.count("vertex count")
	if err != nil {
		return err
	}
	m.growVertices(vertexCount, r.remaining()/drawnVertexSize)
	for j := 0; j < vertexCount; j++ {
		raw, err := r.vec3("vertex position")
		if err != nil {
			return err
		}
		uv, err := r.vec2("vertex uv")
		if err != nil {
			return err
		}
		// Two floats of unidentified per-vertex data.
		if err := r.skip(8, "vertex extra data"); err != nil {
			return err
		}
		var rgb [3]uint8
		for c := range rgb {
			if rgb[c], err = r.uint8("vertex color"); err != nil {
				return err
			}
		}

		m.Vertices = append(m.Vertices, RMeshVertex{
			Position: renderPosition(raw, m.RoomScale),
			UV:       uv,
			Normal:   mgl32.Vec3{0, 0, 1},
			Color:    [4]uint8{rgb[0], rgb[1], rgb[2], 255},
		})
	}
	surface.VertexCount = vertexCount

	surface.FirstTriangle = len(m.Triangles)
	triangleCount, err := m.parseTriangles(r, surface, renderFaceNormal)
	if err != nil {
		return err
	}
	surface.TriangleCount = triangleCount

	m.Surfaces = append(m.Surfaces, surface)
	return nil
}

// parseCollisionSurface parses one collision surface. Collision surfaces carry
// no texture slots and store positions only.
func (m *RMesh) parseCollisionSurface(r *rmeshReader, index int) error {
	surface := RMeshSurface{
		Material:    len(m.Materials),
		FirstVertex: len(m.Vertices),
	}
	m.Materials = append(m.Materials, RMeshMaterial{
		Name:      fmt.Sprintf("%s%d", CollisionMaterialPrefix, index),
		Collision: true,
	})

	vertexCount, err := r.count("collision vertex count")
	if err != nil {
		return err
	}
	m.growVertices(vertexCount, r.remaining()/collisionVertexSize)
	for j := 0; j < vertexCount; j++ {
		raw, err := r.vec3("collision vertex position")
		if err != nil {
			return err
		}
		m.Vertices = append(m.Vertices, RMeshVertex{
			Position: collisionPosition(raw, m.RoomScale),
			Normal:   mgl32.Vec3{0, 0, 1},
			Color:    [4]uint8{255, 255, 255, 255},
		})
	}
	surface.VertexCount = vertexCount

	surface.FirstTriangle = len(m.Triangles)
	triangleCount, err := m.parseTriangles(r, surface, collisionFaceNormal)
	if err != nil {
		return err
	}
	surface.TriangleCount = triangleCount

	m.CollisionSurfaces = append(m.CollisionSurfaces, surface)
	return nil
}

// parseTriangles reads a triangle count and that many index triples, offsetting
// local indices by the surface's first vertex.
func (m *RMesh) parseTriangles(r *rmeshReader, surface RMeshSurface, faceNormal func(v0, v1, v2 mgl32.Vec3) mgl32.Vec3) (int, error) {
	triangleCount, err := r.count("triangle count")
	if err != nil {
		return 0, err
	}
	m.growTriangles(triangleCount, r.remaining()/triangleSize)

	for j := 0; j < triangleCount; j++ {
		tri := RMeshTriangle{Material: surface.Material}
		for k := range tri.Indices {
			local, err := r.int32("triangle index")
			if err != nil {
				return 0, err
			}
			tri.Indices[k] = surface.FirstVertex + int(local)
		}

		// Indices are checked against the vertices read so far, so a reference
		// into a later surface is invalid too. The mesh builder drops these.
		tri.Invalid = !m.validIndices(tri.Indices)
		if !tri.Invalid {
			v0 := &m.Vertices[tri.Indices[0]]
			v1 := &m.Vertices[tri.Indices[1]]
			v2 := &m.Vertices[tri.Indices[2]]
			tri.Normal = faceNormal(v0.Position, v1.Position, v2.Position)
			tri.UVs = [3]mgl32.Vec2{v0.UV, v1.UV, v2.UV}
		}

		m.Triangles = append(m.Triangles, tri)
	}
	return triangleCount, nil
}

func (m *RMesh) validIndices(indices [3]int) bool {
	for _, idx := range indices {
		if idx < 0 || idx >= len(m.Vertices) {
			return false
		}
	}
	return true
}

// growVertices reserves room for n vertices, never more than the stream can hold.
func (m *RMesh) growVertices(n, limit int) {
	n = min(n, limit)
	if free := cap(m.Vertices) - len(m.Vertices); n > free {
		grown := make([]RMeshVertex, len(m.Vertices), len(m.Vertices)+n)
		copy(grown, m.Vertices)
		m.Vertices = grown
	}
}

func (m *RMesh) growTriangles(n, limit int) {
	n = min(n, limit)
	if free := cap(m.Triangles) - len(m.Triangles); n > free {
		grown := make([]RMeshTriangle, len(m.Triangles), len(m.Triangles)+n)
		copy(grown, m.Triangles)
		m.Triangles = grown
	}
}

// readTextureSlot reads a blend type and, when non-zero, a texture path.
func readTextureSlot(r *rmeshReader) (string, error) {
	blendType, err := r.uint8("texture blend type")
	if err != nil {
		return "", err
	}
	if blendType == 0 {
		return "", nil
	}
	return r.string("texture path")
}

// IsLightmapTexture reports whether a texture path names a baked lightmap,
// i.e. its base filename contains one of "_lm1".."_lm7" (case-insensitive).
func IsLightmapTexture(path string) bool {
	base := strings.ToLower(encoding.BaseFilename(path))
	for _, suffix := range lightmapSuffixes {
		if strings.Contains(base, suffix) {
			return true
		}
	}
	return false
}

// renderPosition converts a drawn-surface position: (x, y, z) -> (-x, z, y) * scale.
func renderPosition(raw mgl32.Vec3, scale float32) mgl32.Vec3 {
	return mgl32.Vec3{-raw[0], raw[2], raw[1]}.Mul(scale)
}

// collisionPosition converts a collision position: (x, y, z) -> (x, y, -z) * scale.
func collisionPosition(raw mgl32.Vec3, scale float32) mgl32.Vec3 {
	return mgl32.Vec3{raw[0], raw[1], -raw[2]}.Mul(scale)
}

// renderFaceNormal returns normalize((v1-v0) x (v2-v0)).
func renderFaceNormal(v0, v1, v2 mgl32.Vec3) mgl32.Vec3 {
	return safeNormal(v1.Sub(v0).Cross(v2.Sub(v0)))
}

// collisionFaceNormal swaps the Y and Z components of the raw cross product
// before normalizing, matching the collision axis convention.
func collisionFaceNormal(v0, v1, v2 mgl32.Vec3) mgl32.Vec3 {
	c := v1.Sub(v0).Cross(v2.Sub(v0))
	return safeNormal(mgl32.Vec3{c[0], c[2], c[1]})
}

// safeNormal normalizes v, returning the zero vector for degenerate input.
func safeNormal(v mgl32.Vec3) mgl32.Vec3 {
	const tolerance = 1e-8
	lenSqr := v.LenSqr()
	if lenSqr == 1 {
		return v
	}
	if lenSqr < tolerance {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / v.Len())
}

// ParseRMeshFile parses an RMesh file from disk.
func ParseRMeshFile(path string, opts RMeshOptions) (*RMesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RMesh file: %w", err)
	}
	return ParseRMesh(data, opts)
}

// IsRMeshFile reports whether path has the .rmesh extension (any case).
func IsRMeshFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".rmesh")
}

// GetTotalVertexCount returns the number of vertices across all surfaces.
func (m *RMesh) GetTotalVertexCount() int {
	return len(m.Vertices)
}

// GetTotalTriangleCount returns the number of triangles across all surfaces.
func (m *RMesh) GetTotalTriangleCount() int {
	return len(m.Triangles)
}

// GetMaterialByName returns a material by its name, or nil if not found.
func (m *RMesh) GetMaterialByName(name string) *RMeshMaterial {
	for i := range m.Materials {
		if m.Materials[i].Name == name {
			return &m.Materials[i]
		}
	}
	return nil
}

// GetBounds returns the axis-aligned bounds of all vertex positions.
func (m *RMesh) GetBounds() (min, max mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}

	min = m.Vertices[0].Position
	max = m.Vertices[0].Position

	for _, v := range m.Vertices {
		for i := 0; i < 3; i++ {
			if v.Position[i] < min[i] {
				min[i] = v.Position[i]
			}
			if v.Position[i] > max[i] {
				max[i] = v.Position[i]
			}
		}
	}

	return min, max
}

// HasCollision returns true if a collision block was decoded.
func (m *RMesh) HasCollision() bool {
	return len(m.CollisionSurfaces) > 0
}
