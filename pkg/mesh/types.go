// Package mesh builds renderer-agnostic polygon groups from decoded RMesh data.
package mesh

import "github.com/go-gl/mathgl/mgl32"

// Texture slot positions in a material's filtered texture list.
const (
	SlotBaseColor = 0
	SlotNormal    = 1
)

// Resource is an opaque handle returned by a Resolver.
type Resource = any

// Resolver looks up external resources (textures) by base filename.
type Resolver interface {
	Resolve(name string) (Resource, bool)
}

// NopResolver resolves nothing.
type NopResolver struct{}

// Resolve always reports a miss.
func (NopResolver) Resolve(string) (Resource, bool) {
	return nil, false
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (Resource, bool)

// Resolve calls f(name).
func (f ResolverFunc) Resolve(name string) (Resource, bool) {
	return f(name)
}

// VertexInstance is one corner of a triangle.
type VertexInstance struct {
	Vertex int        // Index into Mesh.Positions
	UV     mgl32.Vec2 // Per-corner texture coordinate
	Normal mgl32.Vec3 // Flat face normal
}

// Triangle is a self-contained renderable triangle.
// Corners are in target winding order (v0, v2, v1).
type Triangle struct {
	Corners [3]VertexInstance
	Normal  mgl32.Vec3
}

// PolygonGroup holds the triangles of one material.
type PolygonGroup struct {
	Material  int // Index into Mesh.Materials
	Triangles []Triangle
}

// Material is a named material with resolved texture bindings.
type Material struct {
	Name      string
	Textures  []string // Texture paths as stored in the file
	BaseColor Resource // nil when unresolved
	Normal    Resource // nil when unresolved
	UseNormal bool     // Normal is bound
	Collision bool
}

// Mesh is the normalized output handed to a mesh-building consumer.
type Mesh struct {
	Positions []mgl32.Vec3
	Colors    [][4]uint8
	Groups    []PolygonGroup // One per material, same order as Materials
	Materials []Material
	Dropped   int // Triangles skipped for out-of-range indices
}

// TriangleCount returns the number of triangles across all groups.
func (m *Mesh) TriangleCount() int {
	total := 0
	for _, g := range m.Groups {
		total += len(g.Triangles)
	}
	return total
}

// Indices returns the flattened corner vertex indices of a group.
func (m *Mesh) Indices(group int) []uint32 {
	if group < 0 || group >= len(m.Groups) {
		return nil
	}
	tris := m.Groups[group].Triangles
	indices := make([]uint32, 0, len(tris)*3)
	for _, tri := range tris {
		for _, c := range tri.Corners {
			indices = append(indices, uint32(c.Vertex))
		}
	}
	return indices
}
