package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rmesh/pkg/encoding"
	"github.com/Faultbox/rmesh/pkg/formats"
)

type buildConfig struct {
	log           *zap.Logger
	skipCollision bool
}

// Option configures Build.
type Option func(*buildConfig)

// WithLogger sets the logger used for missing-resource and dropped-triangle warnings.
func WithLogger(log *zap.Logger) Option {
	return func(c *buildConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithoutCollision leaves collision materials and their triangles out of the result.
func WithoutCollision() Option {
	return func(c *buildConfig) {
		c.skipCollision = true
	}
}

// Build converts decoded RMesh data into polygon groups.
// Triangles the decoder marked Invalid, or that reference an out-of-range
// vertex or material, are dropped and counted.
func Build(src *formats.RMesh, resolver Resolver, opts ...Option) *Mesh {
	cfg := buildConfig{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if resolver == nil {
		resolver = NopResolver{}
	}

	vertexCount := len(src.Vertices)
	materialCount := len(src.Materials)

	// Collision materials always follow the drawn ones, so cutting the
	// material list keeps every remaining index stable.
	keep := materialCount
	if cfg.skipCollision {
		keep = drawnMaterialCount(src.Materials)
	}

	out := &Mesh{
		Positions: make([]mgl32.Vec3, vertexCount),
		Colors:    make([][4]uint8, vertexCount),
		Groups:    make([]PolygonGroup, keep),
		Materials: make([]Material, keep),
	}

	for i, v := range src.Vertices {
		out.Positions[i] = v.Position
		out.Colors[i] = v.Color
	}

	for i := 0; i < keep; i++ {
		out.Materials[i] = bindMaterial(src.Materials[i], resolver, cfg.log)
		out.Groups[i].Material = i
	}

	for i, tri := range src.Triangles {
		if !validTriangle(tri, vertexCount, materialCount) {
			out.Dropped++
			cfg.log.Debug("dropping triangle with out-of-range index",
				zap.Int("triangle", i),
				zap.Ints("indices", tri.Indices[:]),
				zap.Int("material", tri.Material),
			zap.Bool("invalid_at_read", tri.Invalid),
				zap.Int("vertices", vertexCount))
			continue
		}
		if tri.Material >= keep {
			continue
		}

		group := &out.Groups[tri.Material]
		group.Triangles = append(group.Triangles, flipWinding(tri))
	}

	if out.Dropped > 0 {
		cfg.log.Warn("dropped invalid triangles",
			zap.Int("dropped", out.Dropped),
			zap.Int("total", len(src.Triangles)))
	}

	return out
}

// flipWinding emits corners in (v0, v2, v1) order, each carrying the face normal.
func flipWinding(tri formats.RMeshTriangle) Triangle {
	order := [3]int{0, 2, 1}
	out := Triangle{Normal: tri.Normal}
	for corner, k := range order {
		out.Corners[corner] = VertexInstance{
			Vertex: tri.Indices[k],
			UV:     tri.UVs[k],
			Normal: tri.Normal,
		}
	}
	return out
}

func validTriangle(tri formats.RMeshTriangle, vertexCount, materialCount int) bool {
	if tri.Invalid {
		return false
	}
	if tri.Material < 0 || tri.Material >= materialCount {
		return false
	}
	for _, idx := range tri.Indices {
		if idx < 0 || idx >= vertexCount {
			return false
		}
	}
	return true
}

func drawnMaterialCount(materials []formats.RMeshMaterial) int {
	for i, m := range materials {
		if m.Collision {
			return i
		}
	}
	return len(materials)
}

// bindMaterial resolves a material's textures by base filename. Slot 0 binds
// the base color, slot 1 the normal map. Misses are logged and left unbound.
func bindMaterial(src formats.RMeshMaterial, resolver Resolver, log *zap.Logger) Material {
	mat := Material{
		Name:      src.Name,
		Textures:  append([]string(nil), src.Textures...),
		Collision: src.Collision,
	}

	for slot, path := range src.Textures {
		if path == "" {
			continue
		}
		name := encoding.BaseFilename(path)
		res, ok := resolver.Resolve(name)
		if !ok {
			log.Warn("texture not found",
				zap.String("material", mat.Name),
				zap.String("texture", name),
				zap.Int("slot", slot))
			continue
		}

		switch slot {
		case SlotBaseColor:
			mat.BaseColor = res
		case SlotNormal:
			mat.Normal = res
			mat.UseNormal = true
		}
	}

	return mat
}
