package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// testVertex is a raw vertex as stored in the file, before axis conversion.
type testVertex struct {
	Pos   [3]float32
	UV    [2]float32
	Color [3]uint8
}

// testSurface describes one surface for makeRMesh.
type testSurface struct {
	Textures  [2]string // "" writes blend type 0
	Vertices  []testVertex
	Triangles [][3]int32
}

// testRMesh describes a whole file for makeRMesh.
type testRMesh struct {
	Header           string
	Drawn            []testSurface
	Collision        []testSurface
	NoCollisionBlock bool
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, int32(len(s)))
	buf.WriteString(s)
}

// makeRMesh encodes a test description into RMesh bytes.
func makeRMesh(desc testRMesh) []byte {
	buf := new(bytes.Buffer)

	header := desc.Header
	if header == "" {
		header = RMeshHeader
	}
	writeString(buf, header)

	binary.Write(buf, binary.LittleEndian, int32(len(desc.Drawn)))
	for _, s := range desc.Drawn {
		for _, tex := range s.Textures {
			if tex == "" {
				buf.WriteByte(0)
				continue
			}
			buf.WriteByte(1)
			writeString(buf, tex)
		}

		binary.Write(buf, binary.LittleEndian, int32(len(s.Vertices)))
		for _, v := range s.Vertices {
			binary.Write(buf, binary.LittleEndian, v.Pos)
			binary.Write(buf, binary.LittleEndian, v.UV)
			binary.Write(buf, binary.LittleEndian, [2]float32{7, 7}) // unused floats
			buf.Write(v.Color[:])
		}

		binary.Write(buf, binary.LittleEndian, int32(len(s.Triangles)))
		for _, tri := range s.Triangles {
			binary.Write(buf, binary.LittleEndian, tri)
		}
	}

	if desc.NoCollisionBlock {
		return buf.Bytes()
	}

	binary.Write(buf, binary.LittleEndian, int32(len(desc.Collision)))
	for _, s := range desc.Collision {
		binary.Write(buf, binary.LittleEndian, int32(len(s.Vertices)))
		for _, v := range s.Vertices {
			binary.Write(buf, binary.LittleEndian, v.Pos)
		}
		binary.Write(buf, binary.LittleEndian, int32(len(s.Triangles)))
		for _, tri := range s.Triangles {
			binary.Write(buf, binary.LittleEndian, tri)
		}
	}

	return buf.Bytes()
}

func unitTriangle() testSurface {
	return testSurface{
		Textures: [2]string{"wall_diffuse.png", ""},
		Vertices: []testVertex{
			{Pos: [3]float32{0, 0, 0}, UV: [2]float32{0, 0}, Color: [3]uint8{10, 20, 30}},
			{Pos: [3]float32{1, 0, 0}, UV: [2]float32{1, 0}, Color: [3]uint8{10, 20, 30}},
			{Pos: [3]float32{0, 1, 0}, UV: [2]float32{0, 1}, Color: [3]uint8{10, 20, 30}},
		},
		Triangles: [][3]int32{{0, 1, 2}},
	}
}

func TestParseRMesh_HeaderValidation(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr error
		trigger bool
	}{
		{"room mesh", "RoomMesh", nil, false},
		{"trigger box", "RoomMesh.HasTriggerBox", nil, true},
		{"wrong case", "roommesh", ErrInvalidRMeshHeader, false},
		{"trailing null", "RoomMesh\x00", ErrInvalidRMeshHeader, false},
		{"other format", "GRSM", ErrInvalidRMeshHeader, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := makeRMesh(testRMesh{Header: tt.header})
			rmesh, err := ParseRMesh(data, DefaultRMeshOptions())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if rmesh != nil {
					t.Error("expected nil mesh on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRMesh failed: %v", err)
			}
			if rmesh.HasTriggerBox != tt.trigger {
				t.Errorf("HasTriggerBox = %v, want %v", rmesh.HasTriggerBox, tt.trigger)
			}
			if rmesh.Header != tt.header {
				t.Errorf("Header = %q, want %q", rmesh.Header, tt.header)
			}
		})
	}
}

func TestParseRMesh_Truncated(t *testing.T) {
	full := makeRMesh(testRMesh{
		Drawn:     []testSurface{unitTriangle()},
		Collision: []testSurface{unitTriangle()},
	})

	// Every strict prefix of a valid file must fail with a truncation error.
	for n := 0; n < len(full); n++ {
		_, err := ParseRMesh(full[:n], DefaultRMeshOptions())
		if !errors.Is(err, ErrTruncatedRMeshData) {
			t.Fatalf("prefix %d/%d: expected ErrTruncatedRMeshData, got %v", n, len(full), err)
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("prefix %d: expected *DecodeError, got %T", n, err)
		}
		if decodeErr.Offset > n {
			t.Errorf("prefix %d: error offset %d past end of data", n, decodeErr.Offset)
		}
		if decodeErr.Field == "" {
			t.Errorf("prefix %d: error does not name the field", n)
		}
	}

	if _, err := ParseRMesh(full, DefaultRMeshOptions()); err != nil {
		t.Fatalf("full data failed: %v", err)
	}
}

func TestParseRMesh_TruncatedField(t *testing.T) {
	data := makeRMesh(testRMesh{Drawn: []testSurface{unitTriangle()}, NoCollisionBlock: true})

	// Cut in the middle of the first triangle.
	cut := len(data) - 6
	_, err := ParseRMesh(data[:cut], RMeshOptions{RoomScale: 1})

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decodeErr.Field != "triangle index" {
		t.Errorf("Field = %q, want %q", decodeErr.Field, "triangle index")
	}
	if decodeErr.Offset != len(data)-8 {
		t.Errorf("Offset = %d, want %d", decodeErr.Offset, len(data)-8)
	}
}

func TestParseRMesh_NegativeCount(t *testing.T) {
	buf := new(bytes.Buffer)
	writeString(buf, RMeshHeader)
	binary.Write(buf, binary.LittleEndian, int32(-1))

	_, err := ParseRMesh(buf.Bytes(), DefaultRMeshOptions())
	if !errors.Is(err, ErrInvalidRMeshCount) {
		t.Fatalf("expected ErrInvalidRMeshCount, got %v", err)
	}
}

func TestParseRMesh_HugeCountDoesNotPreallocate(t *testing.T) {
	buf := new(bytes.Buffer)
	writeString(buf, RMeshHeader)
	binary.Write(buf, binary.LittleEndian, int32(1))
	buf.Write([]byte{0, 0})
	binary.Write(buf, binary.LittleEndian, int32(0x7fffffff)) // vertex count

	_, err := ParseRMesh(buf.Bytes(), DefaultRMeshOptions())
	if !errors.Is(err, ErrTruncatedRMeshData) {
		t.Fatalf("expected ErrTruncatedRMeshData, got %v", err)
	}
}

func TestParseRMesh_PositionConversion(t *testing.T) {
	const scale = float32(2.5)
	x, y, z := float32(1.5), float32(-2), float32(3.25)

	surface := testSurface{Vertices: []testVertex{{Pos: [3]float32{x, y, z}}}}
	data := makeRMesh(testRMesh{
		Drawn:     []testSurface{surface},
		Collision: []testSurface{surface},
	})

	rmesh, err := ParseRMesh(data, RMeshOptions{RoomScale: scale, IncludeCollision: true})
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}
	if len(rmesh.Vertices) != 2 {
		t.Fatalf("expected 2 vertices, got %d", len(rmesh.Vertices))
	}

	wantDrawn := mgl32.Vec3{-x * scale, z * scale, y * scale}
	if got := rmesh.Vertices[0].Position; got != wantDrawn {
		t.Errorf("drawn position = %v, want %v", got, wantDrawn)
	}

	wantCollision := mgl32.Vec3{x * scale, y * scale, -z * scale}
	if got := rmesh.Vertices[1].Position; got != wantCollision {
		t.Errorf("collision position = %v, want %v", got, wantCollision)
	}
}

func TestParseRMesh_ZeroScaleMeansUnscaled(t *testing.T) {
	data := makeRMesh(testRMesh{
		Drawn:            []testSurface{{Vertices: []testVertex{{Pos: [3]float32{1, 2, 3}}}}},
		NoCollisionBlock: true,
	})

	rmesh, err := ParseRMesh(data, RMeshOptions{})
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}
	if rmesh.RoomScale != 1 {
		t.Errorf("RoomScale = %v, want 1", rmesh.RoomScale)
	}
	if got, want := rmesh.Vertices[0].Position, (mgl32.Vec3{-1, 3, 2}); got != want {
		t.Errorf("position = %v, want %v", got, want)
	}
}

func TestParseRMesh_InvalidScale(t *testing.T) {
	data := makeRMesh(testRMesh{Drawn: []testSurface{unitTriangle()}, NoCollisionBlock: true})

	tests := []struct {
		name  string
		scale float32
	}{
		{"negative", -1},
		{"tiny negative", -0.001},
		{"nan", float32(math.NaN())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rmesh, err := ParseRMesh(data, RMeshOptions{RoomScale: tt.scale})
			if !errors.Is(err, ErrInvalidRoomScale) {
				t.Errorf("expected ErrInvalidRoomScale, got %v", err)
			}
			if rmesh != nil {
				t.Error("expected no mesh on error")
			}
		})
	}
}

func TestParseRMesh_VertexAttributes(t *testing.T) {
	data := makeRMesh(testRMesh{Drawn: []testSurface{unitTriangle()}})

	rmesh, err := ParseRMesh(data, DefaultRMeshOptions())
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}

	v := rmesh.Vertices[1]
	if v.UV != (mgl32.Vec2{1, 0}) {
		t.Errorf("UV = %v, want [1 0]", v.UV)
	}
	if v.Color != [4]uint8{10, 20, 30, 255} {
		t.Errorf("Color = %v, want [10 20 30 255]", v.Color)
	}
	if v.Normal != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("Normal = %v, want up", v.Normal)
	}
}

func TestParseRMesh_IndexRemapping(t *testing.T) {
	quad := testSurface{
		Vertices:  make([]testVertex, 4),
		Triangles: [][3]int32{{0, 1, 2}, {2, 3, 0}},
	}
	tri := testSurface{
		Vertices:  make([]testVertex, 3),
		Triangles: [][3]int32{{0, 1, 2}},
	}

	data := makeRMesh(testRMesh{
		Drawn:     []testSurface{quad, tri},
		Collision: []testSurface{tri, quad},
	})

	rmesh, err := ParseRMesh(data, DefaultRMeshOptions())
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}

	wantFirst := []int{0, 4, 7, 10}
	surfaces := append(append([]RMeshSurface{}, rmesh.Surfaces...), rmesh.CollisionSurfaces...)
	if len(surfaces) != len(wantFirst) {
		t.Fatalf("expected %d surfaces, got %d", len(wantFirst), len(surfaces))
	}
	for i, s := range surfaces {
		if s.FirstVertex != wantFirst[i] {
			t.Errorf("surface %d FirstVertex = %d, want %d", i, s.FirstVertex, wantFirst[i])
		}
		if s.Material != i {
			t.Errorf("surface %d Material = %d, want %d", i, s.Material, i)
		}
		first := rmesh.Triangles[s.FirstTriangle]
		if first.Indices[0] != wantFirst[i] {
			t.Errorf("surface %d first triangle index = %d, want %d", i, first.Indices[0], wantFirst[i])
		}
		if first.Material != i {
			t.Errorf("surface %d triangle material = %d, want %d", i, first.Material, i)
		}
	}

	if got := rmesh.Triangles[1].Indices; got != [3]int{2, 3, 0} {
		t.Errorf("second triangle = %v, want [2 3 0]", got)
	}
	if got := rmesh.GetTotalVertexCount(); got != 14 {
		t.Errorf("GetTotalVertexCount = %d, want 14", got)
	}
	if got := rmesh.GetTotalTriangleCount(); got != 6 {
		t.Errorf("GetTotalTriangleCount = %d, want 6", got)
	}
}

func TestParseRMesh_Materials(t *testing.T) {
	drawn := []testSurface{
		{Textures: [2]string{"wall_diffuse.png", "wall_lm3.png"}},
		{Textures: [2]string{`GFX\map\floor_LM1.jpg`, `GFX\map\floor_n.jpg`}},
		{Textures: [2]string{"", ""}},
		{Textures: [2]string{"a.jpg", "a_n.jpg"}},
	}

	data := makeRMesh(testRMesh{Drawn: drawn, Collision: []testSurface{{}}})
	rmesh, err := ParseRMesh(data, DefaultRMeshOptions())
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}

	want := []RMeshMaterial{
		{Name: "drawnmesh0", Textures: []string{"wall_diffuse.png"}},
		{Name: "drawnmesh1", Textures: []string{`GFX\map\floor_n.jpg`}},
		{Name: "drawnmesh2"},
		{Name: "drawnmesh3", Textures: []string{"a.jpg", "a_n.jpg"}},
		{Name: "collisionmesh0", Collision: true},
	}

	if len(rmesh.Materials) != len(want) {
		t.Fatalf("expected %d materials, got %d", len(want), len(rmesh.Materials))
	}
	for i, w := range want {
		got := rmesh.Materials[i]
		if got.Name != w.Name {
			t.Errorf("material %d name = %q, want %q", i, got.Name, w.Name)
		}
		if got.Collision != w.Collision {
			t.Errorf("material %d collision = %v, want %v", i, got.Collision, w.Collision)
		}
		if len(got.Textures) != len(w.Textures) {
			t.Errorf("material %d textures = %v, want %v", i, got.Textures, w.Textures)
			continue
		}
		for j := range w.Textures {
			if got.Textures[j] != w.Textures[j] {
				t.Errorf("material %d texture %d = %q, want %q", i, j, got.Textures[j], w.Textures[j])
			}
		}
	}

	if m := rmesh.GetMaterialByName("collisionmesh0"); m == nil || !m.Collision {
		t.Errorf("GetMaterialByName(collisionmesh0) = %v", m)
	}
	if m := rmesh.GetMaterialByName("missing"); m != nil {
		t.Errorf("GetMaterialByName(missing) = %v, want nil", m)
	}
}

func TestIsLightmapTexture(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"wall_lm3.png", true},
		{"wall_diffuse.png", false},
		{"wall_lm1", true},
		{"wall_lm7.jpg", true},
		{"wall_lm8.jpg", false},
		{"wall_lm0.jpg", false},
		{"WALL_LM2.BMP", true},
		{`GFX\map_lm1\wall.jpg`, false}, // directory is not part of the base name
		{"wall.png_lm1", false},         // extension is stripped before matching
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsLightmapTexture(tt.path); got != tt.want {
				t.Errorf("IsLightmapTexture(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseRMesh_FaceNormals(t *testing.T) {
	tests := []struct {
		name string
		pos  [3][3]float32 // raw file positions
		want mgl32.Vec3
	}{
		{
			// raw (0,0,0),(-1,0,0),(0,0,1) converts to (0,0,0),(1,0,0),(0,1,0)
			name: "unit xy plane",
			pos:  [3][3]float32{{0, 0, 0}, {-1, 0, 0}, {0, 0, 1}},
			want: mgl32.Vec3{0, 0, 1},
		},
		{
			name: "reversed winding",
			pos:  [3][3]float32{{0, 0, 0}, {0, 0, 1}, {-1, 0, 0}},
			want: mgl32.Vec3{0, 0, -1},
		},
		{
			name: "degenerate",
			pos:  [3][3]float32{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}},
			want: mgl32.Vec3{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := testSurface{Triangles: [][3]int32{{0, 1, 2}}}
			for _, p := range tt.pos {
				surface.Vertices = append(surface.Vertices, testVertex{Pos: p})
			}
			data := makeRMesh(testRMesh{Drawn: []testSurface{surface}, NoCollisionBlock: true})

			rmesh, err := ParseRMesh(data, RMeshOptions{RoomScale: 3})
			if err != nil {
				t.Fatalf("ParseRMesh failed: %v", err)
			}
			if got := rmesh.Triangles[0].Normal; !got.ApproxEqual(tt.want) {
				t.Errorf("normal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFaceNormalConventions(t *testing.T) {
	v0 := mgl32.Vec3{0, 0, 0}
	v1 := mgl32.Vec3{1, 0, 0}
	v2 := mgl32.Vec3{0, 1, 0}

	if got := renderFaceNormal(v0, v1, v2); got != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("renderFaceNormal = %v, want [0 0 1]", got)
	}

	// Cross product is (0,0,1); collision swaps Y and Z.
	if got := collisionFaceNormal(v0, v1, v2); got != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("collisionFaceNormal = %v, want [0 1 0]", got)
	}

	// Cross product (0,2,0) becomes (0,0,2) before normalizing.
	if got := collisionFaceNormal(v0, mgl32.Vec3{0, 0, 2}, mgl32.Vec3{1, 0, 0}); !got.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Errorf("collisionFaceNormal = %v, want [0 0 1]", got)
	}
}

func TestParseRMesh_CollisionTriangles(t *testing.T) {
	// Raw (0,0,0),(1,0,0),(0,1,0) stays in place for collision (z is 0).
	collision := testSurface{
		Vertices: []testVertex{
			{Pos: [3]float32{0, 0, 0}},
			{Pos: [3]float32{1, 0, 0}},
			{Pos: [3]float32{0, 1, 0}},
		},
		Triangles: [][3]int32{{0, 1, 2}},
	}
	data := makeRMesh(testRMesh{Drawn: []testSurface{unitTriangle()}, Collision: []testSurface{collision}})

	rmesh, err := ParseRMesh(data, DefaultRMeshOptions())
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}
	if !rmesh.HasCollision() {
		t.Fatal("expected collision surfaces")
	}

	tri := rmesh.Triangles[1]
	if tri.Indices != [3]int{3, 4, 5} {
		t.Errorf("indices = %v, want [3 4 5]", tri.Indices)
	}
	if tri.Material != 1 {
		t.Errorf("material = %d, want 1", tri.Material)
	}
	if tri.Normal != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("normal = %v, want [0 1 0]", tri.Normal)
	}

	v := rmesh.Vertices[4]
	if v.UV != (mgl32.Vec2{}) {
		t.Errorf("collision UV = %v, want zero", v.UV)
	}
	if v.Color != [4]uint8{255, 255, 255, 255} {
		t.Errorf("collision color = %v, want white", v.Color)
	}
}

func TestParseRMesh_TriangleUVs(t *testing.T) {
	data := makeRMesh(testRMesh{Drawn: []testSurface{unitTriangle()}, NoCollisionBlock: true})

	rmesh, err := ParseRMesh(data, RMeshOptions{RoomScale: 1})
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}

	want := [3]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}}
	if got := rmesh.Triangles[0].UVs; got != want {
		t.Errorf("UVs = %v, want %v", got, want)
	}
}

func TestParseRMesh_OutOfRangeIndexTolerated(t *testing.T) {
	surface := unitTriangle()
	surface.Triangles = [][3]int32{{0, 1, 2}, {0, 1, 9}, {-1, 0, 1}}

	data := makeRMesh(testRMesh{Drawn: []testSurface{surface}, NoCollisionBlock: true})
	rmesh, err := ParseRMesh(data, RMeshOptions{RoomScale: 1})
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}
	if len(rmesh.Triangles) != 3 {
		t.Fatalf("expected 3 triangles, got %d", len(rmesh.Triangles))
	}
	if rmesh.Triangles[0].Invalid {
		t.Error("valid triangle marked invalid")
	}
	for _, tri := range rmesh.Triangles[1:] {
		if !tri.Invalid {
			t.Errorf("triangle %v not marked invalid", tri.Indices)
		}
		if tri.Normal != (mgl32.Vec3{}) {
			t.Errorf("out-of-range triangle normal = %v, want zero", tri.Normal)
		}
	}
}

func TestParseRMesh_ForwardIndexInvalid(t *testing.T) {
	first := unitTriangle()
	first.Triangles = [][3]int32{{0, 1, 4}} // vertex 4 belongs to the next surface
	second := unitTriangle()

	data := makeRMesh(testRMesh{Drawn: []testSurface{first, second}, NoCollisionBlock: true})
	rmesh, err := ParseRMesh(data, RMeshOptions{RoomScale: 1})
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}

	if len(rmesh.Vertices) != 6 {
		t.Fatalf("expected 6 vertices, got %d", len(rmesh.Vertices))
	}
	if tri := rmesh.Triangles[0]; !tri.Invalid || tri.Indices != [3]int{0, 1, 4} {
		t.Errorf("forward triangle = %+v, want Invalid with indices [0 1 4]", tri)
	}
	if rmesh.Triangles[1].Invalid {
		t.Error("second surface triangle marked invalid")
	}
}

func TestParseRMesh_CollisionDisabled(t *testing.T) {
	valid := makeRMesh(testRMesh{Drawn: []testSurface{unitTriangle()}, NoCollisionBlock: true})

	// A collision block claiming one surface with a truncated vertex list.
	corrupt := append([]byte{}, valid...)
	corrupt = binary.LittleEndian.AppendUint32(corrupt, 1)
	corrupt = binary.LittleEndian.AppendUint32(corrupt, 50)
	corrupt = append(corrupt, 1, 2, 3)

	rmesh, err := ParseRMesh(corrupt, RMeshOptions{RoomScale: 1, IncludeCollision: false})
	if err != nil {
		t.Fatalf("collision disabled: unexpected error %v", err)
	}
	if rmesh.HasCollision() {
		t.Error("collision surfaces decoded while disabled")
	}
	if len(rmesh.Materials) != 1 {
		t.Errorf("expected 1 material, got %d", len(rmesh.Materials))
	}

	_, err = ParseRMesh(corrupt, RMeshOptions{RoomScale: 1, IncludeCollision: true})
	if !errors.Is(err, ErrTruncatedRMeshData) {
		t.Fatalf("collision enabled: expected ErrTruncatedRMeshData, got %v", err)
	}

	// The renderable block alone is also missing the collision count.
	if _, err := ParseRMesh(valid, DefaultRMeshOptions()); !errors.Is(err, ErrTruncatedRMeshData) {
		t.Errorf("missing collision count: expected ErrTruncatedRMeshData, got %v", err)
	}
}

func TestParseRMesh_EmptySurface(t *testing.T) {
	data := makeRMesh(testRMesh{
		Drawn:     []testSurface{{}, unitTriangle()},
		Collision: []testSurface{{}},
	})

	rmesh, err := ParseRMesh(data, DefaultRMeshOptions())
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}

	if len(rmesh.Materials) != 3 {
		t.Fatalf("expected 3 materials, got %d", len(rmesh.Materials))
	}
	if s := rmesh.Surfaces[0]; s.VertexCount != 0 || s.TriangleCount != 0 {
		t.Errorf("empty surface = %+v", s)
	}
	if s := rmesh.Surfaces[1]; s.FirstVertex != 0 || s.Material != 1 {
		t.Errorf("second surface = %+v, want FirstVertex 0 Material 1", s)
	}
	if got := rmesh.Triangles[0].Material; got != 1 {
		t.Errorf("triangle material = %d, want 1", got)
	}
}

func TestParseRMesh_ANSITexturePath(t *testing.T) {
	buf := new(bytes.Buffer)
	writeString(buf, RMeshHeader)
	binary.Write(buf, binary.LittleEndian, int32(1))
	buf.WriteByte(3)
	binary.Write(buf, binary.LittleEndian, int32(5))
	buf.Write([]byte{'c', 'a', 'f', 0xE9, 'x'})
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, int32(0)) // vertices
	binary.Write(buf, binary.LittleEndian, int32(0)) // triangles

	rmesh, err := ParseRMesh(buf.Bytes(), RMeshOptions{})
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}
	if got := rmesh.Materials[0].Textures; len(got) != 1 || got[0] != "caféx" {
		t.Errorf("textures = %q, want [caféx]", got)
	}
}

func TestRMesh_Helpers(t *testing.T) {
	collision := testSurface{
		Vertices:  []testVertex{{Pos: [3]float32{0, 0, 0}}, {Pos: [3]float32{1, 0, 0}}, {Pos: [3]float32{0, 1, 0}}},
		Triangles: [][3]int32{{0, 1, 2}},
	}
	data := makeRMesh(testRMesh{
		Drawn:     []testSurface{unitTriangle(), unitTriangle()},
		Collision: []testSurface{collision},
	})

	rmesh, err := ParseRMesh(data, DefaultRMeshOptions())
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}

	if got := rmesh.GetTotalVertexCount(); got != 9 {
		t.Errorf("GetTotalVertexCount = %d, want 9", got)
	}
	if got := rmesh.GetTotalTriangleCount(); got != 3 {
		t.Errorf("GetTotalTriangleCount = %d, want 3", got)
	}
	if !rmesh.HasCollision() {
		t.Error("HasCollision = false, want true")
	}

	mat := rmesh.GetMaterialByName("collisionmesh0")
	if mat == nil || !mat.Collision {
		t.Errorf("collisionmesh0 = %+v, want a collision material", mat)
	}
	if mat := rmesh.GetMaterialByName("drawnmesh1"); mat != &rmesh.Materials[1] {
		t.Error("drawnmesh1 does not point into Materials")
	}
	if mat := rmesh.GetMaterialByName("drawnmesh7"); mat != nil {
		t.Errorf("unknown material = %+v, want nil", mat)
	}

	rmesh, err = ParseRMesh(data, RMeshOptions{IncludeCollision: false})
	if err != nil {
		t.Fatalf("ParseRMesh failed: %v", err)
	}
	if rmesh.HasCollision() {
		t.Error("HasCollision = true with collision disabled")
	}
}

func TestRMesh_GetBounds(t *testing.T) {
	rmesh := &RMesh{}
	if min, max := rmesh.GetBounds(); min != (mgl32.Vec3{}) || max != (mgl32.Vec3{}) {
		t.Errorf("empty bounds = %v %v", min, max)
	}

	rmesh.Vertices = []RMeshVertex{
		{Position: mgl32.Vec3{1, -2, 3}},
		{Position: mgl32.Vec3{-4, 5, 0}},
	}
	min, max := rmesh.GetBounds()
	if min != (mgl32.Vec3{-4, -2, 0}) {
		t.Errorf("min = %v", min)
	}
	if max != (mgl32.Vec3{1, 5, 3}) {
		t.Errorf("max = %v", max)
	}
}

func TestParseRMeshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room.rmesh")
	data := makeRMesh(testRMesh{Drawn: []testSurface{unitTriangle()}})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	rmesh, err := ParseRMeshFile(path, DefaultRMeshOptions())
	if err != nil {
		t.Fatalf("ParseRMeshFile failed: %v", err)
	}
	if len(rmesh.Triangles) != 1 {
		t.Errorf("expected 1 triangle, got %d", len(rmesh.Triangles))
	}

	if _, err := ParseRMeshFile(filepath.Join(t.TempDir(), "missing.rmesh"), DefaultRMeshOptions()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsRMeshFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"room.rmesh", true},
		{"ROOM.RMESH", true},
		{"dir/room.RMesh", true},
		{"room.rmesh.bak", false},
		{"room.b3d", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsRMeshFile(tt.path); got != tt.want {
				t.Errorf("IsRMeshFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
