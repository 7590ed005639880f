package scene

import "github.com/jasmouth/nimbus/types"

// Mesh holds the shared vertex pool for a set of triangles. Triangles
// reference vertices by index so large meshes are not duplicated per
// primitive.
type Mesh struct {
	Vertices []types.Vec3
	Normals  []types.Vec3 // optional, parallel to Vertices
	UVs      []types.Vec2 // optional, parallel to Vertices
	Mat      Material
}

// Triangles expands the index list (v0, v1, v2 per face) into mesh
// triangle primitives.
func (m *Mesh) Triangles(indices []int32) []Primitive {
	prims := make([]Primitive, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		prims = append(prims, &MeshTriangle{
			mesh:    m,
			indices: [3]int32{indices[i], indices[i+1], indices[i+2]},
		})
	}
	return prims
}

// MeshTriangle is a single face of a Mesh.
type MeshTriangle struct {
	mesh    *Mesh
	indices [3]int32
}

// NewTriangle creates a standalone triangle backed by a private
// three-vertex mesh.
func NewTriangle(v0, v1, v2 types.Vec3, mat Material) *MeshTriangle {
	return &MeshTriangle{
		mesh:    &Mesh{Vertices: []types.Vec3{v0, v1, v2}, Mat: mat},
		indices: [3]int32{0, 1, 2},
	}
}

func (t *MeshTriangle) vertices() (types.Vec3, types.Vec3, types.Vec3) {
	return t.mesh.Vertices[t.indices[0]],
		t.mesh.Vertices[t.indices[1]],
		t.mesh.Vertices[t.indices[2]]
}

func (t *MeshTriangle) BBox() [2]types.Vec3 {
	v0, v1, v2 := t.vertices()
	return [2]types.Vec3{
		types.MinVec3(v0, types.MinVec3(v1, v2)),
		types.MaxVec3(v0, types.MaxVec3(v1, v2)),
	}
}

func (t *MeshTriangle) Centroid() types.Vec3 {
	v0, v1, v2 := t.vertices()
	return v0.Add(v1).Add(v2).Mul(1.0 / 3.0)
}

func (t *MeshTriangle) Material() Material { return t.mesh.Mat }

// Valid rejects zero-area faces so they never reach the BVH.
func (t *MeshTriangle) Valid() bool {
	v0, v1, v2 := t.vertices()
	area2 := v1.Sub(v0).Cross(v2.Sub(v0)).Len2()
	return area2 > 1e-16
}

// Intersect implements the Moeller-Trumbore test.
func (t *MeshTriangle) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	if ray.Degenerate() {
		return HitRecord{}, false
	}

	v0, v1, v2 := t.vertices()
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)

	pvec := ray.Dir.Cross(e2)
	det := e1.Dot(pvec)
	if det > -1e-9 && det < 1e-9 {
		// Ray parallel to the triangle plane.
		return HitRecord{}, false
	}
	invDet := 1.0 / det

	tvec := ray.Origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return HitRecord{}, false
	}

	qvec := tvec.Cross(e1)
	v := ray.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return HitRecord{}, false
	}

	dist := e2.Dot(qvec) * invDet
	if dist <= tMin || dist >= tMax {
		return HitRecord{}, false
	}

	hit := HitRecord{
		T:     dist,
		Point: ray.At(dist),
		UV:    t.interpolateUV(u, v),
		Mat:   t.mesh.Mat,
	}
	hit.setNormal(ray, e1.Cross(e2).Normalize())
	if shading, ok := t.interpolateNormal(u, v); ok {
		if !hit.FrontFace {
			shading = shading.Neg()
		}
		hit.ShadingNormal = shading
	}
	return hit, true
}

func (t *MeshTriangle) interpolateNormal(u, v float32) (types.Vec3, bool) {
	if len(t.mesh.Normals) < len(t.mesh.Vertices) {
		return types.Vec3{}, false
	}
	n0 := t.mesh.Normals[t.indices[0]]
	n1 := t.mesh.Normals[t.indices[1]]
	n2 := t.mesh.Normals[t.indices[2]]
	w := 1 - u - v
	return n0.Mul(w).Add(n1.Mul(u)).Add(n2.Mul(v)).Normalize(), true
}

func (t *MeshTriangle) interpolateUV(u, v float32) types.Vec2 {
	if len(t.mesh.UVs) < len(t.mesh.Vertices) {
		return types.XY(u, v)
	}
	uv0 := t.mesh.UVs[t.indices[0]]
	uv1 := t.mesh.UVs[t.indices[1]]
	uv2 := t.mesh.UVs[t.indices[2]]
	w := 1 - u - v
	return uv0.Mul(w).Add(uv1.Mul(u)).Add(uv2.Mul(v))
}
