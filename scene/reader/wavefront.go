package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jasmouth/nimbus/log"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/types"
)

var logger = log.New("reader")

// wavefront parser state. OBJ faces index positions, uvs and normals
// independently; mesh triangles share one index per corner, so each
// distinct (v, vt, vn) triple is expanded into its own mesh vertex.
type wavefrontReader struct {
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	mesh      *scene.Mesh
	indices   []int32
	cornerMap map[[3]int32]int32
}

// ReadOBJ parses a Wavefront OBJ resource into triangle primitives
// sharing mat. Material library statements are ignored.
func ReadOBJ(res *Resource, mat scene.Material) ([]scene.Primitive, error) {
	logger.Noticef("parsing mesh from %s", res.Path())
	start := time.Now()

	r := &wavefrontReader{
		mesh:      &scene.Mesh{Mat: mat},
		cornerMap: make(map[[3]int32]int32),
	}
	if err := r.parse(res); err != nil {
		return nil, err
	}

	prims := r.mesh.Triangles(r.indices)
	logger.Noticef("parsed %d triangles from %s in %d ms",
		len(prims), res.Path(), time.Since(start).Nanoseconds()/1e6)
	return prims, nil
}

func (r *wavefrontReader) parse(res *Resource) error {
	scanner := bufio.NewScanner(res)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		var err error
		switch fields[0] {
		case "v":
			err = r.parseVertex(fields[1:])
		case "vn":
			err = r.parseNormal(fields[1:])
		case "vt":
			err = r.parseUV(fields[1:])
		case "f":
			err = r.parseFace(fields[1:])
		default:
			// Grouping and material statements are not used.
		}
		if err != nil {
			return fmt.Errorf("reader: %s:%d: %v", res.Path(), lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reader: %s: %v", res.Path(), err)
	}
	return nil
}

func (r *wavefrontReader) parseVertex(fields []string) error {
	v, err := parseFloats(fields, 3, "v")
	if err != nil {
		return err
	}
	r.vertexList = append(r.vertexList, types.XYZ(v[0], v[1], v[2]))
	return nil
}

func (r *wavefrontReader) parseNormal(fields []string) error {
	v, err := parseFloats(fields, 3, "vn")
	if err != nil {
		return err
	}
	r.normalList = append(r.normalList, types.XYZ(v[0], v[1], v[2]).Normalize())
	return nil
}

func (r *wavefrontReader) parseUV(fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("unsupported syntax for \"vt\"; expected at least 2 arguments; got %d", len(fields))
	}
	v, err := parseFloats(fields[:2], 2, "vt")
	if err != nil {
		return err
	}
	r.uvList = append(r.uvList, types.XY(v[0], v[1]))
	return nil
}

// parseFace triangulates convex polygon faces as a fan around the
// first corner.
func (r *wavefrontReader) parseFace(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("unsupported syntax for \"f\"; expected at least 3 arguments; got %d", len(fields))
	}

	corners := make([]int32, len(fields))
	for i, field := range fields {
		corner, err := r.resolveCorner(field)
		if err != nil {
			return err
		}
		corners[i] = corner
	}

	for i := 1; i+1 < len(corners); i++ {
		r.indices = append(r.indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

// resolveCorner maps a face corner spec (v, v/vt, v//vn or v/vt/vn,
// with 1-based or negative relative indices) to a mesh vertex index.
func (r *wavefrontReader) resolveCorner(field string) (int32, error) {
	parts := strings.Split(field, "/")
	if len(parts) > 3 {
		return 0, fmt.Errorf("unsupported face corner syntax %q", field)
	}

	key := [3]int32{-1, -1, -1}
	lists := [3]int{len(r.vertexList), len(r.uvList), len(r.normalList)}
	for i, part := range parts {
		if part == "" {
			continue
		}
		index, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid face index %q", part)
		}
		if index < 0 {
			// Negative indices are relative to the current list end.
			index += lists[i]
		} else {
			index--
		}
		if index < 0 || index >= lists[i] {
			return 0, fmt.Errorf("face index %q out of bounds", part)
		}
		key[i] = int32(index)
	}
	if key[0] == -1 {
		return 0, fmt.Errorf("face corner %q is missing a vertex index", field)
	}

	if corner, exists := r.cornerMap[key]; exists {
		return corner, nil
	}

	corner := int32(len(r.mesh.Vertices))
	r.mesh.Vertices = append(r.mesh.Vertices, r.vertexList[key[0]])
	if key[1] != -1 {
		r.padUVs(corner)
		r.mesh.UVs = append(r.mesh.UVs, r.uvList[key[1]])
	}
	if key[2] != -1 {
		r.padNormals(corner)
		r.mesh.Normals = append(r.mesh.Normals, r.normalList[key[2]])
	}
	r.cornerMap[key] = corner
	return corner, nil
}

// The mesh expects attribute lists parallel to the vertex list;
// corners without attributes leave zero-value gaps.
func (r *wavefrontReader) padUVs(upto int32) {
	for int32(len(r.mesh.UVs)) < upto {
		r.mesh.UVs = append(r.mesh.UVs, types.Vec2{})
	}
}

func (r *wavefrontReader) padNormals(upto int32) {
	for int32(len(r.mesh.Normals)) < upto {
		r.mesh.Normals = append(r.mesh.Normals, types.Vec3{})
	}
}

func parseFloats(fields []string, expected int, keyword string) ([]float32, error) {
	if len(fields) < expected {
		return nil, fmt.Errorf("unsupported syntax for %q; expected %d arguments; got %d", keyword, expected, len(fields))
	}
	out := make([]float32, expected)
	for i := 0; i < expected; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %q", fields[i], keyword)
		}
		out[i] = float32(v)
	}
	return out, nil
}
