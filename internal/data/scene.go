package data

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/l1jgo/scenecore/internal/component"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/geom"
	"gopkg.in/yaml.v3"
)

// Vec3 is a YAML triple [x, y, z].
type Vec3 [3]float32

func (v Vec3) vec() mgl32.Vec3 { return mgl32.Vec3(v) }

// BoundsEntry is an entity's local box. Either min/max or half_extent
// (centered on the origin) is given.
type BoundsEntry struct {
	Min        *Vec3 `yaml:"min,omitempty"`
	Max        *Vec3 `yaml:"max,omitempty"`
	HalfExtent *Vec3 `yaml:"half_extent,omitempty"`
}

type MotionEntry struct {
	Script string  `yaml:"script"`
	Phase  float32 `yaml:"phase,omitempty"`
}

// RepeatEntry spawns Count copies of an entity, each offset by Spacing from
// the previous one.
type RepeatEntry struct {
	Count   int  `yaml:"count"`
	Spacing Vec3 `yaml:"spacing"`
}

type EntityEntry struct {
	Name     string       `yaml:"name"`
	Parent   string       `yaml:"parent,omitempty"`
	Position Vec3         `yaml:"position"`
	Rotation Vec3         `yaml:"rotation,omitempty"` // euler degrees, XYZ order
	Scale    *Vec3        `yaml:"scale,omitempty"`
	Bounds   BoundsEntry  `yaml:"bounds"`
	Motion   *MotionEntry `yaml:"motion,omitempty"`
	Repeat   *RepeatEntry `yaml:"repeat,omitempty"`
}

type CameraEntry struct {
	Name     string  `yaml:"name"`
	Position Vec3    `yaml:"position"`
	Target   Vec3    `yaml:"target"`
	Up       *Vec3   `yaml:"up,omitempty"`
	FovY     float32 `yaml:"fov"`
	Aspect   float32 `yaml:"aspect"`
	Near     float32 `yaml:"near"`
	Far      float32 `yaml:"far"`
	FarDist  float32 `yaml:"far_dist,omitempty"`
}

// Scene is a scene description file: entities and the cameras viewing them.
type Scene struct {
	Entities []EntityEntry `yaml:"entities"`
	Cameras  []CameraEntry `yaml:"cameras"`
}

// LoadScene loads a scene YAML file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(raw)
}

func ParseScene(raw []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return &s, nil
}

// Count returns how many entities Spawn creates, cameras excluded.
func (s *Scene) Count() int {
	n := 0
	for i := range s.Entities {
		n += s.Entities[i].copies()
	}
	return n
}

func (e *EntityEntry) copies() int {
	if e.Repeat == nil || e.Repeat.Count < 1 {
		return 1
	}
	return e.Repeat.Count
}

func (b BoundsEntry) aabb() (geom.AABB, error) {
	switch {
	case b.HalfExtent != nil:
		return geom.FromCenterExtent(mgl32.Vec3{}, b.HalfExtent.vec()), nil
	case b.Min != nil && b.Max != nil:
		return geom.NewAABB(b.Min.vec(), b.Max.vec()), nil
	case b.Min == nil && b.Max == nil:
		return geom.FromCenterExtent(mgl32.Vec3{}, mgl32.Vec3{0.5, 0.5, 0.5}), nil
	default:
		return geom.AABB{}, fmt.Errorf("bounds need both min and max")
	}
}

// Spawn creates the scene's entities and cameras in w and returns the named
// entities by name. Repeated entities are named name#i. Every entry is
// validated before anything is created, so an error leaves w untouched.
func (s *Scene) Spawn(w *ecs.World, store *component.Store) (map[string]ecs.EntityID, error) {
	boxes := make([]geom.AABB, len(s.Entities))
	names := make(map[string]bool, len(s.Entities))
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.Name == "" {
			return nil, fmt.Errorf("entity %d: missing name", i)
		}
		if names[e.Name] {
			return nil, fmt.Errorf("entity %s: duplicate name", e.Name)
		}
		names[e.Name] = true
		box, err := e.Bounds.aabb()
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
		if box.Empty() || !box.Finite() {
			return nil, fmt.Errorf("entity %s: degenerate bounds %s", e.Name, box)
		}
		boxes[i] = box
		if err := e.checkTransform(); err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
	}
	for i := range s.Cameras {
		if err := CheckCamera(s.Cameras[i].camera()); err != nil {
			return nil, fmt.Errorf("camera %d %s: %w", i, s.Cameras[i].Name, err)
		}
	}
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.Parent == "" {
			continue
		}
		if !names[e.Parent] || e.Parent == e.Name {
			return nil, fmt.Errorf("entity %s: unknown parent %s", e.Name, e.Parent)
		}
		if p := s.find(e.Parent); p.copies() > 1 {
			return nil, fmt.Errorf("entity %s: parent %s is repeated", e.Name, e.Parent)
		}
	}
	if err := s.checkParentCycles(); err != nil {
		return nil, err
	}

	ids := make(map[string]ecs.EntityID, s.Count())
	for i := range s.Entities {
		e := &s.Entities[i]
		for n := 0; n < e.copies(); n++ {
			name := e.Name
			pos := e.Position.vec()
			if e.copies() > 1 {
				name = fmt.Sprintf("%s#%d", e.Name, n)
				pos = pos.Add(e.Repeat.Spacing.vec().Mul(float32(n)))
			}
			id := w.CreateEntity()
			tr := component.NewTransformable(pos, boxes[i])
			tr.Rotation = mgl32.AnglesToQuat(
				mgl32.DegToRad(e.Rotation[0]),
				mgl32.DegToRad(e.Rotation[1]),
				mgl32.DegToRad(e.Rotation[2]),
				mgl32.XYZ)
			if e.Scale != nil {
				tr.Scale = e.Scale.vec()
			}
			store.Transforms.Add(id, tr)
			if e.Motion != nil {
				store.Motions.Add(id, component.Motion{
					Script: e.Motion.Script,
					Origin: pos,
					Phase:  e.Motion.Phase,
				})
			}
			ids[name] = id
		}
	}
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.Parent == "" {
			continue
		}
		parent := ids[e.Parent]
		for n := 0; n < e.copies(); n++ {
			name := e.Name
			if e.copies() > 1 {
				name = fmt.Sprintf("%s#%d", e.Name, n)
			}
			w.SetParent(ids[name], parent)
		}
	}

	for i := range s.Cameras {
		c := &s.Cameras[i]
		id := w.CreateEntity()
		store.Cameras.Add(id, c.camera())
		if c.Name != "" {
			ids[c.Name] = id
		}
	}
	return ids, nil
}

func (e *EntityEntry) checkTransform() error {
	if !finite(e.Position) {
		return fmt.Errorf("non-finite position %v", e.Position)
	}
	if !finite(e.Rotation) {
		return fmt.Errorf("non-finite rotation %v", e.Rotation)
	}
	if e.Scale != nil {
		if !finite(*e.Scale) {
			return fmt.Errorf("non-finite scale %v", *e.Scale)
		}
		if e.Scale[0] == 0 || e.Scale[1] == 0 || e.Scale[2] == 0 {
			return fmt.Errorf("zero scale")
		}
	}
	if e.copies() > 1 {
		if !finite(e.Repeat.Spacing) {
			return fmt.Errorf("non-finite repeat spacing %v", e.Repeat.Spacing)
		}
		last := e.Position.vec().Add(e.Repeat.Spacing.vec().Mul(float32(e.copies() - 1)))
		if !finite(Vec3(last)) {
			return fmt.Errorf("repeat runs past finite coordinates")
		}
	}
	return nil
}

func finite(v Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// CheckCamera reports whether cam describes a usable view: finite vectors,
// a view direction not parallel to Up, and a valid projection.
func CheckCamera(cam component.Camera) error {
	for _, v := range []mgl32.Vec3{cam.Eye, cam.Target, cam.Up} {
		if !finite(Vec3(v)) {
			return fmt.Errorf("non-finite vector %v", v)
		}
	}
	dir := cam.Target.Sub(cam.Eye)
	if dir.Len() == 0 {
		return fmt.Errorf("eye and target are both %v", cam.Eye)
	}
	if dir.Cross(cam.Up).Len() == 0 {
		return fmt.Errorf("up %v is parallel to the view direction", cam.Up)
	}
	for _, f := range []float32{cam.FovY, cam.Aspect, cam.Near, cam.Far, cam.FarDist} {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("non-finite projection parameter %v", f)
		}
	}
	switch {
	case cam.FovY <= 0 || cam.FovY >= 180:
		return fmt.Errorf("fov %v outside (0, 180)", cam.FovY)
	case cam.Aspect <= 0:
		return fmt.Errorf("aspect %v must be > 0", cam.Aspect)
	case cam.Near <= 0 || cam.Far <= cam.Near:
		return fmt.Errorf("near %v / far %v invalid", cam.Near, cam.Far)
	case cam.FarDist < 0:
		return fmt.Errorf("far_dist %v must be >= 0", cam.FarDist)
	}
	return nil
}

func (s *Scene) find(name string) *EntityEntry {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i]
		}
	}
	return nil
}

func (s *Scene) checkParentCycles() error {
	for i := range s.Entities {
		seen := map[string]bool{}
		for e := &s.Entities[i]; e != nil && e.Parent != ""; e = s.find(e.Parent) {
			if seen[e.Name] {
				return fmt.Errorf("entity %s: parent cycle", s.Entities[i].Name)
			}
			seen[e.Name] = true
		}
	}
	return nil
}

func (c *CameraEntry) camera() component.Camera {
	up := mgl32.Vec3{0, 1, 0}
	if c.Up != nil {
		up = c.Up.vec()
	}
	cam := component.Camera{
		Name:    c.Name,
		Eye:     c.Position.vec(),
		Target:  c.Target.vec(),
		Up:      up,
		FovY:    c.FovY,
		Aspect:  c.Aspect,
		Near:    c.Near,
		Far:     c.Far,
		FarDist: c.FarDist,
	}
	if cam.FovY == 0 {
		cam.FovY = 60
	}
	if cam.Aspect == 0 {
		cam.Aspect = 16.0 / 9.0
	}
	if cam.Near == 0 {
		cam.Near = 0.1
	}
	if cam.Far == 0 {
		cam.Far = 1000
	}
	return cam
}
