// scenegen writes a random stress scene YAML for the scenecore loop.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"

	"github.com/l1jgo/scenecore/internal/data"
	"gopkg.in/yaml.v3"
)

const (
	worldHalf   = 500 // entities are scattered in [-worldHalf, worldHalf]^3
	movingShare = 10  // one entity in movingShare gets a motion script
)

var scripts = []string{"orbit", "bob"}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: scenegen <count> <output.yaml> [seed]")
		os.Exit(1)
	}
	count, err := strconv.Atoi(os.Args[1])
	if err != nil || count < 1 {
		fmt.Fprintf(os.Stderr, "invalid count %q\n", os.Args[1])
		os.Exit(1)
	}
	seed := int64(1)
	if len(os.Args) > 3 {
		if seed, err = strconv.ParseInt(os.Args[3], 10, 64); err != nil {
			fmt.Fprintf(os.Stderr, "invalid seed %q\n", os.Args[3])
			os.Exit(1)
		}
	}

	scene := generate(count, rand.New(rand.NewSource(seed)))

	out, err := os.Create(os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer out.Close()

	fmt.Fprintf(out, "# Stress scene generated by scenegen (%d entities, seed %d)\n", count, seed)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(scene); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d entities to %s\n", count, os.Args[2])
}

func generate(count int, rng *rand.Rand) *data.Scene {
	coord := func() float32 { return (rng.Float32()*2 - 1) * worldHalf }
	size := func() float32 { return 0.5 + rng.Float32()*4 }

	entities := make([]data.EntityEntry, 0, count)
	for i := 0; i < count; i++ {
		half := data.Vec3{size(), size(), size()}
		e := data.EntityEntry{
			Name:     fmt.Sprintf("e%06d", i),
			Position: data.Vec3{coord(), coord(), coord()},
			Bounds:   data.BoundsEntry{HalfExtent: &half},
		}
		if rng.Intn(movingShare) == 0 {
			e.Motion = &data.MotionEntry{
				Script: scripts[rng.Intn(len(scripts))],
				Phase:  rng.Float32() * 6.28,
			}
		}
		entities = append(entities, e)
	}

	// Sort by x so neighbouring entries are spatially close in the file.
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Position[0] < entities[j].Position[0]
	})

	return &data.Scene{
		Entities: entities,
		Cameras: []data.CameraEntry{{
			Name:     "main",
			Position: data.Vec3{0, 0, worldHalf * 1.5},
			FovY:     60,
			Aspect:   16.0 / 9.0,
			Near:     0.1,
			Far:      worldHalf * 4,
		}},
	}
}
