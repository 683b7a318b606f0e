package main

import (
	"math/rand"
	"testing"

	"github.com/l1jgo/scenecore/internal/component"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/data"
	"gopkg.in/yaml.v3"
)

func TestGeneratedSceneRoundTripsAndSpawns(t *testing.T) {
	scene := generate(200, rand.New(rand.NewSource(7)))
	raw, err := yaml.Marshal(scene)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	parsed, err := data.ParseScene(raw)
	if err != nil {
		t.Fatalf("ParseScene: %v", err)
	}
	if parsed.Count() != 200 {
		t.Fatalf("Count = %d, want 200", parsed.Count())
	}

	w := ecs.NewWorld()
	store := component.NewStore(w)
	if _, err := parsed.Spawn(w, store); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if store.Transforms.Len() != 200 || store.Cameras.Len() != 1 {
		t.Fatalf("transforms %d cameras %d", store.Transforms.Len(), store.Cameras.Len())
	}
	for i := 1; i < len(scene.Entities); i++ {
		if scene.Entities[i-1].Position[0] > scene.Entities[i].Position[0] {
			t.Fatalf("entities not sorted by x at %d", i)
		}
	}
}
