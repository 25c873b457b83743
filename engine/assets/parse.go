package assets

import (
	"fmt"
	"strconv"

	"github.com/fini03/vkduck/engine/math"
)

func parseVec3(fields []string) (math.Vec3, error) {
	if len(fields) < 3 {
		return math.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	var out [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("invalid float %q: %w", fields[i], err)
		}
		out[i] = float32(f)
	}
	return math.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

func parseVec2(fields []string) (math.Vec2, error) {
	if len(fields) < 2 {
		return math.Vec2{}, fmt.Errorf("expected 2 components, got %d", len(fields))
	}
	var out [2]float32
	for i := 0; i < 2; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return math.Vec2{}, fmt.Errorf("invalid float %q: %w", fields[i], err)
		}
		out[i] = float32(f)
	}
	return math.Vec2{X: out[0], Y: out[1]}, nil
}
