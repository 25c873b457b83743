/*
vkDuck: a node-graph editor for Vulkan render pipelines. The demo scene
below wires a camera, a light and a textured model through one shaded
pipeline into the presentation sink.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fini03/vkduck/engine"
	"github.com/fini03/vkduck/engine/config"
	"github.com/fini03/vkduck/engine/core"
	"github.com/fini03/vkduck/engine/graph"
	"github.com/fini03/vkduck/engine/math"
)

func main() {
	cfg, err := config.Load("vkduck.toml")
	if err != nil {
		panic(err)
	}

	editor, err := engine.New(cfg)
	if err != nil {
		panic(err)
	}

	if err := editor.Initialize(); err != nil {
		panic(err)
	}

	if err := buildDemoScene(editor); err != nil {
		core.LogWarn("demo scene incomplete: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = editor.Shutdown()
	}()

	if err := editor.Run(); err != nil {
		panic(err)
	}

	if err := editor.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
}

func buildDemoScene(editor *engine.Editor) error {
	g := editor.Graph()

	camera := graph.NewCameraNode("main_camera")
	g.AddNode(camera)

	lights := graph.NewLightNode("sun")
	lights.AddLight(graph.Light{
		Position:  math.Vec4{X: 4, Y: 6, Z: 4, W: 1},
		Color:     math.Vec4{X: 1, Y: 1, Z: 0.95, W: 1},
		Intensity: 1,
	})
	g.AddNode(lights)

	pipeline := editor.AddPipeline("scene_pass", "scene")
	pipeline.UseDepth = true

	present := graph.NewPresentNode("screen")
	g.AddNode(present)

	model, err := editor.AddModel("duck", "assets/models/duck.obj", "assets/textures/duck.png")
	if err != nil {
		return err
	}

	connect := func(from graph.Node, out string, to graph.Node, in string) error {
		start, ok := graph.FindPin(from, out)
		if !ok {
			return nil
		}
		end, ok := graph.FindPin(to, in)
		if !ok {
			return nil
		}
		return g.Connect(start, end)
	}

	if err := connect(model, "vertexData", pipeline, "vertexData"); err != nil {
		return err
	}
	// Reflection-derived pins; present only when the shader declares them.
	_ = connect(camera, "camera", pipeline, "camera")
	_ = connect(lights, "lights", pipeline, "lights")
	_ = connect(model, "texture", pipeline, "albedo")
	if err := connect(pipeline, "output", present, "image"); err != nil {
		return err
	}
	return nil
}
