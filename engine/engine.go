package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fini03/vkduck/engine/assets"
	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/config"
	"github.com/fini03/vkduck/engine/core"
	"github.com/fini03/vkduck/engine/graph"
	"github.com/fini03/vkduck/engine/jobs"
	"github.com/fini03/vkduck/engine/platform"
	vulkan "github.com/fini03/vkduck/engine/renderer/vulkan"
	"github.com/fini03/vkduck/engine/shader"
)

type Stage uint8

const (
	// Editor is in an uninitialized state
	EditorStageUninitialized Stage = iota
	// Editor is currently booting up
	EditorStageBooting
	// Editor is fully initialized and running its frame loop
	EditorStageRunning
	// Editor is in the process of shutting down
	EditorStageShuttingDown
)

// Editor ties the pieces together: the window, the Vulkan backend, the node
// graph, the shader session and the compiler. Everything GPU-facing runs on
// the main thread; event callbacks fired from other goroutines only record
// work for the next loop iteration.
type Editor struct {
	currentStage Stage
	config       *config.Config
	platform     *platform.Platform
	renderer     *vulkan.VulkanRenderer
	compiler     *compiler.Compiler
	graph        *graph.Graph
	shaders      *shader.Session
	watcher      *assets.ShaderWatcher
	pool         *jobs.Pool
	clock        *core.Clock
	lastTime     float64

	isRunning   bool
	isSuspended bool
	width       uint32
	height      uint32

	// pending work recorded by event callbacks, drained once per frame on
	// the main thread
	mutex          sync.Mutex
	rebuildPending bool
	reloadPending  bool
}

func New(cfg *config.Config) (*Editor, error) {
	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Editor{
		currentStage: EditorStageUninitialized,
		config:       cfg,
		platform:     p,
		renderer:     vulkan.New(p),
		graph:        graph.New(),
		shaders:      shader.NewSession(cfg.Shaders.Root),
		pool:         jobs.Default(),
		clock:        core.NewClock(),
		isRunning:    true,
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}, nil
}

func (e *Editor) Initialize() error {
	e.currentStage = EditorStageBooting

	if !core.EventInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_SHADER_RELOADED, e, e.onShaderReloaded)
	core.EventRegister(core.EVENT_CODE_GRAPH_EDITED, e, e.onGraphEdited)

	if err := e.platform.Startup(e.config.Window.Title,
		e.config.Window.X,
		e.config.Window.Y,
		e.config.Window.Width,
		e.config.Window.Height); err != nil {
		return err
	}

	if err := e.renderer.Initialize(e.config.Window.Title, e.width, e.height); err != nil {
		return err
	}
	e.compiler = compiler.New(e.renderer)

	if e.config.Shaders.Watch {
		w, err := assets.NewShaderWatcher(e.config.Shaders.Root)
		if err != nil {
			// The editor still works without hot reload.
			core.LogWarn("shader watcher unavailable: %s", err)
		} else if err := w.Initialize(); err != nil {
			core.LogWarn("shader watcher failed to start: %s", err)
		} else {
			e.watcher = w
		}
	}

	return nil
}

// Graph returns the editable node graph. Mutations fire a graph-edited event,
// so a rebuild is scheduled automatically.
func (e *Editor) Graph() *graph.Graph { return e.graph }

// AddPipeline creates a pipeline node with its shader reflection loaded from
// the session and adds it to the graph.
func (e *Editor) AddPipeline(name, shaderName string) *graph.PipelineNode {
	n := graph.NewPipelineNode(name, shaderName)
	n.SetReflection(e.shaders.Load(shaderName))
	e.graph.AddNode(n)
	return n
}

// AddModel decodes an OBJ file and its textures (in parallel, one job per
// texture) and adds the resulting model node to the graph.
func (e *Editor) AddModel(name, modelPath string, texturePaths ...string) (*graph.ModelNode, error) {
	meshes, err := assets.LoadModel(modelPath)
	if err != nil {
		return nil, err
	}
	textures, err := assets.LoadTextures(e.pool, texturePaths)
	if err != nil {
		return nil, err
	}
	n := graph.NewModelNode(name, modelPath, meshes, textures)
	e.graph.AddNode(n)
	return n, nil
}

func (e *Editor) Run() error {
	e.currentStage = EditorStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		e.drainPendingWork()

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if err := e.renderer.BeginFrame(delta); err != nil {
			if errors.Is(err, core.ErrSwapchainBooting) {
				// Swapchain is recreating; render target sizes changed, so
				// relative-size primitives need a recompile.
				e.scheduleRebuild()
				continue
			}
			core.LogError("begin frame failed: %s", err)
			e.isRunning = false
			break
		}

		e.compiler.Record(e.renderer)

		if err := e.renderer.EndFrame(delta); err != nil {
			core.LogError("end frame failed: %s", err)
			e.isRunning = false
			break
		}
	}

	return nil
}

func (e *Editor) Shutdown() error {
	if e.currentStage == EditorStageShuttingDown {
		return nil
	}
	e.currentStage = EditorStageShuttingDown
	e.isRunning = false

	if e.watcher != nil {
		e.watcher.Shutdown()
	}
	e.pool.Shutdown()
	if e.compiler != nil {
		e.compiler.Teardown()
	}
	if err := e.renderer.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	core.EventShutdown()
	return nil
}

// ExportSource writes the generated mirror of the last successful rebuild
// next to the editor document.
func (e *Editor) ExportSource(path, pkg string) error {
	src, err := compiler.GenerateSource(e.compiler, pkg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, src, 0o644)
}

// drainPendingWork applies reloads and rebuilds recorded by event callbacks.
// Runs on the main thread between frames, where native calls are safe.
func (e *Editor) drainPendingWork() {
	e.mutex.Lock()
	reload := e.reloadPending
	rebuild := e.rebuildPending
	e.reloadPending = false
	e.rebuildPending = false
	e.mutex.Unlock()

	if reload {
		e.shaders.Reset()
		for _, n := range e.graph.EditorNodes() {
			if pn, ok := n.(*graph.PipelineNode); ok {
				pn.SetReflection(e.shaders.Load(pn.ShaderName))
			}
		}
	}
	if reload || rebuild {
		e.rebuild()
	}
}

// rebuild recompiles the graph with uploads batched into a single submission.
func (e *Editor) rebuild() {
	if err := e.renderer.BeginUploads(); err != nil {
		core.LogError("rebuild: opening transfer batch failed: %s", err)
		return
	}
	ok := e.compiler.Rebuild(e.graph)
	if err := e.renderer.FlushUploads(); err != nil {
		core.LogError("rebuild: flushing transfer batch failed: %s", err)
		return
	}
	if ok {
		core.LogInfo("graph compiled: %d primitives linked", len(e.compiler.OrderedPrimitives()))
	}
}

func (e *Editor) scheduleRebuild() {
	e.mutex.Lock()
	e.rebuildPending = true
	e.mutex.Unlock()
}

func (e *Editor) onQuit(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.isRunning = false
	return true
}

func (e *Editor) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending editor")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming editor")
		e.isSuspended = false
	}
	if err := e.renderer.Resized(uint16(width), uint16(height)); err != nil {
		core.LogError(err.Error())
	}
	return true
}

func (e *Editor) onShaderReloaded(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	core.LogInfo("shader '%s' changed on disk, scheduling reload", data.Data.C[0])
	e.mutex.Lock()
	e.reloadPending = true
	e.mutex.Unlock()
	return true
}

func (e *Editor) onGraphEdited(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	e.scheduleRebuild()
	return true
}
