package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fini03/vkduck/engine/core"
)

// ShaderWatcher watches a shader directory tree and fires
// EVENT_CODE_SHADER_RELOADED with the shader's base name when a compiled
// SPIR-V binary or its reflection sidecar changes on disk.
type ShaderWatcher struct {
	root string

	mutex sync.Mutex
	// Last event per shader name, for debouncing editor save storms.
	lastFired map[string]time.Time

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

// Editors and shader compilers tend to write a file several times in quick
// succession; events inside this window collapse into one reload.
const debounceWindow = 200 * time.Millisecond

func NewShaderWatcher(root string) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ShaderWatcher{
		root:      root,
		lastFired: make(map[string]time.Time),
		fsnotify:  fsWatch,
		done:      make(chan struct{}),
	}, nil
}

func (sw *ShaderWatcher) Initialize() error {
	go sw.start()
	return sw.addRecursive(sw.root)
}

func (sw *ShaderWatcher) Shutdown() {
	if sw.isClosed {
		return
	}
	sw.isClosed = true
	close(sw.done)
}

func (sw *ShaderWatcher) addRecursive(name string) error {
	if sw.isClosed {
		return errors.New("shader watcher already closed")
	}
	return filepath.Walk(name, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (sw *ShaderWatcher) start() {
	for {
		select {
		case e := <-sw.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					sw.addRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				sw.handleFileEvent(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				sw.fsnotify.Remove(e.Name)
			}

		case e := <-sw.fsnotify.Errors:
			if e != nil {
				core.LogError(e.Error())
			}

		case <-sw.done:
			sw.fsnotify.Close()
			return
		}
	}
}

func (sw *ShaderWatcher) handleFileEvent(path string) {
	name, ok := shaderNameFromPath(path)
	if !ok {
		return
	}

	sw.mutex.Lock()
	last, seen := sw.lastFired[name]
	now := time.Now()
	if seen && now.Sub(last) < debounceWindow {
		sw.mutex.Unlock()
		return
	}
	sw.lastFired[name] = now
	sw.mutex.Unlock()

	core.LogDebug("shader '%s' changed on disk", name)
	context := core.EventContext{}
	context.Data.C[0] = name
	core.EventFire(core.EVENT_CODE_SHADER_RELOADED, sw, context)
}

// shaderNameFromPath maps "deferred.frag.spv" and "deferred.reflect.toml"
// alike to "deferred".
func shaderNameFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, ".vert.spv"):
		return strings.TrimSuffix(base, ".vert.spv"), true
	case strings.HasSuffix(base, ".frag.spv"):
		return strings.TrimSuffix(base, ".frag.spv"), true
	case strings.HasSuffix(base, ".reflect.toml"):
		return strings.TrimSuffix(base, ".reflect.toml"), true
	default:
		return "", false
	}
}
