// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/jobsys"
)

// Fixed directory prefixes applied before cache lookup, so equivalent
// user-supplied paths collapse to one entry.
const (
	shaderDir  = "shaders/"
	textureDir = "textures/"
)

// Loader owns the per-kind asset maps and the reader pool. Most
// applications use the package-level facade (Initialize, GetTexture,
// ...) backed by a single Loader; tests construct their own.
type Loader struct {
	host     Host
	requests *requestQueue
	readers  *errgroup.Group

	blobs    *Map[[]byte]
	images   *Map[ImageData]
	shaders  *Map[Shader]
	textures map[TextureDimension]*Map[TextureData]
}

// NewLoader creates a loader against the given host and starts the
// reader threads. The job system must be running before assets that
// reach the main thread (textures) are requested.
func NewLoader(host Host) *Loader {
	l := &Loader{
		host:     host,
		requests: newRequestQueue(),
		readers:  &errgroup.Group{},
		blobs:    NewMap[[]byte](),
		images:   NewMap[ImageData](),
		shaders:  NewMap[Shader](),
		textures: map[TextureDimension]*Map[TextureData]{
			Texture2D:   NewMap[TextureData](),
			TextureCube: NewMap[TextureData](),
		},
	}
	for i := 0; i < ReaderThreads; i++ {
		l.readers.Go(func() error {
			l.runReader(i)
			return nil
		})
	}
	return l
}

// Cleanup stops the readers (one sentinel each), verifies no request
// was left behind, and drops every cached asset. GPU resources are
// destroyed as their entries release; the caller must have quiesced the
// device first.
func (l *Loader) Cleanup() {
	for i := 0; i < ReaderThreads; i++ {
		l.requests.push(readRequest{})
	}
	_ = l.readers.Wait()
	if n := l.requests.len(); n != 0 {
		panic("asset: read requests left after cleanup")
	}

	l.blobs.Clear()
	l.images.Clear()
	l.shaders.Clear()
	for _, m := range l.textures {
		m.Clear()
	}
	l.host = nil
	logger().Info("asset loader cleaned up")
}

// GarbageCollect drops cache entries that no outside handle references.
// In incremental mode (once per frame), at most one entry per map is
// dropped, and the GPU-bound maps (shaders, textures) are skipped
// entirely: evicting those requires the device to have quiesced every
// command list referencing the resource, which only a full collect at a
// known-safe point may assume.
func (l *Loader) GarbageCollect(incremental bool) {
	n := l.blobs.GarbageCollect(incremental)
	n += l.images.GarbageCollect(incremental)
	if !incremental {
		n += l.shaders.GarbageCollect(false)
		for _, m := range l.textures {
			n += m.GarbageCollect(false)
		}
	}
	if n > 0 {
		logger().Debug("asset gc", "collected", n)
	}
}

// GetBlob requests the raw bytes of path. The returned handle must be
// Released; the caller's active scope (if any) is charged until the
// load completes.
func (l *Loader) GetBlob(path string) *Blob {
	return get(l, l.blobs, path, func() *Blob { return newBlob(path) })
}

// GetImage requests the decoded pixels of path.
func (l *Loader) GetImage(path string) *Image {
	return get(l, l.images, path, func() *Image { return newImage(path) })
}

// GetShader requests a compiled shader module. Paths without the
// shader directory prefix get it.
func (l *Loader) GetShader(path string, stage ShaderStage) *ShaderAsset {
	path = normalize(path, shaderDir)
	return get(l, l.shaders, path, func() *ShaderAsset { return newShader(path, stage) })
}

// GetTexture requests an uploaded GPU texture. Paths without the
// texture directory prefix get it. The optional dimension selects the
// cube cache; default is 2D.
func (l *Loader) GetTexture(path string, dim ...TextureDimension) *TextureAsset {
	d := Texture2D
	if len(dim) > 0 {
		d = dim[0]
	}
	path = normalize(path, textureDir)
	return get(l, l.textures[d], path, func() *TextureAsset { return newTexture(path, d) })
}

// get is the shared request path: resolve in the map, queue one read
// request on a miss, and register the caller's active scope so its next
// dispatch waits for the load.
func get[T any](l *Loader, m *Map[T], path string, factory func() *Asset[T]) *Asset[T] {
	a, created := m.GetOrCreate(path, factory)
	if created {
		a.AddRef() // the queued request's reference
		l.requests.push(readRequest{path: path, target: a})
	}
	a.registerScope(jobsys.ActiveScope())
	return a
}

func normalize(path, dir string) string {
	if filepath.IsAbs(path) || strings.HasPrefix(path, dir) {
		return path
	}
	return dir + path
}

// Package-level facade over one process-wide loader.

var defaultLoader atomic.Pointer[Loader]

// Initialize creates the process-wide loader against the given host and
// starts its reader threads.
func Initialize(host Host) {
	l := NewLoader(host)
	if !defaultLoader.CompareAndSwap(nil, l) {
		panic("asset: already initialized")
	}
	logger().Info("asset loader initialized", "readers", ReaderThreads)
}

// Cleanup tears down the process-wide loader.
func Cleanup() {
	l := defaultLoader.Swap(nil)
	if l == nil {
		panic("asset: not initialized")
	}
	l.Cleanup()
}

// GarbageCollect collects the process-wide loader's caches.
func GarbageCollect(incremental bool) { mustLoader().GarbageCollect(incremental) }

// GetBlob requests raw bytes from the process-wide loader.
func GetBlob(path string) *Blob { return mustLoader().GetBlob(path) }

// GetImage requests decoded pixels from the process-wide loader.
func GetImage(path string) *Image { return mustLoader().GetImage(path) }

// GetShader requests a shader module from the process-wide loader.
func GetShader(path string, stage ShaderStage) *ShaderAsset {
	return mustLoader().GetShader(path, stage)
}

// GetTexture requests a GPU texture from the process-wide loader.
func GetTexture(path string, dim ...TextureDimension) *TextureAsset {
	return mustLoader().GetTexture(path, dim...)
}

func mustLoader() *Loader {
	l := defaultLoader.Load()
	if l == nil {
		panic("asset: loader not initialized")
	}
	return l
}
