package asset

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// mockHost counts the device operations the loader performs, so tests
// can assert "exactly one texture was created" without a live GPU.
type mockHost struct {
	NullDeviceHandle

	texturesCreated atomic.Int64
	shadersCreated  atomic.Int64
	submits         atomic.Int64
}

type mockTexture struct {
	desc      TextureDescriptor
	destroyed atomic.Bool
}

func (t *mockTexture) Width() uint32                  { return t.desc.Size.Width }
func (t *mockTexture) Height() uint32                 { return t.desc.Size.Height }
func (t *mockTexture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *mockTexture) Destroy()                       { t.destroyed.Store(true) }

type mockShaderModule struct {
	label     string
	spirv     []byte
	destroyed atomic.Bool
}

func (m *mockShaderModule) Destroy() { m.destroyed.Store(true) }

type mockCommandBuffer struct {
	writes int
}

type mockRecorder struct {
	pendingWrites int
	released      atomic.Bool
}

func (r *mockRecorder) WriteTexture(Texture, []byte, gputypes.TextureDataLayout, gputypes.Extent3D) {
	r.pendingWrites++
}

func (r *mockRecorder) Finish() CommandBuffer {
	cb := &mockCommandBuffer{writes: r.pendingWrites}
	r.pendingWrites = 0
	return cb
}

func (r *mockRecorder) Release() { r.released.Store(true) }

func (h *mockHost) CreateTexture(desc TextureDescriptor) (Texture, error) {
	h.texturesCreated.Add(1)
	return &mockTexture{desc: desc}, nil
}

func (h *mockHost) CreateShaderModule(label string, spirv []byte) (ShaderModule, error) {
	h.shadersCreated.Add(1)
	return &mockShaderModule{label: label, spirv: spirv}, nil
}

func (h *mockHost) NewCommandRecorder() CommandRecorder {
	return &mockRecorder{}
}

func (h *mockHost) Submit(cb CommandBuffer) {
	h.submits.Add(1)
}
