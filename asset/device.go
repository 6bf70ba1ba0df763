// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The loader RECEIVES the device from the host, it does not create one.
// The host application keeps ownership of the device, queue, and
// swapchain; the loader only creates resources against them.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// loader a local name for the interface while staying compatible with
// the gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// Host is the device surface the loader needs from its embedder: the
// shared device, plus the three operations asset loads perform against
// it. A rendering framework implements Host once and passes it to
// Initialize.
type Host interface {
	DeviceHandle

	// CreateTexture creates an empty GPU texture. Called from reader
	// threads; must be safe for concurrent use.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateShaderModule creates a shader module from SPIR-V words.
	// Called from reader threads; must be safe for concurrent use.
	CreateShaderModule(label string, spirv []byte) (ShaderModule, error)

	// NewCommandRecorder creates a command recorder. Each reader thread
	// creates one at start and reuses it across loads.
	NewCommandRecorder() CommandRecorder

	// Submit executes a finished command buffer. The loader only calls
	// this on the main thread, during a main-thread dispatch, because
	// queue submission is bound to the thread that owns the render
	// context.
	Submit(cb CommandBuffer)
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug name; the loader passes the asset path.
	Label string

	// Size is the texture dimensions.
	Size gputypes.Extent3D

	// MipLevelCount is the number of mip levels (1+ required).
	MipLevelCount uint32

	// SampleCount is the number of samples per pixel (1 for non-MSAA).
	SampleCount uint32

	// Dimension is the texture dimension (1D, 2D, 3D).
	Dimension gputypes.TextureDimension

	// Format is the texture pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage
}

// Texture is a GPU texture created through the host.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() gputypes.TextureFormat

	// Destroy releases the GPU resource. The loader calls it when the
	// owning asset's last reference drops.
	Destroy()
}

// ShaderModule is a compiled shader created through the host.
type ShaderModule interface {
	// Destroy releases the GPU resource.
	Destroy()
}

// CommandRecorder records upload commands on a reader thread. Finish
// detaches the recorded work as a CommandBuffer, leaving the recorder
// ready for the next load.
type CommandRecorder interface {
	// WriteTexture records a full-texture upload.
	WriteTexture(dst Texture, data []byte, layout gputypes.TextureDataLayout, size gputypes.Extent3D)

	// Finish returns the recorded commands and resets the recorder.
	Finish() CommandBuffer

	// Release frees the recorder. Called once, at reader-thread exit.
	Release()
}

// CommandBuffer is an opaque batch of recorded commands, produced on a
// reader thread and submitted on the main thread.
type CommandBuffer interface{}

// ShaderStage identifies the pipeline stage a shader is compiled for.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
	ShaderStageCompute
)

// TextureDimension selects the texture cache a path resolves in. A cube
// texture is a distinct resource from a 2D texture of the same path, so
// the two live in separate maps.
type TextureDimension int

const (
	Texture2D TextureDimension = iota
	TextureCube
)

// NullDeviceHandle is a DeviceHandle with nil implementations, for
// hosts that run the loader without a live GPU (tools, tests).
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns an empty AdapterInfo for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{}
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
