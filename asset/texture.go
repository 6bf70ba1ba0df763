// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/jobsys"
	"github.com/gogpu/jobsys/refcount"
)

// TextureData is an uploaded GPU texture.
type TextureData struct {
	Texture   Texture
	Dimension TextureDimension
}

// TextureAsset is the top of the load chain: image (which is blob +
// decode) plus GPU texture creation and upload. The upload commands are
// recorded on the reader thread's command recorder, but submission is
// handed to the main thread; the asset reads as loaded only after the
// main thread has submitted.
type TextureAsset = Asset[TextureData]

func newTexture(path string, dim TextureDimension) *TextureAsset {
	a := newAsset(path, func(a *TextureAsset, env *loadEnv) {
		loadTexture(a, env, dim)
	})
	a.SetFinalizer(func() {
		if a.IsLoaded() {
			a.Get().Texture.Destroy()
		}
	})
	return a
}

func loadTexture(a *TextureAsset, env *loadEnv, dim TextureDimension) {
	img := env.loader.GetImage(a.Path())
	defer img.Release()
	img.loadIfNotLoaded(env)
	pixels := img.Get()

	layers := uint32(1)
	if dim == TextureCube {
		layers = 6
	}
	desc := TextureDescriptor{
		Label: a.Path(),
		Size: gputypes.Extent3D{
			Width:              uint32(pixels.Width),
			Height:             uint32(pixels.Height),
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        pixels.Format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
	tex, err := env.loader.host.CreateTexture(desc)
	if err != nil {
		panic(fmt.Sprintf("asset: creating texture %q: %v", a.Path(), err))
	}

	env.rec.WriteTexture(tex, pixels.Pixels,
		gputypes.TextureDataLayout{BytesPerRow: pixels.BytesPerRow},
		gputypes.Extent3D{
			Width:              uint32(pixels.Width),
			Height:             uint32(pixels.Height),
			DepthOrArrayLayers: 1,
		})
	cb := env.rec.Finish()

	// Submission is thread-affine; hand it to the main thread. The
	// asset completes there, so waiters are signaled only once the
	// upload has actually been submitted. The handle keeps the asset
	// alive until the submission job runs.
	keep := refcount.NewRef(a)
	host := env.loader.host
	jobsys.EnqueueOnMain(func() {
		host.Submit(cb)
		a.complete(TextureData{Texture: tex, Dimension: dim})
		keep.Release()
	})
}
