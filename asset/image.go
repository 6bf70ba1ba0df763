// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"bytes"
	"fmt"
	"image"

	// Decoders available to image assets. The x/image formats extend
	// the stdlib set.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/gogpu/gputypes"
)

// ImageData is a decoded image in upload-ready layout: tightly packed
// rows in the pixel format the texture will be created with.
type ImageData struct {
	Pixels      []byte
	Width       int
	Height      int
	Format      gputypes.TextureFormat
	BytesPerRow uint32
}

// Image is a decoded-pixels asset. Loading one loads its blob first;
// the reader thread performing the image load resolves the blob inline.
type Image = Asset[ImageData]

func newImage(path string) *Image {
	return newAsset(path, loadImage)
}

func loadImage(a *Image, env *loadEnv) {
	blob := env.loader.GetBlob(a.Path())
	defer blob.Release()
	blob.loadIfNotLoaded(env)

	a.complete(decodeImage(a.Path(), blob.Get()))
}

// decodeImage picks the texture format from the decoded color model the
// way a channel count would: single-channel stays single-channel,
// everything else becomes four-channel sRGB.
func decodeImage(path string, data []byte) ImageData {
	img, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("asset: decoding %q: %v", path, err))
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	logger().Debug("decoded image", "path", path, "format", kind, "w", w, "h", h)

	if gray, ok := img.(*image.Gray); ok {
		pixels := make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(pixels[y*w:(y+1)*w], gray.Pix[y*gray.Stride:y*gray.Stride+w])
		}
		return ImageData{
			Pixels:      pixels,
			Width:       w,
			Height:      h,
			Format:      gputypes.TextureFormatR8Unorm,
			BytesPerRow: uint32(w),
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return ImageData{
		Pixels:      dst.Pix,
		Width:       w,
		Height:      h,
		Format:      gputypes.TextureFormatRGBA8UnormSrgb,
		BytesPerRow: uint32(4 * w),
	}
}
