// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// spirvMagic is the first word of a SPIR-V binary.
const spirvMagic = 0x07230203

// Shader is a compiled shader module plus the stage it was requested
// for.
type Shader struct {
	Module ShaderModule
	Stage  ShaderStage
}

// ShaderAsset caches one shader module per path. WGSL sources are
// compiled to SPIR-V on the reader thread; precompiled .spv binaries
// pass through after a magic check.
type ShaderAsset = Asset[Shader]

func newShader(path string, stage ShaderStage) *ShaderAsset {
	a := newAsset(path, func(a *ShaderAsset, env *loadEnv) {
		loadShader(a, env, stage)
	})
	a.SetFinalizer(func() {
		if a.IsLoaded() {
			a.Get().Module.Destroy()
		}
	})
	return a
}

func loadShader(a *ShaderAsset, env *loadEnv, stage ShaderStage) {
	path := a.Path()
	data := readFile(path)

	var spirv []byte
	switch {
	case strings.HasSuffix(path, ".wgsl"):
		compiled, err := naga.Compile(string(data))
		if err != nil {
			panic(fmt.Sprintf("asset: compiling shader %q: %v", path, err))
		}
		spirv = compiled
	case len(data) >= 4 && binary.LittleEndian.Uint32(data) == spirvMagic:
		spirv = data
	default:
		panic(fmt.Sprintf("asset: shader %q is neither WGSL nor SPIR-V", path))
	}

	module, err := env.loader.host.CreateShaderModule(path, spirv)
	if err != nil {
		panic(fmt.Sprintf("asset: creating shader module %q: %v", path, err))
	}
	a.complete(Shader{Module: module, Stage: stage})
}
