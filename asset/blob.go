// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"fmt"
	"os"
)

// Blob is a raw-bytes asset: the file's contents, nothing decoded.
// Every other asset kind bottoms out in a blob read.
type Blob = Asset[[]byte]

func newBlob(path string) *Blob {
	return newAsset(path, loadBlob)
}

func loadBlob(a *Blob, _ *loadEnv) {
	data := readFile(a.Path())
	a.complete(data)
}

// readFile loads a whole file or dies. A missing or short asset file is
// an environment error the application cannot continue from; there is
// no retry or partial-success path.
func readFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("asset: reading %q: %v", path, err))
	}
	return data
}
