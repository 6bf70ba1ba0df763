// Command jobbench exercises the job system end to end and prints
// per-thread dispatch statistics: a fan-out counter, a simulated frame
// loop with background work, and an asset-cache storm against an
// in-memory device.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/jobsys"
	"github.com/gogpu/jobsys/asset"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

func main() {
	jobsys.Start()

	ok := true
	ok = runFanOut() && ok
	ok = runFrameLoop() && ok
	ok = runAssetStorm() && ok

	jobsys.Stop()
	printStats()

	if !ok {
		os.Exit(1)
	}
}

// runFanOut: 1000 outer jobs, each spawning 1000 increments under a
// child scope. The outer close must observe exactly one million.
func runFanOut() bool {
	bold.Println("== fan-out counter ==")
	const outerJobs, innerJobs = 1000, 1000

	bar := progressbar.NewOptions(outerJobs,
		progressbar.OptionSetDescription("spawning"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
	)

	var counter atomic.Int64
	start := time.Now()
	outer := jobsys.NewScope()
	for i := 0; i < outerJobs; i++ {
		jobsys.Enqueue(func() {
			inner := jobsys.NewScopeIn(outer)
			for j := 0; j < innerJobs; j++ {
				jobsys.Enqueue(func() { counter.Add(1) })
			}
			inner.Close()
			_ = bar.Add(1)
		})
	}
	outer.Close()
	elapsed := time.Since(start)
	fmt.Println()

	want := int64(outerJobs * innerJobs)
	if got := counter.Load(); got != want {
		red.Printf("FAIL: counter = %d, want %d\n", got, want)
		return false
	}
	green.Printf("ok: %d jobs in %v (%.1f M jobs/s)\n\n",
		want, elapsed.Round(time.Millisecond), float64(want)/elapsed.Seconds()/1e6)
	return true
}

// runFrameLoop simulates the rendering main loop: paced frames, a scope
// per frame, per-frame jobs plus background work dribbling alongside.
func runFrameLoop() bool {
	bold.Println("== simulated frame loop ==")
	const frames = 240

	limiter := rate.NewLimiter(rate.Limit(960), 1)
	var frameWork, bgWork atomic.Int64

	start := time.Now()
	for f := 0; f < frames; f++ {
		_ = limiter.Wait(context.Background())

		scope := jobsys.NewScope()
		for i := 0; i < 64; i++ {
			jobsys.Enqueue(func() { frameWork.Add(1) })
		}
		if f%4 == 0 {
			jobsys.EnqueueBackground(func() {
				time.Sleep(100 * time.Microsecond)
				bgWork.Add(1)
			})
		}
		scope.Close() // all update jobs finish before the frame "renders"
		jobsys.Dispatch()
	}
	// Drain the stragglers the background queue may still hold.
	for bgWork.Load() < frames/4 {
		jobsys.Dispatch()
		time.Sleep(time.Millisecond)
	}
	elapsed := time.Since(start)

	if got := frameWork.Load(); got != frames*64 {
		red.Printf("FAIL: frame work = %d, want %d\n", got, frames*64)
		return false
	}
	green.Printf("ok: %d frames, %d frame jobs, %d background jobs in %v\n\n",
		frames, frameWork.Load(), bgWork.Load(), elapsed.Round(time.Millisecond))
	return true
}

// runAssetStorm loads one generated shader file through the cache with
// an in-memory device, hammering its path from many workers to show
// deduplication.
func runAssetStorm() bool {
	bold.Println("== asset cache storm ==")

	dir, err := os.MkdirTemp("", "jobbench")
	if err != nil {
		red.Printf("FAIL: %v\n", err)
		return false
	}
	defer os.RemoveAll(dir)

	shared := filepath.Join(dir, "shared.spv")
	if err := os.WriteFile(shared, spirvStub(), 0o644); err != nil {
		red.Printf("FAIL: %v\n", err)
		return false
	}

	host := &memHost{}
	loader := asset.NewLoader(host)

	const callers = 64
	var loaded atomic.Int32
	start := time.Now()
	outer := jobsys.NewScope()
	for i := 0; i < callers; i++ {
		jobsys.EnqueueOnWorkerIn(outer, func() {
			s := jobsys.NewScope()
			h := loader.GetShader(shared, asset.ShaderStageFragment)
			s.Close()
			if h.IsLoaded() {
				loaded.Add(1)
			}
			h.Release()
		})
	}
	outer.Close()
	elapsed := time.Since(start)

	loader.GarbageCollect(false)
	loader.Cleanup()

	if loaded.Load() != callers {
		red.Printf("FAIL: %d of %d callers saw the shader loaded\n", loaded.Load(), callers)
		return false
	}
	if n := host.shaderLoads.Load(); n != 1 {
		red.Printf("FAIL: shader compiled %d times, want 1\n", n)
		return false
	}
	green.Printf("ok: %d concurrent requests, 1 load, in %v\n\n", callers, elapsed.Round(time.Millisecond))
	return true
}

func printStats() {
	bold.Println("== dispatch statistics ==")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Thread", "Own", "StealMain", "StealWorker", "External", "Background", "Spins", "Yields", "Sleeps")
	for _, s := range jobsys.Stats() {
		_ = table.Append(s.Name,
			fmt.Sprint(s.RunOwn), fmt.Sprint(s.StealMain), fmt.Sprint(s.StealWorker),
			fmt.Sprint(s.External), fmt.Sprint(s.Background),
			fmt.Sprint(s.Spins), fmt.Sprint(s.Yields), fmt.Sprint(s.Sleeps))
	}
	_ = table.Render()
}

// spirvStub is a minimal buffer with the SPIR-V magic word, enough for
// the loader's passthrough path against the in-memory device.
func spirvStub() []byte {
	return []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 0, 0, 0, 0, 0, 0}
}

// memHost is an in-memory asset.Host: it creates placeholder resources
// and counts operations.
type memHost struct {
	asset.NullDeviceHandle
	shaderLoads  atomic.Int64
	textureLoads atomic.Int64
}

type memTexture struct{ desc asset.TextureDescriptor }

func (t *memTexture) Width() uint32                  { return t.desc.Size.Width }
func (t *memTexture) Height() uint32                 { return t.desc.Size.Height }
func (t *memTexture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *memTexture) Destroy()                       {}

type memShaderModule struct{}

func (memShaderModule) Destroy() {}

type memRecorder struct{}

func (memRecorder) WriteTexture(asset.Texture, []byte, gputypes.TextureDataLayout, gputypes.Extent3D) {
}
func (memRecorder) Finish() asset.CommandBuffer { return struct{}{} }
func (memRecorder) Release()                    {}

func (h *memHost) CreateTexture(desc asset.TextureDescriptor) (asset.Texture, error) {
	h.textureLoads.Add(1)
	return &memTexture{desc: desc}, nil
}

func (h *memHost) CreateShaderModule(string, []byte) (asset.ShaderModule, error) {
	h.shaderLoads.Add(1)
	return memShaderModule{}, nil
}

func (h *memHost) NewCommandRecorder() asset.CommandRecorder { return memRecorder{} }

func (h *memHost) Submit(asset.CommandBuffer) {}
