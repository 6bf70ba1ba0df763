package asset

import "testing"

func newIdleAsset(path string) *Asset[int] {
	return newAsset(path, func(*Asset[int], *loadEnv) {})
}

func TestMapGetOrCreateDedup(t *testing.T) {
	m := NewMap[int]()

	a, created := m.GetOrCreate("a", func() *Asset[int] { return newIdleAsset("a") })
	if !created {
		t.Fatal("first GetOrCreate did not create")
	}
	if n := a.RefCount(); n != 2 {
		t.Fatalf("RefCount() = %d after create, want 2 (map + handle)", n)
	}

	b, created := m.GetOrCreate("a", func() *Asset[int] { return newIdleAsset("a") })
	if created {
		t.Fatal("second GetOrCreate created a duplicate")
	}
	if a != b {
		t.Fatal("same path resolved to different entries")
	}
	if n := a.RefCount(); n != 3 {
		t.Fatalf("RefCount() = %d after second get, want 3", n)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}

func TestMapIncrementalCollectDropsAtMostOne(t *testing.T) {
	m := NewMap[int]()
	for _, p := range []string{"a", "b", "c"} {
		a, _ := m.GetOrCreate(p, func() *Asset[int] { return newIdleAsset(p) })
		a.Release() // map becomes the sole holder
	}

	if n := m.GarbageCollect(true); n != 1 {
		t.Fatalf("incremental collect dropped %d entries, want 1", n)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d after incremental collect, want 2", m.Len())
	}
	if n := m.GarbageCollect(false); n != 2 {
		t.Fatalf("full collect dropped %d entries, want 2", n)
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d after full collect, want 0", m.Len())
	}
}

func TestMapClearReleasesEntries(t *testing.T) {
	m := NewMap[int]()
	freed := 0
	a := newIdleAsset("a")
	a.SetFinalizer(func() { freed++ })
	got, _ := m.GetOrCreate("a", func() *Asset[int] { return a })
	got.Release()

	m.Clear()
	if freed != 1 {
		t.Fatalf("finalizer ran %d times after Clear, want 1", freed)
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", m.Len())
	}
}
