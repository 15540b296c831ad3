// File: control/control_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package control

import (
	"testing"
	"time"
)

func TestConfigStoreSetAndSnapshot(t *testing.T) {
	cs := NewConfigStore()
	cs.SetConfig(map[string]any{"addr": ":8080"})
	cs.SetConfig(map[string]any{"logLevel": "info"})

	snap := cs.GetSnapshot()
	if snap["addr"] != ":8080" || snap["logLevel"] != "info" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestConfigStoreOnReloadFiresOnSetConfig(t *testing.T) {
	cs := NewConfigStore()
	done := make(chan struct{})
	cs.OnReload(func() { close(done) })

	cs.SetConfig(map[string]any{"k": "v"})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected OnReload hook to fire")
	}
}

func TestMetricsRegistrySetOverwrites(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Set("sessions", 1)
	mr.Set("sessions", 2)

	snap := mr.GetSnapshot()
	if snap["sessions"] != 2 {
		t.Fatalf("sessions = %v, want 2", snap["sessions"])
	}
}

func TestMetricsRegistryIncrementAccumulates(t *testing.T) {
	mr := NewMetricsRegistry()
	if got := mr.Increment("connects", 1); got != 1 {
		t.Fatalf("first Increment = %d, want 1", got)
	}
	if got := mr.Increment("connects", 1); got != 2 {
		t.Fatalf("second Increment = %d, want 2", got)
	}
	if got := mr.Increment("connects", 3); got != 5 {
		t.Fatalf("third Increment = %d, want 5", got)
	}

	snap := mr.GetSnapshot()
	if snap["connects"] != int64(5) {
		t.Fatalf("snapshot connects = %v, want int64(5)", snap["connects"])
	}
}

func TestDebugProbesDumpStateInvokesEachProbe(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("pid", func() any { return 42 })
	dp.RegisterProbe("ready", func() any { return true })

	state := dp.DumpState()
	if state["pid"] != 42 || state["ready"] != true {
		t.Fatalf("state = %+v", state)
	}
}

func TestRegisterPlatformProbesAddsPlatformCPUs(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)

	state := dp.DumpState()
	if _, ok := state["platform.cpus"]; !ok {
		t.Fatalf("state = %+v, want platform.cpus probe", state)
	}
}

func TestHotReloadDispatchesRegisteredHooks(t *testing.T) {
	done := make(chan struct{})
	RegisterReloadHook(func() { close(done) })
	TriggerHotReload()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected reload hook to fire")
	}
}
