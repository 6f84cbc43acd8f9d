package zodios

import (
	"errors"
	"testing"
)

func names(c *Client) []string {
	var out []string
	for _, p := range c.plugins.snapshot() {
		out = append(out, p.Name)
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPluginRegistration(t *testing.T) {
	client := newTestClient(t, &recordingTransport{})

	client.Use(Plugin{Name: "auth"})
	client.Use(Plugin{Name: "log"})
	if _, err := client.UseBefore("log", Plugin{Name: "cache"}); err != nil {
		t.Fatalf("UseBefore() returned error: %v", err)
	}
	if _, err := client.UseAfter("auth", Plugin{Name: "headers"}); err != nil {
		t.Fatalf("UseAfter() returned error: %v", err)
	}

	want := []string{"auth", "headers", "cache", "log"}
	if got := names(client); !equalNames(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestPluginReplaceByName(t *testing.T) {
	client := newTestClient(t, &recordingTransport{})

	first := client.Use(Plugin{Name: "auth", Request: nil})
	client.Use(Plugin{Name: "log"})
	second := client.Use(Plugin{Name: "auth"})

	if first == second {
		t.Error("Expected a new id for the replacement")
	}
	if got := names(client); !equalNames(got, []string{"auth", "log"}) {
		t.Errorf("Expected replacement in place, got %v", got)
	}
	if client.Eject(first) {
		t.Error("Expected replaced registration to be gone")
	}
}

func TestPluginInsertMissingAnchorKeepsList(t *testing.T) {
	client := newTestClient(t, &recordingTransport{})
	client.Use(Plugin{Name: "auth"})
	client.Use(Plugin{Name: "log"})

	for _, after := range []bool{false, true} {
		var err error
		if after {
			_, err = client.UseAfter("missing", Plugin{Name: "auth"})
		} else {
			_, err = client.UseBefore("missing", Plugin{Name: "auth"})
		}
		if !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("Expected ErrPluginNotFound, got %v", err)
		}
		if got := names(client); !equalNames(got, []string{"auth", "log"}) {
			t.Errorf("Expected list untouched, got %v", got)
		}
	}
}

func TestPluginInsertMovesNamedPlugin(t *testing.T) {
	client := newTestClient(t, &recordingTransport{})
	client.Use(Plugin{Name: "auth"})
	client.Use(Plugin{Name: "headers"})
	client.Use(Plugin{Name: "log"})

	if _, err := client.UseAfter("log", Plugin{Name: "auth"}); err != nil {
		t.Fatalf("UseAfter() returned error: %v", err)
	}
	if got := names(client); !equalNames(got, []string{"headers", "log", "auth"}) {
		t.Errorf("Expected auth moved after log, got %v", got)
	}

	if _, err := client.UseBefore("headers", Plugin{Name: "log"}); err != nil {
		t.Fatalf("UseBefore() returned error: %v", err)
	}
	if got := names(client); !equalNames(got, []string{"log", "headers", "auth"}) {
		t.Errorf("Expected log moved before headers, got %v", got)
	}
}

func TestPluginRemoval(t *testing.T) {
	client := newTestClient(t, &recordingTransport{})

	anon := client.Use(Plugin{})
	client.Use(Plugin{Name: "log"})

	if !client.Eject(anon) {
		t.Error("Expected Eject to remove the unnamed plugin")
	}
	if err := client.Remove("log"); err != nil {
		t.Errorf("Remove() returned error: %v", err)
	}
	if err := client.Remove("log"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Expected ErrPluginNotFound, got %v", err)
	}
	if _, err := client.UseBefore("missing", Plugin{Name: "x"}); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Expected ErrPluginNotFound, got %v", err)
	}
	if client.PluginCount() != 0 {
		t.Errorf("Expected no plugins, got %d", client.PluginCount())
	}
}

func TestPluginLookup(t *testing.T) {
	client := newTestClient(t, &recordingTransport{})
	client.Use(Plugin{Name: "auth"})

	if p, ok := client.Plugin("auth"); !ok || p.Name != "auth" {
		t.Errorf("Expected auth plugin, got %v %v", p, ok)
	}
	if _, ok := client.Plugin("nope"); ok {
		t.Error("Expected lookup miss")
	}
}

func TestUseBeforeMovesExistingName(t *testing.T) {
	client := newTestClient(t, &recordingTransport{})
	client.Use(Plugin{Name: "a"})
	client.Use(Plugin{Name: "b"})
	client.Use(Plugin{Name: "c"})

	if _, err := client.UseBefore("a", Plugin{Name: "c"}); err != nil {
		t.Fatalf("UseBefore() returned error: %v", err)
	}
	if got := names(client); !equalNames(got, []string{"c", "a", "b"}) {
		t.Errorf("Expected [c a b], got %v", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	client := newTestClient(t, &recordingTransport{})
	client.Use(Plugin{Name: "a"})

	snapshot := client.plugins.snapshot()
	client.Use(Plugin{Name: "b"})
	_ = client.Remove("a")

	if len(snapshot) != 1 || snapshot[0].Name != "a" {
		t.Errorf("Expected snapshot to be unaffected, got %v", snapshot)
	}
}
