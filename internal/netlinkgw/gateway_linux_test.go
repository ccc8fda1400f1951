//go:build linux

package netlinkgw

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"tcmesh/internal/tcproto"
)

func TestNetemConfigRoundTripThroughNetlinkAttrs(t *testing.T) {
	cases := []tcproto.NetemConfig{
		{Loss: tcproto.LossConfig{Enabled: true, Percent: 5, Correlation: 25}},
		{Delay: tcproto.DelayConfig{Enabled: true, BaseMs: 100, JitterMs: 10, Correlation: 25}},
		{RateLimit: tcproto.RateLimitConfig{Enabled: true, RateKbps: 1000}},
	}

	for _, c := range cases {
		netem := buildNetemAttrs(1, c)
		got := netemToConfig(netem)
		if diff := cmp.Diff(c, got); diff != "" {
			t.Errorf("round-trip through netlink attrs mismatch for %+v (-want +got):\n%s", c, diff)
		}
	}
}

func TestDurationUs(t *testing.T) {
	if got := durationUs(1); got != 1000 {
		t.Errorf("durationUs(1) = %d, want 1000", got)
	}
	if got := durationUs(0.5); got != 500 {
		t.Errorf("durationUs(0.5) = %d, want 500", got)
	}
}

func TestRegisterAndForgetContainerNamespace(t *testing.T) {
	g := NewLinux()
	g.RegisterContainerNamespace("web", "/proc/1234/ns/net")

	g.mu.Lock()
	path, ok := g.containers["web"]
	g.mu.Unlock()
	if !ok || path != "/proc/1234/ns/net" {
		t.Fatalf("expected registered path, got %q ok=%v", path, ok)
	}

	g.ForgetContainerNamespace("web")
	g.mu.Lock()
	_, ok = g.containers["web"]
	g.mu.Unlock()
	if ok {
		t.Fatal("expected container namespace to be forgotten")
	}
}
