// Package registry is the single authority for what network namespaces
// currently exist and how to reach them. It merges the default namespace,
// named namespaces under the system's netns directory, and container
// namespaces reported by one or more container.Inspector instances.
package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"tcmesh/internal/container"
	"tcmesh/internal/logging"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/tcproto"
)

// Registry holds the current namespace snapshot. The container cache is a
// single-writer (Refresh), many-reader (Namespaces/Containers) structure:
// writers take an exclusive lock, readers a shared lock, and reads never
// hold the lock across a netlink or inspector call.
type Registry struct {
	gw         netlinkgw.Gateway
	inspectors []container.Inspector
	netnsDir   string

	mu         sync.RWMutex
	named      []string
	containers map[string]tcproto.ContainerRecord
}

// New constructs a Registry. netnsDir is the directory ip-netns(8) uses for
// named namespaces (defaults.NetnsDir in production).
func New(gw netlinkgw.Gateway, inspectors []container.Inspector, netnsDir string) *Registry {
	return &Registry{
		gw:         gw,
		inspectors: inspectors,
		netnsDir:   netnsDir,
		containers: make(map[string]tcproto.ContainerRecord),
	}
}

// Refresh re-scans named namespaces and every configured inspector, then
// atomically replaces the registry's view. It is safe to call concurrently
// with itself only in the sense that calls serialize on the write lock;
// callers (InterfaceService's discovery loop) are expected to call it from
// a single goroutine.
func (r *Registry) Refresh(ctx context.Context) {
	log := logging.Component("registry")

	named := r.probeNamedNamespaces()

	containers := make(map[string]tcproto.ContainerRecord)
	for _, insp := range r.inspectors {
		records, err := insp.List(ctx)
		if err != nil {
			log.Warn("container inspector unavailable", "runtime", insp.Runtime(), "error", err)
			continue
		}
		for _, rec := range records {
			containers[rec.Name] = rec
		}
	}

	r.mu.Lock()
	previous := r.containers
	r.named = named
	r.containers = containers
	r.mu.Unlock()

	for name, rec := range containers {
		r.gw.RegisterContainerNamespace(name, rec.NamespacePath)
		delete(previous, name)
	}
	for name := range previous {
		r.gw.ForgetContainerNamespace(name)
	}
}

// probeNamedNamespaces lists entries in netnsDir and keeps only the ones a
// link-list probe can actually open, matching the "a probe open that
// succeeds counts as accessible" rule.
func (r *Registry) probeNamedNamespaces() []string {
	entries, err := os.ReadDir(r.netnsDir)
	if err != nil {
		return nil
	}
	var named []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := filepath.Base(e.Name())
		if _, err := r.gw.ListLinks(tcproto.Named(name)); err != nil {
			continue
		}
		named = append(named, name)
	}
	return named
}

// Namespaces returns every namespace key currently known: the default
// namespace, every accessible named namespace, and one key per running
// container.
func (r *Registry) Namespaces() []tcproto.NamespaceKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]tcproto.NamespaceKey, 0, 1+len(r.named)+len(r.containers))
	keys = append(keys, tcproto.Default())
	for _, n := range r.named {
		keys = append(keys, tcproto.Named(n))
	}
	for name := range r.containers {
		keys = append(keys, tcproto.Container(name))
	}
	return keys
}

// Containers returns a read-only snapshot of the current container cache,
// keyed by container name.
func (r *Registry) Containers() map[string]tcproto.ContainerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]tcproto.ContainerRecord, len(r.containers))
	for k, v := range r.containers {
		out[k] = v
	}
	return out
}

// ContainerByName looks up a single container's record.
func (r *Registry) ContainerByName(name string) (tcproto.ContainerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.containers[name]
	return rec, ok
}
