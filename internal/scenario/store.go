// Package scenario loads and validates scenario definitions: built-in
// templates plus YAML files beneath one or more configured directories, with
// directory watching so files added, edited, or removed after startup are
// picked up without a restart.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"tcmesh/internal/logging"
	"tcmesh/internal/tcproto"
)

// Store holds the current snapshot of loaded scenarios and load errors. A
// reload replaces the snapshot atomically; readers never see a partial
// directory's worth of scenarios.
type Store struct {
	dirs []string

	mu         sync.RWMutex
	scenarios  map[string]tcproto.Scenario
	loadErrors []tcproto.LoadError

	watcher *fsnotify.Watcher
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Store over dirs (scanned immediately) plus the built-in
// scenario set, and starts watching dirs for changes.
func New(dirs []string) (*Store, error) {
	s := &Store{dirs: dirs, stop: make(chan struct{})}
	s.reloadAll()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scenario store: create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logging.Component("scenario").Warn("cannot watch scenario directory", "dir", dir, "error", err)
		}
	}
	s.watcher = watcher

	s.wg.Add(1)
	go s.watchLoop()
	return s, nil
}

// Close stops the directory watcher.
func (s *Store) Close() error {
	close(s.stop)
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

func (s *Store) watchLoop() {
	defer s.wg.Done()
	log := logging.Component("scenario")
	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Info("scenario directory changed, reloading", "event", ev.String())
			s.reloadAll()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("scenario watcher error", "error", err)
		}
	}
}

// reloadAll re-scans every configured directory plus the built-ins and
// atomically replaces the store's snapshot.
func (s *Store) reloadAll() {
	scenarios := make(map[string]tcproto.Scenario)
	var loadErrors []tcproto.LoadError

	for _, sc := range builtins() {
		scenarios[sc.ID] = sc
	}

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !isScenarioFile(e.Name()) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			sc, loadErr := loadFile(path)
			if loadErr != nil {
				loadErrors = append(loadErrors, *loadErr)
				continue
			}
			if _, dup := scenarios[sc.ID]; dup {
				loadErrors = append(loadErrors, tcproto.LoadError{
					FilePath: path,
					Message:  fmt.Sprintf("duplicate scenario id %q", sc.ID),
					Category: tcproto.LoadErrorValidate,
				})
				continue
			}
			scenarios[sc.ID] = *sc
		}
	}

	s.mu.Lock()
	s.scenarios = scenarios
	s.loadErrors = loadErrors
	s.mu.Unlock()
}

func isScenarioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// loadFile parses and validates one scenario file, returning either the
// scenario or a LoadError -- never both.
func loadFile(path string) (*tcproto.Scenario, *tcproto.LoadError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &tcproto.LoadError{FilePath: path, Message: err.Error(), Category: tcproto.LoadErrorParse}
	}

	// yaml.v3 ignores json tags, so the document is decoded generically and
	// re-encoded as JSON: the file's keys are the scenario's json field names.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &tcproto.LoadError{FilePath: path, Message: err.Error(), Category: tcproto.LoadErrorParse}
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, &tcproto.LoadError{FilePath: path, Message: err.Error(), Category: tcproto.LoadErrorParse}
	}
	var sc tcproto.Scenario
	if err := json.Unmarshal(js, &sc); err != nil {
		return nil, &tcproto.LoadError{FilePath: path, Message: err.Error(), Category: tcproto.LoadErrorParse}
	}

	if err := Validate(&sc); err != nil {
		return nil, &tcproto.LoadError{FilePath: path, Message: err.Error(), Category: tcproto.LoadErrorValidate}
	}
	return &sc, nil
}

// Validate enforces the §4.9 rejection-time invariants and recomputes
// TotalDurationMs in place.
func Validate(sc *tcproto.Scenario) error {
	if strings.TrimSpace(sc.ID) == "" {
		return fmt.Errorf("scenario id must not be empty")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %q: steps must not be empty", sc.ID)
	}
	if !sc.StepsOrdered() {
		return fmt.Errorf("scenario %q: steps must be ordered by at_offset_ms", sc.ID)
	}
	for i, step := range sc.Steps {
		if err := step.Config.Validate(); err != nil {
			return fmt.Errorf("scenario %q: step %d: %w", sc.ID, i, err)
		}
	}
	sc.Recalculate()
	return nil
}

// List returns every loaded scenario (optionally filtered by tag) and the
// current load errors.
func (s *Store) List(tag string) ([]tcproto.Scenario, []tcproto.LoadError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tcproto.Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		if tag != "" && !hasTag(sc, tag) {
			continue
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	errs := append([]tcproto.LoadError(nil), s.loadErrors...)
	return out, errs
}

// Get returns a single scenario by ID.
func (s *Store) Get(id string) (tcproto.Scenario, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[id]
	return sc, ok
}

func hasTag(sc tcproto.Scenario, tag string) bool {
	for _, t := range sc.Metadata.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
