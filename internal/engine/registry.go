package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sqlsentry/sqlsentry/internal/migration"
)

// Registry holds the available enhancement modules, split by category and
// kept sorted by descending priority.
type Registry struct {
	byID   map[string]Module
	safety []Module
	speed  []Module

	mu       sync.Mutex
	analyses map[string]string
}

// NewRegistry builds a registry from the given modules. Later registrations
// with a duplicate ID replace earlier ones.
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{
		byID:     make(map[string]Module),
		analyses: make(map[string]string),
	}
	for _, m := range modules {
		r.Register(m)
	}
	return r
}

// Register adds a module to the registry.
func (r *Registry) Register(m Module) {
	meta := m.Metadata()
	if _, exists := r.byID[meta.ID]; exists {
		r.safety = removeModule(r.safety, meta.ID)
		r.speed = removeModule(r.speed, meta.ID)
	}
	r.byID[meta.ID] = m

	switch meta.Category {
	case CategorySpeed:
		r.speed = insertByPriority(r.speed, m)
	default:
		r.safety = insertByPriority(r.safety, m)
	}
}

// Get returns the module with the given ID.
func (r *Registry) Get(id string) (Module, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Safety returns the safety modules in priority order.
func (r *Registry) Safety() []Module { return r.safety }

// Speed returns the speed modules in priority order.
func (r *Registry) Speed() []Module { return r.speed }

// All returns every registered module, safety before speed.
func (r *Registry) All() []Module {
	out := make([]Module, 0, len(r.safety)+len(r.speed))
	out = append(out, r.safety...)
	out = append(out, r.speed...)
	return out
}

// detection pairs a module with the outcome of its Detect call.
type detection struct {
	meta       Metadata
	applicable bool
	err        error
}

// Detect runs every module's Detect concurrently and returns the metadata of
// applicable modules in priority order. A module that fails detection is
// treated as not applicable; its error is returned as a warning so one bad
// module never sinks the rest.
func (r *Registry) Detect(file migration.File) (applicable []Metadata, warnings []string) {
	modules := r.All()
	results := make([]detection, len(modules))

	var wg sync.WaitGroup
	for i, m := range modules {
		wg.Add(1)
		go func(i int, m Module) {
			defer wg.Done()
			meta := m.Metadata()
			ok, err := safeDetect(m, file)
			results[i] = detection{meta: meta, applicable: ok && err == nil, err: err}
		}(i, m)
	}
	wg.Wait()

	for _, res := range results {
		if res.err != nil {
			warnings = append(warnings, fmt.Sprintf("module %s: detection failed: %v", res.meta.ID, res.err))
			continue
		}
		if res.applicable {
			applicable = append(applicable, res.meta)
		}
	}
	return applicable, warnings
}

// Analyze returns the module's analysis of a migration, cached per module,
// migration name, and content length so repeated CLI calls stay cheap.
func (r *Registry) Analyze(id string, file migration.File) (string, error) {
	m, ok := r.byID[id]
	if !ok {
		return "", fmt.Errorf("unknown enhancement module: %s", id)
	}

	key := fmt.Sprintf("%s:%s:%d", id, file.Name, len(file.Up))

	r.mu.Lock()
	if cached, ok := r.analyses[key]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	analysis, err := safeAnalyze(m, file)
	if err != nil {
		return "", fmt.Errorf("module %s: %w", id, err)
	}

	r.mu.Lock()
	r.analyses[key] = analysis
	r.mu.Unlock()

	return analysis, nil
}

// Apply runs the selected modules over the migration's up SQL in descending
// priority order. The caller's File is never mutated: each module sees the
// previous module's output via the content argument. Unknown IDs and module
// failures are skipped with a warning.
func (r *Registry) Apply(file migration.File, ids []string) (content string, applied []string, warnings []string) {
	var selected []Module
	for _, id := range ids {
		m, ok := r.byID[id]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown enhancement module: %s", id))
			continue
		}
		selected = append(selected, m)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Metadata().Priority > selected[j].Metadata().Priority
	})

	content = file.Up
	for _, m := range selected {
		meta := m.Metadata()
		next, err := safeApply(m, content, file)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("module %s: apply failed: %v", meta.ID, err))
			continue
		}
		content = next
		applied = append(applied, meta.ID)
	}
	return content, applied, warnings
}

// safeDetect runs a module's Detect with panic capture. Module code is not
// trusted to be well behaved; a panic surfaces as an ordinary detection error
// instead of taking the process down.
func safeDetect(m Module, file migration.File) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.Detect(file)
}

func safeAnalyze(m Module, file migration.File) (analysis string, err error) {
	defer func() {
		if r := recover(); r != nil {
			analysis = ""
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.Analyze(file)
}

func safeApply(m Module, content string, file migration.File) (next string, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = ""
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.Apply(content, file)
}

func insertByPriority(list []Module, m Module) []Module {
	list = append(list, m)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Metadata().Priority > list[j].Metadata().Priority
	})
	return list
}

func removeModule(list []Module, id string) []Module {
	out := list[:0]
	for _, m := range list {
		if m.Metadata().ID != id {
			out = append(out, m)
		}
	}
	return out
}
