package zlog

import "sync"

// categoryTable owns the live name -> *Category bindings, built lazily
// from the active configuration's rule list. A reload does not stage or
// rebind existing Category values: it swaps in the new configuration and
// calls reset under the facade's write lock, so each name is rebuilt on
// its next fetch. A *Category obtained before the reload keeps its old
// rule list and bitmap. A reload whose configuration fails to build never
// reaches reset, so the table is left as it was.
type categoryTable struct {
	mu    sync.RWMutex
	table map[string]*Category
}

func newCategoryTable() *categoryTable {
	return &categoryTable{table: make(map[string]*Category)}
}

// fetch returns the Category bound to name, building and memoizing it
// from cfg.Rules on first use. Categories are derived lazily rather than
// eagerly enumerated at config-build time because the category
// namespace is open — any string a caller passes to Log is a valid
// category, per spec §4.3.
func (t *categoryTable) fetch(name string, cfg *Configuration) *Category {
	t.mu.RLock()
	c, ok := t.table[name]
	t.mu.RUnlock()
	if ok {
		return c
	}

	matched := make([]*Rule, 0, 4)
	for _, r := range cfg.Rules {
		if categoryMatches(r.CategoryGlob, name) {
			matched = append(matched, r)
		}
	}
	c = newCategory(name, matched)

	t.mu.Lock()
	if existing, ok := t.table[name]; ok {
		t.mu.Unlock()
		return existing
	}
	t.table[name] = c
	t.mu.Unlock()
	return c
}

// reset discards every memoized category binding. Called once per
// successful reload (under the facade's write lock) so the next fetch
// for each name rebuilds against the new configuration's rule list
// instead of serving a stale binding forever (spec §4.5: "every category
// previously bound must be rebound against the new rule list").
func (t *categoryTable) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.table = make(map[string]*Category)
}
