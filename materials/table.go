package materials

import (
	"fmt"
	"sync"
)

// Table owns the materials of the engine. Draw items refer to them by id.
type Table struct {
	mu   sync.RWMutex
	mats map[uint32]*Material
}

func NewTable() *Table {
	return &Table{mats: map[uint32]*Material{}}
}

func (t *Table) Add(m *Material) uint32 {

	t.mu.Lock()
	defer t.mu.Unlock()

	t.mats[m.Id] = m
	return m.Id
}

func (t *Table) Get(id uint32) (*Material, error) {

	t.mu.RLock()
	defer t.mu.RUnlock()

	m, ok := t.mats[id]
	if !ok {
		return nil, fmt.Errorf("material with id %d does not exist", id)
	}

	return m, nil
}

func (t *Table) Remove(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.mats, id)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mats)
}
