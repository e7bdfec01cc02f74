package expr

import (
	"fmt"
	"sync"

	"github.com/wnxd/microdbg/materializer"
)

// PersistentVariableStore is a minimal in-memory $-variable store.
// materializer only ever needs a materializer.PersistentStore collaborator
// to hand a ResultEntity a freshly-named record; it never reads the store
// back itself (§1's out-of-scope list includes persistent-variable
// storage). This is the store a complete evaluator needs to keep a result
// around past the call that produced it.
type PersistentVariableStore struct {
	mu      sync.Mutex
	counter int
	vars    map[string]*materializer.PersistentVariableRecord
}

func NewPersistentVariableStore() *PersistentVariableStore {
	return &PersistentVariableStore{vars: make(map[string]*materializer.PersistentVariableRecord)}
}

func (s *PersistentVariableStore) NextPersistentVariableName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return fmt.Sprintf("$%d", s.counter)
}

func (s *PersistentVariableStore) CreateVariable(scope materializer.ExecutionScope, name string, typ materializer.ValueType, order materializer.ByteOrder, addrSize int) *materializer.PersistentVariableRecord {
	record := &materializer.PersistentVariableRecord{Name: name, Type: typ, ByteOrder: order}
	s.mu.Lock()
	s.vars[name] = record
	s.mu.Unlock()
	return record
}

// Lookup returns a previously created persistent variable by name, for a
// later expression to reference (e.g. a user typing "$1" again).
func (s *PersistentVariableStore) Lookup(name string) (*materializer.PersistentVariableRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.vars[name]
	return r, ok
}

// Forget drops a persistent variable, freeing whatever the caller wants to
// reclaim first.
func (s *PersistentVariableStore) Forget(name string) {
	s.mu.Lock()
	delete(s.vars, name)
	s.mu.Unlock()
}

// Len reports how many persistent variables are currently tracked.
func (s *PersistentVariableStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vars)
}
