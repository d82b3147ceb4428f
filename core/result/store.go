package result

import "sync"

// SheetStore keeps the edit state of every user. Loading a new selection replaces,
// and so discards, the previous sheet of that user.
//
// The in-flight save flag belongs to the user, not to a sheet, so a reload cannot
// admit a second save while the first one is still running.
type SheetStore struct {
	mu     sync.Mutex
	sheets map[string]*Sheet
	saving map[string]bool
}

func NewSheetStore() *SheetStore {
	return &SheetStore{sheets: make(map[string]*Sheet), saving: make(map[string]bool)}
}

func (s *SheetStore) put(userID string, sh *Sheet) {
	s.mu.Lock()
	sh.Saving = s.saving[userID]
	s.sheets[userID] = sh
	s.mu.Unlock()
}

// discard drops the sheet of userID. A pending save keeps its flag.
func (s *SheetStore) discard(userID string) {
	s.mu.Lock()
	delete(s.sheets, userID)
	s.mu.Unlock()
}

// view runs fn on the sheet of userID under the store lock.
func (s *SheetStore) view(userID string, fn func(sh *Sheet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[userID]
	if !ok {
		return ErrNoSheet
	}
	sh.Saving = s.saving[userID]
	return fn(sh)
}

// beginSave flags a save for userID and returns the sheet being saved with a snapshot of it.
func (s *SheetStore) beginSave(userID string) (*Sheet, Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[userID]
	if !ok {
		return nil, Sheet{}, ErrNoSheet
	}
	if s.saving[userID] {
		return nil, Sheet{}, ErrSaveInProgress
	}
	s.saving[userID] = true
	sh.Saving = true
	return sh, sh.copy(), nil
}

func (s *SheetStore) endSave(userID string) {
	s.mu.Lock()
	delete(s.saving, userID)
	if sh, ok := s.sheets[userID]; ok {
		sh.Saving = false
	}
	s.mu.Unlock()
}

// current reports whether sh is still the sheet of userID. The caller holds mu.
func (s *SheetStore) current(userID string, sh *Sheet) bool {
	return s.sheets[userID] == sh
}
