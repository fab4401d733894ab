package session

// NewMemory returns a Store that lives only as long as the process.
func NewMemory() *Store {
	return &Store{backend: &memoryBackend{}}
}

type memoryBackend struct {
	state State
}

func (m *memoryBackend) load() (State, error) {
	st := m.state
	st.Buffer.Guesses = append([]int(nil), st.Buffer.Guesses...)
	return st, nil
}

func (m *memoryBackend) save(st State) error {
	m.state = st
	return nil
}
