package backend

// MemoryBackend keeps the payload in an in-process byte slice.
type MemoryBackend struct {
	data []byte
}

// NewMemory creates an empty memory backend
func NewMemory() *MemoryBackend {
	return &MemoryBackend{data: []byte{}}
}

// GetData returns a copy of the buffer
func (m *MemoryBackend) GetData() ([]byte, error) {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// PutData replaces the buffer with a copy of data
func (m *MemoryBackend) PutData(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.data = buf
	return nil
}
