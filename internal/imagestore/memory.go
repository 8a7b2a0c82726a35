package imagestore

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"kasirbutik/backend/internal/xid"
)

// Memory keeps uploads in process and hands out memory:// URLs. It backs
// local runs without object storage credentials.
type Memory struct {
	mu      sync.Mutex
	folder  string
	objects map[string][]byte
}

func NewMemory(folder string) *Memory {
	return &Memory{folder: folder, objects: make(map[string][]byte)}
}

func (m *Memory) Upload(_ context.Context, filename string, content []byte) (string, error) {
	url := "memory://" + m.folder + "/" + xid.New("img") + filepath.Ext(filename)
	m.mu.Lock()
	m.objects[url] = slices.Clone(content)
	m.mu.Unlock()
	return url, nil
}

func (m *Memory) Object(url string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.objects[url]
	return content, ok
}
