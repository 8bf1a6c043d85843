package memfile

import "fmt"

// DebugString renders the handle state on one line, for logs and bug
// reports. It never touches the lock.
func (m *MemFile) DebugString() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	link := "<raw>"
	if m.linkPath != "" {
		link = m.linkPath
	}
	return fmt.Sprintf("memfile{identifier:%q link:%s owner:%t kind:%s size:%d attached:%t}",
		m.identifier, link, m.owner, m.kind, m.size, m.region != nil)
}
