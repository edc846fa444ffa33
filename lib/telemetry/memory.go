package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call recorded by MemoryAPI.
type Report struct {
	Level  string
	Id     string
	Params []any
}

// MemoryAPI records every report, it is meant for tests that assert on telemetry.
type MemoryAPI struct {
	mu      sync.Mutex
	reports []Report
}

func (m *MemoryAPI) add(level, id string, params []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, Report{Level: level, Id: id, Params: params})
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.add("broken", id, params)
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.add("warning", id, params)
}

func (m *MemoryAPI) ReportDebug(msg string, params ...any) {
	m.add("debug", msg, params)
}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.add("count", id, []any{count})
}

// Reports returns the recorded reports of the given level whose id contains `substr`.
func (m *MemoryAPI) Reports(level, substr string) []Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Report
	for _, r := range m.reports {
		if r.Level == level && strings.Contains(r.Id, substr) {
			out = append(out, r)
		}
	}
	return out
}

func (r Report) String() string {
	return fmt.Sprintf("[%s] %s %v", r.Level, r.Id, r.Params)
}
