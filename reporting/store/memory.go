// Package store provides ConfigStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/report-engine/reporting"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	configs map[reporting.ConfigID]*reporting.ReportConfiguration
	names   map[string]reporting.ConfigID
	nextID  int64 // child id sequence, shared across configs like a rowid
}

func NewMemory() *Memory {
	return &Memory{
		configs: make(map[reporting.ConfigID]*reporting.ReportConfiguration),
		names:   make(map[string]reporting.ConfigID),
	}
}

// Add stores a new configuration, allocating the id, child ids, and a single
// timestamp for both CreatedAt and UpdatedAt.
func (m *Memory) Add(_ context.Context, cfg reporting.ReportConfiguration) (reporting.ConfigID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.names[cfg.Name]; taken {
		return "", reporting.ErrNameConflict
	}

	cfg.ID = reporting.ConfigID(uuid.NewString())
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	m.assignChildIDs(&cfg)

	m.configs[cfg.ID] = &cfg
	m.names[cfg.Name] = cfg.ID
	return cfg.ID, nil
}

func (m *Memory) Get(_ context.Context, id reporting.ConfigID) (*reporting.ReportConfiguration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.configs[id]
	if !ok {
		return nil, nil
	}
	out := cloneConfig(cfg)
	return &out, nil
}

func (m *Memory) List(_ context.Context, p reporting.Principal, includeSystem bool) ([]reporting.ConfigSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []reporting.ConfigSummary
	for _, cfg := range m.configs {
		owned := cfg.CreatedBy != "" && cfg.CreatedBy == p.UserID
		switch {
		case owned && (!cfg.IsSystem || includeSystem):
		case cfg.IsSystem && includeSystem:
		default:
			continue
		}
		out = append(out, reporting.ConfigSummary{
			ID:           cfg.ID,
			Name:         cfg.Name,
			Description:  cfg.Description,
			TargetEntity: cfg.TargetEntity,
			OutputFormat: cfg.OutputFormat,
			CreatedBy:    cfg.CreatedBy,
			IsSystem:     cfg.IsSystem,
			CreatedAt:    cfg.CreatedAt,
			UpdatedAt:    cfg.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Update(_ context.Context, id reporting.ConfigID, patch reporting.ConfigPatch) (*reporting.ReportConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[id]
	if !ok {
		return nil, nil
	}

	if patch.Name != nil && *patch.Name != cfg.Name {
		if _, taken := m.names[*patch.Name]; taken {
			return nil, reporting.ErrNameConflict
		}
		delete(m.names, cfg.Name)
		cfg.Name = *patch.Name
		m.names[cfg.Name] = id
	}
	if patch.Description != nil {
		cfg.Description = *patch.Description
	}
	if patch.TargetEntity != nil {
		cfg.TargetEntity = *patch.TargetEntity
	}
	if patch.OutputFormat != nil {
		cfg.OutputFormat = *patch.OutputFormat
	}
	if patch.Fields != nil {
		cfg.Fields = append([]reporting.ReportField(nil), (*patch.Fields)...)
	}
	if patch.Filters != nil {
		cfg.Filters = append([]reporting.ReportFilter(nil), (*patch.Filters)...)
	}
	m.assignChildIDs(cfg)
	cfg.UpdatedAt = time.Now().UTC()

	out := cloneConfig(cfg)
	return &out, nil
}

func (m *Memory) Delete(_ context.Context, id reporting.ConfigID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[id]
	if !ok {
		return false, nil
	}
	delete(m.names, cfg.Name)
	delete(m.configs, id)
	return true, nil
}

// assignChildIDs gives every child a fresh ascending id (payload order) and
// re-sorts fields into the contractual (sort_order, id) ordering.
func (m *Memory) assignChildIDs(cfg *reporting.ReportConfiguration) {
	for i := range cfg.Fields {
		m.nextID++
		cfg.Fields[i].ID = reporting.ChildID(m.nextID)
	}
	for i := range cfg.Filters {
		m.nextID++
		cfg.Filters[i].ID = reporting.ChildID(m.nextID)
	}
	sort.SliceStable(cfg.Fields, func(i, j int) bool {
		if cfg.Fields[i].SortOrder != cfg.Fields[j].SortOrder {
			return cfg.Fields[i].SortOrder < cfg.Fields[j].SortOrder
		}
		return cfg.Fields[i].ID < cfg.Fields[j].ID
	})
}

func cloneConfig(cfg *reporting.ReportConfiguration) reporting.ReportConfiguration {
	out := *cfg
	out.Fields = append([]reporting.ReportField(nil), cfg.Fields...)
	out.Filters = append([]reporting.ReportFilter(nil), cfg.Filters...)
	return out
}
