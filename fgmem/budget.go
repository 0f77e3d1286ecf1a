package fgmem

import (
	"math"

	"github.com/dolthub/swiss"
)

// BudgetCategory names a class of allocations that shares one usage ceiling.
type BudgetCategory uint32

const (
	BudgetHostMemory BudgetCategory = iota
	BudgetDeviceMemory
	BudgetCommandBuffers
	BudgetDescriptors
	BudgetUserDefined
)

var budgetCategoryMapping = map[BudgetCategory]string{
	BudgetHostMemory:     "HostMemory",
	BudgetDeviceMemory:   "DeviceMemory",
	BudgetCommandBuffers: "CommandBuffers",
	BudgetDescriptors:    "Descriptors",
	BudgetUserDefined:    "UserDefined",
}

func (c BudgetCategory) String() string {
	str, ok := budgetCategoryMapping[c]
	if !ok {
		return "unknown"
	}
	return str
}

const (
	// defaultWarningFraction and defaultCriticalFraction are applied when a
	// BudgetEntry leaves its thresholds at zero.
	defaultWarningFraction  float32 = 0.75
	defaultCriticalFraction float32 = 0.9
)

// BudgetEntry configures one category's ceiling. A BudgetBytes of 0 means
// unlimited: usage is still tracked but nothing is ever refused or flagged.
type BudgetEntry struct {
	// BudgetBytes is the usage ceiling, or 0 for unlimited
	BudgetBytes int
	// WarningFraction and CriticalFraction are usage fractions of BudgetBytes
	// at which the usage snapshot flags OverWarning/OverCritical. Zero values
	// default to 0.75 and 0.9.
	WarningFraction  float32
	CriticalFraction float32
	// Strict makes TryAllocate refuse admissions that would exceed
	// BudgetBytes. When false the manager is lenient: the allocation is
	// admitted and the overage is visible only through GetUsage.
	Strict bool
}

// BudgetUsage is a point-in-time snapshot of one category.
type BudgetUsage struct {
	BudgetBytes int
	UsedBytes   int
	PeakBytes   int
	Strict      bool

	OverBudget   bool
	OverWarning  bool
	OverCritical bool
}

type budgetState struct {
	entry BudgetEntry
	used  int
	peak  int
}

func (s *budgetState) snapshot() BudgetUsage {
	usage := BudgetUsage{
		BudgetBytes: s.entry.BudgetBytes,
		UsedBytes:   s.used,
		PeakBytes:   s.peak,
		Strict:      s.entry.Strict,
	}

	if s.entry.BudgetBytes <= 0 {
		return usage
	}

	warning := s.entry.WarningFraction
	if warning == 0 {
		warning = defaultWarningFraction
	}
	critical := s.entry.CriticalFraction
	if critical == 0 {
		critical = defaultCriticalFraction
	}

	used := float32(s.used)
	budget := float32(s.entry.BudgetBytes)
	usage.OverBudget = s.used > s.entry.BudgetBytes
	usage.OverWarning = used > budget*warning
	usage.OverCritical = used > budget*critical
	return usage
}

// BudgetManager tracks per-category usage against configured ceilings. It is
// the sole source of truth for used bytes: the AliasingEngine and Profiler
// observe allocations but never mutate budget state. The manager itself never
// logs and never returns errors - refusals are plain booleans and overage is
// exposed only through snapshots, which keeps it trivially testable and safe
// on the per-frame path.
type BudgetManager struct {
	categories *swiss.Map[BudgetCategory, *budgetState]
	custom     *swiss.Map[string, *budgetState]
}

func NewBudgetManager() *BudgetManager {
	return &BudgetManager{
		categories: swiss.NewMap[BudgetCategory, *budgetState](8),
		custom:     swiss.NewMap[string, *budgetState](8),
	}
}

// SetBudget replaces the configuration for a category. Usage already recorded
// against the category is preserved.
func (m *BudgetManager) SetBudget(category BudgetCategory, entry BudgetEntry) {
	m.stateFor(category).entry = entry
}

// SetCustomBudget is SetBudget for a caller-defined string category.
func (m *BudgetManager) SetCustomBudget(category string, entry BudgetEntry) {
	m.customStateFor(category).entry = entry
}

// GetBudget returns the configured entry for a category, if one was set.
func (m *BudgetManager) GetBudget(category BudgetCategory) (BudgetEntry, bool) {
	state, ok := m.categories.Get(category)
	if !ok {
		return BudgetEntry{}, false
	}
	return state.entry, true
}

// GetUsage returns a snapshot for a category. Unknown categories yield a
// zero-valued snapshot, never an error.
func (m *BudgetManager) GetUsage(category BudgetCategory) BudgetUsage {
	state, ok := m.categories.Get(category)
	if !ok {
		return BudgetUsage{}
	}
	return state.snapshot()
}

// GetCustomUsage is GetUsage for a caller-defined string category.
func (m *BudgetManager) GetCustomUsage(category string) BudgetUsage {
	state, ok := m.custom.Get(category)
	if !ok {
		return BudgetUsage{}
	}
	return state.snapshot()
}

// TryAllocate is the admission check: it reports whether an allocation of
// bytes may proceed in the category. Only a strict, over-budget category
// refuses; a lenient one admits and lets the overage surface in GetUsage.
// TryAllocate never mutates usage - callers that proceed must follow up with
// RecordAllocation.
func (m *BudgetManager) TryAllocate(category BudgetCategory, bytes int) bool {
	return admit(m.stateFor(category), bytes)
}

// TryAllocateCustom is TryAllocate for a caller-defined string category.
func (m *BudgetManager) TryAllocateCustom(category string, bytes int) bool {
	return admit(m.customStateFor(category), bytes)
}

func admit(state *budgetState, bytes int) bool {
	if state.entry.BudgetBytes <= 0 {
		return true
	}
	if state.used+bytes <= state.entry.BudgetBytes {
		return true
	}
	return !state.entry.Strict
}

// RecordAllocation adds bytes to the category's usage.
func (m *BudgetManager) RecordAllocation(category BudgetCategory, bytes int) {
	record(m.stateFor(category), bytes)
}

// RecordAllocationCustom is RecordAllocation for a string category.
func (m *BudgetManager) RecordAllocationCustom(category string, bytes int) {
	record(m.customStateFor(category), bytes)
}

func record(state *budgetState, bytes int) {
	state.used += bytes
	if state.used > state.peak {
		state.peak = state.used
	}
}

// RecordDeallocation subtracts bytes from the category's usage. Usage is
// clamped at zero so an over-reported release cannot drive it negative.
func (m *BudgetManager) RecordDeallocation(category BudgetCategory, bytes int) {
	state, ok := m.categories.Get(category)
	if !ok {
		return
	}
	release(state, bytes)
}

// RecordDeallocationCustom is RecordDeallocation for a string category.
func (m *BudgetManager) RecordDeallocationCustom(category string, bytes int) {
	state, ok := m.custom.Get(category)
	if !ok {
		return
	}
	release(state, bytes)
}

func release(state *budgetState, bytes int) {
	state.used -= bytes
	if state.used < 0 {
		state.used = 0
	}
}

// AvailableBytes reports how much room remains under the category's ceiling,
// or math.MaxInt when the category is unlimited.
func (m *BudgetManager) AvailableBytes(category BudgetCategory) int {
	state, ok := m.categories.Get(category)
	if !ok || state.entry.BudgetBytes <= 0 {
		return math.MaxInt
	}
	if state.used >= state.entry.BudgetBytes {
		return 0
	}
	return state.entry.BudgetBytes - state.used
}

// Clear drops all configuration and usage for every category.
func (m *BudgetManager) Clear() {
	m.categories = swiss.NewMap[BudgetCategory, *budgetState](8)
	m.custom = swiss.NewMap[string, *budgetState](8)
}

func (m *BudgetManager) stateFor(category BudgetCategory) *budgetState {
	state, ok := m.categories.Get(category)
	if !ok {
		state = &budgetState{}
		m.categories.Put(category, state)
	}
	return state
}

func (m *BudgetManager) customStateFor(category string) *budgetState {
	state, ok := m.custom.Get(category)
	if !ok {
		state = &budgetState{}
		m.custom.Put(category, state)
	}
	return state
}
