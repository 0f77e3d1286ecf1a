package vulkan

import (
	"github.com/Lint111/framealloc/fgmem"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/extensions/v2/ext_memory_budget"
	"golang.org/x/exp/slog"
)

// MemoryPropertiesSource is the slice of the instance-scoped physical device
// surface the budget query needs. Promoted core 1.1 physical devices satisfy
// it.
type MemoryPropertiesSource interface {
	MemoryProperties2(out *core1_1.PhysicalDeviceMemoryProperties2) error
}

// BudgetQuery resolves how much device-local memory this process should plan
// around, preferring the driver-reported budget from ext_memory_budget and
// falling back to a fixed fraction of the raw heap sizes when the extension
// is unavailable.
type BudgetQuery struct {
	logger *slog.Logger

	physicalDevice  core1_0.PhysicalDevice
	properties2     MemoryPropertiesSource
	useMemoryBudget bool
}

// fallbackBudgetNumerator/Denominator derive a budget from raw heap size when
// the driver reports none. 80% mirrors what drivers commonly report for an
// otherwise idle device.
const (
	fallbackBudgetNumerator   = 8
	fallbackBudgetDenominator = 10
)

// NewBudgetQuery probes the device for budget support. The properties2 source
// may be nil when core 1.1 is unavailable and khr_get_physical_device_properties2
// is inactive; ext_memory_budget requires it, so a nil source always falls
// back to heap-fraction budgets.
func NewBudgetQuery(logger *slog.Logger, physicalDevice core1_0.PhysicalDevice, device core1_0.Device, properties2 MemoryPropertiesSource) *BudgetQuery {
	if logger == nil {
		logger = slog.Default()
	}

	query := &BudgetQuery{
		logger:         logger,
		physicalDevice: physicalDevice,
		properties2:    properties2,
	}

	if properties2 != nil && device.IsDeviceExtensionActive(ext_memory_budget.ExtensionName) {
		query.useMemoryBudget = true
	}

	return query
}

// DeviceLocalBudgetBytes sums the budget across all device-local heaps.
func (q *BudgetQuery) DeviceLocalBudgetBytes() (int, error) {
	memoryProperties := q.physicalDevice.MemoryProperties()

	if !q.useMemoryBudget {
		return q.fallbackBudget(memoryProperties), nil
	}

	var budgetProperties ext_memory_budget.PhysicalDeviceMemoryBudgetProperties
	properties := core1_1.PhysicalDeviceMemoryProperties2{
		NextOutData: common.NextOutData{Next: &budgetProperties},
	}
	err := q.properties2.MemoryProperties2(&properties)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to query memory budget properties")
	}

	var total int
	for heapIndex, heap := range memoryProperties.MemoryHeaps {
		if heap.Flags&core1_0.MemoryHeapDeviceLocal == 0 {
			continue
		}
		total += budgetProperties.HeapBudget[heapIndex]
	}
	return total, nil
}

func (q *BudgetQuery) fallbackBudget(memoryProperties *core1_0.PhysicalDeviceMemoryProperties) int {
	var total int
	for _, heap := range memoryProperties.MemoryHeaps {
		if heap.Flags&core1_0.MemoryHeapDeviceLocal == 0 {
			continue
		}
		total += heap.Size * fallbackBudgetNumerator / fallbackBudgetDenominator
	}
	return total
}

// SeedPoolBudget queries the device-local budget and installs it as the pool's
// device memory ceiling. Strict admission stays with the caller's entry
// defaults: the seeded budget is lenient, surfacing overage through snapshots.
func (q *BudgetQuery) SeedPoolBudget(pool *fgmem.Pool) error {
	q.logger.Debug("BudgetQuery::SeedPoolBudget")

	budgetBytes, err := q.DeviceLocalBudgetBytes()
	if err != nil {
		return err
	}

	pool.SetBudget(fgmem.BudgetDeviceMemory, fgmem.BudgetEntry{
		BudgetBytes: budgetBytes,
	})
	return nil
}
