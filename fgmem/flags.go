package fgmem

import "github.com/vkngwrapper/core/v2/common"

type CreateFlags int32

var createFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	createFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return createFlagsMapping.FlagsToString(f)
}

const (
	// PoolCreateExternallySynchronized indicates that the caller guarantees all
	// Pool methods are externally serialized, allowing the Pool to skip its
	// internal locking entirely. With this flag set, concurrent calls are a
	// data race.
	PoolCreateExternallySynchronized CreateFlags = 1 << iota
	// PoolCreateDisableAliasing starts the pool with alias matching turned off.
	// Registration and release bookkeeping still run, so EnableAliasing(true)
	// later picks up the full candidate pool.
	PoolCreateDisableAliasing
)

func init() {
	PoolCreateExternallySynchronized.Register("PoolCreateExternallySynchronized")
	PoolCreateDisableAliasing.Register("PoolCreateDisableAliasing")
}
