package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func IsPow2[T Number](number T) bool {
	return number&(number-1) == 0
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// IsAligned reports whether value is a multiple of alignment. An alignment of
// 0 or 1 means no alignment requirement.
func IsAligned(value int, alignment uint) bool {
	if alignment <= 1 {
		return true
	}
	return value%int(alignment) == 0
}
