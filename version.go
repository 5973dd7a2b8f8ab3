package transfer

import "sync/atomic"

// Version is an opaque change stamp. Two equal versions mean "possibly
// unchanged"; two different versions mean "possibly changed". It carries no
// arithmetic meaning beyond inequality.
type Version int64

// versionSeed is arbitrary but fixed, so absolute values never look
// meaningful to callers.
const versionSeed = 1 << 20

// VersionCounter hands out monotonically increasing version stamps. It is an
// explicit, injectable object shared by the storages that should participate
// in the same change-detection domain. There is no reset.
type VersionCounter struct {
	v atomic.Int64
}

// NewVersionCounter constructs a counter starting at a fixed seed.
func NewVersionCounter() *VersionCounter {
	c := &VersionCounter{}
	c.v.Store(versionSeed)
	return c
}

// Next advances the counter and returns the new stamp. Every call advances:
// callers compare stamps they previously read, they never interpret values.
func (c *VersionCounter) Next() Version {
	return Version(c.v.Add(1))
}
