// Package btrfs acquires point-in-time filesystem snapshots through the
// btrfs-progs command line tools.
package btrfs

// UsageSnapshot aggregates the space figures of one mounted filesystem.
// All fields are bytes. Physical figures (Total, Allocated, Allocatable)
// count raw device space; VirtualUsed and the free figures count logical
// bytes after profile ratios.
type UsageSnapshot struct {
	Total                    uint64 // combined size of all member devices
	Allocated                uint64 // physical space claimed by block groups
	Allocatable              uint64 // physical space that could ever be claimed
	AllocatableLeft          uint64 // Allocatable minus Allocated
	UnallocatableSoft        uint64
	UnallocatableReclaimable uint64
	VirtualUsed              uint64 // logical bytes in use
	FreeData                 uint64 // estimated free space, separate block groups
	FreeMixed                uint64 // estimated free space, mixed block groups
}

// Counter is one named error counter as reported by btrfs device stats.
// Zero means healthy.
type Counter struct {
	Name  string
	Value uint64
}

// DeviceStats carries the error counters of one member device. Counter order
// matches the btrfs-progs output order.
type DeviceStats struct {
	DevID    uint64
	Path     string
	Counters []Counter
}

// Snapshot is one atomic capture of a mounted filesystem: either every field
// was read successfully or the acquisition failed as a whole.
type Snapshot struct {
	Usage       UsageSnapshot
	MixedGroups bool // data and metadata share block groups
	Devices     []DeviceStats
}
