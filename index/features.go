package index

import "strings"

// Capability is the registry's bit set describing what an index type supports.
type Capability uint32

const (
	CapFloat32 Capability = 1 << iota
	CapGPU
	CapMMap
	CapDisk
	CapRangeSearch
	CapIterator
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapFloat32, "float32"},
	{CapGPU, "gpu"},
	{CapMMap, "mmap"},
	{CapDisk, "disk"},
	{CapRangeSearch, "range_search"},
	{CapIterator, "iterator"},
}

// Has reports whether all flags in o are set.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Features is the capability record an index reports about itself.
type Features struct {
	GPU         bool
	MMap        bool
	RangeSearch bool
	Iterator    bool
	DiskStorage bool
	Metrics     []string
	DataTypes   []string
}

// Capabilities translates f into registry flags. Every index accepts float32
// vectors, so CapFloat32 is always set.
func (f Features) Capabilities() Capability {
	c := CapFloat32
	if f.GPU {
		c |= CapGPU
	}
	if f.MMap {
		c |= CapMMap
	}
	if f.DiskStorage {
		c |= CapDisk
	}
	if f.RangeSearch {
		c |= CapRangeSearch
	}
	if f.Iterator {
		c |= CapIterator
	}
	return c
}
