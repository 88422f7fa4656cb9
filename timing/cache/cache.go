// Package cache provides L1 cache modeling using Akita cache components.
//
// The model tracks tags, LRU state and dirty bits only. Data always lives in
// emu.Memory, so a cache never changes what a program observes; it reports
// how a write-back, write-allocate cache of the configured geometry would
// have behaved.
package cache

import (
	"errors"
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// ErrInvalidConfig is returned by Validate for unusable geometries.
var ErrInvalidConfig = errors.New("invalid cache config")

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `json:"miss_latency"`
}

// DefaultL1IConfig returns the default instruction cache: 4KB, 2-way,
// 16B lines, in the range of classic MIPS R3000-era parts.
func DefaultL1IConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 2,
		BlockSize:     16,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// DefaultL1DConfig returns the default data cache: 4KB, 2-way, 16B lines.
func DefaultL1DConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 2,
		BlockSize:     16,
		HitLatency:    1,
		MissLatency:   10,
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Validate checks that the geometry describes a whole number of
// power-of-two sets.
func (c Config) Validate() error {
	switch {
	case !isPowerOfTwo(c.BlockSize) || c.BlockSize < 4:
		return fmt.Errorf("%w: block size %d must be a power of two >= 4",
			ErrInvalidConfig, c.BlockSize)
	case c.Associativity <= 0:
		return fmt.Errorf("%w: associativity %d must be positive",
			ErrInvalidConfig, c.Associativity)
	case c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0:
		return fmt.Errorf("%w: size %d is not a multiple of associativity*block size",
			ErrInvalidConfig, c.Size)
	case !isPowerOfTwo(c.Size / (c.Associativity * c.BlockSize)):
		return fmt.Errorf("%w: set count must be a power of two", ErrInvalidConfig)
	case c.MissLatency < c.HitLatency:
		return fmt.Errorf("%w: miss latency below hit latency", ErrInvalidConfig)
	}

	return nil
}

// NumSets returns the number of sets.
func (c Config) NumSets() int {
	return c.Size / (c.Associativity * c.BlockSize)
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access would take.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the block address of the replaced block.
	EvictedAddr uint32
	// Writeback is true if the replaced block was dirty.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64

	// PenaltyCycles accumulates latency beyond a hit for every miss.
	PenaltyCycles uint64
}

// HitRate returns hits over accesses, or 0 before any access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Cache is an L1 cache tag model backed by an Akita directory.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a cache. The config must pass Validate.
func New(config Config) *Cache {
	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

func (c *Cache) blockAddr(addr uint32) uint64 {
	bs := uint32(c.config.BlockSize)
	return uint64(addr / bs * bs)
}

// Read records a load from addr.
func (c *Cache) Read(addr uint32) AccessResult {
	c.stats.Reads++
	return c.access(addr, false)
}

// Write records a store to addr. Stores allocate on miss and mark the block
// dirty.
func (c *Cache) Write(addr uint32) AccessResult {
	c.stats.Writes++
	return c.access(addr, true)
}

func (c *Cache) access(addr uint32, isWrite bool) AccessResult {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		if isWrite {
			block.IsDirty = true
		}

		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	c.stats.PenaltyCycles += c.config.MissLatency - c.config.HitLatency

	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite
	c.directory.Visit(victim)

	return result
}

// Invalidate drops the block holding addr, if present.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush counts a writeback for every dirty block and invalidates all
// blocks.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}

			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all blocks and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
