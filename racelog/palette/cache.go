package palette

import (
	"image/color"
	"math"
)

// TableSize is the number of precomputed entries per palette.
const TableSize = 256

// Cache holds lookup tables for the palettes used in one session. Tables
// are built on first use. A Cache is not safe for concurrent use; a nil
// Cache interpolates on every call.
type Cache struct {
	tables map[string]*[TableSize]color.RGBA
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{tables: make(map[string]*[TableSize]color.RGBA)}
}

// Color returns the colour of p at intensity f in [0, 1].
func (c *Cache) Color(p Palette, f float64) color.RGBA {
	if c == nil {
		return p.At(f)
	}
	table, ok := c.tables[p.Name]
	if !ok {
		table = new([TableSize]color.RGBA)
		for i := range table {
			table[i] = p.At(float64(i) / (TableSize - 1))
		}
		c.tables[p.Name] = table
	}
	return table[int(math.Round(clamp01(f)*(TableSize-1)))]
}

// Len reports how many palettes have tables built.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tables)
}

// Reset drops every table.
func (c *Cache) Reset() {
	clear(c.tables)
}
