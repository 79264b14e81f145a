package runtime

import (
	"encoding/binary"
	"testing"
)

func rawU64(c *Context, off int) uint64 {
	return binary.LittleEndian.Uint64(c.raw[off:])
}

func TestNewContextZeroedHeader(t *testing.T) {
	c := NewContext(3)
	if len(c.FuncTable) != 3 {
		t.Errorf("FuncTable length = %d, want 3", len(c.FuncTable))
	}
	if got := binary.LittleEndian.Uint32(c.raw[OffsetTableCount:]); got != 0 {
		t.Errorf("table_count = %d, want 0", got)
	}
	if len(c.raw) != ContextSize {
		t.Errorf("raw header size = %d, want %d", len(c.raw), ContextSize)
	}
}

func TestSetFuncSyncsRawFuncTablePointer(t *testing.T) {
	c := NewContext(2)
	c.SetFunc(0, 0x1000)
	c.SetFunc(1, 0x2000)

	if c.FuncTable[0] != 0x1000 || c.FuncTable[1] != 0x2000 {
		t.Fatalf("FuncTable = %v", c.FuncTable)
	}
	ptr := rawU64(c, OffsetFuncTable)
	if ptr == 0 {
		t.Fatal("raw func_table pointer should be nonzero once SetFunc is called")
	}
}

func TestSetMemoryPublishesBaseAndSize(t *testing.T) {
	c := NewContext(0)
	mem := make([]byte, 65536)
	c.SetMemory(mem)

	if c.MemorySizeByte != 65536 {
		t.Errorf("MemorySizeByte = %d, want 65536", c.MemorySizeByte)
	}
	if got := rawU64(c, OffsetMemorySize); got != 65536 {
		t.Errorf("raw memory_size = %d, want 65536", got)
	}
	if got := rawU64(c, OffsetMemoryBase); got == 0 {
		t.Error("raw memory_base should be nonzero for a non-empty memory")
	}
}

func TestGrowCopiesOldContentsAndRespectsMax(t *testing.T) {
	c := NewContext(0)
	c.SetMemory(make([]byte, 65536))
	c.Memory()[0] = 0xAB

	prevPages := c.Grow(1, 4)
	if prevPages != 1 {
		t.Errorf("Grow returned previous pages = %d, want 1", prevPages)
	}
	if len(c.Memory()) != 2*65536 {
		t.Errorf("memory length after Grow = %d, want %d", len(c.Memory()), 2*65536)
	}
	if c.Memory()[0] != 0xAB {
		t.Error("Grow must preserve existing memory contents")
	}

	if got := c.Grow(10, 4); got != -1 {
		t.Errorf("Grow exceeding max pages should return -1, got %d", got)
	}
}

func TestSetIndirectTablesPublishesTableCount(t *testing.T) {
	c := NewContext(0)
	c.SetIndirectTables([][]IndirectEntry{
		{{Func: 0x10, TypeTag: 1}},
		{{Func: 0x20, TypeTag: 2}, {Func: 0x30, TypeTag: 3}},
	})
	if got := binary.LittleEndian.Uint32(c.raw[OffsetTableCount:]); got != 2 {
		t.Errorf("table_count = %d, want 2", got)
	}
	if got := rawU64(c, OffsetIndirectTables); got == 0 {
		t.Error("raw indirect_tables pointer should be nonzero")
	}
}
