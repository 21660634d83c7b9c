package interpreter

import (
	"encoding/binary"

	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/trap"
	"github.com/regbytecode/rvm/internal/wasm"
)

// widthOf reports how many bytes t reads or writes.
func widthOf(t ir.MemType) int {
	switch t {
	case ir.MemI32, ir.MemF32, ir.MemI64Load32S, ir.MemI64Load32U, ir.MemI64Store32:
		return 4
	case ir.MemI64, ir.MemF64:
		return 8
	case ir.MemI32Load8S, ir.MemI32Load8U, ir.MemI64Load8S, ir.MemI64Load8U, ir.MemI32Store8, ir.MemI64Store8:
		return 1
	case ir.MemI32Load16S, ir.MemI32Load16U, ir.MemI64Load16S, ir.MemI64Load16U, ir.MemI32Store16, ir.MemI64Store16:
		return 2
	}
	panic("interpreter: unhandled MemType width")
}

// loadValue reads t from mem at addr, sign/zero-extending narrow loads into a
// full 64-bit cell.
func loadValue(mem *wasm.MemoryInstance, t ir.MemType, addr uint64) (uint64, *trap.Error) {
	n := widthOf(t)
	if !mem.InBounds(addr, uint64(n)) {
		return 0, trap.New(trap.MemoryOutOfBounds)
	}
	b := mem.Buffer[addr : addr+uint64(n)]
	switch t {
	case ir.MemI32:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case ir.MemI64:
		return binary.LittleEndian.Uint64(b), nil
	case ir.MemF32:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case ir.MemF64:
		return binary.LittleEndian.Uint64(b), nil
	case ir.MemI32Load8S:
		return uint64(uint32(int32(int8(b[0])))), nil
	case ir.MemI32Load8U:
		return uint64(b[0]), nil
	case ir.MemI32Load16S:
		return uint64(uint32(int32(int16(binary.LittleEndian.Uint16(b))))), nil
	case ir.MemI32Load16U:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case ir.MemI64Load8S:
		return uint64(int64(int8(b[0]))), nil
	case ir.MemI64Load8U:
		return uint64(b[0]), nil
	case ir.MemI64Load16S:
		return uint64(int64(int16(binary.LittleEndian.Uint16(b)))), nil
	case ir.MemI64Load16U:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case ir.MemI64Load32S:
		return uint64(int64(int32(binary.LittleEndian.Uint32(b)))), nil
	case ir.MemI64Load32U:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	}
	panic("interpreter: unhandled load MemType")
}

// storeValue narrows val to t's width and writes it to mem at addr.
func storeValue(mem *wasm.MemoryInstance, t ir.MemType, addr uint64, val uint64) *trap.Error {
	n := widthOf(t)
	if !mem.InBounds(addr, uint64(n)) {
		return trap.New(trap.MemoryOutOfBounds)
	}
	b := mem.Buffer[addr : addr+uint64(n)]
	switch t {
	case ir.MemI32, ir.MemF32:
		binary.LittleEndian.PutUint32(b, uint32(val))
	case ir.MemI64, ir.MemF64:
		binary.LittleEndian.PutUint64(b, val)
	case ir.MemI32Store8, ir.MemI64Store8:
		b[0] = byte(val)
	case ir.MemI32Store16, ir.MemI64Store16:
		binary.LittleEndian.PutUint16(b, uint16(val))
	case ir.MemI64Store32:
		binary.LittleEndian.PutUint32(b, uint32(val))
	default:
		panic("interpreter: unhandled store MemType")
	}
	return nil
}
