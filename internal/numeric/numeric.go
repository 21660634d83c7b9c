// Package numeric evaluates an ir.NumericOp over raw 64-bit cells. It is the
// one routine both the translator's constant folder and the dispatcher's
// InstrBinary/InstrUnary cases drive: the translator calls it at compile time
// when every operand of a numeric op is already a known constant, and the
// dispatcher calls it at run time for everything else (spec.md §4.4/§9).
package numeric

import (
	"math"
	"math/bits"

	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/moremath"
	"github.com/regbytecode/rvm/internal/trap"
)

// EvalBinary computes a two-operand NumericOp over raw 64-bit cells, the
// register file's native storage width. Every i32/f32 value lives in the low
// half of its cell; the upper half is never read by a 32-bit op.
func EvalBinary(op ir.NumericOp, x, y uint64) (uint64, *trap.Error) {
	switch {
	case op >= ir.OpI32Add && op <= ir.OpI32GeU:
		return evalI32Binary(op, uint32(x), uint32(y))
	case op >= ir.OpI64Add && op <= ir.OpI64GeU:
		return evalI64Binary(op, x, y)
	case op >= ir.OpF32Add && op <= ir.OpF32Ge:
		return evalF32Binary(op, math.Float32frombits(uint32(x)), math.Float32frombits(uint32(y))), nil
	case op >= ir.OpF64Add && op <= ir.OpF64Ge:
		return evalF64Binary(op, math.Float64frombits(x), math.Float64frombits(y)), nil
	}
	panic("numeric: not a binary op")
}

// EvalUnary computes a single-operand NumericOp, including every value
// conversion and the sign-extension/saturating-truncation proposal ops.
func EvalUnary(op ir.NumericOp, x uint64) (uint64, *trap.Error) {
	switch {
	case op == ir.OpI32Clz || op == ir.OpI32Ctz || op == ir.OpI32Popcnt || op == ir.OpI32Eqz:
		return evalI32Unary(op, uint32(x)), nil
	case op == ir.OpI64Clz || op == ir.OpI64Ctz || op == ir.OpI64Popcnt || op == ir.OpI64Eqz:
		return evalI64Unary(op, x), nil
	case op >= ir.OpF32Abs && op <= ir.OpF32Nearest:
		return uint64(math.Float32bits(evalF32Unary(op, math.Float32frombits(uint32(x))))), nil
	case op >= ir.OpF64Abs && op <= ir.OpF64Nearest:
		return math.Float64bits(evalF64Unary(op, math.Float64frombits(x))), nil
	default:
		return evalConversion(op, x)
	}
}

func evalI32Binary(op ir.NumericOp, x, y uint32) (uint64, *trap.Error) {
	sx, sy := int32(x), int32(y)
	switch op {
	case ir.OpI32Add:
		return uint64(x + y), nil
	case ir.OpI32Sub:
		return uint64(x - y), nil
	case ir.OpI32Mul:
		return uint64(x * y), nil
	case ir.OpI32DivS:
		if y == 0 {
			return 0, trap.New(trap.IntegerDivisionByZero)
		}
		if sx == math.MinInt32 && sy == -1 {
			return 0, trap.New(trap.IntegerOverflow)
		}
		return uint64(uint32(sx / sy)), nil
	case ir.OpI32DivU:
		if y == 0 {
			return 0, trap.New(trap.IntegerDivisionByZero)
		}
		return uint64(x / y), nil
	case ir.OpI32RemS:
		if y == 0 {
			return 0, trap.New(trap.IntegerDivisionByZero)
		}
		if sx == math.MinInt32 && sy == -1 {
			return 0, nil
		}
		return uint64(uint32(sx % sy)), nil
	case ir.OpI32RemU:
		if y == 0 {
			return 0, trap.New(trap.IntegerDivisionByZero)
		}
		return uint64(x % y), nil
	case ir.OpI32And:
		return uint64(x & y), nil
	case ir.OpI32Or:
		return uint64(x | y), nil
	case ir.OpI32Xor:
		return uint64(x ^ y), nil
	case ir.OpI32Shl:
		return uint64(x << (y & 31)), nil
	case ir.OpI32ShrS:
		return uint64(uint32(sx >> (y & 31))), nil
	case ir.OpI32ShrU:
		return uint64(x >> (y & 31)), nil
	case ir.OpI32Rotl:
		return uint64(bits.RotateLeft32(x, int(y&31))), nil
	case ir.OpI32Rotr:
		return uint64(bits.RotateLeft32(x, -int(y&31))), nil
	case ir.OpI32Eq:
		return boolU64(x == y), nil
	case ir.OpI32Ne:
		return boolU64(x != y), nil
	case ir.OpI32LtS:
		return boolU64(sx < sy), nil
	case ir.OpI32LtU:
		return boolU64(x < y), nil
	case ir.OpI32GtS:
		return boolU64(sx > sy), nil
	case ir.OpI32GtU:
		return boolU64(x > y), nil
	case ir.OpI32LeS:
		return boolU64(sx <= sy), nil
	case ir.OpI32LeU:
		return boolU64(x <= y), nil
	case ir.OpI32GeS:
		return boolU64(sx >= sy), nil
	case ir.OpI32GeU:
		return boolU64(x >= y), nil
	}
	panic("numeric: unhandled i32 binary op")
}

func evalI64Binary(op ir.NumericOp, xr, yr uint64) (uint64, *trap.Error) {
	x, y := xr, yr
	sx, sy := int64(x), int64(y)
	switch op {
	case ir.OpI64Add:
		return x + y, nil
	case ir.OpI64Sub:
		return x - y, nil
	case ir.OpI64Mul:
		return x * y, nil
	case ir.OpI64DivS:
		if y == 0 {
			return 0, trap.New(trap.IntegerDivisionByZero)
		}
		if sx == math.MinInt64 && sy == -1 {
			return 0, trap.New(trap.IntegerOverflow)
		}
		return uint64(sx / sy), nil
	case ir.OpI64DivU:
		if y == 0 {
			return 0, trap.New(trap.IntegerDivisionByZero)
		}
		return x / y, nil
	case ir.OpI64RemS:
		if y == 0 {
			return 0, trap.New(trap.IntegerDivisionByZero)
		}
		if sx == math.MinInt64 && sy == -1 {
			return 0, nil
		}
		return uint64(sx % sy), nil
	case ir.OpI64RemU:
		if y == 0 {
			return 0, trap.New(trap.IntegerDivisionByZero)
		}
		return x % y, nil
	case ir.OpI64And:
		return x & y, nil
	case ir.OpI64Or:
		return x | y, nil
	case ir.OpI64Xor:
		return x ^ y, nil
	case ir.OpI64Shl:
		return x << (y & 63), nil
	case ir.OpI64ShrS:
		return uint64(sx >> (y & 63)), nil
	case ir.OpI64ShrU:
		return x >> (y & 63), nil
	case ir.OpI64Rotl:
		return bits.RotateLeft64(x, int(y&63)), nil
	case ir.OpI64Rotr:
		return bits.RotateLeft64(x, -int(y&63)), nil
	case ir.OpI64Eq:
		return boolU64(x == y), nil
	case ir.OpI64Ne:
		return boolU64(x != y), nil
	case ir.OpI64LtS:
		return boolU64(sx < sy), nil
	case ir.OpI64LtU:
		return boolU64(x < y), nil
	case ir.OpI64GtS:
		return boolU64(sx > sy), nil
	case ir.OpI64GtU:
		return boolU64(x > y), nil
	case ir.OpI64LeS:
		return boolU64(sx <= sy), nil
	case ir.OpI64LeU:
		return boolU64(x <= y), nil
	case ir.OpI64GeS:
		return boolU64(sx >= sy), nil
	case ir.OpI64GeU:
		return boolU64(x >= y), nil
	}
	panic("numeric: unhandled i64 binary op")
}

func evalF32Binary(op ir.NumericOp, x, y float32) uint64 {
	switch op {
	case ir.OpF32Add:
		return f32bits(x + y)
	case ir.OpF32Sub:
		return f32bits(x - y)
	case ir.OpF32Mul:
		return f32bits(x * y)
	case ir.OpF32Div:
		return f32bits(x / y)
	case ir.OpF32Min:
		return f32bits(float32(moremath.WasmCompatMin(float64(x), float64(y))))
	case ir.OpF32Max:
		return f32bits(float32(moremath.WasmCompatMax(float64(x), float64(y))))
	case ir.OpF32Copysign:
		return f32bits(float32(math.Copysign(float64(x), float64(y))))
	case ir.OpF32Eq:
		return boolU64(x == y)
	case ir.OpF32Ne:
		return boolU64(x != y)
	case ir.OpF32Lt:
		return boolU64(x < y)
	case ir.OpF32Gt:
		return boolU64(x > y)
	case ir.OpF32Le:
		return boolU64(x <= y)
	case ir.OpF32Ge:
		return boolU64(x >= y)
	}
	panic("numeric: unhandled f32 binary op")
}

func evalF64Binary(op ir.NumericOp, x, y float64) uint64 {
	switch op {
	case ir.OpF64Add:
		return math.Float64bits(x + y)
	case ir.OpF64Sub:
		return math.Float64bits(x - y)
	case ir.OpF64Mul:
		return math.Float64bits(x * y)
	case ir.OpF64Div:
		return math.Float64bits(x / y)
	case ir.OpF64Min:
		return math.Float64bits(moremath.WasmCompatMin(x, y))
	case ir.OpF64Max:
		return math.Float64bits(moremath.WasmCompatMax(x, y))
	case ir.OpF64Copysign:
		return math.Float64bits(math.Copysign(x, y))
	case ir.OpF64Eq:
		return boolU64(x == y)
	case ir.OpF64Ne:
		return boolU64(x != y)
	case ir.OpF64Lt:
		return boolU64(x < y)
	case ir.OpF64Gt:
		return boolU64(x > y)
	case ir.OpF64Le:
		return boolU64(x <= y)
	case ir.OpF64Ge:
		return boolU64(x >= y)
	}
	panic("numeric: unhandled f64 binary op")
}

func evalI32Unary(op ir.NumericOp, x uint32) uint64 {
	switch op {
	case ir.OpI32Clz:
		return uint64(bits.LeadingZeros32(x))
	case ir.OpI32Ctz:
		return uint64(bits.TrailingZeros32(x))
	case ir.OpI32Popcnt:
		return uint64(bits.OnesCount32(x))
	case ir.OpI32Eqz:
		return boolU64(x == 0)
	}
	panic("numeric: unhandled i32 unary op")
}

func evalI64Unary(op ir.NumericOp, x uint64) uint64 {
	switch op {
	case ir.OpI64Clz:
		return uint64(bits.LeadingZeros64(x))
	case ir.OpI64Ctz:
		return uint64(bits.TrailingZeros64(x))
	case ir.OpI64Popcnt:
		return uint64(bits.OnesCount64(x))
	case ir.OpI64Eqz:
		return boolU64(x == 0)
	}
	panic("numeric: unhandled i64 unary op")
}

func evalF32Unary(op ir.NumericOp, x float32) float32 {
	switch op {
	case ir.OpF32Abs:
		return float32(math.Abs(float64(x)))
	case ir.OpF32Neg:
		return -x
	case ir.OpF32Sqrt:
		return float32(math.Sqrt(float64(x)))
	case ir.OpF32Ceil:
		return float32(math.Ceil(float64(x)))
	case ir.OpF32Floor:
		return float32(math.Floor(float64(x)))
	case ir.OpF32Trunc:
		return float32(math.Trunc(float64(x)))
	case ir.OpF32Nearest:
		return moremath.WasmCompatNearestF32(x)
	}
	panic("numeric: unhandled f32 unary op")
}

func evalF64Unary(op ir.NumericOp, x float64) float64 {
	switch op {
	case ir.OpF64Abs:
		return math.Abs(x)
	case ir.OpF64Neg:
		return -x
	case ir.OpF64Sqrt:
		return math.Sqrt(x)
	case ir.OpF64Ceil:
		return math.Ceil(x)
	case ir.OpF64Floor:
		return math.Floor(x)
	case ir.OpF64Trunc:
		return math.Trunc(x)
	case ir.OpF64Nearest:
		return moremath.WasmCompatNearestF64(x)
	}
	panic("numeric: unhandled f64 unary op")
}

// evalConversion handles every value conversion, the sign-extension proposal
// ops, and the saturating-truncation proposal ops.
func evalConversion(op ir.NumericOp, x uint64) (uint64, *trap.Error) {
	switch op {
	case ir.OpI32WrapI64:
		return uint64(uint32(x)), nil
	case ir.OpI64ExtendI32S:
		return uint64(int64(int32(uint32(x)))), nil
	case ir.OpI64ExtendI32U:
		return uint64(uint32(x)), nil

	case ir.OpI32TruncF32S:
		return truncF32ToInt(math.Float32frombits(uint32(x)), math.MinInt32, math.MaxInt32, false)
	case ir.OpI32TruncF32U:
		return truncF32ToInt(math.Float32frombits(uint32(x)), 0, math.MaxUint32, true)
	case ir.OpI32TruncF64S:
		return truncF64ToInt(math.Float64frombits(x), math.MinInt32, math.MaxInt32, false)
	case ir.OpI32TruncF64U:
		return truncF64ToInt(math.Float64frombits(x), 0, math.MaxUint32, true)
	case ir.OpI64TruncF32S:
		return truncF32ToInt64(math.Float32frombits(uint32(x)), false)
	case ir.OpI64TruncF32U:
		return truncF32ToInt64(math.Float32frombits(uint32(x)), true)
	case ir.OpI64TruncF64S:
		return truncF64ToInt64(math.Float64frombits(x), false)
	case ir.OpI64TruncF64U:
		return truncF64ToInt64(math.Float64frombits(x), true)

	case ir.OpF32ConvertI32S:
		return f32bits(float32(int32(uint32(x)))), nil
	case ir.OpF32ConvertI32U:
		return f32bits(float32(uint32(x))), nil
	case ir.OpF32ConvertI64S:
		return f32bits(float32(int64(x))), nil
	case ir.OpF32ConvertI64U:
		return f32bits(float32(x)), nil
	case ir.OpF64ConvertI32S:
		return math.Float64bits(float64(int32(uint32(x)))), nil
	case ir.OpF64ConvertI32U:
		return math.Float64bits(float64(uint32(x))), nil
	case ir.OpF64ConvertI64S:
		return math.Float64bits(float64(int64(x))), nil
	case ir.OpF64ConvertI64U:
		return math.Float64bits(float64(x)), nil

	case ir.OpF32DemoteF64:
		return f32bits(float32(math.Float64frombits(x))), nil
	case ir.OpF64PromoteF32:
		return math.Float64bits(float64(math.Float32frombits(uint32(x)))), nil

	case ir.OpI32ReinterpretF32:
		return uint64(uint32(x)), nil
	case ir.OpI64ReinterpretF64:
		return x, nil
	case ir.OpF32ReinterpretI32:
		return uint64(uint32(x)), nil
	case ir.OpF64ReinterpretI64:
		return x, nil

	case ir.OpI32Extend8S:
		return uint64(uint32(int32(int8(uint32(x))))), nil
	case ir.OpI32Extend16S:
		return uint64(uint32(int32(int16(uint32(x))))), nil
	case ir.OpI64Extend8S:
		return uint64(int64(int8(x))), nil
	case ir.OpI64Extend16S:
		return uint64(int64(int16(x))), nil
	case ir.OpI64Extend32S:
		return uint64(int64(int32(x))), nil

	case ir.OpI32TruncSatF32S:
		return satTruncF32ToInt32(math.Float32frombits(uint32(x)), false), nil
	case ir.OpI32TruncSatF32U:
		return satTruncF32ToInt32(math.Float32frombits(uint32(x)), true), nil
	case ir.OpI32TruncSatF64S:
		return satTruncF64ToInt32(math.Float64frombits(x), false), nil
	case ir.OpI32TruncSatF64U:
		return satTruncF64ToInt32(math.Float64frombits(x), true), nil
	case ir.OpI64TruncSatF32S:
		return satTruncF32ToInt64(math.Float32frombits(uint32(x)), false), nil
	case ir.OpI64TruncSatF32U:
		return satTruncF32ToInt64(math.Float32frombits(uint32(x)), true), nil
	case ir.OpI64TruncSatF64S:
		return satTruncF64ToInt64(math.Float64frombits(x), false), nil
	case ir.OpI64TruncSatF64U:
		return satTruncF64ToInt64(math.Float64frombits(x), true), nil
	}
	panic("numeric: unhandled conversion op")
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func f32bits(f float32) uint64 { return uint64(math.Float32bits(f)) }

// truncF32ToInt implements the trapping (non-saturating) i32.trunc_f32_*
// conversions: NaN traps as a bad conversion, an in-range value truncates
// toward zero, anything else traps as an overflow.
func truncF32ToInt(f float32, lo, hi float64, unsigned bool) (uint64, *trap.Error) {
	return truncToInt(float64(f), lo, hi, unsigned)
}

func truncF64ToInt(f float64, lo, hi float64, unsigned bool) (uint64, *trap.Error) {
	return truncToInt(f, lo, hi, unsigned)
}

func truncToInt(f float64, lo, hi float64, unsigned bool) (uint64, *trap.Error) {
	if math.IsNaN(f) {
		return 0, trap.New(trap.BadConversionToInteger)
	}
	t := math.Trunc(f)
	if t < lo || t > hi {
		return 0, trap.New(trap.IntegerOverflow)
	}
	if unsigned {
		return uint64(uint32(int64(t))), nil
	}
	return uint64(uint32(int32(t))), nil
}

func truncF32ToInt64(f float32, unsigned bool) (uint64, *trap.Error) {
	return truncToInt64(float64(f), unsigned)
}

func truncF64ToInt64(f float64, unsigned bool) (uint64, *trap.Error) {
	return truncToInt64(f, unsigned)
}

func truncToInt64(f float64, unsigned bool) (uint64, *trap.Error) {
	if math.IsNaN(f) {
		return 0, trap.New(trap.BadConversionToInteger)
	}
	t := math.Trunc(f)
	if unsigned {
		if t < 0 || t >= math.MaxUint64 {
			return 0, trap.New(trap.IntegerOverflow)
		}
		return uint64(t), nil
	}
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, trap.New(trap.IntegerOverflow)
	}
	return uint64(int64(t)), nil
}

// satTruncF32ToInt32 and its siblings implement the nontrapping (saturating)
// conversions: NaN becomes zero, overflow clamps to the representable bound,
// both directions never trap.
func satTruncF32ToInt32(f float32, unsigned bool) uint64 { return satTruncToInt32(float64(f), unsigned) }
func satTruncF64ToInt32(f float64, unsigned bool) uint64 { return satTruncToInt32(f, unsigned) }

func satTruncToInt32(f float64, unsigned bool) uint64 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	if unsigned {
		switch {
		case t <= 0:
			return 0
		case t >= math.MaxUint32:
			return uint64(uint32(math.MaxUint32))
		}
		return uint64(uint32(t))
	}
	switch {
	case t <= math.MinInt32:
		minInt32 := int32(math.MinInt32)
		return uint64(uint32(minInt32))
	case t >= math.MaxInt32:
		return uint64(uint32(int32(math.MaxInt32)))
	}
	return uint64(uint32(int32(t)))
}

func satTruncF32ToInt64(f float32, unsigned bool) uint64 { return satTruncToInt64(float64(f), unsigned) }
func satTruncF64ToInt64(f float64, unsigned bool) uint64 { return satTruncToInt64(f, unsigned) }

func satTruncToInt64(f float64, unsigned bool) uint64 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	if unsigned {
		switch {
		case t <= 0:
			return 0
		case t >= math.MaxUint64:
			return math.MaxUint64
		}
		return uint64(t)
	}
	switch {
	case t <= math.MinInt64:
		minInt64 := int64(math.MinInt64)
		return uint64(minInt64)
	case t >= math.MaxInt64:
		return uint64(int64(math.MaxInt64))
	}
	return uint64(int64(t))
}
