package ir

// CopyForm discriminates the three shapes the copy analyzer can return.
type CopyForm uint8

const (
	CopyNone CopyForm = iota
	CopySingle
	CopyMany
)

// Copies is the result of analyzing a results/inputs pair for redundant
// self-moves. Exactly one of the three shapes is populated, selected by Form.
type Copies struct {
	Form CopyForm

	// CopySingle
	SingleResult Register
	SingleInput  Provider

	// CopyMany: Results and Inputs are the trimmed, equal-length,
	// position-aligned spans bracketed by a true copy at each end.
	ManyResults RegisterSlice
	ManyInputs  []Provider
}

// Analyze compares a contiguous result register range against a parallel
// input provider sequence of the same length and reduces the redundant
// (result == input register) positions:
//
//   - CopyNone iff results[k] == inputs[k] for every k.
//   - CopySingle iff exactly one position differs.
//   - CopyMany otherwise: the leading and trailing runs of exact matches are
//     stripped, but interior no-op positions are kept, since RegisterSlice
//     can only represent a contiguous span and the surviving range must still
//     be encodable as one.
func Analyze(results RegisterSlice, inputs []Provider) Copies {
	n := int(results.Length)
	if n != len(inputs) {
		panic("ir: results/inputs length mismatch in copy analysis")
	}
	isSelfMove := func(i int) bool {
		p := inputs[i]
		return !p.IsConst() && p.Register() == results.At(i)
	}

	first := -1
	last := -1
	for i := 0; i < n; i++ {
		if !isSelfMove(i) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	if first < 0 {
		return Copies{Form: CopyNone}
	}
	if first == last {
		return Copies{
			Form:         CopySingle,
			SingleResult: results.At(first),
			SingleInput:  inputs[first],
		}
	}
	trimmedLen := last - first + 1
	return Copies{
		Form:        CopyMany,
		ManyResults: RegisterSlice{First: results.At(first), Length: uint16(trimmedLen)},
		ManyInputs:  append([]Provider(nil), inputs[first:last+1]...),
	}
}
