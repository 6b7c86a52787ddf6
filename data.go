package kern

// MaxKernelArgs bounds the number of argument and param slots a kernel Data
// can carry. Keeping the slots in fixed arrays makes a Data value trivially
// copyable, so the per-lane privatization during a launch is a plain value
// copy with no allocation.
const MaxKernelArgs = 8

// LambdaFn is a kernel body. It reads its current loop bindings and captured
// state through the Data it receives. Bodies must be safe to call
// concurrently from many lanes.
type LambdaFn func(d *Data)

// Data is the kernel closure payload: the segments the tree's loops iterate
// over, the lambda bodies, and the current offset/param bindings of the lane
// executing it. Every physical lane of a launch runs the statement tree on
// its own private copy.
type Data struct {
	segments []Segment
	lambdas  []LambdaFn

	offsets [MaxKernelArgs]int
	params  [MaxKernelArgs]int

	lane Lane
}

// NewData creates a kernel payload over the given segments and lambda
// bodies. The segments slice is indexed by ArgumentID; it must not exceed
// MaxKernelArgs entries.
func NewData(segments []Segment, lambdas ...LambdaFn) (*Data, error) {
	if len(segments) > MaxKernelArgs {
		return nil, NewConfigError("NewData", "too many kernel arguments")
	}
	return &Data{segments: segments, lambdas: lambdas}, nil
}

// Offset returns the current 0-based loop offset bound to arg
func (d *Data) Offset(arg ArgumentID) int {
	return d.offsets[arg]
}

// Index returns the segment index currently bound to arg, i.e. the
// segment's value at the current offset. For a range segment this is
// begin+offset; for a list segment it is the listed index.
func (d *Data) Index(arg ArgumentID) int {
	return d.segments[arg].At(d.offsets[arg])
}

// Param returns the current loop count bound to param by a ForICount
func (d *Data) Param(p ParamID) int {
	return d.params[p]
}

// Lane returns the physical position of the lane executing this copy
func (d *Data) Lane() Lane {
	return d.lane
}

// segmentLen returns the length of the segment bound to arg
func (d *Data) segmentLen(arg ArgumentID) int {
	return d.segments[arg].Len()
}

// assignOffset binds a loop offset to arg
func (d *Data) assignOffset(arg ArgumentID, i int) {
	d.offsets[arg] = i
}

// assignParam binds a loop count to p
func (d *Data) assignParam(p ParamID, i int) {
	d.params[p] = i
}

// invoke runs the lambda at index body against this copy
func (d *Data) invoke(body int) {
	d.lambdas[body](d)
}
