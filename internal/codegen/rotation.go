package codegen

// Rotation is the lane-switching policy of the multi-lane scheduler.
//
// For the first Warmup yields of an invocation the next lane is found by
// stepping a skewed stride, so lanes that started together drift apart
// instead of hitting memory in lock-step. After that the scheduler is
// plain round-robin, which bounds how long any lane waits.
//
// The numbers are tuning parameters, not semantics: any warm-up length
// and any strides give a correct scheduler. Strides are taken modulo the
// lane count, and one that is a multiple of it steps by one instead, so a
// yield always moves to another lane.
type Rotation struct {
	Warmup  int
	Strides []int
}

// DefaultStrides is the stride table used during warm-up.
var DefaultStrides = []int{1, 3, 2}

// DefaultRotation returns the default policy for the given lane count:
// a warm-up of two yields per lane.
func DefaultRotation(lanes int) Rotation {
	return Rotation{
		Warmup:  2 * lanes,
		Strides: append([]int(nil), DefaultStrides...),
	}
}

// Next returns the lane to dispatch after the step-th yield (counting
// from one) left lane.
func (r Rotation) Next(lane, step, lanes int) int {
	if lanes <= 1 {
		return 0
	}
	if r.warms() && step <= r.Warmup {
		return (lane + r.stride(step%len(r.Strides), lanes)) % lanes
	}
	return (lane + 1) % lanes
}

// stride returns Strides[i] reduced to [1, lanes).
func (r Rotation) stride(i, lanes int) int {
	s := (r.Strides[i]%lanes + lanes) % lanes
	if s == 0 {
		return 1
	}
	return s
}

// table returns the warm-up strides as emitted for the given lane count.
func (r Rotation) table(lanes int) []int {
	out := make([]int, len(r.Strides))
	for i := range r.Strides {
		out[i] = r.stride(i, lanes)
	}
	return out
}

func (r Rotation) warms() bool {
	return r.Warmup > 0 && len(r.Strides) > 0
}
