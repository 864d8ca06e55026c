package btl

//IntIterable is the interface for iteration over an collection of integers.
type IntIterable interface {
	HasNext() bool
	GetNext() int
}

//Range is an iterator over half interval [begin, end) with the step step.
type Range struct {
	begin, end, step, pos int
}

//NewRange initializes a new iterator over a half interval.
func NewRange(start, end, step int) *Range {
	return &Range{start, end, step, start}
}

//GetNext returns the next element from the iterator and moves iterator to the next position.
func (r *Range) GetNext() int {
	val := r.pos
	r.pos += r.step
	return val
}

//HasNext checks whether there are more values in the iterator.
func (r *Range) HasNext() bool {
	if r.step > 0 {
		return r.pos < r.end
	}
	return r.pos > r.end
}

//Reset moves the iterator back to the beginning of the interval.
func (r *Range) Reset() {
	r.pos = r.begin
}

//Begin returns the first element of the interval.
func (r *Range) Begin() int { return r.begin }

//End returns the bound of the interval.
func (r *Range) End() int { return r.end }

//Len returns the number of elements the iterator visits from the beginning.
func (r *Range) Len() int {
	switch {
	case r.step > 0 && r.end > r.begin:
		return (r.end - r.begin + r.step - 1) / r.step
	case r.step < 0 && r.begin > r.end:
		return (r.begin - r.end - r.step - 1) / -r.step
	}
	return 0
}

//Contains reports whether the iterator visits the value.
func (r *Range) Contains(value int) bool {
	if r.step > 0 {
		return value >= r.begin && value < r.end && (value-r.begin)%r.step == 0
	}
	return value <= r.begin && value > r.end && (r.begin-value)%(-r.step) == 0
}

//Collect gathers the remaining values of an iterator.
func Collect(it IntIterable) []int {
	values := make([]int, 0)
	for it.HasNext() {
		values = append(values, it.GetNext())
	}
	return values
}
