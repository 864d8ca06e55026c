package btl

import (
	"log"
	"sort"

	"gonum.org/v1/gonum/mat"
)

//HandleError panics on a non-nil error. It is meant for glue code that has no caller to report to.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//Height returns the number of rows of a matrix. A nil matrix has zero height.
func Height(m *mat.Dense) int {
	if m == nil {
		return 0
	}
	h, _ := m.Dims()
	return h
}

//columnArgsort returns the row order that sorts the column ascending.
//Rows with equal values keep their original order.
func columnArgsort(column mat.Vector) []int {
	h := column.Len()
	indices := make([]int, h)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return column.AtVec(indices[i]) < column.AtVec(indices[j])
	})
	return indices
}

//sliceArgsort is columnArgsort for a plain slice.
func sliceArgsort(values []float64) []int {
	return columnArgsort(mat.NewVecDense(len(values), values))
}
