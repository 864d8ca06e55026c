package btl

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

//DMatrix contains a sample matrix and the aligned label column.
//Discrete marks the columns that are compared by equality instead of by a threshold.
type DMatrix struct {
	Features    *mat.Dense
	Target      *mat.Dense
	RecordIds   []int
	Discrete    []bool
	Description *string
}

//NewDMatrix builds a DMatrix from rows and labels. Every row must have the same width.
func NewDMatrix(rows [][]float64, labels []float64, discrete []bool) (DMatrix, error) {
	if len(rows) == 0 {
		return DMatrix{}, errors.Wrap(ErrDomain, "no rows")
	}
	if len(rows) != len(labels) {
		return DMatrix{}, errors.Wrapf(ErrDomain, "%d rows but %d labels", len(rows), len(labels))
	}
	w := len(rows[0])
	if w == 0 {
		return DMatrix{}, errors.Wrap(ErrDomain, "rows have no attributes")
	}
	features := mat.NewDense(len(rows), w, nil)
	for p, row := range rows {
		if len(row) != w {
			return DMatrix{}, errors.Wrapf(ErrMalformedInstance, "row %d has %d attributes, expected %d", p, len(row), w)
		}
		features.SetRow(p, row)
	}
	target := mat.NewDense(len(labels), 1, append([]float64(nil), labels...))
	dm := DMatrix{Features: features, Target: target, RecordIds: makeRecordIds(len(rows)), Discrete: discrete}
	if _, _, err := dm.validatedDimensions(); err != nil {
		return DMatrix{}, err
	}
	return dm, nil
}

func makeRecordIds(h int) []int {
	ids := make([]int, h)
	for p := range ids {
		ids[p] = p
	}
	return ids
}

//SetDescription sets a description for a DMatrix object
func (dm *DMatrix) SetDescription(description string) {
	dm.Description = &description
}

//Labels returns a copy of the label column.
func (dm DMatrix) Labels() []float64 {
	return mat.Col(nil, 0, dm.Target)
}

//Column returns a copy of the q-th attribute column.
func (dm DMatrix) Column(q int) []float64 {
	return mat.Col(nil, q, dm.Features)
}

//Row returns a copy of the p-th sample.
func (dm DMatrix) Row(p int) []float64 {
	return mat.Row(nil, p, dm.Features)
}

//IsDiscrete reports whether the q-th column is tagged discrete.
func (dm DMatrix) IsDiscrete(q int) bool {
	return q < len(dm.Discrete) && dm.Discrete[q]
}

//Subset gathers the given rows into a new DMatrix. Rows may repeat, which is how bootstrap samples are built.
func (dm DMatrix) Subset(rows []int) (DMatrix, error) {
	if len(rows) == 0 {
		return DMatrix{}, errors.Wrap(ErrDomain, "empty subset")
	}
	h, w, err := dm.validatedDimensions()
	if err != nil {
		return DMatrix{}, err
	}
	features := mat.NewDense(len(rows), w, nil)
	target := mat.NewDense(len(rows), 1, nil)
	ids := make([]int, len(rows))
	for ind, p := range rows {
		if p < 0 || p >= h {
			return DMatrix{}, errors.Errorf("row %d is out of range [0, %d)", p, h)
		}
		features.SetRow(ind, dm.Features.RawRowView(p))
		target.Set(ind, 0, dm.Target.At(p, 0))
		ids[ind] = dm.recordId(p)
	}
	return DMatrix{Features: features, Target: target, RecordIds: ids, Discrete: dm.Discrete}, nil
}

func (dm DMatrix) recordId(p int) int {
	if p < len(dm.RecordIds) {
		return dm.RecordIds[p]
	}
	return p
}

//Split splits the receiver by the predicate of a BestSplit.
//The positive part holds the rows that satisfy the predicate.
func (dm DMatrix) Split(split BestSplit) (positive, negative DMatrix, err error) {
	h, _, err := dm.validatedDimensions()
	if err != nil {
		return
	}
	positiveRows, negativeRows := make([]int, 0, h), make([]int, 0, h)
	for p := 0; p < h; p++ {
		if split.Satisfied(dm.Features.At(p, split.featureIndex)) {
			positiveRows = append(positiveRows, p)
		} else {
			negativeRows = append(negativeRows, p)
		}
	}
	if len(positiveRows) == 0 || len(negativeRows) == 0 {
		err = errors.Wrapf(ErrNoSplitAvailable, "split on feature %d leaves an empty side", split.featureIndex)
		return
	}
	if positive, err = dm.Subset(positiveRows); err != nil {
		return
	}
	negative, err = dm.Subset(negativeRows)
	return
}

//validatedDimensions checks the consistency of dimensions in arrays from the current dataset
//and returns the height (the number of samples) and the width (the number of attributes).
func (dm DMatrix) validatedDimensions() (h, w int, err error) {
	if dm.Features == nil || dm.Target == nil {
		return 0, 0, errors.Wrap(ErrDomain, "dataset is not initialised")
	}
	h, w = dm.Features.Dims()
	targetH, targetW := dm.Target.Dims()
	if targetH != h {
		return 0, 0, errors.Wrapf(ErrDomain, "the target height %d is not equal to the features height %d", targetH, h)
	}
	if targetW != 1 {
		return 0, 0, errors.Wrapf(ErrDomain, "the width of target should be 1 not %d", targetW)
	}
	if len(dm.Discrete) > w {
		return 0, 0, errors.Wrapf(ErrDomain, "%d discrete tags for %d attributes", len(dm.Discrete), w)
	}
	return h, w, nil
}

//ReadDMatrix reads the sample matrix and the label column from npy files.
func ReadDMatrix(fileNameFeatures, fileNameTarget string, discrete []bool) (dm DMatrix, err error) {
	logger.Info("try to load features", zap.String("file", fileNameFeatures))
	if dm.Features, err = ReadNpy(fileNameFeatures); err != nil {
		return
	}
	logger.Info("try to load target", zap.String("file", fileNameTarget))
	if dm.Target, err = ReadNpy(fileNameTarget); err != nil {
		return
	}
	if _, c := dm.Target.Dims(); c != 1 {
		// a flat label vector arrives as one row
		r, _ := dm.Target.Dims()
		if r == 1 {
			dm.Target = mat.NewDense(c, 1, mat.Row(nil, 0, dm.Target))
		}
	}
	dm.Discrete = discrete
	dm.RecordIds = makeRecordIds(Height(dm.Features))
	_, _, err = dm.validatedDimensions()
	return
}

//ReadNpy reads the content of npy file
func ReadNpy(fileName string) (denseMat *mat.Dense, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", fileName)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			denseMat, err = nil, errors.Wrapf(closeErr, "close %s", fileName)
		}
	}()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read npy header of %s", fileName)
	}

	denseMat = &mat.Dense{}
	if err = r.Read(denseMat); err != nil {
		return nil, errors.Wrapf(err, "read npy data of %s", fileName)
	}
	return denseMat, nil
}

//WriteNpy writes a matrix into an npy file.
func WriteNpy(fileName string, m *mat.Dense) (err error) {
	dst, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "create %s", fileName)
	}
	defer func() {
		if closeErr := dst.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "close %s", fileName)
		}
	}()
	return errors.Wrapf(npyio.Write(dst, m), "write npy data of %s", fileName)
}

//DiscreteMask turns a list of discrete column indices into per-column tags for w attributes.
func DiscreteMask(w int, columns []int) ([]bool, error) {
	if len(columns) == 0 {
		return nil, nil
	}
	mask := make([]bool, w)
	for _, q := range columns {
		if q < 0 || q >= w {
			return nil, errors.Wrapf(ErrInvalidParams, "discrete column %d is out of range [0, %d)", q, w)
		}
		mask[q] = true
	}
	return mask, nil
}
