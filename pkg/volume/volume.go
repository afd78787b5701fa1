// Package volume implements the flat binary array format shared by the
// dataset generator, the experiment pipeline and the external reconstruction
// binary. A volume file is a little-endian record:
//
//	magic "TVOL" | uint16 version | uint16 ndim | ndim * int64 dims | float64 payload
//
// The payload length must equal the product of the dimensions. Files carry
// the .vol extension by convention.
package volume

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrBadHeader indicates a file that is not a volume file or uses an
	// unsupported format version.
	ErrBadHeader = errors.New("volume: bad header")

	// ErrTruncated indicates a volume file shorter than its header claims.
	ErrTruncated = errors.New("volume: truncated payload")
)

var magic = [4]byte{'T', 'V', 'O', 'L'}

const formatVersion uint16 = 1

// Save writes data with the given shape to path, creating or overwriting the
// file. The product of shape must equal len(data).
func Save(path string, shape []int, data []float64) error {
	total := 1
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("volume: negative dimension %d in shape %v", d, shape)
		}
		total *= d
	}
	if total != len(data) {
		return fmt.Errorf("volume: shape %v implies %d elements, got %d", shape, total, len(data))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("volume: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(magic[:]); err != nil {
		return fmt.Errorf("volume: write %s: %w", path, err)
	}
	header := []interface{}{formatVersion, uint16(len(shape))}
	for _, h := range header {
		if err := binary.Write(f, binary.LittleEndian, h); err != nil {
			return fmt.Errorf("volume: write %s: %w", path, err)
		}
	}
	for _, d := range shape {
		if err := binary.Write(f, binary.LittleEndian, int64(d)); err != nil {
			return fmt.Errorf("volume: write %s: %w", path, err)
		}
	}
	if err := binary.Write(f, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("volume: write %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a volume file and returns its shape and payload.
func Load(path string) ([]int, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("volume: open %s: %w", path, err)
	}
	defer f.Close()

	var m [4]byte
	if _, err := io.ReadFull(f, m[:]); err != nil {
		return nil, nil, fmt.Errorf("volume: read %s: %w", path, ErrBadHeader)
	}
	if m != magic {
		return nil, nil, fmt.Errorf("volume: %s: %w", path, ErrBadHeader)
	}
	var version, ndim uint16
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return nil, nil, fmt.Errorf("volume: %s: %w", path, ErrBadHeader)
	}
	if version != formatVersion {
		return nil, nil, fmt.Errorf("volume: %s: version %d: %w", path, version, ErrBadHeader)
	}
	if err := binary.Read(f, binary.LittleEndian, &ndim); err != nil {
		return nil, nil, fmt.Errorf("volume: %s: %w", path, ErrBadHeader)
	}

	shape := make([]int, ndim)
	total := 1
	for i := range shape {
		var d int64
		if err := binary.Read(f, binary.LittleEndian, &d); err != nil {
			return nil, nil, fmt.Errorf("volume: %s: %w", path, ErrBadHeader)
		}
		if d < 0 {
			return nil, nil, fmt.Errorf("volume: %s: negative dimension %d: %w", path, d, ErrBadHeader)
		}
		shape[i] = int(d)
		total *= int(d)
	}

	data := make([]float64, total)
	if err := binary.Read(f, binary.LittleEndian, data); err != nil {
		return nil, nil, fmt.Errorf("volume: %s: %w", path, ErrTruncated)
	}
	return shape, data, nil
}

// SaveVector writes a 1D volume.
func SaveVector(path string, v []float64) error {
	return Save(path, []int{len(v)}, v)
}

// LoadVector reads a volume file and requires it to be 1D.
func LoadVector(path string) ([]float64, error) {
	shape, data, err := Load(path)
	if err != nil {
		return nil, err
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("volume: %s: expected 1D volume, got shape %v", path, shape)
	}
	return data, nil
}

// SaveMatrix writes a dense matrix as a 2D volume in row-major order.
func SaveMatrix(path string, m *mat.Dense) error {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return Save(path, []int{r, c}, data)
}

// LoadMatrix reads a volume file and requires it to be 2D.
func LoadMatrix(path string) (*mat.Dense, error) {
	shape, data, err := Load(path)
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("volume: %s: expected 2D volume, got shape %v", path, shape)
	}
	return mat.NewDense(shape[0], shape[1], data), nil
}
