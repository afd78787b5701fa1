package denoise

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"tomolab/pkg/volume"
)

func TestResolveDevice(t *testing.T) {
	require.Equal(t, Device("cuda:0"), ResolveDevice("cuda:0"), "explicit device wins")
	require.Equal(t, DeviceCPU, ResolveDevice(""), "empty falls back to cpu")
	require.Equal(t, DeviceCPU, ResolveDevice("auto"), "auto without accelerator falls back to cpu")
}

func TestRegistryResolvesBuiltins(t *testing.T) {
	r := DefaultRegistry()
	require.Equal(t, []string{"Conv", "Median"}, r.Names())

	for _, name := range r.Names() {
		den, err := r.New(name)
		require.NoError(t, err)
		require.NotNil(t, den)
	}
}

func TestRegistryRejectsUnknownName(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.New("DnCNN")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownDenoiser))
}

func writeKernel(t *testing.T, kernel []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernel.vol")
	require.NoError(t, volume.SaveVector(path, kernel))
	return path
}

func TestConvDeltaKernelIsIdentity(t *testing.T) {
	ckpt := writeKernel(t, []float64{0, 1, 0})
	den := &Conv{}
	require.NoError(t, den.Load(ckpt, DeviceCPU))

	img := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	out, err := den.Apply(img)
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(img, out, 1e-12))
}

func TestConvSmoothsASpike(t *testing.T) {
	ckpt := writeKernel(t, []float64{1, 1, 1})
	den := &Conv{}
	require.NoError(t, den.Load(ckpt, DeviceCPU))

	img := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		0, 9, 0,
		0, 0, 0,
	})
	out, err := den.Apply(img)
	require.NoError(t, err)
	require.Less(t, out.At(1, 1), img.At(1, 1), "the spike must be attenuated")
	require.Greater(t, out.At(0, 0), 0.0, "energy must spread to neighbors")
}

func TestConvRejectsEvenKernel(t *testing.T) {
	ckpt := writeKernel(t, []float64{0.5, 0.5})
	den := &Conv{}
	require.Error(t, den.Load(ckpt, DeviceCPU))
}

func TestConvRejectsZeroSumKernel(t *testing.T) {
	ckpt := writeKernel(t, []float64{-1, 0, 1})
	den := &Conv{}
	require.Error(t, den.Load(ckpt, DeviceCPU))
}

func TestConvLoadMissingCheckpoint(t *testing.T) {
	den := &Conv{}
	err := den.Load(filepath.Join(t.TempDir(), "missing.vol"), DeviceCPU)
	require.Error(t, err)
}

func TestConvApplyBeforeLoad(t *testing.T) {
	den := &Conv{}
	_, err := den.Apply(mat.NewDense(1, 1, []float64{1}))
	require.Error(t, err)
}

func TestMedianRemovesImpulse(t *testing.T) {
	ckpt := filepath.Join(t.TempDir(), "median.ckpt")
	require.NoError(t, os.WriteFile(ckpt, []byte{0}, 0644))

	den := &Median{}
	require.NoError(t, den.Load(ckpt, DeviceCPU))

	img := mat.NewDense(3, 3, []float64{
		1, 1, 1,
		1, 99, 1,
		1, 1, 1,
	})
	out, err := den.Apply(img)
	require.NoError(t, err)
	require.Equal(t, 1.0, out.At(1, 1), "a lone impulse must be replaced by the neighborhood median")
}

func TestMedianLoadMissingCheckpoint(t *testing.T) {
	den := &Median{}
	err := den.Load(filepath.Join(t.TempDir(), "missing.ckpt"), DeviceCPU)
	require.Error(t, err)
}
