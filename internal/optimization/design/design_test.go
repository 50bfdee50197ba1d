package design

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

func TestGeneratorsStayInBounds(t *testing.T) {
	bounds := [][2]float64{{-1, 1}, {0, 10}, {5, 5}}

	for _, name := range []string{UniformName, LatinHypercubeName} {
		t.Run(name, func(t *testing.T) {
			gen, ok := Lookup(name)
			require.True(t, ok)

			X, err := gen(50, bounds, rand.New(rand.NewSource(42)))
			require.NoError(t, err)
			rows, cols := X.Dims()
			assert.Equal(t, 50, rows)
			assert.Equal(t, 3, cols)
			for i := 0; i < rows; i++ {
				assert.True(t, optimization.Contains(X.RawRowView(i), bounds), "row %d out of bounds", i)
			}
		})
	}
}

func TestLatinHypercubeStratification(t *testing.T) {
	n := 20
	bounds := [][2]float64{{0, 1}, {-2, 2}}
	X, err := LatinHypercube(n, bounds, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for j, b := range bounds {
		seen := make([]bool, n)
		for i := 0; i < n; i++ {
			u := (X.At(i, j) - b[0]) / (b[1] - b[0])
			stratum := int(u * float64(n))
			if stratum == n {
				stratum = n - 1
			}
			assert.False(t, seen[stratum], "dimension %d has two points in stratum %d", j, stratum)
			seen[stratum] = true
		}
	}
}

func TestGeneratorErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := Uniform(10, [][2]float64{{0, 1}, {0, math.Inf(1)}}, rng)
	require.Error(t, err)
	assert.True(t, optimization.IsKind(err, optimization.KindConfiguration))

	_, err = LatinHypercube(10, nil, rng)
	require.Error(t, err)

	_, err = Uniform(-1, [][2]float64{{0, 1}}, rng)
	require.Error(t, err)

	X, err := Uniform(0, [][2]float64{{0, 1}}, rng)
	require.NoError(t, err)
	assert.True(t, X.IsEmpty())

	_, ok := Lookup("sobol")
	assert.False(t, ok)
}

func TestDeterministicWithSeed(t *testing.T) {
	bounds := [][2]float64{{0, 1}, {0, 1}}
	a, err := LatinHypercube(10, bounds, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	b, err := LatinHypercube(10, bounds, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, a.RawMatrix().Data, b.RawMatrix().Data)
}
