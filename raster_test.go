package variogram

import (
	"errors"
	"math"
	"testing"

	"github.com/flywave/go-geo"
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRaster(t *testing.T) *Raster {
	georef := geo.NewGeoReference(vec2d.Rect{Min: vec2d.T{0, 0}, Max: vec2d.T{4, 2}}, epsg4326)
	r, err := NewRaster([]float64{
		1, 2, 3, 4,
		5, defaultNoData, 7, math.NaN(),
	}, 4, 2, georef)
	require.NoError(t, err)
	return r
}

func TestRasterPositions(t *testing.T) {
	a := assert.New(t)
	r := testRaster(t)

	a.Equal([2]float64{1, 1}, r.PixelSize())
	a.Equal(7.0, r.Value(1, 2))

	a.Equal([]vec3d.T{
		{0.5, 1.5, 1}, {1.5, 1.5, 2}, {2.5, 1.5, 3}, {3.5, 1.5, 4},
		{0.5, 0.5, 5}, {2.5, 0.5, 7},
	}, r.Positions(1))

	a.Equal([]vec3d.T{{0.5, 1.5, 1}, {2.5, 1.5, 3}}, r.Positions(2))
}

func TestRasterTargetSrs(t *testing.T) {
	a := assert.New(t)
	r := testRaster(t)
	a.True(r.Srs().Eq(epsg4326))

	target := "EPSG:3857"
	r.SetTargetSrs(&target)
	pos := r.Positions(1)
	if a.Len(pos, 6) {
		a.InEpsilon(55659.745, pos[0][0], 1e-4)
		a.InEpsilon(166998.31, pos[0][1], 1e-4)
		a.InEpsilon(278298.73, pos[5][0], 1e-4)
		a.Equal(1.0, pos[0][2])
		a.Equal(7.0, pos[5][2])
	}

	r.SetTargetSrs(nil)
	a.Equal(vec3d.T{0.5, 1.5, 1}, r.Positions(1)[0])
}

func TestRasterVariogram(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	r := testRaster(t)

	v, err := r.Variogram(1, Options{Lags: 2})
	require.NoError(err)
	a.Equal([]float64{1, 2, 3, 4, 5, 7}, v.Values())
}

func TestNewRasterErrors(t *testing.T) {
	a := assert.New(t)

	_, err := NewRaster([]float64{1, 2, 3}, 2, 2, nil)
	a.True(errors.Is(err, ErrLengthMismatch))

	_, err = NewRaster(nil, 0, 2, nil)
	a.True(errors.Is(err, ErrInvalidParameter))
}
