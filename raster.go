package variogram

import (
	"fmt"
	"math"

	"github.com/flywave/go-cog"
	"github.com/flywave/go-geo"
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

const defaultNoData = float64(-9999)

// Raster is a single band grid of values, row 0 being the northern edge.
type Raster struct {
	Width  int
	Height int
	NoData float64

	data       []float64
	georef     *geo.GeoReference
	targetProj geo.Proj
}

func NewRaster(data []float64, width, height int, georef *geo.GeoReference) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: raster size %dx%d", ErrInvalidParameter, width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("%w: %d values for a %dx%d raster", ErrLengthMismatch, len(data), width, height)
	}
	return &Raster{
		Width:  width,
		Height: height,
		NoData: defaultNoData,
		data:   data,
		georef: georef,
	}, nil
}

// OpenRaster reads the first band of a (cloud optimized) GeoTIFF.
func OpenRaster(path string) (*Raster, error) {
	rd := cog.Read(path)
	if rd == nil || len(rd.Data) == 0 {
		return nil, fmt.Errorf("%w: cannot read raster %s", ErrNoSamples, path)
	}
	data, ok := rd.Data[0].([]float64)
	if !ok {
		return nil, fmt.Errorf("%w: raster %s is not a float64 band", ErrInvalidParameter, path)
	}

	code, err := rd.GetEPSGCode(0)
	if err != nil {
		return nil, fmt.Errorf("raster %s: %w", path, err)
	}
	si := rd.GetSize(0)
	georef := geo.NewGeoReference(rd.GetBounds(0), geo.NewProj(code))

	return NewRaster(data, int(si[0]), int(si[1]), georef)
}

func calculatePixelSize(width, height int, bbox vec2d.Rect) [2]float64 {
	return [2]float64{
		(bbox.Max[0] - bbox.Min[0]) / float64(width),
		(bbox.Max[1] - bbox.Min[1]) / float64(height),
	}
}

func (r *Raster) PixelSize() [2]float64 {
	return calculatePixelSize(r.Width, r.Height, r.georef.GetBBox())
}

func (r *Raster) Srs() geo.Proj {
	return r.georef.GetSrs()
}

// SetTargetSrs makes Positions reproject the pixel centers to srs. nil keeps
// the raster SRS.
func (r *Raster) SetTargetSrs(srs *string) {
	if srs == nil {
		r.targetProj = nil
		return
	}
	r.targetProj = geo.NewProj(srs)
}

func (r *Raster) Value(row, column int) float64 {
	return r.data[row*r.Width+column]
}

func (r *Raster) valid(v float64) bool {
	return !math.IsNaN(v) && v != r.NoData
}

// Positions returns the pixel centers of every stride-th row and column with
// their value, skipping no-data pixels. The centers are in the target SRS
// when one is set.
func (r *Raster) Positions(stride int) []vec3d.T {
	if stride < 1 {
		stride = 1
	}
	bbox := r.georef.GetBBox()
	ps := r.PixelSize()

	ret := make([]vec3d.T, 0, (r.Width/stride+1)*(r.Height/stride+1))
	for row := 0; row < r.Height; row += stride {
		y := bbox.Max[1] - ps[1]*(float64(row)+0.5)
		for col := 0; col < r.Width; col += stride {
			v := r.Value(row, col)
			if !r.valid(v) {
				continue
			}
			x := bbox.Min[0] + ps[0]*(float64(col)+0.5)
			ret = append(ret, vec3d.T{x, y, v})
		}
	}
	transform(ret, r.Srs(), r.targetProj)
	return ret
}

// Variogram builds a Variogram over the raster sampled with stride.
func (r *Raster) Variogram(stride int, opts Options) (*Variogram, error) {
	pos := r.Positions(stride)
	if len(pos) == 0 {
		return nil, ErrNoSamples
	}
	return NewFromPositions(pos, opts)
}
