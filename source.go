package variogram

import (
	"fmt"
	"os"

	"github.com/flywave/go-geo"
	"github.com/flywave/go-geoid"
	"github.com/flywave/go-geom"
	"github.com/flywave/go-geom/general"
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

var epsg4326 geo.Proj

func init() {
	epsg4326 = geo.NewProj(4326)
}

// SourceOptions controls how features become samples. Positions are taken to
// EPSG:4326 for the vertical datum conversion and then to TargetSrs, if set.
type SourceOptions struct {
	InputSrs     *string
	TargetSrs    *string
	HeightModel  geoid.VerticalDatum
	HeightOffset float64
	// FilterSize is the number of thinning voxels per axis, nil disables
	// thinning.
	FilterSize *[3]uint32
}

// FeatureSource turns the vertices of a feature collection into samples,
// their z coordinate being the value.
type FeatureSource struct {
	input        *geom.FeatureCollection
	inputProj    geo.Proj
	targetProj   geo.Proj
	heightModel  geoid.VerticalDatum
	heightOffset float64
	filterSize   *[3]uint32
}

func NewFeatureSource(fc *geom.FeatureCollection, opts SourceOptions) *FeatureSource {
	s := &FeatureSource{
		input:        fc,
		heightModel:  opts.HeightModel,
		heightOffset: opts.HeightOffset,
		filterSize:   opts.FilterSize,
	}
	if opts.InputSrs != nil {
		s.inputProj = geo.NewProj(opts.InputSrs)
	}
	if opts.TargetSrs != nil {
		s.targetProj = geo.NewProj(opts.TargetSrs)
	}
	return s
}

// LoadGeoJSON reads a feature collection from path.
func LoadGeoJSON(path string) (*geom.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := general.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

func (s *FeatureSource) extractPositions() []vec3d.T {
	ret := make([]vec3d.T, 0, 1000)
	add := func(x, y, z float64) {
		ret = append(ret, vec3d.T{x, y, z})
	}

	for _, fea := range s.input.Features {
		switch g := fea.Geometry.(type) {
		case *general.Point:
			add(g.X(), g.Y(), g.Data()[2])
		case *general.MultiPoint:
			for _, p := range g.Points() {
				add(p.X(), p.Y(), p.Data()[2])
			}
		case *general.LineString:
			for _, p := range g.Subpoints() {
				add(p.X(), p.Y(), p.Data()[2])
			}
		case *general.MultiLine:
			for _, li := range g.Lines() {
				for _, p := range li.Subpoints() {
					add(p.X(), p.Y(), p.Data()[2])
				}
			}
		case *general.Polygon:
			for _, li := range g.Sublines() {
				for _, p := range li.Subpoints() {
					add(p.X(), p.Y(), p.Data()[2])
				}
			}
		case *general.MultiPolygon:
			for _, poly := range g.Polygons() {
				for _, li := range poly.Sublines() {
					for _, p := range li.Subpoints() {
						add(p.X(), p.Y(), p.Data()[2])
					}
				}
			}
		}
	}
	return ret
}

// transform reprojects the horizontal part of pos in place.
func transform(pos []vec3d.T, from, to geo.Proj) {
	if from == nil || to == nil || from.Eq(to) {
		return
	}
	xy := make([]vec2d.T, len(pos))
	for i := range pos {
		xy[i] = vec2d.T{pos[i][0], pos[i][1]}
	}
	xy = from.TransformTo(to, xy)
	for i := range pos {
		pos[i][0], pos[i][1] = xy[i][0], xy[i][1]
	}
}

// convertHeight takes the values of positions in EPSG:4326 to ellipsoidal
// heights.
func (s *FeatureSource) convertHeight(pos []vec3d.T) {
	if (s.heightModel == geoid.HAE && s.heightOffset == 0) || s.heightModel == geoid.UNKNOWN {
		return
	}
	if s.heightModel == geoid.HAE {
		for i := range pos {
			pos[i][2] += s.heightOffset
		}
		return
	}
	gid := geoid.NewGeoid(s.heightModel, false)
	for i := range pos {
		pos[i][2] = gid.ConvertHeight(pos[i][0], pos[i][1], pos[i][2], geoid.GEOIDTOELLIPSOID)
	}
}

func (s *FeatureSource) filter(pos []vec3d.T) ([]vec3d.T, error) {
	if s.filterSize == nil {
		return pos, nil
	}
	vg, err := NewVoxelGridFor(pos, *s.filterSize)
	if err != nil {
		return nil, err
	}
	return vg.Filter(pos)
}

// Positions returns the samples as (x, y, value).
func (s *FeatureSource) Positions() ([]vec3d.T, error) {
	if s.input == nil {
		return nil, ErrNoSamples
	}
	pos := s.extractPositions()
	if len(pos) == 0 {
		return nil, ErrNoSamples
	}

	transform(pos, s.inputProj, epsg4326)
	s.convertHeight(pos)
	transform(pos, epsg4326, s.targetProj)

	return s.filter(pos)
}

// Variogram builds a Variogram over the positions of the source.
func (s *FeatureSource) Variogram(opts Options) (*Variogram, error) {
	pos, err := s.Positions()
	if err != nil {
		return nil, err
	}
	return NewFromPositions(pos, opts)
}
