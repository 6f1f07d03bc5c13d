package variogram

import (
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// VoxelGrid thins positions: all positions falling into one voxel are
// replaced by their centroid. A leaf size <= 0 leaves that axis undivided.
type VoxelGrid struct {
	LeafSize vec3d.T
}

type voxel struct {
	sum   vec3d.T
	num   int
	index int
}

func NewVoxelGrid(leafSize vec3d.T) *VoxelGrid {
	return &VoxelGrid{LeafSize: leafSize}
}

// NewVoxelGridFor divides the bounding box of pos into div voxels per axis.
func NewVoxelGridFor(pos []vec3d.T, div [3]uint32) (*VoxelGrid, error) {
	box, err := boundsOf(pos)
	if err != nil {
		return nil, err
	}
	var leaf vec3d.T
	for i := range leaf {
		if div[i] > 0 {
			leaf[i] = (box.Max[i] - box.Min[i]) / float64(div[i])
		}
	}
	return NewVoxelGrid(leaf), nil
}

func boundsOf(pos []vec3d.T) (vec3d.Box, error) {
	if len(pos) == 0 {
		return vec3d.Box{}, ErrNoSamples
	}
	box := vec3d.Box{Min: vec3d.MaxVal, Max: vec3d.MinVal}
	for i := range pos {
		box.Extend(&pos[i])
	}
	return box, nil
}

func (f *VoxelGrid) cell(p, min vec3d.T) [3]int {
	var c [3]int
	for i := range c {
		if f.LeafSize[i] > 0 {
			c[i] = int(math.Floor((p[i] - min[i]) / f.LeafSize[i]))
		}
	}
	return c
}

// Filter returns one position per occupied voxel, in the order the voxels
// were first hit.
func (f *VoxelGrid) Filter(pc []vec3d.T) ([]vec3d.T, error) {
	box, err := boundsOf(pc)
	if err != nil {
		return nil, err
	}

	voxels := make(map[[3]int]*voxel)
	order := make([][3]int, 0)
	for i := range pc {
		c := f.cell(pc[i], box.Min)
		v, ok := voxels[c]
		if !ok {
			v = &voxel{index: i}
			voxels[c] = v
			order = append(order, c)
		}
		p := pc[i]
		v.sum.Add(&p)
		v.num++
	}

	ret := make([]vec3d.T, 0, len(order))
	for _, c := range order {
		v := voxels[c]
		if v.num == 1 {
			ret = append(ret, pc[v.index])
			continue
		}
		s := 1 / float64(v.num)
		ret = append(ret, vec3d.T{v.sum[0] * s, v.sum[1] * s, v.sum[2] * s})
	}
	return ret, nil
}
