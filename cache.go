package variogram

// slot names one derived artifact of a Variogram.
type slot int

const (
	slotDistances slot = iota
	slotDiffs
	slotBins
	slotExperimental
	slotFit
	numSlots
)

var slotNames = [numSlots]string{"distances", "diffs", "bins", "experimental", "fit"}

func (s slot) String() string {
	return slotNames[s]
}

// dependents lists the slots computed directly from each slot.
var dependents = [numSlots][]slot{
	slotDistances:    {slotBins},
	slotDiffs:        {slotExperimental},
	slotBins:         {slotExperimental},
	slotExperimental: {slotFit},
	slotFit:          nil,
}

// slots tracks which derived artifacts are up to date.
type slots [numSlots]bool

func (v *slots) valid(s slot) bool {
	return v[s]
}

func (v *slots) set(s slot) {
	v[s] = true
}

// invalidate clears s and everything derived from it.
func (v *slots) invalidate(s slot) {
	v[s] = false
	for _, d := range dependents[s] {
		v.invalidate(d)
	}
}

func (v *slots) invalidateAll() {
	for s := slot(0); s < numSlots; s++ {
		v[s] = false
	}
}
