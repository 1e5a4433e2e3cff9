package ubuf

// Kind distinguishes the structural buffer variants this module uses.
type Kind uint8

const (
	// KindBlock is a single contiguous byte range (compressed elementary
	// stream data, TS packets, PSI sections).
	KindBlock Kind = iota
	// KindPicture is a set of named image planes, each with its own
	// horizontal/vertical chroma subsampling and sample size.
	KindPicture
	// KindSound is a set of named audio channel planes, all sharing one
	// sample size and sample rate.
	KindSound
)

// PlaneSpec describes one named plane of a picture or sound Layout.
// HSub/VSub are the chroma subsampling factors (1 for luma and for every
// sound plane; 2 for a 4:2:0 chroma plane, etc). SampleSize is bytes per
// sample (e.g. 1 for 8-bit planar, 2 for 16-bit PCM).
type PlaneSpec struct {
	Name       string
	HSub       int
	VSub       int
	SampleSize int
}

// Layout is the immutable shape a Manager stamps onto every Buffer it
// allocates: which kind, and for picture/sound, which named planes exist
// and how their strides are derived from the buffer's pixel/sample
// dimensions.
type Layout struct {
	Kind   Kind
	Planes []PlaneSpec // empty for KindBlock
}

// BlockLayout is the trivial one-plane byte-range layout.
func BlockLayout() Layout { return Layout{Kind: KindBlock} }

// PlaneSpecByName finds a named plane, or reports ok=false.
func (l Layout) PlaneSpecByName(name string) (PlaneSpec, bool) {
	for _, p := range l.Planes {
		if p.Name == name {
			return p, true
		}
	}
	return PlaneSpec{}, false
}

// stride returns bytes per row for a plane given the buffer's nominal
// horizontal size in pixels/samples.
func (p PlaneSpec) stride(hsize int) int {
	return (hsize / p.HSub) * p.SampleSize
}

func (p PlaneSpec) rows(vsize int) int {
	if p.VSub <= 0 {
		return vsize
	}
	return vsize / p.VSub
}

// PlanarYUV420 is the planar YUV 4:2:0 picture layout: a full-size "y"
// plane plus "u" and "v" planes subsampled by 2 in both directions.
func PlanarYUV420() Layout {
	return Layout{Kind: KindPicture, Planes: []PlaneSpec{
		{Name: "y", HSub: 1, VSub: 1, SampleSize: 1},
		{Name: "u", HSub: 2, VSub: 2, SampleSize: 1},
		{Name: "v", HSub: 2, VSub: 2, SampleSize: 1},
	}}
}

// InterleavedStereoPCM16 is a "sound." layout with one interleaved plane
// carrying both channels, 16-bit samples.
func InterleavedStereoPCM16() Layout {
	return Layout{Kind: KindSound, Planes: []PlaneSpec{
		{Name: "lr", HSub: 1, VSub: 1, SampleSize: 4},
	}}
}
