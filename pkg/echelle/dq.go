package echelle

import (
	"log"
)

// DQFlag is a STIS data-quality bit. The full table is in the STIS
// data handbook; the names here match it.
type DQFlag int32

const (
	DQReedSolomon  DQFlag = 1
	DQFillVals     DQFlag = 2
	DQDetectorPix  DQFlag = 4
	DQOccultingBar DQFlag = 8
	DQHighDark     DQFlag = 16
	DQLargeBlemish DQFlag = 32
	DQVignetted    DQFlag = 64
	DQOverscan     DQFlag = 128
	DQSaturated    DQFlag = 256
	DQRefPixel     DQFlag = 512
	DQSmallBlemish DQFlag = 1024
	DQBackground   DQFlag = 2048
	DQBadInput     DQFlag = 4096
	DQCosmicRay    DQFlag = 8192
	DQNegative     DQFlag = 16384
)

// DefaultBadFlags is the out-of-the-box exclusion set: large
// blemishes and vignetted pixels.
const DefaultBadFlags = DQLargeBlemish | DQVignetted

var dqNames = map[string]DQFlag{
	"reed-solomon":  DQReedSolomon,
	"fill_vals":     DQFillVals,
	"detector_pix":  DQDetectorPix,
	"occulting_bar": DQOccultingBar,
	"high_dark":     DQHighDark,
	"large_blemish": DQLargeBlemish,
	"vignetted":     DQVignetted,
	"overscan":      DQOverscan,
	"saturated":     DQSaturated,
	"ref_pixel":     DQRefPixel,
	"small_blemish": DQSmallBlemish,
	"background":    DQBackground,
	"bad_input":     DQBadInput,
	"cosmic_ray":    DQCosmicRay,
	"negative":      DQNegative,
}

// ParseDQFlag looks up a flag by its handbook name.
func ParseDQFlag(name string) (DQFlag, bool) {
	f, ok := dqNames[name]
	return f, ok
}

// A Mask marks pixels to exclude, shaped orders x pixels like the
// exposure arrays. A nil Mask excludes nothing.
type Mask [][]bool

// Excluded reports whether the pixel at (order, pix) is masked out.
func (m Mask) Excluded(order, pix int) bool {
	return m != nil && m[order][pix]
}

// BadPix computes the exclusion mask for an exposure's DQ array:
// a pixel is excluded when it carries any of the given flag bits.
// A nil dq array or an empty flag set yields a nil mask.
func BadPix(dq [][]int32, flags DQFlag) Mask {
	if dq == nil {
		return nil
	}
	if flags == 0 {
		log.Printf("Warning: no dq flags selected, nothing masked\n")
		return nil
	}
	m := make(Mask, len(dq))
	for o := range dq {
		m[o] = make([]bool, len(dq[o]))
		for i, v := range dq[o] {
			m[o][i] = DQFlag(v)&flags != 0
		}
	}
	return m
}
