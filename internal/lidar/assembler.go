package lidar

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ScanPolicy selects how a completed rotation is reduced before
// publication. Which policy is appropriate depends on the sensor model
// and the downstream consumer's tolerance for raw point density.
type ScanPolicy int

const (
	// PolicyDirectFilter drops points failing the intensity/distance/angle
	// filters and publishes the survivors verbatim.
	PolicyDirectFilter ScanPolicy = iota
	// PolicyBucketAverage bins points into 360 one-degree buckets and
	// publishes the per-bucket mean distance and intensity. Empty buckets
	// are published at the configured maximum distance.
	PolicyBucketAverage
)

// AssemblerConfig carries the per-model tuning knobs for scan assembly.
type AssemblerConfig struct {
	// MeasureFrequency is the sensor's sample rate in points per second.
	MeasureFrequency float64
	// FullCircleFactor bounds how many points a single rotation may hold
	// relative to the expected count before the buffered prefix is
	// considered a stuck angle wrap and discarded.
	FullCircleFactor float64
	// OverflowFactor is the hard accumulation bound; exceeding it drops
	// the whole buffer even without a wrap, so a misbehaving device
	// cannot grow memory without limit.
	OverflowFactor float64

	MinDistance  float64 // mm, below is filtered (direct policy)
	MaxDistance  float64 // mm, above is filtered; empty-bucket sentinel
	MinIntensity uint8

	// [InvalidAngleMin, InvalidAngleMax) in degrees is masked out under
	// the direct policy, typically the sector shadowed by the robot frame.
	// Equal values disable the mask.
	InvalidAngleMin float64
	InvalidAngleMax float64

	Policy ScanPolicy
}

// DefaultAssemblerConfig returns tuning suitable for the LD19.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		MeasureFrequency: 4500,
		FullCircleFactor: 1.4,
		OverflowFactor:   2.0,
		MinDistance:      20,
		MaxDistance:      12000,
		MinIntensity:     0,
		Policy:           PolicyDirectFilter,
	}
}

// AssemblerStats counts assembler outcomes.
type AssemblerStats struct {
	Published uint64 // completed rotations handed to the sink
	Rejected  uint64 // wrap candidates failing the plausibility bound
	Overflows uint64 // buffers dropped at the hard accumulation bound
}

// Assembler accumulates decoded points until the angle sequence wraps
// around a full rotation, then reduces and publishes the scan. Angles are
// inverted (360 - angle) at publication: the sensors scan in the opposite
// rotational sense from the robot frame convention.
type Assembler struct {
	cfg   AssemblerConfig
	sink  ScanSink
	speed float64 // degrees per second, from the latest packet

	points    []PointData
	lastAngle float64
	stats     AssemblerStats
}

const fullCircleWrapHigh = 340.0
const fullCircleWrapLow = 20.0

// NewAssembler returns an assembler publishing completed scans to sink.
func NewAssembler(cfg AssemblerConfig, sink ScanSink) *Assembler {
	return &Assembler{
		cfg:       cfg,
		sink:      sink,
		points:    make([]PointData, 0, 1024),
		lastAngle: -1,
	}
}

// SetSpeed records the current rotation speed in degrees per second,
// taken from the most recent measurement packet.
func (a *Assembler) SetSpeed(degPerSec float64) {
	if degPerSec > 0 {
		a.speed = degPerSec
	}
}

// Push feeds one decoded point. When the point's angle wraps below 20°
// after the previous point exceeded 340°, the buffered rotation is
// published (or rejected if implausibly large).
func (a *Assembler) Push(p PointData) {
	angle := math.Mod(p.Angle, 360)
	if angle < 0 {
		angle += 360
	}

	if a.lastAngle > fullCircleWrapHigh && angle < fullCircleWrapLow && len(a.points) > 0 {
		a.completeRotation()
	}

	p.Angle = angle
	a.points = append(a.points, p)
	a.lastAngle = angle

	if max := a.overflowBound(); max > 0 && len(a.points) > max {
		debugf("assembler: dropping %d points at overflow bound %d", len(a.points), max)
		a.points = a.points[:0]
		a.stats.Overflows++
	}
}

// Stats returns a snapshot of the assembler counters.
func (a *Assembler) Stats() AssemblerStats {
	return a.stats
}

// expectedPointsPerSpin derives the plausible point count for one
// rotation from the sample rate and the observed rotation speed. Zero
// means the speed is not yet known and bounds cannot be applied.
func (a *Assembler) expectedPointsPerSpin() int {
	if a.speed <= 0 || a.cfg.MeasureFrequency <= 0 {
		return 0
	}
	revPerSec := a.speed / 360.0
	return int(a.cfg.MeasureFrequency / revPerSec)
}

func (a *Assembler) overflowBound() int {
	expected := a.expectedPointsPerSpin()
	if expected == 0 || a.cfg.OverflowFactor <= 0 {
		return 0
	}
	return int(float64(expected) * a.cfg.OverflowFactor)
}

// completeRotation validates, sorts, reduces and publishes the buffered
// points, then clears the buffer for the next rotation.
func (a *Assembler) completeRotation() {
	defer func() { a.points = a.points[:0] }()

	if expected := a.expectedPointsPerSpin(); expected > 0 {
		if float64(len(a.points)) > float64(expected)*a.cfg.FullCircleFactor {
			debugf("assembler: rejecting rotation of %d points (expected %d)", len(a.points), expected)
			a.stats.Rejected++
			return
		}
	}

	// Serial chunking can deliver packets slightly out of angular order.
	sort.Slice(a.points, func(i, j int) bool {
		return a.points[i].Stamp < a.points[j].Stamp
	})

	var rows [][3]float32
	switch a.cfg.Policy {
	case PolicyBucketAverage:
		rows = a.bucketAverage()
	default:
		rows = a.directFilter()
	}

	a.sink.PublishScan(rows)
	a.stats.Published++
}

// directFilter applies the intensity/distance/angle filters and emits one
// row per surviving point as {inverted angle, distance, intensity}.
func (a *Assembler) directFilter() [][3]float32 {
	rows := make([][3]float32, 0, len(a.points))
	for _, p := range a.points {
		d := float64(p.Distance)
		if p.Intensity < a.cfg.MinIntensity {
			continue
		}
		if d < a.cfg.MinDistance || (a.cfg.MaxDistance > 0 && d > a.cfg.MaxDistance) {
			continue
		}
		if a.cfg.InvalidAngleMin != a.cfg.InvalidAngleMax &&
			p.Angle >= a.cfg.InvalidAngleMin && p.Angle < a.cfg.InvalidAngleMax {
			continue
		}
		rows = append(rows, [3]float32{
			float32(invertAngle(p.Angle)),
			float32(d),
			float32(p.Intensity),
		})
	}
	return rows
}

// bucketAverage bins points into 360 integer-degree buckets keyed by the
// inverted angle and emits the mean distance and intensity per bucket.
// Buckets no point landed in publish the maximum distance so consumers
// see "nothing within range" rather than a gap.
func (a *Assembler) bucketAverage() [][3]float32 {
	var distances, intensities [360][]float64
	for _, p := range a.points {
		d := float64(p.Distance)
		if d < a.cfg.MinDistance || (a.cfg.MaxDistance > 0 && d > a.cfg.MaxDistance) {
			continue
		}
		bin := int(invertAngle(p.Angle)) % 360
		distances[bin] = append(distances[bin], d)
		intensities[bin] = append(intensities[bin], float64(p.Intensity))
	}

	rows := make([][3]float32, 0, 360)
	for bin := 0; bin < 360; bin++ {
		if len(distances[bin]) == 0 {
			rows = append(rows, [3]float32{float32(bin), float32(a.cfg.MaxDistance), 0})
			continue
		}
		rows = append(rows, [3]float32{
			float32(bin),
			float32(stat.Mean(distances[bin], nil)),
			float32(stat.Mean(intensities[bin], nil)),
		})
	}
	return rows
}

func invertAngle(angle float64) float64 {
	inv := 360 - angle
	if inv >= 360 {
		inv -= 360
	}
	return inv
}
