package dvbs2

import (
	"fmt"
	"math"
)

// A Point is one constellation point in the I/Q plane.
type Point struct {
	I float64
	Q float64
}

func polar(r, theta float64) Point {
	return Point{I: r * math.Cos(theta), Q: r * math.Sin(theta)}
}

// gamma16APSK is the outer to inner ring ratio of 16APSK.
var gamma16APSK = map[FrameType]map[CodeRate]float64{
	FECFrameNormal: {
		C2_3: 3.15, C3_4: 2.85, C4_5: 2.75, C5_6: 2.70,
		C8_9: 2.60, C9_10: 2.57, C3_5: 3.70,
	},
	FECFrameShort: {
		C2_3: 3.15, C3_4: 2.85, C4_5: 2.75, C5_6: 2.70,
		C8_9: 2.60, C3_5: 3.70,
	},
}

// gamma32APSK holds the outer to inner (gamma2) and middle to inner (gamma1)
// ring ratios of 32APSK.
var gamma32APSK = map[CodeRate][2]float64{
	C3_4:  {5.27, 2.84},
	C4_5:  {4.87, 2.72},
	C5_6:  {4.64, 2.64},
	C8_9:  {4.33, 2.54},
	C9_10: {4.30, 2.53},
}

// RingRadii returns the ring radii of an APSK constellation from the inner
// ring outwards. The outer ring always has radius 1. When the code rate has
// no ring ratio the inner radii are 0 and ok is false. QPSK and 8PSK have a
// single ring of radius 1.
func RingRadii(cfg Config) (radii []float64, ok bool) {
	switch cfg.Constellation {
	case Mod16APSK:
		gamma, found := gamma16APSK[cfg.FrameType][cfg.CodeRate]
		if !found {
			return []float64{0, 1}, false
		}

		return []float64{1 / gamma, 1}, true
	case Mod32APSK:
		g, found := gamma32APSK[cfg.CodeRate]
		if !found {
			return []float64{0, 0, 1}, false
		}

		r1 := 1 / g[0]

		return []float64{r1, r1 * g[1], 1}, true
	default:
		return []float64{1}, true
	}
}

// ModulationTable returns the ordered points of the configuration's
// constellation. Index i is the symbol that the bit mapper emits for bit
// pattern i.
func ModulationTable(cfg Config) ([]Point, error) {
	switch cfg.Constellation {
	case ModQPSK:
		return qpsk(), nil
	case Mod8PSK:
		return psk8(), nil
	case Mod16APSK:
		radii, _ := RingRadii(cfg)
		return apsk16(radii[0], radii[1]), nil
	case Mod32APSK:
		radii, _ := RingRadii(cfg)
		return apsk32(radii[0], radii[1], radii[2]), nil
	default:
		return nil, fmt.Errorf("%w: constellation %s", ErrUnsupported, cfg.Constellation)
	}
}

func qpsk() []Point {
	return anglesOnRing(1, []float64{
		math.Pi / 4, 7 * math.Pi / 4, 3 * math.Pi / 4, 5 * math.Pi / 4,
	})
}

func psk8() []Point {
	return anglesOnRing(1, []float64{
		math.Pi / 4, 0, math.Pi, 5 * math.Pi / 4,
		math.Pi / 2, 7 * math.Pi / 4, 3 * math.Pi / 4, 6 * math.Pi / 4,
	})
}

func apsk16(r1, r2 float64) []Point {
	outer := anglesOnRing(r2, []float64{
		math.Pi / 4, -math.Pi / 4, 3 * math.Pi / 4, -3 * math.Pi / 4,
		math.Pi / 12, -math.Pi / 12, 11 * math.Pi / 12, -11 * math.Pi / 12,
		5 * math.Pi / 12, -5 * math.Pi / 12, 7 * math.Pi / 12, -7 * math.Pi / 12,
	})
	inner := anglesOnRing(r1, []float64{
		math.Pi / 4, -math.Pi / 4, 3 * math.Pi / 4, -3 * math.Pi / 4,
	})

	return append(outer, inner...)
}

func apsk32(r1, r2, r3 float64) []Point {
	type ringAngle struct {
		r     float64
		theta float64
	}

	pi := math.Pi
	layout := []ringAngle{
		{r2, pi / 4}, {r2, 5 * pi / 12}, {r2, -pi / 4}, {r2, -5 * pi / 12},
		{r2, 3 * pi / 4}, {r2, 7 * pi / 12}, {r2, -3 * pi / 4}, {r2, -7 * pi / 12},
		{r3, pi / 8}, {r3, 3 * pi / 8}, {r3, -pi / 4}, {r3, -pi / 2},
		{r3, 3 * pi / 4}, {r3, pi / 2}, {r3, -7 * pi / 8}, {r3, -5 * pi / 8},
		{r2, pi / 12}, {r1, pi / 4}, {r2, -pi / 12}, {r1, -pi / 4},
		{r2, 11 * pi / 12}, {r1, 3 * pi / 4}, {r2, -11 * pi / 12}, {r1, -3 * pi / 4},
		{r3, 0}, {r3, pi / 4}, {r3, -pi / 8}, {r3, -3 * pi / 8},
		{r3, 7 * pi / 8}, {r3, 5 * pi / 8}, {r3, pi}, {r3, -3 * pi / 4},
	}

	points := make([]Point, len(layout))
	for i, l := range layout {
		points[i] = polar(l.r, l.theta)
	}

	return points
}

func anglesOnRing(r float64, angles []float64) []Point {
	points := make([]Point, len(angles))
	for i, theta := range angles {
		points[i] = polar(r, theta)
	}

	return points
}
