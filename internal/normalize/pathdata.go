package normalize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/plotter-studio/backend/internal/models"
)

const (
	minPathSamples   = 8
	maxPathSamples   = 300
	sampleSpacing    = 2.0
	curveSubdivision = 64
)

// pathSegment is one drawn piece of a path with an arc-length lookup table.
// lut[i] is the length from the segment start to eval(i/(len(lut)-1)).
type pathSegment struct {
	eval   func(t float64) models.Point
	lut    []float64
	length float64
}

func newSegment(eval func(t float64) models.Point, subdivisions int) pathSegment {
	lut := make([]float64, subdivisions+1)
	prev := eval(0)
	for i := 1; i <= subdivisions; i++ {
		pt := eval(float64(i) / float64(subdivisions))
		lut[i] = lut[i-1] + models.Distance(prev, pt)
		prev = pt
	}
	return pathSegment{eval: eval, lut: lut, length: lut[subdivisions]}
}

func (s pathSegment) pointAt(length float64) models.Point {
	if s.length <= 0 {
		return s.eval(0)
	}
	i := sort.SearchFloat64s(s.lut, length)
	if i <= 0 {
		return s.eval(0)
	}
	if i >= len(s.lut) {
		return s.eval(1)
	}
	span := s.lut[i] - s.lut[i-1]
	frac := 0.0
	if span > 0 {
		frac = (length - s.lut[i-1]) / span
	}
	n := float64(len(s.lut) - 1)
	return s.eval((float64(i-1) + frac) / n)
}

// svgPath is parsed path data reduced to drawn segments in absolute coordinates.
type svgPath struct {
	segments []pathSegment
	length   float64
}

func (p *svgPath) add(seg pathSegment) {
	p.segments = append(p.segments, seg)
	p.length += seg.length
}

// pointAtLength walks the segments to the given distance from the path start.
func (p *svgPath) pointAtLength(at float64) models.Point {
	remaining := at
	for i, seg := range p.segments {
		if remaining <= seg.length || i == len(p.segments)-1 {
			return seg.pointAt(math.Min(remaining, seg.length))
		}
		remaining -= seg.length
	}
	return models.Point{}
}

// samplePath converts path data into a polyline sampled at equal arc-length
// intervals. Unparseable or zero-length data yields nil.
func samplePath(d string) models.Polyline {
	path, err := parsePathData(d)
	if err != nil || len(path.segments) == 0 {
		return nil
	}
	length := path.length
	if math.IsNaN(length) || math.IsInf(length, 0) || length <= 0 {
		return nil
	}

	steps := int(math.Ceil(length / sampleSpacing))
	steps = max(minPathSamples, min(maxPathSamples, steps))

	sampled := make(models.Polyline, 0, steps+1)
	for i := 0; i <= steps; i++ {
		at := length * float64(i) / float64(steps)
		sampled = append(sampled, path.pointAtLength(at))
	}
	return sampled
}

// pathScanner tokenizes SVG path data.
type pathScanner struct {
	s   string
	pos int
}

func (sc *pathScanner) skipSeparators() {
	for sc.pos < len(sc.s) {
		switch sc.s[sc.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			sc.pos++
		default:
			return
		}
	}
}

func (sc *pathScanner) done() bool {
	sc.skipSeparators()
	return sc.pos >= len(sc.s)
}

func (sc *pathScanner) command() (byte, bool) {
	sc.skipSeparators()
	if sc.pos >= len(sc.s) {
		return 0, false
	}
	c := sc.s[sc.pos]
	if isPathCommand(c) {
		sc.pos++
		return c, true
	}
	return 0, false
}

func (sc *pathScanner) hasNumber() bool {
	sc.skipSeparators()
	if sc.pos >= len(sc.s) {
		return false
	}
	c := sc.s[sc.pos]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func (sc *pathScanner) number() (float64, error) {
	sc.skipSeparators()
	start := sc.pos
	i := sc.pos
	if i < len(sc.s) && (sc.s[i] == '+' || sc.s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(sc.s) && sc.s[i] >= '0' && sc.s[i] <= '9' {
		i++
		digits++
	}
	if i < len(sc.s) && sc.s[i] == '.' {
		i++
		for i < len(sc.s) && sc.s[i] >= '0' && sc.s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	if i < len(sc.s) && (sc.s[i] == 'e' || sc.s[i] == 'E') {
		j := i + 1
		if j < len(sc.s) && (sc.s[j] == '+' || sc.s[j] == '-') {
			j++
		}
		if j < len(sc.s) && sc.s[j] >= '0' && sc.s[j] <= '9' {
			for j < len(sc.s) && sc.s[j] >= '0' && sc.s[j] <= '9' {
				j++
			}
			i = j
		}
	}
	v, err := strconv.ParseFloat(sc.s[start:i], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", sc.s[start:i], err)
	}
	sc.pos = i
	return v, nil
}

// flag reads an arc flag, which may be packed against the next value ("a1 1 0 01 2 3").
func (sc *pathScanner) flag() (bool, error) {
	sc.skipSeparators()
	if sc.pos >= len(sc.s) {
		return false, errors.New("expected arc flag")
	}
	switch sc.s[sc.pos] {
	case '0':
		sc.pos++
		return false, nil
	case '1':
		sc.pos++
		return true, nil
	}
	return false, fmt.Errorf("invalid arc flag at offset %d", sc.pos)
}

func (sc *pathScanner) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func isPathCommand(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a', 'Z', 'z':
		return true
	}
	return false
}

// parsePathData parses the full SVG path grammar (M L H V C S Q T A Z, absolute and relative).
func parsePathData(d string) (*svgPath, error) {
	sc := &pathScanner{s: d}
	path := &svgPath{}

	var cur, start, lastCtrl models.Point
	var prevCmd byte

	first := true
	for !sc.done() {
		cmd, ok := sc.command()
		if !ok {
			return nil, fmt.Errorf("expected command at offset %d", sc.pos)
		}
		if first && cmd != 'M' && cmd != 'm' {
			return nil, errors.New("path data must start with a moveto")
		}
		first = false
		rel := cmd >= 'a' && cmd <= 'z'
		upper := cmd &^ 0x20

		offset := func(x, y float64) models.Point {
			if rel {
				return models.Point{X: cur.X + x, Y: cur.Y + y}
			}
			return models.Point{X: x, Y: y}
		}

		if upper == 'Z' {
			if cur != start {
				path.add(lineSegment(cur, start))
			}
			cur = start
			prevCmd = 'Z'
			continue
		}

		// each command repeats while numbers follow it
		for repeat := 0; repeat == 0 || sc.hasNumber(); repeat++ {
			switch upper {
			case 'M':
				v, err := sc.numbers(2)
				if err != nil {
					return nil, err
				}
				p := offset(v[0], v[1])
				if repeat == 0 {
					cur, start = p, p
				} else {
					path.add(lineSegment(cur, p))
					cur = p
				}
			case 'L':
				v, err := sc.numbers(2)
				if err != nil {
					return nil, err
				}
				p := offset(v[0], v[1])
				path.add(lineSegment(cur, p))
				cur = p
			case 'H':
				v, err := sc.number()
				if err != nil {
					return nil, err
				}
				p := models.Point{X: v, Y: cur.Y}
				if rel {
					p.X = cur.X + v
				}
				path.add(lineSegment(cur, p))
				cur = p
			case 'V':
				v, err := sc.number()
				if err != nil {
					return nil, err
				}
				p := models.Point{X: cur.X, Y: v}
				if rel {
					p.Y = cur.Y + v
				}
				path.add(lineSegment(cur, p))
				cur = p
			case 'C':
				v, err := sc.numbers(6)
				if err != nil {
					return nil, err
				}
				c1, c2, p := offset(v[0], v[1]), offset(v[2], v[3]), offset(v[4], v[5])
				path.add(cubicSegment(cur, c1, c2, p))
				lastCtrl, cur = c2, p
			case 'S':
				v, err := sc.numbers(4)
				if err != nil {
					return nil, err
				}
				c1 := cur
				if prevCmd == 'C' || prevCmd == 'S' {
					c1 = reflect(lastCtrl, cur)
				}
				c2, p := offset(v[0], v[1]), offset(v[2], v[3])
				path.add(cubicSegment(cur, c1, c2, p))
				lastCtrl, cur = c2, p
			case 'Q':
				v, err := sc.numbers(4)
				if err != nil {
					return nil, err
				}
				c, p := offset(v[0], v[1]), offset(v[2], v[3])
				path.add(quadSegment(cur, c, p))
				lastCtrl, cur = c, p
			case 'T':
				v, err := sc.numbers(2)
				if err != nil {
					return nil, err
				}
				c := cur
				if prevCmd == 'Q' || prevCmd == 'T' {
					c = reflect(lastCtrl, cur)
				}
				p := offset(v[0], v[1])
				path.add(quadSegment(cur, c, p))
				lastCtrl, cur = c, p
			case 'A':
				radii, err := sc.numbers(3)
				if err != nil {
					return nil, err
				}
				large, err := sc.flag()
				if err != nil {
					return nil, err
				}
				sweep, err := sc.flag()
				if err != nil {
					return nil, err
				}
				v, err := sc.numbers(2)
				if err != nil {
					return nil, err
				}
				p := offset(v[0], v[1])
				if seg, ok := arcSegment(cur, radii[0], radii[1], radii[2], large, sweep, p); ok {
					path.add(seg)
				}
				cur = p
			}
			prevCmd = upper
		}
	}

	return path, nil
}

func reflect(ctrl, about models.Point) models.Point {
	return models.Point{X: 2*about.X - ctrl.X, Y: 2*about.Y - ctrl.Y}
}

func lineSegment(a, b models.Point) pathSegment {
	return newSegment(func(t float64) models.Point {
		return models.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
	}, 1)
}

func cubicSegment(p0, p1, p2, p3 models.Point) pathSegment {
	return newSegment(func(t float64) models.Point {
		mt := 1 - t
		a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
		return models.Point{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		}
	}, curveSubdivision)
}

func quadSegment(p0, p1, p2 models.Point) pathSegment {
	return newSegment(func(t float64) models.Point {
		mt := 1 - t
		a, b, c := mt*mt, 2*mt*t, t*t
		return models.Point{
			X: a*p0.X + b*p1.X + c*p2.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y,
		}
	}, curveSubdivision)
}

// arcSegment converts an endpoint-parameterized elliptical arc to center form.
// Coincident endpoints draw nothing; a zero radius degrades to a straight line.
func arcSegment(p0 models.Point, rx, ry, rotationDeg float64, large, sweep bool, p1 models.Point) (pathSegment, bool) {
	if p0 == p1 {
		return pathSegment{}, false
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		return lineSegment(p0, p1), true
	}

	phi := rotationDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)

	dx2 := (p0.X - p1.X) / 2
	dy2 := (p0.Y - p1.Y) / 2
	x1p := cosPhi*dx2 + sinPhi*dy2
	y1p := -sinPhi*dx2 + cosPhi*dy2

	lambda := (x1p*x1p)/(rx*rx) + (y1p*y1p)/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := 0.0
	if den != 0 {
		coef = math.Sqrt(math.Max(0, num/den))
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := coef * -ry * x1p / rx

	cx := cosPhi*cxp - sinPhi*cyp + (p0.X+p1.X)/2
	cy := sinPhi*cxp + cosPhi*cyp + (p0.Y+p1.Y)/2

	ux, uy := (x1p-cxp)/rx, (y1p-cyp)/ry
	vx, vy := (-x1p-cxp)/rx, (-y1p-cyp)/ry
	theta1 := vectorAngle(1, 0, ux, uy)
	dtheta := vectorAngle(ux, uy, vx, vy)
	if !sweep && dtheta > 0 {
		dtheta -= 2 * math.Pi
	} else if sweep && dtheta < 0 {
		dtheta += 2 * math.Pi
	}

	return newSegment(func(t float64) models.Point {
		theta := theta1 + dtheta*t
		ct, st := math.Cos(theta), math.Sin(theta)
		return models.Point{
			X: cx + rx*ct*cosPhi - ry*st*sinPhi,
			Y: cy + rx*ct*sinPhi + ry*st*cosPhi,
		}
	}, curveSubdivision), true
}

func vectorAngle(ux, uy, vx, vy float64) float64 {
	return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
}
