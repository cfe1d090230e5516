package fixed

import (
	"database/sql/driver"
	"fmt"

	"github.com/govalues/decimal"
)

// Point is an unsafe wrapper around decimal implementation. Caller must make
// sure the calculations are correct and will not result in an error state,
// otherwise it will panic.
type Point struct {
	v decimal.Decimal
}

var (
	Zero    = Point{}
	One     = FromInt(1, 0)
	Hundred = FromInt(100, 0)
)

func FromInt(value int, scale int) Point {
	return Point{must(decimal.New(int64(value), scale))}
}

func FromInt64(value int64, scale int) Point {
	return Point{must(decimal.New(value, scale))}
}

func FromFloat64(value float64) Point {
	return Point{must(decimal.NewFromFloat64(value))}
}

func MustParse(value string) Point {
	return Point{decimal.MustParse(value)}
}

func Parse(value string) (Point, error) {
	v, err := decimal.Parse(value)
	if err != nil {
		return Point{}, err
	}
	return Point{v}, nil
}

func (p Point) String() string { return p.v.String() }

func (p Point) Float64() float64 {
	f, _ := p.v.Float64()
	return f
}

func (p Point) Abs() Point { return Point{p.v.Abs()} }
func (p Point) Neg() Point { return Point{p.v.Neg()} }

func (p Point) Add(o Point) Point { return Point{must(p.v.Add(o.v))} }
func (p Point) Sub(o Point) Point { return Point{must(p.v.Sub(o.v))} }
func (p Point) Mul(o Point) Point { return Point{must(p.v.Mul(o.v))} }
func (p Point) Div(o Point) Point { return Point{must(p.v.Quo(o.v))} }

func (p Point) MulInt(o int) Point { return Point{must(p.v.Mul(decimal.MustNew(int64(o), 0)))} }
func (p Point) DivInt(o int) Point { return Point{must(p.v.Quo(decimal.MustNew(int64(o), 0)))} }

// Pct interprets the point as a percentage, e.g. FromInt(20, 0).Pct() == 0.2.
func (p Point) Pct() Point { return p.Div(Hundred) }

func (p Point) Eq(o Point) bool  { return p.v.Cmp(o.v) == 0 }
func (p Point) Gt(o Point) bool  { return p.v.Cmp(o.v) > 0 }
func (p Point) Lt(o Point) bool  { return p.v.Cmp(o.v) < 0 }
func (p Point) Gte(o Point) bool { return p.v.Cmp(o.v) >= 0 }
func (p Point) Lte(o Point) bool { return p.v.Cmp(o.v) <= 0 }

func (p Point) IsZero() bool { return p.v.IsZero() }
func (p Point) IsNeg() bool  { return p.v.IsNeg() }
func (p Point) IsPos() bool  { return p.v.IsPos() }

func (p Point) Rescale(scale int) Point { return Point{p.v.Rescale(scale)} }

// Trunc drops digits past scale, rounding toward zero.
func (p Point) Trunc(scale int) Point { return Point{p.v.Trunc(scale)} }
func (p Point) Sqrt() Point             { return Point{must(p.v.Sqrt())} }

func Min(a, b Point) Point {
	if a.Lt(b) {
		return a
	}
	return b
}

func Max(a, b Point) Point {
	if a.Gt(b) {
		return a
	}
	return b
}

func (p Point) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Point) UnmarshalText(data []byte) error {
	v, err := decimal.Parse(string(data))
	if err != nil {
		return err
	}
	p.v = v
	return nil
}

// Value and Scan map the point to NUMERIC columns as text.
func (p Point) Value() (driver.Value, error) {
	return p.String(), nil
}

func (p *Point) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		p.v = decimal.Decimal{}
		return nil
	case []byte:
		return p.UnmarshalText(v)
	case string:
		return p.UnmarshalText([]byte(v))
	case int64:
		parsed, err := decimal.New(v, 0)
		if err != nil {
			return err
		}
		p.v = parsed
		return nil
	case float64:
		parsed, err := decimal.NewFromFloat64(v)
		if err != nil {
			return err
		}
		p.v = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into fixed.Point", src)
	}
}

func must(v decimal.Decimal, err error) decimal.Decimal {
	if err == nil {
		// Return in the happy path
		return v
	}
	panic(err)
}
