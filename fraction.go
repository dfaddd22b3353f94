package derivation

import (
	"fmt"
	"math/big"
	"math/rand"
)

// ============================================================
// Fraction fields
// ============================================================

// FractionField is the field of fractions of an integral domain from the
// closed world. Fractions are kept as num/den pairs; equality is decided
// by cross-multiplication, so no gcd machinery is required of the
// underlying ring.
type FractionField struct {
	ring Ring
	k    string
}

// NewFractionField returns the fraction field of ring. Taking the fraction
// field of a field returns the field itself.
func NewFractionField(ring Ring) Ring {
	if ring.IsField() {
		return ring
	}
	return &FractionField{ring: ring, k: "Frac(" + ring.key() + ")"}
}

// UnderlyingRing returns the ring this field is the fraction field of.
func (r *FractionField) UnderlyingRing() Ring { return r.ring }

type fracElement struct {
	r        *FractionField
	num, den Element
}

func (e *fracElement) Ring() Ring { return e.r }

func (e *fracElement) String() string {
	if e.r.ring.IsOne(e.den) {
		return e.num.String()
	}
	return parenthesize(e.num.String()) + "/" + parenthesize(e.den.String())
}

func (r *FractionField) make(num, den Element) *fracElement {
	if r.ring.IsZero(den) {
		panic("derivation: denominator is zero")
	}
	if r.ring.IsZero(num) {
		den = r.ring.One()
	}
	return &fracElement{r: r, num: num, den: den}
}

// Fraction builds num/den in this field from underlying-ring elements. It
// panics when den is zero.
func (r *FractionField) Fraction(num, den Element) Element {
	n, ok := r.ring.Coerce(num)
	if !ok {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", num, r.ring))
	}
	d, ok := r.ring.Coerce(den)
	if !ok {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", den, r.ring))
	}
	return r.make(n, d)
}

func (r *FractionField) fracOf(a Element) *fracElement {
	e, ok := a.(*fracElement)
	if !ok || !SameRing(e.r, r) {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", a, r))
	}
	return e
}

// fracParts splits a fraction-field element into numerator and denominator
// in the underlying ring.
func fracParts(x Element) (num, den Element) {
	e := x.(*fracElement)
	return e.num, e.den
}

func (r *FractionField) String() string           { return fmt.Sprintf("Fraction Field of %s", r.ring) }
func (r *FractionField) key() string              { return r.k }
func (r *FractionField) Characteristic() *big.Int { return r.ring.Characteristic() }
func (r *FractionField) IsField() bool            { return true }
func (r *FractionField) IsCommutative() bool      { return true }
func (r *FractionField) NumGens() int             { return r.ring.NumGens() }

func (r *FractionField) Gen(i int) Element {
	return r.make(r.ring.Gen(i), r.ring.One())
}

func (r *FractionField) Gens() []Element {
	gens := make([]Element, r.NumGens())
	for i := range gens {
		gens[i] = r.Gen(i)
	}
	return gens
}

func (r *FractionField) Zero() Element { return r.make(r.ring.Zero(), r.ring.One()) }
func (r *FractionField) One() Element  { return r.make(r.ring.One(), r.ring.One()) }
func (r *FractionField) FromInt(n int64) Element {
	return r.make(r.ring.FromInt(n), r.ring.One())
}

func (r *FractionField) Add(a, b Element) Element {
	fa, fb := r.fracOf(a), r.fracOf(b)
	num := r.ring.Add(r.ring.Mul(fa.num, fb.den), r.ring.Mul(fb.num, fa.den))
	return r.make(num, r.ring.Mul(fa.den, fb.den))
}

func (r *FractionField) Sub(a, b Element) Element { return r.Add(a, r.Neg(b)) }

func (r *FractionField) Mul(a, b Element) Element {
	fa, fb := r.fracOf(a), r.fracOf(b)
	return r.make(r.ring.Mul(fa.num, fb.num), r.ring.Mul(fa.den, fb.den))
}

func (r *FractionField) Neg(a Element) Element {
	fa := r.fracOf(a)
	return r.make(r.ring.Neg(fa.num), fa.den)
}

func (r *FractionField) Div(a, b Element) (Element, bool) {
	fb := r.fracOf(b)
	if r.ring.IsZero(fb.num) {
		return nil, false
	}
	fa := r.fracOf(a)
	return r.make(r.ring.Mul(fa.num, fb.den), r.ring.Mul(fa.den, fb.num)), true
}

func (r *FractionField) IsZero(a Element) bool { return r.ring.IsZero(r.fracOf(a).num) }

func (r *FractionField) IsOne(a Element) bool {
	fa := r.fracOf(a)
	return r.ring.Equal(fa.num, fa.den)
}

func (r *FractionField) Equal(a, b Element) bool {
	fa, fb := r.fracOf(a), r.fracOf(b)
	return r.ring.Equal(r.ring.Mul(fa.num, fb.den), r.ring.Mul(fb.num, fa.den))
}

func (r *FractionField) HasCoerceFrom(other Ring) bool {
	if SameRing(r, other) || SameRing(r.ring, other) || r.ring.HasCoerceFrom(other) {
		return true
	}
	if f, ok := other.(*FractionField); ok {
		return r.ring.HasCoerceFrom(f.ring)
	}
	return false
}

func (r *FractionField) Coerce(x Element) (Element, bool) {
	if SameRing(x.Ring(), r) {
		return x, true
	}
	if f, ok := x.(*fracElement); ok {
		num, ok1 := r.ring.Coerce(f.num)
		den, ok2 := r.ring.Coerce(f.den)
		if ok1 && ok2 {
			return r.make(num, den), true
		}
		return nil, false
	}
	if n, ok := r.ring.Coerce(x); ok {
		return r.make(n, r.ring.One()), true
	}
	return nil, false
}

func (r *FractionField) RandomElement(rnd *rand.Rand) Element {
	num := r.ring.RandomElement(rnd)
	den := r.ring.RandomElement(rnd)
	for i := 0; r.ring.IsZero(den) && i < 16; i++ {
		den = r.ring.RandomElement(rnd)
	}
	if r.ring.IsZero(den) {
		den = r.ring.One()
	}
	return r.make(num, den)
}
