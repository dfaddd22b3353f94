// Package derivation implements derivations and twisted derivations over
// commutative rings: modules of derivations, evaluation via the Leibniz
// rule, Lie brackets, and Frobenius (p-th) powers in positive
// characteristic.
//
// Design goals:
//   - Exact arithmetic (math/big) over a closed world of rings
//   - Deterministic normal forms and stable output
//   - Immutable values; modules memoized so structural equality is identity
//   - AI/LLM friendly: JSON and MCP-ready tool APIs
//   - Embeddable in Go services, CLI tools, and agent backends
package derivation

import (
	"fmt"
	"math/big"
	"math/rand"
)

// ============================================================
// Core interfaces
// ============================================================

// Element is an immutable ring element. All arithmetic goes through the
// owning Ring; mixing elements of unrelated rings without coercion panics.
type Element interface {
	Ring() Ring
	String() string
}

// Ring is the capability surface consumed by the derivation machinery.
// The world of rings is closed: integers, rationals, prime fields,
// integer-mod rings, polynomial rings, fraction fields and quotient rings.
type Ring interface {
	String() string
	key() string
	Characteristic() *big.Int
	IsField() bool
	IsCommutative() bool
	NumGens() int
	Gen(i int) Element
	Gens() []Element
	Zero() Element
	One() Element
	FromInt(n int64) Element
	Add(a, b Element) Element
	Sub(a, b Element) Element
	Mul(a, b Element) Element
	Neg(a Element) Element
	// Div returns a/b, reporting false when b is not invertible (or the
	// quotient does not exist in this ring).
	Div(a, b Element) (Element, bool)
	IsZero(a Element) bool
	IsOne(a Element) bool
	Equal(a, b Element) bool
	HasCoerceFrom(other Ring) bool
	// Coerce maps x into this ring along the canonical coercion from
	// x.Ring(), reporting false when no such coercion exists.
	Coerce(x Element) (Element, bool)
	RandomElement(rnd *rand.Rand) Element
}

// SameRing reports whether two rings are structurally equal. Structurally
// equal rings are interchangeable everywhere.
func SameRing(a, b Ring) bool { return a.key() == b.key() }

// ringPow computes x^n in r by repeated multiplication (n >= 0).
func ringPow(r Ring, x Element, n int) Element {
	res := r.One()
	for i := 0; i < n; i++ {
		res = r.Mul(res, x)
	}
	return res
}

// ringDepth measures the construction-tower depth of a ring. Every ring in
// the closed world is a finite tree, but the guard keeps module
// construction honest if that ever changes.
func ringDepth(r Ring) int {
	switch s := r.(type) {
	case *PolynomialRing:
		return 1 + ringDepth(s.base)
	case *FractionField:
		return 1 + ringDepth(s.ring)
	case *QuotientRing:
		return 1 + ringDepth(s.cover)
	default:
		return 1
	}
}

// isAtomic reports whether a printed element needs no parentheses when it
// appears as a coefficient or factor.
func isAtomic(s string) bool {
	for i, c := range s {
		if c == ' ' || c == '+' || c == '/' {
			return false
		}
		if c == '-' && i > 0 {
			return false
		}
	}
	return true
}

func parenthesize(s string) string {
	if isAtomic(s) {
		return s
	}
	return "(" + s + ")"
}

// ============================================================
// Integer ring
// ============================================================

type integerRing struct{}

var ringZZ = &integerRing{}

// Integers returns the ring of integers.
func Integers() Ring { return ringZZ }

type intElement struct{ v *big.Int }

func (e *intElement) Ring() Ring     { return ringZZ }
func (e *intElement) String() string { return e.v.String() }

func (r *integerRing) String() string         { return "Integer Ring" }
func (r *integerRing) key() string            { return "ZZ" }
func (r *integerRing) Characteristic() *big.Int { return new(big.Int) }
func (r *integerRing) IsField() bool          { return false }
func (r *integerRing) IsCommutative() bool    { return true }
func (r *integerRing) NumGens() int           { return 0 }
func (r *integerRing) Gen(i int) Element {
	panic("derivation: Integer Ring has no generators")
}
func (r *integerRing) Gens() []Element        { return nil }
func (r *integerRing) Zero() Element          { return &intElement{v: new(big.Int)} }
func (r *integerRing) One() Element           { return &intElement{v: big.NewInt(1)} }
func (r *integerRing) FromInt(n int64) Element { return &intElement{v: big.NewInt(n)} }

func (r *integerRing) intOf(a Element) *big.Int {
	e, ok := a.(*intElement)
	if !ok {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", a, r))
	}
	return e.v
}

func (r *integerRing) Add(a, b Element) Element {
	return &intElement{v: new(big.Int).Add(r.intOf(a), r.intOf(b))}
}
func (r *integerRing) Sub(a, b Element) Element {
	return &intElement{v: new(big.Int).Sub(r.intOf(a), r.intOf(b))}
}
func (r *integerRing) Mul(a, b Element) Element {
	return &intElement{v: new(big.Int).Mul(r.intOf(a), r.intOf(b))}
}
func (r *integerRing) Neg(a Element) Element {
	return &intElement{v: new(big.Int).Neg(r.intOf(a))}
}

func (r *integerRing) Div(a, b Element) (Element, bool) {
	x, y := r.intOf(a), r.intOf(b)
	if y.Sign() == 0 {
		return nil, false
	}
	q, m := new(big.Int).QuoRem(x, y, new(big.Int))
	if m.Sign() != 0 {
		return nil, false
	}
	return &intElement{v: q}, true
}

func (r *integerRing) IsZero(a Element) bool { return r.intOf(a).Sign() == 0 }
func (r *integerRing) IsOne(a Element) bool  { return r.intOf(a).Cmp(big.NewInt(1)) == 0 }
func (r *integerRing) Equal(a, b Element) bool {
	return r.intOf(a).Cmp(r.intOf(b)) == 0
}

func (r *integerRing) HasCoerceFrom(other Ring) bool { return SameRing(r, other) }
func (r *integerRing) Coerce(x Element) (Element, bool) {
	if SameRing(x.Ring(), r) {
		return x, true
	}
	return nil, false
}

func (r *integerRing) RandomElement(rnd *rand.Rand) Element {
	return r.FromInt(rnd.Int63n(21) - 10)
}

// ============================================================
// Rational field
// ============================================================

type rationalField struct{}

var ringQQ = &rationalField{}

// Rationals returns the field of rational numbers.
func Rationals() Ring { return ringQQ }

type ratElement struct{ v *big.Rat }

func (e *ratElement) Ring() Ring { return ringQQ }
func (e *ratElement) String() string {
	if e.v.IsInt() {
		return e.v.Num().String()
	}
	return e.v.RatString()
}

func (r *rationalField) String() string           { return "Rational Field" }
func (r *rationalField) key() string              { return "QQ" }
func (r *rationalField) Characteristic() *big.Int { return new(big.Int) }
func (r *rationalField) IsField() bool            { return true }
func (r *rationalField) IsCommutative() bool      { return true }
func (r *rationalField) NumGens() int             { return 0 }
func (r *rationalField) Gen(i int) Element {
	panic("derivation: Rational Field has no generators")
}
func (r *rationalField) Gens() []Element { return nil }
func (r *rationalField) Zero() Element   { return &ratElement{v: new(big.Rat)} }
func (r *rationalField) One() Element    { return &ratElement{v: new(big.Rat).SetInt64(1)} }
func (r *rationalField) FromInt(n int64) Element {
	return &ratElement{v: new(big.Rat).SetInt64(n)}
}

// Rational returns p/q as an element of the rational field. It panics when
// q is zero.
func Rational(p, q int64) Element {
	if q == 0 {
		panic("derivation: denominator is zero")
	}
	return &ratElement{v: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

func (r *rationalField) ratOf(a Element) *big.Rat {
	e, ok := a.(*ratElement)
	if !ok {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", a, r))
	}
	return e.v
}

func (r *rationalField) Add(a, b Element) Element {
	return &ratElement{v: new(big.Rat).Add(r.ratOf(a), r.ratOf(b))}
}
func (r *rationalField) Sub(a, b Element) Element {
	return &ratElement{v: new(big.Rat).Sub(r.ratOf(a), r.ratOf(b))}
}
func (r *rationalField) Mul(a, b Element) Element {
	return &ratElement{v: new(big.Rat).Mul(r.ratOf(a), r.ratOf(b))}
}
func (r *rationalField) Neg(a Element) Element {
	return &ratElement{v: new(big.Rat).Neg(r.ratOf(a))}
}

func (r *rationalField) Div(a, b Element) (Element, bool) {
	y := r.ratOf(b)
	if y.Sign() == 0 {
		return nil, false
	}
	return &ratElement{v: new(big.Rat).Quo(r.ratOf(a), y)}, true
}

func (r *rationalField) IsZero(a Element) bool { return r.ratOf(a).Sign() == 0 }
func (r *rationalField) IsOne(a Element) bool {
	return r.ratOf(a).Cmp(new(big.Rat).SetInt64(1)) == 0
}
func (r *rationalField) Equal(a, b Element) bool {
	return r.ratOf(a).Cmp(r.ratOf(b)) == 0
}

func (r *rationalField) HasCoerceFrom(other Ring) bool {
	return SameRing(r, other) || SameRing(other, ringZZ)
}

func (r *rationalField) Coerce(x Element) (Element, bool) {
	switch e := x.(type) {
	case *ratElement:
		return e, true
	case *intElement:
		return &ratElement{v: new(big.Rat).SetInt(e.v)}, true
	}
	return nil, false
}

func (r *rationalField) RandomElement(rnd *rand.Rand) Element {
	num := rnd.Int63n(21) - 10
	den := rnd.Int63n(9) + 1
	return Rational(num, den)
}

// ============================================================
// Prime fields and integer-mod rings
// ============================================================

// modElement is shared by prime fields and integer-mod rings; the value is
// always normalized into [0, n).
type modElement struct {
	r Ring
	v *big.Int
}

func (e *modElement) Ring() Ring     { return e.r }
func (e *modElement) String() string { return e.v.String() }

type primeField struct{ p *big.Int }

// GF returns the prime field with p elements. It panics when p is not a
// prime number.
func GF(p int64) Ring {
	n := big.NewInt(p)
	if !n.ProbablyPrime(20) {
		panic(fmt.Sprintf("derivation: %d is not prime", p))
	}
	return &primeField{p: n}
}

func (r *primeField) String() string {
	return fmt.Sprintf("Finite Field of size %s", r.p)
}
func (r *primeField) key() string              { return "GF(" + r.p.String() + ")" }
func (r *primeField) Characteristic() *big.Int { return new(big.Int).Set(r.p) }
func (r *primeField) IsField() bool            { return true }
func (r *primeField) IsCommutative() bool      { return true }
func (r *primeField) NumGens() int             { return 0 }
func (r *primeField) Gen(i int) Element {
	panic("derivation: prime fields have no generators")
}
func (r *primeField) Gens() []Element { return nil }

func (r *primeField) Zero() Element { return &modElement{r: r, v: new(big.Int)} }
func (r *primeField) One() Element  { return r.FromInt(1) }
func (r *primeField) FromInt(n int64) Element {
	return &modElement{r: r, v: new(big.Int).Mod(big.NewInt(n), r.p)}
}

func (r *primeField) modOf(a Element) *big.Int {
	e, ok := a.(*modElement)
	if !ok || !SameRing(e.r, r) {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", a, r))
	}
	return e.v
}

func (r *primeField) Add(a, b Element) Element {
	return &modElement{r: r, v: new(big.Int).Mod(new(big.Int).Add(r.modOf(a), r.modOf(b)), r.p)}
}
func (r *primeField) Sub(a, b Element) Element {
	return &modElement{r: r, v: new(big.Int).Mod(new(big.Int).Sub(r.modOf(a), r.modOf(b)), r.p)}
}
func (r *primeField) Mul(a, b Element) Element {
	return &modElement{r: r, v: new(big.Int).Mod(new(big.Int).Mul(r.modOf(a), r.modOf(b)), r.p)}
}
func (r *primeField) Neg(a Element) Element {
	return &modElement{r: r, v: new(big.Int).Mod(new(big.Int).Neg(r.modOf(a)), r.p)}
}

func (r *primeField) Div(a, b Element) (Element, bool) {
	y := r.modOf(b)
	if y.Sign() == 0 {
		return nil, false
	}
	inv := new(big.Int).ModInverse(y, r.p)
	if inv == nil {
		return nil, false
	}
	return r.Mul(a, &modElement{r: r, v: inv}), true
}

func (r *primeField) IsZero(a Element) bool { return r.modOf(a).Sign() == 0 }
func (r *primeField) IsOne(a Element) bool  { return r.modOf(a).Cmp(big.NewInt(1)) == 0 }
func (r *primeField) Equal(a, b Element) bool {
	return r.modOf(a).Cmp(r.modOf(b)) == 0
}

func (r *primeField) HasCoerceFrom(other Ring) bool {
	return SameRing(r, other) || SameRing(other, ringZZ)
}

func (r *primeField) Coerce(x Element) (Element, bool) {
	switch e := x.(type) {
	case *modElement:
		if SameRing(e.r, r) {
			return e, true
		}
	case *intElement:
		return &modElement{r: r, v: new(big.Int).Mod(e.v, r.p)}, true
	}
	return nil, false
}

func (r *primeField) RandomElement(rnd *rand.Rand) Element {
	return &modElement{r: r, v: new(big.Int).Rand(rnd, r.p)}
}

type integerModRing struct{ n *big.Int }

// IntegersMod returns the ring of integers modulo n (n >= 2).
func IntegersMod(n int64) Ring {
	if n < 2 {
		panic("derivation: modulus must be at least 2")
	}
	return &integerModRing{n: big.NewInt(n)}
}

func (r *integerModRing) String() string {
	return fmt.Sprintf("Ring of integers modulo %s", r.n)
}
func (r *integerModRing) key() string              { return "Z/" + r.n.String() }
func (r *integerModRing) Characteristic() *big.Int { return new(big.Int).Set(r.n) }
func (r *integerModRing) IsField() bool            { return false }
func (r *integerModRing) IsCommutative() bool      { return true }
func (r *integerModRing) NumGens() int             { return 0 }
func (r *integerModRing) Gen(i int) Element {
	panic("derivation: integer-mod rings have no generators")
}
func (r *integerModRing) Gens() []Element { return nil }

func (r *integerModRing) Zero() Element { return &modElement{r: r, v: new(big.Int)} }
func (r *integerModRing) One() Element  { return r.FromInt(1) }
func (r *integerModRing) FromInt(n int64) Element {
	return &modElement{r: r, v: new(big.Int).Mod(big.NewInt(n), r.n)}
}

func (r *integerModRing) modOf(a Element) *big.Int {
	e, ok := a.(*modElement)
	if !ok || !SameRing(e.r, r) {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", a, r))
	}
	return e.v
}

func (r *integerModRing) Add(a, b Element) Element {
	return &modElement{r: r, v: new(big.Int).Mod(new(big.Int).Add(r.modOf(a), r.modOf(b)), r.n)}
}
func (r *integerModRing) Sub(a, b Element) Element {
	return &modElement{r: r, v: new(big.Int).Mod(new(big.Int).Sub(r.modOf(a), r.modOf(b)), r.n)}
}
func (r *integerModRing) Mul(a, b Element) Element {
	return &modElement{r: r, v: new(big.Int).Mod(new(big.Int).Mul(r.modOf(a), r.modOf(b)), r.n)}
}
func (r *integerModRing) Neg(a Element) Element {
	return &modElement{r: r, v: new(big.Int).Mod(new(big.Int).Neg(r.modOf(a)), r.n)}
}

func (r *integerModRing) Div(a, b Element) (Element, bool) {
	inv := new(big.Int).ModInverse(r.modOf(b), r.n)
	if inv == nil {
		return nil, false
	}
	return r.Mul(a, &modElement{r: r, v: inv}), true
}

func (r *integerModRing) IsZero(a Element) bool { return r.modOf(a).Sign() == 0 }
func (r *integerModRing) IsOne(a Element) bool  { return r.modOf(a).Cmp(big.NewInt(1)) == 0 }
func (r *integerModRing) Equal(a, b Element) bool {
	return r.modOf(a).Cmp(r.modOf(b)) == 0
}

func (r *integerModRing) HasCoerceFrom(other Ring) bool {
	return SameRing(r, other) || SameRing(other, ringZZ)
}

func (r *integerModRing) Coerce(x Element) (Element, bool) {
	switch e := x.(type) {
	case *modElement:
		if SameRing(e.r, r) {
			return e, true
		}
	case *intElement:
		return &modElement{r: r, v: new(big.Int).Mod(e.v, r.n)}, true
	}
	return nil, false
}

func (r *integerModRing) RandomElement(rnd *rand.Rand) Element {
	return &modElement{r: r, v: new(big.Int).Rand(rnd, r.n)}
}
