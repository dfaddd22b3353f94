package derivation

import (
	"fmt"
	"math/big"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Polynomial rings
// ============================================================

// PolynomialRing is a multivariate polynomial ring over an arbitrary base
// ring from the closed world. Univariate rings are the one-variable case.
type PolynomialRing struct {
	base Ring
	vars []string
	k    string
}

// NewPolynomialRing returns the polynomial ring over base in the named
// variables. It panics when no variables are given or a name repeats.
func NewPolynomialRing(base Ring, vars ...string) *PolynomialRing {
	if len(vars) == 0 {
		panic("derivation: a polynomial ring needs at least one variable")
	}
	seen := map[string]bool{}
	for _, v := range vars {
		if v == "" || seen[v] {
			panic(fmt.Sprintf("derivation: invalid variable name %q", v))
		}
		seen[v] = true
	}
	names := append([]string(nil), vars...)
	return &PolynomialRing{
		base: base,
		vars: names,
		k:    "Poly[" + strings.Join(names, ",") + "](" + base.key() + ")",
	}
}

// BaseRing returns the coefficient ring.
func (r *PolynomialRing) BaseRing() Ring { return r.base }

// Variables returns the variable names in order.
func (r *PolynomialRing) Variables() []string {
	return append([]string(nil), r.vars...)
}

type polyTerm struct {
	exps  []int
	coeff Element
}

// polyElement holds terms in graded-lex descending order with nonzero
// coefficients; the zero polynomial has no terms.
type polyElement struct {
	r     *PolynomialRing
	terms []polyTerm
}

func (e *polyElement) Ring() Ring { return e.r }

func totalDegree(exps []int) int {
	d := 0
	for _, x := range exps {
		d += x
	}
	return d
}

// gradedLexLess orders exponent vectors by total degree, then
// lexicographically.
func gradedLexLess(a, b []int) bool {
	da, db := totalDegree(a), totalDegree(b)
	if da != db {
		return da < db
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func expKey(exps []int) string {
	var sb strings.Builder
	for i, e := range exps {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(e))
	}
	return sb.String()
}

// newPoly normalizes a term list: equal monomials are combined, zero
// coefficients dropped, and the result sorted into canonical order.
func (r *PolynomialRing) newPoly(terms []polyTerm) *polyElement {
	acc := map[string]*polyTerm{}
	order := []string{}
	for _, t := range terms {
		k := expKey(t.exps)
		if prev, ok := acc[k]; ok {
			prev.coeff = r.base.Add(prev.coeff, t.coeff)
		} else {
			cp := polyTerm{exps: append([]int(nil), t.exps...), coeff: t.coeff}
			acc[k] = &cp
			order = append(order, k)
		}
	}
	out := make([]polyTerm, 0, len(order))
	for _, k := range order {
		t := acc[k]
		if !r.base.IsZero(t.coeff) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return gradedLexLess(out[j].exps, out[i].exps)
	})
	return &polyElement{r: r, terms: out}
}

func (r *PolynomialRing) polyOf(a Element) *polyElement {
	e, ok := a.(*polyElement)
	if !ok || !SameRing(e.r, r) {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", a, r))
	}
	return e
}

func (r *PolynomialRing) String() string {
	kind := "Univariate"
	if len(r.vars) > 1 {
		kind = "Multivariate"
	}
	return fmt.Sprintf("%s Polynomial Ring in %s over %s", kind, strings.Join(r.vars, ", "), r.base)
}

func (r *PolynomialRing) key() string              { return r.k }
func (r *PolynomialRing) Characteristic() *big.Int { return r.base.Characteristic() }
func (r *PolynomialRing) IsField() bool            { return false }
func (r *PolynomialRing) IsCommutative() bool      { return r.base.IsCommutative() }
func (r *PolynomialRing) NumGens() int             { return len(r.vars) }

func (r *PolynomialRing) Gen(i int) Element {
	if i < 0 || i >= len(r.vars) {
		panic(fmt.Sprintf("derivation: generator index %d out of range for %s", i, r))
	}
	exps := make([]int, len(r.vars))
	exps[i] = 1
	return &polyElement{r: r, terms: []polyTerm{{exps: exps, coeff: r.base.One()}}}
}

func (r *PolynomialRing) Gens() []Element {
	gens := make([]Element, len(r.vars))
	for i := range r.vars {
		gens[i] = r.Gen(i)
	}
	return gens
}

func (r *PolynomialRing) Zero() Element { return &polyElement{r: r} }

func (r *PolynomialRing) One() Element { return r.Constant(r.base.One()) }

func (r *PolynomialRing) FromInt(n int64) Element { return r.Constant(r.base.FromInt(n)) }

// Constant embeds a base-ring element as a constant polynomial.
func (r *PolynomialRing) Constant(c Element) Element {
	if r.base.IsZero(c) {
		return r.Zero()
	}
	return &polyElement{r: r, terms: []polyTerm{{exps: make([]int, len(r.vars)), coeff: c}}}
}

func (r *PolynomialRing) Add(a, b Element) Element {
	pa, pb := r.polyOf(a), r.polyOf(b)
	terms := make([]polyTerm, 0, len(pa.terms)+len(pb.terms))
	terms = append(terms, pa.terms...)
	terms = append(terms, pb.terms...)
	return r.newPoly(terms)
}

func (r *PolynomialRing) Sub(a, b Element) Element { return r.Add(a, r.Neg(b)) }

func (r *PolynomialRing) Neg(a Element) Element {
	pa := r.polyOf(a)
	terms := make([]polyTerm, len(pa.terms))
	for i, t := range pa.terms {
		terms[i] = polyTerm{exps: t.exps, coeff: r.base.Neg(t.coeff)}
	}
	return &polyElement{r: r, terms: terms}
}

func (r *PolynomialRing) Mul(a, b Element) Element {
	pa, pb := r.polyOf(a), r.polyOf(b)
	terms := make([]polyTerm, 0, len(pa.terms)*len(pb.terms))
	for _, ta := range pa.terms {
		for _, tb := range pb.terms {
			exps := make([]int, len(r.vars))
			for i := range exps {
				exps[i] = ta.exps[i] + tb.exps[i]
			}
			terms = append(terms, polyTerm{exps: exps, coeff: r.base.Mul(ta.coeff, tb.coeff)})
		}
	}
	return r.newPoly(terms)
}

// Div supports division by nonzero constants only; anything else reports
// false.
func (r *PolynomialRing) Div(a, b Element) (Element, bool) {
	pb := r.polyOf(b)
	if len(pb.terms) != 1 || totalDegree(pb.terms[0].exps) != 0 {
		return nil, false
	}
	pa := r.polyOf(a)
	terms := make([]polyTerm, len(pa.terms))
	for i, t := range pa.terms {
		q, ok := r.base.Div(t.coeff, pb.terms[0].coeff)
		if !ok {
			return nil, false
		}
		terms[i] = polyTerm{exps: t.exps, coeff: q}
	}
	return r.newPoly(terms), true
}

func (r *PolynomialRing) IsZero(a Element) bool { return len(r.polyOf(a).terms) == 0 }

func (r *PolynomialRing) IsOne(a Element) bool {
	pa := r.polyOf(a)
	return len(pa.terms) == 1 && totalDegree(pa.terms[0].exps) == 0 && r.base.IsOne(pa.terms[0].coeff)
}

func (r *PolynomialRing) Equal(a, b Element) bool {
	pa, pb := r.polyOf(a), r.polyOf(b)
	if len(pa.terms) != len(pb.terms) {
		return false
	}
	for i := range pa.terms {
		if expKey(pa.terms[i].exps) != expKey(pb.terms[i].exps) {
			return false
		}
		if !r.base.Equal(pa.terms[i].coeff, pb.terms[i].coeff) {
			return false
		}
	}
	return true
}

func (r *PolynomialRing) HasCoerceFrom(other Ring) bool {
	if SameRing(r, other) || SameRing(r.base, other) || r.base.HasCoerceFrom(other) {
		return true
	}
	if p, ok := other.(*PolynomialRing); ok {
		return sameVars(r.vars, p.vars) && r.base.HasCoerceFrom(p.base)
	}
	return false
}

func sameVars(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r *PolynomialRing) Coerce(x Element) (Element, bool) {
	src := x.Ring()
	if SameRing(src, r) {
		return x, true
	}
	if c, ok := r.base.Coerce(x); ok {
		return r.Constant(c), true
	}
	if p, ok := x.(*polyElement); ok && sameVars(r.vars, p.r.vars) {
		terms := make([]polyTerm, 0, len(p.terms))
		for _, t := range p.terms {
			c, ok := r.base.Coerce(t.coeff)
			if !ok {
				return nil, false
			}
			terms = append(terms, polyTerm{exps: t.exps, coeff: c})
		}
		return r.newPoly(terms), true
	}
	return nil, false
}

func (r *PolynomialRing) RandomElement(rnd *rand.Rand) Element {
	nterms := 1 + rnd.Intn(3)
	terms := make([]polyTerm, 0, nterms)
	for i := 0; i < nterms; i++ {
		exps := make([]int, len(r.vars))
		for j := range exps {
			exps[j] = rnd.Intn(3)
		}
		terms = append(terms, polyTerm{exps: exps, coeff: r.base.RandomElement(rnd)})
	}
	return r.newPoly(terms)
}

// Derivative returns the formal partial derivative of x with respect to
// the i-th generator.
func (r *PolynomialRing) Derivative(x Element, i int) Element {
	if i < 0 || i >= len(r.vars) {
		panic(fmt.Sprintf("derivation: generator index %d out of range for %s", i, r))
	}
	px := r.polyOf(x)
	terms := make([]polyTerm, 0, len(px.terms))
	for _, t := range px.terms {
		if t.exps[i] == 0 {
			continue
		}
		exps := append([]int(nil), t.exps...)
		exps[i]--
		coeff := r.base.Mul(t.coeff, r.base.FromInt(int64(t.exps[i])))
		terms = append(terms, polyTerm{exps: exps, coeff: coeff})
	}
	return r.newPoly(terms)
}

// evalTerms maps x into target: every base coefficient is transformed by
// coeffFn and every monomial reassembled from gensInTarget. It is the
// workhorse behind coefficient-wise lifting, homomorphism application and
// cross-ring evaluation.
func (r *PolynomialRing) evalTerms(x Element, target Ring, gensInTarget []Element, coeffFn func(Element) (Element, error)) (Element, error) {
	px := r.polyOf(x)
	res := target.Zero()
	for _, t := range px.terms {
		c, err := coeffFn(t.coeff)
		if err != nil {
			return nil, err
		}
		mon := c
		for i, e := range t.exps {
			if e > 0 {
				mon = target.Mul(mon, ringPow(target, gensInTarget[i], e))
			}
		}
		res = target.Add(res, mon)
	}
	return res, nil
}

// gensIn coerces this ring's generators into target.
func (r *PolynomialRing) gensIn(target Ring) ([]Element, error) {
	gens := make([]Element, len(r.vars))
	for i := range r.vars {
		g, ok := target.Coerce(r.Gen(i))
		if !ok {
			return nil, fmt.Errorf("derivation: cannot coerce %s into %s", r.vars[i], target)
		}
		gens[i] = g
	}
	return gens, nil
}

// degree of a univariate polynomial; -1 for zero.
func (r *PolynomialRing) degree(x *polyElement) int {
	if len(x.terms) == 0 {
		return -1
	}
	return x.terms[0].exps[0]
}

func (e *polyElement) String() string {
	if len(e.terms) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, t := range e.terms {
		mon := monomialString(e.r.vars, t.exps)
		cs := t.coeff.String()
		neg := false
		if strings.HasPrefix(cs, "-") && isAtomic(cs) {
			neg = true
			cs = cs[1:]
		}
		switch {
		case i == 0 && !neg:
		case i == 0 && neg:
			sb.WriteString("-")
		case neg:
			sb.WriteString(" - ")
		default:
			sb.WriteString(" + ")
		}
		if mon == "" {
			sb.WriteString(parenthesize(cs))
		} else if cs == "1" {
			sb.WriteString(mon)
		} else {
			sb.WriteString(parenthesize(cs))
			sb.WriteString("*")
			sb.WriteString(mon)
		}
	}
	return sb.String()
}

func monomialString(vars []string, exps []int) string {
	parts := []string{}
	for i, e := range exps {
		switch {
		case e == 1:
			parts = append(parts, vars[i])
		case e > 1:
			parts = append(parts, vars[i]+"^"+strconv.Itoa(e))
		}
	}
	return strings.Join(parts, "*")
}
