package derivation

import (
	"fmt"
	"math/big"
	"math/rand"
	"strings"
)

// ============================================================
// Quotient rings
// ============================================================

// QuotientRing is a quotient of a polynomial ring by finitely many
// relations. Equality of residue classes must be decidable without Groebner
// machinery, so only two shapes of relations are accepted: every relation a
// monomial with coefficient one, or a single monic modulus over a
// univariate cover. Anything else is rejected at construction.
type QuotientRing struct {
	cover     *PolynomialRing
	relations []*polyElement
	monomial  bool
	k         string
}

// NewQuotientRing returns cover modulo the given relations.
func NewQuotientRing(cover *PolynomialRing, relations ...Element) (*QuotientRing, error) {
	if len(relations) == 0 {
		return nil, fmt.Errorf("%w: a quotient ring needs at least one relation", ErrConstruction)
	}
	rels := make([]*polyElement, len(relations))
	for i, rel := range relations {
		c, ok := cover.Coerce(rel)
		if !ok {
			return nil, fmt.Errorf("%w: relation %s does not live in %s", ErrConstruction, rel, cover)
		}
		p := cover.polyOf(c)
		if len(p.terms) == 0 || totalDegree(p.terms[0].exps) == 0 {
			return nil, fmt.Errorf("%w: relation %s is constant", ErrConstruction, rel)
		}
		rels[i] = p
	}

	monomial := true
	for _, p := range rels {
		if len(p.terms) != 1 || !cover.base.IsOne(p.terms[0].coeff) {
			monomial = false
			break
		}
	}
	if !monomial {
		if len(rels) != 1 || cover.NumGens() != 1 || !cover.base.IsOne(rels[0].terms[0].coeff) {
			return nil, fmt.Errorf("%w: relations must all be monomials, or a single monic univariate modulus", ErrConstruction)
		}
	}

	relStrs := make([]string, len(rels))
	for i, p := range rels {
		relStrs[i] = p.String()
	}
	return &QuotientRing{
		cover:     cover,
		relations: rels,
		monomial:  monomial,
		k:         "Quot[" + strings.Join(relStrs, ";") + "](" + cover.key() + ")",
	}, nil
}

// CoverRing returns the polynomial ring this is a quotient of.
func (r *QuotientRing) CoverRing() *PolynomialRing { return r.cover }

// Relations returns the defining relations as cover-ring elements.
func (r *QuotientRing) Relations() []Element {
	out := make([]Element, len(r.relations))
	for i, p := range r.relations {
		out[i] = p
	}
	return out
}

type quotElement struct {
	r    *QuotientRing
	lift *polyElement
}

func (e *quotElement) Ring() Ring     { return e.r }
func (e *quotElement) String() string { return e.lift.String() }

// quotLift returns the reduced representative of x in the cover ring.
func quotLift(x Element) Element { return x.(*quotElement).lift }

// reduce computes the canonical representative of a cover element. In
// monomial mode every term divisible by a relation is dropped; in modulus
// mode the element is divided by the monic modulus.
func (r *QuotientRing) reduce(p *polyElement) *polyElement {
	if r.monomial {
		terms := make([]polyTerm, 0, len(p.terms))
	scan:
		for _, t := range p.terms {
			for _, rel := range r.relations {
				if expDivides(rel.terms[0].exps, t.exps) {
					continue scan
				}
			}
			terms = append(terms, t)
		}
		return r.cover.newPoly(terms)
	}
	m := r.relations[0]
	dm := r.cover.degree(m)
	for r.cover.degree(p) >= dm {
		lead := p.terms[0]
		shift := make([]int, 1)
		shift[0] = lead.exps[0] - dm
		factor := &polyElement{r: r.cover, terms: []polyTerm{{exps: shift, coeff: lead.coeff}}}
		p = r.cover.polyOf(r.cover.Sub(p, r.cover.Mul(factor, m)))
	}
	return p
}

func expDivides(a, b []int) bool {
	for i := range a {
		if a[i] > b[i] {
			return false
		}
	}
	return true
}

func (r *QuotientRing) fromCover(x Element) *quotElement {
	return &quotElement{r: r, lift: r.reduce(r.cover.polyOf(x))}
}

func (r *QuotientRing) quotOf(a Element) *quotElement {
	e, ok := a.(*quotElement)
	if !ok || !SameRing(e.r, r) {
		panic(fmt.Sprintf("derivation: %s does not belong to %s", a, r))
	}
	return e
}

func (r *QuotientRing) String() string {
	relStrs := make([]string, len(r.relations))
	for i, p := range r.relations {
		relStrs[i] = p.String()
	}
	return fmt.Sprintf("Quotient of %s by the ideal (%s)", r.cover, strings.Join(relStrs, ", "))
}

func (r *QuotientRing) key() string              { return r.k }
func (r *QuotientRing) Characteristic() *big.Int { return r.cover.Characteristic() }
func (r *QuotientRing) IsField() bool            { return false }
func (r *QuotientRing) IsCommutative() bool      { return r.cover.IsCommutative() }
func (r *QuotientRing) NumGens() int             { return r.cover.NumGens() }

func (r *QuotientRing) Gen(i int) Element { return r.fromCover(r.cover.Gen(i)) }

func (r *QuotientRing) Gens() []Element {
	gens := make([]Element, r.NumGens())
	for i := range gens {
		gens[i] = r.Gen(i)
	}
	return gens
}

func (r *QuotientRing) Zero() Element           { return r.fromCover(r.cover.Zero()) }
func (r *QuotientRing) One() Element            { return r.fromCover(r.cover.One()) }
func (r *QuotientRing) FromInt(n int64) Element { return r.fromCover(r.cover.FromInt(n)) }

func (r *QuotientRing) Add(a, b Element) Element {
	return r.fromCover(r.cover.Add(r.quotOf(a).lift, r.quotOf(b).lift))
}
func (r *QuotientRing) Sub(a, b Element) Element {
	return r.fromCover(r.cover.Sub(r.quotOf(a).lift, r.quotOf(b).lift))
}
func (r *QuotientRing) Mul(a, b Element) Element {
	return r.fromCover(r.cover.Mul(r.quotOf(a).lift, r.quotOf(b).lift))
}
func (r *QuotientRing) Neg(a Element) Element {
	return r.fromCover(r.cover.Neg(r.quotOf(a).lift))
}

func (r *QuotientRing) Div(a, b Element) (Element, bool) {
	q, ok := r.cover.Div(r.quotOf(a).lift, r.quotOf(b).lift)
	if !ok {
		return nil, false
	}
	return r.fromCover(q), true
}

func (r *QuotientRing) IsZero(a Element) bool { return len(r.quotOf(a).lift.terms) == 0 }
func (r *QuotientRing) IsOne(a Element) bool  { return r.cover.IsOne(r.quotOf(a).lift) }

// Equal compares reduced representatives; reduction is a normal form in
// both supported relation shapes.
func (r *QuotientRing) Equal(a, b Element) bool {
	return r.cover.Equal(r.quotOf(a).lift, r.quotOf(b).lift)
}

func (r *QuotientRing) HasCoerceFrom(other Ring) bool {
	return SameRing(r, other) || SameRing(r.cover, other) || r.cover.HasCoerceFrom(other)
}

func (r *QuotientRing) Coerce(x Element) (Element, bool) {
	if SameRing(x.Ring(), r) {
		return x, true
	}
	if c, ok := r.cover.Coerce(x); ok {
		return r.fromCover(c), true
	}
	return nil, false
}

func (r *QuotientRing) RandomElement(rnd *rand.Rand) Element {
	return r.fromCover(r.cover.RandomElement(rnd))
}
