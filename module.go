package derivation

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// ============================================================
// Errors
// ============================================================

var (
	// ErrConstruction reports an invalid module, morphism or ring request:
	// non-commutative domain, codomain not an algebra over the domain, a
	// twist that cannot be aligned, malformed coordinates.
	ErrConstruction = errors.New("derivation: construction failed")

	// ErrUnsupportedRing reports a domain outside the supported recursive
	// classification, or a quotient whose relations are not annihilated by
	// the lifted generators.
	ErrUnsupportedRing = errors.New("derivation: unsupported ring")

	// ErrDomainMismatch reports a bracket or p-th power on a module whose
	// domain and codomain differ.
	ErrDomainMismatch = errors.New("derivation: domain and codomain differ")

	// ErrCharacteristic reports a p-th power over a ring whose
	// characteristic is zero or not prime.
	ErrCharacteristic = errors.New("derivation: characteristic is not a positive prime")

	// ErrIndexOutOfRange reports a generator index outside [0, NGens()).
	ErrIndexOutOfRange = errors.New("derivation: generator index out of range")

	// ErrNotAvailable reports a request for structure (generators, dual
	// basis, ring of constants, coordinates) that was not computed for the
	// module's variant.
	ErrNotAvailable = errors.New("derivation: not available")
)

// ============================================================
// Variants
// ============================================================

// Variant identifies the internal representation and evaluation algorithm
// of a derivation module. It is decided once, at construction.
type Variant int

const (
	// VariantZero: the only derivation is zero (integers, rationals, prime
	// fields, integer-mod rings).
	VariantZero Variant = iota
	// VariantFunctionBased: polynomial rings and fraction fields of
	// polynomial rings; coefficient-wise lifting plus the multivariate
	// chain rule over per-generator images.
	VariantFunctionBased
	// VariantFractionFieldWrapper: other fraction fields; quotient rule
	// over a base derivation on the underlying ring.
	VariantFractionFieldWrapper
	// VariantQuotientWrapper: quotient rings; evaluation through a cover
	// representative, sound by the construction-time vanishing check.
	VariantQuotientWrapper
	// VariantTwistedGeneric: theta-derivations s*(theta - id).
	VariantTwistedGeneric
)

func (v Variant) String() string {
	switch v {
	case VariantZero:
		return "Zero"
	case VariantFunctionBased:
		return "FunctionBased"
	case VariantFractionFieldWrapper:
		return "FractionFieldWrapper"
	case VariantQuotientWrapper:
		return "QuotientWrapper"
	case VariantTwistedGeneric:
		return "TwistedGeneric"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ============================================================
// Derivation modules
// ============================================================

// DerivationModule is the module of all (twisted) derivations from a
// domain ring into a codomain algebra. Modules are memoized by their
// (domain, codomain, twist) triple: structurally equal requests return the
// identical object, so pointer comparison is meaningful.
type DerivationModule struct {
	domain   Ring
	codomain Ring
	twist    *RingHom // nil when untwisted
	variant  Variant
	lie      bool

	base *DerivationModule // owned base module for composite variants

	gensOK bool
	gens   []*Derivation

	dualOK    bool
	dualBasis []Element // domain elements paired with gens

	constants      Ring // nil when no descriptor was computed
	constantsSharp bool

	// FunctionBased state: the polynomial structure of the domain and the
	// domain generators seen inside the codomain.
	polyRing   *PolynomialRing
	fracDomain bool
	gensInCod  []Element
}

var moduleRegistry = struct {
	sync.Mutex
	m map[string]*DerivationModule
}{m: map[string]*DerivationModule{}}

func moduleKey(domain, codomain Ring, twist *RingHom) string {
	k := domain.key() + "->" + codomain.key()
	if twist != nil {
		k += "|tw[" + twist.describeShort() + "]"
	}
	return k
}

// NewDerivationModule returns the module of derivations from domain into
// codomain, twisted by twist. A nil codomain means the domain itself; a
// nil twist means ordinary (untwisted) derivations. A twist acting as the
// identity on every domain generator is dropped, so the degenerate request
// returns the identical untwisted module.
func NewDerivationModule(domain, codomain Ring, twist *RingHom) (*DerivationModule, error) {
	if codomain == nil {
		codomain = domain
	}
	if !domain.IsCommutative() {
		return nil, fmt.Errorf("%w: %s is not a commutative ring", ErrConstruction, domain)
	}
	if !codomain.IsCommutative() {
		return nil, fmt.Errorf("%w: %s is not a commutative ring", ErrConstruction, codomain)
	}
	if !codomain.HasCoerceFrom(domain) {
		return nil, fmt.Errorf("%w: %s is not an algebra over %s", ErrConstruction, codomain, domain)
	}
	if twist != nil {
		aligned, err := alignTwist(twist, domain, codomain)
		if err != nil {
			return nil, err
		}
		twist = aligned // nil when the twist degenerates to the identity
	}
	if ringDepth(domain) > 64 {
		return nil, fmt.Errorf("%w: ring tower of %s is too deep", ErrUnsupportedRing, domain)
	}

	key := moduleKey(domain, codomain, twist)
	moduleRegistry.Lock()
	if m, ok := moduleRegistry.m[key]; ok {
		moduleRegistry.Unlock()
		return m, nil
	}
	moduleRegistry.Unlock()

	m, err := buildModule(domain, codomain, twist)
	if err != nil {
		return nil, err
	}

	moduleRegistry.Lock()
	defer moduleRegistry.Unlock()
	if prev, ok := moduleRegistry.m[key]; ok {
		return prev, nil
	}
	moduleRegistry.m[key] = m
	return m, nil
}

// alignTwist composes twist with coercions so that it runs from domain to
// codomain. It returns nil when the aligned twist is the identity.
func alignTwist(twist *RingHom, domain, codomain Ring) (*RingHom, error) {
	if !twist.domain.HasCoerceFrom(domain) {
		return nil, fmt.Errorf("%w: twist domain %s does not admit a coercion from %s",
			ErrConstruction, twist.domain, domain)
	}
	if !codomain.HasCoerceFrom(twist.codomain) {
		return nil, fmt.Errorf("%w: %s does not admit a coercion from twist codomain %s",
			ErrConstruction, codomain, twist.codomain)
	}
	images := make([]Element, domain.NumGens())
	for i := range images {
		v, err := twist.Apply(domain.Gen(i))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
		}
		c, ok := codomain.Coerce(v)
		if !ok {
			return nil, fmt.Errorf("%w: twist image %s does not live in %s", ErrConstruction, v, codomain)
		}
		images[i] = c
	}
	aligned := &RingHom{domain: domain, codomain: codomain, images: images}
	if aligned.IsIdentity() {
		return nil, nil
	}
	return aligned, nil
}

// zeroLike reports the rings whose only derivation is zero.
func zeroLike(domain Ring) bool {
	switch domain.(type) {
	case *integerRing, *rationalField, *primeField, *integerModRing:
		return true
	}
	return false
}

// functionShape recognizes the function-based domains: polynomial rings
// and fraction fields of polynomial rings. It returns the polynomial
// structure and whether the domain is the fraction field of it.
func functionShape(domain Ring) (*PolynomialRing, bool, bool) {
	if p, ok := domain.(*PolynomialRing); ok {
		return p, false, true
	}
	if f, ok := domain.(*FractionField); ok {
		if p, ok := f.ring.(*PolynomialRing); ok {
			return p, true, true
		}
	}
	return nil, false, false
}

func buildModule(domain, codomain Ring, twist *RingHom) (*DerivationModule, error) {
	m := &DerivationModule{
		domain:   domain,
		codomain: codomain,
		twist:    twist,
		lie:      SameRing(domain, codomain),
	}

	switch {
	case twist != nil:
		m.variant = VariantTwistedGeneric
		// Over a field the module is free of rank 1 with generator
		// theta - id. Over other rings no generating set is computed.
		if domain.IsField() {
			m.gensOK = true
			m.gens = []*Derivation{{module: m, scalar: codomain.One()}}
		}
		return m, nil

	case zeroLike(domain):
		m.variant = VariantZero
		m.gensOK = true
		m.gens = []*Derivation{}
		m.dualOK = true
		m.dualBasis = []Element{}
		m.constants = domain
		m.constantsSharp = true
		return m, nil
	}

	if poly, frac, ok := functionShape(domain); ok {
		m.variant = VariantFunctionBased
		m.polyRing = poly
		m.fracDomain = frac

		base, err := NewDerivationModule(poly.base, codomain, nil)
		if err != nil {
			return nil, err
		}
		m.base = base

		gensInCod, err := poly.gensIn(codomain)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
		}
		m.gensInCod = gensInCod

		if base.gensOK {
			m.gensOK = true
			m.gens = make([]*Derivation, 0, len(base.gens)+poly.NumGens())
			for _, bg := range base.gens {
				m.gens = append(m.gens, &Derivation{module: m, base: bg, images: m.zeroImages()})
			}
			for i := 0; i < poly.NumGens(); i++ {
				images := m.zeroImages()
				images[i] = codomain.One()
				m.gens = append(m.gens, &Derivation{module: m, base: base.Zero(), images: images})
			}
		}
		if base.gensOK && base.dualOK {
			m.dualOK = true
			m.dualBasis = make([]Element, 0, len(base.dualBasis)+poly.NumGens())
			for _, x := range base.dualBasis {
				c, ok := domain.Coerce(x)
				if !ok {
					return nil, fmt.Errorf("%w: cannot coerce %s into %s", ErrConstruction, x, domain)
				}
				m.dualBasis = append(m.dualBasis, c)
			}
			for i := 0; i < poly.NumGens(); i++ {
				c, ok := domain.Coerce(poly.Gen(i))
				if !ok {
					return nil, fmt.Errorf("%w: cannot coerce %s into %s", ErrConstruction, poly.Gen(i), domain)
				}
				m.dualBasis = append(m.dualBasis, c)
			}
		}
		// In positive characteristic the constants also contain p-th
		// powers of the generators; that refinement is not computed, so
		// the descriptor degrades to "not sharp".
		m.constants = base.constants
		m.constantsSharp = base.constantsSharp && domain.Characteristic().Sign() == 0
		return m, nil
	}

	switch dom := domain.(type) {
	case *FractionField:
		m.variant = VariantFractionFieldWrapper
		base, err := NewDerivationModule(dom.ring, codomain, nil)
		if err != nil {
			return nil, err
		}
		m.base = base
		if base.gensOK {
			m.gensOK = true
			m.gens = make([]*Derivation, len(base.gens))
			for i, bg := range base.gens {
				m.gens[i] = &Derivation{module: m, base: bg}
			}
		}
		if err := m.forwardDualBasis(base); err != nil {
			return nil, err
		}
		if base.constants != nil {
			m.constants = NewFractionField(base.constants)
			m.constantsSharp = false
		}
		return m, nil

	case *QuotientRing:
		m.variant = VariantQuotientWrapper
		base, err := NewDerivationModule(dom.cover, codomain, nil)
		if err != nil {
			return nil, err
		}
		m.base = base
		if !base.gensOK {
			return nil, fmt.Errorf("%w: no generating set over the cover ring %s", ErrUnsupportedRing, dom.cover)
		}
		// Lifting is faithful only when every generator annihilates every
		// defining relation.
		for _, rel := range dom.relations {
			for _, bg := range base.gens {
				v, err := bg.Evaluate(rel)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrUnsupportedRing, err)
				}
				if !codomain.IsZero(v) {
					return nil, fmt.Errorf("%w: generator %s does not annihilate the relation %s",
						ErrUnsupportedRing, bg, rel)
				}
			}
		}
		m.gensOK = true
		m.gens = make([]*Derivation, len(base.gens))
		for i, bg := range base.gens {
			m.gens[i] = &Derivation{module: m, base: bg}
		}
		if err := m.forwardDualBasis(base); err != nil {
			return nil, err
		}
		m.constants = base.constants
		m.constantsSharp = base.constantsSharp
		return m, nil
	}

	return nil, fmt.Errorf("%w: no derivation module is implemented for %s", ErrUnsupportedRing, domain)
}

func (m *DerivationModule) zeroImages() []Element {
	images := make([]Element, m.polyRing.NumGens())
	for i := range images {
		images[i] = m.codomain.Zero()
	}
	return images
}

func (m *DerivationModule) forwardDualBasis(base *DerivationModule) error {
	if !base.dualOK {
		return nil
	}
	m.dualOK = true
	m.dualBasis = make([]Element, len(base.dualBasis))
	for i, x := range base.dualBasis {
		c, ok := m.domain.Coerce(x)
		if !ok {
			return fmt.Errorf("%w: cannot coerce %s into %s", ErrConstruction, x, m.domain)
		}
		m.dualBasis[i] = c
	}
	return nil
}

// ============================================================
// Module accessors
// ============================================================

// Domain returns the ring the derivations act on.
func (m *DerivationModule) Domain() Ring { return m.domain }

// Codomain returns the algebra the derivations map into.
func (m *DerivationModule) Codomain() Ring { return m.codomain }

// TwistingHomomorphism returns the twist, or nil for ordinary derivations.
func (m *DerivationModule) TwistingHomomorphism() *RingHom { return m.twist }

// Variant returns the representation selected at construction.
func (m *DerivationModule) Variant() Variant { return m.variant }

// IsLieAlgebra reports whether the module carries a Lie bracket, i.e.
// whether domain and codomain coincide.
func (m *DerivationModule) IsLieAlgebra() bool { return m.lie }

// NGens returns the number of generators.
func (m *DerivationModule) NGens() (int, error) {
	if !m.gensOK {
		return 0, fmt.Errorf("%w: no generating set was computed for %s", ErrNotAvailable, m)
	}
	return len(m.gens), nil
}

// Gens returns the generators of the module.
func (m *DerivationModule) Gens() ([]*Derivation, error) {
	if !m.gensOK {
		return nil, fmt.Errorf("%w: no generating set was computed for %s", ErrNotAvailable, m)
	}
	return append([]*Derivation(nil), m.gens...), nil
}

// Gen returns the n-th generator.
func (m *DerivationModule) Gen(n int) (*Derivation, error) {
	if !m.gensOK {
		return nil, fmt.Errorf("%w: no generating set was computed for %s", ErrNotAvailable, m)
	}
	if n < 0 || n >= len(m.gens) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, n, len(m.gens))
	}
	return m.gens[n], nil
}

// Basis returns the basis of the module; for the supported variants the
// generators form a basis.
func (m *DerivationModule) Basis() ([]*Derivation, error) { return m.Gens() }

// DualBasis returns the domain elements paired with Basis: basis[i]
// evaluated at dualBasis[j] is 1 when i == j and 0 otherwise.
func (m *DerivationModule) DualBasis() ([]Element, error) {
	if !m.dualOK {
		return nil, fmt.Errorf("%w: no dual basis was computed for %s", ErrNotAvailable, m)
	}
	return append([]Element(nil), m.dualBasis...), nil
}

// RingOfConstants returns the descriptor of the subring annihilated by
// every derivation in the module. sharp reports whether the ring is known
// to be exactly that subring rather than merely contained in it.
func (m *DerivationModule) RingOfConstants() (ring Ring, sharp bool, err error) {
	if m.constants == nil {
		return nil, false, fmt.Errorf("%w: no ring of constants was computed for %s", ErrNotAvailable, m)
	}
	return m.constants, m.constantsSharp, nil
}

// Zero returns the zero derivation of the module.
func (m *DerivationModule) Zero() *Derivation {
	switch m.variant {
	case VariantZero:
		return &Derivation{module: m}
	case VariantTwistedGeneric:
		return &Derivation{module: m, scalar: m.codomain.Zero()}
	case VariantFunctionBased:
		return &Derivation{module: m, base: m.base.Zero(), images: m.zeroImages()}
	default:
		return &Derivation{module: m, base: m.base.Zero()}
	}
}

// FromCoordinates builds the derivation with the given coordinates against
// the module's basis. Coordinates are codomain elements (anything that
// coerces into the codomain).
func (m *DerivationModule) FromCoordinates(coords []Element) (*Derivation, error) {
	cs := make([]Element, len(coords))
	for i, c := range coords {
		v, ok := m.codomain.Coerce(c)
		if !ok {
			return nil, fmt.Errorf("%w: coordinate %s does not live in %s", ErrConstruction, c, m.codomain)
		}
		cs[i] = v
	}
	switch m.variant {
	case VariantZero:
		if len(cs) != 0 {
			return nil, fmt.Errorf("%w: expected 0 coordinates, got %d", ErrConstruction, len(cs))
		}
		return m.Zero(), nil
	case VariantTwistedGeneric:
		if len(cs) != 1 {
			return nil, fmt.Errorf("%w: expected 1 coordinate, got %d", ErrConstruction, len(cs))
		}
		return &Derivation{module: m, scalar: cs[0]}, nil
	case VariantFunctionBased:
		nb, err := m.base.NGens()
		if err != nil {
			return nil, err
		}
		nv := m.polyRing.NumGens()
		if len(cs) != nb+nv {
			return nil, fmt.Errorf("%w: expected %d coordinates, got %d", ErrConstruction, nb+nv, len(cs))
		}
		bd, err := m.base.FromCoordinates(cs[:nb])
		if err != nil {
			return nil, err
		}
		return &Derivation{module: m, base: bd, images: append([]Element(nil), cs[nb:]...)}, nil
	default:
		bd, err := m.base.FromCoordinates(cs)
		if err != nil {
			return nil, err
		}
		return &Derivation{module: m, base: bd}, nil
	}
}

// UnitDerivation returns the partial-derivative operator with respect to
// the given domain generator, e.g. d/dx for the generator x.
func (m *DerivationModule) UnitDerivation(g Element) (*Derivation, error) {
	if m.variant != VariantFunctionBased {
		return nil, fmt.Errorf("%w: %s has no per-generator derivations", ErrNotAvailable, m)
	}
	v, ok := m.domain.Coerce(g)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not live in %s", ErrConstruction, g, m.domain)
	}
	nb := len(m.base.gens)
	for i := 0; i < m.polyRing.NumGens(); i++ {
		c, _ := m.domain.Coerce(m.polyRing.Gen(i))
		if m.domain.Equal(v, c) {
			return m.Gen(nb + i)
		}
	}
	return nil, fmt.Errorf("%w: %s is not a generator of %s", ErrConstruction, g, m.domain)
}

// CoerceDerivation maps a derivation of a compatible module (same domain
// and twist, coercible codomain) into this module.
func (m *DerivationModule) CoerceDerivation(d *Derivation) (*Derivation, error) {
	if d.module == m {
		return d, nil
	}
	if !SameRing(d.module.domain, m.domain) {
		return nil, fmt.Errorf("%w: cannot coerce a derivation of %s into %s", ErrConstruction, d.module.domain, m.domain)
	}
	if (d.module.twist == nil) != (m.twist == nil) {
		return nil, fmt.Errorf("%w: twisted and untwisted derivations do not mix", ErrConstruction)
	}
	if m.twist != nil {
		c, ok := m.codomain.Coerce(d.scalar)
		if !ok {
			return nil, fmt.Errorf("%w: scalar %s does not live in %s", ErrConstruction, d.scalar, m.codomain)
		}
		return &Derivation{module: m, scalar: c}, nil
	}
	coords, err := d.Coordinates()
	if err != nil {
		return nil, err
	}
	return m.FromCoordinates(coords)
}

// RandomElement returns a derivation with random coordinates, delegating
// element sampling to the codomain.
func (m *DerivationModule) RandomElement(rnd *rand.Rand) (*Derivation, error) {
	n, err := m.NGens()
	if err != nil {
		return nil, err
	}
	coords := make([]Element, n)
	for i := range coords {
		coords[i] = m.codomain.RandomElement(rnd)
	}
	return m.FromCoordinates(coords)
}

func (m *DerivationModule) String() string {
	if m.twist != nil {
		if m.lie {
			return fmt.Sprintf("Module of twisted derivations over %s (twisting morphism: %s)",
				m.domain, m.twist.describeShort())
		}
		return fmt.Sprintf("Module of twisted derivations from %s to %s (twisting morphism: %s)",
			m.domain, m.codomain, m.twist.describeShort())
	}
	if m.lie {
		return fmt.Sprintf("Module of derivations over %s", m.domain)
	}
	return fmt.Sprintf("Module of derivations from %s to %s", m.domain, m.codomain)
}
