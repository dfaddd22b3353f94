package derivation

import (
	"fmt"
	"strings"
)

// ============================================================
// Derivations
// ============================================================

// Derivation is an immutable (twisted) derivation belonging to exactly one
// DerivationModule. The populated fields depend on the module's variant:
// wrappers own a base derivation, function-based derivations additionally
// carry one image per domain generator, twisted derivations a single
// scalar. Values are created through the owning module and never mutated;
// arithmetic returns fresh values.
type Derivation struct {
	module *DerivationModule
	base   *Derivation
	images []Element
	scalar Element
}

// Module returns the owning derivation module.
func (d *Derivation) Module() *DerivationModule { return d.module }

// Domain returns the ring the derivation acts on.
func (d *Derivation) Domain() Ring { return d.module.domain }

// Codomain returns the algebra the derivation maps into.
func (d *Derivation) Codomain() Ring { return d.module.codomain }

// Evaluate applies the derivation to x, coercing x into the domain first.
func (d *Derivation) Evaluate(x Element) (Element, error) {
	v, ok := d.module.domain.Coerce(x)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not live in %s", ErrConstruction, x, d.module.domain)
	}
	return d.call(v)
}

// call evaluates at a domain element, dispatching on the variant decided
// at module construction.
func (d *Derivation) call(x Element) (Element, error) {
	m := d.module
	cod := m.codomain
	switch m.variant {
	case VariantZero:
		return cod.Zero(), nil

	case VariantTwistedGeneric:
		tx, err := m.twist.Apply(x)
		if err != nil {
			return nil, err
		}
		xc, ok := cod.Coerce(x)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not live in %s", ErrConstruction, x, cod)
		}
		return cod.Mul(d.scalar, cod.Sub(tx, xc)), nil

	case VariantQuotientWrapper:
		return d.base.Evaluate(quotLift(x))

	case VariantFractionFieldWrapper:
		num, den := fracParts(x)
		return d.quotientRule(num, den, d.base.Evaluate)

	default: // VariantFunctionBased
		if m.fracDomain {
			num, den := fracParts(x)
			return d.quotientRule(num, den, d.polyCall)
		}
		return d.polyCall(x)
	}
}

// quotientRule computes d(u/v) = (d(u)*v - u*d(v)) / v^2 in the codomain.
func (d *Derivation) quotientRule(u, v Element, deriv func(Element) (Element, error)) (Element, error) {
	cod := d.module.codomain
	du, err := deriv(u)
	if err != nil {
		return nil, err
	}
	dv, err := deriv(v)
	if err != nil {
		return nil, err
	}
	uc, ok := cod.Coerce(u)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not live in %s", ErrConstruction, u, cod)
	}
	vc, ok := cod.Coerce(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not live in %s", ErrConstruction, v, cod)
	}
	num := cod.Sub(cod.Mul(du, vc), cod.Mul(uc, dv))
	q, ok := cod.Div(num, cod.Mul(vc, vc))
	if !ok {
		return nil, fmt.Errorf("derivation: %s is not invertible in %s", vc, cod)
	}
	return q, nil
}

// polyCall evaluates a function-based derivation at a polynomial: the base
// derivation is applied to every coefficient (reassembled at the same
// generators) and each formal partial derivative is multiplied by the
// stored generator image — the multivariate chain rule.
func (d *Derivation) polyCall(x Element) (Element, error) {
	m := d.module
	cod := m.codomain
	res, err := m.polyRing.evalTerms(x, cod, m.gensInCod, func(c Element) (Element, error) {
		return d.base.Evaluate(c)
	})
	if err != nil {
		return nil, err
	}
	for i, image := range d.images {
		if cod.IsZero(image) {
			continue
		}
		partial := m.polyRing.Derivative(x, i)
		if m.polyRing.IsZero(partial) {
			continue
		}
		pc, ok := cod.Coerce(partial)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not live in %s", ErrConstruction, partial, cod)
		}
		res = cod.Add(res, cod.Mul(pc, image))
	}
	return res, nil
}

// ============================================================
// Module arithmetic
// ============================================================

// Add returns d + other. other is coerced into d's module first.
func (d *Derivation) Add(other *Derivation) (*Derivation, error) {
	o, err := d.module.CoerceDerivation(other)
	if err != nil {
		return nil, err
	}
	m := d.module
	cod := m.codomain
	switch m.variant {
	case VariantZero:
		return d, nil
	case VariantTwistedGeneric:
		return &Derivation{module: m, scalar: cod.Add(d.scalar, o.scalar)}, nil
	case VariantFunctionBased:
		bd, err := d.base.Add(o.base)
		if err != nil {
			return nil, err
		}
		images := make([]Element, len(d.images))
		for i := range images {
			images[i] = cod.Add(d.images[i], o.images[i])
		}
		return &Derivation{module: m, base: bd, images: images}, nil
	default:
		bd, err := d.base.Add(o.base)
		if err != nil {
			return nil, err
		}
		return &Derivation{module: m, base: bd}, nil
	}
}

// Neg returns -d.
func (d *Derivation) Neg() *Derivation {
	m := d.module
	cod := m.codomain
	switch m.variant {
	case VariantZero:
		return d
	case VariantTwistedGeneric:
		return &Derivation{module: m, scalar: cod.Neg(d.scalar)}
	case VariantFunctionBased:
		images := make([]Element, len(d.images))
		for i := range images {
			images[i] = cod.Neg(d.images[i])
		}
		return &Derivation{module: m, base: d.base.Neg(), images: images}
	default:
		return &Derivation{module: m, base: d.base.Neg()}
	}
}

// Sub returns d - other.
func (d *Derivation) Sub(other *Derivation) (*Derivation, error) {
	return d.Add(other.Neg())
}

// ScalarMul returns c*d for a codomain scalar c. The codomain is
// commutative, so left and right multiples coincide.
func (d *Derivation) ScalarMul(c Element) (*Derivation, error) {
	m := d.module
	cod := m.codomain
	s, ok := cod.Coerce(c)
	if !ok {
		return nil, fmt.Errorf("%w: scalar %s does not live in %s", ErrConstruction, c, cod)
	}
	switch m.variant {
	case VariantZero:
		return d, nil
	case VariantTwistedGeneric:
		return &Derivation{module: m, scalar: cod.Mul(s, d.scalar)}, nil
	case VariantFunctionBased:
		bd, err := d.base.ScalarMul(s)
		if err != nil {
			return nil, err
		}
		images := make([]Element, len(d.images))
		for i := range images {
			images[i] = cod.Mul(s, d.images[i])
		}
		return &Derivation{module: m, base: bd, images: images}, nil
	default:
		bd, err := d.base.ScalarMul(s)
		if err != nil {
			return nil, err
		}
		return &Derivation{module: m, base: bd}, nil
	}
}

// Coordinates evaluates the derivation at each dual-basis element, in
// order. For twisted modules the single coordinate is the scalar.
func (d *Derivation) Coordinates() ([]Element, error) {
	m := d.module
	switch m.variant {
	case VariantZero:
		return []Element{}, nil
	case VariantTwistedGeneric:
		return []Element{d.scalar}, nil
	}
	if !m.dualOK {
		return nil, fmt.Errorf("%w: no dual basis was computed for %s", ErrNotAvailable, m)
	}
	coords := make([]Element, len(m.dualBasis))
	for i, x := range m.dualBasis {
		v, err := d.call(x)
		if err != nil {
			return nil, err
		}
		coords[i] = v
	}
	return coords, nil
}

// IsZero reports whether the derivation is the zero map.
func (d *Derivation) IsZero() bool {
	m := d.module
	switch m.variant {
	case VariantZero:
		return true
	case VariantTwistedGeneric:
		return m.codomain.IsZero(d.scalar)
	case VariantFunctionBased:
		if !d.base.IsZero() {
			return false
		}
		for _, image := range d.images {
			if !m.codomain.IsZero(image) {
				return false
			}
		}
		return true
	default:
		return d.base.IsZero()
	}
}

// Equal reports whether d and other are the same map.
func (d *Derivation) Equal(other *Derivation) (bool, error) {
	diff, err := d.Sub(other)
	if err != nil {
		return false, err
	}
	return diff.IsZero(), nil
}

// ============================================================
// Bracket and p-th power
// ============================================================

// Bracket returns the Lie bracket [d, other] = d∘other - other∘d, defined
// when domain and codomain coincide. It is computed by evaluating both
// compositions at every dual-basis element and reconstructing from the
// resulting coordinates.
func (d *Derivation) Bracket(other *Derivation) (*Derivation, error) {
	m := d.module
	if !m.lie {
		return nil, fmt.Errorf("%w: bracket needs matching domain and codomain on %s", ErrDomainMismatch, m)
	}
	o, err := m.CoerceDerivation(other)
	if err != nil {
		return nil, err
	}
	if !m.dualOK {
		return nil, fmt.Errorf("%w: no dual basis was computed for %s", ErrNotAvailable, m)
	}
	cod := m.codomain
	coords := make([]Element, len(m.dualBasis))
	for i, x := range m.dualBasis {
		ox, err := o.call(x)
		if err != nil {
			return nil, err
		}
		dox, err := d.Evaluate(ox)
		if err != nil {
			return nil, err
		}
		dx, err := d.call(x)
		if err != nil {
			return nil, err
		}
		odx, err := o.Evaluate(dx)
		if err != nil {
			return nil, err
		}
		coords[i] = cod.Sub(dox, odx)
	}
	return m.FromCoordinates(coords)
}

// PthPower returns the derivation obtained by applying d exactly p times,
// where p is the domain's prime characteristic. By the Hasse/Frobenius
// argument the result is again a derivation.
func (d *Derivation) PthPower() (*Derivation, error) {
	m := d.module
	if !m.lie {
		return nil, fmt.Errorf("%w: p-th power needs matching domain and codomain on %s", ErrDomainMismatch, m)
	}
	p := m.domain.Characteristic()
	if p.Sign() <= 0 || !p.ProbablyPrime(20) {
		return nil, fmt.Errorf("%w: characteristic of %s is %s", ErrCharacteristic, m.domain, p)
	}
	if !p.IsInt64() {
		return nil, fmt.Errorf("%w: characteristic %s is too large to iterate", ErrCharacteristic, p)
	}
	if !m.dualOK {
		return nil, fmt.Errorf("%w: no dual basis was computed for %s", ErrNotAvailable, m)
	}
	n := p.Int64()
	coords := make([]Element, len(m.dualBasis))
	for i, x := range m.dualBasis {
		v := x
		for k := int64(0); k < n; k++ {
			var err error
			v, err = d.Evaluate(v)
			if err != nil {
				return nil, err
			}
		}
		coords[i] = v
	}
	return m.FromCoordinates(coords)
}

// ============================================================
// Printing
// ============================================================

func (d *Derivation) String() string {
	m := d.module
	cod := m.codomain
	switch m.variant {
	case VariantZero:
		return "0"
	case VariantTwistedGeneric:
		if cod.IsZero(d.scalar) {
			return "0"
		}
		desc := "[" + m.twist.describeShort() + "] - id"
		if cod.IsOne(d.scalar) {
			return desc
		}
		return parenthesize(d.scalar.String()) + "*(" + desc + ")"
	case VariantFunctionBased:
		parts := []string{}
		if !d.base.IsZero() {
			parts = append(parts, d.base.String())
		}
		for i, image := range d.images {
			if cod.IsZero(image) {
				continue
			}
			name := "d/d" + m.polyRing.vars[i]
			cs := image.String()
			switch cs {
			case "1":
				parts = append(parts, name)
			case "-1":
				parts = append(parts, "-"+name)
			default:
				parts = append(parts, parenthesize(cs)+"*"+name)
			}
		}
		return joinSigned(parts)
	default:
		return d.base.String()
	}
}

// joinSigned joins term strings with " + ", folding a leading minus into
// " - " the way polynomials print.
func joinSigned(parts []string) string {
	if len(parts) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, p := range parts {
		switch {
		case i == 0:
			sb.WriteString(p)
		case strings.HasPrefix(p, "-"):
			sb.WriteString(" - ")
			sb.WriteString(p[1:])
		default:
			sb.WriteString(" + ")
			sb.WriteString(p)
		}
	}
	return sb.String()
}
