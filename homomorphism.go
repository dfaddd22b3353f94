package derivation

import (
	"fmt"
	"strings"
)

// ============================================================
// Ring homomorphisms
// ============================================================

// RingHom is a ring homomorphism determined by the images of the domain's
// generators; coefficients travel along the canonical coercion into the
// codomain. Twisting homomorphisms for derivation modules are RingHoms.
type RingHom struct {
	domain   Ring
	codomain Ring
	images   []Element
}

// NewRingHom returns the homomorphism from domain to codomain sending the
// i-th generator to images[i].
func NewRingHom(domain, codomain Ring, images ...Element) (*RingHom, error) {
	if !domain.IsCommutative() || !codomain.IsCommutative() {
		return nil, fmt.Errorf("%w: morphisms are only supported between commutative rings", ErrConstruction)
	}
	if len(images) != domain.NumGens() {
		return nil, fmt.Errorf("%w: %s has %d generators, got %d images",
			ErrConstruction, domain, domain.NumGens(), len(images))
	}
	imgs := make([]Element, len(images))
	for i, im := range images {
		c, ok := codomain.Coerce(im)
		if !ok {
			return nil, fmt.Errorf("%w: image %s does not live in %s", ErrConstruction, im, codomain)
		}
		imgs[i] = c
	}
	return &RingHom{domain: domain, codomain: codomain, images: imgs}, nil
}

// Domain returns the source ring.
func (h *RingHom) Domain() Ring { return h.domain }

// Codomain returns the target ring.
func (h *RingHom) Codomain() Ring { return h.codomain }

// Images returns the generator images in the codomain.
func (h *RingHom) Images() []Element {
	return append([]Element(nil), h.images...)
}

// Apply maps x through the homomorphism. x must coerce into the domain.
func (h *RingHom) Apply(x Element) (Element, error) {
	v, ok := h.domain.Coerce(x)
	if !ok {
		return nil, fmt.Errorf("derivation: %s does not live in %s", x, h.domain)
	}
	return h.applyIn(h.domain, v)
}

func (h *RingHom) applyIn(ring Ring, x Element) (Element, error) {
	switch r := ring.(type) {
	case *PolynomialRing:
		return r.evalTerms(x, h.codomain, h.images, func(c Element) (Element, error) {
			out, ok := h.codomain.Coerce(c)
			if !ok {
				return nil, fmt.Errorf("derivation: cannot map coefficient %s into %s", c, h.codomain)
			}
			return out, nil
		})
	case *FractionField:
		num, den := fracParts(x)
		n, err := h.applyIn(r.ring, num)
		if err != nil {
			return nil, err
		}
		d, err := h.applyIn(r.ring, den)
		if err != nil {
			return nil, err
		}
		q, ok := h.codomain.Div(n, d)
		if !ok {
			return nil, fmt.Errorf("derivation: image denominator %s is not invertible in %s", d, h.codomain)
		}
		return q, nil
	case *QuotientRing:
		return h.applyIn(r.cover, quotLift(x))
	default:
		out, ok := h.codomain.Coerce(x)
		if !ok {
			return nil, fmt.Errorf("derivation: cannot map %s into %s", x, h.codomain)
		}
		return out, nil
	}
}

// IsIdentity reports whether the homomorphism acts as the identity on every
// domain generator (modulo the canonical coercion into the codomain).
func (h *RingHom) IsIdentity() bool {
	if !h.codomain.HasCoerceFrom(h.domain) {
		return false
	}
	for i, im := range h.images {
		g, ok := h.codomain.Coerce(h.domain.Gen(i))
		if !ok || !h.codomain.Equal(g, im) {
			return false
		}
	}
	return true
}

// describeShort prints the generator action, e.g. "x |--> y, y |--> x".
func (h *RingHom) describeShort() string {
	parts := make([]string, len(h.images))
	for i, im := range h.images {
		parts[i] = h.domain.Gen(i).String() + " |--> " + im.String()
	}
	return strings.Join(parts, ", ")
}

func (h *RingHom) String() string {
	return fmt.Sprintf("Ring morphism from %s to %s sending %s", h.domain, h.codomain, h.describeShort())
}
