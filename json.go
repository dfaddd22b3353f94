package derivation

import (
	"fmt"
	"math/big"
)

// ============================================================
// JSON Serialization
// ============================================================

// RingToJSON encodes a ring as a JSON-ready object tree.
func RingToJSON(r Ring) map[string]interface{} {
	switch s := r.(type) {
	case *integerRing:
		return map[string]interface{}{"kind": "integers"}
	case *rationalField:
		return map[string]interface{}{"kind": "rationals"}
	case *primeField:
		return map[string]interface{}{"kind": "prime_field", "p": s.p.String()}
	case *integerModRing:
		return map[string]interface{}{"kind": "integer_mod", "n": s.n.String()}
	case *PolynomialRing:
		vars := make([]interface{}, len(s.vars))
		for i, v := range s.vars {
			vars[i] = v
		}
		return map[string]interface{}{"kind": "polynomial", "base": RingToJSON(s.base), "vars": vars}
	case *FractionField:
		return map[string]interface{}{"kind": "fraction", "ring": RingToJSON(s.ring)}
	case *QuotientRing:
		rels := make([]interface{}, len(s.relations))
		for i, rel := range s.relations {
			rels[i] = ElementToJSON(rel)
		}
		return map[string]interface{}{"kind": "quotient", "cover": RingToJSON(s.cover), "relations": rels}
	}
	return map[string]interface{}{"kind": "unknown"}
}

// RingFromJSON decodes a ring from its JSON object tree.
func RingFromJSON(data map[string]interface{}) (Ring, error) {
	if data == nil {
		return nil, fmt.Errorf("ring must be an object")
	}
	kindAny, ok := data["kind"]
	if !ok {
		return nil, fmt.Errorf("missing 'kind' field")
	}
	kind, ok := kindAny.(string)
	if !ok || kind == "" {
		return nil, fmt.Errorf("field 'kind' must be a non-empty string")
	}

	subObj := func(field string) (map[string]interface{}, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", kind, field)
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", kind, field)
		}
		return m, nil
	}

	subBigInt := func(field string) (*big.Int, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", kind, field)
		}
		switch val := v.(type) {
		case string:
			n, ok := new(big.Int).SetString(val, 10)
			if !ok {
				return nil, fmt.Errorf("%s: invalid integer %q", kind, val)
			}
			return n, nil
		case float64:
			return big.NewInt(int64(val)), nil
		}
		return nil, fmt.Errorf("%s: %q must be a string or number", kind, field)
	}

	switch kind {
	case "integers":
		return Integers(), nil

	case "rationals":
		return Rationals(), nil

	case "prime_field":
		p, err := subBigInt("p")
		if err != nil {
			return nil, err
		}
		if !p.ProbablyPrime(20) {
			return nil, fmt.Errorf("prime_field: %s is not prime", p)
		}
		return &primeField{p: p}, nil

	case "integer_mod":
		n, err := subBigInt("n")
		if err != nil {
			return nil, err
		}
		if n.Cmp(big.NewInt(2)) < 0 {
			return nil, fmt.Errorf("integer_mod: modulus must be at least 2")
		}
		return &integerModRing{n: n}, nil

	case "polynomial":
		baseM, err := subObj("base")
		if err != nil {
			return nil, err
		}
		base, err := RingFromJSON(baseM)
		if err != nil {
			return nil, fmt.Errorf("polynomial: base: %w", err)
		}
		varsAny, ok := data["vars"]
		if !ok {
			return nil, fmt.Errorf("polynomial: missing 'vars'")
		}
		raw, ok := varsAny.([]interface{})
		if !ok || len(raw) == 0 {
			return nil, fmt.Errorf("polynomial: 'vars' must be a non-empty array")
		}
		vars := make([]string, len(raw))
		for i, r := range raw {
			s, ok := r.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("polynomial: vars[%d] must be a non-empty string", i)
			}
			vars[i] = s
		}
		return NewPolynomialRing(base, vars...), nil

	case "fraction":
		ringM, err := subObj("ring")
		if err != nil {
			return nil, err
		}
		ring, err := RingFromJSON(ringM)
		if err != nil {
			return nil, fmt.Errorf("fraction: ring: %w", err)
		}
		return NewFractionField(ring), nil

	case "quotient":
		coverM, err := subObj("cover")
		if err != nil {
			return nil, err
		}
		coverRing, err := RingFromJSON(coverM)
		if err != nil {
			return nil, fmt.Errorf("quotient: cover: %w", err)
		}
		cover, ok := coverRing.(*PolynomialRing)
		if !ok {
			return nil, fmt.Errorf("quotient: cover must be a polynomial ring")
		}
		relsAny, ok := data["relations"]
		if !ok {
			return nil, fmt.Errorf("quotient: missing 'relations'")
		}
		raw, ok := relsAny.([]interface{})
		if !ok {
			return nil, fmt.Errorf("quotient: 'relations' must be an array")
		}
		rels := make([]Element, len(raw))
		for i, r := range raw {
			m, ok := r.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("quotient: relations[%d] must be an object", i)
			}
			rel, err := ElementFromJSON(m, cover)
			if err != nil {
				return nil, fmt.Errorf("quotient: relations[%d]: %w", i, err)
			}
			rels[i] = rel
		}
		return NewQuotientRing(cover, rels...)
	}
	return nil, fmt.Errorf("unknown ring kind: %s", kind)
}

// ElementToJSON encodes a ring element as a JSON-ready object tree.
func ElementToJSON(x Element) map[string]interface{} {
	switch e := x.(type) {
	case *intElement:
		return map[string]interface{}{"type": "int", "value": e.v.String()}
	case *ratElement:
		return map[string]interface{}{"type": "rat", "value": e.v.RatString()}
	case *modElement:
		return map[string]interface{}{"type": "mod", "value": e.v.String()}
	case *polyElement:
		terms := make([]interface{}, len(e.terms))
		for i, t := range e.terms {
			exps := make([]interface{}, len(t.exps))
			for j, ex := range t.exps {
				exps[j] = ex
			}
			terms[i] = map[string]interface{}{"exps": exps, "coeff": ElementToJSON(t.coeff)}
		}
		return map[string]interface{}{"type": "poly", "terms": terms}
	case *fracElement:
		return map[string]interface{}{"type": "frac", "num": ElementToJSON(e.num), "den": ElementToJSON(e.den)}
	case *quotElement:
		return map[string]interface{}{"type": "quot", "lift": ElementToJSON(e.lift)}
	}
	return map[string]interface{}{"type": "unknown", "string": x.String()}
}

// ElementFromJSON decodes an element of ring from its JSON object tree.
func ElementFromJSON(data map[string]interface{}, ring Ring) (Element, error) {
	if data == nil {
		return nil, fmt.Errorf("element must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subValue := func() (string, error) {
		v, ok := data["value"]
		if !ok {
			return "", fmt.Errorf("%s: missing 'value'", typ)
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%s: 'value' must be a non-empty string", typ)
		}
		return s, nil
	}

	switch r := ring.(type) {
	case *integerRing:
		if typ != "int" {
			return nil, fmt.Errorf("expected type 'int' for %s, got %q", ring, typ)
		}
		val, err := subValue()
		if err != nil {
			return nil, err
		}
		n, ok := new(big.Int).SetString(val, 10)
		if !ok {
			return nil, fmt.Errorf("invalid int value: %s", val)
		}
		return &intElement{v: n}, nil

	case *rationalField:
		if typ != "rat" && typ != "int" {
			return nil, fmt.Errorf("expected type 'rat' for %s, got %q", ring, typ)
		}
		val, err := subValue()
		if err != nil {
			return nil, err
		}
		q, ok := new(big.Rat).SetString(val)
		if !ok {
			return nil, fmt.Errorf("invalid rat value: %s", val)
		}
		return &ratElement{v: q}, nil

	case *primeField, *integerModRing:
		if typ != "mod" && typ != "int" {
			return nil, fmt.Errorf("expected type 'mod' for %s, got %q", ring, typ)
		}
		val, err := subValue()
		if err != nil {
			return nil, err
		}
		n, ok := new(big.Int).SetString(val, 10)
		if !ok {
			return nil, fmt.Errorf("invalid mod value: %s", val)
		}
		v, _ := ring.Coerce(&intElement{v: n})
		return v, nil

	case *PolynomialRing:
		if typ != "poly" {
			return nil, fmt.Errorf("expected type 'poly' for %s, got %q", ring, typ)
		}
		termsAny, ok := data["terms"]
		if !ok {
			return nil, fmt.Errorf("poly: missing 'terms'")
		}
		raw, ok := termsAny.([]interface{})
		if !ok {
			return nil, fmt.Errorf("poly: 'terms' must be an array")
		}
		terms := make([]polyTerm, len(raw))
		for i, t := range raw {
			tm, ok := t.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("poly: terms[%d] must be an object", i)
			}
			expsRaw, ok := tm["exps"].([]interface{})
			if !ok || len(expsRaw) != r.NumGens() {
				return nil, fmt.Errorf("poly: terms[%d].exps must be an array of %d exponents", i, r.NumGens())
			}
			exps := make([]int, len(expsRaw))
			for j, eAny := range expsRaw {
				// Trees straight from ElementToJSON carry int exponents;
				// trees decoded from wire JSON carry float64.
				var ex int
				switch n := eAny.(type) {
				case float64:
					ex = int(n)
				case int:
					ex = n
				default:
					return nil, fmt.Errorf("poly: terms[%d].exps[%d] must be a number", i, j)
				}
				if ex < 0 {
					return nil, fmt.Errorf("poly: terms[%d].exps[%d] must be non-negative", i, j)
				}
				exps[j] = ex
			}
			coeffM, ok := tm["coeff"].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("poly: terms[%d].coeff must be an object", i)
			}
			coeff, err := ElementFromJSON(coeffM, r.base)
			if err != nil {
				return nil, fmt.Errorf("poly: terms[%d].coeff: %w", i, err)
			}
			terms[i] = polyTerm{exps: exps, coeff: coeff}
		}
		return r.newPoly(terms), nil

	case *FractionField:
		if typ != "frac" {
			return nil, fmt.Errorf("expected type 'frac' for %s, got %q", ring, typ)
		}
		numM, ok := data["num"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("frac: 'num' must be an object")
		}
		denM, ok := data["den"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("frac: 'den' must be an object")
		}
		num, err := ElementFromJSON(numM, r.ring)
		if err != nil {
			return nil, fmt.Errorf("frac: num: %w", err)
		}
		den, err := ElementFromJSON(denM, r.ring)
		if err != nil {
			return nil, fmt.Errorf("frac: den: %w", err)
		}
		if r.ring.IsZero(den) {
			return nil, fmt.Errorf("frac: denominator is zero")
		}
		return r.make(num, den), nil

	case *QuotientRing:
		if typ != "quot" {
			return nil, fmt.Errorf("expected type 'quot' for %s, got %q", ring, typ)
		}
		liftM, ok := data["lift"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("quot: 'lift' must be an object")
		}
		lift, err := ElementFromJSON(liftM, r.cover)
		if err != nil {
			return nil, fmt.Errorf("quot: lift: %w", err)
		}
		return r.fromCover(lift), nil
	}
	return nil, fmt.Errorf("no element codec for %s", ring)
}
