package derivation_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derivation "github.com/njchilds90/go-derivation"
)

func polyModuleQQ(t *testing.T, vars ...string) (*derivation.PolynomialRing, *derivation.DerivationModule) {
	t.Helper()
	R := derivation.NewPolynomialRing(derivation.Rationals(), vars...)
	M, err := derivation.NewDerivationModule(R, nil, nil)
	require.NoError(t, err)
	return R, M
}

func TestPolynomialModuleShape(t *testing.T) {
	R, M := polyModuleQQ(t, "x", "y", "z")

	assert.Equal(t, derivation.VariantFunctionBased, M.Variant())
	assert.True(t, M.IsLieAlgebra())

	n, err := M.NGens()
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one generator per variable over a zero base module")

	db, err := M.DualBasis()
	require.NoError(t, err)
	require.Len(t, db, 3)
	for i, x := range db {
		assert.True(t, R.Equal(x, R.Gen(i)))
	}

	constants, sharp, err := M.RingOfConstants()
	require.NoError(t, err)
	assert.True(t, derivation.SameRing(constants, derivation.Rationals()))
	assert.True(t, sharp, "constants are exact in characteristic zero")
}

func TestZeroVariant(t *testing.T) {
	for _, ring := range []derivation.Ring{
		derivation.Integers(),
		derivation.Rationals(),
		derivation.GF(7),
		derivation.IntegersMod(10),
	} {
		M, err := derivation.NewDerivationModule(ring, nil, nil)
		require.NoError(t, err, "ring %s", ring)
		assert.Equal(t, derivation.VariantZero, M.Variant(), "ring %s", ring)

		n, err := M.NGens()
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		v, err := M.Zero().Evaluate(ring.FromInt(3))
		require.NoError(t, err)
		assert.True(t, ring.IsZero(v))
	}
}

// Concrete scenario: d = 2*d/dx + z*d/dy + (x^2+y^2)*d/dz over QQ[x,y,z].
func TestDerivationEvaluation(t *testing.T) {
	R, M := polyModuleQQ(t, "x", "y", "z")
	x, y, z := R.Gen(0), R.Gen(1), R.Gen(2)

	x2y2 := R.Add(R.Mul(x, x), R.Mul(y, y))
	d, err := M.FromCoordinates([]derivation.Element{R.FromInt(2), z, x2y2})
	require.NoError(t, err)
	assert.Equal(t, "2*d/dx + z*d/dy + (x^2 + y^2)*d/dz", d.String())

	got, err := d.Evaluate(R.Add(R.Add(x, y), z))
	require.NoError(t, err)
	want := R.Add(R.Add(x2y2, z), R.FromInt(2))
	assert.True(t, R.Equal(got, want), "d(x+y+z) = x^2 + y^2 + z + 2, got %s", got)
}

func TestLeibnizRule(t *testing.T) {
	R, M := polyModuleQQ(t, "x", "y", "z")
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		d, err := M.RandomElement(rnd)
		require.NoError(t, err)
		p := R.RandomElement(rnd)
		q := R.RandomElement(rnd)

		dpq, err := d.Evaluate(R.Mul(p, q))
		require.NoError(t, err)
		dp, err := d.Evaluate(p)
		require.NoError(t, err)
		dq, err := d.Evaluate(q)
		require.NoError(t, err)

		want := R.Add(R.Mul(p, dq), R.Mul(dp, q))
		assert.True(t, R.Equal(dpq, want), "d(p*q) = p*d(q) + d(p)*q for p=%s q=%s", p, q)
	}
}

func TestModuleLaws(t *testing.T) {
	R, M := polyModuleQQ(t, "x", "y")
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 10; i++ {
		d, err := M.RandomElement(rnd)
		require.NoError(t, err)
		e, err := M.RandomElement(rnd)
		require.NoError(t, err)
		x := R.RandomElement(rnd)
		c := R.RandomElement(rnd)

		sum, err := d.Add(e)
		require.NoError(t, err)
		sv, err := sum.Evaluate(x)
		require.NoError(t, err)
		dv, err := d.Evaluate(x)
		require.NoError(t, err)
		ev, err := e.Evaluate(x)
		require.NoError(t, err)
		assert.True(t, R.Equal(sv, R.Add(dv, ev)), "(d+e)(x) = d(x)+e(x)")

		scaled, err := d.ScalarMul(c)
		require.NoError(t, err)
		cv, err := scaled.Evaluate(x)
		require.NoError(t, err)
		assert.True(t, R.Equal(cv, R.Mul(c, dv)), "(c*d)(x) = c*d(x)")

		nv, err := d.Neg().Evaluate(x)
		require.NoError(t, err)
		assert.True(t, R.Equal(nv, R.Neg(dv)), "(-d)(x) = -d(x)")
	}
}

func TestDualBasisProperty(t *testing.T) {
	_, M := polyModuleQQ(t, "x", "y", "z")
	R := M.Domain()

	basis, err := M.Basis()
	require.NoError(t, err)
	dual, err := M.DualBasis()
	require.NoError(t, err)
	require.Equal(t, len(basis), len(dual))

	for i, b := range basis {
		for j, x := range dual {
			v, err := b.Evaluate(x)
			require.NoError(t, err)
			if i == j {
				assert.True(t, R.IsOne(v), "basis[%d](dual[%d]) = 1", i, j)
			} else {
				assert.True(t, R.IsZero(v), "basis[%d](dual[%d]) = 0", i, j)
			}
		}
	}
}

func TestCoordinatesRoundTrip(t *testing.T) {
	_, M := polyModuleQQ(t, "x", "y")
	rnd := rand.New(rand.NewSource(3))

	d, err := M.RandomElement(rnd)
	require.NoError(t, err)
	coords, err := d.Coordinates()
	require.NoError(t, err)
	rebuilt, err := M.FromCoordinates(coords)
	require.NoError(t, err)

	eq, err := d.Equal(rebuilt)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestBracket(t *testing.T) {
	R, M := polyModuleQQ(t, "x", "y")
	x, y := R.Gen(0), R.Gen(1)

	dx, err := M.UnitDerivation(x)
	require.NoError(t, err)
	dy, err := M.UnitDerivation(y)
	require.NoError(t, err)
	xdy, err := dy.ScalarMul(x)
	require.NoError(t, err)

	// [d/dx, x*d/dy] = d/dy
	br, err := dx.Bracket(xdy)
	require.NoError(t, err)
	eq, err := br.Equal(dy)
	require.NoError(t, err)
	assert.True(t, eq, "[d/dx, x*d/dy] should be d/dy, got %s", br)

	// Antisymmetry.
	rev, err := xdy.Bracket(dx)
	require.NoError(t, err)
	eq, err = rev.Equal(br.Neg())
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestJacobiIdentity(t *testing.T) {
	_, M := polyModuleQQ(t, "x", "y")
	rnd := rand.New(rand.NewSource(11))

	for i := 0; i < 5; i++ {
		d, err := M.RandomElement(rnd)
		require.NoError(t, err)
		e, err := M.RandomElement(rnd)
		require.NoError(t, err)
		f, err := M.RandomElement(rnd)
		require.NoError(t, err)

		ef, err := e.Bracket(f)
		require.NoError(t, err)
		a, err := d.Bracket(ef)
		require.NoError(t, err)
		fd, err := f.Bracket(d)
		require.NoError(t, err)
		b, err := e.Bracket(fd)
		require.NoError(t, err)
		de, err := d.Bracket(e)
		require.NoError(t, err)
		c, err := f.Bracket(de)
		require.NoError(t, err)

		sum, err := a.Add(b)
		require.NoError(t, err)
		sum, err = sum.Add(c)
		require.NoError(t, err)
		assert.True(t, sum.IsZero(), "Jacobi identity")
	}
}

// Concrete scenario: over GF(5)[x], Dx^[5] = 0 and (x*Dx)^[5] = x*Dx.
func TestPthPowerScenario(t *testing.T) {
	F := derivation.NewPolynomialRing(derivation.GF(5), "x")
	M, err := derivation.NewDerivationModule(F, nil, nil)
	require.NoError(t, err)

	dx, err := M.UnitDerivation(F.Gen(0))
	require.NoError(t, err)

	p1, err := dx.PthPower()
	require.NoError(t, err)
	assert.True(t, p1.IsZero(), "Dx^[5] = 0")

	xdx, err := dx.ScalarMul(F.Gen(0))
	require.NoError(t, err)
	p2, err := xdx.PthPower()
	require.NoError(t, err)
	eq, err := p2.Equal(xdx)
	require.NoError(t, err)
	assert.True(t, eq, "(x*Dx)^[5] = x*Dx")
}

func TestPthPowerIsIteratedApplication(t *testing.T) {
	F := derivation.NewPolynomialRing(derivation.GF(5), "x")
	M, err := derivation.NewDerivationModule(F, nil, nil)
	require.NoError(t, err)
	rnd := rand.New(rand.NewSource(19))

	d, err := M.RandomElement(rnd)
	require.NoError(t, err)
	dp, err := d.PthPower()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		x := F.RandomElement(rnd)
		want := x
		for k := 0; k < 5; k++ {
			var err error
			want, err = d.Evaluate(want)
			require.NoError(t, err)
		}
		got, err := dp.Evaluate(x)
		require.NoError(t, err)
		assert.True(t, F.Equal(got, want), "d^[p](x) is d applied p times at %s", x)
	}
}

func TestPthPowerErrors(t *testing.T) {
	_, M := polyModuleQQ(t, "x")
	d, err := M.Gen(0)
	require.NoError(t, err)
	_, err = d.PthPower()
	assert.ErrorIs(t, err, derivation.ErrCharacteristic, "characteristic zero")

	Z6x := derivation.NewPolynomialRing(derivation.IntegersMod(6), "x")
	M6, err := derivation.NewDerivationModule(Z6x, nil, nil)
	require.NoError(t, err)
	d6, err := M6.Gen(0)
	require.NoError(t, err)
	_, err = d6.PthPower()
	assert.ErrorIs(t, err, derivation.ErrCharacteristic, "characteristic 6 is not prime")
}

func TestQuotientRuleOverFractionField(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x")
	K := derivation.NewFractionField(R).(*derivation.FractionField)
	M, err := derivation.NewDerivationModule(K, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, derivation.VariantFunctionBased, M.Variant())

	d, err := M.UnitDerivation(R.Gen(0))
	require.NoError(t, err)

	x := R.Gen(0)
	u := R.Add(R.Mul(x, x), R.One())
	v := x

	got, err := d.Evaluate(K.Fraction(u, v))
	require.NoError(t, err)

	du, err := d.Evaluate(u)
	require.NoError(t, err)
	dv, err := d.Evaluate(v)
	require.NoError(t, err)
	uc, _ := K.Coerce(u)
	vc, _ := K.Coerce(v)
	num := K.Sub(K.Mul(du, vc), K.Mul(uc, dv))
	want, ok := K.Div(num, K.Mul(vc, vc))
	require.True(t, ok)
	assert.True(t, K.Equal(got, want), "d(u/v) = (d(u)v - u d(v))/v^2")
}

// Concrete scenario: the cyclic twist over Frac(QQ[x,y,z]).
func TestTwistedDerivation(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y", "z")
	K := derivation.NewFractionField(R)
	x, y, z := R.Gen(0), R.Gen(1), R.Gen(2)

	theta, err := derivation.NewRingHom(K, K, y, z, x)
	require.NoError(t, err)
	M, err := derivation.NewDerivationModule(K, nil, theta)
	require.NoError(t, err)
	assert.Equal(t, derivation.VariantTwistedGeneric, M.Variant())

	n, err := M.NGens()
	require.NoError(t, err)
	require.Equal(t, 1, n, "rank 1 over a field")

	g, err := M.Gen(0)
	require.NoError(t, err)
	assert.Equal(t, "[x |--> y, y |--> z, z |--> x] - id", g.String())

	check := func(in, want derivation.Element) {
		t.Helper()
		got, err := g.Evaluate(in)
		require.NoError(t, err)
		w, ok := K.Coerce(want)
		require.True(t, ok)
		assert.True(t, K.Equal(got, w), "g(%s) = %s, got %s", in, want, got)
	}
	check(x, R.Sub(y, x))
	check(y, R.Sub(z, y))
	check(z, R.Sub(x, z))
	check(R.Add(R.Add(x, y), z), R.Zero())
}

func TestTwistedLeibnizRule(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y", "z")
	K := derivation.NewFractionField(R)
	x, y, z := R.Gen(0), R.Gen(1), R.Gen(2)

	theta, err := derivation.NewRingHom(K, K, y, z, x)
	require.NoError(t, err)
	M, err := derivation.NewDerivationModule(K, nil, theta)
	require.NoError(t, err)
	g, err := M.Gen(0)
	require.NoError(t, err)

	// d(p*q) = theta(p)*d(q) + d(p)*q
	p, _ := K.Coerce(x)
	q, _ := K.Coerce(y)
	left, err := g.Evaluate(K.Mul(p, q))
	require.NoError(t, err)
	tp, err := theta.Apply(p)
	require.NoError(t, err)
	gq, err := g.Evaluate(q)
	require.NoError(t, err)
	gp, err := g.Evaluate(p)
	require.NoError(t, err)
	right := K.Add(K.Mul(tp, gq), K.Mul(gp, q))
	assert.True(t, K.Equal(left, right))
}

func TestTwistDegeneration(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y", "z")
	K := derivation.NewFractionField(R)

	id, err := derivation.NewRingHom(K, K, R.Gen(0), R.Gen(1), R.Gen(2))
	require.NoError(t, err)
	withTwist, err := derivation.NewDerivationModule(K, nil, id)
	require.NoError(t, err)
	without, err := derivation.NewDerivationModule(K, nil, nil)
	require.NoError(t, err)

	assert.Same(t, without, withTwist, "identity twist degenerates to the untwisted module")
	assert.Nil(t, withTwist.TwistingHomomorphism())
}

func TestModuleMemoization(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "a", "b")
	m1, err := derivation.NewDerivationModule(R, nil, nil)
	require.NoError(t, err)
	R2 := derivation.NewPolynomialRing(derivation.Rationals(), "a", "b")
	m2, err := derivation.NewDerivationModule(R2, nil, nil)
	require.NoError(t, err)
	assert.Same(t, m1, m2, "structurally equal triples share the module")
}

func TestFractionFieldWrapper(t *testing.T) {
	K := derivation.NewFractionField(derivation.Integers()).(*derivation.FractionField)
	M, err := derivation.NewDerivationModule(K, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, derivation.VariantFractionFieldWrapper, M.Variant())

	n, err := M.NGens()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "the base module over ZZ is trivial")

	v, err := M.Zero().Evaluate(K.Fraction(derivation.Integers().FromInt(3), derivation.Integers().FromInt(4)))
	require.NoError(t, err)
	assert.True(t, K.IsZero(v))

	constants, sharp, err := M.RingOfConstants()
	require.NoError(t, err)
	assert.False(t, sharp, "wrapped constants are only a lower bound")
	assert.True(t, derivation.SameRing(constants, derivation.NewFractionField(derivation.Integers())))
}

func TestQuotientWrapper(t *testing.T) {
	C := derivation.NewPolynomialRing(derivation.GF(5), "X", "Y")
	X, Y := C.Gen(0), C.Gen(1)
	Q, err := derivation.NewQuotientRing(C, pw(C, X, 5), pw(C, Y, 5))
	require.NoError(t, err)

	M, err := derivation.NewDerivationModule(Q, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, derivation.VariantQuotientWrapper, M.Variant())

	n, err := M.NGens()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	dX, err := M.Gen(0)
	require.NoError(t, err)
	x, y := Q.Gen(0), Q.Gen(1)
	got, err := dX.Evaluate(Q.Mul(pw(Q, x, 3), y))
	require.NoError(t, err)
	want := Q.Mul(Q.FromInt(3), Q.Mul(pw(Q, x, 2), y))
	assert.True(t, Q.Equal(got, want), "dX(X^3*Y) = 3*X^2*Y")

	// Dual basis survives the reduction.
	basis, err := M.Basis()
	require.NoError(t, err)
	dual, err := M.DualBasis()
	require.NoError(t, err)
	for i, b := range basis {
		for j, e := range dual {
			v, err := b.Evaluate(e)
			require.NoError(t, err)
			assert.Equal(t, i == j, Q.IsOne(v))
		}
	}
}

func TestQuotientWrapperVanishingCheck(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "t")
	tt := R.Gen(0)
	Q, err := derivation.NewQuotientRing(R, R.Add(R.Mul(tt, tt), R.One()))
	require.NoError(t, err)

	// d/dt(t^2 + 1) = 2t does not vanish, so lifting is not faithful.
	_, err = derivation.NewDerivationModule(Q, nil, nil)
	assert.ErrorIs(t, err, derivation.ErrUnsupportedRing)
}

func TestConstructionErrors(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x")

	_, err := derivation.NewDerivationModule(R, derivation.Integers(), nil)
	assert.ErrorIs(t, err, derivation.ErrConstruction, "ZZ is not an algebra over QQ[x]")

	other := derivation.NewPolynomialRing(derivation.Rationals(), "a")
	hom, err := derivation.NewRingHom(other, other, other.Gen(0))
	require.NoError(t, err)
	_, err = derivation.NewDerivationModule(R, nil, hom)
	assert.ErrorIs(t, err, derivation.ErrConstruction, "twist over an unrelated ring cannot be aligned")
}

func TestOperationErrors(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y")
	K := derivation.NewFractionField(R)

	_, M := polyModuleQQ(t, "x", "y")
	_, err := M.Gen(5)
	assert.ErrorIs(t, err, derivation.ErrIndexOutOfRange)
	_, err = M.Gen(-1)
	assert.ErrorIs(t, err, derivation.ErrIndexOutOfRange)

	// Mixed domain/codomain: no bracket.
	MK, err := derivation.NewDerivationModule(R, K, nil)
	require.NoError(t, err)
	assert.False(t, MK.IsLieAlgebra())
	d, err := MK.Gen(0)
	require.NoError(t, err)
	_, err = d.Bracket(d)
	assert.ErrorIs(t, err, derivation.ErrDomainMismatch)
	_, err = d.PthPower()
	assert.ErrorIs(t, err, derivation.ErrDomainMismatch)

	// Twisted module over a non-field: no generating set.
	swap, err := derivation.NewRingHom(R, R, R.Gen(1), R.Gen(0))
	require.NoError(t, err)
	T, err := derivation.NewDerivationModule(R, nil, swap)
	require.NoError(t, err)
	_, err = T.NGens()
	assert.ErrorIs(t, err, derivation.ErrNotAvailable)

	// Twisted module over a field: bracket needs a dual basis.
	thetaK, err := derivation.NewRingHom(K, K, R.Gen(1), R.Gen(0))
	require.NoError(t, err)
	TK, err := derivation.NewDerivationModule(K, nil, thetaK)
	require.NoError(t, err)
	g, err := TK.Gen(0)
	require.NoError(t, err)
	_, err = g.Bracket(g)
	assert.ErrorIs(t, err, derivation.ErrNotAvailable)

	_, err = M.FromCoordinates([]derivation.Element{R.One()})
	assert.ErrorIs(t, err, derivation.ErrConstruction, "wrong coordinate count")
}

func TestNestedPolynomialTower(t *testing.T) {
	// QQ[a][x]: the base module over QQ[a] contributes d/da.
	A := derivation.NewPolynomialRing(derivation.Rationals(), "a")
	R := derivation.NewPolynomialRing(A, "x")
	M, err := derivation.NewDerivationModule(R, nil, nil)
	require.NoError(t, err)

	n, err := M.NGens()
	require.NoError(t, err)
	require.Equal(t, 2, n, "d/da followed by d/dx")

	da, err := M.Gen(0)
	require.NoError(t, err)
	dx, err := M.Gen(1)
	require.NoError(t, err)

	// p = a*x^2
	x := R.Gen(0)
	a, ok := R.Coerce(A.Gen(0))
	require.True(t, ok)
	p := R.Mul(a, R.Mul(x, x))

	va, err := da.Evaluate(p)
	require.NoError(t, err)
	assert.True(t, R.Equal(va, R.Mul(x, x)), "d/da(a*x^2) = x^2")

	vx, err := dx.Evaluate(p)
	require.NoError(t, err)
	assert.True(t, R.Equal(vx, R.Mul(R.FromInt(2), R.Mul(a, x))), "d/dx(a*x^2) = 2*a*x")
}
