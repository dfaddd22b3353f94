package derivation_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derivation "github.com/njchilds90/go-derivation"
)

// roundTrip pushes an object tree through encoding/json so the decoded
// shapes match what an HTTP client would send.
func roundTrip(t *testing.T, v map[string]interface{}) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestRingJSONRoundTrip(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.GF(5), "X", "Y")
	Q, err := derivation.NewQuotientRing(R, pw(R, R.Gen(0), 5), pw(R, R.Gen(1), 5))
	require.NoError(t, err)
	K := derivation.NewFractionField(derivation.NewPolynomialRing(derivation.Rationals(), "x"))

	for _, ring := range []derivation.Ring{
		derivation.Integers(),
		derivation.Rationals(),
		derivation.GF(7),
		derivation.IntegersMod(12),
		R, Q, K,
	} {
		decoded, err := derivation.RingFromJSON(roundTrip(t, derivation.RingToJSON(ring)))
		require.NoError(t, err, "ring %s", ring)
		assert.True(t, derivation.SameRing(ring, decoded), "round trip of %s", ring)
	}
}

func TestElementJSONRoundTrip(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y")
	K := derivation.NewFractionField(R).(*derivation.FractionField)
	x, y := R.Gen(0), R.Gen(1)

	p := R.Add(R.Mul(x, x), R.Mul(derivation.Rational(1, 2), y))
	decoded, err := derivation.ElementFromJSON(roundTrip(t, derivation.ElementToJSON(p)), R)
	require.NoError(t, err)
	assert.True(t, R.Equal(p, decoded))

	f := K.Fraction(p, y)
	decodedF, err := derivation.ElementFromJSON(roundTrip(t, derivation.ElementToJSON(f)), K)
	require.NoError(t, err)
	assert.True(t, K.Equal(f, decodedF))
}

func TestElementJSONRejectsBadInput(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x")
	_, err := derivation.ElementFromJSON(map[string]interface{}{"type": "int", "value": "3"}, R)
	assert.Error(t, err, "type must match the ring")

	K := derivation.NewFractionField(R).(*derivation.FractionField)
	zero := derivation.ElementToJSON(R.Zero())
	one := derivation.ElementToJSON(R.One())
	_, err = derivation.ElementFromJSON(map[string]interface{}{"type": "frac", "num": one, "den": zero}, K)
	assert.Error(t, err, "zero denominator")
}

func TestToolModuleInfo(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y", "z")
	resp := derivation.HandleToolCall(derivation.ToolRequest{
		Tool:   "module_info",
		Params: map[string]interface{}{"domain": derivation.RingToJSON(R)},
	})
	require.Empty(t, resp.Error)
	assert.Contains(t, resp.String, "Module of derivations over")

	info, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "FunctionBased", info["variant"])
	assert.Equal(t, 3, info["ngens"])
	assert.Equal(t, true, info["lie_algebra"])
}

func TestToolEvaluate(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y", "z")
	x, y, z := R.Gen(0), R.Gen(1), R.Gen(2)
	x2y2 := R.Add(R.Mul(x, x), R.Mul(y, y))

	resp := derivation.HandleToolCall(derivation.ToolRequest{
		Tool: "evaluate",
		Params: map[string]interface{}{
			"domain": derivation.RingToJSON(R),
			"coords": []interface{}{
				derivation.ElementToJSON(R.FromInt(2)),
				derivation.ElementToJSON(z),
				derivation.ElementToJSON(x2y2),
			},
			"x": derivation.ElementToJSON(R.Add(R.Add(x, y), z)),
		},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, "x^2 + y^2 + z + 2", resp.String)
}

func TestToolBracket(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y")
	x := R.Gen(0)
	zero := derivation.ElementToJSON(R.Zero())
	one := derivation.ElementToJSON(R.One())

	resp := derivation.HandleToolCall(derivation.ToolRequest{
		Tool: "bracket",
		Params: map[string]interface{}{
			"domain": derivation.RingToJSON(R),
			"a":      []interface{}{one, zero},
			"b":      []interface{}{zero, derivation.ElementToJSON(x)},
		},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, "d/dy", resp.String, "[d/dx, x*d/dy] = d/dy")
}

func TestToolPthPower(t *testing.T) {
	F := derivation.NewPolynomialRing(derivation.GF(5), "x")
	resp := derivation.HandleToolCall(derivation.ToolRequest{
		Tool: "pth_power",
		Params: map[string]interface{}{
			"domain": derivation.RingToJSON(F),
			"coords": []interface{}{derivation.ElementToJSON(F.One())},
		},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, "0", resp.String, "Dx^[5] = 0")
}

func TestToolTwist(t *testing.T) {
	R := derivation.NewPolynomialRing(derivation.Rationals(), "x", "y", "z")
	K := derivation.NewFractionField(R)
	x, _ := K.Coerce(R.Gen(0))
	y, _ := K.Coerce(R.Gen(1))
	z, _ := K.Coerce(R.Gen(2))

	resp := derivation.HandleToolCall(derivation.ToolRequest{
		Tool: "module_info",
		Params: map[string]interface{}{
			"domain": derivation.RingToJSON(K),
			"twist": []interface{}{
				derivation.ElementToJSON(y),
				derivation.ElementToJSON(z),
				derivation.ElementToJSON(x),
			},
		},
	})
	require.Empty(t, resp.Error)
	info, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TwistedGeneric", info["variant"])
	assert.Equal(t, "x |--> y, y |--> z, z |--> x", info["twist"])
}

func TestToolErrors(t *testing.T) {
	resp := derivation.HandleToolCall(derivation.ToolRequest{Tool: "no_such_tool"})
	assert.Contains(t, resp.Error, "unknown tool")

	resp = derivation.HandleToolCall(derivation.ToolRequest{Tool: "evaluate", Params: map[string]interface{}{}})
	assert.Contains(t, resp.Error, "missing param")
}

func TestMCPToolSpec(t *testing.T) {
	spec := derivation.MCPToolSpec()
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(spec), &parsed))
	for _, tool := range []string{"module_info", "derivation", "evaluate", "bracket", "pth_power", "coordinates", "mcp_spec"} {
		assert.True(t, strings.Contains(spec, `"name": "`+tool+`"`), "spec lists %s", tool)
	}
}
