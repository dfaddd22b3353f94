package derivation

import (
	"encoding/json"
	"fmt"
)

// ============================================================
// MCP Tool Interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// HandleToolCall dispatches a single tool request. Every tool that works
// with a derivation module takes the module triple as params: "domain"
// (ring object), optional "codomain" (ring object) and optional "twist"
// (array of element objects, the images of the domain generators in the
// codomain). Derivations travel as coordinate arrays against the module
// basis.
func HandleToolCall(req ToolRequest) ToolResponse {
	getRing := func(key string, required bool) (Ring, error) {
		v, ok := req.Params[key]
		if !ok {
			if required {
				return nil, fmt.Errorf("missing param: %s", key)
			}
			return nil, nil
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s must be a ring object", key)
		}
		return RingFromJSON(m)
	}
	getModule := func() (*DerivationModule, error) {
		domain, err := getRing("domain", true)
		if err != nil {
			return nil, err
		}
		codomain, err := getRing("codomain", false)
		if err != nil {
			return nil, err
		}
		if codomain == nil {
			codomain = domain
		}
		var twist *RingHom
		if v, ok := req.Params["twist"]; ok {
			raw, ok := v.([]interface{})
			if !ok {
				return nil, fmt.Errorf("param twist must be an array of element objects")
			}
			images := make([]Element, len(raw))
			for i, r := range raw {
				m, ok := r.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("param twist[%d] must be an element object", i)
				}
				im, err := ElementFromJSON(m, codomain)
				if err != nil {
					return nil, fmt.Errorf("twist[%d]: %w", i, err)
				}
				images[i] = im
			}
			twist, err = NewRingHom(domain, codomain, images...)
			if err != nil {
				return nil, err
			}
		}
		return NewDerivationModule(domain, codomain, twist)
	}
	getDeriv := func(m *DerivationModule, key string) (*Derivation, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s must be an array of element objects", key)
		}
		coords := make([]Element, len(raw))
		for i, r := range raw {
			em, ok := r.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("param %s[%d] must be an element object", key, i)
			}
			c, err := ElementFromJSON(em, m.codomain)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
			coords[i] = c
		}
		return m.FromCoordinates(coords)
	}
	getElement := func(m *DerivationModule, key string) (Element, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		em, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s must be an element object", key)
		}
		return ElementFromJSON(em, m.domain)
	}
	respondDeriv := func(d *Derivation) ToolResponse {
		coords, err := d.Coordinates()
		if err != nil {
			return ToolResponse{String: d.String()}
		}
		out := make([]interface{}, len(coords))
		for i, c := range coords {
			out[i] = ElementToJSON(c)
		}
		return ToolResponse{Result: out, String: d.String()}
	}

	switch req.Tool {
	case "module_info":
		m, err := getModule()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		info := map[string]interface{}{
			"domain":      m.Domain().String(),
			"codomain":    m.Codomain().String(),
			"variant":     m.Variant().String(),
			"lie_algebra": m.IsLieAlgebra(),
		}
		if n, err := m.NGens(); err == nil {
			info["ngens"] = n
		}
		if db, err := m.DualBasis(); err == nil {
			strs := make([]string, len(db))
			for i, x := range db {
				strs[i] = x.String()
			}
			info["dual_basis"] = strs
		}
		if ring, sharp, err := m.RingOfConstants(); err == nil {
			info["constants"] = ring.String()
			info["constants_sharp"] = sharp
		}
		if tw := m.TwistingHomomorphism(); tw != nil {
			info["twist"] = tw.describeShort()
		}
		return ToolResponse{Result: info, String: m.String()}

	case "derivation":
		m, err := getModule()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		d, err := getDeriv(m, "coords")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respondDeriv(d)

	case "evaluate":
		m, err := getModule()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		d, err := getDeriv(m, "coords")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		x, err := getElement(m, "x")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		v, err := d.Evaluate(x)
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return ToolResponse{Result: ElementToJSON(v), String: v.String()}

	case "bracket":
		m, err := getModule()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		a, err := getDeriv(m, "a")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		b, err := getDeriv(m, "b")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		res, err := a.Bracket(b)
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respondDeriv(res)

	case "pth_power":
		m, err := getModule()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		d, err := getDeriv(m, "coords")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		res, err := d.PthPower()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respondDeriv(res)

	case "coordinates":
		m, err := getModule()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		d, err := getDeriv(m, "coords")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respondDeriv(d)

	case "mcp_spec":
		return ToolResponse{Result: MCPToolSpec(), String: "MCP tool specification"}
	}

	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

func MCPToolSpec() string {
	tools := []map[string]interface{}{
		ts("module_info", "Describe the derivation module for a ring: variant, generators, dual basis, ring of constants. Params: domain (ring), optional codomain (ring), optional twist (element[])", []string{"domain"}, map[string]string{"domain": "object", "codomain": "object", "twist": "array"}),
		ts("derivation", "Build a derivation from coordinates against the module basis", []string{"domain", "coords"}, map[string]string{"domain": "object", "codomain": "object", "twist": "array", "coords": "array"}),
		ts("evaluate", "Apply a derivation to a domain element x", []string{"domain", "coords", "x"}, map[string]string{"domain": "object", "coords": "array", "x": "object"}),
		ts("bracket", "Lie bracket [a, b] of two derivations (domain must equal codomain)", []string{"domain", "a", "b"}, map[string]string{"domain": "object", "a": "array", "b": "array"}),
		ts("pth_power", "Frobenius p-th power of a derivation over prime characteristic", []string{"domain", "coords"}, map[string]string{"domain": "object", "coords": "array"}),
		ts("coordinates", "Coordinates of a derivation against the dual basis", []string{"domain", "coords"}, map[string]string{"domain": "object", "coords": "array"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
