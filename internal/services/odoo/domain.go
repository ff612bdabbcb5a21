package odoo

import (
	"strconv"
	"strings"

	"github.com/terralima/portalgo/internal/apperr"
)

// Domain is the ERP's prefix-notation record filter: an ordered sequence of
// either [field, operator, value] triples or logical operator tokens
// ("|", "&", "!"). Terms concatenated at the top level are implicitly
// AND-ed. Malformed domains are rejected by the ERP, not validated here.
type Domain []interface{}

// C builds a single [field, operator, value] condition
func C(field, operator string, value interface{}) []interface{} {
	return []interface{}{field, operator, value}
}

// Or combines N conditions with prefix-notation OR chaining: N-1 "|"
// tokens followed by the N conditions.
func Or(conds ...[]interface{}) Domain {
	if len(conds) == 0 {
		return Domain{}
	}
	d := make(Domain, 0, 2*len(conds)-1)
	for i := 0; i < len(conds)-1; i++ {
		d = append(d, "|")
	}
	for _, c := range conds {
		d = append(d, c)
	}
	return d
}

// And concatenates domain fragments. Since AND is the implicit top-level
// combinator, this is plain append.
func And(parts ...Domain) Domain {
	var d Domain
	for _, p := range parts {
		d = append(d, p...)
	}
	return d
}

// ResolveProductRef translates a composite product id from the UI into a
// lookup domain. A "local-" prefix (or a bare number) means numeric ERP id;
// an "fb-" prefix means fallback lookup by default_code. Anything else is a
// validation error and never reaches the RPC client.
func ResolveProductRef(ref string) (Domain, error) {
	if strings.HasPrefix(ref, "fb-") {
		code := strings.TrimPrefix(ref, "fb-")
		if code == "" {
			return nil, apperr.New(apperr.Validation, "empty fallback code")
		}
		return Domain{C("default_code", "=", code)}, nil
	}

	idStr := strings.TrimPrefix(ref, "local-")
	numID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, apperr.Newf(apperr.Validation, "invalid product id %q", ref)
	}
	return Domain{C("id", "=", numID)}, nil
}

// UnpackMany2One normalizes a relation field value: a [id, label] pair
// yields the id, anything else is returned unchanged.
func UnpackMany2One(v interface{}) interface{} {
	if pair, ok := v.([]interface{}); ok && len(pair) > 0 {
		return pair[0]
	}
	return v
}

// Many2OneID extracts the numeric id from a relation field value.
// Returns false for unset relations (Odoo sends false) or non-numeric
// values.
func Many2OneID(v interface{}) (int64, bool) {
	switch id := UnpackMany2One(v).(type) {
	case float64:
		return int64(id), true
	case int64:
		return id, true
	case int:
		return int64(id), true
	}
	return 0, false
}

// Many2OneName extracts the display label from a [id, label] pair
func Many2OneName(v interface{}) (string, bool) {
	if pair, ok := v.([]interface{}); ok && len(pair) >= 2 {
		if name, ok := pair[1].(string); ok {
			return name, true
		}
	}
	return "", false
}
