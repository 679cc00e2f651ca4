package credential

import "strconv"

// Compare reports whether a submitted candidate matches the authoritative
// issued record. The identifying fields are compared by exact string
// equality, the optional expiry with absent normalized to the empty string,
// and the data payload by deep structural equality.
func Compare(submitted Credential, issued IssuedCredential) bool {
	return submitted.ID == issued.ID &&
		submitted.HolderName == issued.HolderName &&
		submitted.CredentialType == issued.CredentialType &&
		submitted.IssueDate == issued.IssueDate &&
		submitted.IssuerName == issued.IssuerName &&
		DeepEqual(submitted.Data, issued.Data) &&
		submitted.ExpiryDate == issued.ExpiryDate
}

// DeepEqual implements structural equality over decoded JSON values. Two
// values are equal when both are nil, both are primitives with equal value
// and type, or both are objects with the same key set and pairwise-equal
// values. Arrays are viewed as objects keyed by element index, so element
// order matters for arrays while key order never matters for maps.
func DeepEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	aObj, aIsObj := asObject(a)
	bObj, bIsObj := asObject(b)
	if aIsObj != bIsObj {
		return false
	}
	if !aIsObj {
		// primitives decode to string, bool, or float64; interface
		// equality also rejects mixed types
		return a == b
	}
	if len(aObj) != len(bObj) {
		return false
	}
	for k, av := range aObj {
		bv, ok := bObj[k]
		if !ok {
			return false
		}
		if !DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		m := make(map[string]any, len(t))
		for i, e := range t {
			m[strconv.Itoa(i)] = e
		}
		return m, true
	default:
		return nil, false
	}
}
