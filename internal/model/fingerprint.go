package model

import "strings"

// Fingerprint holds the derived lookup keys for a raw bank descriptor.
// Strong and Weak are empty when absent.
type Fingerprint struct {
	Normalized     string `json:"normalized_descriptor"`
	DescriptionKey string `json:"description_key"`
	Strong         string `json:"strong,omitempty"`
	Weak           string `json:"weak,omitempty"`
	MerchantCanon  string `json:"merchant_canon,omitempty"`
}

// Empty reports whether neither fingerprint could be derived.
func (f Fingerprint) Empty() bool {
	return f.Strong == "" && f.Weak == ""
}

// Preferred returns the fingerprint a new rule should be keyed by: strong when
// available, weak otherwise.
func (f Fingerprint) Preferred() (string, FingerprintType, bool) {
	if f.Strong != "" {
		return f.Strong, FingerprintStrong, true
	}
	if f.Weak != "" {
		return f.Weak, FingerprintWeak, true
	}
	return "", "", false
}

// Consistent checks that Strong is never less specific than Weak.
func (f Fingerprint) Consistent() bool {
	if f.Weak == "" || f.Strong == "" {
		return true
	}
	return f.Strong == f.Weak || strings.HasPrefix(f.Strong, f.Weak+" ")
}
