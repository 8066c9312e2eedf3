// Package normalize turns raw bank descriptors into canonical keys and merchant fingerprints.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Veraticus/cofre/internal/model"
)

// DefaultStrongTokens is how many merchant tokens make up a strong fingerprint.
const DefaultStrongTokens = 2

// noiseTokens are acquirer, channel and legal-form tokens that never identify a merchant.
var noiseTokens = map[string]bool{
	"pag": true, "pagseguro": true, "pagsegur": true, "mp": true, "mercadopago": true,
	"mercpago": true, "pagarme": true, "stone": true, "cielo": true, "rede": true, "getnet": true,
	"sumup": true, "ec": true, "pg": true, "pgto": true, "pagto": true, "pagamento": true,
	"compra": true, "compras": true, "cartao": true, "debito": true, "credito": true, "deb": true,
	"cred": true, "aut": true, "pix": true, "ted": true, "doc": true, "tef": true, "visa": true,
	"master": true, "mastercard": true, "elo": true, "hipercard": true, "amex": true,
	"ltda": true, "eireli": true, "epp": true, "sa": true, "www": true, "com": true, "br": true,
	"parc": true, "parcela": true, "int": true, "nacional": true, "internacional": true,
}

// stateCodes are Brazilian state suffixes appended by acquirers.
var stateCodes = map[string]bool{
	"ac": true, "al": true, "ap": true, "am": true, "ba": true, "ce": true, "df": true,
	"es": true, "go": true, "ma": true, "mt": true, "ms": true, "mg": true, "pa": true,
	"pb": true, "pr": true, "pe": true, "pi": true, "rj": true, "rn": true, "rs": true,
	"ro": true, "rr": true, "sc": true, "sp": true, "se": true, "to": true,
}

// Normalizer derives descriptor keys. The zero value is not usable; use New.
type Normalizer struct {
	strongTokens int
}

// New creates a normalizer keeping strongTokens merchant tokens in strong fingerprints.
func New(strongTokens int) *Normalizer {
	if strongTokens < 1 {
		strongTokens = DefaultStrongTokens
	}
	return &Normalizer{strongTokens: strongTokens}
}

// Default is the package-level normalizer used by the helper functions.
var Default = New(DefaultStrongTokens)

// Normalize strips diacritics, lower-cases and collapses everything that is not
// an ASCII letter or digit into single spaces. Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		raw,
	)
	if err != nil {
		stripped = raw
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}

	return b.String()
}

// MeaningfulLength counts the non-space characters of a normalized descriptor.
func MeaningfulLength(normalized string) int {
	n := 0
	for _, r := range normalized {
		if r != ' ' {
			n++
		}
	}
	return n
}

// Fingerprint derives the normalized descriptor and merchant fingerprints with the default settings.
func Fingerprint(raw string) model.Fingerprint {
	return Default.Fingerprint(raw)
}

// Fingerprint derives the normalized descriptor and merchant fingerprints for raw.
func (n *Normalizer) Fingerprint(raw string) model.Fingerprint {
	normalized := Normalize(raw)
	fp := model.Fingerprint{
		Normalized:     normalized,
		DescriptionKey: normalized,
	}

	tokens := MerchantTokens(normalized)
	if len(tokens) == 0 {
		return fp
	}

	strong := tokens
	if len(strong) > n.strongTokens {
		strong = strong[:n.strongTokens]
	}

	fp.Weak = tokens[0]
	fp.Strong = strings.Join(strong, " ")
	fp.MerchantCanon = canon(strong)

	return fp
}

// MerchantTokens returns the tokens of a normalized descriptor that can identify a merchant.
func MerchantTokens(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) < 2 || noiseTokens[tok] || hasDigit(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}

	// Trailing state codes ("... sao paulo sp") are location noise.
	for len(tokens) > 1 && stateCodes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return tokens
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func canon(tokens []string) string {
	caser := cases.Title(language.BrazilianPortuguese)
	return caser.String(strings.Join(tokens, " "))
}
