package classifier

import (
	"strings"

	"github.com/your-org/email-triage/internal/textproc"
)

// Confidence formula constants for the rule-based classifier
const (
	// BaseConfidence is the floor returned when keyword evidence is thin
	BaseConfidence = 0.6
	// ConfidenceStep is added per point of keyword-count difference
	ConfidenceStep = 0.15
	// MaxConfidence caps the formula; rules never claim near-certainty
	MaxConfidence = 0.98
)

// RuleClassifier scores normalized text against two fixed keyword sets.
// It never fails and never calls any external resource.
type RuleClassifier struct {
	productiveKeywords   []string
	unproductiveKeywords []string
}

// NewRuleClassifier creates a rule classifier with the built-in keyword sets.
// Keywords match as substrings, so stems like "solicit" cover "solicito",
// "solicita" and "solicitação".
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		productiveKeywords: []string{
			"status", "solicit", "requisit", "protocolo", "ticket",
			"erro", "problema", "ajuda", "suporte", "anexo", "comprovante",
			"fatura", "pagamento", "vencimento", "boleto", "atualiza",
			"reclama", "cancelar", "contrato", "documento", "cadastro",
			"alterar", "consulta", "renovação", "restauração", "login",
		},
		unproductiveKeywords: []string{
			"obrigad", "valeu", "boa sorte", "feliz", "parabéns", "congratul",
			"ótimo", "bom dia", "boa tarde", "boa noite", "gratidão",
			"feliz natal", "feliz ano",
		},
	}
}

// Classify normalizes the text, counts keyword hits on each side, and maps
// the count difference to a category and confidence. A text with no hits at
// all defaults to Productive: treating ambiguous input as requiring action
// avoids silently ignoring real requests.
func (rc *RuleClassifier) Classify(text string) (Category, float64) {
	normalized := textproc.Normalize(text)

	productive := countHits(normalized, rc.productiveKeywords)
	unproductive := countHits(normalized, rc.unproductiveKeywords)

	if productive == 0 && unproductive == 0 {
		return Productive, BaseConfidence
	}

	if productive >= unproductive {
		return Productive, confidenceFor(productive - unproductive)
	}
	return Unproductive, confidenceFor(unproductive - productive)
}

// countHits counts how many keywords occur in the text. Each keyword counts
// at most once regardless of how often it repeats.
func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}

// confidenceFor maps a non-negative keyword-count difference to [0.6, 0.98].
// Monotonic: a larger difference never lowers confidence.
func confidenceFor(diff int) float64 {
	conf := BaseConfidence + ConfidenceStep*float64(diff)
	if conf > MaxConfidence {
		return MaxConfidence
	}
	return conf
}
