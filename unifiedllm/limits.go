package unifiedllm

import "strings"

// tokenLimits holds the output-token ceilings for one provider family.
type tokenLimits struct {
	Default int
	ByClass map[string]int
	Cap     int
}

// tokenTable is the per-family ceiling lookup. Family B uses one fixed
// ceiling for every call.
var tokenTable = map[Family]tokenLimits{
	FamilyOpenAI: {
		Default: 8000,
		ByClass: map[string]int{
			ClassificationShortAnswer: 256,
			ClassificationPagination:  2000,
			ClassificationExtraction:  12000,
			ClassificationMetadata:    16000,
			ClassificationAnalysis:    16000,
		},
		Cap: 32000,
	},
	FamilyGemini: {
		Default: 8192,
		Cap:     8192,
	},
	FamilyAnthropic: {
		Default: 6000,
		ByClass: map[string]int{
			ClassificationShortAnswer: 256,
			ClassificationPagination:  1500,
			ClassificationExtraction:  7000,
			ClassificationMetadata:    4000,
			ClassificationAnalysis:    8000,
		},
		Cap: 16000,
	},
}

// TokenCeiling returns the output-token ceiling for a classification.
func TokenCeiling(family Family, classification string) int {
	limits, ok := tokenTable[family]
	if !ok {
		return 4096
	}
	if n, ok := limits.ByClass[classification]; ok {
		return n
	}
	return limits.Default
}

// TokenCap returns the highest ceiling escalation may reach for a family.
func TokenCap(family Family) int {
	if limits, ok := tokenTable[family]; ok {
		return limits.Cap
	}
	return 4096
}

// IsComplex reports whether a classification gets the larger ceilings and
// token escalation on repeated validation failure.
func IsComplex(classification string) bool {
	return classification == ClassificationMetadata || classification == ClassificationAnalysis
}

var classificationKeywords = []struct {
	class    string
	keywords []string
}{
	{ClassificationPagination, []string{"pagination", "page number"}},
	{ClassificationMetadata, []string{"metadata"}},
	{ClassificationExtraction, []string{"extract", "extraction"}},
	{ClassificationShortAnswer, []string{"one word", "yes or no", "only the number", "single word"}},
}

// InferClassification applies keyword heuristics to a prompt template when a
// preset does not name its classification.
func InferClassification(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, entry := range classificationKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.class
			}
		}
	}
	return ClassificationDefault
}

// maxTokensFor resolves the ceiling a client attaches to a request.
func maxTokensFor(family Family, req JobRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return TokenCeiling(family, req.Classify())
}
