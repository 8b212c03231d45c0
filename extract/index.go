package extract

import (
	"encoding/json"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var separatorPattern = regexp.MustCompile(`[\s,]+`)

// Resolver turns index specifiers into row indices, logging the tokens it
// skips.
type Resolver struct {
	Logger *slog.Logger
}

// ResolveIndices resolves a specifier with the default logger.
func ResolveIndices(specifier any) []int {
	return Resolver{}.Resolve(specifier)
}

// Resolve returns the non-negative row indices named by specifier. An
// integer yields itself. A string is split on commas first; if no token is
// a plain number, it is split again on any run of commas and whitespace.
// Lists are resolved element by element. Nothing resolvable yields an empty
// result.
func (r Resolver) Resolve(specifier any) []int {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch v := specifier.(type) {
	case int:
		return nonNegative(int64(v), logger)
	case int32:
		return nonNegative(int64(v), logger)
	case int64:
		return nonNegative(v, logger)
	case uint:
		return []int{int(v)}
	case float64:
		return fromFloat(v, logger)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return nonNegative(n, logger)
		}
		f, err := v.Float64()
		if err != nil {
			logger.Warn("skipping index", "specifier", v.String(), "err", err)
			return []int{}
		}
		return fromFloat(f, logger)
	case string:
		return resolveString(v, logger)
	case []any:
		out := []int{}
		for _, elem := range v {
			out = append(out, r.Resolve(elem)...)
		}
		return out
	default:
		logger.Warn("skipping index of unsupported type", "specifier", specifier)
		return []int{}
	}
}

func nonNegative(n int64, logger *slog.Logger) []int {
	if n < 0 {
		logger.Warn("skipping negative index", "index", n)
		return []int{}
	}
	return []int{int(n)}
}

func fromFloat(f float64, logger *slog.Logger) []int {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		logger.Warn("skipping non-integral index", "index", f)
		return []int{}
	}
	return nonNegative(int64(f), logger)
}

func resolveString(s string, logger *slog.Logger) []int {
	indices, skipped := digitTokens(strings.Split(s, ","))
	if len(indices) == 0 {
		indices, skipped = digitTokens(separatorPattern.Split(s, -1))
	}
	for _, tok := range skipped {
		logger.Warn("skipping non-numeric index token", "token", tok, "specifier", s)
	}
	return indices
}

func digitTokens(tokens []string) (indices []int, skipped []string) {
	indices = []int{}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !allDigits(tok) {
			skipped = append(skipped, tok)
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			skipped = append(skipped, tok)
			continue
		}
		indices = append(indices, n)
	}
	return indices, skipped
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
