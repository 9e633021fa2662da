// Package parser turns a raw speech transcript into a structured inventory
// command. It is a pure function over a closed vocabulary: no state, no I/O.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/karandev/voice-inventory/internal/core/domain"
)

var (
	ErrUnknownIntent   = errors.New("unknown intent")
	ErrMissingQuantity = errors.New("missing quantity")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrMissingProduct  = errors.New("missing product")
)

// ParseError wraps one of the sentinel failures above together with the
// transcript that produced it, so callers can log and surface both.
type ParseError struct {
	Transcript string
	reason     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v in %q", e.reason, e.Transcript)
}

func (e *ParseError) Unwrap() error { return e.reason }

// Reason returns the failure class as a short display string.
func (e *ParseError) Reason() string { return e.reason.Error() }

func failf(reason error, transcript string) error {
	return &ParseError{Transcript: transcript, reason: reason}
}

// Parse interprets a transcript as an inventory command. Failures are values:
// the returned error is always a *ParseError wrapping one of the sentinels.
func Parse(transcript string) (domain.Command, error) {
	tokens := normalize(transcript)

	intent, pos, ok := detectIntent(tokens)
	if !ok {
		return domain.Command{}, failf(ErrUnknownIntent, transcript)
	}

	// Everything before the trigger is ignored; the rest of the phrase is
	// parsed relative to the earliest trigger only.
	rest := tokens[pos+1:]

	qty, start, consumed, found := findQuantity(rest)
	if !found {
		return domain.Command{}, failf(ErrMissingQuantity, transcript)
	}
	if qty <= 0 {
		return domain.Command{}, failf(ErrInvalidQuantity, transcript)
	}

	unit, productTokens := splitUnitProduct(rest[start+consumed:])

	product := normalizeProduct(productTokens)
	if product == "" {
		return domain.Command{}, failf(ErrMissingProduct, transcript)
	}

	return domain.Command{
		Intent:   intent,
		Quantity: qty,
		Unit:     unit,
		Product:  product,
	}, nil
}

// Examples returns valid phrasings, shown to users when a command fails to
// parse.
func Examples() []string {
	return []string{
		"Add 10 packets of milk",
		"Sold 5 soaps",
		"Delete 2 bottles of oil",
		"Add 25 apples",
		"Sold 3 bottles of water",
		"Delete 1 chocolate bar",
	}
}

// normalize lower-cases the transcript, strips punctuation and collapses
// whitespace into a token slice.
func normalize(transcript string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(transcript) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// detectIntent returns the intent of the earliest trigger token. Position in
// the phrase wins, not order in the trigger table.
func detectIntent(tokens []string) (domain.Intent, int, bool) {
	for i, tok := range tokens {
		if intent, ok := intentTriggers[tok]; ok {
			return intent, i, true
		}
	}
	return "", 0, false
}

// findQuantity locates the first quantity-bearing token: either a digit
// sequence or a spelled-out number phrase. Later numeric tokens are left
// untouched and become part of the unit/product text.
func findQuantity(tokens []string) (value, start, consumed int, found bool) {
	for i, tok := range tokens {
		if isDigits(tok) {
			n, err := strconv.Atoi(tok)
			if err != nil {
				continue
			}
			return n, i, 1, true
		}
		if n, c, ok := parseNumberPhrase(tokens[i:]); ok {
			return n, i, c, true
		}
	}
	return 0, 0, 0, false
}

func isDigits(tok string) bool {
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(tok) > 0
}

// parseNumberPhrase reads a spelled-out number starting at tokens[0],
// combining words greedily: "twenty five" = 25, "two hundred ten" = 210.
// A bare multiplier counts too: "hundred" = 100.
func parseNumberPhrase(tokens []string) (value, consumed int, ok bool) {
	total, current := 0, 0
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if tok == "and" && consumed > 0 && i+1 < len(tokens) && isNumberWord(tokens[i+1]) {
			i++
			continue
		}
		if n, isWord := numberWords[tok]; isWord {
			current += n
		} else if m, isMult := numberMultipliers[tok]; isMult {
			if current == 0 {
				current = 1
			}
			current *= m
			total += current
			current = 0
		} else {
			break
		}
		consumed = i + 1
		i++
	}
	if consumed == 0 {
		return 0, 0, false
	}
	return total + current, consumed, true
}

func isNumberWord(tok string) bool {
	if _, ok := numberWords[tok]; ok {
		return true
	}
	_, ok := numberMultipliers[tok]
	return ok
}

// splitUnitProduct divides the tokens after the quantity into an optional
// unit and the product phrase. An "of" boundary is authoritative: everything
// before it is the unit, everything after is the product. Without "of",
// leading unit-vocabulary tokens are consumed as the unit.
func splitUnitProduct(tokens []string) (unit string, product []string) {
	for i, tok := range tokens {
		if tok == "of" {
			return strings.Join(tokens[:i], " "), tokens[i+1:]
		}
	}
	j := 0
	for j < len(tokens)-1 {
		if _, ok := unitVocab[singularize(tokens[j])]; !ok {
			break
		}
		j++
	}
	return strings.Join(tokens[:j], " "), tokens[j:]
}

// normalizeProduct strips articles and singularizes the trailing noun.
func normalizeProduct(tokens []string) string {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, isArticle := articles[tok]; isArticle {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return ""
	}
	kept[len(kept)-1] = singularize(kept[len(kept)-1])
	return strings.Join(kept, " ")
}

// singularize applies a minimal plural heuristic: strip a trailing "s"
// unless the word ends in "ss", with narrow carve-outs for -ies, -ves and
// -es endings ("boxes" -> "box", "batteries" -> "battery").
func singularize(w string) string {
	switch {
	case len(w) <= 2 || !strings.HasSuffix(w, "s"):
		return w
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ves") && len(w) > 4:
		return w[:len(w)-3] + "f"
	case hasESPlural(w) && len(w) > 4:
		return w[:len(w)-2]
	default:
		return w[:len(w)-1]
	}
}

func hasESPlural(w string) bool {
	for _, suffix := range []string{"sses", "xes", "ches", "shes", "zes"} {
		if strings.HasSuffix(w, suffix) {
			return true
		}
	}
	return false
}
