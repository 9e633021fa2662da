package domain

type Intent string

const (
	IntentAdd    Intent = "add"
	IntentSell   Intent = "sell"
	IntentDelete Intent = "delete"
)

// Command is a fully parsed inventory mutation. The parser only constructs
// one when every field is valid: Quantity > 0 and Product non-empty.
type Command struct {
	Intent   Intent
	Quantity int
	Unit     string // optional, as spoken ("packets", "bottles")
	Product  string // normalized: lower-cased, singularized, trimmed
}
