package domain

// CooldownRule is operator-maintained per-category send policy,
// read-only to the pipeline at runtime.
type CooldownRule struct {
	Category        string
	CooldownHours   int
	MaxPerDay       int // 0 means no daily cap
	AllowDuplicates bool
}
