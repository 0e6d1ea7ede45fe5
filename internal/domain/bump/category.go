// Package bump provides the bump-eligibility ledger.
package bump

import "strings"

// Category identifies how a bump is funded.
type Category string

const (
	CategoryBean          Category = "BEAN"
	CategoryChannelPoints Category = "CHANNEL_POINTS"
	CategorySub           Category = "SUB"
	CategoryGiftedSub     Category = "GIFTED_SUB"
	CategoryBits          Category = "BITS"
	CategoryRaid          Category = "RAID"
)

// ParseCategory parses a category name, case-insensitively.
// Underscores are optional, so the chat-facing spellings "giftedsub"
// and "channelpoints" parse too.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "BEAN":
		return CategoryBean, true
	case "CHANNELPOINTS":
		return CategoryChannelPoints, true
	case "SUB":
		return CategorySub, true
	case "GIFTEDSUB":
		return CategoryGiftedSub, true
	case "BITS":
		return CategoryBits, true
	case "RAID":
		return CategoryRaid, true
	}
	return "", false
}

// IsFree reports whether the category draws from a capped pool.
func (c Category) IsFree() bool {
	return c == CategoryBean || c == CategoryChannelPoints
}

// IsPaid reports whether the category is granted by a platform event.
func (c Category) IsPaid() bool {
	switch c {
	case CategorySub, CategoryGiftedSub, CategoryBits, CategoryRaid:
		return true
	}
	return false
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}
