package bump

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrNoBumpsAvailable    = errors.New("no bumps left in the pool")
	ErrPaidBumpNotEligible = errors.New("user already received a paid bump this stream")
	ErrUnknownBumpCategory = errors.New("unknown bump category")
)

// DefaultPoolSize is the per-stream-day cap for each free bump pool.
const DefaultPoolSize = 3

// Placement tells the caller where the bumped request goes. A nil
// Position stacks the request behind the current bumped block.
type Placement struct {
	Category Category
	User     string
	Position *int
}

// Ledger tracks free bump pools and paid grants for one stream day.
// Free pools are capped counters restored only by Reset; paid grants
// are append-only and expire with the day.
type Ledger struct {
	BeanRemaining          int
	ChannelPointsRemaining int
	BeanMax                int
	ChannelPointsMax       int
	PaidGrants             map[string]Category // user -> granting category
}

// NewLedger creates a ledger with both free pools at their maximum.
func NewLedger(beanMax, channelPointsMax int) *Ledger {
	if beanMax < 0 {
		beanMax = 0
	}
	if channelPointsMax < 0 {
		channelPointsMax = 0
	}
	return &Ledger{
		BeanRemaining:          beanMax,
		ChannelPointsRemaining: channelPointsMax,
		BeanMax:                beanMax,
		ChannelPointsMax:       channelPointsMax,
		PaidGrants:             make(map[string]Category),
	}
}

// CheckEligibility reports whether the user may redeem a bump of the
// given category right now. Free bumps are pool-bounded with no
// per-user limit; paid bumps are granted at most once per user per
// stream day across all paid categories.
func (l *Ledger) CheckEligibility(user string, category Category) error {
	switch {
	case category.IsFree():
		if l.poolRemaining(category) <= 0 {
			return errors.Wrapf(ErrNoBumpsAvailable, "category %s", category)
		}
		return nil
	case category.IsPaid():
		if _, ok := l.PaidGrants[user]; ok {
			return errors.Wrapf(ErrPaidBumpNotEligible, "user %s", user)
		}
		return nil
	}
	return errors.Wrapf(ErrUnknownBumpCategory, "category %q", category)
}

// Redeem checks eligibility, mutates the ledger, and returns the queue
// placement instruction for the caller to apply.
func (l *Ledger) Redeem(user string, category Category) (Placement, error) {
	if err := l.CheckEligibility(user, category); err != nil {
		return Placement{}, err
	}
	if category.IsFree() {
		l.decrementPool(category)
	} else {
		if l.PaidGrants == nil {
			l.PaidGrants = make(map[string]Category)
		}
		l.PaidGrants[user] = category
	}
	return Placement{Category: category, User: user}, nil
}

// Reset restores both free pools to their configured maxima. Paid
// grants are day-scoped and survive the reset.
func (l *Ledger) Reset() {
	l.BeanRemaining = l.BeanMax
	l.ChannelPointsRemaining = l.ChannelPointsMax
}

func (l *Ledger) poolRemaining(category Category) int {
	if category == CategoryBean {
		return l.BeanRemaining
	}
	return l.ChannelPointsRemaining
}

func (l *Ledger) decrementPool(category Category) {
	if category == CategoryBean {
		if l.BeanRemaining > 0 {
			l.BeanRemaining--
		}
		return
	}
	if l.ChannelPointsRemaining > 0 {
		l.ChannelPointsRemaining--
	}
}
