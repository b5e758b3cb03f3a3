package dispatch

import "github.com/PayButton/paybutton-server/app/models"

// creditBook tracks optimistic per-user credit reservations for one batch.
// Balances are seeded lazily from the resolver snapshot the first time a user
// shows up in the batch and are never re-read afterwards. Reservations are
// advisory: they stop a single large batch from over-scheduling, while the
// durable clamp happens at commit time against the live balance.
type creditBook struct {
	post  map[uint]int
	email map[uint]int
}

func newCreditBook() *creditBook {
	return &creditBook{
		post:  make(map[uint]int),
		email: make(map[uint]int),
	}
}

// reserve admits one delivery on the given channel, decrementing the user's
// in-memory balance. It returns false once the balance is exhausted.
func (b *creditBook) reserve(rt ResolvedTrigger, ch models.TriggerChannel) bool {
	balances := b.post
	snapshot := rt.PostCredits
	if ch == models.ChannelEmail {
		balances = b.email
		snapshot = rt.EmailCredits
	}

	if _, ok := balances[rt.UserID]; !ok {
		balances[rt.UserID] = snapshot
	}
	if balances[rt.UserID] <= 0 {
		return false
	}
	balances[rt.UserID]--
	return true
}
