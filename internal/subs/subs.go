// Package subs verifies channel subscriptions against the messaging
// gateway. Any uncertainty counts against the user: a failed membership
// query is treated as not subscribed.
package subs

import (
	"context"

	"go.uber.org/zap"
)

// MembershipChecker reports a user's membership status in a channel.
// Implemented by the Telegram gateway adapter.
type MembershipChecker interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (string, error)
}

// Result is the outcome of a subscription check. Missing preserves the
// order of the input channel list.
type Result struct {
	Subscribed bool
	Missing    []string
}

// Subscriber reports whether a membership status counts as subscribed.
func Subscriber(status string) bool {
	switch status {
	case "member", "administrator", "creator":
		return true
	}
	return false
}

// Administrator reports whether a membership status carries admin rights
// in the channel.
func Administrator(status string) bool {
	return status == "administrator" || status == "creator"
}

// Verifier checks users against the required-channel list.
type Verifier struct {
	gw  MembershipChecker
	log *zap.Logger
}

// NewVerifier builds a Verifier over the given gateway.
func NewVerifier(gw MembershipChecker, log *zap.Logger) *Verifier {
	return &Verifier{gw: gw, log: log}
}

// Check classifies a user against the channel list. An empty list is
// vacuously subscribed.
func (v *Verifier) Check(ctx context.Context, userID int64, channels []string) Result {
	if len(channels) == 0 {
		return Result{Subscribed: true}
	}

	var missing []string
	for _, channel := range channels {
		status, err := v.gw.MemberStatus(ctx, channel, userID)
		if err != nil {
			// Fail closed: an unanswerable query counts as not subscribed.
			v.log.Warn("membership query failed",
				zap.String("channel", channel),
				zap.Int64("user_id", userID),
				zap.Error(err))
			missing = append(missing, channel)
			continue
		}
		if !Subscriber(status) {
			missing = append(missing, channel)
		}
	}
	return Result{Subscribed: len(missing) == 0, Missing: missing}
}
