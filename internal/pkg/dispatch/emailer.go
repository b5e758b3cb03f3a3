package dispatch

import (
	"context"
	"fmt"

	"github.com/PayButton/paybutton-server/app/models"
	"github.com/PayButton/paybutton-server/internal/pkg/mail"
)

// emailer delivers the fixed payment-notification email. The delivery is
// credit-worthy only when the relay accepts at least one of the trigger's
// configured recipients.
type emailer struct {
	mailer mail.Mailer
}

func (em *emailer) deliver(ctx context.Context, rt ResolvedTrigger, params PostParameters) outcome {
	recipients := rt.Trigger.Recipients()
	if len(recipients) == 0 {
		return failureOutcome(rt, models.ChannelEmail, errNameEmailFailed,
			fmt.Errorf("trigger %d has no recipients configured", rt.Trigger.ID), nil)
	}

	result, err := em.mailer.Send(ctx, recipients, mailSubject, renderEmailBody(params))
	if err != nil {
		return failureOutcome(rt, models.ChannelEmail, errNameEmailFailed, err,
			map[string]interface{}{"recipients": recipients, "txId": params.TxID})
	}

	accepted := len(result.Accepted) > 0
	return outcome{
		userID:   rt.UserID,
		channel:  models.ChannelEmail,
		accepted: accepted,
		log: models.TriggerLog{
			TriggerID:  rt.Trigger.ID,
			ActionType: models.ChannelEmail,
			IsError:    !accepted,
			Data: marshalData(map[string]interface{}{
				"recipients": recipients,
				"accepted":   result.Accepted,
				"rejected":   result.Rejected,
				"subject":    mailSubject,
				"txId":       params.TxID,
			}),
		},
	}
}
