package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PayButton/paybutton-server/app/models"
)

// Error names recorded in trigger log payloads.
const (
	errNameOutOfCredits = "OutOfCreditsError"
	errNameRender       = "TemplateRenderError"
	errNamePostFailed   = "PostFailedError"
	errNameEmailFailed  = "EmailFailedError"
)

// task is one deferred delivery bound to a (trigger, payment) pair.
type task func(ctx context.Context) outcome

// outcome is what every delivery task produces: exactly one log row, plus
// the classification that decides whether a credit is debited.
type outcome struct {
	log      models.TriggerLog
	userID   uint
	channel  models.TriggerChannel
	accepted bool
}

func marshalData(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"errorName":"LogEncodingError","errorMessage":%q}`, err.Error())
	}
	return string(b)
}

func errorData(name string, err error, extra map[string]interface{}) string {
	m := map[string]interface{}{
		"errorName":    name,
		"errorMessage": err.Error(),
	}
	for k, v := range extra {
		m[k] = v
	}
	return marshalData(m)
}

// failureOutcome builds a non-credited outcome carrying an error log row.
func failureOutcome(rt ResolvedTrigger, ch models.TriggerChannel, name string, err error, extra map[string]interface{}) outcome {
	return outcome{
		userID:  rt.UserID,
		channel: ch,
		log: models.TriggerLog{
			TriggerID:  rt.Trigger.ID,
			ActionType: ch,
			IsError:    true,
			Data:       errorData(name, err, extra),
		},
	}
}
