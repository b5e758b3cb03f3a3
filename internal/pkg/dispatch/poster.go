package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/PayButton/paybutton-server/app/models"
)

// maxResponseBytes bounds how much of a webhook response is kept in the log.
const maxResponseBytes = 4096

// poster delivers a rendered trigger payload via HTTP POST. A 2xx response
// is credit-worthy; everything else (transport error, timeout, non-2xx) is a
// logged failure. Errors never escape deliver.
type poster struct {
	client *http.Client
	secret string
}

func (po *poster) deliver(ctx context.Context, rt ResolvedTrigger, params PostParameters) outcome {
	extra := map[string]interface{}{"postURL": rt.Trigger.PostURL, "txId": params.TxID}

	payload, err := renderPostTemplate(rt.Trigger.PostData, params, po.secret)
	if err != nil {
		return failureOutcome(rt, models.ChannelPost, errNameRender, err, extra)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rt.Trigger.PostURL, strings.NewReader(payload))
	if err != nil {
		return failureOutcome(rt, models.ChannelPost, errNamePostFailed, err, extra)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := po.client.Do(req)
	if err != nil {
		return failureOutcome(rt, models.ChannelPost, errNamePostFailed, err, extra)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	accepted := resp.StatusCode >= 200 && resp.StatusCode < 300

	return outcome{
		userID:   rt.UserID,
		channel:  models.ChannelPost,
		accepted: accepted,
		log: models.TriggerLog{
			TriggerID:  rt.Trigger.ID,
			ActionType: models.ChannelPost,
			IsError:    !accepted,
			Data: marshalData(map[string]interface{}{
				"postURL":            rt.Trigger.PostURL,
				"postedData":         json.RawMessage(payload),
				"responseStatusCode": resp.StatusCode,
				"responseBody":       string(body),
			}),
		},
	}
}
