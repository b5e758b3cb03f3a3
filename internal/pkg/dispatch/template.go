package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PostParameters is the variable surface available to trigger templates.
// Amount is already formatted in the owner's preferred quote currency.
type PostParameters struct {
	Amount         string
	Currency       string
	TxID           string
	ButtonName     string
	Address        string
	Timestamp      int64
	OpReturn       OpReturn
	InputAddresses []string
}

// renderPostTemplate expands the trigger's stored JSON template. Tokens are
// replaced with JSON-encoded values so a template like
//
//	{"amount": <amount>, "txId": <txId>, "opReturn": <opReturn>}
//
// stays valid JSON after expansion. The result must parse as JSON; anything
// else is a rendering failure.
func renderPostTemplate(template string, p PostParameters, secret string) (string, error) {
	values, err := tokenValues(p, secret)
	if err != nil {
		return "", err
	}

	rendered := template
	for token, value := range values {
		rendered = strings.ReplaceAll(rendered, token, value)
	}

	if !json.Valid([]byte(rendered)) {
		return "", fmt.Errorf("rendered post data is not valid JSON")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(rendered)); err != nil {
		return "", fmt.Errorf("failed to compact rendered post data: %w", err)
	}
	return compact.String(), nil
}

func tokenValues(p PostParameters, secret string) (map[string]string, error) {
	inputs := p.InputAddresses
	if inputs == nil {
		inputs = []string{}
	}

	values := map[string]string{
		"<amount>":    p.Amount,
		"<timestamp>": strconv.FormatInt(p.Timestamp, 10),
	}
	strTokens := map[string]string{
		"<currency>":   p.Currency,
		"<txId>":       p.TxID,
		"<buttonName>": p.ButtonName,
		"<address>":    p.Address,
		"<signature>":  SignPayment(secret, p),
	}
	for token, s := range strTokens {
		encoded, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", token, err)
		}
		values[token] = string(encoded)
	}

	opReturn, err := json.Marshal(p.OpReturn)
	if err != nil {
		return nil, fmt.Errorf("failed to encode <opReturn>: %w", err)
	}
	values["<opReturn>"] = string(opReturn)

	inputList, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode <inputAddresses>: %w", err)
	}
	values["<inputAddresses>"] = string(inputList)

	return values, nil
}

const mailSubject = "New Payment Received"

// renderEmailBody produces the fixed payment-notification email.
func renderEmailBody(p PostParameters) string {
	return fmt.Sprintf(`
  <h1>New Payment Received</h1>
  <ul>
    <li>Amount: %s</li>
    <li>Currency: %s</li>
    <li>Timestamp: %s</li>
    <li>Transaction ID: %s</li>
    <li>Button Name: %s</li>
    <li>Address: %s</li>
    <li>Message: %s</li>
    <li>Payment ID: %s</li>
  </ul>
  `,
		p.Amount,
		p.Currency,
		time.Unix(p.Timestamp, 0).UTC().Format(time.RFC1123),
		p.TxID,
		p.ButtonName,
		p.Address,
		p.OpReturn.Message,
		p.OpReturn.PaymentID,
	)
}
