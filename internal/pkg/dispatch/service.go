package dispatch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2/log"

	"github.com/PayButton/paybutton-server/app/models"
	"github.com/PayButton/paybutton-server/internal/pkg/mail"
)

// Dispatcher fans a batch of observed payments out to the triggers configured
// on the receiving addresses. Per-delivery failures are isolated and logged;
// only resolution and commit failures surface to the caller.
type Dispatcher struct {
	repo   Repository
	mailer mail.Mailer
	prices PriceSource
	stats  StatsRecorder
	client *http.Client
	cfg    Config
}

// NewDispatcher wires a dispatcher. prices and stats may be nil; prices then
// falls back to raw ticker amounts and stats recording is skipped.
func NewDispatcher(repo Repository, mailer mail.Mailer, prices PriceSource, stats StatsRecorder, cfg Config) *Dispatcher {
	cfg = cfg.withDefaults()
	if prices == nil {
		prices = TickerPrices{}
	}
	return &Dispatcher{
		repo:   repo,
		mailer: mailer,
		prices: prices,
		stats:  stats,
		client: &http.Client{Timeout: cfg.PostTimeout},
		cfg:    cfg,
	}
}

type addressPayment struct {
	address string
	payment Payment
}

// DispatchBatch processes one batch of payments grouped by address: resolve
// triggers, admit against the per-batch credit reservation, run both channel
// pools, then commit logs and clamped debits in one transaction.
func (d *Dispatcher) DispatchBatch(ctx context.Context, batch []BroadcastTxData, networkID uint) error {
	if d.cfg.Disabled {
		log.Infof("[Dispatch] Trigger dispatch disabled, skipping batch (%d address groups)", len(batch))
		return nil
	}

	pairs := flatten(batch)
	if len(pairs) == 0 {
		return nil
	}

	triggers, err := d.repo.ResolveTriggers(distinctAddresses(pairs))
	if err != nil {
		return fmt.Errorf("trigger resolution failed: %w", err)
	}

	ticker := models.NetworkTicker(networkID)
	book := newCreditBook()
	po := &poster{client: d.client, secret: d.cfg.SigningSecret}
	em := &emailer{mailer: d.mailer}

	var postTasks, emailTasks []task
	var skipLogs []models.TriggerLog
	skipped := map[models.TriggerChannel]int{}

	for _, pair := range pairs {
		for _, rt := range triggers[pair.address] {
			rt := rt
			pair := pair
			ch := rt.Trigger.Channel()

			if !book.reserve(rt, ch) {
				skipLogs = append(skipLogs, d.outOfCreditsLog(rt, ch, pair.payment))
				skipped[ch]++
				continue
			}

			run := func(ctx context.Context) outcome {
				params, perr := d.buildParameters(rt, pair, ticker, networkID)
				if perr != nil {
					return failureOutcome(rt, ch, errNameRender, perr,
						map[string]interface{}{"txId": pair.payment.Hash})
				}
				if ch == models.ChannelEmail {
					return em.deliver(ctx, rt, params)
				}
				return po.deliver(ctx, rt, params)
			}
			if ch == models.ChannelEmail {
				emailTasks = append(emailTasks, run)
			} else {
				postTasks = append(postTasks, run)
			}
		}
	}

	// The two channels run as separate bounded pools so a burst of webhook
	// failures cannot starve email delivery or vice versa.
	outcomes := runPool(ctx, d.cfg.PostPoolSize, postTasks)
	outcomes = append(outcomes, runPool(ctx, d.cfg.EmailPoolSize, emailTasks)...)

	logs := skipLogs
	debits := make(map[uint]AcceptedCounts)
	for _, o := range outcomes {
		logs = append(logs, o.log)
		if !o.accepted {
			continue
		}
		counts := debits[o.userID]
		if o.channel == models.ChannelEmail {
			counts.Email++
		} else {
			counts.Post++
		}
		debits[o.userID] = counts
	}

	if d.stats != nil {
		d.stats.AddScheduled(models.ChannelPost, len(postTasks))
		d.stats.AddScheduled(models.ChannelEmail, len(emailTasks))
		d.stats.AddSkipped(models.ChannelPost, skipped[models.ChannelPost])
		d.stats.AddSkipped(models.ChannelEmail, skipped[models.ChannelEmail])
	}

	if err := d.repo.CommitBatch(logs, debits); err != nil {
		return fmt.Errorf("batch commit failed: %w", err)
	}

	log.Infof("[Dispatch] Batch done: %d pairs, %d posts scheduled (%d skipped), %d emails scheduled (%d skipped)",
		len(pairs), len(postTasks), skipped[models.ChannelPost], len(emailTasks), skipped[models.ChannelEmail])
	return nil
}

func (d *Dispatcher) buildParameters(rt ResolvedTrigger, pair addressPayment, ticker string, networkID uint) (PostParameters, error) {
	p := pair.payment
	amount, err := d.prices.FormatQuote(p.Amount, networkID, rt.PreferredCurrency, p.Timestamp)
	if err != nil {
		return PostParameters{}, fmt.Errorf("failed to format amount for tx %s: %w", p.Hash, err)
	}
	inputs := p.InputAddresses
	if inputs == nil {
		inputs = []string{}
	}
	return PostParameters{
		Amount:         amount,
		Currency:       ticker,
		TxID:           p.Hash,
		ButtonName:     rt.ButtonName,
		Address:        pair.address,
		Timestamp:      p.Timestamp,
		OpReturn:       OpReturn{Message: p.Message, RawMessage: p.RawMessage, PaymentID: p.PaymentID},
		InputAddresses: inputs,
	}, nil
}

func (d *Dispatcher) outOfCreditsLog(rt ResolvedTrigger, ch models.TriggerChannel, p Payment) models.TriggerLog {
	noun := "post"
	if ch == models.ChannelEmail {
		noun = "email"
	}
	return models.TriggerLog{
		TriggerID:  rt.Trigger.ID,
		ActionType: ch,
		IsError:    true,
		Data: errorData(errNameOutOfCredits,
			fmt.Errorf("user %d has no remaining %s credits", rt.UserID, noun),
			map[string]interface{}{"txId": p.Hash}),
	}
}

func flatten(batch []BroadcastTxData) []addressPayment {
	var pairs []addressPayment
	for _, group := range batch {
		for _, tx := range group.Txs {
			pairs = append(pairs, addressPayment{address: group.Address, payment: tx})
		}
	}
	return pairs
}

func distinctAddresses(pairs []addressPayment) []string {
	seen := make(map[string]struct{}, len(pairs))
	var out []string
	for _, pair := range pairs {
		if _, ok := seen[pair.address]; ok {
			continue
		}
		seen[pair.address] = struct{}{}
		out = append(out, pair.address)
	}
	return out
}
