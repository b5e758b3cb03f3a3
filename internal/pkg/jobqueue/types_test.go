package jobqueue

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PayButton/paybutton-server/internal/pkg/dispatch"
)

func TestPaymentBatchPayloadRoundTrip(t *testing.T) {
	payload := PaymentBatchJobPayload{
		NetworkID: 1,
		Batch: []dispatch.BroadcastTxData{{
			Address: "ecash:qq1",
			Txs: []dispatch.Payment{{
				Hash:      "tx1",
				Amount:    decimal.NewFromFloat(12.5),
				Timestamp: 1664593200,
				Confirmed: true,
			}},
		}},
	}

	decoded, err := PaymentBatchJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(1), decoded.NetworkID)
	require.Len(t, decoded.Batch, 1)
	assert.Equal(t, "ecash:qq1", decoded.Batch[0].Address)
	require.Len(t, decoded.Batch[0].Txs, 1)
	assert.Equal(t, "tx1", decoded.Batch[0].Txs[0].Hash)
	assert.True(t, payload.Batch[0].Txs[0].Amount.Equal(decoded.Batch[0].Txs[0].Amount))
}

func TestJobStatusTransitions(t *testing.T) {
	job := &Job{ID: "j1", Type: JobTypePaymentBatch, Status: JobStatusPending, CreatedAt: time.Now()}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("dispatch failed")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "dispatch failed", job.ErrorMsg)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
}
