package services

import (
	"context"
	"testing"
	"time"

	"github.com/address-resolver/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueue(t *testing.T, q ReviewQueue, raw string, createdAt time.Time) *models.AddressReview {
	t.Helper()
	r := models.NewAddressReview(models.AddressResult{Raw: raw, Status: models.StatusWarning}, nil)
	r.CreatedAt = createdAt
	require.NoError(t, q.Enqueue(context.Background(), r))
	require.False(t, r.ID.IsZero())
	return r
}

func TestMemoryReviewQueue_ListNewestFirst(t *testing.T) {
	q := NewMemoryReviewQueue()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	enqueue(t, q, "a", base)
	enqueue(t, q, "b", base.Add(time.Minute))
	enqueue(t, q, "c", base.Add(2*time.Minute))

	got, total, err := q.List(context.Background(), "", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].RawAddress)
	assert.Equal(t, "b", got[1].RawAddress)

	got, _, err = q.List(context.Background(), "", 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].RawAddress)

	got, total, err = q.List(context.Background(), "", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int64(3), total)
}

func TestMemoryReviewQueue_ApproveReject(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryReviewQueue()
	first := enqueue(t, q, "a", time.Now())
	second := enqueue(t, q, "b", time.Now())

	approved, err := q.Approve(ctx, first.ID.Hex(), "reviewer-1", "00001", "đúng")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, approved.Status)
	assert.Equal(t, "00001", approved.SelectedCode)
	assert.Equal(t, "reviewer-1", approved.ReviewerID)
	require.NotNil(t, approved.ReviewedAt)

	_, err = q.Reject(ctx, first.ID.Hex(), "reviewer-2", "")
	assert.ErrorIs(t, err, ErrReviewClosed)

	rejected, err := q.Reject(ctx, second.ID.Hex(), "reviewer-2", "sai tỉnh")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusRejected, rejected.Status)

	pending, total, err := q.List(ctx, models.ReviewStatusPending, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, pending)
}

func TestMemoryReviewQueue_NotFound(t *testing.T) {
	q := NewMemoryReviewQueue()

	_, err := q.Approve(context.Background(), "not-an-id", "r", "", "")
	assert.ErrorIs(t, err, ErrReviewNotFound)

	_, err = q.Reject(context.Background(), "65a000000000000000000000", "r", "")
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestClampPage(t *testing.T) {
	limit, offset := clampPage(0, -5)
	assert.Equal(t, 50, limit)
	assert.Zero(t, offset)

	limit, _ = clampPage(500, 0)
	assert.Equal(t, 50, limit)

	limit, offset = clampPage(20, 40)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 40, offset)
}
