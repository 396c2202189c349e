package analytics

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type scriptedInserter struct {
	errs   []error
	calls  int
	tables []string
}

func (s *scriptedInserter) InsertRows(_ context.Context, table string, rows []any) error {
	s.calls++
	s.tables = append(s.tables, table)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaximumBackoff: 2 * time.Millisecond}

func TestWriterRetriesTransientErrors(t *testing.T) {
	inserter := &scriptedInserter{errs: []error{&googleapi.Error{Code: http.StatusServiceUnavailable}}}
	writer, err := NewWriter(inserter, " payment_state_events ", fastRetry)
	require.NoError(t, err)

	require.NoError(t, writer.Insert(context.Background(), PaymentStateRow{EventID: "evt-1"}))
	assert.Equal(t, 2, inserter.calls)
	assert.Equal(t, []string{"payment_state_events", "payment_state_events"}, inserter.tables)
}

func TestWriterStopsOnPermanentErrors(t *testing.T) {
	inserter := &scriptedInserter{errs: []error{&googleapi.Error{Code: http.StatusBadRequest}}}
	writer, err := NewWriter(inserter, "t", fastRetry)
	require.NoError(t, err)

	assert.Error(t, writer.Insert(context.Background(), PaymentStateRow{}))
	assert.Equal(t, 1, inserter.calls)
}

func TestWriterGivesUpAfterMaxAttempts(t *testing.T) {
	unavailable := status.Error(codes.Unavailable, "try later")
	inserter := &scriptedInserter{errs: []error{unavailable, unavailable, unavailable, unavailable}}
	writer, err := NewWriter(inserter, "t", fastRetry)
	require.NoError(t, err)

	assert.Error(t, writer.Insert(context.Background(), PaymentStateRow{}))
	assert.Equal(t, 3, inserter.calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(errors.New("plain")))
	assert.True(t, isRetryable(cbigquery.PutMultiError{
		{Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusInternalServerError}}},
	}))
	assert.False(t, isRetryable(cbigquery.PutMultiError{
		{Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusInternalServerError}}},
		{Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusBadRequest}}},
	}))
	assert.False(t, isRetryable(status.Error(codes.InvalidArgument, "bad row")))
}

func TestNewWriterValidates(t *testing.T) {
	_, err := NewWriter(nil, "t", RetryPolicy{})
	assert.Error(t, err)
	_, err = NewWriter(&scriptedInserter{}, " ", RetryPolicy{})
	assert.Error(t, err)

	writer, err := NewWriter(&scriptedInserter{}, "t", RetryPolicy{})
	require.NoError(t, err)
	assert.Equal(t, defaultMaxAttempts, writer.retry.MaxAttempts)
	assert.Equal(t, defaultMaximumBackoff, writer.retry.MaximumBackoff)
}
