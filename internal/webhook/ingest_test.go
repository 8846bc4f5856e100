package webhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/inlet/internal/log"
	"github.com/mattjoyce/inlet/internal/message"
	"github.com/mattjoyce/inlet/internal/webhook/mocks"
)

const testSecret = "testsecret"

var validBody = []byte(`{"message_id":"msg_1","from":"+1","to":"+2","ts":"2024-01-01T00:00:00Z","text":"hi"}`)

func newTestCoordinator(store MessageStore, counter Counter) *Coordinator {
	return NewCoordinator(Config{Secret: testSecret, StoreTimeout: time.Second}, store, counter, log.Discard())
}

func TestCoordinatorOutcomes(t *testing.T) {
	storageErr := errors.New("disk I/O error")

	tests := []struct {
		name       string
		body       []byte
		signature  string
		storeCalls int
		insertRes  message.InsertResult
		insertErr  error
		want       Outcome
	}{
		{
			name:       "stored",
			body:       validBody,
			signature:  ComputeSignature(validBody, testSecret),
			storeCalls: 1,
			insertRes:  message.InsertResultInserted,
			want:       OutcomeStored,
		},
		{
			name:       "deduplicated",
			body:       validBody,
			signature:  ComputeSignature(validBody, testSecret),
			storeCalls: 1,
			insertRes:  message.InsertResultDuplicate,
			want:       OutcomeDeduplicated,
		},
		{
			name:       "storage error",
			body:       validBody,
			signature:  ComputeSignature(validBody, testSecret),
			storeCalls: 1,
			insertErr:  storageErr,
			want:       OutcomeStorageError,
		},
		{
			name:      "missing signature",
			body:      validBody,
			signature: "",
			want:      OutcomeRejectedBadSignature,
		},
		{
			name:      "wrong signature on invalid payload",
			body:      []byte(`garbage`),
			signature: ComputeSignature(validBody, testSecret),
			want:      OutcomeRejectedBadSignature,
		},
		{
			name:      "signed but missing text",
			body:      []byte(`{"message_id":"m","from":"+1","to":"+2","ts":"2024-01-01T00:00:00Z"}`),
			signature: ComputeSignature([]byte(`{"message_id":"m","from":"+1","to":"+2","ts":"2024-01-01T00:00:00Z"}`), testSecret),
			want:      OutcomeRejectedBadPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockMessageStore(ctrl)
			counter := mocks.NewMockCounter(ctrl)

			store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).
				Return(tt.insertRes, tt.insertErr).
				Times(tt.storeCalls)
			counter.EXPECT().Increment(string(tt.want)).Times(1)

			res := newTestCoordinator(store, counter).Handle(context.Background(), tt.body, tt.signature)
			assert.Equal(t, tt.want, res.Outcome)

			if tt.want == OutcomeStorageError {
				assert.ErrorIs(t, res.Err, message.ErrStorageUnavailable)
				assert.ErrorIs(t, res.Err, storageErr)
			}
			if tt.want.Accepted() {
				assert.NoError(t, res.Err)
				assert.Equal(t, "msg_1", res.Message.MessageID)
			}
		})
	}
}

func TestCoordinatorPassesParsedMessageToStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)

	store.EXPECT().InsertIfAbsent(gomock.Any(), message.Message{
		MessageID: "msg_1",
		From:      "+1",
		To:        "+2",
		TS:        "2024-01-01T00:00:00Z",
		Text:      "hi",
	}).Return(message.InsertResultInserted, nil)

	res := newTestCoordinator(store, nil).Handle(context.Background(), validBody, ComputeSignature(validBody, testSecret))
	assert.Equal(t, OutcomeStored, res.Outcome)
}

func TestCoordinatorInsertSurvivesCallerCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ message.Message) (message.InsertResult, error) {
			require.NoError(t, ctx.Err(), "insert context should not inherit caller cancellation")
			deadline, ok := ctx.Deadline()
			require.True(t, ok, "insert context must be bounded")
			assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
			return message.InsertResultInserted, nil
		})

	res := newTestCoordinator(store, nil).Handle(ctx, validBody, ComputeSignature(validBody, testSecret))
	assert.Equal(t, OutcomeStored, res.Outcome)
}

func TestCoordinatorStoreTimeoutIsStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)

	store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ message.Message) (message.InsertResult, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})

	c := NewCoordinator(Config{Secret: testSecret, StoreTimeout: 20 * time.Millisecond}, store, nil, log.Discard())
	res := c.Handle(context.Background(), validBody, ComputeSignature(validBody, testSecret))

	assert.Equal(t, OutcomeStorageError, res.Outcome)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.ErrorIs(t, res.Err, message.ErrStorageUnavailable)
}

type panickingCounter struct{}

func (panickingCounter) Increment(string) { panic("metrics backend gone") }

func TestCoordinatorCounterPanicDoesNotFailRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).Return(message.InsertResultInserted, nil)

	var res Result
	assert.NotPanics(t, func() {
		res = newTestCoordinator(store, panickingCounter{}).Handle(context.Background(), validBody, ComputeSignature(validBody, testSecret))
	})
	assert.Equal(t, OutcomeStored, res.Outcome)
}

func TestOutcomeAccepted(t *testing.T) {
	assert.True(t, OutcomeStored.Accepted())
	assert.True(t, OutcomeDeduplicated.Accepted())
	assert.False(t, OutcomeRejectedBadSignature.Accepted())
	assert.False(t, OutcomeRejectedBadPayload.Accepted())
	assert.False(t, OutcomeStorageError.Accepted())
}
