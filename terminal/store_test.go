package terminal

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/jaortiz16/terminal-pos/gateway/models"
	"github.com/jaortiz16/terminal-pos/internal/card"
)

type fakeAuthorizer struct {
	mu          sync.Mutex
	calls       int
	lastRequest models.AuthorizationRequest
	authorizeFn func(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error)
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastRequest = req
	fn := f.authorizeFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &models.AuthorizationResponse{
		AuthorizationRequest: req,
		ID:                   "TX-test",
		Status:               models.StatusApproved,
		AuthorizationCode:    "123456",
	}, nil
}

func (f *fakeAuthorizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestStore(client Authorizer, opts ...Option) *Store {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{
		WithLogger(logger),
		WithSuccessResetDelay(20 * time.Millisecond),
		WithFailureResetDelay(20 * time.Millisecond),
	}, opts...)
	return NewStore(client, opts...)
}

func fillValidDraft(s *Store) {
	s.SetAmount(10)
	s.SetCardNumber("4111 1111 1111 1111")
	s.SetCardholderName("JOHN DOE")
	s.SetCVV("123")
	s.SetExpiry("1230")
}

func TestSetCardNumberDetectsBrand(t *testing.T) {
	s := newTestStore(&fakeAuthorizer{})

	s.SetCardNumber("3782 822463 10005")
	d := s.Draft()
	require.Equal(t, "378282246310005", d.CardNumber)
	require.Equal(t, card.BrandAmex, d.Brand)
}

func TestModalitySwitchContract(t *testing.T) {
	s := newTestStore(&fakeAuthorizer{})

	s.SetModality(ModalityDeferred)
	d := s.Draft()
	require.Equal(t, DefaultInstallments, d.Installments)
	require.Zero(t, d.RecurrenceDays)

	s.SetModality(ModalityRecurring)
	d = s.Draft()
	require.Zero(t, d.Installments)
	require.Equal(t, DefaultRecurrenceDays, d.RecurrenceDays)

	s.SetModality(ModalitySingle)
	d = s.Draft()
	require.Zero(t, d.Installments)
	require.Zero(t, d.RecurrenceDays)
}

func TestModalitySwitchIdempotent(t *testing.T) {
	s := newTestStore(&fakeAuthorizer{})

	s.SetModality(ModalityDeferred)
	s.SetInstallments(9)
	before := s.Draft()

	// re-selecting the active modality must not drift any field
	s.SetModality(ModalityDeferred)
	require.Equal(t, before, s.Draft())
}

func TestModalityFieldsOnlyApplyToActiveModality(t *testing.T) {
	s := newTestStore(&fakeAuthorizer{})

	s.SetRecurrenceDays(90) // modality is single, must be ignored
	require.Zero(t, s.Draft().RecurrenceDays)

	s.SetModality(ModalityDeferred)
	s.SetRecurrenceDays(90)
	require.Zero(t, s.Draft().RecurrenceDays)
	s.SetInstallments(12)
	require.Equal(t, 12, s.Draft().Installments)
}

func TestSubmitBlocksInvalidDraftBeforeNetwork(t *testing.T) {
	fake := &fakeAuthorizer{}
	s := newTestStore(fake)

	fillValidDraft(s)
	s.SetAmount(0)

	err := s.Submit(context.Background())

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "monto")
	require.Zero(t, fake.callCount(), "validation failures must never reach the network")
	require.Equal(t, StateIdle, s.Status().State)
}

func TestSubmitBlocksExpiredCard(t *testing.T) {
	fake := &fakeAuthorizer{}
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(fake, WithNow(func() time.Time { return now }))

	fillValidDraft(s)
	s.SetExpiry("0120")

	err := s.Submit(context.Background())

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Equal(t, "La tarjeta ha caducado", verrs["fechaExpiracion"])
	require.Zero(t, fake.callCount())
}

func TestSubmitSuccessThenAutoReset(t *testing.T) {
	fake := &fakeAuthorizer{}
	s := newTestStore(fake)
	fillValidDraft(s)

	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, StateSucceeded, s.Status().State)
	require.Equal(t, 1, fake.callCount())

	req := fake.lastRequest
	require.Equal(t, models.ModeSingle, req.Mode)
	require.Zero(t, req.Installments)
	require.Zero(t, req.IntervalDays)

	require.Eventually(t, func() bool {
		return s.Status().State == StateIdle
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, NewDraft(), s.Draft(), "auto-reset must restore the defaults")
}

func TestSubmitFailureUsesServerMessage(t *testing.T) {
	fake := &fakeAuthorizer{
		authorizeFn: func(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
			return nil, &GatewayError{Kind: ErrKindInvalidData, StatusCode: 400, Message: "X"}
		},
	}
	s := newTestStore(fake, WithFailureResetDelay(time.Minute))
	fillValidDraft(s)

	err := s.Submit(context.Background())
	require.Error(t, err)

	status := s.Status()
	require.Equal(t, StateFailed, status.State)
	require.Equal(t, "X", status.Message, "a body message overrides the status-code mapping")
}

func TestSubmitFailureMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"connectivity", &GatewayError{Kind: ErrKindConnectivity}, msgConnectivity},
		{"invalid data", &GatewayError{Kind: ErrKindInvalidData, StatusCode: 400}, msgInvalidData},
		{"terminal not found", &GatewayError{Kind: ErrKindNotFound, StatusCode: 404}, msgNotFound},
		{"gateway error", &GatewayError{Kind: ErrKindGateway, StatusCode: 500}, msgGateway},
		{"unknown", &GatewayError{Kind: ErrKindUnknown, StatusCode: 418}, msgUnknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fake := &fakeAuthorizer{
				authorizeFn: func(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
					return nil, c.err
				},
			}
			s := newTestStore(fake, WithFailureResetDelay(time.Minute))
			fillValidDraft(s)

			require.Error(t, s.Submit(context.Background()))

			status := s.Status()
			require.Equal(t, StateFailed, status.State)
			require.Equal(t, c.want, status.Message)
		})
	}
}

func TestSubmitFailureThenAutoReset(t *testing.T) {
	fake := &fakeAuthorizer{
		authorizeFn: func(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
			return nil, &GatewayError{Kind: ErrKindConnectivity}
		},
	}
	s := newTestStore(fake)
	fillValidDraft(s)

	require.Error(t, s.Submit(context.Background()))
	require.Equal(t, StateFailed, s.Status().State)

	require.Eventually(t, func() bool {
		return s.Status().State == StateIdle
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, NewDraft(), s.Draft())
}

func TestFailedStatusStillClearsAfterBlockedSubmit(t *testing.T) {
	fake := &fakeAuthorizer{
		authorizeFn: func(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
			return nil, &GatewayError{Kind: ErrKindConnectivity}
		},
	}
	s := newTestStore(fake, WithFailureResetDelay(50*time.Millisecond))
	fillValidDraft(s)

	require.Error(t, s.Submit(context.Background()))
	require.Equal(t, StateFailed, s.Status().State)

	// a validation-blocked submit must not disarm the pending auto-reset
	s.SetAmount(0)
	var verrs ValidationErrors
	require.ErrorAs(t, s.Submit(context.Background()), &verrs)
	require.Equal(t, StateFailed, s.Status().State)

	require.Eventually(t, func() bool {
		return s.Status().State == StateIdle
	}, time.Second, 5*time.Millisecond, "the displayed error must still self-clear")
	require.Equal(t, 1, fake.callCount())
}

func TestSubmitRejectsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeAuthorizer{
		authorizeFn: func(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
			<-release
			return &models.AuthorizationResponse{AuthorizationRequest: req, Status: models.StatusApproved}, nil
		},
	}
	s := newTestStore(fake)
	fillValidDraft(s)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()

	require.Eventually(t, func() bool {
		return s.Status().State == StateLoading
	}, time.Second, time.Millisecond)

	require.ErrorIs(t, s.Submit(context.Background()), ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 1, fake.callCount())
}

func TestResetDropsInFlightOutcome(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeAuthorizer{
		authorizeFn: func(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
			<-release
			return &models.AuthorizationResponse{AuthorizationRequest: req, Status: models.StatusApproved}, nil
		},
	}
	s := newTestStore(fake)
	fillValidDraft(s)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()

	require.Eventually(t, func() bool {
		return s.Status().State == StateLoading
	}, time.Second, time.Millisecond)

	s.Reset()
	close(release)
	require.NoError(t, <-done)

	// the late response must not resurrect the submission
	require.Equal(t, StateIdle, s.Status().State)
	require.Equal(t, NewDraft(), s.Draft())
}

func TestNewSubmitCancelsPendingAutoReset(t *testing.T) {
	fake := &fakeAuthorizer{}
	s := newTestStore(fake, WithSuccessResetDelay(100*time.Millisecond))
	fillValidDraft(s)

	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, StateSucceeded, s.Status().State)

	// second submit while the first auto-reset timer is still pending
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Submit(context.Background()))

	// past the first timer's deadline: if it had not been cancelled it
	// would have cleared the second submission's success status by now
	time.Sleep(70 * time.Millisecond)
	require.Equal(t, StateSucceeded, s.Status().State)

	require.Eventually(t, func() bool {
		return s.Status().State == StateIdle
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, fake.callCount())
}
