package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"homely/models"
	"homely/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// stubService lets each test script the service behavior per endpoint.
type stubService struct {
	create   func(in booking.CreateBookingInput) (*models.BookingSnapshot, error)
	resolve  func(bookingID, providerID string, outcome models.OfferOutcome) (*models.BookingSnapshot, error)
	initial  func(bookingID string) (*models.BookingSnapshot, error)
	complete func(bookingID, providerID string) (*models.BookingSnapshot, error)
	final    func(bookingID string) (*models.BookingSnapshot, error)
	cancel   func(bookingID, cancelledBy, reason string) (*models.BookingSnapshot, error)
	get      func(bookingID string) (*models.BookingSnapshot, error)
	list     func(customerID string) ([]models.BookingSnapshot, error)
}

func (s *stubService) CreateBooking(ctx context.Context, in booking.CreateBookingInput) (*models.BookingSnapshot, error) {
	return s.create(in)
}

func (s *stubService) ResolveOffer(ctx context.Context, bookingID, providerID string, outcome models.OfferOutcome) (*models.BookingSnapshot, error) {
	return s.resolve(bookingID, providerID, outcome)
}

func (s *stubService) CaptureInitial(ctx context.Context, bookingID string) (*models.BookingSnapshot, error) {
	return s.initial(bookingID)
}

func (s *stubService) MarkJobComplete(ctx context.Context, bookingID, providerID string) (*models.BookingSnapshot, error) {
	return s.complete(bookingID, providerID)
}

func (s *stubService) CaptureCompletion(ctx context.Context, bookingID string) (*models.BookingSnapshot, error) {
	return s.final(bookingID)
}

func (s *stubService) CancelBooking(ctx context.Context, bookingID, cancelledBy, reason string) (*models.BookingSnapshot, error) {
	return s.cancel(bookingID, cancelledBy, reason)
}

func (s *stubService) GetBookingSnapshot(ctx context.Context, bookingID string) (*models.BookingSnapshot, error) {
	return s.get(bookingID)
}

func (s *stubService) ListCustomerBookings(ctx context.Context, customerID string) ([]models.BookingSnapshot, error) {
	return s.list(customerID)
}

func (s *stubService) ExpireOffer(ctx context.Context, bookingID, providerID string) error {
	return nil
}

func (s *stubService) ExpireInitialPayment(ctx context.Context, bookingID string) error {
	return nil
}

func newTestRouter(svc booking.BookingService, accountID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("accountID", accountID)
		c.Next()
	})

	h := NewBookingHandler(svc, zap.NewNop())
	r.POST("/bookings", h.CreateBooking)
	r.GET("/bookings/:id", h.GetBooking)
	r.POST("/bookings/:id/offer", h.ResolveOffer)
	r.POST("/bookings/:id/payments/initial", h.CaptureInitial)
	r.POST("/bookings/:id/cancel", h.CancelBooking)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBookingHandler(t *testing.T) {
	t.Parallel()

	svc := &stubService{
		create: func(in booking.CreateBookingInput) (*models.BookingSnapshot, error) {
			if in.CustomerID != "cust-7" {
				t.Errorf("customer from token = %q, want cust-7", in.CustomerID)
			}
			return &models.BookingSnapshot{BookingID: "bk-1", Status: models.BookingStatusAwaitingResponse}, nil
		},
	}
	r := newTestRouter(svc, "cust-7")

	w := doRequest(r, http.MethodPost, "/bookings", `{"serviceName":"deep-cleaning","providerId":"prov-a","totalPrice":1200,"paymentMethod":"card","details":{"category":"standard"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var snap models.BookingSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.BookingID != "bk-1" {
		t.Fatalf("bookingId = %q", snap.BookingID)
	}
}

func TestResolveOfferHandler(t *testing.T) {
	t.Parallel()

	t.Run("passes the caller as the provider", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{
			resolve: func(bookingID, providerID string, outcome models.OfferOutcome) (*models.BookingSnapshot, error) {
				if bookingID != "bk-1" || providerID != "prov-9" || outcome != models.OfferAccepted {
					t.Errorf("got (%s, %s, %s)", bookingID, providerID, outcome)
				}
				return &models.BookingSnapshot{BookingID: bookingID, Status: models.BookingStatusPendingPayment}, nil
			},
		}
		r := newTestRouter(svc, "prov-9")

		w := doRequest(r, http.MethodPost, "/bookings/bk-1/offer", `{"outcome":"accept"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("rejects unknown outcomes", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(&stubService{}, "prov-9")

		w := doRequest(r, http.MethodPost, "/bookings/bk-1/offer", `{"outcome":"maybe"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("maps staleOffer to 409", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{
			resolve: func(string, string, models.OfferOutcome) (*models.BookingSnapshot, error) {
				return nil, booking.NewBookingError(booking.CodeStaleOffer, "booking already taken")
			},
		}
		r := newTestRouter(svc, "prov-9")

		w := doRequest(r, http.MethodPost, "/bookings/bk-1/offer", `{"outcome":"accept"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})
}

func TestBookingErrorStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   string
		status int
	}{
		{booking.CodeValidation, http.StatusBadRequest},
		{booking.CodeNotFound, http.StatusNotFound},
		{booking.CodeInvalidState, http.StatusConflict},
		{booking.CodeStaleVersion, http.StatusConflict},
		{booking.CodePaymentCaptureFailed, http.StatusPaymentRequired},
		{booking.CodePaymentWindowExpired, http.StatusGone},
		{booking.CodeNoProvidersAvailable, http.StatusUnprocessableEntity},
		{booking.CodeExternalService, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.code, func(t *testing.T) {
			t.Parallel()
			svc := &stubService{
				initial: func(string) (*models.BookingSnapshot, error) {
					return nil, booking.NewBookingError(tc.code, "boom")
				},
			}
			r := newTestRouter(svc, "cust-7")

			w := doRequest(r, http.MethodPost, "/bookings/bk-1/payments/initial", "")
			if w.Code != tc.status {
				t.Fatalf("code %s mapped to %d, want %d", tc.code, w.Code, tc.status)
			}
		})
	}
}

func TestCancelBookingHandler(t *testing.T) {
	t.Parallel()

	svc := &stubService{
		cancel: func(bookingID, cancelledBy, reason string) (*models.BookingSnapshot, error) {
			if cancelledBy != "cust-7" || reason != "plans changed" {
				t.Errorf("got (%s, %s)", cancelledBy, reason)
			}
			return &models.BookingSnapshot{BookingID: bookingID, Status: models.BookingStatusCancelled}, nil
		},
	}
	r := newTestRouter(svc, "cust-7")

	w := doRequest(r, http.MethodPost, "/bookings/bk-1/cancel", `{"reason":"plans changed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}
