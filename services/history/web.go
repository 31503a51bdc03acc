package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/communityshop/posbackend/lib/mycontext"
	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/myhttp"
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/mypubsub"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/services/checkout/checkoutevents"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(historyStore mystore.Store[SaleRecord], pubsub mypubsub.PubSub, nower mytime.Nower) *webService {
	logger := mylog.New("history")
	return &webService{
		logger:  logger,
		service: newService(historyStore, pubsub, nower, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/products/history", s.listHistoryPage()).Methods("GET")
	router.HandleFunc("/api/reports", s.reportPage()).Methods("GET")

	// Listen for completed checkouts
	router.HandleFunc("/api/history/event", s.handleEventEnvelope()).Methods("POST")
	router.HandleFunc("/api/history/task/{taskUID}", s.handleArchiveTask()).Methods("PUT")

	return s.service.Subscribe(c)
}

type historyListResponse struct {
	Records []SaleRecord
}

func (s *webService) listHistoryPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		records, err := s.service.listHistory(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, historyListResponse{Records: records})
	}
}

func (s *webService) reportPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		from, to, err := parseReportRange(r, s.service.nower)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		report, err := s.service.report(c, from, to)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, report)
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := checkoutevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}

// handleArchiveTask is the task-queue webhook: the payload is the completed
// checkout to archive. Archiving is idempotent, retries are harmless.
func (s *webService) handleArchiveTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		taskUID := mux.Vars(r)["taskUID"]

		event := checkoutevents.CheckoutCompleted{}
		err := json.NewDecoder(r.Body).Decode(&event)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing archive task %s: %s", taskUID, err)))
			return
		}

		err = s.service.archive(c, event)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed archive task " + taskUID,
		})
	}
}

// The current time is the default upper bound when the caller omits "to"
func parseReportRange(r *http.Request, nower mytime.Nower) (time.Time, time.Time, error) {
	from, err := parseReportTime(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %s", err)
	}

	var to time.Time
	if r.URL.Query().Get("to") != "" {
		to, err = parseReportTime(r.URL.Query().Get("to"))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %s", err)
		}
	} else {
		to = nower.Now()
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from %s must lie before to %s", from, to)
	}

	return from, to, nil
}

func parseReportTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing value")
	}

	parsed, err := time.Parse("2006-01-02", value)
	if err == nil {
		return parsed, nil
	}

	return time.Parse(time.RFC3339, value)
}
