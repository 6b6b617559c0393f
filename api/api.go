package api

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
	"hermannm.dev/webanalytics/config"
	"hermannm.dev/webanalytics/db"
)

type AnalyticsAPI struct {
	analytics  db.Dispatcher
	authorizer Authorizer
	metrics    http.Handler
	router     *http.ServeMux
	config     config.API
}

// metricsHandler may be nil, in which case /metrics is not served.
func NewAnalyticsAPI(
	analytics db.Dispatcher,
	authorizer Authorizer,
	metricsHandler http.Handler,
	router *http.ServeMux,
	config config.API,
) AnalyticsAPI {
	api := AnalyticsAPI{
		analytics:  analytics,
		authorizer: authorizer,
		metrics:    metricsHandler,
		router:     router,
		config:     config,
	}

	api.router.HandleFunc("GET /api/websites/{websiteId}/allstats", api.AllStats)
	api.router.HandleFunc("GET /api/websites/{websiteId}/linkevents", api.LinkEvents)
	api.router.HandleFunc("GET /api/websites/{websiteId}/statsbyday", api.StatsByDay)
	api.router.HandleFunc("GET /api/websites/{websiteId}/clicks", api.Clicks)
	if metricsHandler != nil {
		api.router.Handle("GET /metrics", metricsHandler)
	}

	return api
}

func (api AnalyticsAPI) ListenAndServe() error {
	return http.ListenAndServe(fmt.Sprintf(":%s", api.config.Port), api.router)
}

// Expects:
//   - path parameter 'websiteId'
//   - query parameters 'startAt' and 'endAt' (Unix milliseconds), optional 'unit', 'timezone'
//     and dimension filters (see parseFilters)
//
// Returns:
//   - JSON-encoded []db.AggregateStat
func (api AnalyticsAPI) AllStats(res http.ResponseWriter, req *http.Request) {
	websiteID, filters, ok := api.parseWebsiteRequest(res, req)
	if !ok {
		return
	}

	stats, err := api.analytics.AggregateStats(req.Context(), websiteID, filters)
	if err != nil {
		sendQueryError(res, err, "failed to get aggregate stats")
		return
	}

	sendJSON(stats, res)
}

// Same parameters as AllStats, plus optional 'limit' and 'offset'.
//
// Returns:
//   - JSON-encoded db.LinkClicks
func (api AnalyticsAPI) LinkEvents(res http.ResponseWriter, req *http.Request) {
	websiteID, filters, ok := api.parseWebsiteRequest(res, req)
	if !ok {
		return
	}

	pagination, err := parsePagination(req)
	if err != nil {
		sendError("invalid pagination", http.StatusBadRequest, err, res)
		return
	}

	linkClicks, err := api.analytics.LinkClicks(req.Context(), websiteID, filters, pagination)
	if err != nil {
		sendQueryError(res, err, "failed to get link click stats")
		return
	}

	sendJSON(linkClicks, res)
}

type StatsByDayResponse struct {
	Current  []db.DayStats `json:"current"`
	Previous []db.DayStats `json:"previous"`
}

// Same parameters as AllStats, plus optional 'compare' (prev/yoy/custom). The custom mode
// takes the comparison period from 'compareStartAt' and 'compareEndAt'.
//
// Returns:
//   - JSON-encoded StatsByDayResponse
func (api AnalyticsAPI) StatsByDay(res http.ResponseWriter, req *http.Request) {
	websiteID, filters, ok := api.parseWebsiteRequest(res, req)
	if !ok {
		return
	}

	comparePeriod, err := parseComparePeriod(req, filters)
	if err != nil {
		sendError("invalid comparison period", http.StatusBadRequest, err, res)
		return
	}

	var response StatsByDayResponse

	group, ctx := errgroup.WithContext(req.Context())
	group.Go(func() (err error) {
		response.Current, err = api.analytics.StatsByDay(ctx, websiteID, filters)
		return err
	})
	group.Go(func() (err error) {
		response.Previous, err = api.analytics.StatsByDay(
			ctx,
			websiteID,
			filters.WithRange(comparePeriod),
		)
		return err
	})
	if err := group.Wait(); err != nil {
		sendQueryError(res, err, "failed to get stats by day")
		return
	}

	sendJSON(response, res)
}

// Same parameters as AllStats.
//
// Returns:
//   - JSON-encoded []db.ClickCount
func (api AnalyticsAPI) Clicks(res http.ResponseWriter, req *http.Request) {
	websiteID, filters, ok := api.parseWebsiteRequest(res, req)
	if !ok {
		return
	}

	counts, err := api.analytics.ClickCounts(req.Context(), websiteID, filters)
	if err != nil {
		sendQueryError(res, err, "failed to get click counts")
		return
	}

	sendJSON(counts, res)
}

// Authorizes the request and parses the website ID and filters from it. If ok is false, an
// error response has already been sent.
func (api AnalyticsAPI) parseWebsiteRequest(
	res http.ResponseWriter,
	req *http.Request,
) (websiteID string, filters db.Filters, ok bool) {
	websiteID = req.PathValue("websiteId")

	if _, err := db.ParseWebsiteID(websiteID); err != nil {
		sendError("", http.StatusBadRequest, err, res)
		return "", db.Filters{}, false
	}

	canView, err := api.authorizer.CanViewWebsite(req, websiteID)
	if err != nil {
		sendError("failed to authorize request", http.StatusInternalServerError, err, res)
		return "", db.Filters{}, false
	}
	if !canView {
		sendError("not authorized to view website", http.StatusUnauthorized, nil, res)
		return "", db.Filters{}, false
	}

	filters, err = parseFilters(req)
	if err != nil {
		sendError("invalid query parameters", http.StatusBadRequest, err, res)
		return "", db.Filters{}, false
	}

	return websiteID, filters, true
}

func sendQueryError(res http.ResponseWriter, err error, message string) {
	switch {
	case db.IsInputError(err):
		sendError(message, http.StatusBadRequest, err, res)
	case errors.Is(err, db.ErrUnsupportedOperation):
		sendError(message, http.StatusNotImplemented, err, res)
	default:
		sendError(message, http.StatusInternalServerError, err, res)
	}
}
