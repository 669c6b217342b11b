package pactrecorder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
	"github.com/form3tech-oss/pact-recorder/internal/app/httpresponse"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// ControlPrefix is where the recorder serves its own endpoints. Every other path is proxied
// to the target.
const ControlPrefix = "/_pact"

type api struct {
	target       *url.URL
	proxy        *httputil.ReverseProxy
	session      *Session
	recorder     *Recorder
	interactions *Interactions
	notify       *notify
	delay        time.Duration
	duration     time.Duration
}

// RecordRequest asks the recorder to merge a capture made elsewhere, e.g. by a browser test.
type RecordRequest struct {
	Title            string                 `json:"title"`
	Alias            string                 `json:"alias,omitempty"`
	Capture          json.RawMessage        `json:"capture"`
	MatchingRules    contract.MatchingRules `json:"matchingRules,omitempty"`
	HeadersBlocklist []string               `json:"headersBlocklist,omitempty"`
}

type RecordResponse struct {
	Pact        string                `json:"pact"`
	Interaction *contract.Interaction `json:"interaction"`
}

type headersBlocklistRequest struct {
	Headers []string `json:"headers"`
}

type recording struct {
	description string
	alias       string
	identity    contract.Identity
	blocklist   *contract.Blocklist
	rules       contract.MatchingRules
}

func SetupRoutes(e *echo.Echo, config *Config, recorder *Recorder) {
	api := newAPI(config, recorder)

	control := e.Group(ControlPrefix)
	control.GET("/ready", api.readinessHandler)
	control.POST("/setup", api.setupHandler)
	control.POST("/headers/blocklist", api.headersBlocklistHandler)
	control.DELETE("/session", api.sessionHandler)
	control.POST("/interactions", api.recordHandler)
	control.GET("/interactions", api.interactionsHandler)
	control.DELETE("/interactions", api.deleteInteractionsHandler)
	control.GET("/interactions/wait", api.interactionsWaitHandler)
	control.GET("/document", api.documentHandler)

	e.Any("/*", api.proxyHandler)
}

func newAPI(config *Config, recorder *Recorder) *api {
	target := config.Target
	a := &api{
		target:       &target,
		proxy:        newReverseProxy(&target),
		session:      NewSession(config.Identity(), config.Blocklist()),
		recorder:     recorder,
		interactions: &Interactions{},
		notify:       newNotify(),
		delay:        config.WaitDelay,
		duration:     config.WaitDuration,
	}
	if a.delay == 0 {
		a.delay = defaultDelay
	}
	if a.duration == 0 {
		a.duration = defaultDuration
	}
	return a
}

func newReverseProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
		// The transport negotiates compression itself and hands back a decoded body to record.
		req.Header.Del("Accept-Encoding")
	}

	proxy.ErrorHandler = func(res http.ResponseWriter, req *http.Request, err error) {
		log.WithError(err).Errorf("unable to proxy %s %s to %s", req.Method, req.URL.Path, target)
		if writer, ok := res.(*CaptureWriter); ok {
			writer.Fail()
		}
		res.WriteHeader(http.StatusBadGateway)
	}
	return proxy
}

func (a *api) readinessHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (a *api) setupHandler(c echo.Context) error {
	var identity contract.Identity
	if err := c.Bind(&identity); err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to parse pact identity. %s", err.Error()))
	}

	if err := a.session.SetIdentity(identity); err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Error(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *api) headersBlocklistHandler(c echo.Context) error {
	var request headersBlocklistRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to parse header blocklist. %s", err.Error()))
	}

	blocklist := a.session.AddHeaderBlocklist(request.Headers...)
	log.Infof("blocklisting headers %s", strings.Join(request.Headers, ", "))
	return c.JSON(http.StatusOK, headersBlocklistRequest{Headers: blocklist.Names()})
}

func (a *api) sessionHandler(c echo.Context) error {
	log.Infof("resetting session for %s", a.target)
	a.session.Reset()
	a.interactions.Clear()
	return c.NoContent(http.StatusNoContent)
}

func (a *api) recordHandler(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to read capture. %s", err.Error()))
	}

	var request RecordRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to parse record request. %s", err.Error()))
	}

	capture, err := contract.ParseCapture(request.Capture)
	if err != nil {
		code, apiErr := httpresponse.FromRecordError(err)
		return c.JSON(code, apiErr)
	}

	identity, blocklist := a.session.Snapshot()
	interaction, err := a.record(c.Request().Context(), capture, recording{
		description: contract.Describe(request.Title, request.Alias),
		alias:       request.Alias,
		identity:    identity,
		blocklist:   blocklist.With(request.HeadersBlocklist...),
		rules:       request.MatchingRules,
	})
	if err != nil {
		code, apiErr := httpresponse.FromRecordError(err)
		return c.JSON(code, apiErr)
	}

	return c.JSON(http.StatusCreated, RecordResponse{
		Pact:        contract.DocumentKey(identity),
		Interaction: interaction,
	})
}

func (a *api) interactionsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, struct {
		Interactions []InteractionSummary `json:"interactions"`
	}{
		Interactions: a.interactions.Summaries(c.QueryParam("alias")),
	})
}

func (a *api) deleteInteractionsHandler(c echo.Context) error {
	log.Info("deleting recorded interactions")
	a.interactions.Clear()
	return c.NoContent(http.StatusNoContent)
}

func (a *api) interactionsWaitHandler(c echo.Context) error {
	waitForCount, err := strconv.Atoi(c.QueryParam("count"))
	if err != nil || waitForCount < 1 {
		waitForCount = 1
	}

	waitFor := c.QueryParam("interaction")
	satisfied := func() bool {
		if waitFor == "" {
			return a.interactions.Count() >= waitForCount
		}
		interaction, ok := a.interactions.Load(waitFor)
		return ok && interaction.HasRecords(waitForCount)
	}

	ctx := c.Request().Context()
	log.WithFields(log.Fields{
		"wait_for": waitFor,
		"count":    waitForCount,
	}).Infof("waiting")
	retryFor(ctx, func(timeLeft time.Duration) bool {
		log.WithFields(log.Fields{
			"wait_for":       waitFor,
			"count":          waitForCount,
			"time_remaining": timeLeft,
		}).Debug("retry")
		if satisfied() {
			return true
		}
		if timeLeft > 0 {
			a.notify.Wait(ctx, timeLeft)
		}
		return false
	}, a.delay, a.duration)

	if !satisfied() {
		return c.JSON(http.StatusRequestTimeout, httpresponse.Error("timeout waiting for interactions to be recorded"))
	}
	return c.NoContent(http.StatusOK)
}

func (a *api) documentHandler(c echo.Context) error {
	identity, _ := a.session.Snapshot()

	document, found, err := a.recorder.Document(c.Request().Context(), identity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, httpresponse.Errorf("unable to read pact. %s", err.Error()))
	}
	if !found {
		return c.JSON(http.StatusNotFound, httpresponse.Errorf("no pact recorded for %s", contract.DocumentKey(identity)))
	}
	return c.JSONBlob(http.StatusOK, document)
}

// proxyHandler forwards the request to the target and, when the caller named the interaction
// with the description header, records the exchange.
func (a *api) proxyHandler(c echo.Context) error {
	req := c.Request()
	title := req.Header.Get(contract.DescriptionHeader)
	alias := req.Header.Get(contract.AliasHeader)
	req.Header.Del(contract.DescriptionHeader)
	req.Header.Del(contract.AliasHeader)

	if strings.TrimSpace(title) == "" {
		log.Debugf("proxying %s %s", req.Method, req.URL.Path)
		a.proxy.ServeHTTP(c.Response(), req)
		return nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to read request body. %s", err.Error()))
	}
	if err := req.Body.Close(); err != nil {
		return c.JSON(http.StatusInternalServerError, httpresponse.Error(err.Error()))
	}
	req.Body = io.NopCloser(bytes.NewReader(data))

	request, err := captureRequest(a.target, req, data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, httpresponse.Errorf("unable to capture request. %s", err.Error()))
	}

	writer := NewCaptureWriter(c.Response())
	a.proxy.ServeHTTP(writer, req)
	if writer.Failed() {
		log.Warnf("not recording '%s', the target did not respond", title)
		return nil
	}

	response, err := writer.Response()
	if err != nil {
		log.WithError(err).Errorf("unable to capture response for '%s'", title)
		return nil
	}

	identity, blocklist := a.session.Snapshot()
	capture := contract.Capture{Kind: contract.DirectExchange, Request: request, Response: response}
	description := contract.Describe(title, alias)

	// The client may hang up once it has the response; the pact is still written.
	ctx := context.WithoutCancel(req.Context())
	if _, err := a.record(ctx, capture, recording{
		description: description,
		alias:       alias,
		identity:    identity,
		blocklist:   blocklist,
	}); err != nil {
		log.WithError(err).Errorf("unable to record interaction '%s'", description)
	}
	return nil
}

func (a *api) record(ctx context.Context, capture contract.Capture, r recording) (*contract.Interaction, error) {
	interaction, err := contract.BuildInteraction(capture, r.description, r.blocklist, r.rules)
	if err != nil {
		return nil, err
	}

	if _, err := a.recorder.Record(ctx, interaction, r.identity); err != nil {
		return nil, err
	}

	a.interactions.Record(
		interaction.Description,
		strings.TrimPrefix(strings.TrimSpace(r.alias), "@"),
		interaction.Request.Method,
		interaction.Request.Path,
		contract.DocumentKey(r.identity),
	)
	a.notify.Notify()
	return interaction, nil
}
