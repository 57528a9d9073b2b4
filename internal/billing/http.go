package billing

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	coreconfig "github.com/lanbilling/lanbot/core/config"
	"github.com/lanbilling/lanbot/core/logger"
	"log/slog"

	"golang.org/x/time/rate"
)

const (
	dialTimeout    = 5 * time.Second
	clientTimeout  = 15 * time.Second
	envelopeNS     = "urn:api3"
	faultOverdue   = "error_promise_unavailable"
	faultBadCreds  = "error_auth"
	faultNoSession = "error_no_manager_session"
)

// HTTPClient talks SOAP-style XML to the billing backend. It acquires a
// manager session cookie lazily and retries a call once after re-auth when
// the session has expired upstream.
type HTTPClient struct {
	cfg     coreconfig.BillingConfig
	http    *http.Client
	limiter *rate.Limiter

	mu        sync.Mutex
	hasCookie bool
}

// NewHTTPClient builds a billing client from configuration.
func NewHTTPClient(cfg coreconfig.BillingConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("billing: base url is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("billing: cookie jar: %w", err)
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &HTTPClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: clientTimeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:       http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{Timeout: dialTimeout}).DialContext,
			},
		},
		limiter: limiter,
	}, nil
}

type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

type soapFault struct {
	XMLName xml.Name `xml:"Fault"`
	Code    string   `xml:"faultcode"`
	Detail  string   `xml:"faultstring"`
}

// call posts one SOAP operation and decodes the body into out.
// A no-session fault triggers exactly one re-login and retry.
func (c *HTTPClient) call(ctx context.Context, op string, payload any, out any) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	err := c.post(ctx, op, payload, out)
	if IsFault(err, FaultSessionExpired) {
		logger.BILL.Warn("session expired, re-authenticating",
			slog.String("event", "billing.relogin"),
			slog.String("op", op),
		)
		c.mu.Lock()
		c.hasCookie = false
		c.mu.Unlock()
		if err = c.ensureSession(ctx); err != nil {
			return err
		}
		err = c.post(ctx, op, payload, out)
	}
	return err
}

func (c *HTTPClient) post(ctx context.Context, op string, payload any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("billing: rate wait: %w", err)
		}
	}

	body, err := encodeEnvelope(op, payload)
	if err != nil {
		return err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("billing: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", envelopeNS+"#"+op)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.BILL.Error("request failed",
			slog.String("event", "billing.call"),
			slog.String("op", op),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("billing: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("billing: %s: read body: %w", op, err)
	}

	var env envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("billing: %s: decode envelope: %w", op, err)
	}

	if fault := parseFault(env.Body.Inner); fault != nil {
		logger.BILL.Debug("business fault",
			slog.String("event", "billing.fault"),
			slog.String("op", op),
			slog.String("err_code", string(fault.Code)),
			slog.Duration("duration", logger.Took(start)),
		)
		return fault
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("billing: %s: unexpected status %s", op, resp.Status)
	}

	logger.BILL.Debug("call ok",
		slog.String("event", "billing.call"),
		slog.String("op", op),
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
	)

	if out == nil {
		return nil
	}
	if err := xml.Unmarshal(env.Body.Inner, out); err != nil {
		return fmt.Errorf("billing: %s: decode response: %w", op, err)
	}
	return nil
}

func (c *HTTPClient) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasCookie {
		return nil
	}
	type loginReq struct {
		XMLName  xml.Name `xml:"Login"`
		Login    string   `xml:"login"`
		Password string   `xml:"pass"`
	}
	if err := c.post(ctx, "Login", loginReq{Login: c.cfg.Manager, Password: c.cfg.Secret}, nil); err != nil {
		return fmt.Errorf("billing: manager login: %w", err)
	}
	c.hasCookie = true
	return nil
}

func encodeEnvelope(op string, payload any) ([]byte, error) {
	inner, err := xml.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("billing: %s: encode payload: %w", op, err)
	}
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:api3="` + envelopeNS + `"><soapenv:Body>`)
	b.Write(inner)
	b.WriteString(`</soapenv:Body></soapenv:Envelope>`)
	return b.Bytes(), nil
}

func parseFault(inner []byte) *Fault {
	if !bytes.Contains(inner, []byte("Fault")) {
		return nil
	}
	var f soapFault
	if err := xml.Unmarshal(inner, &f); err != nil {
		return nil
	}
	switch {
	case strings.Contains(f.Code, faultNoSession):
		return &Fault{Code: FaultSessionExpired, Message: f.Detail}
	case strings.Contains(f.Code, faultBadCreds):
		return &Fault{Code: FaultInvalidCredentials, Message: f.Detail}
	case strings.Contains(f.Code, faultOverdue):
		return &Fault{Code: FaultDebtsOverdue, Message: f.Detail}
	case f.Code != "":
		return &Fault{Code: FaultNotFound, Message: f.Detail}
	}
	return nil
}

// Authenticate validates subscriber credentials.
func (c *HTTPClient) Authenticate(ctx context.Context, login, password string) (string, error) {
	type req struct {
		XMLName  xml.Name `xml:"ClientLogin"`
		Login    string   `xml:"login"`
		Password string   `xml:"pass"`
	}
	var resp struct {
		Login string `xml:"ret>login"`
	}
	if err := c.call(ctx, "ClientLogin", req{Login: login, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Login == "" {
		resp.Login = login
	}
	return resp.Login, nil
}

// Agreements lists agreements for a subscriber login.
func (c *HTTPClient) Agreements(ctx context.Context, login string) ([]Agreement, error) {
	type req struct {
		XMLName xml.Name `xml:"GetAgreements"`
		Login   string   `xml:"login"`
	}
	var resp struct {
		Items []struct {
			ID      int64   `xml:"agrmid"`
			Number  string  `xml:"number"`
			Balance float64 `xml:"balance"`
			Closed  int     `xml:"closedon"`
		} `xml:"ret"`
	}
	if err := c.call(ctx, "GetAgreements", req{Login: login}, &resp); err != nil {
		return nil, err
	}
	out := make([]Agreement, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, Agreement{
			ID:      it.ID,
			Number:  it.Number,
			Balance: it.Balance,
			Active:  it.Closed == 0,
		})
	}
	return out, nil
}

// Account fetches the aggregated balance view for an agreement.
func (c *HTTPClient) Account(ctx context.Context, agreementID int64) (Account, error) {
	type req struct {
		XMLName xml.Name `xml:"GetAccount"`
		ID      int64    `xml:"agrmid"`
	}
	var resp struct {
		Login       string  `xml:"ret>login"`
		Balance     float64 `xml:"ret>balance"`
		Credit      float64 `xml:"ret>credit"`
		Recommended int64   `xml:"ret>recommended"`
	}
	if err := c.call(ctx, "GetAccount", req{ID: agreementID}, &resp); err != nil {
		return Account{}, err
	}
	return Account(resp), nil
}

// RecommendedPayment returns the suggested top-up amount for an agreement.
func (c *HTTPClient) RecommendedPayment(ctx context.Context, agreementID int64) (int64, error) {
	type req struct {
		XMLName xml.Name `xml:"GetRecommendedPayment"`
		ID      int64    `xml:"agrmid"`
	}
	var resp struct {
		Amount float64 `xml:"ret"`
	}
	if err := c.call(ctx, "GetRecommendedPayment", req{ID: agreementID}, &resp); err != nil {
		return 0, err
	}
	return int64(resp.Amount + 0.5), nil
}

// SubmitPromisePayment registers a promise payment for an agreement.
func (c *HTTPClient) SubmitPromisePayment(ctx context.Context, agreementID int64, amount int64) error {
	type req struct {
		XMLName xml.Name `xml:"PromisePayment"`
		ID      int64    `xml:"agrmid"`
		Amount  int64    `xml:"amount"`
	}
	return c.call(ctx, "PromisePayment", req{ID: agreementID, Amount: amount}, nil)
}

// Payments returns the payment history for an agreement since the given time.
func (c *HTTPClient) Payments(ctx context.Context, agreementID int64, since time.Time) ([]Payment, error) {
	type req struct {
		XMLName xml.Name `xml:"GetPayments"`
		ID      int64    `xml:"agrmid"`
		From    string   `xml:"dtfrom"`
	}
	var resp struct {
		Items []struct {
			Date   string  `xml:"paydate"`
			Amount float64 `xml:"amount"`
			Source string  `xml:"classname"`
		} `xml:"ret"`
	}
	if err := c.call(ctx, "GetPayments", req{ID: agreementID, From: since.Format("2006-01-02")}, &resp); err != nil {
		return nil, err
	}
	out := make([]Payment, 0, len(resp.Items))
	for _, it := range resp.Items {
		ts, err := time.Parse("2006-01-02 15:04:05", it.Date)
		if err != nil {
			ts, _ = time.Parse("2006-01-02", it.Date)
		}
		out = append(out, Payment{Date: ts, Amount: it.Amount, Source: it.Source})
	}
	return out, nil
}

var _ Client = (*HTTPClient)(nil)
