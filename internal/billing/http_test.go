package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	coreconfig "github.com/lanbilling/lanbot/core/config"
)

func soapBody(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soapenv:Body>` + inner + `</soapenv:Body></soapenv:Envelope>`
}

func soapFaultBody(code string) string {
	return soapBody(fmt.Sprintf(
		`<soapenv:Fault><faultcode>%s</faultcode><faultstring>detail</faultstring></soapenv:Fault>`, code))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(coreconfig.BillingConfig{
		BaseURL: srv.URL,
		Manager: "manager",
		Secret:  "secret",
	})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client, srv
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		switch {
		case strings.Contains(body, "<Login>"):
			io.WriteString(w, soapBody(`<LoginResponse/>`))
		case strings.Contains(body, "<ClientLogin>"):
			io.WriteString(w, soapFaultBody("soap:error_auth"))
		default:
			t.Errorf("unexpected request: %s", body)
		}
	})

	_, err := client.Authenticate(context.Background(), "user", "wrong")
	if !IsFault(err, FaultInvalidCredentials) {
		t.Fatalf("want invalid_credentials fault, got %v", err)
	}
}

func TestAgreementsParsesClosedFlag(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		switch {
		case strings.Contains(body, "<Login>"):
			io.WriteString(w, soapBody(`<LoginResponse/>`))
		case strings.Contains(body, "<GetAgreements>"):
			io.WriteString(w, soapBody(`<GetAgreementsResponse>`+
				`<ret><agrmid>10</agrmid><number>A-10</number><balance>12.50</balance><closedon>0</closedon></ret>`+
				`<ret><agrmid>11</agrmid><number>A-11</number><balance>-3.00</balance><closedon>1</closedon></ret>`+
				`</GetAgreementsResponse>`))
		default:
			t.Errorf("unexpected request: %s", body)
		}
	})

	agreements, err := client.Agreements(context.Background(), "user")
	if err != nil {
		t.Fatalf("Agreements: %v", err)
	}
	if len(agreements) != 2 {
		t.Fatalf("want 2 agreements, got %d", len(agreements))
	}
	if !agreements[0].Active || agreements[0].Number != "A-10" || agreements[0].Balance != 12.50 {
		t.Errorf("first agreement parsed wrong: %+v", agreements[0])
	}
	if agreements[1].Active {
		t.Errorf("closed agreement reported active: %+v", agreements[1])
	}
}

func TestExpiredSessionRetriesOnce(t *testing.T) {
	var logins, accounts atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		switch {
		case strings.Contains(body, "<Login>"):
			logins.Add(1)
			io.WriteString(w, soapBody(`<LoginResponse/>`))
		case strings.Contains(body, "<GetAccount>"):
			if accounts.Add(1) == 1 {
				io.WriteString(w, soapFaultBody("soap:error_no_manager_session"))
				return
			}
			io.WriteString(w, soapBody(`<GetAccountResponse><ret>`+
				`<login>user</login><balance>100.00</balance><credit>0</credit><recommended>300</recommended>`+
				`</ret></GetAccountResponse>`))
		default:
			t.Errorf("unexpected request: %s", body)
		}
	})

	acct, err := client.Account(context.Background(), 10)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acct.Balance != 100.00 || acct.Recommended != 300 {
		t.Errorf("account parsed wrong: %+v", acct)
	}
	if got := logins.Load(); got != 2 {
		t.Errorf("want 2 manager logins (initial + re-auth), got %d", got)
	}
	if got := accounts.Load(); got != 2 {
		t.Errorf("want 2 GetAccount calls, got %d", got)
	}
}

func TestPromisePaymentOverdueFault(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		switch {
		case strings.Contains(body, "<Login>"):
			io.WriteString(w, soapBody(`<LoginResponse/>`))
		case strings.Contains(body, "<PromisePayment>"):
			io.WriteString(w, soapFaultBody("soap:error_promise_unavailable"))
		default:
			t.Errorf("unexpected request: %s", body)
		}
	})

	err := client.SubmitPromisePayment(context.Background(), 10, 500)
	if !IsFault(err, FaultDebtsOverdue) {
		t.Fatalf("want debts_overdue fault, got %v", err)
	}
	var fault *Fault
	if !errors.As(err, &fault) || fault.Message != "detail" {
		t.Errorf("fault message lost: %v", err)
	}
}

func TestRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(coreconfig.BillingConfig{}); err == nil {
		t.Fatal("want error for empty base url")
	}
}
