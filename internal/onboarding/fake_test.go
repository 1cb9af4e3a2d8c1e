package onboarding

import (
	"context"
	"sync"

	"waba-onboarding/internal/backend"
)

// fakeAPI is a scriptable stand-in for the backend client.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	startResp    *backend.StartResponse
	statusResp   *backend.StatusResponse
	ackResp      *backend.AckResponse
	activateResp *backend.ActivateResponse
	callbackResp *backend.CallbackResponse
	err          error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:        make(map[string]int),
		startResp:    &backend.StartResponse{URL: "https://meta.example/oauth"},
		ackResp:      &backend.AckResponse{},
		activateResp: &backend.ActivateResponse{Status: "waba_activated"},
		callbackResp: &backend.CallbackResponse{Success: true, Status: "token_exchanged"},
		statusResp: &backend.StatusResponse{
			EsbStatus: &backend.ESBStatus{Status: "awaiting_callback"},
		},
	}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) StartSignup(ctx context.Context) (*backend.StartResponse, error) {
	f.record("start")
	if f.err != nil {
		return nil, f.err
	}
	return f.startResp, nil
}

func (f *fakeAPI) GetStatus(ctx context.Context) (*backend.StatusResponse, error) {
	f.record("status")
	if f.err != nil {
		return nil, f.err
	}
	return f.statusResp, nil
}

func (f *fakeAPI) RegisterPhone(ctx context.Context, phone string) (*backend.AckResponse, error) {
	f.record("register_phone")
	if f.err != nil {
		return nil, f.err
	}
	return f.ackResp, nil
}

func (f *fakeAPI) VerifyOTP(ctx context.Context, otp string) (*backend.AckResponse, error) {
	f.record("verify_otp")
	if f.err != nil {
		return nil, f.err
	}
	return f.ackResp, nil
}

func (f *fakeAPI) ResendOTP(ctx context.Context) (*backend.AckResponse, error) {
	f.record("resend_otp")
	if f.err != nil {
		return nil, f.err
	}
	return f.ackResp, nil
}

func (f *fakeAPI) CreateSystemUser(ctx context.Context) (*backend.AckResponse, error) {
	f.record("create_system_user")
	if f.err != nil {
		return nil, f.err
	}
	return f.ackResp, nil
}

func (f *fakeAPI) Activate(ctx context.Context) (*backend.ActivateResponse, error) {
	f.record("activate")
	if f.err != nil {
		return nil, f.err
	}
	return f.activateResp, nil
}

func (f *fakeAPI) ProcessCallback(ctx context.Context, code, state string) (*backend.CallbackResponse, error) {
	f.record("process_callback")
	if f.err != nil {
		return nil, f.err
	}
	return f.callbackResp, nil
}

func (f *fakeAPI) ProcessStoredCallback(ctx context.Context) (*backend.CallbackResponse, error) {
	f.record("process_stored_callback")
	if f.err != nil {
		return nil, f.err
	}
	return f.callbackResp, nil
}

// fakeAudit is an in-memory AuditLog.
type fakeAudit struct {
	mu          sync.Mutex
	transitions [][2]string
	consumed    map[string]string
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{consumed: make(map[string]string)}
}

func (a *fakeAudit) RecordTransition(from, to, cause, detail string) {
	a.mu.Lock()
	a.transitions = append(a.transitions, [2]string{from, to})
	a.mu.Unlock()
}

func (a *fakeAudit) CallbackConsumed(code string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.consumed[code]
	return ok
}

func (a *fakeAudit) MarkCallbackConsumed(code, state string) {
	a.mu.Lock()
	a.consumed[code] = state
	a.mu.Unlock()
}
