package onboarding

import (
	"context"
	"log"
	"net/url"

	"waba-onboarding/internal/backend"
)

// CallbackParams is the one-time extraction of Meta's redirect query string.
type CallbackParams struct {
	Code             string
	State            string
	CallbackReceived bool
	Error            string
	ErrorDescription string
}

// ParseCallback pulls the signup parameters out of a redirect URL query.
func ParseCallback(values url.Values) CallbackParams {
	return CallbackParams{
		Code:             values.Get("code"),
		State:            values.Get("state"),
		CallbackReceived: values.Get("callback_received") == "true",
		Error:            values.Get("error"),
		ErrorDescription: values.Get("error_description"),
	}
}

// Empty reports whether the query carried nothing signup-related, in which
// case callback resolution is a no-op and the caller falls through to a
// plain status fetch.
func (p CallbackParams) Empty() bool {
	return p.Code == "" && !p.CallbackReceived && p.Error == ""
}

// ResolveCallback consumes a redirect exactly once. Re-invoking it with the
// same code (a refresh, a re-render) is a no-op; only a fresh navigation
// with a new code triggers processing again. The caller is responsible for
// stripping the query from the visible URL afterwards.
func (s *Session) ResolveCallback(ctx context.Context, params CallbackParams) bool {
	if params.Empty() {
		return false
	}

	if params.Error != "" {
		s.failFromRedirect(params)
		return true
	}

	s.mu.Lock()
	already := s.callbackConsumed
	if !already {
		s.callbackConsumed = true
	}
	s.mu.Unlock()
	if already {
		return true
	}
	if params.Code != "" && s.audit != nil && s.audit.CallbackConsumed(params.Code) {
		log.Printf("Ignoring already-consumed callback code")
		return true
	}

	// The pair is marked consumed before the call: the backend enforces real
	// idempotency, the client must never resubmit automatically.
	if params.Code != "" && s.audit != nil {
		s.audit.MarkCallbackConsumed(params.Code, params.State)
	}

	if !s.begin() {
		return true
	}
	defer s.end()

	var resp *backend.CallbackResponse
	var err error
	if params.Code != "" {
		resp, err = s.api.ProcessCallback(ctx, params.Code, params.State)
	} else {
		resp, err = s.api.ProcessStoredCallback(ctx)
	}

	if err != nil {
		s.fail("resolve_callback", err)
		return true
	}

	s.mu.Lock()
	s.backendStatus = resp.Status
	if resp.WabaID != "" {
		s.esbData.WabaID = resp.WabaID
	}
	if resp.PhoneNumberID != "" {
		s.esbData.PhoneNumberID = resp.PhoneNumberID
	}
	s.flowErr = nil
	s.info = resp.Message
	s.mu.Unlock()

	step := MapStatusToStep(resp.Status)
	if step == StepStart {
		// A processed callback always moves past the signup hand-off even if
		// the backend reports a status we do not recognize.
		step = StepPhoneRegister
	}
	s.setStep(step, "resolve_callback", resp.Status)
	return true
}

// failFromRedirect classifies an error Meta attached to the redirect itself.
func (s *Session) failFromRedirect(params CallbackParams) {
	var fe *FlowError
	switch params.Error {
	case "invalid_state":
		fe = &FlowError{
			Kind:    KindRestartRequired,
			Message: "The signup session could not be verified. Please restart the signup.",
			Raw:     params.Error + ": " + params.ErrorDescription,
		}
	case "missing_params":
		fe = &FlowError{
			Kind:    KindRestartRequired,
			Message: "The signup redirect was incomplete. Please restart the signup.",
			Raw:     params.Error + ": " + params.ErrorDescription,
		}
	default:
		msg := params.ErrorDescription
		if msg == "" {
			msg = "The Meta signup was not completed."
		}
		fe = &FlowError{Kind: KindFatal, Message: msg, Raw: params.Error}
	}

	s.mu.Lock()
	s.flowErr = fe
	s.info = ""
	s.mu.Unlock()

	if fe.Kind == KindRestartRequired {
		s.setStep(StepStart, "callback_error:restart_required", fe.Raw)
	}
	s.publish()
}
