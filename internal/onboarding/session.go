package onboarding

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"sync"

	"waba-onboarding/internal/backend"
)

// LaunchMode selects how the user is sent to Meta's hosted signup and how
// the agent learns they are back. Redirect navigates the whole page and
// resumes via the callback route; popup opens a second browsing context and
// relies on the polling guard to observe completion.
type LaunchMode string

const (
	LaunchRedirect LaunchMode = "redirect"
	LaunchPopup    LaunchMode = "popup"
)

// ErrBusy is returned when an operation is rejected because another one is
// still in flight (double-submit protection).
var ErrBusy = errors.New("another onboarding operation is in progress")

// API is the slice of the backend client the session drives.
type API interface {
	StartSignup(ctx context.Context) (*backend.StartResponse, error)
	GetStatus(ctx context.Context) (*backend.StatusResponse, error)
	RegisterPhone(ctx context.Context, phone string) (*backend.AckResponse, error)
	VerifyOTP(ctx context.Context, otp string) (*backend.AckResponse, error)
	ResendOTP(ctx context.Context) (*backend.AckResponse, error)
	CreateSystemUser(ctx context.Context) (*backend.AckResponse, error)
	Activate(ctx context.Context) (*backend.ActivateResponse, error)
	ProcessCallback(ctx context.Context, code, state string) (*backend.CallbackResponse, error)
	ProcessStoredCallback(ctx context.Context) (*backend.CallbackResponse, error)
}

// AuditLog persists step transitions and consumed callback codes.
type AuditLog interface {
	RecordTransition(from, to, cause, detail string)
	CallbackConsumed(code string) bool
	MarkCallbackConsumed(code, state string)
}

// Notifier receives a session snapshot after every mutation.
type Notifier interface {
	NotifySession(session interface{})
}

// ESBData is the read-only display cache from the last status or activation
// payload. It is never used for control decisions.
type ESBData struct {
	WabaID        string              `json:"waba_id,omitempty"`
	PhoneNumberID string              `json:"phone_number_id,omitempty"`
	PlanLimits    *backend.PlanLimits `json:"plan_limits,omitempty"`
}

// Snapshot is the immutable view handed to the API layer and the hub.
type Snapshot struct {
	Step          Step       `json:"step"`
	BackendStatus string     `json:"backend_status,omitempty"`
	ESBData       ESBData    `json:"esb_data"`
	Error         *FlowError `json:"error,omitempty"`
	Info          string     `json:"info,omitempty"`
	SignupURL     string     `json:"signup_url,omitempty"`
	LaunchMode    LaunchMode `json:"launch_mode"`
	Busy          bool       `json:"busy"`
}

// Session owns the onboarding state machine. All mutations go through it;
// it is safe for concurrent use by HTTP handlers and the polling guard.
type Session struct {
	mu sync.Mutex

	step          Step
	backendStatus string
	esbData       ESBData
	flowErr       *FlowError
	info          string
	signupURL     string
	mode          LaunchMode
	inFlight      bool

	callbackConsumed bool

	api    API
	audit  AuditLog
	notify Notifier
}

func NewSession(api API, audit AuditLog, notify Notifier, mode LaunchMode) *Session {
	if mode != LaunchPopup {
		mode = LaunchRedirect
	}
	return &Session{
		step:   StepStart,
		mode:   mode,
		api:    api,
		audit:  audit,
		notify: notify,
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Step:          s.step,
		BackendStatus: s.backendStatus,
		ESBData:       s.esbData,
		Error:         s.flowErr,
		Info:          s.info,
		SignupURL:     s.signupURL,
		LaunchMode:    s.mode,
		Busy:          s.inFlight,
	}
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// begin acquires the in-flight guard. Callers must pair it with end.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
	s.publish()
}

func (s *Session) publish() {
	if s.notify == nil {
		return
	}
	s.notify.NotifySession(s.Snapshot())
}

// setStep moves the machine and records the transition. Callers hold no lock.
func (s *Session) setStep(to Step, cause, detail string) {
	s.mu.Lock()
	from := s.step
	s.step = to
	s.mu.Unlock()

	if from != to && s.audit != nil {
		s.audit.RecordTransition(string(from), string(to), cause, detail)
	}
	if from != to {
		log.Printf("Onboarding step %s -> %s (%s)", from, to, cause)
	}
}

func (s *Session) succeed(to Step, cause, info string) {
	s.mu.Lock()
	s.flowErr = nil
	s.info = info
	s.mu.Unlock()
	s.setStep(to, cause, info)
}

// fail classifies and stores the error. The step is left unchanged except
// for restart-required failures, which reset the flow to the beginning.
func (s *Session) fail(cause string, err error) *FlowError {
	fe := Classify(err)

	s.mu.Lock()
	s.flowErr = fe
	s.info = ""
	s.mu.Unlock()

	if fe.Kind == KindRestartRequired {
		s.setStep(StepStart, cause+":restart_required", fe.Raw)
	} else if s.audit != nil {
		step := string(s.Step())
		s.audit.RecordTransition(step, step, cause+":error", fe.Raw)
	}
	return fe
}

// Start requests the Meta-hosted signup URL. In redirect mode the caller
// navigates the whole page to it; in popup mode the caller opens it in a
// second window and the polling guard takes over.
func (s *Session) Start(ctx context.Context) (string, error) {
	if !s.begin() {
		return "", ErrBusy
	}
	defer s.end()

	resp, err := s.api.StartSignup(ctx)
	if err != nil {
		return "", s.fail("start", err)
	}

	url := resp.SignupURL()
	if url == "" {
		return "", s.fail("start", errors.New("backend returned no signup URL"))
	}

	s.mu.Lock()
	s.signupURL = url
	s.mu.Unlock()
	s.applyBackendStatus("", "started")
	s.succeed(StepWaitingCallback, "start", "Finish connecting your WhatsApp Business Account in the Meta window.")
	return url, nil
}

var phoneDigits = regexp.MustCompile(`\d`)

// RegisterPhone submits the business phone number, triggering the OTP send.
func (s *Session) RegisterPhone(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return validationError("Phone number is required.")
	}
	if len(phoneDigits.FindAllString(phone, -1)) < 8 {
		return validationError("Phone number is too short.")
	}

	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	resp, err := s.api.RegisterPhone(ctx, phone)
	if err != nil {
		return s.fail("register_phone", err)
	}

	info := resp.Message
	if info == "" {
		info = "We sent a verification code to " + phone + "."
	}
	s.applyBackendStatus(resp.Status, "otp_sent")
	s.succeed(StepOTPVerify, "register_phone", info)
	return nil
}

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// VerifyOTP submits the 6-digit verification code.
func (s *Session) VerifyOTP(ctx context.Context, otp string) error {
	otp = strings.TrimSpace(otp)
	if !otpPattern.MatchString(otp) {
		return validationError("Enter the 6-digit verification code.")
	}

	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	resp, err := s.api.VerifyOTP(ctx, otp)
	if err != nil {
		return s.fail("verify_otp", err)
	}

	info := resp.Message
	if info == "" {
		info = "Phone number verified."
	}
	s.applyBackendStatus(resp.Status, "otp_verified")
	s.succeed(StepSystemUser, "verify_otp", info)
	return nil
}

// ResendOTP requests a fresh verification code. It is its own operation and
// does not advance the step.
func (s *Session) ResendOTP(ctx context.Context) error {
	if s.Step() != StepOTPVerify {
		return validationError("No verification code is pending.")
	}
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	resp, err := s.api.ResendOTP(ctx)
	if err != nil {
		return s.fail("resend_otp", err)
	}

	s.mu.Lock()
	s.flowErr = nil
	s.info = resp.Message
	if s.info == "" {
		s.info = "A new verification code was sent."
	}
	s.mu.Unlock()
	return nil
}

// CreateSystemUser provisions the Meta-side service credential.
func (s *Session) CreateSystemUser(ctx context.Context) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	resp, err := s.api.CreateSystemUser(ctx)
	if err != nil {
		return s.fail("create_system_user", err)
	}

	info := resp.Message
	if info == "" {
		info = "System user created."
	}
	s.applyBackendStatus(resp.Status, "system_user_created")
	s.succeed(StepActivate, "create_system_user", info)
	return nil
}

// Activate finalizes the WABA activation.
func (s *Session) Activate(ctx context.Context) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	resp, err := s.api.Activate(ctx)
	if err != nil {
		return s.fail("activate", err)
	}

	s.mu.Lock()
	if resp.WabaID != "" {
		s.esbData.WabaID = resp.WabaID
	}
	if resp.PhoneNumberID != "" {
		s.esbData.PhoneNumberID = resp.PhoneNumberID
	}
	if resp.PlanLimits != nil {
		s.esbData.PlanLimits = resp.PlanLimits
	}
	s.mu.Unlock()

	s.applyBackendStatus(resp.Status, "waba_activated")
	s.succeed(StepComplete, "activate", "Your WhatsApp Business Account is connected.")
	return nil
}

// CheckStatus fetches the backend status and re-derives the step from it.
// It is the manual recovery action after a poll timeout, and the poll tick.
func (s *Session) CheckStatus(ctx context.Context) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	resp, err := s.api.GetStatus(ctx)
	if err != nil {
		return s.fail("check_status", err)
	}
	s.applyStatus(resp, "check_status")
	return nil
}

// pollTick is CheckStatus without the busy-guard error: an overlapping user
// operation simply wins and the tick is skipped.
func (s *Session) pollTick(ctx context.Context) {
	if !s.begin() {
		return
	}
	defer s.end()

	resp, err := s.api.GetStatus(ctx)
	if err != nil {
		log.Printf("Status poll failed: %v", err)
		return
	}
	s.applyStatus(resp, "poll")
}

func (s *Session) applyBackendStatus(status, fallback string) {
	if status == "" {
		status = fallback
	}
	s.mu.Lock()
	s.backendStatus = status
	s.mu.Unlock()
}

// applyStatus enforces the invariant that the step always matches the last
// successfully fetched backend status.
func (s *Session) applyStatus(resp *backend.StatusResponse, cause string) {
	status := resp.EsbStatus.Status

	s.mu.Lock()
	s.backendStatus = status
	if resp.WabaID != "" {
		s.esbData.WabaID = resp.WabaID
	}
	if resp.PhoneNumberID != "" {
		s.esbData.PhoneNumberID = resp.PhoneNumberID
	}
	if resp.PlanLimits != nil {
		s.esbData.PlanLimits = resp.PlanLimits
	}
	s.mu.Unlock()

	step := MapStatusToStep(status)
	if step == StepFailed {
		reason := resp.EsbStatus.FailureReason
		if reason == "" {
			reason = "The signup could not be completed."
		}
		s.mu.Lock()
		s.flowErr = &FlowError{Kind: KindFatal, Message: reason, Raw: reason}
		s.info = ""
		s.mu.Unlock()
	}
	s.setStep(step, cause, status)
}

// setPollTimeout is invoked by the polling guard when the wall-clock cap is
// exceeded. The step is left where it was; the user gets a manual
// check-status action instead of silent resumed polling.
func (s *Session) setPollTimeout() {
	s.mu.Lock()
	s.flowErr = &FlowError{
		Kind:    KindPollTimeout,
		Message: "We could not confirm the signup in time. Use \"Check status\" once you have finished the Meta flow.",
	}
	s.info = ""
	s.mu.Unlock()
	if s.audit != nil {
		step := string(s.Step())
		s.audit.RecordTransition(step, step, "poll_timeout", "")
	}
	s.publish()
}

// Restart is the explicit user-initiated reset out of failed or
// restart-required states. Consumed callback codes stay consumed.
func (s *Session) Restart() {
	s.mu.Lock()
	s.flowErr = nil
	s.info = ""
	s.signupURL = ""
	s.backendStatus = ""
	s.mu.Unlock()
	s.setStep(StepStart, "restart", "user restart")
	s.publish()
}
