// Package conversation runs the SMS/WhatsApp booking dialogue: one inbound
// message in, one reply out, with per-phone state kept between turns.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/salon-booking-platform/internal/availability"
	"github.com/wolfman30/salon-booking-platform/internal/bookings"
	"github.com/wolfman30/salon-booking-platform/internal/catalog"
	"github.com/wolfman30/salon-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/internal/staff"
	"github.com/wolfman30/salon-booking-platform/internal/tenancy"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

var conversationTracer = otel.Tracer("salon.internal.conversation")

const processedSource = "conversation.inbound"

// InboundMessage is one customer message as delivered by the chat provider.
type InboundMessage struct {
	TenantID     string `json:"tenantId"`
	PhoneNumber  string `json:"phoneNumber"`
	Message      string `json:"message"`
	CustomerName string `json:"customerName,omitempty"`
	MessageID    string `json:"messageId,omitempty"`
}

// Reply is what goes back to the customer.
type Reply struct {
	ReplyText   string `json:"replyText"`
	CurrentStep Step   `json:"currentStep"`
	BookingID   string `json:"bookingId,omitempty"`
}

// SlotResolver is the availability surface the engine needs.
type SlotResolver interface {
	ComputeSlots(ctx context.Context, tenantID string, serviceID uuid.UUID, date time.Time) ([]availability.Slot, error)
	AvailableDates(ctx context.Context, tenantID string, serviceID uuid.UUID, limit int) ([]time.Time, error)
	AssignStaff(ctx context.Context, tenantID string, serviceID uuid.UUID, at time.Time) (staff.Member, error)
}

// BookingConfirmer persists a confirmed booking.
type BookingConfirmer interface {
	Confirm(ctx context.Context, b *bookings.Booking) error
}

// ProcessedStore remembers which inbound message ids were already handled.
type ProcessedStore interface {
	AlreadyProcessed(ctx context.Context, source, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, source, eventID string) (bool, error)
}

// TranscriptAppender records each side of the dialogue.
type TranscriptAppender interface {
	Append(ctx context.Context, msg TranscriptMessage) error
}

// EngineConfig tunes list sizes and booking defaults.
type EngineConfig struct {
	MaxSlotsShown    int
	DateOptionsShown int
	DateOrder        DateOrder
	BookingNote      string
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxSlotsShown <= 0 {
		c.MaxSlotsShown = 10
	}
	if c.DateOptionsShown <= 0 {
		c.DateOptionsShown = 7
	}
	if c.DateOrder == "" {
		c.DateOrder = DateOrderDMY
	}
	return c
}

// Engine is the booking flow state machine.
type Engine struct {
	catalog    *catalog.Lookup
	resolver   SlotResolver
	bookings   BookingConfirmer
	profiles   salon.ProfileStore
	states     *StateStore
	locker     Locker
	processed  ProcessedStore
	transcript TranscriptAppender
	metrics    *metrics.BookingFlowMetrics
	cfg        EngineConfig
	logger     *logging.Logger
	now        func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithProcessedStore enables duplicate message detection by message id.
func WithProcessedStore(store ProcessedStore) EngineOption {
	return func(e *Engine) { e.processed = store }
}

// WithTranscript records every turn.
func WithTranscript(t TranscriptAppender) EngineOption {
	return func(e *Engine) { e.transcript = t }
}

// WithFlowMetrics records step transitions and flow errors.
func WithFlowMetrics(m *metrics.BookingFlowMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithEngineConfig replaces the default list sizes and booking note.
func WithEngineConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) { e.cfg = cfg.withDefaults() }
}

// WithEngineClock overrides the time source used for "today".
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wires the booking flow. A nil locker falls back to an in-process
// KeyedMutex.
func NewEngine(lookup *catalog.Lookup, resolver SlotResolver, confirmer BookingConfirmer, profiles salon.ProfileStore,
	states *StateStore, locker Locker, logger *logging.Logger, opts ...EngineOption) *Engine {
	if lookup == nil {
		panic("conversation: catalog lookup cannot be nil")
	}
	if resolver == nil {
		panic("conversation: slot resolver cannot be nil")
	}
	if confirmer == nil {
		panic("conversation: booking confirmer cannot be nil")
	}
	if profiles == nil {
		panic("conversation: profile store cannot be nil")
	}
	if states == nil {
		panic("conversation: state store cannot be nil")
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		catalog:  lookup,
		resolver: resolver,
		bookings: confirmer,
		profiles: profiles,
		states:   states,
		locker:   locker,
		cfg:      EngineConfig{}.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// turn carries one message through the state machine.
type turn struct {
	session *Session
	profile *salon.Profile
	loc     *time.Location
	today   time.Time
	text    string
	intent  intent
	kind    ErrorKind
}

func (t *turn) fail(kind ErrorKind) {
	t.kind = kind
}

// snapshot returns log fields describing the session and the message that
// was being handled.
func snapshot(s *Session, input string) []any {
	fields := []any{"input", input}
	if s == nil {
		return fields
	}
	return append(fields,
		"tenant_id", s.TenantID,
		"phone", logging.MaskPhone(s.Phone),
		"conversation_ref", s.ConversationRef(),
		"step", s.Step,
		"service_id", s.ServiceID,
		"service_name", s.ServiceName,
		"date", s.Date,
		"time", s.Time,
		"staff_id", s.StaffID,
		"customer_name", s.CustomerName,
		"offered_dates", s.OfferedDates,
		"offered_times", s.OfferedTimes,
	)
}

// Handle processes one inbound message. Messages for the same tenant and
// phone are handled one at a time. Recoverable problems come back as a
// re-prompt with a nil error; a failed booking write returns the apology
// reply together with a *FlowError of kind PersistenceFailure.
func (e *Engine) Handle(ctx context.Context, msg InboundMessage) (Reply, error) {
	tenantID := strings.TrimSpace(msg.TenantID)
	phone := tenancy.NormalizePhone(msg.PhoneNumber)
	if tenantID == "" || phone == "" {
		return Reply{}, ErrInvalidInbound
	}

	started := time.Now()
	defer func() { e.metrics.ObserveHandle(time.Since(started).Seconds()) }()

	ctx, span := conversationTracer.Start(ctx, "conversation.handle")
	defer span.End()
	span.SetAttributes(attribute.String("salon.tenant_id", tenantID))

	unlock, err := e.locker.Lock(ctx, tenancy.SessionKey(tenantID, phone))
	if err != nil {
		span.RecordError(err)
		e.logger.Error("session lock failed", "error", err, "tenant_id", tenantID,
			"phone", logging.MaskPhone(phone), "input", msg.Message)
		return Reply{}, fmt.Errorf("conversation: lock session: %w", err)
	}
	defer unlock()

	dedupKey := ""
	if id := strings.TrimSpace(msg.MessageID); id != "" && e.processed != nil {
		dedupKey = tenantID + ":" + id
		seen, err := e.processed.AlreadyProcessed(ctx, processedSource, dedupKey)
		if err != nil {
			e.logger.Warn("dedup lookup failed", "error", err, "tenant_id", tenantID, "message_id", id)
		} else if seen {
			session, _, err := e.states.Load(ctx, tenantID, phone)
			if err != nil {
				e.logger.Error("session load failed", "error", err, "tenant_id", tenantID,
					"phone", logging.MaskPhone(phone), "input", msg.Message)
				return Reply{}, err
			}
			e.logger.Info("duplicate inbound message ignored", "tenant_id", tenantID, "message_id", id)
			return Reply{ReplyText: helpReply(session.Step), CurrentStep: session.Step}, nil
		}
	}

	session, expired, err := e.states.Load(ctx, tenantID, phone)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("session load failed", "error", err, "tenant_id", tenantID,
			"phone", logging.MaskPhone(phone), "input", msg.Message)
		return Reply{}, err
	}
	if expired {
		e.metrics.ObserveError(string(KindSessionExpired))
	}
	if name := strings.TrimSpace(msg.CustomerName); name != "" {
		session.CustomerName = name
	}

	profile, err := e.profiles.Get(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("salon profile load failed", append([]any{"error", err}, snapshot(session, msg.Message)...)...)
		return Reply{}, fmt.Errorf("conversation: load salon profile: %w", err)
	}

	loc := profile.Location()
	t := &turn{
		session: session,
		profile: profile,
		loc:     loc,
		today:   profile.Today(e.now()),
		text:    msg.Message,
		intent:  classify(msg.Message, session.Step == StepAwaitingConfirmation),
	}
	from := session.Step
	ref := session.ConversationRef()

	reply, flowErr := e.advance(ctx, t)
	if flowErr != nil && KindOf(flowErr) != KindPersistenceFailure {
		span.RecordError(flowErr)
		e.logger.Error("conversation turn failed",
			append([]any{"error", flowErr, "step_from", from}, snapshot(session, t.text)...)...)
		return Reply{}, flowErr
	}
	if t.kind != "" {
		e.metrics.ObserveError(string(t.kind))
		span.SetAttributes(attribute.String("salon.flow_error", string(t.kind)))
	}

	if session.Step == StepCompleted {
		err = e.states.Clear(ctx, tenantID, phone)
	} else {
		err = e.states.Save(ctx, session)
	}
	if err != nil {
		span.RecordError(err)
		e.logger.Error("session save failed", append([]any{"error", err}, snapshot(session, t.text)...)...)
		return Reply{}, fmt.Errorf("conversation: persist session: %w", err)
	}

	reply.CurrentStep = session.Step
	e.metrics.ObserveTransition(string(from), string(session.Step))
	span.SetAttributes(
		attribute.String("salon.step_from", string(from)),
		attribute.String("salon.step_to", string(session.Step)),
	)
	e.logger.Debug("conversation turn",
		"tenant_id", tenantID,
		"phone", logging.MaskPhone(phone),
		"from", from,
		"to", session.Step,
		"flow_error", t.kind,
	)

	e.recordTranscript(ctx, ref, tenantID, phone, msg, reply, from)
	if dedupKey != "" {
		if _, err := e.processed.MarkProcessed(ctx, processedSource, dedupKey); err != nil {
			e.logger.Warn("failed to mark message processed", "error", err, "tenant_id", tenantID)
		}
	}
	return reply, flowErr
}

func (e *Engine) advance(ctx context.Context, t *turn) (Reply, error) {
	s := t.session
	if s.Step == StepCompleted {
		s.Reset(e.now())
	}

	switch t.intent {
	case intentReset:
		s.Reset(e.now())
		return Reply{ReplyText: resetReply()}, nil
	case intentHelp:
		return Reply{ReplyText: helpReply(s.Step)}, nil
	case intentChangeService:
		if s.Step == StepAwaitingDate || s.Step == StepAwaitingTime || s.Step == StepAwaitingConfirmation {
			return e.toService(ctx, t)
		}
	case intentChangeDate:
		if s.Step == StepAwaitingTime || s.Step == StepAwaitingConfirmation {
			return e.toDate(ctx, t)
		}
	case intentChangeTime:
		if s.Step == StepAwaitingConfirmation {
			return e.toTime(ctx, t, "")
		}
	}

	switch s.Step {
	case StepAwaitingService:
		return e.chooseService(ctx, t)
	case StepAwaitingDate:
		return e.chooseDate(ctx, t)
	case StepAwaitingTime:
		return e.chooseTime(ctx, t)
	case StepAwaitingConfirmation:
		return e.confirm(ctx, t)
	default:
		return e.welcome(ctx, t)
	}
}

func offeringIDs(offerings []catalog.Offering) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(offerings))
	for _, o := range offerings {
		ids = append(ids, o.ID)
	}
	return ids
}

func (e *Engine) showMenu(ctx context.Context, t *turn) ([]catalog.Offering, error) {
	offerings, err := e.catalog.Active(ctx, t.session.TenantID)
	if err != nil {
		return nil, err
	}
	t.session.OfferedServiceIDs = offeringIDs(offerings)
	return offerings, nil
}

func (e *Engine) welcome(ctx context.Context, t *turn) (Reply, error) {
	offerings, err := e.showMenu(ctx, t)
	if err != nil {
		return Reply{}, err
	}
	if len(offerings) == 0 {
		t.fail(KindNoAvailability)
		return Reply{ReplyText: noServicesReply(t.profile.Name)}, nil
	}
	t.session.Step = StepAwaitingService
	return Reply{ReplyText: welcomeReply(t.profile.Name, offerings)}, nil
}

// displayed returns the menu the customer last saw, dropping anything that
// has since been deactivated.
func (e *Engine) displayed(ctx context.Context, t *turn) ([]catalog.Offering, error) {
	active, err := e.catalog.Active(ctx, t.session.TenantID)
	if err != nil {
		return nil, err
	}
	if len(t.session.OfferedServiceIDs) == 0 {
		return active, nil
	}
	byID := make(map[uuid.UUID]catalog.Offering, len(active))
	for _, o := range active {
		byID[o.ID] = o
	}
	out := make([]catalog.Offering, 0, len(t.session.OfferedServiceIDs))
	for _, id := range t.session.OfferedServiceIDs {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return active, nil
	}
	return out, nil
}

func (e *Engine) chooseService(ctx context.Context, t *turn) (Reply, error) {
	menu, err := e.displayed(ctx, t)
	if err != nil {
		return Reply{}, err
	}
	if len(menu) == 0 {
		t.fail(KindNoAvailability)
		return Reply{ReplyText: noServicesReply(t.profile.Name)}, nil
	}
	offering, err := e.catalog.Resolve(ctx, menu, t.text)
	if err != nil {
		t.fail(KindInputNotUnderstood)
		t.session.OfferedServiceIDs = offeringIDs(menu)
		return Reply{ReplyText: serviceNotFoundReply(menu)}, nil
	}
	return e.offerDates(ctx, t, offering, menu)
}

func (e *Engine) offerDates(ctx context.Context, t *turn, offering catalog.Offering, menu []catalog.Offering) (Reply, error) {
	s := t.session
	dates, err := e.resolver.AvailableDates(ctx, s.TenantID, offering.ID, e.cfg.DateOptionsShown)
	if err != nil {
		return Reply{}, err
	}
	if len(dates) == 0 {
		t.fail(KindNoAvailability)
		s.clearService()
		s.Step = StepAwaitingService
		s.OfferedServiceIDs = offeringIDs(menu)
		return Reply{ReplyText: noDatesReply(offering.Name, t.profile.HorizonDays(), menu)}, nil
	}
	s.chooseService(offering.ID, offering.Name)
	s.OfferedDates = formatDates(dates)
	s.Step = StepAwaitingDate
	return Reply{ReplyText: datePrompt(offering.Name, s.OfferedDates, t.loc)}, nil
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(time.DateOnly))
	}
	return out
}

// selectedOffering reloads the chosen service. When it is gone the returned
// reply sends the customer back to the menu.
func (e *Engine) selectedOffering(ctx context.Context, t *turn) (catalog.Offering, *Reply, error) {
	s := t.session
	offering, err := e.catalog.Get(ctx, s.TenantID, s.ServiceID.String())
	if err == nil && offering.IsActive {
		return *offering, nil, nil
	}
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return catalog.Offering{}, nil, err
	}
	name := s.ServiceName
	menu, err := e.showMenu(ctx, t)
	if err != nil {
		return catalog.Offering{}, nil, err
	}
	t.fail(KindNoAvailability)
	s.clearService()
	s.Step = StepAwaitingService
	return catalog.Offering{}, &Reply{ReplyText: serviceUnavailableReply(name, menu)}, nil
}

func (e *Engine) toService(ctx context.Context, t *turn) (Reply, error) {
	menu, err := e.showMenu(ctx, t)
	if err != nil {
		return Reply{}, err
	}
	t.session.clearService()
	t.session.Step = StepAwaitingService
	return Reply{ReplyText: changeServiceReply(menu)}, nil
}

func (e *Engine) toDate(ctx context.Context, t *turn) (Reply, error) {
	offering, redirect, err := e.selectedOffering(ctx, t)
	if err != nil || redirect != nil {
		return derefReply(redirect), err
	}
	menu, err := e.catalog.Active(ctx, t.session.TenantID)
	if err != nil {
		return Reply{}, err
	}
	return e.offerDates(ctx, t, offering, menu)
}

func derefReply(r *Reply) Reply {
	if r == nil {
		return Reply{}
	}
	return *r
}

func (e *Engine) chooseDate(ctx context.Context, t *turn) (Reply, error) {
	s := t.session
	offering, redirect, err := e.selectedOffering(ctx, t)
	if err != nil || redirect != nil {
		return derefReply(redirect), err
	}
	if len(s.OfferedDates) == 0 {
		if err := e.refreshDates(ctx, t); err != nil {
			return Reply{}, err
		}
	}

	day, ok := ParseDate(t.text, t.today, s.OfferedDates, e.cfg.DateOrder)
	if !ok {
		t.fail(KindInputNotUnderstood)
		text := dateNotUnderstoodReply(s.OfferedDates, t.loc)
		if hint := e.serviceHint(ctx, t); hint != "" {
			text = hint + "\n" + text
		}
		return Reply{ReplyText: text}, nil
	}
	if day.Before(t.today) {
		t.fail(KindInputNotUnderstood)
		return Reply{ReplyText: datePastReply(s.OfferedDates, t.loc)}, nil
	}
	if day.After(t.today.AddDate(0, 0, t.profile.HorizonDays())) {
		t.fail(KindInputNotUnderstood)
		return Reply{ReplyText: dateBeyondHorizonReply(t.profile.HorizonDays(), s.OfferedDates, t.loc)}, nil
	}

	times, err := e.openTimes(ctx, t, day)
	if err != nil {
		return Reply{}, err
	}
	if len(times) == 0 {
		t.fail(KindNoAvailability)
		if err := e.refreshDates(ctx, t); err != nil {
			return Reply{}, err
		}
		if len(s.OfferedDates) == 0 {
			menu, err := e.showMenu(ctx, t)
			if err != nil {
				return Reply{}, err
			}
			s.clearService()
			s.Step = StepAwaitingService
			return Reply{ReplyText: noDatesReply(offering.Name, t.profile.HorizonDays(), menu)}, nil
		}
		return Reply{ReplyText: dateFullReply(offering.Name, day, s.OfferedDates, t.loc)}, nil
	}

	s.Date = day.Format(time.DateOnly)
	s.clearTime()
	s.OfferedTimes = times
	s.Step = StepAwaitingTime
	return Reply{ReplyText: timePrompt(offering.Name, day, times)}, nil
}

func (e *Engine) refreshDates(ctx context.Context, t *turn) error {
	dates, err := e.resolver.AvailableDates(ctx, t.session.TenantID, t.session.ServiceID, e.cfg.DateOptionsShown)
	if err != nil {
		return err
	}
	t.session.OfferedDates = formatDates(dates)
	return nil
}

// openTimes lists the first MaxSlotsShown open starts on day.
func (e *Engine) openTimes(ctx context.Context, t *turn, day time.Time) ([]string, error) {
	slots, err := e.resolver.ComputeSlots(ctx, t.session.TenantID, t.session.ServiceID, day)
	if err != nil {
		return nil, err
	}
	times := make([]string, 0, min(len(slots), e.cfg.MaxSlotsShown))
	for _, slot := range slots {
		if len(times) == e.cfg.MaxSlotsShown {
			break
		}
		times = append(times, slot.Label())
	}
	return times, nil
}

// serviceHint explains how to switch services when the text names one.
func (e *Engine) serviceHint(ctx context.Context, t *turn) string {
	active, err := e.catalog.Active(ctx, t.session.TenantID)
	if err != nil {
		return ""
	}
	if _, kind, err := catalog.Match(active, t.text); err == nil && kind != catalog.MatchOrdinal {
		return serviceHint(t.session.ServiceName)
	}
	return ""
}

func (e *Engine) chooseTime(ctx context.Context, t *turn) (Reply, error) {
	s := t.session
	day, ok := s.Day(t.loc)
	if !ok {
		return e.toDate(ctx, t)
	}
	offering, redirect, err := e.selectedOffering(ctx, t)
	if err != nil || redirect != nil {
		return derefReply(redirect), err
	}

	clock, ok := ParseTime(t.text, s.OfferedTimes)
	if !ok {
		t.fail(KindInputNotUnderstood)
		text := timeNotUnderstoodReply(day, s.OfferedTimes)
		if _, isDate := ParseDate(t.text, t.today, nil, e.cfg.DateOrder); isDate {
			text = dateHint() + "\n" + text
		} else if hint := e.serviceHint(ctx, t); hint != "" {
			text = hint + "\n" + text
		}
		return Reply{ReplyText: text}, nil
	}

	minutes, err := salon.ClockMinutes(clock)
	if err != nil {
		t.fail(KindInputNotUnderstood)
		return Reply{ReplyText: timeNotUnderstoodReply(day, s.OfferedTimes)}, nil
	}
	at := salon.AtClock(day, minutes)
	if open, _, ok := t.profile.HoursOn(day); ok && at.Sub(open)%t.profile.SlotInterval() != 0 {
		t.fail(KindNoAvailability)
		return e.reofferTimes(ctx, t, day, offGridReply(clock, day, t.profile.SlotInterval()))
	}
	member, err := e.resolver.AssignStaff(ctx, s.TenantID, s.ServiceID, at)
	if errors.Is(err, staff.ErrUnassignable) {
		if containsString(s.OfferedTimes, clock) {
			t.fail(KindStaffUnassignable)
		} else {
			t.fail(KindNoAvailability)
		}
		return e.reofferTimes(ctx, t, day, timeTakenReply(clock, day))
	}
	if err != nil {
		return Reply{}, err
	}

	s.Time = clock
	s.StaffID = member.ID
	s.StaffName = member.Name
	s.Step = StepAwaitingConfirmation
	return Reply{ReplyText: confirmPrompt(s, offering, day)}, nil
}

// reofferTimes refreshes the slot list for day and stays in AWAITING_TIME.
// When the day filled up it falls back to the date list.
func (e *Engine) reofferTimes(ctx context.Context, t *turn, day time.Time, lead string) (Reply, error) {
	s := t.session
	times, err := e.openTimes(ctx, t, day)
	if err != nil {
		return Reply{}, err
	}
	if len(times) == 0 {
		reply, err := e.toDate(ctx, t)
		if err != nil {
			return Reply{}, err
		}
		if s.Step == StepAwaitingDate {
			reply.ReplyText = dateFullReply(s.ServiceName, day, s.OfferedDates, t.loc)
		}
		return reply, nil
	}
	s.clearTime()
	s.OfferedTimes = times
	s.Step = StepAwaitingTime
	return Reply{ReplyText: lead + "\n" + numbered(times)}, nil
}

func (e *Engine) toTime(ctx context.Context, t *turn, lead string) (Reply, error) {
	day, ok := t.session.Day(t.loc)
	if !ok {
		return e.toDate(ctx, t)
	}
	if lead == "" {
		lead = "Sure."
	}
	return e.reofferTimes(ctx, t, day, lead+" Which time would you like on "+dayLabel(day)+"?")
}

func (e *Engine) confirm(ctx context.Context, t *turn) (Reply, error) {
	s := t.session
	day, ok := s.Day(t.loc)
	if !ok {
		return e.toDate(ctx, t)
	}
	switch t.intent {
	case intentYes:
		return e.book(ctx, t, day)
	case intentNo:
		return e.toTime(ctx, t, "No problem.")
	}
	t.fail(KindInputNotUnderstood)
	return Reply{ReplyText: confirmNotUnderstoodReply(s, day)}, nil
}

// book re-validates the slot and writes the booking. The same staff member
// is kept when still free; otherwise another qualified member is picked.
func (e *Engine) book(ctx context.Context, t *turn, day time.Time) (Reply, error) {
	s := t.session
	at, ok := s.ScheduledAt(t.loc)
	if !ok {
		return e.toTime(ctx, t, "")
	}
	offering, redirect, err := e.selectedOffering(ctx, t)
	if err != nil || redirect != nil {
		return derefReply(redirect), err
	}

	member, err := e.revalidate(ctx, t, at)
	if errors.Is(err, staff.ErrUnassignable) {
		t.fail(KindStaffUnassignable)
		e.metrics.ObserveBooking("unassignable")
		return e.reofferTimes(ctx, t, day, timeTakenReply(s.Time, day))
	}
	if err != nil {
		return Reply{}, err
	}

	currency := offering.Currency
	if currency == "" {
		currency = t.profile.Currency
	}
	customer := s.CustomerName
	if customer == "" {
		customer = s.Phone
	}
	b := &bookings.Booking{
		TenantID:        s.TenantID,
		ServiceID:       offering.ID,
		ServiceName:     offering.Name,
		StaffID:         member.ID,
		StaffName:       member.Name,
		CustomerPhone:   s.Phone,
		CustomerName:    customer,
		ScheduledAt:     at,
		DurationMinutes: offering.DurationMinutes,
		AmountMinor:     offering.BasePriceMinor,
		Currency:        currency,
		Notes:           e.cfg.BookingNote,
		ConversationRef: s.ConversationRef(),
	}

	err = e.bookings.Confirm(ctx, b)
	switch {
	case errors.Is(err, bookings.ErrSlotConflict):
		t.fail(KindPersistenceConflict)
		e.metrics.ObserveBooking("conflict")
		return e.reofferTimes(ctx, t, day, slotTakenReply(day))
	case err != nil:
		t.fail(KindPersistenceFailure)
		e.metrics.ObserveBooking("failed")
		e.logger.Error("booking persistence failed",
			append([]any{"error", err, "scheduled_at", at}, snapshot(s, t.text)...)...)
		return Reply{ReplyText: persistenceFailureReply()}, &FlowError{Kind: KindPersistenceFailure, Err: err}
	}

	e.metrics.ObserveBooking("confirmed")
	s.Step = StepCompleted
	return Reply{ReplyText: bookedReply(*b, day), BookingID: b.ID.String()}, nil
}

func (e *Engine) revalidate(ctx context.Context, t *turn, at time.Time) (staff.Member, error) {
	s := t.session
	slots, err := e.resolver.ComputeSlots(ctx, s.TenantID, s.ServiceID, at)
	if err != nil {
		return staff.Member{}, err
	}
	for _, slot := range slots {
		if !slot.Time.Equal(at) {
			continue
		}
		for _, id := range slot.QualifiedStaffIDs {
			if id == s.StaffID {
				return staff.Member{ID: s.StaffID, Name: s.StaffName}, nil
			}
		}
	}
	member, err := e.resolver.AssignStaff(ctx, s.TenantID, s.ServiceID, at)
	if err != nil {
		return staff.Member{}, err
	}
	s.StaffID = member.ID
	s.StaffName = member.Name
	return member, nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (e *Engine) recordTranscript(ctx context.Context, ref, tenantID, phone string, msg InboundMessage, reply Reply, from Step) {
	if e.transcript == nil {
		return
	}
	now := e.now().UTC()
	key := msg.MessageID
	if key == "" {
		key = uuid.NewString()
	}
	entries := []TranscriptMessage{
		{ConversationRef: ref, TenantID: tenantID, Phone: phone, Role: RoleCustomer, Body: msg.Message, Step: from, MessageKey: key + ":in", CreatedAt: now},
		{ConversationRef: ref, TenantID: tenantID, Phone: phone, Role: RoleSalon, Body: reply.ReplyText, Step: reply.CurrentStep, MessageKey: key + ":out", CreatedAt: now},
	}
	for _, entry := range entries {
		if err := e.transcript.Append(ctx, entry); err != nil {
			e.logger.Warn("failed to append transcript", "error", err, "tenant_id", tenantID, "conversation_ref", ref)
			return
		}
	}
}
