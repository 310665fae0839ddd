package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/gym-admin/internal/persistence"
)

// MemberService is the members repository of the mock backend. Every call
// reloads the collection from the store so it reflects the latest writes.
type MemberService struct {
	members   *persistence.Collection[Member]
	simulator *Simulator
	faults    *FaultInjector
	now       func() time.Time
	logger    *slog.Logger

	mu        sync.Mutex
	listeners []func()
}

// NewMemberService constructs a member service with the provided dependencies.
func NewMemberService(store *persistence.Store, simulator *Simulator, faults *FaultInjector, now func() time.Time) *MemberService {
	return NewMemberServiceWithLogger(store, simulator, faults, now, nil)
}

// NewMemberServiceWithLogger constructs a member service with a specified logger.
func NewMemberServiceWithLogger(store *persistence.Store, simulator *Simulator, faults *FaultInjector, now func() time.Time, logger *slog.Logger) *MemberService {
	if store == nil {
		store = persistence.NewStore(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &MemberService{
		members:   persistence.NewCollection(store, persistence.KeyMembers, SeedMembers),
		simulator: simulator,
		faults:    faults,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *MemberService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MemberService", operation, attrs...)
}

// OnChange registers fn to run after every successful mutation.
func (s *MemberService) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *MemberService) changed() {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Snapshot returns the stored members without latency or fault injection.
func (s *MemberService) Snapshot(ctx context.Context) []Member {
	return s.members.Load(ctx)
}

// List returns every member. It fails with ErrTransientNetwork when the
// fault injector fires.
func (s *MemberService) List(ctx context.Context) (result Envelope[[]Member], err error) {
	if s == nil {
		err = fmt.Errorf("MemberService is nil")
		return
	}

	logger := s.loggerWith(ctx, "List")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list members", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(result.Data)).InfoContext(ctx, "members listed")
	}()

	if err = s.simulator.Delay(ctx, LatencyMemberList); err != nil {
		return
	}
	if s.faults.Fail() {
		err = &NetworkError{Resource: "members"}
		return
	}

	result = envelope(s.members.Load(ctx), "Members fetched successfully")
	return
}

// Search lists members and applies filter.
func (s *MemberService) Search(ctx context.Context, filter MemberFilter) (Envelope[[]Member], error) {
	result, err := s.List(ctx)
	if err != nil {
		return result, err
	}
	result.Data = FilterMembers(result.Data, filter)
	return result, nil
}

// Get returns a single member.
func (s *MemberService) Get(ctx context.Context, id int) (result Envelope[Member], err error) {
	if s == nil {
		err = fmt.Errorf("MemberService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Get", "member_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to fetch member", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = s.simulator.Delay(ctx, LatencyGet); err != nil {
		return
	}

	members := s.members.Load(ctx)
	idx := indexOfMember(members, id)
	if idx < 0 {
		err = &NotFoundError{Resource: "Member", ID: id}
		return
	}

	result = envelope(members[idx], "Member fetched successfully")
	return
}

// Create appends a member with the next id. The status is derived from the
// expiry date and an invalid or missing amount becomes zero.
func (s *MemberService) Create(ctx context.Context, input MemberInput) (result Envelope[Member], err error) {
	if s == nil {
		err = fmt.Errorf("MemberService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_id", result.Data.ID, "status", result.Data.Status).InfoContext(ctx, "member created")
	}()

	if err = s.simulator.Delay(ctx, LatencyCreate); err != nil {
		return
	}

	var created Member
	_, err = s.members.Update(ctx, func(members []Member) ([]Member, error) {
		created = Member{
			ID:         nextMemberID(members),
			Name:       trimmed(input.Name),
			Email:      trimmed(input.Email),
			Phone:      trimmed(input.Phone),
			Plan:       trimmed(input.Plan),
			StartDate:  trimmed(input.StartDate),
			ExpiryDate: trimmed(input.ExpiryDate),
			DueAmount:  decimal.Zero,
		}
		if input.Amount != nil {
			if amount, ok := parseAmount(*input.Amount); ok {
				created.DueAmount = amount
			}
		}
		created.Status = deriveStatusFromDate(created.ExpiryDate, s.now())
		return append(members, created), nil
	})
	if err != nil {
		return
	}

	s.changed()
	result = envelope(created, "Member added successfully")
	return
}

// Update merges input over an existing member. An explicit status is stored
// verbatim; otherwise the status is re-derived from the effective expiry date.
// An amount replaces the due amount only when it parses.
func (s *MemberService) Update(ctx context.Context, id int, input MemberInput) (result Envelope[Member], err error) {
	if s == nil {
		err = fmt.Errorf("MemberService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update", "member_id", id, "status_override", input.Status != nil)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", result.Data.Status).InfoContext(ctx, "member updated")
	}()

	if input.Status != nil && !input.Status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be Active, Pending or Expired")
		err = vErr
		return
	}

	if err = s.simulator.Delay(ctx, LatencyUpdate); err != nil {
		return
	}

	var updated Member
	_, err = s.members.Update(ctx, func(members []Member) ([]Member, error) {
		idx := indexOfMember(members, id)
		if idx < 0 {
			return nil, &NotFoundError{Resource: "Member", ID: id}
		}

		updated = mergeMember(members[idx], input)
		if input.Status != nil {
			updated.Status = *input.Status
		} else {
			updated.Status = deriveStatusFromDate(updated.ExpiryDate, s.now())
		}
		members[idx] = updated
		return members, nil
	})
	if err != nil {
		return
	}

	s.changed()
	result = envelope(updated, "Member updated successfully")
	return
}

// Delete removes a member and returns it.
func (s *MemberService) Delete(ctx context.Context, id int) (result Envelope[Member], err error) {
	if s == nil {
		err = fmt.Errorf("MemberService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Delete", "member_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member deleted")
	}()

	if err = s.simulator.Delay(ctx, LatencyDelete); err != nil {
		return
	}

	var removed Member
	_, err = s.members.Update(ctx, func(members []Member) ([]Member, error) {
		idx := indexOfMember(members, id)
		if idx < 0 {
			return nil, &NotFoundError{Resource: "Member", ID: id}
		}
		removed = members[idx]
		return slices.Delete(members, idx, idx+1), nil
	})
	if err != nil {
		return
	}

	s.changed()
	result = envelope(removed, "Member deleted successfully")
	return
}

// Clear wipes persisted members so the next read yields the seed.
func (s *MemberService) Clear(ctx context.Context) (Envelope[struct{}], error) {
	if s == nil {
		return Envelope[struct{}]{}, fmt.Errorf("MemberService is nil")
	}
	s.members.Clear(ctx)
	s.changed()
	s.loggerWith(ctx, "Clear").InfoContext(ctx, "member data cleared")
	return envelope(struct{}{}, "Data cleared successfully"), nil
}

// FilterMembers applies a free-text search over name, email and phone plus
// exact status and plan matches.
func FilterMembers(members []Member, filter MemberFilter) []Member {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(strings.ToLower(m.Email), search) &&
			!strings.Contains(m.Phone, search) {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.Plan != "" && m.Plan != filter.Plan {
			continue
		}
		out = append(out, m)
	}
	return out
}

func mergeMember(existing Member, input MemberInput) Member {
	merged := existing
	if input.Name != nil {
		merged.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		merged.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		merged.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Plan != nil {
		merged.Plan = strings.TrimSpace(*input.Plan)
	}
	if input.StartDate != nil {
		merged.StartDate = strings.TrimSpace(*input.StartDate)
	}
	if input.ExpiryDate != nil {
		merged.ExpiryDate = strings.TrimSpace(*input.ExpiryDate)
	}
	if input.Amount != nil {
		if amount, ok := parseAmount(*input.Amount); ok {
			merged.DueAmount = amount
		}
	}
	return merged
}

func indexOfMember(members []Member, id int) int {
	return slices.IndexFunc(members, func(m Member) bool { return m.ID == id })
}

func nextMemberID(members []Member) int {
	next := 1
	for _, m := range members {
		if m.ID >= next {
			next = m.ID + 1
		}
	}
	return next
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// parseAmount reads a due amount the way a lenient form field would: the
// leading numeric prefix counts, negatives and non-numbers are rejected.
func parseAmount(raw string) (decimal.Decimal, bool) {
	match := leadingNumber.FindString(strings.TrimSpace(raw))
	if match == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimPrefix(match, "+"), "."))
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
