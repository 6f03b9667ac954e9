// Package memory provides an in-memory implementation of every store
// interface (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory holds all tables in maps guarded by one mutex.
type Memory struct {
	mu   sync.Mutex
	data *dataset
}

type dataset struct {
	holidays   map[string]holiday.PublicHoliday
	weekly     map[string]holiday.WeeklyRule
	exceptions map[string]holiday.Exception
	attendance map[string]attendance.Attendance
	breaks     map[string]attendance.BreakRecord
	requests   map[string]correction.Request
	effective  map[string]correction.EffectiveValue
}

func newDataset() *dataset {
	return &dataset{
		holidays:   make(map[string]holiday.PublicHoliday),
		weekly:     make(map[string]holiday.WeeklyRule),
		exceptions: make(map[string]holiday.Exception),
		attendance: make(map[string]attendance.Attendance),
		breaks:     make(map[string]attendance.BreakRecord),
		requests:   make(map[string]correction.Request),
		effective:  make(map[string]correction.EffectiveValue),
	}
}

func New() *Memory {
	return &Memory{data: newDataset()}
}

// Holidays returns the holiday store.
func (m *Memory) Holidays() holiday.Store { return holidayRepo{m} }

// Attendance returns the attendance store.
func (m *Memory) Attendance() attendance.Store { return attendanceRepo{m: m} }

// Corrections returns the correction request store.
func (m *Memory) Corrections() correction.Store { return correctionRepo{m: m} }

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = newDataset()
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(uow correction.UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(txView{m: m}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// txView runs against the same maps while WithTx holds the lock.
type txView struct {
	m *Memory
}

func (tv txView) Attendance() attendance.Store  { return attendanceRepo{m: tv.m, locked: true} }
func (tv txView) Corrections() correction.Store { return correctionRepo{m: tv.m, locked: true} }

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.holidays {
		c.holidays[k] = v
	}
	for k, v := range d.weekly {
		c.weekly[k] = v
	}
	for k, v := range d.exceptions {
		c.exceptions[k] = v
	}
	for k, v := range d.attendance {
		c.attendance[k] = v
	}
	for k, v := range d.breaks {
		c.breaks[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.effective {
		c.effective[k] = v
	}
	return c
}

// lock takes the mutex unless the caller already holds it inside WithTx.
func (m *Memory) lock(locked bool) func() {
	if locked {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

type holidayRepo struct {
	m *Memory
}

func (r holidayRepo) FindException(_ context.Context, userID string, date generic.Date) (*holiday.Exception, error) {
	defer r.m.lock(false)()
	for _, e := range r.m.data.exceptions {
		if e.UserID == userID && e.Date == date {
			return &e, nil
		}
	}
	return nil, nil
}

func (r holidayRepo) FindPublicHoliday(_ context.Context, date generic.Date) (*holiday.PublicHoliday, error) {
	defer r.m.lock(false)()
	for _, h := range r.m.data.holidays {
		if h.Date == date {
			return &h, nil
		}
	}
	return nil, nil
}

func (r holidayRepo) ListWeeklyRules(_ context.Context) ([]holiday.WeeklyRule, error) {
	defer r.m.lock(false)()
	rules := make([]holiday.WeeklyRule, 0, len(r.m.data.weekly))
	for _, w := range r.m.data.weekly {
		rules = append(rules, w)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].EnforcedFrom != rules[j].EnforcedFrom {
			return rules[i].EnforcedFrom.Before(rules[j].EnforcedFrom)
		}
		return rules[i].Weekday < rules[j].Weekday
	})
	return rules, nil
}

func (r holidayRepo) ListPublicHolidaysBetween(_ context.Context, from, to generic.Date) ([]holiday.PublicHoliday, error) {
	defer r.m.lock(false)()
	period := generic.Period{Start: from, End: to}
	var list []holiday.PublicHoliday
	for _, h := range r.m.data.holidays {
		if period.Contains(h.Date) {
			list = append(list, h)
		}
	}
	sortHolidays(list)
	return list, nil
}

func (r holidayRepo) ListExceptionsBetween(ctx context.Context, userID string, from, to generic.Date) ([]holiday.Exception, error) {
	return r.ListExceptions(ctx, userID, &from, &to)
}

func (r holidayRepo) SavePublicHoliday(_ context.Context, h holiday.PublicHoliday) error {
	defer r.m.lock(false)()
	for _, existing := range r.m.data.holidays {
		if existing.Date == h.Date && existing.ID != h.ID {
			return generic.ErrDuplicate
		}
	}
	r.m.data.holidays[h.ID] = h
	return nil
}

func (r holidayRepo) ListPublicHolidays(_ context.Context) ([]holiday.PublicHoliday, error) {
	defer r.m.lock(false)()
	list := make([]holiday.PublicHoliday, 0, len(r.m.data.holidays))
	for _, h := range r.m.data.holidays {
		list = append(list, h)
	}
	sortHolidays(list)
	return list, nil
}

func (r holidayRepo) DeletePublicHoliday(_ context.Context, id string) error {
	defer r.m.lock(false)()
	if _, ok := r.m.data.holidays[id]; !ok {
		return generic.ErrNotFound
	}
	delete(r.m.data.holidays, id)
	return nil
}

func (r holidayRepo) SaveWeeklyRule(_ context.Context, w holiday.WeeklyRule) error {
	defer r.m.lock(false)()
	r.m.data.weekly[w.ID] = w
	return nil
}

func (r holidayRepo) DeleteWeeklyRule(_ context.Context, id string) error {
	defer r.m.lock(false)()
	if _, ok := r.m.data.weekly[id]; !ok {
		return generic.ErrNotFound
	}
	delete(r.m.data.weekly, id)
	return nil
}

func (r holidayRepo) SaveException(_ context.Context, e holiday.Exception) error {
	defer r.m.lock(false)()
	for _, existing := range r.m.data.exceptions {
		if existing.UserID == e.UserID && existing.Date == e.Date && existing.ID != e.ID {
			return generic.ErrDuplicate
		}
	}
	r.m.data.exceptions[e.ID] = e
	return nil
}

func (r holidayRepo) ListExceptions(_ context.Context, userID string, from, to *generic.Date) ([]holiday.Exception, error) {
	defer r.m.lock(false)()
	var list []holiday.Exception
	for _, e := range r.m.data.exceptions {
		if e.UserID != userID {
			continue
		}
		if from != nil && e.Date.Before(*from) {
			continue
		}
		if to != nil && e.Date.After(*to) {
			continue
		}
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	return list, nil
}

func (r holidayRepo) DeleteException(_ context.Context, userID, id string) error {
	defer r.m.lock(false)()
	e, ok := r.m.data.exceptions[id]
	if !ok || e.UserID != userID {
		return generic.ErrNotFound
	}
	delete(r.m.data.exceptions, id)
	return nil
}

func sortHolidays(list []holiday.PublicHoliday) {
	sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

type attendanceRepo struct {
	m      *Memory
	locked bool
}

func (r attendanceRepo) FindByUserAndDate(_ context.Context, userID string, date generic.Date) (*attendance.Attendance, error) {
	defer r.m.lock(r.locked)()
	for _, a := range r.m.data.attendance {
		if a.UserID == userID && a.Date == date {
			return &a, nil
		}
	}
	return nil, nil
}

func (r attendanceRepo) FindByID(_ context.Context, id string) (*attendance.Attendance, error) {
	defer r.m.lock(r.locked)()
	if a, ok := r.m.data.attendance[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r attendanceRepo) Create(_ context.Context, a attendance.Attendance) error {
	defer r.m.lock(r.locked)()
	for _, existing := range r.m.data.attendance {
		if existing.UserID == a.UserID && existing.Date == a.Date {
			return generic.ErrDuplicate
		}
	}
	r.m.data.attendance[a.ID] = a
	return nil
}

func (r attendanceRepo) Update(_ context.Context, a attendance.Attendance) error {
	defer r.m.lock(r.locked)()
	if _, ok := r.m.data.attendance[a.ID]; !ok {
		return generic.ErrNotFound
	}
	r.m.data.attendance[a.ID] = a
	return nil
}

func (r attendanceRepo) ListBreaks(_ context.Context, attendanceID string) ([]attendance.BreakRecord, error) {
	defer r.m.lock(r.locked)()
	var list []attendance.BreakRecord
	for _, b := range r.m.data.breaks {
		if b.AttendanceID == attendanceID {
			list = append(list, b)
		}
	}
	attendance.SortBreaks(list)
	return list, nil
}

func (r attendanceRepo) FindBreak(_ context.Context, id string) (*attendance.BreakRecord, error) {
	defer r.m.lock(r.locked)()
	if b, ok := r.m.data.breaks[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r attendanceRepo) FindActiveBreak(_ context.Context, attendanceID string) (*attendance.BreakRecord, error) {
	defer r.m.lock(r.locked)()
	for _, b := range r.m.data.breaks {
		if b.AttendanceID == attendanceID && b.IsActive() {
			return &b, nil
		}
	}
	return nil, nil
}

func (r attendanceRepo) CreateBreak(_ context.Context, b attendance.BreakRecord) error {
	defer r.m.lock(r.locked)()
	if _, ok := r.m.data.attendance[b.AttendanceID]; !ok {
		return generic.ErrNotFound
	}
	r.m.data.breaks[b.ID] = b
	return nil
}

func (r attendanceRepo) UpdateBreak(_ context.Context, b attendance.BreakRecord) error {
	defer r.m.lock(r.locked)()
	if _, ok := r.m.data.breaks[b.ID]; !ok {
		return generic.ErrNotFound
	}
	r.m.data.breaks[b.ID] = b
	return nil
}

func (r attendanceRepo) DeleteBreaksByAttendance(_ context.Context, attendanceID string) error {
	defer r.m.lock(r.locked)()
	for id, b := range r.m.data.breaks {
		if b.AttendanceID == attendanceID {
			delete(r.m.data.breaks, id)
		}
	}
	return nil
}

// =============================================================================
// CORRECTION STORE
// =============================================================================

type correctionRepo struct {
	m      *Memory
	locked bool
}

func (r correctionRepo) Create(_ context.Context, req correction.Request) error {
	defer r.m.lock(r.locked)()
	if _, ok := r.m.data.requests[req.ID]; ok {
		return generic.ErrDuplicate
	}
	r.m.data.requests[req.ID] = req
	return nil
}

func (r correctionRepo) FindByID(_ context.Context, id string) (*correction.Request, error) {
	defer r.m.lock(r.locked)()
	if req, ok := r.m.data.requests[id]; ok {
		return &req, nil
	}
	return nil, nil
}

func (r correctionRepo) Save(_ context.Context, req correction.Request) error {
	defer r.m.lock(r.locked)()
	if _, ok := r.m.data.requests[req.ID]; !ok {
		return generic.ErrNotFound
	}
	r.m.data.requests[req.ID] = req
	return nil
}

func (r correctionRepo) ListByUser(_ context.Context, userID string) ([]correction.Request, error) {
	defer r.m.lock(r.locked)()
	var list []correction.Request
	for _, req := range r.m.data.requests {
		if req.UserID == userID {
			list = append(list, req)
		}
	}
	sortNewestFirst(list)
	return list, nil
}

func (r correctionRepo) List(_ context.Context, filter correction.ListFilter) ([]correction.Request, error) {
	defer r.m.lock(r.locked)()
	var list []correction.Request
	for _, req := range r.m.data.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.UserID != "" && req.UserID != filter.UserID {
			continue
		}
		list = append(list, req)
	}
	sortNewestFirst(list)

	start := filter.Offset()
	if start >= len(list) {
		return []correction.Request{}, nil
	}
	end := start + filter.PerPage
	if end > len(list) {
		end = len(list)
	}
	return list[start:end], nil
}

func (r correctionRepo) SaveEffectiveValue(_ context.Context, v correction.EffectiveValue) error {
	defer r.m.lock(r.locked)()
	if _, ok := r.m.data.effective[v.SourceRequestID]; ok {
		return generic.ErrDuplicate
	}
	r.m.data.effective[v.SourceRequestID] = v
	return nil
}

func (r correctionRepo) ListEffectiveValues(_ context.Context, attendanceID string) ([]correction.EffectiveValue, error) {
	defer r.m.lock(r.locked)()
	var list []correction.EffectiveValue
	for _, v := range r.m.data.effective {
		if v.AttendanceID == attendanceID {
			list = append(list, v)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AppliedAt.Before(list[j].AppliedAt) })
	return list, nil
}

func sortNewestFirst(list []correction.Request) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}
