// Package storetest provides in-memory implementations of the service store
// interfaces for tests. The stores mirror the Postgres repositories'
// semantics, including ownership predicates and the assignment upsert.
package storetest

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/careerlift/backend/internal/domain"
)

// DB is the shared in-memory state behind all stores.
type DB struct {
	mu sync.Mutex

	// Location defines "today" for submission counts.
	Location *time.Location
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
	// Err, when set, is returned by every store call.
	Err error

	users       map[string]*domain.User
	subs        map[string]*domain.Subscription
	assignments map[string]*domain.Assignment
	submissions map[string]*domain.Submission
	seq         map[string]int
	next        int
}

// New returns an empty DB using UTC.
func New() *DB {
	return &DB{
		Location:    time.UTC,
		Now:         time.Now,
		users:       make(map[string]*domain.User),
		subs:        make(map[string]*domain.Subscription),
		assignments: make(map[string]*domain.Assignment),
		submissions: make(map[string]*domain.Submission),
		seq:         make(map[string]int),
	}
}

func (db *DB) now() time.Time { return db.Now().UTC() }

func (db *DB) track(id string) {
	db.next++
	db.seq[id] = db.next
}

func (db *DB) Users() *Users                 { return &Users{db} }
func (db *DB) Subscriptions() *Subscriptions { return &Subscriptions{db} }
func (db *DB) Assignments() *Assignments     { return &Assignments{db} }
func (db *DB) Submissions() *Submissions     { return &Submissions{db} }
func (db *DB) Stats() *Stats                 { return &Stats{db} }

// AddUser seeds a user and returns a copy of it.
func (db *DB) AddUser(role, email, name string) *domain.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.now()
	u := &domain.User{ID: domain.NewID(), Email: strings.ToLower(email), Name: name, Role: role, CreatedAt: now, UpdatedAt: now}
	db.users[u.ID] = u
	db.track(u.ID)
	cp := *u
	return &cp
}

// AddSubscription seeds a subscription for userID with a one-month period.
func (db *DB) AddSubscription(userID, planType, status string) *domain.Subscription {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.now()
	s := &domain.Subscription{
		ID: domain.NewID(), UserID: userID, PlanType: planType, Status: status,
		CurrentPeriodStart: now, CurrentPeriodEnd: now.AddDate(0, 1, 0),
		CreatedAt: now, UpdatedAt: now,
	}
	db.subs[s.ID] = s
	db.track(s.ID)
	cp := *s
	return &cp
}

// SetSubscription overwrites a stored subscription.
func (db *DB) SetSubscription(s domain.Subscription) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.subs[s.ID] = &s
}

// AssignmentRows returns every assignment for a subscription.
func (db *DB) AssignmentRows(subscriptionID string) []domain.Assignment {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []domain.Assignment
	for _, a := range db.assignments {
		if a.SubscriptionID == subscriptionID {
			out = append(out, *a)
		}
	}
	return out
}

func (db *DB) sortBySeq(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return db.seq[ids[i]] < db.seq[ids[j]] })
}

// ---------------------------------------------------------------------------

// Users implements service.UserStore.
type Users struct{ db *DB }

func (s *Users) Upsert(_ context.Context, u *domain.User) (*domain.User, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	email := strings.ToLower(u.Email)
	for _, existing := range db.users {
		if existing.Email == email {
			if u.Name != "" {
				existing.Name = u.Name
			}
			existing.UpdatedAt = db.now()
			cp := *existing
			return &cp, nil
		}
	}
	now := db.now()
	row := &domain.User{ID: u.ID, Email: email, Name: u.Name, Role: u.Role, CreatedAt: now, UpdatedAt: now}
	db.users[row.ID] = row
	db.track(row.ID)
	cp := *row
	return &cp, nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	for _, u := range db.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Users) FindByID(_ context.Context, id string) (*domain.User, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	if u, ok := db.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *Users) List(_ context.Context, role string) ([]*domain.User, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	var ids []string
	for id, u := range db.users {
		if role == "" || u.Role == role {
			ids = append(ids, id)
		}
	}
	db.sortBySeq(ids)
	slices.Reverse(ids)
	out := []*domain.User{}
	for _, id := range ids {
		cp := *db.users[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Users) UpdateRole(_ context.Context, id, role string) (*domain.User, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	u, ok := db.users[id]
	if !ok {
		return nil, nil
	}
	u.Role = role
	u.UpdatedAt = db.now()
	cp := *u
	return &cp, nil
}

// ---------------------------------------------------------------------------

// Subscriptions implements service.SubscriptionStore.
type Subscriptions struct{ db *DB }

func (s *Subscriptions) find(match func(*domain.Subscription) bool) *domain.Subscription {
	var found *domain.Subscription
	for _, sub := range s.db.subs {
		if match(sub) && (found == nil || s.db.seq[sub.ID] > s.db.seq[found.ID]) {
			found = sub
		}
	}
	if found == nil {
		return nil
	}
	cp := *found
	return &cp
}

func (s *Subscriptions) FindByID(_ context.Context, id string) (*domain.Subscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	return s.find(func(sub *domain.Subscription) bool { return sub.ID == id }), nil
}

func (s *Subscriptions) FindByProviderID(_ context.Context, providerID string) (*domain.Subscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	return s.find(func(sub *domain.Subscription) bool {
		return sub.PaymentProviderID != nil && *sub.PaymentProviderID == providerID
	}), nil
}

func (s *Subscriptions) FindActiveByUserID(_ context.Context, userID string) (*domain.Subscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	return s.find(func(sub *domain.Subscription) bool {
		return sub.UserID == userID && sub.Status == domain.SubscriptionActive
	}), nil
}

func (s *Subscriptions) deactivateAssignments(subscriptionID string) {
	for _, a := range s.db.assignments {
		if a.SubscriptionID == subscriptionID && a.Status == domain.AssignmentActive {
			a.Status = domain.AssignmentInactive
			a.UpdatedAt = s.db.now()
		}
	}
}

func (s *Subscriptions) Activate(_ context.Context, sub *domain.Subscription) (*domain.Subscription, bool, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, false, db.Err
	}
	if sub.PaymentProviderID != nil {
		if existing := s.find(func(x *domain.Subscription) bool {
			return x.PaymentProviderID != nil && *x.PaymentProviderID == *sub.PaymentProviderID
		}); existing != nil {
			return existing, false, nil
		}
	}

	now := db.now()
	for _, other := range db.subs {
		if other.UserID == sub.UserID && other.Status == domain.SubscriptionActive && domain.IsRecruiterPlan(other.PlanType) {
			s.deactivateAssignments(other.ID)
			other.Status = domain.SubscriptionCanceled
			other.CanceledAt = &now
			other.UpdatedAt = now
		}
	}

	row := *sub
	row.Status = domain.SubscriptionActive
	row.CreatedAt, row.UpdatedAt = now, now
	db.subs[row.ID] = &row
	db.track(row.ID)
	cp := row
	return &cp, true, nil
}

func (s *Subscriptions) Renew(_ context.Context, providerID string, periodEnd time.Time) (*domain.Subscription, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	var sub *domain.Subscription
	for _, x := range db.subs {
		if x.PaymentProviderID != nil && *x.PaymentProviderID == providerID {
			sub = x
		}
	}
	if sub == nil {
		return nil, nil
	}
	for _, other := range db.subs {
		if other.ID != sub.ID && other.UserID == sub.UserID && other.Status == domain.SubscriptionActive &&
			domain.IsRecruiterPlan(other.PlanType) {
			return nil, domain.ErrConflict("user already has another active recruiter plan")
		}
	}
	sub.Status = domain.SubscriptionActive
	sub.CanceledAt = nil
	if periodEnd.After(sub.CurrentPeriodEnd) {
		sub.CurrentPeriodEnd = periodEnd
	}
	sub.UpdatedAt = db.now()
	cp := *sub
	return &cp, nil
}

func (s *Subscriptions) Cancel(_ context.Context, providerID string) (*domain.Subscription, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	for _, sub := range db.subs {
		if sub.PaymentProviderID == nil || *sub.PaymentProviderID != providerID {
			continue
		}
		now := db.now()
		sub.Status = domain.SubscriptionCanceled
		if sub.CanceledAt == nil {
			sub.CanceledAt = &now
		}
		sub.UpdatedAt = now
		s.deactivateAssignments(sub.ID)
		cp := *sub
		return &cp, nil
	}
	return nil, nil
}

func (s *Subscriptions) ExpireLapsed(_ context.Context, now time.Time) (int, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return 0, db.Err
	}
	n := 0
	for _, sub := range db.subs {
		if sub.Status == domain.SubscriptionActive && sub.CurrentPeriodEnd.Before(now) {
			s.deactivateAssignments(sub.ID)
			sub.Status = domain.SubscriptionExpired
			sub.UpdatedAt = db.now()
			n++
		}
	}
	return n, nil
}

func (s *Subscriptions) Queue(_ context.Context, filter string) ([]domain.QueueItem, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	var ids []string
	for id, sub := range db.subs {
		if sub.Status == domain.SubscriptionActive && domain.IsRecruiterPlan(sub.PlanType) {
			ids = append(ids, id)
		}
	}
	db.sortBySeq(ids)

	items := []domain.QueueItem{}
	for _, id := range ids {
		sub := db.subs[id]
		var active *domain.Assignment
		for _, a := range db.assignments {
			if a.SubscriptionID == id && a.Status == domain.AssignmentActive {
				active = a
			}
		}
		switch {
		case filter == domain.QueueUnassigned && active != nil:
			continue
		case filter == domain.QueueAssigned && active == nil:
			continue
		}
		item := domain.QueueItem{Subscription: *sub}
		if u, ok := db.users[sub.UserID]; ok {
			item.UserName, item.UserEmail = u.Name, u.Email
		}
		if plan, ok := domain.GetPlan(sub.PlanType); ok {
			item.PlanName, item.ApplicationsPerDay = plan.Name, plan.ApplicationsPerDay
		}
		if active != nil {
			aid, rid := active.ID, active.RecruiterID
			item.AssignmentID, item.AssignedRecruiter = &aid, &rid
		}
		items = append(items, item)
	}
	return items, nil
}

// ---------------------------------------------------------------------------

// Assignments implements service.AssignmentStore.
type Assignments struct{ db *DB }

func (s *Assignments) Upsert(_ context.Context, in domain.AssignmentUpsert) (*domain.Assignment, bool, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, false, db.Err
	}
	sub, ok := db.subs[in.SubscriptionID]
	if !ok || sub.Status != domain.SubscriptionActive {
		return nil, false, domain.ErrSubscriptionNotActive
	}

	now := db.now()
	for _, a := range db.assignments {
		if a.SubscriptionID != in.SubscriptionID {
			continue
		}
		a.RecruiterID = in.RecruiterID
		a.Status = domain.AssignmentActive
		a.Notes = in.Notes
		a.PlanType = sub.PlanType
		a.ApplicationsPerDay = domain.DailyQuota(sub.PlanType)
		a.AssignedAt = now
		a.UpdatedAt = now
		cp := *a
		return &cp, true, nil
	}

	a := &domain.Assignment{
		ID:                 domain.NewID(),
		SubscriptionID:     sub.ID,
		JobSeekerID:        sub.UserID,
		RecruiterID:        in.RecruiterID,
		Status:             domain.AssignmentActive,
		PlanType:           sub.PlanType,
		ApplicationsPerDay: domain.DailyQuota(sub.PlanType),
		Notes:              in.Notes,
		AssignedAt:         now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	db.assignments[a.ID] = a
	db.track(a.ID)
	cp := *a
	return &cp, false, nil
}

func (s *Assignments) view(a *domain.Assignment) domain.AssignmentView {
	db := s.db
	v := domain.AssignmentView{Assignment: *a}
	if u, ok := db.users[a.JobSeekerID]; ok {
		v.JobSeekerName, v.JobSeekerEmail = u.Name, u.Email
	}
	if u, ok := db.users[a.RecruiterID]; ok {
		v.RecruiterName, v.RecruiterEmail = u.Name, u.Email
	}
	if sub, ok := db.subs[a.SubscriptionID]; ok {
		v.SubscriptionStatus, v.CurrentPeriodEnd, v.SubscriptionPlanNow = sub.Status, sub.CurrentPeriodEnd, sub.PlanType
	}
	today := db.Now().In(db.Location).Format(time.DateOnly)
	for _, sub := range db.submissions {
		if sub.AssignmentID != a.ID {
			continue
		}
		v.TotalCount++
		if sub.SubmittedAt.In(db.Location).Format(time.DateOnly) == today {
			v.TodayCount++
		}
	}
	v.FillRemaining()
	return v
}

func (s *Assignments) findView(match func(*domain.Assignment) bool) (*domain.AssignmentView, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	var found *domain.Assignment
	for _, a := range db.assignments {
		if match(a) && (found == nil || a.AssignedAt.After(found.AssignedAt)) {
			found = a
		}
	}
	if found == nil {
		return nil, nil
	}
	v := s.view(found)
	return &v, nil
}

func (s *Assignments) FindByID(_ context.Context, id string) (*domain.AssignmentView, error) {
	return s.findView(func(a *domain.Assignment) bool { return a.ID == id })
}

func (s *Assignments) FindForRecruiter(_ context.Context, id, recruiterID string) (*domain.AssignmentView, error) {
	return s.findView(func(a *domain.Assignment) bool { return a.ID == id && a.RecruiterID == recruiterID })
}

func (s *Assignments) FindActiveForJobSeeker(_ context.Context, jobSeekerID string) (*domain.AssignmentView, error) {
	return s.findView(func(a *domain.Assignment) bool {
		return a.JobSeekerID == jobSeekerID && a.Status == domain.AssignmentActive
	})
}

func (s *Assignments) List(_ context.Context, f domain.AssignmentFilter) ([]domain.AssignmentView, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	views := []domain.AssignmentView{}
	for _, a := range db.assignments {
		if (f.Status == "" || a.Status == f.Status) && (f.RecruiterID == "" || a.RecruiterID == f.RecruiterID) {
			views = append(views, s.view(a))
		}
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].AssignedAt.Equal(views[j].AssignedAt) {
			return db.seq[views[i].ID] > db.seq[views[j].ID]
		}
		return views[i].AssignedAt.After(views[j].AssignedAt)
	})
	return views, nil
}

func (s *Assignments) Update(_ context.Context, id string, p domain.AssignmentPatch) (*domain.Assignment, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	a, ok := db.assignments[id]
	if !ok {
		return nil, nil
	}
	if p.RecruiterID != nil {
		a.RecruiterID = *p.RecruiterID
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		notes := *p.Notes
		a.Notes = &notes
	}
	a.UpdatedAt = db.now()
	cp := *a
	return &cp, nil
}

// ---------------------------------------------------------------------------

// Submissions implements service.SubmissionStore.
type Submissions struct{ db *DB }

func copySubmission(s *domain.Submission) *domain.Submission {
	cp := *s
	cp.StatusHistory = append([]byte(nil), s.StatusHistory...)
	return &cp
}

func (s *Submissions) Create(_ context.Context, in *domain.Submission) (*domain.Submission, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	a, ok := db.assignments[in.AssignmentID]
	if !ok || a.RecruiterID != in.RecruiterID || a.Status != domain.AssignmentActive {
		return nil, nil
	}
	now := db.now()
	row := copySubmission(in)
	row.JobSeekerID = a.JobSeekerID
	row.RecruiterID = a.RecruiterID
	row.StatusHistory = json.RawMessage(`[]`)
	row.CreatedAt, row.UpdatedAt = now, now
	db.submissions[row.ID] = row
	db.track(row.ID)
	return copySubmission(row), nil
}

func (s *Submissions) FindForRecruiter(_ context.Context, id, recruiterID string) (*domain.Submission, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	sub, ok := db.submissions[id]
	if !ok || !db.heldBy(sub, recruiterID) {
		return nil, nil
	}
	return copySubmission(sub), nil
}

// heldBy reports whether recruiterID logged sub and still holds its assignment.
func (db *DB) heldBy(sub *domain.Submission, recruiterID string) bool {
	if sub.RecruiterID != recruiterID {
		return false
	}
	a, ok := db.assignments[sub.AssignmentID]
	return ok && a.RecruiterID == recruiterID
}

func (s *Submissions) List(_ context.Context, f domain.SubmissionFilter) ([]domain.Submission, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	out := []domain.Submission{}
	for _, sub := range db.submissions {
		if f.RecruiterID != "" && !db.heldBy(sub, f.RecruiterID) {
			continue
		}
		if f.JobSeekerID != "" && sub.JobSeekerID != f.JobSeekerID {
			continue
		}
		if f.AssignmentID != "" && sub.AssignmentID != f.AssignmentID {
			continue
		}
		if f.Status != "" && sub.Status != f.Status {
			continue
		}
		out = append(out, *copySubmission(sub))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return db.seq[out[i].ID] > db.seq[out[j].ID]
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Submissions) Update(_ context.Context, id, recruiterID string, p domain.SubmissionPatch) (*domain.Submission, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	sub, ok := db.submissions[id]
	if !ok || !db.heldBy(sub, recruiterID) {
		return nil, nil
	}

	if p.Status != nil {
		sub.Status = *p.Status
	}
	if p.Notes != nil {
		v := *p.Notes
		sub.Notes = &v
	}
	if p.FeedbackReceived != nil {
		sub.FeedbackReceived = *p.FeedbackReceived
	}
	if p.FeedbackDate != nil {
		v := *p.FeedbackDate
		sub.FeedbackDate = &v
	}
	if p.FeedbackNotes != nil {
		v := *p.FeedbackNotes
		sub.FeedbackNotes = &v
	}
	if p.History != nil {
		var hist []domain.StatusChange
		_ = json.Unmarshal(sub.StatusHistory, &hist)
		hist = append(hist, *p.History)
		raw, err := json.Marshal(hist)
		if err != nil {
			return nil, err
		}
		sub.StatusHistory = raw
	}
	sub.UpdatedAt = db.now()
	return copySubmission(sub), nil
}

func (s *Submissions) CountByStatus(_ context.Context, jobSeekerID string) (map[string]int, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	counts := make(map[string]int)
	for _, sub := range db.submissions {
		if sub.JobSeekerID == jobSeekerID {
			counts[string(sub.Status)]++
		}
	}
	return counts, nil
}

// ---------------------------------------------------------------------------

// Stats implements service.StatsStore.
type Stats struct{ db *DB }

func (s *Stats) Collect(_ context.Context) (*domain.AdminStats, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return nil, db.Err
	}
	st := &domain.AdminStats{UsersByRole: map[string]int{}, SubmissionsByStatus: map[string]int{}}
	for _, u := range db.users {
		st.UsersByRole[u.Role]++
	}
	assigned := map[string]bool{}
	for _, a := range db.assignments {
		if a.Status == domain.AssignmentActive {
			st.ActiveAssignments++
			assigned[a.SubscriptionID] = true
		}
	}
	for _, sub := range db.subs {
		if sub.Status == domain.SubscriptionActive && domain.IsRecruiterPlan(sub.PlanType) {
			st.ActiveSubscriptions++
			if !assigned[sub.ID] {
				st.UnassignedSubscriptions++
			}
		}
	}
	today := db.Now().In(db.Location).Format(time.DateOnly)
	for _, sub := range db.submissions {
		st.SubmissionsTotal++
		st.SubmissionsByStatus[string(sub.Status)]++
		if sub.SubmittedAt.In(db.Location).Format(time.DateOnly) == today {
			st.SubmissionsToday++
		}
	}
	return st, nil
}
