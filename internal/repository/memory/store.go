// Package memory is an in-process implementation of the repository
// interfaces, used for local development and service tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/repository"
)

type journalKey struct{}

// journal collects undo steps for writes made inside WithinTx.
type journal struct {
	undo []func()
}

type Store struct {
	mu            sync.Mutex
	agreements    map[string]*domain.RentalAgreement
	earlyReturns  map[string]*domain.EarlyReturnRequest
	extensions    map[string]*domain.ExtensionRequest
	users         map[string]*domain.User
	notifications []domain.Notification
	balances      map[string]domain.Amount
	walletTxs     map[string]*domain.WalletTransaction
	nextID        int64
}

func NewStore() *Store {
	return &Store{
		agreements:   make(map[string]*domain.RentalAgreement),
		earlyReturns: make(map[string]*domain.EarlyReturnRequest),
		extensions:   make(map[string]*domain.ExtensionRequest),
		users:        make(map[string]*domain.User),
		balances:     make(map[string]domain.Amount),
		walletTxs:    make(map[string]*domain.WalletTransaction),
	}
}

// Repository views over the shared store.

func (s *Store) Transactor() repository.Transactor {
	return s
}

func (s *Store) Agreements() repository.RentalAgreementRepository {
	return agreementRepo{s}
}

func (s *Store) EarlyReturns() repository.EarlyReturnRepository {
	return earlyReturnRepo{s}
}

func (s *Store) Extensions() repository.ExtensionRepository {
	return extensionRepo{s}
}

func (s *Store) Users() repository.UserRepository {
	return userRepo{s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return notificationRepo{s}
}

func (s *Store) Wallets() repository.WalletRepository {
	return walletRepo{s}
}

// WithinTx runs fn and reverts every write it made through this store if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// record registers an undo step; callers hold s.mu.
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// PutAgreement stores a copy of a. Version defaults to 1 and the signed
// period to the current one.
func (s *Store) PutAgreement(a *domain.RentalAgreement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := a.Clone()
	if c.Version == 0 {
		c.Version = 1
	}
	if c.ContractPeriod.StartDate.IsZero() {
		c.ContractPeriod = c.RentalPeriod
	}
	s.agreements[c.ID] = c
}

func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.users[u.ID] = &c
}

func (s *Store) SetBalance(userID string, amount domain.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = amount
}

// NotificationsFor returns the stored notifications of userID, oldest first.
func (s *Store) NotificationsFor(userID string) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func paginate[T any](items []T, limit, offset int32) []T {
	if offset >= int32(len(items)) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > int32(len(items)) {
		end = int32(len(items))
	}
	return items[offset:end]
}

func containsStatus[S comparable](statuses []S, s S) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

type agreementRepo struct{ s *Store }

func (r agreementRepo) GetByID(ctx context.Context, id string) (*domain.RentalAgreement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agreements[id]
	if !ok {
		return nil, domain.NewNotFound("sub-order", id)
	}
	return a.Clone(), nil
}

func (r agreementRepo) Update(ctx context.Context, a *domain.RentalAgreement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.agreements[a.ID]
	if !ok {
		return domain.NewNotFound("sub-order", a.ID)
	}
	if current.Version != a.Version {
		return domain.NewStaleRequest("sub-order was modified concurrently", a.ID, string(current.Status))
	}
	a.Version++
	a.UpdatedAt = time.Now()
	r.s.agreements[a.ID] = a.Clone()
	record(ctx, func() { r.s.agreements[current.ID] = current })
	return nil
}

type earlyReturnRepo struct{ s *Store }

func copyEarlyReturn(req *domain.EarlyReturnRequest) *domain.EarlyReturnRequest {
	c := *req
	if req.ReturnAddress != nil {
		addr := *req.ReturnAddress
		c.ReturnAddress = &addr
	}
	if req.OwnerConfirmation != nil {
		oc := *req.OwnerConfirmation
		c.OwnerConfirmation = &oc
	}
	return &c
}

func (r earlyReturnRepo) liveFor(subOrderID, exceptID string) *domain.EarlyReturnRequest {
	for _, req := range r.s.earlyReturns {
		if req.SubOrderID == subOrderID && req.ID != exceptID && !req.IsDeleted() && !req.Status.IsTerminal() {
			return req
		}
	}
	return nil
}

func (r earlyReturnRepo) Create(ctx context.Context, req *domain.EarlyReturnRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if live := r.liveFor(req.SubOrderID, req.ID); live != nil {
		return domain.NewDuplicateActiveRequest(live.ID, string(live.Status))
	}
	r.s.earlyReturns[req.ID] = copyEarlyReturn(req)
	record(ctx, func() { delete(r.s.earlyReturns, req.ID) })
	return nil
}

func (r earlyReturnRepo) GetByID(ctx context.Context, id string) (*domain.EarlyReturnRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.earlyReturns[id]
	if !ok {
		return nil, domain.NewNotFound("early return request", id)
	}
	return copyEarlyReturn(req), nil
}

func (r earlyReturnRepo) Update(ctx context.Context, req *domain.EarlyReturnRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	previous, ok := r.s.earlyReturns[req.ID]
	if !ok {
		return domain.NewNotFound("early return request", req.ID)
	}
	r.s.earlyReturns[req.ID] = copyEarlyReturn(req)
	record(ctx, func() { r.s.earlyReturns[previous.ID] = previous })
	return nil
}

func (r earlyReturnRepo) FindLiveBySubOrder(ctx context.Context, subOrderID string) (*domain.EarlyReturnRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if live := r.liveFor(subOrderID, ""); live != nil {
		return copyEarlyReturn(live), nil
	}
	return nil, nil
}

func (r earlyReturnRepo) list(match func(*domain.EarlyReturnRequest) bool) []domain.EarlyReturnRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.EarlyReturnRequest
	for _, req := range r.s.earlyReturns {
		if !req.IsDeleted() && match(req) {
			out = append(out, *copyEarlyReturn(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r earlyReturnRepo) ListByRenter(ctx context.Context, renterID string, statuses []domain.EarlyReturnStatus, limit, offset int32) ([]domain.EarlyReturnRequest, int32, error) {
	all := r.list(func(req *domain.EarlyReturnRequest) bool {
		return req.RenterID == renterID && containsStatus(statuses, req.Status)
	})
	return paginate(all, limit, offset), int32(len(all)), nil
}

func (r earlyReturnRepo) ListByOwner(ctx context.Context, ownerID string, statuses []domain.EarlyReturnStatus, limit, offset int32) ([]domain.EarlyReturnRequest, int32, error) {
	all := r.list(func(req *domain.EarlyReturnRequest) bool {
		return req.OwnerID == ownerID && containsStatus(statuses, req.Status)
	})
	return paginate(all, limit, offset), int32(len(all)), nil
}

func (r earlyReturnRepo) ListReturnedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.EarlyReturnRequest, error) {
	all := r.list(func(req *domain.EarlyReturnRequest) bool {
		return req.Status == domain.EarlyReturnStatusReturned && req.ReturnedAt != nil && !req.ReturnedAt.After(cutoff)
	})
	return paginate(all, limit, 0), nil
}

func (r earlyReturnRepo) ListAwaitingShipment(ctx context.Context, after repository.SweepCursor, limit int32) ([]domain.EarlyReturnRequest, error) {
	all := r.list(func(req *domain.EarlyReturnRequest) bool {
		waiting := req.Status == domain.EarlyReturnStatusPending || req.Status == domain.EarlyReturnStatusAcknowledged
		return waiting && after.Precedes(req)
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return paginate(all, limit, 0), nil
}

type extensionRepo struct{ s *Store }

func copyExtension(req *domain.ExtensionRequest) *domain.ExtensionRequest {
	c := *req
	if req.OwnerResponse != nil {
		resp := *req.OwnerResponse
		c.OwnerResponse = &resp
	}
	return &c
}

func (r extensionRepo) pendingFor(subOrderID, exceptID string) *domain.ExtensionRequest {
	for _, req := range r.s.extensions {
		if req.SubOrderID == subOrderID && req.ID != exceptID && req.Status == domain.ExtensionStatusPending {
			return req
		}
	}
	return nil
}

func (r extensionRepo) Create(ctx context.Context, req *domain.ExtensionRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if pending := r.pendingFor(req.SubOrderID, req.ID); pending != nil {
		return domain.NewDuplicateActiveRequest(pending.ID, string(pending.Status))
	}
	r.s.extensions[req.ID] = copyExtension(req)
	record(ctx, func() { delete(r.s.extensions, req.ID) })
	return nil
}

func (r extensionRepo) GetByID(ctx context.Context, id string) (*domain.ExtensionRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.extensions[id]
	if !ok {
		return nil, domain.NewNotFound("extension request", id)
	}
	return copyExtension(req), nil
}

func (r extensionRepo) Update(ctx context.Context, req *domain.ExtensionRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	previous, ok := r.s.extensions[req.ID]
	if !ok {
		return domain.NewNotFound("extension request", req.ID)
	}
	r.s.extensions[req.ID] = copyExtension(req)
	record(ctx, func() { r.s.extensions[previous.ID] = previous })
	return nil
}

func (r extensionRepo) FindPendingBySubOrder(ctx context.Context, subOrderID string) (*domain.ExtensionRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if pending := r.pendingFor(subOrderID, ""); pending != nil {
		return copyExtension(pending), nil
	}
	return nil, nil
}

func (r extensionRepo) list(match func(*domain.ExtensionRequest) bool) []domain.ExtensionRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ExtensionRequest
	for _, req := range r.s.extensions {
		if match(req) {
			out = append(out, *copyExtension(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}

func (r extensionRepo) ListByRenter(ctx context.Context, renterID string, statuses []domain.ExtensionStatus, limit, offset int32) ([]domain.ExtensionRequest, int32, error) {
	all := r.list(func(req *domain.ExtensionRequest) bool {
		return req.RenterID == renterID && containsStatus(statuses, req.Status)
	})
	return paginate(all, limit, offset), int32(len(all)), nil
}

func (r extensionRepo) ListByOwner(ctx context.Context, ownerID string, statuses []domain.ExtensionStatus, limit, offset int32) ([]domain.ExtensionRequest, int32, error) {
	all := r.list(func(req *domain.ExtensionRequest) bool {
		return req.OwnerID == ownerID && containsStatus(statuses, req.Status)
	})
	return paginate(all, limit, offset), int32(len(all)), nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NewNotFound("user", id)
	}
	c := *u
	return &c, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	n.ID = r.s.nextID
	n.CreatedOn = time.Now().Format("2006-01-02")
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r notificationRepo) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var mine []domain.Notification
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		if r.s.notifications[i].UserID == userID {
			mine = append(mine, r.s.notifications[i])
		}
	}
	return paginate(mine, limit, offset), int32(len(mine)), nil
}

func (r notificationRepo) MarkAsRead(ctx context.Context, id int64, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id && r.s.notifications[i].UserID == userID {
			r.s.notifications[i].IsRead = true
			return nil
		}
	}
	return domain.NewNotFound("notification", strconv.FormatInt(id, 10))
}

type walletRepo struct{ s *Store }

func (r walletRepo) insert(tx *domain.WalletTransaction) {
	r.s.nextID++
	tx.ID = r.s.nextID
	tx.CreatedOn = time.Now()
	c := *tx
	r.s.walletTxs[tx.IdempotencyKey] = &c
}

func (r walletRepo) DebitIfSufficient(ctx context.Context, tx *domain.WalletTransaction) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	balance := r.s.balances[tx.UserID]
	if balance+tx.Amount < 0 {
		return false, nil
	}
	r.s.balances[tx.UserID] = balance + tx.Amount
	r.insert(tx)
	return true, nil
}

func (r walletRepo) Credit(ctx context.Context, tx *domain.WalletTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.balances[tx.UserID] += tx.Amount
	r.insert(tx)
	return nil
}

func (r walletRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.walletTxs[key]
	if !ok {
		return nil, nil
	}
	c := *tx
	return &c, nil
}

func (r walletRepo) GetBalance(ctx context.Context, userID string) (domain.Amount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.balances[userID], nil
}
