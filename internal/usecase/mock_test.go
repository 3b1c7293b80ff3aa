//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/usecase"
)

// =============================
// Repositories
// =============================

// ---- In-memory TransactionRepository ----

type MockTransactionRepo struct {
	mu    sync.Mutex
	byRef map[string]*model.Transaction

	SaveFunc               func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
	FindByReferenceFunc    func(ctx context.Context, tx repository.Tx, reference string) (*model.Transaction, error)
	UpdateStatusIfOpenFunc func(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus, method *string) (bool, error)

	casCalls int
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{byRef: map[string]*model.Transaction{}}
}

func (r *MockTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRef[t.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *t
	r.byRef[t.Reference] = &cp
	return nil
}

func (r *MockTransactionRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Transaction, error) {
	if r.FindByReferenceFunc != nil {
		return r.FindByReferenceFunc(ctx, tx, reference)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byRef[reference]
	if !ok || t.IsDeleted() {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MockTransactionRepo) UpdateStatusIfOpen(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus, method *string) (bool, error) {
	r.mu.Lock()
	r.casCalls++
	r.mu.Unlock()
	if r.UpdateStatusIfOpenFunc != nil {
		return r.UpdateStatusIfOpenFunc(ctx, tx, reference, status, method)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byRef[reference]
	if !ok || t.IsDeleted() || t.Status.IsTerminal() {
		return false, nil
	}
	t.Status = status
	if method != nil {
		m := *method
		t.PaymentMethod = &m
	}
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockTransactionRepo) ListDueForSweep(ctx context.Context, tx repository.Tx, w repository.SweepWindow) ([]*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Transaction
	for _, t := range r.byRef {
		if !t.Status.IsTerminal() && !t.IsDeleted() && t.CreatedAt.Before(w.CreatedBefore) && !t.CreatedAt.Before(w.CreatedAfter) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockTransactionRepo) MarkSwept(ctx context.Context, tx repository.Tx, reference string, at time.Time) error {
	return nil
}

func (r *MockTransactionRepo) ListAcceptedWithoutVoucher(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	return nil, nil
}

func (r *MockTransactionRepo) status(reference string) model.PaymentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byRef[reference]; ok {
		return t.Status
	}
	return ""
}

func (r *MockTransactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRef)
}

// ---- In-memory PackageRepository ----

type MockPackageRepo struct {
	mu   sync.Mutex
	data map[string]*model.Package

	FindByIDFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.Package, error)
	MarkSyncedFunc func(ctx context.Context, tx repository.Tx, id, profileName string) error
}

var _ repository.PackageRepository = (*MockPackageRepo)(nil)

func NewMockPackageRepo() *MockPackageRepo {
	return &MockPackageRepo{data: map[string]*model.Package{}}
}

func (r *MockPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPackageRepo) MarkSynced(ctx context.Context, tx repository.Tx, id, profileName string) error {
	if r.MarkSyncedFunc != nil {
		return r.MarkSyncedFunc(ctx, tx, id, profileName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ProfileName = profileName
	p.IsSynced = true
	return nil
}

// ---- In-memory VoucherRepository ----

type MockVoucherRepo struct {
	mu   sync.Mutex
	byTx map[string]*model.Voucher
	used map[string]bool

	SaveFunc             func(ctx context.Context, tx repository.Tx, v *model.Voucher) error
	ExistsByUsernameFunc func(ctx context.Context, tx repository.Tx, username string) (bool, error)
}

var _ repository.VoucherRepository = (*MockVoucherRepo)(nil)

func NewMockVoucherRepo() *MockVoucherRepo {
	return &MockVoucherRepo{byTx: map[string]*model.Voucher{}, used: map[string]bool{}}
}

func (r *MockVoucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, v)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTx[v.TransactionID]; ok || r.used[v.Username] {
		return domain.ErrAlreadyExists
	}
	cp := *v
	r.byTx[v.TransactionID] = &cp
	r.used[v.Username] = true
	return nil
}

func (r *MockVoucherRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byTx[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *MockVoucherRepo) ExistsByUsername(ctx context.Context, tx repository.Tx, username string) (bool, error) {
	if r.ExistsByUsernameFunc != nil {
		return r.ExistsByUsernameFunc(ctx, tx, username)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used[username], nil
}

func (r *MockVoucherRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTx)
}

// ---- In-memory UserRepository ----

type MockUserRepo struct {
	mu   sync.Mutex
	data map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{data: map[string]*model.User{}}
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.data[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ---- TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

// ---- PaymentGateway ----

type MockPaymentGateway struct {
	mu          sync.Mutex
	verifyCalls int

	InitializeFunc func(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutResult, error)
	VerifyFunc     func(ctx context.Context, reference string) (*adapter.Verification, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) Initialize(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutResult, error) {
	if g.InitializeFunc != nil {
		return g.InitializeFunc(ctx, req)
	}
	url := "https://checkout.test/" + req.Reference
	return &adapter.CheckoutResult{
		Code:       "201",
		Message:    "CREATED",
		PaymentURL: url,
		Raw:        map[string]any{"code": "201", "data": map[string]any{"payment_url": url}},
	}, nil
}

func (g *MockPaymentGateway) Verify(ctx context.Context, reference string) (*adapter.Verification, error) {
	g.mu.Lock()
	g.verifyCalls++
	g.mu.Unlock()
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ctx, reference)
	}
	return nil, errors.New("verify not configured")
}

func (g *MockPaymentGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls
}

// verifies returns a VerifyFunc reporting status and method for every reference.
func verifies(status, method string) func(ctx context.Context, reference string) (*adapter.Verification, error) {
	return func(ctx context.Context, reference string) (*adapter.Verification, error) {
		return &adapter.Verification{
			Code: "00",
			Data: &adapter.VerificationData{Status: status, PaymentMethod: method, TransactionID: reference, Amount: "500"},
		}, nil
	}
}

// ---- ProfileProvisioner ----

type MockRouter struct {
	mu       sync.Mutex
	created  []string
	profiles []string

	CreateVoucherFunc func(ctx context.Context, username, password, profile string) (string, error)
	EnsureProfileFunc func(ctx context.Context, pkg *model.Package) (string, error)
}

var _ adapter.ProfileProvisioner = (*MockRouter)(nil)

func (m *MockRouter) EnsureProfile(ctx context.Context, pkg *model.Package) (string, error) {
	m.mu.Lock()
	m.profiles = append(m.profiles, pkg.ID)
	m.mu.Unlock()
	if m.EnsureProfileFunc != nil {
		return m.EnsureProfileFunc(ctx, pkg)
	}
	return pkg.DeriveProfileName(), nil
}

func (m *MockRouter) CreateVoucher(ctx context.Context, username, password, profile string) (string, error) {
	if m.CreateVoucherFunc != nil {
		if _, err := m.CreateVoucherFunc(ctx, username, password, profile); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, username)
	return username, nil
}

func (m *MockRouter) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

// ---- Notifier / Alerter / TaskQueue ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []adapter.PaymentConfirmation
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (n *MockNotifier) SendPaymentConfirmation(ctx context.Context, msg adapter.PaymentConfirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, msg)
	return nil
}

func (n *MockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}

type MockAlerter struct {
	mu     sync.Mutex
	Alerts []string
}

var _ adapter.OperatorAlerter = (*MockAlerter)(nil)

func (a *MockAlerter) Alert(ctx context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Alerts = append(a.Alerts, text)
	return nil
}

func (a *MockAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Alerts)
}

// InlineQueue runs submitted tasks synchronously so tests can observe them.
type InlineQueue struct {
	mu        sync.Mutex
	submitted int
	SubmitErr error
}

var _ adapter.TaskQueue = (*InlineQueue)(nil)

func (q *InlineQueue) Submit(task func(ctx context.Context) error) error {
	if q.SubmitErr != nil {
		return q.SubmitErr
	}
	q.mu.Lock()
	q.submitted++
	q.mu.Unlock()
	return task(context.Background())
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLockNotAcquired
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// =============================
// Fixtures
// =============================

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

type world struct {
	transactions *MockTransactionRepo
	packages     *MockPackageRepo
	vouchers     *MockVoucherRepo
	users        *MockUserRepo
	gateway      *MockPaymentGateway
	router       *MockRouter
	notifier     *MockNotifier
	alerter      *MockAlerter
	queue        *InlineQueue
	locker       *MockLocker
	tm           *MockTxManager

	user *model.User
	pkg  *model.Package
}

// newWorld builds a user with an e-mail and a synced package "5H-1M".
func newWorld() *world {
	w := &world{
		transactions: NewMockTransactionRepo(),
		packages:     NewMockPackageRepo(),
		vouchers:     NewMockVoucherRepo(),
		users:        NewMockUserRepo(),
		gateway:      &MockPaymentGateway{},
		router:       &MockRouter{},
		notifier:     &MockNotifier{},
		alerter:      &MockAlerter{},
		queue:        &InlineQueue{},
		locker:       NewMockLocker(),
		tm:           NewMockTxManager(),
	}
	ctx := context.Background()
	w.user, _ = model.NewUser(uuid.NewString(), "alice", "alice@example.com")
	_ = w.users.Save(ctx, nil, w.user)
	w.pkg, _ = model.NewPackage(uuid.NewString(), "5 hours", decimal.NewFromInt(500), 5, "1M/1M")
	w.pkg.ProfileName = "5H-1M"
	w.pkg.IsSynced = true
	_ = w.packages.Save(ctx, nil, w.pkg)
	return w
}

// pending stores a PENDING transaction for the world's user and package.
func (w *world) pending(reference string) *model.Transaction {
	t, _ := model.NewTransaction(uuid.NewString(), reference, w.user.ID, w.pkg.ID, decimal.NewFromInt(500), "XOF", "")
	_ = w.transactions.Save(context.Background(), nil, t)
	return t
}

func (w *world) provisioning() usecase.ProvisioningUseCase {
	return usecase.NewProvisioningUseCase(w.packages, w.vouchers, w.users, w.router, w.notifier, w.alerter, w.queue,
		usecase.ProvisioningOptions{CodeLength: 8, MaxCodeAttempts: 3}, newTestLogger())
}

func (w *world) reconciler() usecase.ReconcileUseCase {
	return usecase.NewReconcileUseCase(w.transactions, w.gateway, w.provisioning(), w.locker,
		usecase.ReconcileOptions{VerifyTimeout: time.Second, LockTTL: time.Minute}, newTestLogger())
}
