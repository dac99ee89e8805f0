package services

import (
	"context"
	"sync"
	"testing"

	"procure-backend/internal/models"
	"procure-backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fakeRequestStore) GetByRequestID(ctx context.Context, requestID string) (*models.Request, error) {
	for _, req := range f.requests {
		if req.RequestID == requestID {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserDir) ListAdmins(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.users {
		if u.Role == models.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeQuoteStore is mutex-guarded so approval races can be exercised the way
// the transactional SQL path serializes them.
type fakeQuoteStore struct {
	mu     sync.Mutex
	nextID int
	quotes map[int]*models.Quote
}

func newFakeQuoteStore() *fakeQuoteStore {
	return &fakeQuoteStore{nextID: 1, quotes: make(map[int]*models.Quote)}
}

func (f *fakeQuoteStore) hasQuote(requestRef, vendorID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.quotes {
		if q.RequestRef == requestRef && q.VendorID == vendorID {
			return true
		}
	}
	return false
}

func (f *fakeQuoteStore) Create(ctx context.Context, q *models.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.quotes {
		if existing.RequestRef == q.RequestRef && existing.VendorID == q.VendorID {
			return repositories.ErrDuplicateQuote
		}
	}
	q.ID = f.nextID
	f.nextID++
	cp := *q
	f.quotes[q.ID] = &cp
	return nil
}

func (f *fakeQuoteStore) GetByID(ctx context.Context, id int) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuoteStore) ExistsForVendor(ctx context.Context, requestRef, vendorID int) (bool, error) {
	return f.hasQuote(requestRef, vendorID), nil
}

func (f *fakeQuoteStore) ApproveAndRejectSiblings(ctx context.Context, quoteID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.quotes[quoteID]
	if !ok || target.Status != models.QuoteStatusPending {
		return 0, repositories.ErrNotFound
	}
	target.Status = models.QuoteStatusApproved

	rejected := 0
	for id, q := range f.quotes {
		if id != quoteID && q.RequestRef == target.RequestRef && q.Status == models.QuoteStatusPending {
			q.Status = models.QuoteStatusRejected
			rejected++
		}
	}
	return rejected, nil
}

func (f *fakeQuoteStore) UpdateStatus(ctx context.Context, id int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	q.Status = status
	return nil
}

func (f *fakeQuoteStore) ListByVendor(ctx context.Context, vendorID int) ([]*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Quote
	for _, q := range f.quotes {
		if q.VendorID == vendorID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuoteStore) ListByRequest(ctx context.Context, requestRef int) ([]*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Quote
	for _, q := range f.quotes {
		if q.RequestRef == requestRef {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuoteStore) ListForCustomer(ctx context.Context, customerID int) ([]*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Quote
	for _, q := range f.quotes {
		if q.CustomerID == customerID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuoteStore) ListAll(ctx context.Context) ([]*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Quote
	for _, q := range f.quotes {
		out = append(out, q)
	}
	return out, nil
}

// quoteFixture builds a published electrical leaf visible to vendors 1 and 2.
func quoteFixture(t *testing.T) (*QuoteService, *fakeQuoteStore, *models.Request) {
	t.Helper()

	reqStore := newFakeRequestStore()
	users := newFakeUserDir()
	users.users[100] = &models.User{ID: 100, Email: "customer@example.com", Role: models.RoleCustomer, IsApproved: true}
	users.addVendor(1, "v1@example.com", "Electrical")
	users.addVendor(2, "v2@example.com", "Electrical")

	reqSvc := NewRequestService(reqStore, users, nil)
	parent, err := reqSvc.Create(context.Background(), 100, &models.CreateRequestInput{
		Items: []models.RequestItem{
			{Name: "Cable", Quantity: 10, Department: "Electrical"},
			{Name: "Switch", Quantity: 2, Department: "Electrical"},
		},
	})
	require.NoError(t, err)

	_, leaves, err := reqSvc.ApproveAndSplit(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Len(t, leaves, 1)

	quoteStore := newFakeQuoteStore()
	reqStore.quotes = quoteStore
	return NewQuoteService(quoteStore, reqStore, users, nil), quoteStore, leaves[0]
}

func validQuoteInput() *models.SubmitQuoteInput {
	return &models.SubmitQuoteInput{
		Items: []models.QuoteItem{
			{Name: "Cable", Quantity: 10, Rate: 50, UOM: "m", GST: 18, Amount: 500, GSTAmount: 90, NetAmount: 590},
			{Name: "Switch", Quantity: 2, Rate: 100, UOM: "pcs", GST: 18, Amount: 200, GSTAmount: 36, NetAmount: 236},
		},
	}
}

func TestSubmitQuote(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	quote, err := svc.Submit(context.Background(), 1, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)

	assert.Equal(t, models.QuoteStatusPending, quote.Status)
	assert.Equal(t, leaf.ID, quote.RequestRef)
	assert.Equal(t, leaf.RequestID, quote.RequestID)
	assert.InDelta(t, 826.0, quote.TotalAmount, 0.001)
}

func TestSubmitQuoteAllowsZeroRate(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	input := &models.SubmitQuoteInput{
		Items: []models.QuoteItem{
			{Name: "Cable", Quantity: 10, Rate: 0, UOM: "m", GST: 0, Amount: 0, GSTAmount: 0, NetAmount: 0},
		},
	}

	quote, err := svc.Submit(context.Background(), 1, leaf.RequestID, input)
	require.NoError(t, err)
	assert.Zero(t, quote.TotalAmount)
}

func TestSubmitQuoteRejectsMissingUOM(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	input := validQuoteInput()
	input.Items[0].UOM = ""

	_, err := svc.Submit(context.Background(), 1, leaf.RequestID, input)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSubmitQuoteKeepsDescriptionAndRemark(t *testing.T) {
	svc, store, leaf := quoteFixture(t)

	input := validQuoteInput()
	input.Items[0].Description = "armoured copper, 4 core"
	input.Items[0].Remark = "delivery in 2 weeks"

	quote, err := svc.Submit(context.Background(), 1, leaf.RequestID, input)
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, "armoured copper, 4 core", stored.Items[0].Description)
	assert.Equal(t, "delivery in 2 weeks", stored.Items[0].Remark)
}

func TestSubmitQuoteRejectsUnknownItem(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	input := validQuoteInput()
	input.Items[0].Name = "Transformer"

	_, err := svc.Submit(context.Background(), 1, leaf.RequestID, input)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSubmitQuoteRejectsDuplicate(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	_, err := svc.Submit(context.Background(), 1, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 1, leaf.RequestID, validQuoteInput())
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	// A different vendor can still quote.
	_, err = svc.Submit(context.Background(), 2, leaf.RequestID, validQuoteInput())
	assert.NoError(t, err)
}

func TestSubmitQuoteRejectsInvisibleVendor(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	_, err := svc.Submit(context.Background(), 99, leaf.RequestID, validQuoteInput())
	require.Error(t, err)
	assert.Equal(t, KindAuthorization, KindOf(err))
}

func TestSubmitQuoteRejectsUnknownRequest(t *testing.T) {
	svc, _, _ := quoteFixture(t)

	_, err := svc.Submit(context.Background(), 1, "2026/0101/9999-ELECTRICAL", validQuoteInput())
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestSubmitQuoteRejectsEmptyItems(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	_, err := svc.Submit(context.Background(), 1, leaf.RequestID, &models.SubmitQuoteInput{})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestApproveQuoteRejectsSiblings(t *testing.T) {
	svc, store, leaf := quoteFixture(t)

	first, err := svc.Submit(context.Background(), 1, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), 2, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusApproved, approved.Status)

	sibling, err := store.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusRejected, sibling.Status)
}

func TestApproveQuoteRejectsNonPending(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	quote, err := svc.Submit(context.Background(), 1, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), quote.ID)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), quote.ID)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestConcurrentApprovalsPickOneWinner(t *testing.T) {
	svc, store, leaf := quoteFixture(t)

	first, err := svc.Submit(context.Background(), 1, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), 2, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []int{first.ID, second.ID} {
		wg.Add(1)
		go func(quoteID int) {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), quoteID)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, KindConflict, KindOf(err))
		}
	}
	assert.Equal(t, 1, succeeded)

	approved := 0
	for _, id := range []int{first.ID, second.ID} {
		q, err := store.GetByID(context.Background(), id)
		require.NoError(t, err)
		if q.Status == models.QuoteStatusApproved {
			approved++
		} else {
			assert.Equal(t, models.QuoteStatusRejected, q.Status)
		}
	}
	assert.Equal(t, 1, approved)
}

func TestAvailableExcludesQuotedLeaves(t *testing.T) {
	reqStore := newFakeRequestStore()
	users := newFakeUserDir()
	users.users[100] = &models.User{ID: 100, Email: "customer@example.com", Role: models.RoleCustomer, IsApproved: true}
	users.addVendor(1, "v1@example.com", "Electrical")
	users.addVendor(2, "v2@example.com", "Electrical")

	reqSvc := NewRequestService(reqStore, users, nil)
	parent, err := reqSvc.Create(context.Background(), 100, &models.CreateRequestInput{
		Items: []models.RequestItem{{Name: "Cable", Quantity: 10, Department: "Electrical"}},
	})
	require.NoError(t, err)

	_, leaves, err := reqSvc.ApproveAndSplit(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	leaf := leaves[0]

	quoteStore := newFakeQuoteStore()
	reqStore.quotes = quoteStore
	quoteSvc := NewQuoteService(quoteStore, reqStore, users, nil)

	available, err := reqSvc.ListAvailable(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, available, 1)

	_, err = quoteSvc.Submit(context.Background(), 1, leaf.RequestID, &models.SubmitQuoteInput{
		Items: []models.QuoteItem{
			{Name: "Cable", Quantity: 10, Rate: 50, UOM: "m", GST: 18, Amount: 500, GSTAmount: 90, NetAmount: 590},
		},
	})
	require.NoError(t, err)

	// Vendor 1 has quoted, so the leaf drops out of their available list.
	available, err = reqSvc.ListAvailable(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, available)

	// Vendor 2 has not quoted and still sees it.
	available, err = reqSvc.ListAvailable(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, available, 1)

	// The quoted leaf stays in vendor 1's full visibility list.
	visible, err := reqSvc.ListVisible(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestRejectQuoteLeavesSiblingsPending(t *testing.T) {
	svc, store, leaf := quoteFixture(t)

	first, err := svc.Submit(context.Background(), 1, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), 2, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusRejected, rejected.Status)

	sibling, err := store.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusPending, sibling.Status)
}

func TestListByRequestAccessControl(t *testing.T) {
	svc, _, leaf := quoteFixture(t)

	_, err := svc.Submit(context.Background(), 1, leaf.RequestID, validQuoteInput())
	require.NoError(t, err)

	quotes, err := svc.ListByRequest(context.Background(), leaf.ID, 100, models.RoleCustomer)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)

	_, err = svc.ListByRequest(context.Background(), leaf.ID, 999, models.RoleCustomer)
	require.Error(t, err)
	assert.Equal(t, KindAuthorization, KindOf(err))

	quotes, err = svc.ListByRequest(context.Background(), leaf.ID, 5, models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
}
