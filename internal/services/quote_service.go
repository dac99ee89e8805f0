package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"procure-backend/internal/mail"
	"procure-backend/internal/metrics"
	"procure-backend/internal/models"
	"procure-backend/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// QuoteStore is the persistence surface the quote service needs.
type QuoteStore interface {
	Create(ctx context.Context, q *models.Quote) error
	GetByID(ctx context.Context, id int) (*models.Quote, error)
	ExistsForVendor(ctx context.Context, requestRef, vendorID int) (bool, error)
	ApproveAndRejectSiblings(ctx context.Context, quoteID int) (int, error)
	UpdateStatus(ctx context.Context, id int, status string) error
	ListByVendor(ctx context.Context, vendorID int) ([]*models.Quote, error)
	ListByRequest(ctx context.Context, requestRef int) ([]*models.Quote, error)
	ListForCustomer(ctx context.Context, customerID int) ([]*models.Quote, error)
	ListAll(ctx context.Context) ([]*models.Quote, error)
}

// QuoteRequestLookup resolves the request a quote targets.
type QuoteRequestLookup interface {
	GetByID(ctx context.Context, id int) (*models.Request, error)
	GetByRequestID(ctx context.Context, requestID string) (*models.Request, error)
}

// QuoteUserLookup resolves users for notifications.
type QuoteUserLookup interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	ListAdmins(ctx context.Context) ([]*models.User, error)
}

type QuoteService struct {
	quotes   QuoteStore
	requests QuoteRequestLookup
	users    QuoteUserLookup
	mailer   *mail.Service
	validate *validator.Validate
}

func NewQuoteService(quotes QuoteStore, requests QuoteRequestLookup, users QuoteUserLookup, mailer *mail.Service) *QuoteService {
	return &QuoteService{
		quotes:   quotes,
		requests: requests,
		users:    users,
		mailer:   mailer,
		validate: validator.New(),
	}
}

// Submit records a vendor's quote on a published department sub-request.
// A vendor may hold at most one quote per sub-request, and every quoted
// item name must exist in the request.
func (s *QuoteService) Submit(ctx context.Context, vendorID int, requestID string, input *models.SubmitQuoteInput) (*models.Quote, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, NewValidationError(validationMessage(err))
	}

	req, err := s.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("request not found")
		}
		return nil, NewDependencyError("failed to look up request", err)
	}

	if !req.IsLeaf() || req.Status != models.RequestStatusPublished {
		return nil, NewConflictError("request is not open for quotes")
	}

	visible := false
	for _, id := range req.VisibleTo {
		if id == vendorID {
			visible = true
			break
		}
	}
	if !visible {
		return nil, NewAuthorizationError("this request is not visible to you")
	}

	requestItems := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		requestItems[strings.ToLower(strings.TrimSpace(item.Name))] = true
	}
	for _, item := range input.Items {
		if !requestItems[strings.ToLower(strings.TrimSpace(item.Name))] {
			return nil, NewValidationError("one or more quoted items do not exist in the request")
		}
	}

	exists, err := s.quotes.ExistsForVendor(ctx, req.ID, vendorID)
	if err != nil {
		return nil, NewDependencyError("failed to check existing quotes", err)
	}
	if exists {
		return nil, NewConflictError("you have already submitted a quote for this request")
	}

	var total float64
	for _, item := range input.Items {
		total += item.NetAmount
	}

	quote := &models.Quote{
		RequestRef:  req.ID,
		RequestID:   req.RequestID,
		VendorID:    vendorID,
		Items:       input.Items,
		TotalAmount: total,
		Status:      models.QuoteStatusPending,
		Remarks:     strings.TrimSpace(input.Remarks),
	}

	if err := s.quotes.Create(ctx, quote); err != nil {
		if errors.Is(err, repositories.ErrDuplicateQuote) {
			return nil, NewConflictError("you have already submitted a quote for this request")
		}
		return nil, NewDependencyError("failed to create quote", err)
	}

	metrics.QuotesSubmitted.Inc()
	log.Printf("[Quote] vendor %d quoted %s (total %.2f)", vendorID, req.RequestID, total)

	if s.mailer != nil {
		if admins, err := s.users.ListAdmins(ctx); err == nil {
			recipients := make([]string, 0, len(admins))
			for _, a := range admins {
				recipients = append(recipients, a.Email)
			}
			s.mailer.Notify(recipients,
				"New Quote Submitted",
				fmt.Sprintf("A vendor submitted a quote for request %s.", req.RequestID))
		}
	}
	return quote, nil
}

// Approve accepts a quote and rejects all sibling quotes on the same
// sub-request in one transaction. The winning vendor and the customer are
// notified.
func (s *QuoteService) Approve(ctx context.Context, quoteID int) (*models.Quote, error) {
	quote, err := s.get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != models.QuoteStatusPending {
		return nil, NewConflictError(fmt.Sprintf("quote is already %s", quote.Status))
	}

	rejected, err := s.quotes.ApproveAndRejectSiblings(ctx, quoteID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewConflictError("quote is no longer pending")
		}
		return nil, NewDependencyError("failed to approve quote", err)
	}
	quote.Status = models.QuoteStatusApproved

	log.Printf("[Quote] approved %d on %s, %d sibling quotes rejected", quote.ID, quote.RequestID, rejected)

	if s.mailer != nil {
		if vendor, err := s.users.GetByID(ctx, quote.VendorID); err == nil {
			s.mailer.Notify([]string{vendor.Email},
				"Quote Approved",
				fmt.Sprintf("Your quote for request %s has been approved.", quote.RequestID))
		}
		if customer, err := s.users.GetByID(ctx, quote.CustomerID); err == nil {
			s.mailer.Notify([]string{customer.Email},
				"Quote Approved for Your Request",
				fmt.Sprintf("A quote has been approved for request %s.", quote.RequestID))
		}
	}
	return quote, nil
}

// Reject declines a single quote. Sibling quotes are untouched.
func (s *QuoteService) Reject(ctx context.Context, quoteID int) (*models.Quote, error) {
	quote, err := s.get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != models.QuoteStatusPending {
		return nil, NewConflictError(fmt.Sprintf("quote is already %s", quote.Status))
	}

	if err := s.quotes.UpdateStatus(ctx, quoteID, models.QuoteStatusRejected); err != nil {
		return nil, NewDependencyError("failed to reject quote", err)
	}
	quote.Status = models.QuoteStatusRejected

	log.Printf("[Quote] rejected %d on %s", quote.ID, quote.RequestID)
	return quote, nil
}

func (s *QuoteService) ListMine(ctx context.Context, vendorID int) ([]*models.Quote, error) {
	quotes, err := s.quotes.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, NewDependencyError("failed to list quotes", err)
	}
	return quotes, nil
}

// ListByRequest returns the quotes on a sub-request with access control:
// admins see all, customers see quotes on their own requests.
func (s *QuoteService) ListByRequest(ctx context.Context, requestRef, userID int, role string) ([]*models.Quote, error) {
	req, err := s.requests.GetByID(ctx, requestRef)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("request not found")
		}
		return nil, NewDependencyError("failed to look up request", err)
	}

	if role != models.RoleAdmin && req.CustomerID != userID {
		return nil, NewAuthorizationError("you do not have access to this request's quotes")
	}

	quotes, err := s.quotes.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, NewDependencyError("failed to list quotes", err)
	}
	return quotes, nil
}

// ListReceived returns every quote submitted against the customer's
// requests.
func (s *QuoteService) ListReceived(ctx context.Context, customerID int) ([]*models.Quote, error) {
	quotes, err := s.quotes.ListForCustomer(ctx, customerID)
	if err != nil {
		return nil, NewDependencyError("failed to list quotes", err)
	}
	return quotes, nil
}

func (s *QuoteService) ListAll(ctx context.Context) ([]*models.Quote, error) {
	quotes, err := s.quotes.ListAll(ctx)
	if err != nil {
		return nil, NewDependencyError("failed to list quotes", err)
	}
	return quotes, nil
}

func (s *QuoteService) get(ctx context.Context, id int) (*models.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("quote not found")
		}
		return nil, NewDependencyError("failed to look up quote", err)
	}
	return quote, nil
}
