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
	"procure-backend/internal/timeutil"

	"github.com/go-playground/validator/v10"
)

// RequestStore is the persistence surface the request service needs.
type RequestStore interface {
	NextSequence(ctx context.Context, year int) (int, error)
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id int) (*models.Request, error)
	UpdateStatus(ctx context.Context, id int, status string) error
	UpdateStatusWithRemarks(ctx context.Context, id int, status, remarks string) error
	SetAdminQuoteFile(ctx context.Context, id int, fileURL string) error
	ApproveAndSplit(ctx context.Context, parentID int, unroutable []models.UnroutableItem, leaves []*models.Request) error
	ListByCustomer(ctx context.Context, customerID int) ([]*models.Request, error)
	ListLeavesByParent(ctx context.Context, parentID int) ([]*models.Request, error)
	ListAvailableForVendor(ctx context.Context, vendorID int) ([]*models.Request, error)
	ListVisibleToVendor(ctx context.Context, vendorID int) ([]*models.Request, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Request, error)
	ListAll(ctx context.Context) ([]*models.Request, error)
}

// VendorDirectory resolves vendors and users for routing and notification.
type VendorDirectory interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	ListApprovedVendorsByDepartment(ctx context.Context, department string) ([]*models.User, error)
}

type RequestService struct {
	requests RequestStore
	users    VendorDirectory
	mailer   *mail.Service
	validate *validator.Validate
}

func NewRequestService(requests RequestStore, users VendorDirectory, mailer *mail.Service) *RequestService {
	return &RequestService{
		requests: requests,
		users:    users,
		mailer:   mailer,
		validate: validator.New(),
	}
}

// generateRequestID allocates the next identifier for the current IST day,
// formatted as YYYY/DDMM/NNNN.
func (s *RequestService) generateRequestID(ctx context.Context) (string, error) {
	now := timeutil.Now()
	seq, err := s.requests.NextSequence(ctx, now.Year())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d/%02d%02d/%04d", now.Year(), now.Day(), int(now.Month()), seq), nil
}

// departmentCode derives the leaf identifier suffix from a department name.
func departmentCode(department string) string {
	return strings.ToUpper(strings.TrimSpace(department))
}

// normalizeDepartment is the grouping key for splitting. Matching is
// case-insensitive after trimming.
func normalizeDepartment(department string) string {
	return strings.ToLower(strings.TrimSpace(department))
}

// Create registers a new procurement request for a customer.
func (s *RequestService) Create(ctx context.Context, customerID int, input *models.CreateRequestInput) (*models.Request, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, NewValidationError(validationMessage(err))
	}

	for _, item := range input.Items {
		if strings.TrimSpace(item.Department) == "" {
			return nil, NewValidationError("every item must carry a department")
		}
	}

	requestID, err := s.generateRequestID(ctx)
	if err != nil {
		return nil, NewDependencyError("failed to allocate request id", err)
	}

	req := &models.Request{
		RequestID:  requestID,
		CustomerID: customerID,
		Items:      input.Items,
		Status:     models.RequestStatusPending,
		Remarks:    strings.TrimSpace(input.Remarks),
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, NewDependencyError("failed to create request", err)
	}

	metrics.RequestsCreated.Inc()
	log.Printf("[Request] created %s by customer %d (%d items)", req.RequestID, customerID, len(req.Items))
	return req, nil
}

// ApproveAndSplit approves a pending parent request and splits it into
// published per-department leaf requests. The parent itself transitions to
// published. Items whose department has no approved vendor are recorded on
// the parent instead of producing a leaf.
func (s *RequestService) ApproveAndSplit(ctx context.Context, requestID int) (*models.Request, []*models.Request, error) {
	parent, err := s.getParent(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if parent.Status != models.RequestStatusPending {
		return nil, nil, NewConflictError(fmt.Sprintf("request %s is not pending", parent.RequestID))
	}

	// Group items by department, preserving first-seen order.
	type group struct {
		display string
		items   []models.RequestItem
	}
	var order []string
	groups := make(map[string]*group)
	for _, item := range parent.Items {
		key := normalizeDepartment(item.Department)
		g, ok := groups[key]
		if !ok {
			g = &group{display: item.Department}
			groups[key] = g
			order = append(order, key)
		}
		g.items = append(g.items, item)
	}

	var leaves []*models.Request
	var unroutable []models.UnroutableItem
	vendorsByLeaf := make(map[string][]*models.User)

	for _, key := range order {
		g := groups[key]
		vendors, err := s.users.ListApprovedVendorsByDepartment(ctx, g.display)
		if err != nil {
			return nil, nil, NewDependencyError("failed to look up vendors", err)
		}
		if len(vendors) == 0 {
			unroutable = append(unroutable, models.UnroutableItem{
				Department: g.display,
				Items:      g.items,
			})
			log.Printf("[Request] %s: no approved vendors for department %q, items left unrouted",
				parent.RequestID, g.display)
			continue
		}

		visibleTo := make([]int, 0, len(vendors))
		for _, v := range vendors {
			visibleTo = append(visibleTo, v.ID)
		}

		leafID := parent.RequestID + "-" + departmentCode(g.display)
		leaf := &models.Request{
			RequestID:         leafID,
			CustomerID:        parent.CustomerID,
			Items:             g.items,
			Status:            models.RequestStatusPublished,
			VisibleTo:         visibleTo,
			OriginalRequestID: &parent.ID,
		}
		leaves = append(leaves, leaf)
		vendorsByLeaf[leafID] = vendors
	}

	if err := s.requests.ApproveAndSplit(ctx, parent.ID, unroutable, leaves); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, NewConflictError(fmt.Sprintf("request %s is not pending", parent.RequestID))
		}
		return nil, nil, NewDependencyError("failed to split request", err)
	}

	parent.Status = models.RequestStatusPublished
	parent.UnroutableItems = unroutable
	metrics.LeafRequestsPublished.Add(float64(len(leaves)))
	log.Printf("[Request] approved %s: %d leaves published, %d departments unroutable",
		parent.RequestID, len(leaves), len(unroutable))

	s.notifySplit(ctx, parent, leaves, vendorsByLeaf)
	return parent, leaves, nil
}

func (s *RequestService) notifySplit(ctx context.Context, parent *models.Request, leaves []*models.Request, vendorsByLeaf map[string][]*models.User) {
	if s.mailer == nil {
		return
	}

	if customer, err := s.users.GetByID(ctx, parent.CustomerID); err == nil {
		s.mailer.Notify([]string{customer.Email},
			"Request Approved",
			fmt.Sprintf("Your request %s has been approved and published to vendors.", parent.RequestID))
	}

	for _, leaf := range leaves {
		vendors := vendorsByLeaf[leaf.RequestID]
		recipients := make([]string, 0, len(vendors))
		for _, v := range vendors {
			recipients = append(recipients, v.Email)
		}
		s.mailer.Notify(recipients,
			"New Request Published",
			fmt.Sprintf("Request %s is open for quotes in your department.", leaf.RequestID))
	}
}

// Reject declines a pending parent request.
func (s *RequestService) Reject(ctx context.Context, requestID int, remarks string) (*models.Request, error) {
	parent, err := s.getParent(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if parent.Status != models.RequestStatusPending {
		return nil, NewConflictError(fmt.Sprintf("request %s is not pending", parent.RequestID))
	}

	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		remarks = parent.Remarks
	}

	if err := s.requests.UpdateStatusWithRemarks(ctx, parent.ID, models.RequestStatusRejected, remarks); err != nil {
		return nil, NewDependencyError("failed to reject request", err)
	}
	parent.Status = models.RequestStatusRejected
	parent.Remarks = remarks

	log.Printf("[Request] rejected %s", parent.RequestID)

	if s.mailer != nil {
		if customer, err := s.users.GetByID(ctx, parent.CustomerID); err == nil {
			s.mailer.Notify([]string{customer.Email},
				"Request Rejected",
				fmt.Sprintf("Your request %s has been rejected.", parent.RequestID))
		}
	}
	return parent, nil
}

// Publish forces a request to published without splitting it. This is the
// legacy workflow for parent requests, and also re-opens a leaf. Publishing
// an already published request is a no-op.
func (s *RequestService) Publish(ctx context.Context, requestID int) (*models.Request, error) {
	req, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == models.RequestStatusPublished {
		return req, nil
	}
	if req.Status != models.RequestStatusPending && req.Status != models.RequestStatusQuoteUploadedAdmin {
		return nil, NewConflictError(fmt.Sprintf("request %s cannot be published from status %s", req.RequestID, req.Status))
	}

	if err := s.requests.UpdateStatus(ctx, req.ID, models.RequestStatusPublished); err != nil {
		return nil, NewDependencyError("failed to publish request", err)
	}
	req.Status = models.RequestStatusPublished

	metrics.LeafRequestsPublished.Inc()
	log.Printf("[Request] published %s", req.RequestID)

	if s.mailer != nil {
		var recipients []string
		for _, vendorID := range req.VisibleTo {
			if v, err := s.users.GetByID(ctx, vendorID); err == nil {
				recipients = append(recipients, v.Email)
			}
		}
		s.mailer.Notify(recipients,
			"New Request Published",
			fmt.Sprintf("Request %s is open for quotes in your department.", req.RequestID))
	}
	return req, nil
}

// AttachAdminQuote stores an externally sourced quote document on a leaf.
func (s *RequestService) AttachAdminQuote(ctx context.Context, requestID int, fileURL string) (*models.Request, error) {
	if strings.TrimSpace(fileURL) == "" {
		return nil, NewValidationError("file url is required")
	}

	req, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsLeaf() {
		return nil, NewValidationError("quote documents attach to department sub-requests only")
	}

	if err := s.requests.SetAdminQuoteFile(ctx, req.ID, fileURL); err != nil {
		return nil, NewDependencyError("failed to attach quote document", err)
	}
	req.AdminQuoteFile = fileURL
	req.Status = models.RequestStatusQuoteUploadedAdmin

	log.Printf("[Request] admin quote attached to %s", req.RequestID)
	return req, nil
}

// Get returns a single request with role-based access checks.
func (s *RequestService) Get(ctx context.Context, requestID, userID int, role string) (*models.Request, error) {
	req, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch role {
	case models.RoleAdmin:
		return req, nil
	case models.RoleCustomer:
		if req.CustomerID != userID {
			return nil, NewAuthorizationError("you do not have access to this request")
		}
		return req, nil
	case models.RoleVendor:
		for _, id := range req.VisibleTo {
			if id == userID {
				return req, nil
			}
		}
		return nil, NewAuthorizationError("you do not have access to this request")
	default:
		return nil, NewAuthorizationError("you do not have access to this request")
	}
}

func (s *RequestService) ListMine(ctx context.Context, customerID int) ([]*models.Request, error) {
	reqs, err := s.requests.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, NewDependencyError("failed to list requests", err)
	}
	return reqs, nil
}

func (s *RequestService) ListLeaves(ctx context.Context, parentID int) ([]*models.Request, error) {
	if _, err := s.get(ctx, parentID); err != nil {
		return nil, err
	}
	leaves, err := s.requests.ListLeavesByParent(ctx, parentID)
	if err != nil {
		return nil, NewDependencyError("failed to list sub-requests", err)
	}
	return leaves, nil
}

// ListAvailable returns published leaves the vendor can still quote.
func (s *RequestService) ListAvailable(ctx context.Context, vendorID int) ([]*models.Request, error) {
	reqs, err := s.requests.ListAvailableForVendor(ctx, vendorID)
	if err != nil {
		return nil, NewDependencyError("failed to list available requests", err)
	}
	return reqs, nil
}

// ListVisible returns every leaf the vendor was ever routed, quoted or not.
func (s *RequestService) ListVisible(ctx context.Context, vendorID int) ([]*models.Request, error) {
	reqs, err := s.requests.ListVisibleToVendor(ctx, vendorID)
	if err != nil {
		return nil, NewDependencyError("failed to list requests", err)
	}
	return reqs, nil
}

// ListPendingApproval is the admin inbox of parent requests awaiting review.
func (s *RequestService) ListPendingApproval(ctx context.Context) ([]*models.Request, error) {
	reqs, err := s.requests.ListByStatus(ctx, models.RequestStatusPending)
	if err != nil {
		return nil, NewDependencyError("failed to list pending requests", err)
	}
	var parents []*models.Request
	for _, r := range reqs {
		if !r.IsLeaf() {
			parents = append(parents, r)
		}
	}
	return parents, nil
}

// ListParents is the admin view of every original (non-split) request.
func (s *RequestService) ListParents(ctx context.Context) ([]*models.Request, error) {
	reqs, err := s.requests.ListAll(ctx)
	if err != nil {
		return nil, NewDependencyError("failed to list requests", err)
	}
	var parents []*models.Request
	for _, r := range reqs {
		if !r.IsLeaf() {
			parents = append(parents, r)
		}
	}
	return parents, nil
}

// ListPublished returns every leaf currently open for quotes. Published
// parents are excluded since quoting happens on leaves.
func (s *RequestService) ListPublished(ctx context.Context) ([]*models.Request, error) {
	reqs, err := s.requests.ListByStatus(ctx, models.RequestStatusPublished)
	if err != nil {
		return nil, NewDependencyError("failed to list published requests", err)
	}
	var leaves []*models.Request
	for _, r := range reqs {
		if r.IsLeaf() {
			leaves = append(leaves, r)
		}
	}
	return leaves, nil
}

// VendorItems flattens the line items of every published leaf the vendor can
// see, keyed by the leaf's request identifier.
func (s *RequestService) VendorItems(ctx context.Context, vendorID int) (map[string][]models.RequestItem, error) {
	reqs, err := s.requests.ListVisibleToVendor(ctx, vendorID)
	if err != nil {
		return nil, NewDependencyError("failed to list requests", err)
	}
	items := make(map[string][]models.RequestItem)
	for _, r := range reqs {
		if r.Status == models.RequestStatusPublished {
			items[r.RequestID] = r.Items
		}
	}
	return items, nil
}

func (s *RequestService) ListAll(ctx context.Context) ([]*models.Request, error) {
	reqs, err := s.requests.ListAll(ctx)
	if err != nil {
		return nil, NewDependencyError("failed to list requests", err)
	}
	return reqs, nil
}

func (s *RequestService) get(ctx context.Context, id int) (*models.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("request not found")
		}
		return nil, NewDependencyError("failed to look up request", err)
	}
	return req, nil
}

func (s *RequestService) getParent(ctx context.Context, id int) (*models.Request, error) {
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsLeaf() {
		return nil, NewValidationError("operation applies to the original request, not a department sub-request")
	}
	return req, nil
}
