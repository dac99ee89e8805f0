package http

import (
	"net/http"

	"procure-backend/internal/handlers"
	"procure-backend/internal/middleware"
	"procure-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Auth     *middleware.AuthMiddleware
	AuthH    *handlers.AuthHandler
	UserH    *handlers.UserHandler
	RequestH *handlers.RequestHandler
	QuoteH   *handlers.QuoteHandler
	DashH    *handlers.DashboardHandler
	HealthH  *handlers.HealthHandler
}

// NewRouter wires all routes with authentication and role checks.
func NewRouter(d RouterDeps) *mux.Router {
	r := mux.NewRouter()

	// Registered on the router so route templates resolve for the path
	// label instead of raw URLs.
	r.Use(middleware.Metrics)

	r.HandleFunc("/health", d.HealthH.Check).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public auth routes
	r.HandleFunc("/auth/register", d.AuthH.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", d.AuthH.Login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(d.Auth.Authenticate)

	adminOnly := d.Auth.RequireRole(models.RoleAdmin)
	customerOnly := d.Auth.RequireRole(models.RoleCustomer)
	vendorOnly := d.Auth.RequireRole(models.RoleVendor)

	// User administration
	api.Handle("/users/pending", adminOnly(http.HandlerFunc(d.UserH.ListPending))).Methods(http.MethodGet)
	api.Handle("/users/{id:[0-9]+}/approve", adminOnly(http.HandlerFunc(d.UserH.Approve))).Methods(http.MethodPut)
	api.Handle("/users/{id:[0-9]+}/reject", adminOnly(http.HandlerFunc(d.UserH.Reject))).Methods(http.MethodPut)

	// Requests
	api.Handle("/requests", customerOnly(http.HandlerFunc(d.RequestH.Create))).Methods(http.MethodPost)
	api.Handle("/requests", adminOnly(http.HandlerFunc(d.RequestH.ListAll))).Methods(http.MethodGet)
	api.Handle("/requests/mine", customerOnly(http.HandlerFunc(d.RequestH.ListMine))).Methods(http.MethodGet)
	api.Handle("/requests/received", adminOnly(http.HandlerFunc(d.RequestH.ListReceived))).Methods(http.MethodGet)
	api.Handle("/requests/published", adminOnly(http.HandlerFunc(d.RequestH.ListPublished))).Methods(http.MethodGet)
	api.Handle("/requests/pending", adminOnly(http.HandlerFunc(d.RequestH.ListPendingApproval))).Methods(http.MethodGet)
	api.Handle("/requests/available", vendorOnly(http.HandlerFunc(d.RequestH.ListAvailable))).Methods(http.MethodGet)
	api.Handle("/requests/visible", vendorOnly(http.HandlerFunc(d.RequestH.ListVisible))).Methods(http.MethodGet)
	api.Handle("/requests/vendor-items", vendorOnly(http.HandlerFunc(d.RequestH.VendorItems))).Methods(http.MethodGet)
	api.Handle("/requests/{id:[0-9]+}", http.HandlerFunc(d.RequestH.Get)).Methods(http.MethodGet)
	api.Handle("/requests/{id:[0-9]+}/sub-requests", adminOnly(http.HandlerFunc(d.RequestH.ListLeaves))).Methods(http.MethodGet)
	api.Handle("/requests/{id:[0-9]+}/approve", adminOnly(http.HandlerFunc(d.RequestH.Approve))).Methods(http.MethodPut)
	api.Handle("/requests/{id:[0-9]+}/reject", adminOnly(http.HandlerFunc(d.RequestH.Reject))).Methods(http.MethodPut)
	api.Handle("/requests/{id:[0-9]+}/publish", adminOnly(http.HandlerFunc(d.RequestH.Publish))).Methods(http.MethodPut)
	api.Handle("/requests/{id:[0-9]+}/admin-quote", adminOnly(http.HandlerFunc(d.RequestH.AttachAdminQuote))).Methods(http.MethodPut)

	// Quotes
	api.Handle("/quotes/all", adminOnly(http.HandlerFunc(d.QuoteH.ListAll))).Methods(http.MethodGet)
	api.Handle("/quotes/mine", vendorOnly(http.HandlerFunc(d.QuoteH.ListMine))).Methods(http.MethodGet)
	api.Handle("/quotes/received", customerOnly(http.HandlerFunc(d.QuoteH.ListReceived))).Methods(http.MethodGet)
	api.Handle("/quotes/by-request/{id:[0-9]+}", http.HandlerFunc(d.QuoteH.ListByRequest)).Methods(http.MethodGet)
	api.Handle("/quotes/{id:[0-9]+}/approve", adminOnly(http.HandlerFunc(d.QuoteH.Approve))).Methods(http.MethodPut)
	api.Handle("/quotes/{id:[0-9]+}/reject", adminOnly(http.HandlerFunc(d.QuoteH.Reject))).Methods(http.MethodPut)
	// Request identifiers contain slashes (2026/2908/0001-ELECTRICAL), so the
	// submit route takes a catch-all path variable.
	api.Handle("/quotes/{requestId:.+}", vendorOnly(http.HandlerFunc(d.QuoteH.Submit))).Methods(http.MethodPost)

	// Dashboard
	api.Handle("/dashboard/stats", adminOnly(http.HandlerFunc(d.DashH.Stats))).Methods(http.MethodGet)
	api.Handle("/dashboard/recent-requests", adminOnly(http.HandlerFunc(d.DashH.RecentRequests))).Methods(http.MethodGet)

	return r
}
