package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tenancyd/internal/app"
	"github.com/neomorfeo/tenancyd/internal/domain"
)

const timestampFormat = "2006-01-02T15:04:05Z"

// Services are the application components exposed over HTTP.
type Services struct {
	Leases  *app.LeaseService
	Scanner *app.ExpiryScanner
	// DefaultExpiryDays is used when /leases/expiring is called without ?days.
	DefaultExpiryDays int
}

// LeaseResponse is the API representation of a lease.
type LeaseResponse struct {
	ID                string  `json:"id" doc:"Unique identifier"`
	PropertyID        string  `json:"property_id" doc:"Property the unit belongs to"`
	UnitID            string  `json:"unit_id" doc:"Leased unit"`
	TenantID          string  `json:"tenant_id" doc:"Leasing tenant"`
	StartDate         string  `json:"start_date" doc:"First day of the lease (YYYY-MM-DD)"`
	EndDate           *string `json:"end_date,omitempty" doc:"Last day of the lease; absent when open-ended"`
	RentAmount        string  `json:"rent_amount" doc:"Periodic rent"`
	DepositAmount     string  `json:"deposit_amount" doc:"Security deposit"`
	AdvanceAmount     string  `json:"advance_amount" doc:"Advance payment, refundable on termination"`
	Status            string  `json:"status" doc:"active or terminated"`
	TerminationReason string  `json:"termination_reason,omitempty" doc:"Why the lease was terminated"`
	CreatedAt         string  `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt         string  `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toLeaseResponse(l domain.Lease) LeaseResponse {
	resp := LeaseResponse{
		ID:                l.ID,
		PropertyID:        l.PropertyID,
		UnitID:            l.UnitID,
		TenantID:          l.TenantID,
		StartDate:         l.StartDate.Format(domain.DateLayout),
		RentAmount:        l.RentAmount.String(),
		DepositAmount:     l.DepositAmount.String(),
		AdvanceAmount:     l.AdvanceAmount.String(),
		Status:            string(l.Status),
		TerminationReason: l.TerminationReason,
		CreatedAt:         l.CreatedAt.Format(timestampFormat),
		UpdatedAt:         l.UpdatedAt.Format(timestampFormat),
	}
	if l.EndDate != nil {
		end := l.EndDate.Format(domain.DateLayout)
		resp.EndDate = &end
	}
	return resp
}

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID     string `json:"id" doc:"Unique identifier"`
	Email  string `json:"email" doc:"Contact email"`
	Name   string `json:"name" doc:"Display name"`
	Status string `json:"status" doc:"active, unassigned or inactive"`
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	return TenantResponse{ID: t.ID, Email: t.Email, Name: t.Name, Status: string(t.Status)}
}

// RefundResponse is the API representation of a refund obligation.
type RefundResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	LeaseID   string `json:"lease_id" doc:"Terminated lease"`
	Amount    string `json:"amount" doc:"Refund amount"`
	Status    string `json:"status" doc:"pending_refund, refunded or cancelled"`
	Reference string `json:"reference" doc:"Idempotency reference"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toRefundResponse(r domain.RefundRecord) RefundResponse {
	return RefundResponse{
		ID:        r.ID,
		LeaseID:   r.LeaseID,
		Amount:    r.Amount.String(),
		Status:    string(r.Status),
		Reference: r.Reference,
		CreatedAt: r.CreatedAt.Format(timestampFormat),
	}
}

// --- Create Lease ---

type CreateLeaseInput struct {
	ActorID string `header:"X-User-ID" required:"true" doc:"Acting user"`
	Body    struct {
		PropertyID    string `json:"property_id" minLength:"1" doc:"Property the unit belongs to"`
		UnitID        string `json:"unit_id" minLength:"1" doc:"Unit to lease"`
		TenantID      string `json:"tenant_id" minLength:"1" doc:"Tenant taking the unit"`
		StartDate     string `json:"start_date" format:"date" doc:"First day (YYYY-MM-DD)"`
		EndDate       string `json:"end_date,omitempty" format:"date" doc:"Last day; omit for an open-ended lease"`
		RentAmount    string `json:"rent_amount" minLength:"1" doc:"Periodic rent, decimal string"`
		DepositAmount string `json:"deposit_amount,omitempty" doc:"Security deposit, decimal string"`
		AdvanceAmount string `json:"advance_amount,omitempty" doc:"Advance payment, decimal string"`
	}
}

type LeaseOutput struct {
	Body LeaseResponse
}

// --- Get Lease ---

type GetLeaseInput struct {
	ActorID string `header:"X-User-ID" required:"true" doc:"Acting user"`
	ID      string `path:"id" doc:"Lease ID"`
}

// --- Terminate Lease ---

type TerminateLeaseInput struct {
	ActorID string `header:"X-User-ID" required:"true" doc:"Acting user"`
	ID      string `path:"id" doc:"Lease ID"`
	Body    struct {
		TerminationDate string `json:"termination_date" format:"date" doc:"Last day of occupancy (YYYY-MM-DD)"`
		RefundAdvance   *bool  `json:"refund_advance,omitempty" doc:"Issue a refund of the advance; defaults to true"`
		Reason          string `json:"reason,omitempty" maxLength:"255" doc:"Termination reason; defaults to owner_termination"`
	}
}

type TerminationOutput struct {
	Body struct {
		Lease               LeaseResponse   `json:"lease"`
		Refund              *RefundResponse `json:"refund,omitempty" doc:"Refund obligation, when one was issued"`
		TenantStatus        string          `json:"tenant_status" doc:"Tenant status after termination"`
		TenantStatusChanged bool            `json:"tenant_status_changed"`
	}
}

// --- Unit Availability ---

type AvailabilityInput struct {
	ID string `path:"id" doc:"Unit ID"`
	On string `query:"on" format:"date" required:"false" doc:"Day to check (YYYY-MM-DD); defaults to today"`
}

type AvailabilityOutput struct {
	Body struct {
		UnitID      string         `json:"unit_id"`
		AsOf        string         `json:"as_of" doc:"Day the answer applies to"`
		Available   bool           `json:"available"`
		ActiveLease *LeaseResponse `json:"active_lease,omitempty"`
	}
}

// --- Active Tenant ---

type ActiveTenantInput struct {
	ID string `path:"id" doc:"Unit ID"`
}

type ActiveTenantOutput struct {
	Body struct {
		UnitID string          `json:"unit_id"`
		Tenant *TenantResponse `json:"tenant" doc:"Tenant occupying the unit today, or null"`
	}
}

// --- Expiring Leases ---

type ExpiringLeasesInput struct {
	ActorID string `header:"X-User-ID" required:"true" doc:"Owner whose properties are scanned"`
	Days    int    `query:"days" minimum:"0" maximum:"3650" doc:"Horizon in days from today"`
	daysSet bool
}

// Resolve records whether ?days was supplied so the configured default can
// apply when it was not.
func (i *ExpiringLeasesInput) Resolve(ctx huma.Context) []error {
	i.daysSet = ctx.Query("days") != ""
	return nil
}

type ExpiringLease struct {
	Lease           LeaseResponse `json:"lease"`
	DaysUntilExpiry int           `json:"days_until_expiry"`
}

type ExpiringLeasesOutput struct {
	Body []ExpiringLease
}

// --- Tenants ---

type TenantInput struct {
	ActorID string `header:"X-User-ID" required:"true" doc:"Acting user"`
	ID      string `path:"id" doc:"Tenant ID"`
}

type TenantOutput struct {
	Body TenantResponse
}

type RefundsOutput struct {
	Body []RefundResponse
}

// Register adds all lease API routes to the Huma API.
func Register(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-lease",
		Method:        http.MethodPost,
		Path:          "/api/v1/leases",
		Summary:       "Lease a unit to a tenant",
		Tags:          []string{"Leases"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateLeaseInput) (*LeaseOutput, error) {
		req, err := toCreateRequest(input)
		if err != nil {
			return nil, toHumaError(err)
		}
		lease, err := svc.Leases.CreateLease(ctx, req)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LeaseOutput{Body: toLeaseResponse(lease)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-expiring-leases",
		Method:      http.MethodGet,
		Path:        "/api/v1/leases/expiring",
		Summary:     "List leases ending soon on the caller's properties",
		Tags:        []string{"Leases"},
	}, func(ctx context.Context, input *ExpiringLeasesInput) (*ExpiringLeasesOutput, error) {
		days := input.Days
		if !input.daysSet {
			days = svc.DefaultExpiryDays
		}
		infos, err := svc.Scanner.GetExpiringLeases(ctx, input.ActorID, days)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]ExpiringLease, len(infos))
		for i, info := range infos {
			resp[i] = ExpiringLease{Lease: toLeaseResponse(info.Lease), DaysUntilExpiry: info.DaysUntilExpiry}
		}
		return &ExpiringLeasesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lease",
		Method:      http.MethodGet,
		Path:        "/api/v1/leases/{id}",
		Summary:     "Get a lease by ID",
		Tags:        []string{"Leases"},
	}, func(ctx context.Context, input *GetLeaseInput) (*LeaseOutput, error) {
		lease, err := svc.Leases.GetLease(ctx, input.ID, input.ActorID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LeaseOutput{Body: toLeaseResponse(lease)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "terminate-lease",
		Method:      http.MethodPost,
		Path:        "/api/v1/leases/{id}/termination",
		Summary:     "Terminate a lease",
		Tags:        []string{"Leases"},
	}, func(ctx context.Context, input *TerminateLeaseInput) (*TerminationOutput, error) {
		date, err := parseDate("termination_date", input.Body.TerminationDate)
		if err != nil {
			return nil, toHumaError(err)
		}
		res, err := svc.Leases.TerminateLease(ctx, app.TerminateLeaseRequest{
			ActorID:         input.ActorID,
			LeaseID:         input.ID,
			TerminationDate: date,
			RefundAdvance:   input.Body.RefundAdvance,
			Reason:          input.Body.Reason,
		})
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &TerminationOutput{}
		out.Body.Lease = toLeaseResponse(res.Lease)
		out.Body.TenantStatus = string(res.TenantStatus)
		out.Body.TenantStatusChanged = res.TenantStatusChanged
		if res.Refund != nil {
			r := toRefundResponse(*res.Refund)
			out.Body.Refund = &r
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-unit-availability",
		Method:      http.MethodGet,
		Path:        "/api/v1/units/{id}/availability",
		Summary:     "Check whether a unit is free",
		Tags:        []string{"Units"},
	}, func(ctx context.Context, input *AvailabilityInput) (*AvailabilityOutput, error) {
		var (
			status app.AvailabilityStatus
			err    error
		)
		if input.On == "" {
			status, err = svc.Leases.GetUnitAvailability(ctx, input.ID)
		} else {
			var on time.Time
			if on, err = parseDate("on", input.On); err == nil {
				status, err = svc.Leases.GetUnitAvailabilityOn(ctx, input.ID, on)
			}
		}
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &AvailabilityOutput{}
		out.Body.UnitID = status.UnitID
		out.Body.AsOf = status.AsOf.Format(domain.DateLayout)
		out.Body.Available = status.Available
		if status.ActiveLease != nil {
			l := toLeaseResponse(*status.ActiveLease)
			out.Body.ActiveLease = &l
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-unit-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/units/{id}/tenant",
		Summary:     "Get the tenant occupying a unit today",
		Tags:        []string{"Units"},
	}, func(ctx context.Context, input *ActiveTenantInput) (*ActiveTenantOutput, error) {
		tenant, err := svc.Leases.GetActiveTenantForUnit(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &ActiveTenantOutput{}
		out.Body.UnitID = input.ID
		if tenant != nil {
			t := toTenantResponse(*tenant)
			out.Body.Tenant = &t
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reactivate-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/reactivate",
		Summary:     "Return an inactive tenant to service",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantInput) (*TenantOutput, error) {
		tenant, err := svc.Leases.ReactivateTenant(ctx, input.ID, input.ActorID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenant-refunds",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}/refunds",
		Summary:     "List refund obligations for a tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantInput) (*RefundsOutput, error) {
		refunds, err := svc.Leases.ListTenantRefunds(ctx, input.ID, input.ActorID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]RefundResponse, len(refunds))
		for i, r := range refunds {
			resp[i] = toRefundResponse(r)
		}
		return &RefundsOutput{Body: resp}, nil
	})
}

func toCreateRequest(input *CreateLeaseInput) (app.CreateLeaseRequest, error) {
	b := input.Body
	req := app.CreateLeaseRequest{
		ActorID:    input.ActorID,
		PropertyID: b.PropertyID,
		UnitID:     b.UnitID,
		TenantID:   b.TenantID,
	}

	var err error
	if req.StartDate, err = parseDate("start_date", b.StartDate); err != nil {
		return req, err
	}
	if b.EndDate != "" {
		end, err := parseDate("end_date", b.EndDate)
		if err != nil {
			return req, err
		}
		req.EndDate = &end
	}
	if req.RentAmount, err = parseAmount("rent_amount", b.RentAmount); err != nil {
		return req, err
	}
	if req.DepositAmount, err = parseAmount("deposit_amount", b.DepositAmount); err != nil {
		return req, err
	}
	if req.AdvanceAmount, err = parseAmount("advance_amount", b.AdvanceAmount); err != nil {
		return req, err
	}
	return req, nil
}

func parseDate(field, s string) (time.Time, error) {
	d, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return d, nil
}

// parseAmount reads a decimal string; empty means zero.
func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Field: field, Reason: "must be a decimal number"}
	}
	return d, nil
}

// toHumaError translates domain errors to Huma HTTP errors. Anything that is
// not a business error is reported without detail.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, domain.ErrValidation):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(err.Error())
	}
	return huma.Error500InternalServerError("internal server error")
}
