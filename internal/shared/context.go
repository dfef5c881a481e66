package shared

import (
	"context"
	"slices"
)

// RequestContext carries the caller identity and data scope for one operation.
// Services take it as an explicit argument; HTTP middleware only stashes it on the
// request context so handlers can hand it over.
type RequestContext struct {
	UserID          int64
	CompanyID       int64
	AllowedBranches []int64
	IsAdmin         bool
	Currency        string
}

// CanAccessBranch reports whether records of the branch are visible to the caller.
func (rc RequestContext) CanAccessBranch(branchID int64) bool {
	if rc.IsAdmin {
		return true
	}
	return slices.Contains(rc.AllowedBranches, branchID)
}

// BranchScope returns the branch filter for list queries; nil means unrestricted.
func (rc RequestContext) BranchScope() []int64 {
	if rc.IsAdmin {
		return nil
	}
	if rc.AllowedBranches == nil {
		return []int64{}
	}
	return rc.AllowedBranches
}

// SystemContext is used by scheduled sweeps that run outside any user request.
func SystemContext(companyID int64, currency string) RequestContext {
	return RequestContext{CompanyID: companyID, IsAdmin: true, Currency: currency}
}

type requestContextKey struct{}

// ContextWithRequest stores the request context.
func ContextWithRequest(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestFromContext extracts the request context.
func RequestFromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}
