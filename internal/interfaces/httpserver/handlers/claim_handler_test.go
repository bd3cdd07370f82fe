package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/utils/platformerrors"
)

func TestClaimHandler_List(t *testing.T) {
	deps := newTestDeps()
	var gotFilter claim.Filter
	deps.claims.ListFunc = func(ctx context.Context, filter claim.Filter) ([]*claim.Claim, error) {
		gotFilter = filter
		return []*claim.Claim{{ClaimID: "CLM-1001", Status: claim.StatusDenied}}, nil
	}

	w := deps.do(http.MethodGet, "/v1/claims?status=denied", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotFilter.Status)
	assert.Equal(t, claim.StatusDenied, *gotFilter.Status)

	body := decodedBody(t, w.Body.Bytes())
	assert.EqualValues(t, 1, body["total"])
}

func TestClaimHandler_ListEmptyIsArray(t *testing.T) {
	deps := newTestDeps()

	w := deps.do(http.MethodGet, "/v1/claims", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"total":0}`, w.Body.String())
}

func TestClaimHandler_ListRejectsUnknownStatus(t *testing.T) {
	deps := newTestDeps()
	called := false
	deps.claims.ListFunc = func(ctx context.Context, filter claim.Filter) ([]*claim.Claim, error) {
		called = true
		return nil, nil
	}

	w := deps.do(http.MethodGet, "/v1/claims?status=lost", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
}

func TestClaimHandler_Get(t *testing.T) {
	deps := newTestDeps()
	deps.claims.GetFunc = func(ctx context.Context, claimID string) (*claim.Claim, error) {
		if claimID != "CLM-1001" {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"claim not found", claim.ErrNotFound, "claim-find-notfound-001")
		}
		return &claim.Claim{ClaimID: claimID, Status: claim.StatusDenied}, nil
	}

	w := deps.do(http.MethodGet, "/v1/claims/CLM-1001", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CLM-1001", decodedBody(t, w.Body.Bytes())["claimId"])

	w = deps.do(http.MethodGet, "/v1/claims/CLM-9999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "claim-find-notfound-001", decodedBody(t, w.Body.Bytes())["code"])
}
