package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

func TestCreateTenantSeedsDefaults(t *testing.T) {
	tenants := &mockTenantRepo{}
	methods := &mockMethodRepo{}
	svc := NewTenantService(tenants, methods)
	ownerID := uuid.New()

	tenant, err := svc.CreateTenant(context.Background(), &CreateTenantInput{
		Name:    "Duka Moja",
		Slug:    "duka-moja",
		OwnerID: ownerID,
	})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	if tenant.OwnerID != ownerID {
		t.Errorf("owner = %s, want %s", tenant.OwnerID, ownerID)
	}
	if tenant.Settings.Currency == "" || tenant.Settings.InvoicePrefix == "" {
		t.Error("expected default settings on a tenant created without any")
	}

	if tenants.member == nil || tenants.member.UserID != ownerID || tenants.member.Role != "owner" {
		t.Errorf("expected owner membership, got %+v", tenants.member)
	}

	if len(methods.created) != 4 {
		t.Fatalf("seeded methods = %d, want 4", len(methods.created))
	}
	seeded := make(map[enum.PaymentMethod]bool)
	for _, m := range methods.created {
		if m.TenantID != tenant.ID || !m.IsActive {
			t.Errorf("seeded method %s must be active and scoped to the tenant", m.Code)
		}
		seeded[m.Code] = true
	}
	for _, code := range []enum.PaymentMethod{
		enum.PaymentMethodCash,
		enum.PaymentMethodCard,
		enum.PaymentMethodMobileMoney,
		enum.PaymentMethodCredit,
	} {
		if !seeded[code] {
			t.Errorf("method %s not seeded", code)
		}
	}
}

func TestCreateTenantRejectsDuplicateSlug(t *testing.T) {
	tenants := &mockTenantRepo{
		bySlug: &entity.Tenant{ID: uuid.New(), Slug: "duka-moja"},
	}
	svc := NewTenantService(tenants, &mockMethodRepo{})

	_, err := svc.CreateTenant(context.Background(), &CreateTenantInput{
		Name:    "Duka Mbili",
		Slug:    "duka-moja",
		OwnerID: uuid.New(),
	})
	requireAppError(t, err, http.StatusConflict, "slug already exists")
}
