package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"blessbox/internal/config"
	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
	pg "blessbox/internal/infra/db/postgres"
)

// Seeds a demo organization with a free subscription, one QR code set and a
// few coupons, for exercising the flows locally.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	orgRepo := pg.NewOrganizationRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	setRepo := pg.NewQRCodeSetRepo(pool)
	couponRepo := pg.NewCouponRepo(pool)

	const slug = "demo-church"
	if org, err := orgRepo.FindBySlug(ctx, repository.NoTX, slug); err == nil {
		fmt.Printf("organization %q already present (id=%s). No changes.\n", slug, org.ID)
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Fatalf("lookup organization: %v", err)
	}

	org, err := model.NewOrganization(uuid.NewString(), "Demo Church", slug, "admin@demo-church.example")
	if err != nil {
		log.Fatalf("build organization: %v", err)
	}
	if err := orgRepo.Save(ctx, repository.NoTX, org); err != nil {
		log.Fatalf("save organization: %v", err)
	}

	sub, err := model.NewSubscription(uuid.NewString(), org.ID, model.PlanFree, nil)
	if err != nil {
		log.Fatalf("build subscription: %v", err)
	}
	if err := subRepo.Save(ctx, repository.NoTX, sub); err != nil {
		log.Fatalf("save subscription: %v", err)
	}

	now := time.Now()
	set := &model.QRCodeSet{
		ID:             uuid.NewString(),
		OrganizationID: org.ID,
		Name:           "Sunday Service",
		QRCodes: []model.QRCode{
			{ID: uuid.NewString(), Label: "main-entrance", IsActive: true},
			{ID: uuid.NewString(), Label: "side-door", IsActive: true},
		},
		FormSchema: []model.FormField{
			{Name: "name", Label: "Full name", Type: "text", Required: true},
			{Name: "email", Label: "Email", Type: "email", Required: true},
			{Name: "phone", Label: "Phone", Type: "phone", Required: false},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := setRepo.Save(ctx, repository.NoTX, set); err != nil {
		log.Fatalf("save qr code set: %v", err)
	}

	maxUses := 100
	expires := now.AddDate(0, 3, 0)
	coupons := []*model.Coupon{
		{
			ID:            uuid.NewString(),
			Code:          "WELCOME50",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: 50,
			Currency:      "usd",
			MaxUses:       &maxUses,
			ExpiresAt:     &expires,
			CreatedBy:     "seed",
			CreatedAt:     now,
		},
		{
			ID:              uuid.NewString(),
			Code:            "SAVE20",
			DiscountType:    model.DiscountFixed,
			DiscountValue:   2000,
			Currency:        "usd",
			ApplicablePlans: []model.PlanType{model.PlanStandard},
			CreatedBy:       "seed",
			CreatedAt:       now,
		},
	}
	for _, c := range coupons {
		if err := couponRepo.Save(ctx, repository.NoTX, c); err != nil {
			log.Fatalf("save coupon %q: %v", c.Code, err)
		}
	}

	fmt.Printf("seeded: org=%s set=%s coupons=%d\n", org.Slug, set.Name, len(coupons))
	fmt.Printf("registration URL: %s/r/%s/%s\n", cfg.Server.BaseURL, org.Slug, set.QRCodes[0].Label)
}
