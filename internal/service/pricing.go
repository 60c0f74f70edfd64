package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/pricing"
	"motorhome-booking-backend/internal/repository"
)

// quoter turns a request into a pricing input by loading every catalog
// row it references. Booking creation and admin edits share it so stored
// prices always come from the same rules as public quotes.
type quoter struct {
	vehicleRepo  repository.VehicleRepository
	locationRepo repository.LocationRepository
	extraRepo    repository.ExtraRepository
	seasonRepo   repository.SeasonRepository
	couponRepo   repository.CouponRepository
	offerRepo    repository.OfferRepository
	settings     Settings
}

type resolvedQuote struct {
	input  pricing.Input
	quote  pricing.Quote
	coupon *domain.Coupon
	offer  *domain.LastMinuteOffer
}

func normalizeClock(clock, fallback string) string {
	if clock == "" {
		return fallback
	}
	if len(clock) > 5 {
		return clock[:5]
	}
	return clock
}

func (q *quoter) calendar(seasons []domain.Season) *pricing.SeasonCalendar {
	cal := pricing.NewSeasonCalendar(seasons)
	if q.settings.LowSeason != (pricing.RateTiers{}) {
		cal.Default = q.settings.LowSeason
	}
	if q.settings.LowSeasonName != "" {
		cal.DefaultName = q.settings.LowSeasonName
	}
	return cal
}

// resolve prices req. With repricing set, req describes an existing booking
// being edited by an admin: its offer and coupon are honoured as stored,
// without the checks a new customer would face.
func (q *quoter) resolve(ctx context.Context, req QuoteRequest, repricing bool) (*resolvedQuote, error) {
	out := &resolvedQuote{}
	in := &out.input
	in.Policy = q.settings.Policy

	if req.LastMinuteOfferID != "" {
		offer, err := q.offerRepo.GetByID(ctx, req.LastMinuteOfferID)
		if err != nil {
			return nil, err
		}
		if !repricing {
			if offer.Status != domain.OfferStatusPublished {
				return nil, domain.NewValidationError(domain.ErrNotFound, "last_minute_offer_id", "offer is no longer available")
			}
			// An offer fixes the vehicle, the route and the dates.
			req.VehicleID = offer.VehicleID
			req.PickupLocationID = offer.PickupLocationID
			req.DropoffLocationID = offer.DropoffLocationID
			req.PickupDate = offer.PickupDate
			req.DropoffDate = offer.DropoffDate
		}
		out.offer = offer
		in.Offer = &pricing.OfferRate{
			OriginalPricePerDayCents: offer.OriginalPricePerDayCents,
			FinalPricePerDayCents:    offer.FinalPricePerDayCents,
		}
	}

	switch {
	case req.VehicleID == "":
		return nil, domain.MissingField("vehicle_id")
	case req.PickupDate == "":
		return nil, domain.MissingField("pickup_date")
	case req.DropoffDate == "":
		return nil, domain.MissingField("dropoff_date")
	}
	in.PickupDate = req.PickupDate
	in.DropoffDate = req.DropoffDate
	in.PickupTime = normalizeClock(req.PickupTime, domain.DefaultPickupTime)
	in.DropoffTime = normalizeClock(req.DropoffTime, domain.DefaultDropoffTime)

	vehicle, err := q.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsForRent {
		return nil, domain.NewValidationError(domain.ErrNotFound, "vehicle_id", "vehicle is not available for rent")
	}
	in.DayRateCents = vehicle.BasePricePerDayCents

	if in.Offer == nil {
		seasons, err := q.seasonRepo.ListActiveBetween(ctx, req.PickupDate, req.DropoffDate)
		if err != nil {
			return nil, fmt.Errorf("failed to load seasons: %w", err)
		}
		in.Calendar = q.calendar(seasons)
	}

	if req.PickupLocationID != "" {
		loc, err := q.locationRepo.GetByID(ctx, req.PickupLocationID)
		if err != nil {
			return nil, err
		}
		if !loc.IsActive || !loc.IsPickup {
			return nil, domain.NewValidationError(domain.ErrNotFound, "pickup_location_id", "location does not offer pickups")
		}
		in.PickupLocationFeeCents = loc.ExtraFeeCents
	}
	if req.DropoffLocationID != "" {
		loc, err := q.locationRepo.GetByID(ctx, req.DropoffLocationID)
		if err != nil {
			return nil, err
		}
		if !loc.IsActive || !loc.IsDropoff {
			return nil, domain.NewValidationError(domain.ErrNotFound, "dropoff_location_id", "location does not accept returns")
		}
		in.DropoffLocationFeeCents = loc.ExtraFeeCents
	}

	if err := q.resolveExtras(ctx, in, req.Extras); err != nil {
		return nil, err
	}

	out.quote, err = pricing.Calculate(*in)
	if err != nil {
		return nil, err
	}

	if code := pricing.NormalizeCouponCode(req.CouponCode); code != "" {
		coupon, err := q.couponRepo.GetByCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			if repricing {
				// The coupon was deleted after it was redeemed.
				return out, nil
			}
			return nil, domain.NewValidationError(domain.ErrInvalidCoupon, "coupon_code", "coupon does not exist or is not active")
		}
		if err != nil {
			return nil, err
		}
		if !repricing {
			pickup, _ := time.Parse(domain.DateLayout, in.PickupDate)
			dropoff, _ := time.Parse(domain.DateLayout, in.DropoffDate)
			err = pricing.ValidateCoupon(coupon, pricing.CouponCheck{
				PickupDate:        pickup,
				DropoffDate:       dropoff,
				Days:              out.quote.Days,
				RentalAmountCents: out.quote.BasePriceCents + out.quote.ExtrasPriceCents,
				Now:               q.settings.now(),
			})
			if err != nil {
				return nil, err
			}
		}
		pricing.ApplyCoupon(in, coupon)
		out.coupon = coupon
		if out.quote, err = pricing.Calculate(*in); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (q *quoter) resolveExtras(ctx context.Context, in *pricing.Input, reqs []ExtraRequest) error {
	// Repeated lines for one extra are merged so max_quantity holds per extra.
	var ids []string
	qty := make(map[string]int)
	for _, r := range reqs {
		if r.ExtraID == "" {
			return domain.MissingField("extras.extra_id")
		}
		if r.Quantity < 0 {
			return domain.NewValidationError(domain.ErrInvalidQuantity, "extras.quantity",
				fmt.Sprintf("quantity %d is negative", r.Quantity))
		}
		if r.Quantity == 0 {
			continue
		}
		if _, seen := qty[r.ExtraID]; !seen {
			ids = append(ids, r.ExtraID)
		}
		qty[r.ExtraID] += r.Quantity
	}
	if len(ids) == 0 {
		return nil
	}
	extras, err := q.extraRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load extras: %w", err)
	}
	byID := make(map[string]domain.Extra, len(extras))
	for _, e := range extras {
		byID[e.ID] = e
	}
	for _, id := range ids {
		e, ok := byID[id]
		if !ok || !e.IsActive {
			return domain.NewValidationError(domain.ErrNotFound, "extras", fmt.Sprintf("extra %s is not available", id))
		}
		in.Extras = append(in.Extras, pricing.ExtraSelection{Extra: e, Quantity: qty[id]})
	}
	return nil
}

type pricingService struct {
	*quoter
}

func NewPricingService(
	vehicleRepo repository.VehicleRepository,
	locationRepo repository.LocationRepository,
	extraRepo repository.ExtraRepository,
	seasonRepo repository.SeasonRepository,
	couponRepo repository.CouponRepository,
	offerRepo repository.OfferRepository,
	settings Settings,
) PricingService {
	return &pricingService{quoter: &quoter{
		vehicleRepo:  vehicleRepo,
		locationRepo: locationRepo,
		extraRepo:    extraRepo,
		seasonRepo:   seasonRepo,
		couponRepo:   couponRepo,
		offerRepo:    offerRepo,
		settings:     settings,
	}}
}

func (s *pricingService) Quote(ctx context.Context, req QuoteRequest) (*pricing.Quote, error) {
	logger.EnterMethod("pricingService.Quote", "vehicleID", req.VehicleID, "pickup", req.PickupDate, "dropoff", req.DropoffDate)

	r, err := s.resolve(ctx, req, false)
	if err != nil {
		logger.ExitMethodWithError("pricingService.Quote", err)
		return nil, err
	}

	logger.ExitMethod("pricingService.Quote", "total_cents", r.quote.TotalPriceCents)
	return &r.quote, nil
}

func (s *pricingService) ValidateCoupon(ctx context.Context, req CouponRequest) (*CouponResult, error) {
	logger.EnterMethod("pricingService.ValidateCoupon", "code", req.Code)

	code := pricing.NormalizeCouponCode(req.Code)
	if code == "" {
		return nil, domain.MissingField("code")
	}
	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError(domain.ErrInvalidCoupon, "code", "coupon does not exist or is not active")
	}
	if err != nil {
		logger.ExitMethodWithError("pricingService.ValidateCoupon", err)
		return nil, err
	}

	chk := pricing.CouponCheck{RentalAmountCents: req.RentalAmountCents, Now: s.settings.now()}
	if req.PickupDate != "" {
		pickup, err := time.Parse(domain.DateLayout, req.PickupDate)
		if err != nil {
			return nil, domain.NewValidationError(domain.ErrInvalidDateRange, "pickup_date", "must be YYYY-MM-DD")
		}
		chk.PickupDate = pickup
	}
	if req.DropoffDate != "" {
		dropoff, err := time.Parse(domain.DateLayout, req.DropoffDate)
		if err != nil {
			return nil, domain.NewValidationError(domain.ErrInvalidDateRange, "dropoff_date", "must be YYYY-MM-DD")
		}
		chk.DropoffDate = dropoff
	}
	if !chk.PickupDate.IsZero() && !chk.DropoffDate.IsZero() {
		days, err := pricing.CountDays(chk.PickupDate, chk.DropoffDate)
		if err != nil {
			return nil, err
		}
		chk.Days = days
	}

	discount, err := pricing.CouponDiscount(coupon, chk)
	if err != nil {
		logger.ExitMethodWithError("pricingService.ValidateCoupon", err)
		return nil, err
	}

	logger.ExitMethod("pricingService.ValidateCoupon", "discount_cents", discount)
	return &CouponResult{Coupon: coupon, DiscountCents: discount}, nil
}
