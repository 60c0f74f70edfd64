package pricing

import (
	"fmt"
	"strings"
	"time"

	"motorhome-booking-backend/internal/domain"
)

// CouponCheck is the rental a coupon is being applied to.
type CouponCheck struct {
	PickupDate        time.Time
	DropoffDate       time.Time
	Days              int
	RentalAmountCents int64
	Now               time.Time
}

// NormalizeCouponCode trims and upper-cases user input.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func couponRejected(reason string) error {
	return domain.NewValidationError(domain.ErrInvalidCoupon, "coupon_code", reason)
}

// ValidateCoupon checks every usage rule of the coupon against the rental.
func ValidateCoupon(c *domain.Coupon, chk CouponCheck) error {
	if c == nil || !c.IsActive {
		return couponRejected("coupon does not exist or is not active")
	}
	if c.ValidFrom != nil && chk.Now.Before(*c.ValidFrom) {
		return couponRejected("coupon is not valid yet")
	}
	if c.ValidUntil != nil && chk.Now.After(*c.ValidUntil) {
		return couponRejected("coupon has expired")
	}
	if !chk.PickupDate.IsZero() {
		if c.ValidFrom != nil && chk.PickupDate.Before(*c.ValidFrom) {
			return couponRejected("coupon is not valid for the selected dates")
		}
		if c.ValidUntil != nil && chk.PickupDate.After(*c.ValidUntil) {
			return couponRejected("coupon is not valid for the selected dates")
		}
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return couponRejected("coupon usage limit reached")
	}
	if c.MinRentalDays > 0 && chk.Days < c.MinRentalDays {
		return couponRejected(fmt.Sprintf("coupon requires a minimum of %d days", c.MinRentalDays))
	}
	if c.MinRentalAmountCents > 0 && chk.RentalAmountCents < c.MinRentalAmountCents {
		return couponRejected(fmt.Sprintf("coupon requires a minimum amount of %.2f EUR",
			float64(c.MinRentalAmountCents)/100))
	}
	if c.DiscountValue <= 0 {
		return couponRejected("coupon has no discount value")
	}
	if c.DiscountType == domain.DiscountTypePercentage && c.DiscountValue > 100 {
		return couponRejected("coupon percentage is above 100")
	}
	return nil
}

// CouponDiscount validates the coupon and returns the discount it grants
// on rentalAmountCents.
func CouponDiscount(c *domain.Coupon, chk CouponCheck) (int64, error) {
	if err := ValidateCoupon(c, chk); err != nil {
		return 0, err
	}
	switch c.DiscountType {
	case domain.DiscountTypePercentage:
		return PercentOf(chk.RentalAmountCents, c.DiscountValue*100), nil
	case domain.DiscountTypeFixed:
		if c.DiscountValue > chk.RentalAmountCents {
			return chk.RentalAmountCents, nil
		}
		return c.DiscountValue, nil
	}
	return 0, couponRejected(fmt.Sprintf("unknown discount type %q", c.DiscountType))
}

// ApplyCoupon copies the coupon's discount into the pricing input.
func ApplyCoupon(in *Input, c *domain.Coupon) {
	switch c.DiscountType {
	case domain.DiscountTypePercentage:
		in.DiscountBasisPoints = c.DiscountValue * 100
	case domain.DiscountTypeFixed:
		in.FixedDiscountCents = c.DiscountValue
	}
}
