// Package checkout runs the Shipping -> Review -> Success flow. Stage 1
// freezes the cart into a CheckoutSnapshot; later stages only read the
// handoff and never look at the live cart again.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mosaicgrove/storefront/internal/auth"
	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/mosaicgrove/storefront/internal/handoff"
	"github.com/mosaicgrove/storefront/internal/metrics"
	"github.com/shopspring/decimal"
)

const DefaultCountry = "Ghana"

// Cart is the part of the cart store the pipeline needs.
type Cart interface {
	Lines() []domain.CartLine
	ClearCart()
}

type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

// ComputeTotals is Σ price×quantity plus the method fee.
func ComputeTotals(lines []domain.CartLine, method domain.DeliveryMethod) Totals {
	subtotal := domain.Subtotal(lines)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: method.Fee,
		Total:       subtotal.Add(method.Fee),
	}
}

// ShippingForm is what the shopper submits on Stage 1.
type ShippingForm struct {
	ShippingInfo   domain.ShippingInfo     `json:"shipping_info"`
	DeliveryMethod domain.DeliveryMethodID `json:"delivery_method"`
	Notes          string                  `json:"notes,omitempty"`
}

// ShippingView is the Stage 1 read model.
type ShippingView struct {
	Form            ShippingForm            `json:"form"`
	Valid           bool                    `json:"valid"`
	DeliveryMethods []domain.DeliveryMethod `json:"delivery_methods"`
	Lines           []domain.CartLine       `json:"lines"`
	Totals          Totals                  `json:"totals"`
}

type Pipeline struct {
	handoff  handoff.Store
	validate *validator.Validate
	delay    time.Duration
	now      func() time.Time
	log      *slog.Logger
}

func NewPipeline(store handoff.Store, delay time.Duration, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Pipeline{
		handoff:  store,
		validate: v,
		delay:    delay,
		now:      time.Now,
		log:      log,
	}
}

// guardShipping enforces the Stage 1 entry preconditions: a non-empty cart
// first, then a signed-in shopper.
func guardShipping(sess auth.Session, lines []domain.CartLine) error {
	if len(lines) == 0 {
		return &RedirectError{To: StageCart, Reason: "cart is empty"}
	}
	if !sess.Authenticated() {
		return &RedirectError{To: StageLogin, ReturnTo: StageShipping.Path(), Reason: "login required"}
	}
	return nil
}

// Shipping returns the Stage 1 form, prefilled from the session, or from the
// last submission of this checkout when the shopper comes back from Review.
func (p *Pipeline) Shipping(ctx context.Context, scope string, sess auth.Session, cart Cart) (ShippingView, error) {
	lines := cart.Lines()
	if err := guardShipping(sess, lines); err != nil {
		return ShippingView{}, err
	}

	form := ShippingForm{
		ShippingInfo: domain.ShippingInfo{
			FullName: sess.Name,
			Email:    sess.Email,
			Country:  DefaultCountry,
		},
		DeliveryMethod: domain.DeliveryStandard,
	}
	h, err := p.handoff.Load(ctx, scope)
	if err != nil {
		p.log.WarnContext(ctx, "failed to load checkout handoff", "scope", scope, "error", err)
	} else if snap, ok := h.CheckoutSnapshot(); ok {
		form = ShippingForm{
			ShippingInfo:   snap.ShippingInfo,
			DeliveryMethod: snap.DeliveryMethod.ID,
			Notes:          snap.Notes,
		}
	}

	method, _ := LookupDeliveryMethod(form.DeliveryMethod)
	return ShippingView{
		Form:            form,
		Valid:           p.Validate(form) == nil,
		DeliveryMethods: DeliveryMethods(),
		Lines:           lines,
		Totals:          ComputeTotals(lines, method),
	}, nil
}

// Validate checks that every required shipping field is non-empty and the
// delivery method is one of the offered ones.
func (p *Pipeline) Validate(form ShippingForm) error {
	var fields []string
	if err := p.validate.Struct(form.ShippingInfo); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate shipping info: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if _, ok := LookupDeliveryMethod(form.DeliveryMethod); !ok {
		fields = append(fields, "delivery_method")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// SubmitShipping freezes the current cart and form into a snapshot and
// stores it as the session's handoff.
func (p *Pipeline) SubmitShipping(ctx context.Context, scope string, sess auth.Session, cart Cart, form ShippingForm) (domain.CheckoutSnapshot, error) {
	lines := cart.Lines()
	if err := guardShipping(sess, lines); err != nil {
		return domain.CheckoutSnapshot{}, err
	}
	if err := p.Validate(form); err != nil {
		return domain.CheckoutSnapshot{}, err
	}

	method, _ := LookupDeliveryMethod(form.DeliveryMethod)
	totals := ComputeTotals(lines, method)
	snap := domain.CheckoutSnapshot{
		ShippingInfo:   form.ShippingInfo,
		DeliveryMethod: method,
		Notes:          form.Notes,
		Lines:          lines,
		Subtotal:       totals.Subtotal,
		DeliveryFee:    totals.DeliveryFee,
		Total:          totals.Total,
		SubmittedAt:    p.now(),
	}

	if err := p.handoff.Save(ctx, scope, handoff.WithSnapshot(snap)); err != nil {
		return domain.CheckoutSnapshot{}, fmt.Errorf("failed to save checkout snapshot: %w", err)
	}
	return snap.Clone(), nil
}

func (p *Pipeline) snapshot(ctx context.Context, scope string) (domain.CheckoutSnapshot, error) {
	h, err := p.handoff.Load(ctx, scope)
	if err != nil {
		return domain.CheckoutSnapshot{}, fmt.Errorf("failed to load checkout handoff: %w", err)
	}
	snap, ok := h.CheckoutSnapshot()
	if !ok {
		return domain.CheckoutSnapshot{}, &RedirectError{To: StageShipping, Reason: "no shipping details submitted"}
	}
	return snap, nil
}

// Review returns the frozen snapshot exactly as Stage 1 stored it.
func (p *Pipeline) Review(ctx context.Context, scope string) (domain.CheckoutSnapshot, error) {
	return p.snapshot(ctx, scope)
}

// PlaceOrder turns the snapshot into a confirmation, stores it and clears the
// cart. The only side effect outside the handoff is cart.ClearCart.
func (p *Pipeline) PlaceOrder(ctx context.Context, scope string, cart Cart) (domain.OrderConfirmation, error) {
	snap, err := p.snapshot(ctx, scope)
	if err != nil {
		return domain.OrderConfirmation{}, err
	}

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return domain.OrderConfirmation{}, fmt.Errorf("order placement interrupted: %w", ctx.Err())
		}
	}

	now := p.now()
	if now.Before(snap.SubmittedAt) {
		now = snap.SubmittedAt
	}
	conf := domain.OrderConfirmation{
		OrderID:          OrderID(now),
		OrderDate:        now,
		CheckoutSnapshot: snap,
	}

	if err := p.handoff.Save(ctx, scope, handoff.WithConfirmation(conf)); err != nil {
		return domain.OrderConfirmation{}, fmt.Errorf("failed to save order confirmation: %w", err)
	}
	cart.ClearCart()

	metrics.OrdersPlaced.WithLabelValues(string(snap.DeliveryMethod.ID)).Inc()
	p.log.InfoContext(ctx, "order placed",
		"order_id", conf.OrderID,
		"delivery_method", snap.DeliveryMethod.ID,
		"total", conf.Total.StringFixed(2))
	return conf.Clone(), nil
}

// Success returns the stored confirmation.
func (p *Pipeline) Success(ctx context.Context, scope string) (domain.OrderConfirmation, error) {
	h, err := p.handoff.Load(ctx, scope)
	if err != nil {
		return domain.OrderConfirmation{}, fmt.Errorf("failed to load checkout handoff: %w", err)
	}
	conf, ok := h.OrderConfirmation()
	if !ok {
		return domain.OrderConfirmation{}, &RedirectError{To: StageReview, Reason: "no order placed"}
	}
	return conf, nil
}

// Discard drops whatever the scope holds, snapshot or confirmation.
func (p *Pipeline) Discard(ctx context.Context, scope string) error {
	if err := p.handoff.Clear(ctx, scope); err != nil {
		return fmt.Errorf("failed to clear checkout handoff: %w", err)
	}
	return nil
}

// OrderID is "MG-" followed by the low digits of the unix millisecond clock.
func OrderID(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 7 {
		ms = ms[7:]
	}
	return "MG-" + ms
}
