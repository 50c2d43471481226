package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/upstream"
	"github.com/fjod/go_cart/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cart is the part of the cart service checkout reads from and removes through.
type Cart interface {
	Current(ctx context.Context) (*domain.Snapshot, error)
	RemoveEntries(ctx context.Context, entryIDs []string) (*domain.Snapshot, error)
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
}

// Status describes the coordinator's current state and the outcome of the last checkout.
type Status struct {
	State           domain.CheckoutState `json:"state"`
	LastOrderNumber string               `json:"last_order_number,omitempty"`
	LastError       string               `json:"last_error,omitempty"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type Coordinator struct {
	cart      Cart
	submitter OrderSubmitter
	creds     upstream.CredentialProvider
	events    EventPublisher
	log       *zap.Logger
	now       func() time.Time
	newKey    func() string

	mu     sync.Mutex
	state  domain.CheckoutState
	status Status
}

func NewCoordinator(cart Cart, submitter OrderSubmitter, creds upstream.CredentialProvider, events EventPublisher, log *zap.Logger) *Coordinator {
	return &Coordinator{
		cart:      cart,
		submitter: submitter,
		creds:     creds,
		events:    events,
		log:       log,
		now:       time.Now,
		newKey:    func() string { return uuid.New().String() },
		state:     domain.CheckoutStateIdle,
		status:    Status{State: domain.CheckoutStateIdle},
	}
}

func (c *Coordinator) State() domain.CheckoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.State = c.state
	return s
}

// Checkout submits the selected entries as one order and, once the backend
// acknowledges it, removes exactly those entries from the cart.
func (c *Coordinator) Checkout(ctx context.Context, req Request) (*domain.Confirmation, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	conf, err := c.run(ctx, req)
	c.finish(conf, err)
	return conf, err
}

func (c *Coordinator) run(ctx context.Context, req Request) (*domain.Confirmation, error) {
	log := logger.WithContext(ctx, c.log)

	snap, err := c.cart.Current(ctx)
	if err != nil {
		return nil, err
	}

	sub := BuildSubmission(snap, req)
	if len(sub.EntryIDs) == 0 || sub.IngredientCount() == 0 {
		return nil, domain.ErrNoItemsSelected
	}
	token, ok := c.creds.Token(ctx)
	if !ok {
		return nil, domain.ErrAuthenticationRequired
	}

	if err := c.transition(domain.CheckoutStateSubmitting); err != nil {
		return nil, err
	}
	key := c.newKey()
	log.Info("submitting order",
		zap.Strings("entry_ids", sub.EntryIDs),
		zap.String("total", sub.Total.String()),
		zap.String("idempotency_key", key))

	ack, err := c.submitter.SubmitOrder(ctx, token, key, sub.Order)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// The caller is gone; whatever came back must not touch the cart.
		fields := []zap.Field{zap.String("idempotency_key", key), zap.Error(ctxErr)}
		if ack != nil {
			fields = append(fields, zap.String("order_number", ack.OrderNumber))
		}
		log.Warn("checkout cancelled, ignoring response", fields...)
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ack.OrderNumber) == "" {
		return nil, fmt.Errorf("%w: order acknowledged without order number", domain.ErrUpstream)
	}

	conf := &domain.Confirmation{
		OrderNumber:       ack.OrderNumber,
		SubmittedEntryIDs: sub.EntryIDs,
		Total:             sub.Total,
		PlacedAt:          c.now().UTC(),
	}

	// The order exists upstream at this point, so a failed removal is reported in
	// the log rather than turned into a checkout failure.
	if _, err := c.cart.RemoveEntries(context.WithoutCancel(ctx), sub.EntryIDs); err != nil {
		log.Error("order placed but cart entries were not removed",
			zap.String("order_number", ack.OrderNumber),
			zap.Strings("entry_ids", sub.EntryIDs),
			zap.Error(err))
	}

	event := domain.OrderPlacedEvent{
		EventID:     uuid.New().String(),
		OrderNumber: conf.OrderNumber,
		EntryIDs:    conf.SubmittedEntryIDs,
		Total:       conf.Total,
		PlacedAt:    conf.PlacedAt,
	}
	if err := c.events.PublishOrderPlaced(ctx, event); err != nil {
		log.Warn("failed to publish order placed event", zap.String("order_number", conf.OrderNumber), zap.Error(err))
	}

	return conf, nil
}

func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.CheckoutStateIdle {
		return domain.ErrCheckoutInProgress
	}
	return c.transitionLocked(domain.CheckoutStateValidating)
}

func (c *Coordinator) finish(conf *domain.Confirmation, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcome := domain.CheckoutStateSuccess
	if err != nil {
		outcome = domain.CheckoutStateFailed
	}
	if terr := c.transitionLocked(outcome); terr != nil {
		c.log.Error("checkout state", zap.Error(terr))
	}

	c.status = Status{UpdatedAt: c.now().UTC()}
	if err != nil {
		c.status.LastError = err.Error()
		c.log.Info("checkout failed", zap.Error(err))
	} else {
		c.status.LastOrderNumber = conf.OrderNumber
		c.log.Info("checkout succeeded",
			zap.String("order_number", conf.OrderNumber),
			zap.Strings("entry_ids", conf.SubmittedEntryIDs))
	}

	if terr := c.transitionLocked(domain.CheckoutStateIdle); terr != nil {
		c.state = domain.CheckoutStateIdle
	}
}

func (c *Coordinator) transition(to domain.CheckoutState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionLocked(to)
}

func (c *Coordinator) transitionLocked(to domain.CheckoutState) error {
	if !domain.CanTransitionTo(c.state, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, c.state, to)
	}
	c.log.Debug("checkout state", zap.Stringer("from", c.state), zap.Stringer("to", to))
	c.state = to
	return nil
}
