package services

import (
	"context"
	"fmt"

	"minitracker/internal/amqp"
	"minitracker/internal/core"
	"minitracker/internal/log"
	"minitracker/internal/session"
)

// LedgerService manages the session owner's revenues and expenses and
// announces every successful mutation.
type LedgerService struct {
	api       LedgerAPI
	store     session.Store
	publisher Publisher
}

func NewLedgerService(api LedgerAPI, store session.Store, publisher Publisher) *LedgerService {
	return &LedgerService{api: api, store: store, publisher: publisher}
}

func (s *LedgerService) Revenues(ctx context.Context, sess *core.Session) ([]core.Revenue, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	out, err := s.api.ListRevenues(ctx, sess)
	if err != nil {
		return nil, forgetExpired(ctx, s.store, sess, err)
	}
	return out, nil
}

func (s *LedgerService) Expenses(ctx context.Context, sess *core.Session) ([]core.Expense, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	out, err := s.api.ListExpenses(ctx, sess)
	if err != nil {
		return nil, forgetExpired(ctx, s.store, sess, err)
	}
	return out, nil
}

// AddRevenue validates r before it reaches the API.
func (s *LedgerService) AddRevenue(ctx context.Context, sess *core.Session, r core.Revenue) (core.Revenue, error) {
	if err := session.Require(sess); err != nil {
		return core.Revenue{}, err
	}
	if err := r.Validate(); err != nil {
		return core.Revenue{}, err
	}

	created, err := s.api.CreateRevenue(ctx, sess, r)
	if err != nil {
		return core.Revenue{}, forgetExpired(ctx, s.store, sess, err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Revenue created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithUser(sess.UserID, sess.Role.String()).
			WithEntry(amqp.KindRevenue, created.ID, created.Date, created.Amount.String()).
			ToSlice()...)
	s.announce(ctx, sess, amqp.KindRevenue, amqp.ActionCreated, created.ID)
	return created, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, sess *core.Session, e core.Expense) (core.Expense, error) {
	if err := session.Require(sess); err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.api.CreateExpense(ctx, sess, e)
	if err != nil {
		return core.Expense{}, forgetExpired(ctx, s.store, sess, err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Expense created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithUser(sess.UserID, sess.Role.String()).
			WithEntry(amqp.KindExpense, created.ID, created.Date, created.Amount.String()).
			ToSlice()...)
	s.announce(ctx, sess, amqp.KindExpense, amqp.ActionCreated, created.ID)
	return created, nil
}

func (s *LedgerService) RemoveRevenue(ctx context.Context, sess *core.Session, id int64) error {
	return s.remove(ctx, sess, amqp.KindRevenue, id, s.api.DeleteRevenue)
}

func (s *LedgerService) RemoveExpense(ctx context.Context, sess *core.Session, id int64) error {
	return s.remove(ctx, sess, amqp.KindExpense, id, s.api.DeleteExpense)
}

func (s *LedgerService) remove(ctx context.Context, sess *core.Session, kind string, id int64,
	del func(context.Context, *core.Session, int64) error) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	if id <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidID, id)
	}
	if err := del(ctx, sess, id); err != nil {
		return forgetExpired(ctx, s.store, sess, err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Entry deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldEntryKind, kind,
		log.FieldEntryID, id,
		log.FieldUserID, sess.UserID)
	s.announce(ctx, sess, kind, amqp.ActionDeleted, id)
	return nil
}

// announce publishes an EntryChanged event. Failures are logged only: the
// mutation already happened on the server.
func (s *LedgerService) announce(ctx context.Context, sess *core.Session, kind, action string, id int64) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewEntryChanged(sess.UserID, kind, action, id)
	if err := s.publisher.PublishEntryChanged(ctx, msg); err != nil {
		log.LogError(ctx, "Failed to publish entry change", err, log.ComponentLedger, log.OpPublish,
			log.NewFields().WithUser(sess.UserID, sess.Role.String()))
	}
}
