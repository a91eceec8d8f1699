package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/outbox"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
)

// AccountRepository implements account.Repository on a Store
type AccountRepository struct {
	store *Store
	inTx  bool
}

// Accounts returns the store's account repository
func (s *Store) Accounts() account.Repository {
	return &AccountRepository{store: s}
}

func (r *AccountRepository) WithTx(pgx.Tx) account.Repository {
	return &AccountRepository{store: r.store, inTx: true}
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	defer r.store.guard(r.inTx)()
	acc, ok := r.store.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &acc, nil
}

func (r *AccountRepository) Credit(_ context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, account.ErrInvalidAmount
	}
	defer r.store.guard(r.inTx)()
	acc, ok := r.store.accounts[id]
	if !ok {
		return 0, account.ErrAccountNotFound{AccountID: id}
	}
	acc.Balance += amount
	acc.UpdatedAt = now()
	r.store.accounts[id] = acc
	return acc.Balance, nil
}

func (r *AccountRepository) Reserve(_ context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, account.ErrInvalidAmount
	}
	defer r.store.guard(r.inTx)()
	acc, ok := r.store.accounts[id]
	if !ok {
		return 0, account.ErrAccountNotFound{AccountID: id}
	}
	if acc.Available() < amount {
		return 0, account.ErrInsufficientFunds
	}
	acc.Reserved += amount
	acc.UpdatedAt = now()
	r.store.accounts[id] = acc
	return acc.Available(), nil
}

func (r *AccountRepository) Release(_ context.Context, id uuid.UUID, amount int64) error {
	if amount <= 0 {
		return account.ErrInvalidAmount
	}
	defer r.store.guard(r.inTx)()
	acc, ok := r.store.accounts[id]
	if !ok {
		return account.ErrAccountNotFound{AccountID: id}
	}
	if acc.Reserved < amount {
		return account.ErrNoHold
	}
	acc.Reserved -= amount
	acc.UpdatedAt = now()
	r.store.accounts[id] = acc
	return nil
}

func (r *AccountRepository) Capture(_ context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, account.ErrInvalidAmount
	}
	defer r.store.guard(r.inTx)()
	acc, ok := r.store.accounts[id]
	if !ok {
		return 0, account.ErrAccountNotFound{AccountID: id}
	}
	if acc.Reserved < amount || acc.Balance < amount {
		return 0, account.ErrNoHold
	}
	acc.Balance -= amount
	acc.Reserved -= amount
	acc.UpdatedAt = now()
	r.store.accounts[id] = acc
	return acc.Balance, nil
}

// TransactionRepository implements payment.Repository on a Store
type TransactionRepository struct {
	store *Store
	inTx  bool
}

// Transactions returns the store's payment transaction repository
func (s *Store) Transactions() payment.Repository {
	return &TransactionRepository{store: s}
}

func (r *TransactionRepository) WithTx(pgx.Tx) payment.Repository {
	return &TransactionRepository{store: r.store, inTx: true}
}

func (r *TransactionRepository) Create(_ context.Context, txn *payment.Transaction) error {
	defer r.store.guard(r.inTx)()
	if _, exists := r.store.transactions[txn.Reference]; exists {
		return payment.ErrDuplicateReference{Reference: txn.Reference}
	}
	r.store.transactions[txn.Reference] = cloneTransaction(*txn)
	return nil
}

func (r *TransactionRepository) GetByReference(_ context.Context, reference string) (*payment.Transaction, error) {
	defer r.store.guard(r.inTx)()
	return r.get(reference)
}

func (r *TransactionRepository) LockForUpdate(_ context.Context, reference string) (*payment.Transaction, error) {
	defer r.store.guard(r.inTx)()
	return r.get(reference)
}

func (r *TransactionRepository) get(reference string) (*payment.Transaction, error) {
	txn, ok := r.store.transactions[reference]
	if !ok {
		return nil, payment.ErrTransactionNotFound{Reference: reference}
	}
	c := cloneTransaction(txn)
	return &c, nil
}

func (r *TransactionRepository) Transition(_ context.Context, reference string, to shared.TransactionStatus, outcome payment.Outcome) (bool, error) {
	if !to.IsFinal() {
		return false, fmt.Errorf("invalid transition target %q", to)
	}
	defer r.store.guard(r.inTx)()
	txn, ok := r.store.transactions[reference]
	if !ok || !txn.IsPending() {
		return false, nil
	}
	txn.Status = to
	txn.FailureReason = outcome.FailureReason
	if outcome.GatewayStatus != "" {
		txn.GatewayStatus = outcome.GatewayStatus
	}
	txn.BalanceAfter = outcome.BalanceAfter
	txn.UpdatedAt = now()
	r.store.transactions[reference] = cloneTransaction(txn)
	return true, nil
}

func (r *TransactionRepository) RecordGatewayStatus(_ context.Context, reference, gatewayStatus string) error {
	defer r.store.guard(r.inTx)()
	txn, ok := r.store.transactions[reference]
	if !ok || !txn.IsPending() {
		return nil
	}
	txn.GatewayStatus = gatewayStatus
	txn.UpdatedAt = now()
	r.store.transactions[reference] = txn
	return nil
}

func (r *TransactionRepository) ClaimStale(_ context.Context, cutoff, checkedAt time.Time, limit int) ([]*payment.Transaction, error) {
	defer r.store.guard(r.inTx)()
	var stale []*payment.Transaction
	for _, txn := range r.store.transactions {
		if txn.IsPending() && txn.CreatedAt.Before(cutoff) {
			c := cloneTransaction(txn)
			stale = append(stale, &c)
		}
	}
	sortForClaim(stale)
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	for _, txn := range stale {
		checked := checkedAt
		txn.LastCheckedAt = &checked
		r.store.transactions[txn.Reference] = cloneTransaction(*txn)
	}
	return stale, nil
}

// BookRepository implements book.Repository on a Store
type BookRepository struct {
	store *Store
	inTx  bool
}

// Books returns the store's catalog repository
func (s *Store) Books() book.Repository {
	return &BookRepository{store: s}
}

func (r *BookRepository) WithTx(pgx.Tx) book.Repository {
	return &BookRepository{store: r.store, inTx: true}
}

func (r *BookRepository) GetByID(_ context.Context, id uuid.UUID) (*book.Book, error) {
	defer r.store.guard(r.inTx)()
	b, ok := r.store.books[id]
	if !ok {
		return nil, book.ErrBookNotFound{BookID: id}
	}
	c := cloneBook(b)
	return &c, nil
}

func (r *BookRepository) DecrementStock(_ context.Context, bookID uuid.UUID, format book.Format, quantity int) error {
	defer r.store.guard(r.inTx)()
	stock := r.stock(bookID, format)
	if stock == nil || *stock < quantity {
		return book.ErrInsufficientStock{BookID: bookID, Format: format}
	}
	*stock -= quantity
	return nil
}

func (r *BookRepository) IncrementStock(_ context.Context, bookID uuid.UUID, format book.Format, quantity int) (bool, error) {
	defer r.store.guard(r.inTx)()
	stock := r.stock(bookID, format)
	if stock == nil {
		return false, nil
	}
	*stock += quantity
	return true, nil
}

func (r *BookRepository) AddSales(_ context.Context, bookID uuid.UUID, quantity int) error {
	defer r.store.guard(r.inTx)()
	b, ok := r.store.books[bookID]
	if !ok {
		return book.ErrBookNotFound{BookID: bookID}
	}
	b.Sales += quantity
	r.store.books[bookID] = b
	return nil
}

// stock points at the live tracked counter, or nil when there is none
func (r *BookRepository) stock(bookID uuid.UUID, format book.Format) *int {
	b, ok := r.store.books[bookID]
	if !ok {
		return nil
	}
	for _, f := range b.Formats {
		if f.Format == format {
			return f.Stock
		}
	}
	return nil
}

// RecordRepository implements book.RecordRepository on a Store
type RecordRepository struct {
	store *Store
	inTx  bool
}

// Records returns the store's borrow and purchase record repository
func (s *Store) Records() book.RecordRepository {
	return &RecordRepository{store: s}
}

func (r *RecordRepository) WithTx(pgx.Tx) book.RecordRepository {
	return &RecordRepository{store: r.store, inTx: true}
}

func (r *RecordRepository) CreateBorrow(_ context.Context, record *book.BorrowRecord) error {
	defer r.store.guard(r.inTx)()
	key := borrowKey{userID: record.UserID, bookID: record.BookID}
	if _, exists := r.store.borrows[key]; exists {
		return book.ErrDuplicateBorrow{UserID: record.UserID, BookID: record.BookID}
	}
	r.store.borrows[key] = *record
	return nil
}

func (r *RecordRepository) DeleteBorrow(_ context.Context, userID, bookID uuid.UUID) (*book.BorrowRecord, error) {
	defer r.store.guard(r.inTx)()
	key := borrowKey{userID: userID, bookID: bookID}
	record, ok := r.store.borrows[key]
	if !ok {
		return nil, book.ErrBorrowNotFound{UserID: userID, BookID: bookID}
	}
	delete(r.store.borrows, key)
	return &record, nil
}

func (r *RecordRepository) CreatePurchase(_ context.Context, record *book.PurchaseRecord) error {
	defer r.store.guard(r.inTx)()
	r.store.purchases = append(r.store.purchases, *record)
	return nil
}

// OutboxRepository implements outbox.Repository on a Store
type OutboxRepository struct {
	store *Store
	inTx  bool
}

// Outbox returns the store's outbox repository
func (s *Store) Outbox() outbox.Repository {
	return &OutboxRepository{store: s}
}

func (r *OutboxRepository) WithTx(pgx.Tx) outbox.Repository {
	return &OutboxRepository{store: r.store, inTx: true}
}

func (r *OutboxRepository) Create(_ context.Context, message *outbox.Message) error {
	defer r.store.guard(r.inTx)()
	r.store.nextOutboxID++
	message.ID = r.store.nextOutboxID
	r.store.outbox = append(r.store.outbox, *message)
	return nil
}

func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	defer r.store.guard(r.inTx)()
	var pending []*outbox.Message
	for i := range r.store.outbox {
		if r.store.outbox[i].Status != shared.OutboxStatusPending {
			continue
		}
		m := r.store.outbox[i]
		pending = append(pending, &m)
		if limit > 0 && len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	defer r.store.guard(r.inTx)()
	m := r.find(id)
	if m == nil {
		return outbox.ErrMessageNotFound{ID: id}
	}
	m.Status = status
	return nil
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	defer r.store.guard(r.inTx)()
	m := r.find(id)
	if m == nil {
		return outbox.ErrMessageNotFound{ID: id}
	}
	m.IncrementAttempts()
	return nil
}

func (r *OutboxRepository) find(id int64) *outbox.Message {
	for i := range r.store.outbox {
		if r.store.outbox[i].ID == id {
			return &r.store.outbox[i]
		}
	}
	return nil
}
