// Package memory implements the relational repositories in process memory
// for tests. ExecuteTx serializes transactions and rolls back on error, giving
// the same all-or-nothing behavior as the PostgreSQL store. No binary uses it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/outbox"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/platform/persistence"
)

type borrowKey struct {
	userID uuid.UUID
	bookID uuid.UUID
}

type state struct {
	accounts     map[uuid.UUID]account.Account
	books        map[uuid.UUID]book.Book
	borrows      map[borrowKey]book.BorrowRecord
	purchases    []book.PurchaseRecord
	transactions map[string]payment.Transaction
	outbox       []outbox.Message
	nextOutboxID int64
}

// Store holds every table. Repositories obtained from it share its lock.
type Store struct {
	mu sync.Mutex
	state
}

var _ persistence.TxRunner = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: state{
		accounts:     make(map[uuid.UUID]account.Account),
		books:        make(map[uuid.UUID]book.Book),
		borrows:      make(map[borrowKey]book.BorrowRecord),
		transactions: make(map[string]payment.Transaction),
	}}
}

// ExecuteTx runs fn while holding the store lock. Changes made by fn through
// repositories bound with WithTx are discarded if fn returns an error.
func (s *Store) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	saved := s.state.clone()
	if err := fn(nil); err != nil {
		s.state = saved
		return err
	}
	return nil
}

// guard locks the store unless the caller already runs inside ExecuteTx
func (s *Store) guard(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// PutAccount inserts or replaces an account
func (s *Store) PutAccount(acc account.Account) {
	defer s.guard(false)()
	s.accounts[acc.ID] = acc
}

// PutBook inserts or replaces a book and its formats
func (s *Store) PutBook(b book.Book) {
	defer s.guard(false)()
	s.books[b.ID] = cloneBook(b)
}

// Account returns a copy of the stored account
func (s *Store) Account(id uuid.UUID) (account.Account, bool) {
	defer s.guard(false)()
	acc, ok := s.accounts[id]
	return acc, ok
}

// Book returns a copy of the stored book
func (s *Store) Book(id uuid.UUID) (book.Book, bool) {
	defer s.guard(false)()
	b, ok := s.books[id]
	return cloneBook(b), ok
}

// Transaction returns a copy of the stored transaction
func (s *Store) Transaction(reference string) (payment.Transaction, bool) {
	defer s.guard(false)()
	txn, ok := s.transactions[reference]
	return cloneTransaction(txn), ok
}

// Purchases returns every stored purchase record
func (s *Store) Purchases() []book.PurchaseRecord {
	defer s.guard(false)()
	return append([]book.PurchaseRecord(nil), s.purchases...)
}

// BorrowCount returns the number of open borrow records
func (s *Store) BorrowCount() int {
	defer s.guard(false)()
	return len(s.borrows)
}

// OutboxMessages returns every stored outbox message in insertion order
func (s *Store) OutboxMessages() []outbox.Message {
	defer s.guard(false)()
	return append([]outbox.Message(nil), s.outbox...)
}

func (st state) clone() state {
	c := state{
		accounts:     make(map[uuid.UUID]account.Account, len(st.accounts)),
		books:        make(map[uuid.UUID]book.Book, len(st.books)),
		borrows:      make(map[borrowKey]book.BorrowRecord, len(st.borrows)),
		purchases:    append([]book.PurchaseRecord(nil), st.purchases...),
		transactions: make(map[string]payment.Transaction, len(st.transactions)),
		outbox:       append([]outbox.Message(nil), st.outbox...),
		nextOutboxID: st.nextOutboxID,
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.books {
		c.books[k] = cloneBook(v)
	}
	for k, v := range st.borrows {
		c.borrows[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = cloneTransaction(v)
	}
	return c
}

func cloneBook(b book.Book) book.Book {
	formats := make([]book.FormatStock, len(b.Formats))
	for i, f := range b.Formats {
		formats[i] = book.FormatStock{Format: f.Format}
		if f.Stock != nil {
			stock := *f.Stock
			formats[i].Stock = &stock
		}
	}
	b.Formats = formats
	return b
}

func cloneTransaction(txn payment.Transaction) payment.Transaction {
	if txn.BookID != nil {
		id := *txn.BookID
		txn.BookID = &id
	}
	if txn.BalanceAfter != nil {
		balance := *txn.BalanceAfter
		txn.BalanceAfter = &balance
	}
	if txn.LastCheckedAt != nil {
		checked := *txn.LastCheckedAt
		txn.LastCheckedAt = &checked
	}
	return txn
}

// sortForClaim orders never-checked transactions first, then by last check
// and creation time
func sortForClaim(txns []*payment.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		a, b := txns[i].LastCheckedAt, txns[j].LastCheckedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return txns[i].CreatedAt.Before(txns[j].CreatedAt)
	})
}

func now() time.Time {
	return time.Now().UTC()
}
