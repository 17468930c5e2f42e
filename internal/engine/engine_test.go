package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/order"
	"matching-core/internal/persistence"
	"matching-core/internal/projection"
	"matching-core/internal/quote"
	"matching-core/internal/trade"
)

var open = book.NewTradingStatuses(book.TradingStatusOpenForTrading)

func newTestEngine(t *testing.T, deps Dependencies, bookIDs ...book.BookID) *Engine {
	t.Helper()
	engine := NewEngine(&EngineConfig{
		ShardCount:     4,
		QueueSize:      100,
		IdempotencyTTL: time.Hour,
		MaxRetries:     3,
		SnapshotEvery:  2,
	}, deps, nil)
	t.Cleanup(engine.Stop)

	for _, id := range bookIDs {
		if _, err := engine.OpenBook(context.Background(), id, open); err != nil {
			t.Fatalf("open book %s failed: %v", id, err)
		}
	}
	return engine
}

func placeEnvelope(who client.Client, bookID book.BookID, requestID string, side book.Side, price, size int64, idemKey string) *CommandEnvelope {
	cmd := order.PlaceOrderCommand{
		RequestID:     client.RequestID{Current: requestID},
		WhoRequested:  who,
		BookID:        bookID,
		EntryType:     book.EntryTypeLimit,
		Side:          side,
		Price:         book.NewPrice(price),
		Size:          size,
		TimeInForce:   book.TimeInForceGoodTillCancel,
		WhenRequested: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	hash, _ := ComputePayloadHash(cmd)
	return &CommandEnvelope{
		CommandID:      "cmd-" + requestID,
		IdempotencyKey: idemKey,
		WhoRequested:   who,
		PayloadHash:    hash,
		Command:        cmd,
		CreatedAt:      time.Now(),
	}
}

func eventTypes(events []book.Event) []string {
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType())
	}
	return types
}

var (
	acc1 = client.Client{FirmID: "firm1", FirmClientID: "c1"}
	acc2 = client.Client{FirmID: "firm2"}
)

// TestRouting tests that routing is stable and deterministic
func TestRouting(t *testing.T) {
	router := NewRouter(8)

	bookIDs := []book.BookID{"BTC-USDT", "ETH-USDT", "SOL-USDT", "DOGE-USDT", "ADA-USDT"}
	shardIDs := make(map[int]bool)
	for _, id := range bookIDs {
		first := router.Route(id)
		shardIDs[first] = true
		if first < 0 || first >= 8 {
			t.Errorf("Shard ID out of range: %d for book %s", first, id)
		}
		for i := 0; i < 100; i++ {
			if router.Route(id) != first {
				t.Errorf("Routing not stable for book %s", id)
			}
		}
	}

	if len(shardIDs) < 2 {
		t.Logf("Warning: All books routed to same shard (unlikely but possible)")
	}
}

func TestSubmitToMissingBook(t *testing.T) {
	engine := newTestEngine(t, Dependencies{})

	result := engine.Submit(context.Background(), placeEnvelope(acc1, "NOPE", "o1", book.SideBuy, 100, 1, ""))
	if result.ErrorCode != ErrorCodeBookNotFound {
		t.Fatalf("expected BOOK_NOT_FOUND, got %s (%v)", result.ErrorCode, result.Err)
	}
	if !errors.Is(result.Err, book.ErrBooksNotFound) {
		t.Fatalf("expected ErrBooksNotFound, got %v", result.Err)
	}
}

func TestOpenBookTwice(t *testing.T) {
	engine := newTestEngine(t, Dependencies{}, "BTC-USDT")

	_, err := engine.OpenBook(context.Background(), "BTC-USDT", open)
	if !errors.Is(err, ErrBookExists) {
		t.Fatalf("expected ErrBookExists, got %v", err)
	}
}

// TestIdempotency tests idempotency mechanism
func TestIdempotency(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, Dependencies{}, "BTC-USDT")

	// Same idempotency key + same payload = only execute once
	result1 := engine.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 43000, 100, "idem_key_1"))
	if result1.ErrorCode != ErrorCodeNone {
		t.Fatalf("First submission failed: %v", result1.Err)
	}
	if len(result1.Events) == 0 {
		t.Fatalf("First submission should generate events")
	}

	result2 := engine.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 43000, 100, "idem_key_1"))
	if result2.ErrorCode != ErrorCodeNone {
		t.Errorf("Second submission should succeed (cached): %v", result2.Err)
	}
	if len(result1.Events) != len(result2.Events) || result1.LastEventID != result2.LastEventID {
		t.Errorf("Cached result should match original result")
	}

	books, _ := engine.Books("BTC-USDT")
	if books.BuyLimitBook.Len() != 1 {
		t.Errorf("Order should rest once, got %d entries", books.BuyLimitBook.Len())
	}

	// Same idempotency key + different payload = conflict
	result3 := engine.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 44000, 100, "idem_key_1"))
	if result3.ErrorCode != ErrorCodeDuplicateRequest {
		t.Errorf("Expected DUPLICATE_REQUEST, got %s", result3.ErrorCode)
	}
	if !errors.Is(result3.Err, ErrIdempotencyConflict) {
		t.Errorf("Expected ErrIdempotencyConflict, got %v", result3.Err)
	}
}

// TestIdempotencyScope tests that idempotency keys are scoped correctly
func TestIdempotencyScope(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, Dependencies{}, "BTC-USDT", "ETH-USDT")

	result1 := engine.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 43000, 100, "shared_key"))
	if result1.ErrorCode != ErrorCodeNone {
		t.Fatalf("First submission failed: %v", result1.Err)
	}

	// Same key, different requester
	result2 := engine.Submit(ctx, placeEnvelope(acc2, "BTC-USDT", "o2", book.SideBuy, 43000, 100, "shared_key"))
	if result2.ErrorCode != ErrorCodeNone {
		t.Errorf("Second submission should succeed (different requester): %v", result2.Err)
	}

	// Same key, different book
	result3 := engine.Submit(ctx, placeEnvelope(acc1, "ETH-USDT", "o3", book.SideBuy, 2000, 100, "shared_key"))
	if result3.ErrorCode != ErrorCodeNone {
		t.Errorf("Third submission should succeed (different book): %v", result3.Err)
	}

	books, _ := engine.Books("BTC-USDT")
	if books.BuyLimitBook.Len() != 2 {
		t.Errorf("Expected 2 resting orders, got %d", books.BuyLimitBook.Len())
	}
}

func TestIdempotencyExpiry(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	key := IdempotencyKey{WhoRequested: acc1, BookID: "BTC-USDT", Kind: book.CommandKindPlaceOrder, IdempotencyKey: "k"}
	store.Store(key, "h1", &CommandExecResult{LastEventID: 7})

	cached, err := store.Check(key, "h1")
	if err != nil || cached == nil || cached.LastEventID != 7 {
		t.Fatalf("expected cached result, got %+v, %v", cached, err)
	}

	now = now.Add(2 * time.Minute)
	if cached, err := store.Check(key, "h2"); cached != nil || err != nil {
		t.Fatalf("expired record should be ignored, got %+v, %v", cached, err)
	}
	store.Cleanup()
	if store.Size() != 0 {
		t.Fatalf("expected expired record to be removed, got %d", store.Size())
	}
}

// TestCancelOrder tests cancel order functionality through engine
func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, Dependencies{}, "BTC-USDT")

	placeResult := engine.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 43000, 100, "idem_place"))
	if placeResult.ErrorCode != ErrorCodeNone {
		t.Fatalf("Place order failed: %v", placeResult.Err)
	}

	cancel := func(requestID string) *CommandExecResult {
		return engine.Submit(ctx, &CommandEnvelope{
			CommandID:    "cmd_" + requestID,
			WhoRequested: acc1,
			Command: order.CancelOrderCommand{
				RequestID:    client.RequestID{Current: requestID, Original: "o1"},
				WhoRequested: acc1,
				BookID:       "BTC-USDT",
				Side:         book.SideBuy,
			},
		})
	}

	cancelResult := cancel("c1")
	if cancelResult.ErrorCode != ErrorCodeNone {
		t.Fatalf("Cancel order failed: %v", cancelResult.Err)
	}
	if got := eventTypes(cancelResult.Events); len(got) != 1 || got[0] != "OrderCancelled" {
		t.Errorf("Expected one OrderCancelled event, got %v", got)
	}

	// Cancelling again is a business rejection, not an engine error
	cancelResult2 := cancel("c2")
	if cancelResult2.ErrorCode != ErrorCodeNone {
		t.Fatalf("Second cancel should be committed as a rejection: %v", cancelResult2.Err)
	}
	rejected, ok := cancelResult2.Events[0].(order.OrderCancelRejectedEvent)
	if !ok {
		t.Fatalf("Expected OrderCancelRejectedEvent, got %T", cancelResult2.Events[0])
	}
	if rejected.RejectReason != order.CancelRejectReasonUnknownOrder {
		t.Errorf("Expected UNKNOWN_ORDER, got %s", rejected.RejectReason)
	}
	if cancelResult2.LastEventID != 4 {
		t.Errorf("Expected last event ID 4, got %d", cancelResult2.LastEventID)
	}
}

// TestMatchingAcrossEngine tests that matching works correctly through the engine
func TestMatchingAcrossEngine(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, Dependencies{}, "BTC-USDT")

	buyResult := engine.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", "buy1", book.SideBuy, 43000, 100, "idem_buy"))
	if buyResult.ErrorCode != ErrorCodeNone {
		t.Fatalf("Buy order failed: %v", buyResult.Err)
	}

	sellResult := engine.Submit(ctx, placeEnvelope(acc2, "BTC-USDT", "sell1", book.SideSell, 43000, 50, "idem_sell"))
	if sellResult.ErrorCode != ErrorCodeNone {
		t.Fatalf("Sell order failed: %v", sellResult.Err)
	}

	var trades []trade.TradeEvent
	for _, e := range sellResult.Events {
		if te, ok := e.(trade.TradeEvent); ok {
			trades = append(trades, te)
		}
	}
	if len(trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(trades))
	}
	if trades[0].Size != 50 {
		t.Errorf("Expected trade size 50, got %d", trades[0].Size)
	}
	if trades[0].Passive.RequestID.Current != "buy1" {
		t.Errorf("Expected passive buy1, got %s", trades[0].Passive.RequestID.Current)
	}
	if trades[0].Aggressor.RequestID.Current != "sell1" {
		t.Errorf("Expected aggressor sell1, got %s", trades[0].Aggressor.RequestID.Current)
	}
}

func TestMassQuoteThroughEngine(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, Dependencies{}, "BTC-USDT")

	placed := engine.Submit(ctx, &CommandEnvelope{
		WhoRequested: acc2,
		Command: quote.PlaceMassQuoteCommand{
			QuoteID:      "q1",
			WhoRequested: acc2,
			BookID:       "BTC-USDT",
			TimeInForce:  book.TimeInForceGoodTillCancel,
			Entries: []quote.Entry{{
				QuoteEntryID: "e1",
				Bid:          &book.SizeAtPrice{Size: 5, Price: 99},
				Offer:        &book.SizeAtPrice{Size: 5, Price: 101},
			}},
		},
	})
	if placed.ErrorCode != ErrorCodeNone {
		t.Fatalf("Mass quote failed: %v", placed.Err)
	}

	cancelled := engine.Submit(ctx, &CommandEnvelope{
		WhoRequested: acc2,
		Command:      quote.CancelMassQuoteCommand{WhoRequested: acc2, BookID: "BTC-USDT"},
	})
	if cancelled.ErrorCode != ErrorCodeNone {
		t.Fatalf("Mass quote cancel failed: %v", cancelled.Err)
	}
	if got := eventTypes(cancelled.Events); len(got) != 1 || got[0] != "MassQuoteCancelled" {
		t.Fatalf("Expected MassQuoteCancelled, got %v", got)
	}

	books, _ := engine.Books("BTC-USDT")
	if books.BuyLimitBook.Len() != 0 || books.SellLimitBook.Len() != 0 {
		t.Fatalf("Expected empty book after cancelling quotes")
	}
}

func TestConcurrencyIsolation(t *testing.T) {
	ctx := context.Background()
	bookIDs := []book.BookID{"BTC-USDT", "ETH-USDT", "SOL-USDT", "DOGE-USDT"}
	engine := newTestEngine(t, Dependencies{}, bookIDs...)

	const perBook = 20
	var wg sync.WaitGroup
	for _, id := range bookIDs {
		for i := 0; i < perBook; i++ {
			wg.Add(1)
			go func(bookID book.BookID, idx int) {
				defer wg.Done()
				who := client.Client{FirmID: fmt.Sprintf("firm%d", idx)}
				result := engine.Submit(ctx, placeEnvelope(who, bookID, fmt.Sprintf("o%d", idx), book.SideBuy, 100+int64(idx), 1, ""))
				if result.ErrorCode != ErrorCodeNone {
					t.Errorf("Order failed for %s: %v", bookID, result.Err)
				}
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range bookIDs {
		books, err := engine.Books(id)
		if err != nil {
			t.Fatalf("Books(%s) failed: %v", id, err)
		}
		// OrderPlaced + EntryAddedToBook per order, gapless
		if books.LastEventID != 2*perBook {
			t.Errorf("Expected last event ID %d for %s, got %d", 2*perBook, id, books.LastEventID)
		}
		if books.BuyLimitBook.Len() != perBook {
			t.Errorf("Expected %d resting orders for %s, got %d", perBook, id, books.BuyLimitBook.Len())
		}
	}
}

// haltingCommand halts the book once, after the command read it, so that
// its first commit is stale
type haltingCommand struct {
	order.PlaceOrderCommand
	halt func()
	once *sync.Once
}

func (c haltingCommand) Execute(books *book.Books) (book.Transaction, error) {
	txn, err := c.PlaceOrderCommand.Execute(books)
	c.once.Do(c.halt)
	return txn, err
}

func TestStaleCommitIsRecomputed(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, Dependencies{}, "BTC-USDT")

	place := placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 100, 10, "").Command.(order.PlaceOrderCommand)
	cmd := haltingCommand{
		PlaceOrderCommand: place,
		once:              &sync.Once{},
		halt: func() {
			if _, err := engine.SetTradingStatuses(ctx, "BTC-USDT", book.NewTradingStatuses(book.TradingStatusHalted)); err != nil {
				t.Errorf("halt failed: %v", err)
			}
		},
	}

	result := engine.Submit(ctx, &CommandEnvelope{WhoRequested: acc1, Command: cmd})
	if result.ErrorCode != ErrorCodeNone {
		t.Fatalf("Expected committed result, got %v", result.Err)
	}
	rejected, ok := result.Events[0].(order.OrderRejectedEvent)
	if !ok {
		t.Fatalf("Expected the recomputed command to be rejected, got %v", eventTypes(result.Events))
	}
	if rejected.RejectReason != order.RejectReasonExchangeClosed {
		t.Errorf("Expected EXCHANGE_CLOSED, got %s", rejected.RejectReason)
	}
}

func TestRepositoryCommit(t *testing.T) {
	repo := NewRepository()
	books := book.NewBooks("BTC-USDT")
	if err := repo.Create(books); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, version, _ := repo.Load("BTC-USDT")

	cmd := placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 100, 10, "").Command
	txn, err := cmd.Execute(&books)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	persistErr := errors.New("disk full")
	if err := repo.Commit(version, txn, func([]book.Event) error { return persistErr }); !errors.Is(err, persistErr) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if current, _, _ := repo.Load("BTC-USDT"); current.LastEventID != 0 {
		t.Fatalf("failed persist must not install the transaction")
	}

	if err := repo.Commit(version, txn, nil); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := repo.Commit(version, txn, nil); !errors.Is(err, ErrStaleAggregate) {
		t.Fatalf("expected ErrStaleAggregate, got %v", err)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []book.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, bookID book.BookID, events []book.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func TestCommittedEventsFlowOut(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	entries := projection.NewMemoryEntryRepository()
	engine := newTestEngine(t, Dependencies{
		Publisher: publisher,
		Projector: projection.NewProjector(entries, projection.NewMemoryTradeRepository()),
	}, "BTC-USDT")

	result := engine.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 100, 10, ""))
	if result.ErrorCode != ErrorCodeNone {
		t.Fatalf("Place failed: %v", result.Err)
	}

	publisher.mu.Lock()
	published := len(publisher.events)
	publisher.mu.Unlock()
	if published != 2 {
		t.Errorf("Expected 2 published events, got %d", published)
	}

	view, err := entries.Get(ctx, projection.EntryViewKey{BookID: "BTC-USDT", WhoRequested: acc1, RequestID: "o1", Side: book.SideBuy})
	if err != nil {
		t.Fatalf("Expected projected entry: %v", err)
	}
	if view.Status != book.EntryStatusNew || view.LastSequence != 2 {
		t.Errorf("Unexpected view %+v", view)
	}
}

func TestRecoverAfterRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	newDeps := func() (Dependencies, func()) {
		events, err := persistence.NewFileEventStore(dir+"/events", nil)
		if err != nil {
			t.Fatalf("event store: %v", err)
		}
		snapshots, err := persistence.NewFileSnapshotStore(dir + "/snapshots")
		if err != nil {
			t.Fatalf("snapshot store: %v", err)
		}
		return Dependencies{
				EventStore:    events,
				SnapshotStore: snapshots,
				Recovery:      persistence.NewFileRecoveryService(events, snapshots, nil),
				Projector:     projection.NewProjector(projection.NewMemoryEntryRepository(), projection.NewMemoryTradeRepository()),
			}, func() {
				events.Close()
				snapshots.Close()
			}
	}

	initial := map[book.BookID]book.TradingStatuses{"BTC-USDT": open, "ETH-USDT": open}
	deps, closeStores := newDeps()
	first := NewEngine(&EngineConfig{ShardCount: 2, QueueSize: 10, IdempotencyTTL: time.Hour, SnapshotEvery: 2}, deps, nil)
	if err := first.Recover(ctx, initial); err != nil {
		t.Fatalf("initial recover failed: %v", err)
	}
	for i, side := range []book.Side{book.SideBuy, book.SideSell, book.SideBuy} {
		price := int64(100 + i)
		result := first.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", fmt.Sprintf("o%d", i), side, price, 5, ""))
		if result.ErrorCode != ErrorCodeNone {
			t.Fatalf("place %d failed: %v", i, result.Err)
		}
	}
	halted := book.NewTradingStatuses(book.TradingStatusHalted)
	if _, err := first.SetTradingStatuses(ctx, "ETH-USDT", halted); err != nil {
		t.Fatalf("halt ETH-USDT failed: %v", err)
	}
	before, _ := first.Books("BTC-USDT")
	first.Stop()
	closeStores()

	deps, closeStores = newDeps()
	defer closeStores()
	second := NewEngine(&EngineConfig{ShardCount: 2, QueueSize: 10, IdempotencyTTL: time.Hour}, deps, nil)
	defer second.Stop()
	if err := second.Recover(ctx, initial); err != nil {
		t.Fatalf("recover failed: %v", err)
	}

	after, err := second.Books("BTC-USDT")
	if err != nil {
		t.Fatalf("BTC-USDT not recovered: %v", err)
	}
	if after.LastEventID != before.LastEventID {
		t.Errorf("Expected last event ID %d, got %d", before.LastEventID, after.LastEventID)
	}
	if after.BuyLimitBook.Len() != before.BuyLimitBook.Len() || after.SellLimitBook.Len() != before.SellLimitBook.Len() {
		t.Errorf("Recovered entries differ from the entries before restart")
	}

	// No events, restored from its snapshot rather than reopened
	eth, err := second.Books("ETH-USDT")
	if err != nil {
		t.Fatalf("ETH-USDT not recovered: %v", err)
	}
	if got := eth.TradingStatuses.EffectiveStatus(); got != book.TradingStatusHalted {
		t.Errorf("Expected ETH-USDT to stay HALTED, got %s", got)
	}
}

// gatedSnapshotStore holds the first save at sequence gateAt until release
// is closed
type gatedSnapshotStore struct {
	persistence.SnapshotStore
	gateAt  int64
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSnapshotStore) Save(ctx context.Context, snapshot *book.Snapshot) error {
	if snapshot.LastSequence == s.gateAt {
		gated := false
		s.once.Do(func() { gated = true })
		if gated {
			close(s.entered)
			<-s.release
		}
	}
	return s.SnapshotStore.Save(ctx, snapshot)
}

func TestStatusChangeDuringSnapshotIsPersisted(t *testing.T) {
	ctx := context.Background()
	files, err := persistence.NewFileSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("snapshot store: %v", err)
	}
	snapshots := &gatedSnapshotStore{
		SnapshotStore: files,
		gateAt:        2,
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	engine := newTestEngine(t, Dependencies{SnapshotStore: snapshots}, "BTC-USDT")

	placed := make(chan *CommandExecResult, 1)
	go func() {
		placed <- engine.Submit(ctx, placeEnvelope(acc1, "BTC-USDT", "o1", book.SideBuy, 100, 10, ""))
	}()
	<-snapshots.entered

	halted := book.NewTradingStatuses(book.TradingStatusHalted)
	haltErr := make(chan error, 1)
	go func() {
		_, err := engine.SetTradingStatuses(ctx, "BTC-USDT", halted)
		haltErr <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		current, _ := engine.Books("BTC-USDT")
		if current.TradingStatuses.EffectiveStatus() == book.TradingStatusHalted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status change never reached the repository")
		}
		time.Sleep(time.Millisecond)
	}
	close(snapshots.release)

	if result := <-placed; result.ErrorCode != ErrorCodeNone {
		t.Fatalf("place failed: %v", result.Err)
	}
	if err := <-haltErr; err != nil {
		t.Fatalf("halt failed: %v", err)
	}

	latest, err := files.Load(ctx, "BTC-USDT")
	if err != nil || latest == nil {
		t.Fatalf("expected a stored snapshot, got %v (%v)", latest, err)
	}
	if latest.LastSequence != 2 {
		t.Errorf("Expected snapshot at sequence 2, got %d", latest.LastSequence)
	}
	if got := latest.TradingStatuses.EffectiveStatus(); got != book.TradingStatusHalted {
		t.Errorf("Expected persisted status HALTED, got %s", got)
	}
}
