package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/engine"
	"matching-core/internal/order"
	"matching-core/internal/persistence"
	"matching-core/internal/projection"
	"matching-core/internal/quote"
	"matching-core/internal/symbolspec"
)

// IdempotencyKeyHeader carries the client's deduplication key
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler handles HTTP requests for the books API
type Handler struct {
	engine  *engine.Engine
	entries projection.EntryRepository
	specs   *symbolspec.Registry
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(eng *engine.Engine, entries projection.EntryRepository, specs *symbolspec.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:  eng,
		entries: entries,
		specs:   specs,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder handles POST /v1/books/:symbol/orders
func (h *Handler) PlaceOrder(c *gin.Context) {
	spec, ok := h.spec(c)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, err.Error())
		return
	}

	cmd, err := h.placeOrderCommand(spec, &req)
	if err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, err.Error())
		return
	}

	h.submit(c, cmd, cmd.WhoRequested, req)
}

// CancelOrder handles DELETE /v1/books/:symbol/orders/:client_order_id
func (h *Handler) CancelOrder(c *gin.Context) {
	spec, ok := h.spec(c)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, err.Error())
		return
	}
	side := book.Side(req.Side)
	if !side.IsValid() {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, "side must be BUY or SELL")
		return
	}

	cmd := order.CancelOrderCommand{
		RequestID: client.RequestID{
			Current:  req.ClientOrderID,
			Original: c.Param("client_order_id"),
		},
		WhoRequested:  req.client(),
		BookID:        spec.BookID,
		Side:          side,
		WhenRequested: h.now(),
	}

	h.submit(c, cmd, cmd.WhoRequested, struct {
		Original string
		CancelOrderRequest
	}{cmd.RequestID.Original, req})
}

// PlaceMassQuote handles POST /v1/books/:symbol/quotes
func (h *Handler) PlaceMassQuote(c *gin.Context) {
	spec, ok := h.spec(c)
	if !ok {
		return
	}

	var req PlaceMassQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, err.Error())
		return
	}

	tif, err := parseTimeInForce(req.TimeInForce)
	if err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, err.Error())
		return
	}

	entries := make([]quote.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entry := quote.Entry{QuoteEntryID: e.QuoteEntryID, QuoteSetID: e.QuoteSetID}
		if entry.Bid, err = parseSizeAtPrice(spec, e.Bid); err != nil {
			writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, fmt.Sprintf("entry %s bid: %v", e.QuoteEntryID, err))
			return
		}
		if entry.Offer, err = parseSizeAtPrice(spec, e.Offer); err != nil {
			writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, fmt.Sprintf("entry %s offer: %v", e.QuoteEntryID, err))
			return
		}
		entries = append(entries, entry)
	}

	cmd := quote.PlaceMassQuoteCommand{
		QuoteID:       req.QuoteID,
		WhoRequested:  req.client(),
		BookID:        spec.BookID,
		TimeInForce:   tif,
		Entries:       entries,
		WhenRequested: h.now(),
	}

	h.submit(c, cmd, cmd.WhoRequested, req)
}

// CancelMassQuote handles DELETE /v1/books/:symbol/quotes
func (h *Handler) CancelMassQuote(c *gin.Context) {
	spec, ok := h.spec(c)
	if !ok {
		return
	}

	var req CancelMassQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, err.Error())
		return
	}

	cmd := quote.CancelMassQuoteCommand{
		WhoRequested:  req.client(),
		BookID:        spec.BookID,
		WhenRequested: h.now(),
	}

	h.submit(c, cmd, cmd.WhoRequested, req)
}

// GetBook handles GET /v1/books/:symbol
func (h *Handler) GetBook(c *gin.Context) {
	spec, ok := h.spec(c)
	if !ok {
		return
	}

	books, err := h.engine.Books(spec.BookID)
	if err != nil {
		statusCode, errResp := MapErrorToHTTP(err)
		c.JSON(statusCode, errResp)
		return
	}

	c.JSON(http.StatusOK, NewBookResponse(spec, books))
}

// SetTradingStatus handles PUT /v1/books/:symbol/trading-status
func (h *Handler) SetTradingStatus(c *gin.Context) {
	spec, ok := h.spec(c)
	if !ok {
		return
	}

	var req TradingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, err.Error())
		return
	}
	statuses := book.TradingStatuses{
		Default:    book.TradingStatus(req.Default),
		Scheduled:  book.TradingStatus(req.Scheduled),
		FastMarket: book.TradingStatus(req.FastMarket),
		Manual:     book.TradingStatus(req.Manual),
	}
	for _, s := range []book.TradingStatus{statuses.Default, statuses.Scheduled, statuses.FastMarket, statuses.Manual} {
		if s != "" && !s.IsValid() {
			writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, fmt.Sprintf("invalid trading status %q", s))
			return
		}
	}

	books, err := h.engine.SetTradingStatuses(c.Request.Context(), spec.BookID, statuses)
	if err != nil {
		statusCode, errResp := MapErrorToHTTP(err)
		c.JSON(statusCode, errResp)
		return
	}

	c.JSON(http.StatusOK, NewBookResponse(spec, books))
}

// GetEntries handles GET /v1/books/:symbol/entries/:request_id
func (h *Handler) GetEntries(c *gin.Context) {
	spec, ok := h.spec(c)
	if !ok {
		return
	}

	firmID := c.Query("firm_id")
	if firmID == "" {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, "firm_id required")
		return
	}
	who := client.Client{FirmID: firmID, FirmClientID: c.Query("firm_client_id")}

	views, err := h.entries.ListByRequest(c.Request.Context(), spec.BookID, who, c.Param("request_id"))
	if err != nil {
		statusCode, errResp := MapErrorToHTTP(err)
		c.JSON(statusCode, errResp)
		return
	}

	resp := make([]EntryViewResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, buildEntryViewResponse(spec, v))
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "books": len(h.engine.BookIDs())})
}

// Helper functions

func (h *Handler) spec(c *gin.Context) (symbolspec.Spec, bool) {
	spec, err := h.specs.Get(book.BookID(c.Param("symbol")))
	if err != nil {
		writeErrorResponse(c, http.StatusNotFound, ErrorCodeBookNotFound, err.Error())
		return symbolspec.Spec{}, false
	}
	return spec, true
}

func (h *Handler) submit(c *gin.Context, cmd book.Command, who client.Client, payload any) {
	payloadHash, err := engine.ComputePayloadHash(struct {
		BookID  book.BookID
		Kind    book.CommandKind
		Payload any
	}{cmd.TargetBookID(), cmd.Kind(), payload})
	if err != nil {
		writeErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError, "failed to compute payload hash")
		return
	}

	envelope := &engine.CommandEnvelope{
		CommandID:      generateCommandID(),
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
		WhoRequested:   who,
		PayloadHash:    payloadHash,
		Command:        cmd,
		CreatedAt:      h.now(),
	}

	result := h.engine.Submit(c.Request.Context(), envelope)
	if result.ErrorCode != engine.ErrorCodeNone {
		h.logger.Warn("command failed",
			zap.String("command_id", envelope.CommandID),
			zap.String("book_id", string(envelope.BookID())),
			zap.String("kind", string(cmd.Kind())),
			zap.String("error_code", string(result.ErrorCode)),
			zap.Error(result.Err))
		statusCode, errResp := MapEngineErrorToHTTP(result.ErrorCode, result.Err)
		c.JSON(statusCode, errResp)
		return
	}

	resp, err := NewCommandResponse(envelope, result)
	if err != nil {
		writeErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError, err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) placeOrderCommand(spec symbolspec.Spec, req *PlaceOrderRequest) (order.PlaceOrderCommand, error) {
	side := book.Side(req.Side)
	if !side.IsValid() {
		return order.PlaceOrderCommand{}, fmt.Errorf("side must be BUY or SELL")
	}

	entryType := book.EntryType(req.EntryType)
	switch entryType {
	case "":
		entryType = book.EntryTypeLimit
	case book.EntryTypeLimit, book.EntryTypeMarket:
	default:
		return order.PlaceOrderCommand{}, fmt.Errorf("entry_type must be LIMIT or MARKET")
	}

	tif, err := parseTimeInForce(req.TimeInForce)
	if err != nil {
		return order.PlaceOrderCommand{}, err
	}

	var price *book.Price
	if req.Price != "" {
		p, err := spec.ParsePrice(req.Price)
		if err != nil {
			return order.PlaceOrderCommand{}, err
		}
		price = &p
	}

	size, err := spec.ParseSize(req.Size)
	if err != nil {
		return order.PlaceOrderCommand{}, err
	}

	return order.PlaceOrderCommand{
		RequestID:     client.RequestID{Current: req.ClientOrderID},
		WhoRequested:  req.client(),
		BookID:        spec.BookID,
		EntryType:     entryType,
		Side:          side,
		Price:         price,
		Size:          size,
		TimeInForce:   tif,
		WhenRequested: h.now(),
	}, nil
}

func (p PartyDTO) client() client.Client {
	return client.Client{FirmID: p.FirmID, FirmClientID: p.FirmClientID}
}

func parseTimeInForce(s string) (book.TimeInForce, error) {
	if s == "" {
		return book.TimeInForceGoodTillCancel, nil
	}
	tif := book.TimeInForce(s)
	if !tif.IsValid() {
		return "", fmt.Errorf("time_in_force must be GOOD_TILL_CANCEL or IMMEDIATE_OR_CANCEL")
	}
	return tif, nil
}

func parseSizeAtPrice(spec symbolspec.Spec, dto *SizeAtPriceDTO) (*book.SizeAtPrice, error) {
	if dto == nil {
		return nil, nil
	}
	price, err := spec.ParsePrice(dto.Price)
	if err != nil {
		return nil, err
	}
	size, err := spec.ParseSize(dto.Size)
	if err != nil {
		return nil, err
	}
	return &book.SizeAtPrice{Size: size, Price: price}, nil
}

// NewCommandResponse renders the events of an executed command
func NewCommandResponse(envelope *engine.CommandEnvelope, result *engine.CommandExecResult) (CommandResponse, error) {
	events := make([]EventDTO, 0, len(result.Events))
	for _, event := range result.Events {
		record, err := persistence.EncodeEvent(event, envelope.CreatedAt)
		if err != nil {
			return CommandResponse{}, err
		}
		events = append(events, EventDTO{
			EventID:    record.Sequence,
			Type:       record.Type,
			OccurredAt: record.OccurredAt,
			Payload:    record.Payload,
		})
	}
	return CommandResponse{
		CommandID:   envelope.CommandID,
		BookID:      string(envelope.BookID()),
		LastEventID: result.LastEventID,
		Events:      events,
	}, nil
}

// NewBookResponse renders the resting entries of a book
func NewBookResponse(spec symbolspec.Spec, books book.Books) BookResponse {
	return BookResponse{
		BookID:        string(books.BookID),
		LastEventID:   int64(books.LastEventID),
		TradingStatus: string(books.TradingStatuses.EffectiveStatus()),
		Bids:          buildEntryDTOs(spec, books.BuyLimitBook.Entries()),
		Offers:        buildEntryDTOs(spec, books.SellLimitBook.Entries()),
	}
}

func buildEntryDTOs(spec symbolspec.Spec, entries []book.BookEntry) []EntryDTO {
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dto := EntryDTO{
			RequestID:    e.RequestID.Current,
			FirmID:       e.WhoRequested.FirmID,
			FirmClientID: e.WhoRequested.FirmClientID,
			IsQuote:      e.IsQuote,
			Side:         string(e.Side),
			Available:    spec.FormatSize(e.Sizes.Available),
			Traded:       spec.FormatSize(e.Sizes.Traded),
			Status:       string(e.Status),
			EventID:      int64(e.Key.EventID),
		}
		if p := e.Price(); p != nil {
			dto.Price = spec.FormatPrice(*p)
		}
		out = append(out, dto)
	}
	return out
}

func buildEntryViewResponse(spec symbolspec.Spec, v *projection.EntryView) EntryViewResponse {
	resp := EntryViewResponse{
		RequestID:    v.RequestID.Current,
		Side:         string(v.Side),
		IsQuote:      v.IsQuote,
		EntryType:    string(v.EntryType),
		TimeInForce:  string(v.TimeInForce),
		Available:    spec.FormatSize(v.Sizes.Available),
		Traded:       spec.FormatSize(v.Sizes.Traded),
		Cancelled:    spec.FormatSize(v.Sizes.Cancelled),
		Status:       string(v.Status),
		RejectReason: v.RejectReason,
		RejectText:   v.RejectText,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
		LastEventID:  v.LastSequence,
	}
	if v.Price != nil {
		resp.Price = spec.FormatPrice(*v.Price)
	}
	return resp
}

// Utility functions

func generateCommandID() string {
	return "cmd_" + uuid.New().String()
}

func writeErrorResponse(c *gin.Context, statusCode int, code ErrorCode, message string) {
	c.JSON(statusCode, ErrorResponse{
		Code:    string(code),
		Message: message,
	})
}
