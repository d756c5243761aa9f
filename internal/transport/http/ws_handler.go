package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// WSHandler drives one client's quiz sessions over a websocket connection.
type WSHandler struct {
	sessions    app.SessionRepository
	slots       app.SlotProvider
	generator   app.QuestionGenerator
	sessionOpts []app.SessionOption
	log         *slog.Logger
	upgrader    websocket.Upgrader

	historyMu sync.Mutex
	histories map[string]*sharedHistory
}

// sharedHistory lets every connection of one client append through the same
// store, so their read-modify-write cycles are serialized.
type sharedHistory struct {
	store *app.HistoryStore
	refs  int
}

func NewWSHandler(sessions app.SessionRepository, slots app.SlotProvider, generator app.QuestionGenerator, log *slog.Logger, opts ...app.SessionOption) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		sessions:    sessions,
		slots:       slots,
		generator:   generator,
		sessionOpts: opts,
		log:         log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		histories: make(map[string]*sharedHistory),
	}
}

func (h *WSHandler) acquireHistory(clientID string) *app.HistoryStore {
	h.historyMu.Lock()
	defer h.historyMu.Unlock()
	shared, ok := h.histories[clientID]
	if !ok {
		shared = &sharedHistory{
			store: app.NewHistoryStore(h.slots.Slot(clientID), h.log.With("client_id", clientID)),
		}
		h.histories[clientID] = shared
	}
	shared.refs++
	return shared.store
}

func (h *WSHandler) releaseHistory(clientID string) {
	h.historyMu.Lock()
	defer h.historyMu.Unlock()
	shared, ok := h.histories[clientID]
	if !ok {
		return
	}
	if shared.refs--; shared.refs <= 0 {
		delete(h.histories, clientID)
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

type answerPayload struct {
	Choice string `json:"choice"`
	Index  *int   `json:"index"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type historyPayload struct {
	Topic *string `json:"topic"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type tickPayload struct {
	TimeLeft int `json:"timeLeft"`
}

type hintPayload struct {
	Hint string `json:"hint"`
}

type historyResult struct {
	Results []domain.QuizResult `json:"results"`
	Topics  []string            `json:"topics"`
}

// conn bundles the per-connection state shared by the read loop and the
// goroutines forwarding session events.
type conn struct {
	h        *WSHandler
	ctx      context.Context
	clientID string
	history  *app.HistoryStore
	log      *slog.Logger

	send    chan outboundMessage[any]
	closing chan struct{}
	workers sync.WaitGroup

	sessionMu   sync.Mutex
	session     *app.Session
	unsubscribe func()
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		http.Error(w, "missing clientId", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer h.releaseHistory(clientID)

	log := h.log.With("client_id", clientID)
	c := &conn{
		h:        h,
		ctx:      ctx,
		clientID: clientID,
		history:  h.acquireHistory(clientID),
		log:      log,
		send:     make(chan outboundMessage[any], 16),
		closing:  make(chan struct{}),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := ws.WriteJSON(msg); err != nil {
				log.Warn("ws write error", "error", err)
				_ = ws.Close()
				// keep draining so producers never block
				for range c.send {
				}
				return
			}
		}
	}()

	log.Info("client connected")
	c.emit("state", app.View{State: domain.StateSelecting, Difficulty: domain.Easy})

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		c.handle(inbound)
	}

	cancel()
	c.dropSession()
	close(c.closing)
	c.workers.Wait()
	close(c.send)
	<-writerDone
	log.Info("client disconnected")
}

func (c *conn) handle(in inboundMessage) {
	switch in.Type {
	case "start":
		var p startPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			c.fail("invalid start payload")
			return
		}
		c.start(p)
	case "retry":
		c.withSession(func(s *app.Session) error { return s.Retry() })
	case "exit":
		c.withSession(func(s *app.Session) error { return s.Exit() })
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			c.fail("invalid answer payload")
			return
		}
		c.withSession(func(s *app.Session) error {
			if p.Index != nil {
				return s.AnswerAt(*p.Index, p.Choice)
			}
			return s.Answer(p.Choice)
		})
	case "goto":
		var p gotoPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			c.fail("invalid goto payload")
			return
		}
		c.withSession(func(s *app.Session) error { _, err := s.GoTo(p.Index); return err })
	case "next":
		c.withSession(func(s *app.Session) error { _, err := s.Next(); return err })
	case "prev":
		c.withSession(func(s *app.Session) error { _, err := s.Prev(); return err })
	case "hint":
		s := c.current()
		if s == nil {
			c.fail("no quiz in progress")
			return
		}
		hint, err := s.Hint()
		if err != nil {
			c.fail(err.Error())
			return
		}
		c.emit("hint", hintPayload{Hint: hint})
	case "submit":
		s := c.current()
		if s == nil || !s.CanSubmit() {
			c.fail("answer the current question before submitting")
			return
		}
		s.Submit(c.ctx)
	case "history":
		var p historyPayload
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				c.fail("invalid history payload")
				return
			}
		}
		c.sendHistory(p.Topic)
	case "performance":
		results, err := c.history.LoadAll(c.ctx)
		if err != nil {
			c.notice("quiz history is unavailable")
		}
		c.emit("performance", app.Summarize(results))
	default:
		c.fail("unsupported message type")
	}
}

// start discards any quiz in progress and launches a new session. The question
// fetch runs in the background so exit stays responsive while loading.
func (c *conn) start(p startPayload) {
	opts := append([]app.SessionOption{app.WithLogger(c.log)}, c.h.sessionOpts...)
	s := app.NewSession(c.h.generator, c.history, opts...)
	if err := s.SelectTopic(p.Topic); err != nil {
		c.fail(err.Error())
		return
	}
	if p.Difficulty != "" {
		if err := s.SelectDifficulty(domain.Difficulty(p.Difficulty)); err != nil {
			c.fail(err.Error())
			return
		}
	}
	c.install(s)

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		err := s.Start(c.ctx)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrGeneration):
			c.fail("Failed to load quiz questions. Please try selecting the topic again.")
		default:
			c.log.Debug("start abandoned", "error", err)
		}
	}()
}

func (c *conn) install(s *app.Session) {
	events, unsubscribe := s.Subscribe()

	c.sessionMu.Lock()
	prev, prevUnsub := c.session, c.unsubscribe
	c.session, c.unsubscribe = s, unsubscribe
	c.sessionMu.Unlock()

	if displaced := c.h.sessions.Replace(c.clientID, s); displaced != nil && displaced != prev {
		_ = displaced.Exit()
	}
	if prev != nil {
		_ = prev.Exit()
		prevUnsub()
	}

	c.workers.Add(1)
	go c.forward(s, events)
}

func (c *conn) forward(s *app.Session, events <-chan app.Event) {
	defer c.workers.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case app.EventTick:
				c.emit("tick", tickPayload{TimeLeft: ev.TimeLeft})
			case app.EventResult:
				if ev.Outcome != nil {
					c.emit("result", ev.Outcome)
				}
				if ev.Err != nil {
					c.notice("Could not save quiz result to history due to a storage error.")
				}
				c.h.sessions.Delete(c.clientID, s)
			default:
				c.emit("state", s.Snapshot())
			}
		case <-c.closing:
			return
		}
	}
}

func (c *conn) dropSession() {
	c.sessionMu.Lock()
	s, unsub := c.session, c.unsubscribe
	c.session, c.unsubscribe = nil, nil
	c.sessionMu.Unlock()
	if s == nil {
		return
	}
	_ = s.Exit()
	unsub()
	c.h.sessions.Delete(c.clientID, s)
}

func (c *conn) current() *app.Session {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.session
}

// withSession applies fn to the current session and echoes the resulting view.
func (c *conn) withSession(fn func(*app.Session) error) {
	s := c.current()
	if s == nil {
		c.fail("no quiz in progress")
		return
	}
	if err := fn(s); err != nil {
		c.fail(err.Error())
		return
	}
	c.emit("question", s.Snapshot())
}

func (c *conn) sendHistory(topic *string) {
	results, err := c.history.FilterByTopic(c.ctx, topic)
	if err != nil {
		c.notice("quiz history is unavailable")
	}
	all := results
	if topic != nil {
		all, _ = c.history.LoadAll(c.ctx)
	}
	app.SortByDateDesc(results)
	c.emit("history", historyResult{Results: results, Topics: app.Topics(all)})
}

func (c *conn) emit(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.closing:
	}
}

func (c *conn) fail(msg string) {
	c.emit("error", errorPayload{Message: msg})
}

func (c *conn) notice(msg string) {
	c.emit("notice", errorPayload{Message: msg})
}
