// Package handler exposes the chat service over HTTP: room creation,
// message history, message posting, system messages and the live
// websocket feed. Room ids contain slashes and travel URL-encoded in
// path segments.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"slices"

	"github.com/devaloi/chatrooms/internal/auth"
	"github.com/devaloi/chatrooms/internal/domain"
	"github.com/devaloi/chatrooms/internal/notify"
	"github.com/devaloi/chatrooms/internal/policy"
	"github.com/devaloi/chatrooms/internal/room"
	"github.com/devaloi/chatrooms/internal/stream"
)

// Options wires an API together.
type Options struct {
	Rooms  *room.Manager
	Auth   auth.Client
	Policy policy.Client
	Fanout *notify.Fanout
	Stream *stream.Hub

	// Prefix is the route prefix without slashes, e.g. "chat/v1".
	Prefix string

	// APISecret grants system privileges when presented as the auth
	// token. Empty disables the secret path entirely.
	APISecret string

	// FailMode decides whether a failing ban check blocks the request.
	FailMode policy.FailMode

	// SyncDispatch awaits fan-out and TTL refresh before responding.
	SyncDispatch bool

	Log *slog.Logger
}

// API holds the handlers for all chat routes.
type API struct {
	rooms        *room.Manager
	auth         auth.Client
	policy       policy.Client
	fanout       *notify.Fanout
	stream       *stream.Hub
	prefix       string
	secret       string
	failMode     policy.FailMode
	syncDispatch bool
	log          *slog.Logger
}

// New builds an API from opts.
func New(opts Options) *API {
	return &API{
		rooms:        opts.Rooms,
		auth:         opts.Auth,
		policy:       opts.Policy,
		fanout:       opts.Fanout,
		stream:       opts.Stream,
		prefix:       opts.Prefix,
		secret:       opts.APISecret,
		failMode:     opts.FailMode,
		syncDispatch: opts.SyncDispatch,
		log:          opts.Log,
	}
}

// Register adds all routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	p := "/" + a.prefix
	mux.HandleFunc("POST "+p+"/auth/{token}/rooms", a.createRoom)
	mux.HandleFunc("GET "+p+"/auth/{token}/rooms/{roomID}", a.getRoom)
	mux.HandleFunc("POST "+p+"/auth/{token}/rooms/{roomID}/messages", a.postMessage)
	mux.HandleFunc("GET "+p+"/auth/{token}/rooms/{roomID}/live", a.serveLive)
	mux.HandleFunc("POST "+p+"/auth/{token}/system-messages", a.postSystemMessage)
	mux.HandleFunc("GET /ping/{token}", a.ping)
	mux.HandleFunc("GET "+p+"/ping/{token}", a.ping)
	mux.HandleFunc("GET /about", a.sendAbout)
	mux.HandleFunc("GET "+p+"/about", a.sendAbout)
}

// caller is the resolved identity behind an auth token.
type caller struct {
	username string
	system   bool
}

func (c caller) sender() string {
	if c.system {
		return domain.SenderSystem
	}
	return c.username
}

// authenticate resolves the token path segment: either the API secret
// (system caller) or an authdb token. On failure the response is
// already written and ok is false.
func (a *API) authenticate(w http.ResponseWriter, r *http.Request) (caller, bool) {
	token := r.PathValue("token")
	if a.secret != "" && token == a.secret {
		return caller{system: true}, true
	}

	account, err := a.auth.Account(r.Context(), token)
	if err != nil {
		a.log.Error("authdb lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "auth lookup failed")
		return caller{}, false
	}
	if account == nil {
		respondError(w, http.StatusUnauthorized, "invalid auth token")
		return caller{}, false
	}
	return caller{username: account.Username}, true
}

// checkBanned gates moderated operations. System callers skip the
// check. A failing oracle honors the configured fail mode: open means
// proceed, closed means refuse.
func (a *API) checkBanned(w http.ResponseWriter, r *http.Request, c caller) bool {
	if c.system {
		return true
	}
	banned, err := a.policy.IsBanned(r.Context(), c.username)
	if err != nil {
		a.log.Warn("ban check failed", "username", c.username, "error", err)
		if a.failMode == policy.FailClosed {
			respondError(w, http.StatusForbidden, "ban check unavailable")
			return false
		}
		return true
	}
	if banned {
		a.log.Info("user banned", "username", c.username)
		respondError(w, http.StatusForbidden, "user is banned")
		return false
	}
	return true
}

// fetchRoom loads the room from the path and enforces membership for
// non-system callers. On failure the response is already written.
func (a *API) fetchRoom(w http.ResponseWriter, r *http.Request, c caller) (*room.Room, bool) {
	roomID := r.PathValue("roomID")
	rm, err := a.rooms.FindByID(r.Context(), roomID)
	if err != nil {
		a.log.Error("room lookup failed", "roomId", roomID, "error", err)
		respondError(w, http.StatusInternalServerError, "room lookup failed")
		return nil, false
	}
	if rm == nil {
		respondError(w, http.StatusNotFound, "room not found")
		return nil, false
	}
	if !c.system && !rm.HasUser(c.username) {
		respondError(w, http.StatusUnauthorized, "not a room member")
		return nil, false
	}
	return rm, true
}

// roomResponse is a room record with its messages inlined.
type roomResponse struct {
	domain.RoomInfo
	Messages []domain.Message `json:"messages"`
}

func (a *API) createRoom(w http.ResponseWriter, r *http.Request) {
	c, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	if !a.checkBanned(w, r, c) {
		return
	}

	var body room.CreateOptions
	if !decodeStrict(w, r, &body) {
		return
	}
	if !c.system && !slices.Contains(body.Users, c.username) {
		respondError(w, http.StatusUnauthorized, "requester must be a room member")
		return
	}

	rm, existed, err := a.createOrGet(r.Context(), body)
	switch {
	case errors.Is(err, room.ErrInvalidCreationOptions):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.log.Error("room creation failed", "type", body.Type, "error", err)
		respondError(w, http.StatusInternalServerError, "room creation failed")
		return
	}

	messages := []domain.Message{}
	if existed {
		messages, err = rm.Messages(r.Context())
		if err != nil {
			a.log.Error("failed to read existing room messages", "roomId", rm.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "room lookup failed")
			return
		}
		a.dispatchRefresh(r.Context(), rm.ID)
	}
	respondJSON(w, http.StatusOK, roomResponse{RoomInfo: rm.RoomInfo, Messages: messages})
}

func (a *API) getRoom(w http.ResponseWriter, r *http.Request) {
	c, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	rm, ok := a.fetchRoom(w, r, c)
	if !ok {
		return
	}
	messages, err := rm.Messages(r.Context())
	if err != nil {
		a.log.Error("failed to read messages", "roomId", rm.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "message lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, roomResponse{RoomInfo: rm.RoomInfo, Messages: messages})
}

// messageBody is the strict allow-list of fields accepted when posting.
// Timestamp is a pointer so a missing field fails validation instead of
// defaulting to zero.
type messageBody struct {
	Timestamp *float64        `json:"timestamp"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Push      json.RawMessage `json:"push,omitempty"`
}

func (a *API) postMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	if !a.checkBanned(w, r, c) {
		return
	}
	rm, ok := a.fetchRoom(w, r, c)
	if !ok {
		return
	}

	var body messageBody
	if !decodeStrict(w, r, &body) {
		return
	}
	msg, err := domain.NewMessage(c.sender(), timestampOrNaN(body.Timestamp), body.Type, body.Message)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := rm.AddMessage(r.Context(), msg); err != nil {
		a.log.Error("failed to append message", "roomId", rm.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "message append failed")
		return
	}
	a.afterPost(r.Context(), rm, msg, body.Push)
	w.WriteHeader(http.StatusOK)
}

// systemMessageBody doubles as room descriptor and message payload: type
// and users describe the room, timestamp and message the announcement.
// The stored message type is always "event".
type systemMessageBody struct {
	Type      string          `json:"type"`
	Users     []string        `json:"users"`
	Timestamp *float64        `json:"timestamp"`
	Message   string          `json:"message"`
	Push      json.RawMessage `json:"push,omitempty"`
}

func (a *API) postSystemMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	if !c.system {
		respondError(w, http.StatusUnauthorized, "api secret required")
		return
	}

	var body systemMessageBody
	if !decodeStrict(w, r, &body) {
		return
	}
	rm, _, err := a.createOrGet(r.Context(), room.CreateOptions{Type: body.Type, Users: body.Users})
	switch {
	case errors.Is(err, room.ErrInvalidCreationOptions):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.log.Error("system message room failed", "type", body.Type, "error", err)
		respondError(w, http.StatusInternalServerError, "room creation failed")
		return
	}

	msg, err := domain.NewMessage(domain.SenderSystem, timestampOrNaN(body.Timestamp), "event", body.Message)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := rm.AddMessage(r.Context(), msg); err != nil {
		a.log.Error("failed to append system message", "roomId", rm.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "message append failed")
		return
	}
	a.afterPost(r.Context(), rm, msg, body.Push)
	w.WriteHeader(http.StatusOK)
}

// createOrGet creates the room, falling back to a fetch when it already
// exists. existed reports which path was taken.
func (a *API) createOrGet(ctx context.Context, opts room.CreateOptions) (*room.Room, bool, error) {
	rm, err := a.rooms.Create(ctx, opts)
	if err == nil {
		return rm, false, nil
	}
	if !errors.Is(err, room.ErrRoomExists) {
		return nil, false, err
	}

	id := domain.DeriveID(opts.Type, opts.Users)
	rm, err = a.rooms.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if rm == nil {
		// Lost a race against expiry between create and fetch.
		return nil, false, room.ErrRoomExists
	}
	return rm, true, nil
}

// afterPost runs the post-append bookkeeping: live-feed publish,
// notification fan-out and TTL refresh. In production it is decoupled
// from the response; in sync mode it completes first.
func (a *API) afterPost(ctx context.Context, rm *room.Room, msg domain.Message, push json.RawMessage) {
	a.stream.Publish(rm.ID, msg)

	run := func(ctx context.Context) {
		a.fanout.Dispatch(ctx, rm.RoomInfo, msg, push)
		a.refreshTTL(ctx, rm.ID)
	}
	if a.syncDispatch {
		run(ctx)
		return
	}
	go run(context.WithoutCancel(ctx))
}

// dispatchRefresh refreshes a room's TTL honoring the sync flag.
func (a *API) dispatchRefresh(ctx context.Context, roomID string) {
	if a.syncDispatch {
		a.refreshTTL(ctx, roomID)
		return
	}
	go a.refreshTTL(context.WithoutCancel(ctx), roomID)
}

// refreshTTL is best-effort bookkeeping: failures are logged, never
// surfaced to the caller.
func (a *API) refreshTTL(ctx context.Context, roomID string) {
	refreshed, err := a.rooms.RefreshTTL(ctx, roomID)
	if err != nil {
		a.log.Error("ttl refresh failed", "roomId", roomID, "error", err)
		return
	}
	if !refreshed {
		a.log.Warn("ttl refresh affected no keys", "roomId", roomID)
	}
}

func timestampOrNaN(ts *float64) float64 {
	if ts == nil {
		return math.NaN()
	}
	return *ts
}
