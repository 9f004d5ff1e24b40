package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/duet/internal/core/domain"
	"github.com/Wyydra/duet/internal/core/port"
	"github.com/rs/zerolog/log"
)

// CallService pairs searching clients, relays negotiation messages inside a
// room and tears rooms down. Every sequence that touches both the presence
// registry and the room directory runs under mu, so the two never disagree
// about who is in a call. Notifications are queued while holding mu and
// delivered after it is released.
type CallService struct {
	mu       sync.Mutex
	presence port.PresenceRegistry
	rooms    port.RoomDirectory
	gateway  port.Gateway

	// sessions holds the current transport session per identity. Only the
	// current session may clean up on detach.
	sessions    map[domain.Identity]Session
	lastSession Session
}

// Session identifies one transport connection of an identity.
type Session uint64

type SearchResult struct {
	Paired    bool
	RoomID    domain.RoomID
	Peer      domain.Identity
	Initiator bool
}

func NewCallService(presence port.PresenceRegistry, rooms port.RoomDirectory, gateway port.Gateway) *CallService {
	return &CallService{
		presence: presence,
		rooms:    rooms,
		gateway:  gateway,
		sessions: make(map[domain.Identity]Session),
	}
}

func (s *CallService) Connect(ctx context.Context, id domain.Identity) error {
	if !id.Valid() {
		return fmt.Errorf("connect with blank identity: %w", domain.ErrInvalidState)
	}
	s.mu.Lock()
	s.presence.Register(id)
	s.mu.Unlock()
	log.Debug().Str("identity", id.String()).Msg("Presence registered")
	return nil
}

// Attach registers id for a new transport session, which supersedes any
// earlier session of the same identity.
func (s *CallService) Attach(ctx context.Context, id domain.Identity) (Session, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("attach with blank identity: %w", domain.ErrInvalidState)
	}

	s.mu.Lock()
	s.presence.Register(id)
	s.lastSession++
	sess := s.lastSession
	s.sessions[id] = sess
	s.mu.Unlock()

	log.Debug().Str("identity", id.String()).Uint64("session", uint64(sess)).Msg("Session attached")
	return sess, nil
}

// Detach runs disconnect cleanup for id only if sess is still its current
// session. A session that was replaced or already dropped is a no-op.
func (s *CallService) Detach(ctx context.Context, id domain.Identity, sess Session) bool {
	s.mu.Lock()
	if cur, ok := s.sessions[id]; !ok || cur != sess {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, id)
	out := s.disconnectLocked(id, domain.ReasonPeerDisconnected)
	s.mu.Unlock()

	s.deliver(ctx, out)
	log.Debug().Str("identity", id.String()).Uint64("session", uint64(sess)).Msg("Session detached")
	return true
}

func (s *CallService) Touch(id domain.Identity) error {
	return s.presence.Touch(id)
}

// StartSearch moves an idle identity to searching and pairs it with the
// longest waiting peer, if any. The caller becomes the offer initiator.
func (s *CallService) StartSearch(ctx context.Context, id domain.Identity) (SearchResult, error) {
	s.mu.Lock()
	res, out, err := s.startSearchLocked(id)
	s.mu.Unlock()

	s.deliver(ctx, out)
	return res, err
}

// Search is the polling form of StartSearch used by the HTTP surface: it
// registers the identity, then starts, retries or reports the pairing
// depending on the current status.
func (s *CallService) Search(ctx context.Context, id domain.Identity) (SearchResult, error) {
	if err := s.Connect(ctx, id); err != nil {
		return SearchResult{}, err
	}

	s.mu.Lock()
	var (
		res SearchResult
		out []domain.Notification
		err error
	)
	entry, getErr := s.presence.Get(id)
	switch {
	case getErr != nil:
		err = fmt.Errorf("search %q: %w", id, domain.ErrUnknownIdentity)
	case entry.Status == domain.StatusIdle:
		res, out, err = s.startSearchLocked(id)
	case entry.Status == domain.StatusSearching:
		res, out, err = s.pairLocked(id)
	case entry.Status == domain.StatusInCall:
		res, err = s.currentRoomLocked(id)
	}
	s.mu.Unlock()

	s.deliver(ctx, out)
	return res, err
}

func (s *CallService) startSearchLocked(id domain.Identity) (SearchResult, []domain.Notification, error) {
	entry, err := s.presence.Get(id)
	if err != nil {
		return SearchResult{}, nil, fmt.Errorf("start search %q: %w: %w", id, domain.ErrInvalidState, domain.ErrUnknownIdentity)
	}
	if entry.Status != domain.StatusIdle {
		return SearchResult{}, nil, fmt.Errorf("start search %q while %s: %w", id, entry.Status, domain.ErrInvalidState)
	}
	if err := s.presence.SetStatus(id, domain.StatusSearching); err != nil {
		return SearchResult{}, nil, err
	}
	log.Debug().Str("identity", id.String()).Msg("Searching for peer")
	return s.pairLocked(id)
}

func (s *CallService) pairLocked(id domain.Identity) (SearchResult, []domain.Notification, error) {
	peer, ok := s.presence.FindWaiting(id)
	if !ok {
		return SearchResult{}, nil, nil
	}

	roomID, err := s.rooms.Create(id, peer)
	if err != nil {
		log.Warn().Err(err).Str("identity", id.String()).Str("peer", peer.String()).Msg("Pairing aborted")
		return SearchResult{}, nil, err
	}
	for _, member := range []domain.Identity{id, peer} {
		if err := s.presence.SetStatus(member, domain.StatusInCall); err != nil {
			s.rollbackRoomLocked(roomID)
			return SearchResult{}, nil, err
		}
	}

	log.Info().
		Str("room_id", roomID.String()).
		Str("initiator", id.String()).
		Str("peer", peer.String()).
		Msg("Room created")

	// The caller completing the pairing sends the offer. The peer that was
	// already waiting is told initiator=false.
	out := []domain.Notification{
		domain.PairingStart(id, roomID, peer, true),
		domain.PairingStart(peer, roomID, id, false),
	}
	return SearchResult{Paired: true, RoomID: roomID, Peer: peer, Initiator: true}, out, nil
}

// rollbackRoomLocked undoes a half-built pairing. Both members go back to
// searching.
func (s *CallService) rollbackRoomLocked(roomID domain.RoomID) {
	members, _ := s.rooms.Destroy(roomID)
	for _, m := range members {
		_ = s.presence.SetStatus(m, domain.StatusSearching)
	}
}

func (s *CallService) currentRoomLocked(id domain.Identity) (SearchResult, error) {
	roomID, ok := s.rooms.RoomOf(id)
	if !ok {
		return SearchResult{}, fmt.Errorf("%q in call without a room: %w", id, domain.ErrInvalidState)
	}
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return SearchResult{}, fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
	}
	peer, _ := room.Peer(id)
	return SearchResult{Paired: true, RoomID: roomID, Peer: peer, Initiator: room.MemberA == id}, nil
}

// Relay forwards sig unchanged to the sender's peer in roomID and returns
// that peer.
func (s *CallService) Relay(ctx context.Context, roomID domain.RoomID, sender domain.Identity, sig domain.Signal) (domain.Identity, error) {
	if !sig.Kind.Valid() {
		return "", fmt.Errorf("relay %q: %w", sig.Kind, domain.ErrInvalidSignal)
	}

	s.mu.Lock()
	peer, err := s.rooms.PeerOf(roomID, sender)
	if err == nil {
		_ = s.presence.Touch(sender)
	}
	s.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("relay %s from %q in room %s: %w", sig.Kind, sender, roomID, domain.ErrNoActivePeer)
	}

	log.Debug().
		Str("room_id", roomID.String()).
		Str("from", sender.String()).
		Str("to", peer.String()).
		Str("kind", string(sig.Kind)).
		Msg("Relaying signal")

	s.deliver(ctx, []domain.Notification{domain.RelayedMessage(peer, roomID, sig)})
	return peer, nil
}

// EndCall destroys roomID. Every member other than by is told the call
// ended; by may be empty when the hang-up has no known origin. Ending a
// room that no longer exists is a no-op.
func (s *CallService) EndCall(ctx context.Context, roomID domain.RoomID, by domain.Identity) error {
	s.mu.Lock()
	if by != "" {
		if room, ok := s.rooms.Get(roomID); ok && !room.Has(by) {
			s.mu.Unlock()
			return fmt.Errorf("%q is not a member of room %s: %w", by, roomID, domain.ErrRoomNotFound)
		}
	}
	out := s.teardownLocked(roomID, by, domain.ReasonHangup)
	s.mu.Unlock()

	s.deliver(ctx, out)
	return nil
}

// EndCallFor ends whatever call id is in.
func (s *CallService) EndCallFor(ctx context.Context, id domain.Identity) error {
	s.mu.Lock()
	var out []domain.Notification
	if roomID, ok := s.rooms.RoomOf(id); ok {
		out = s.teardownLocked(roomID, id, domain.ReasonHangup)
	}
	s.mu.Unlock()

	s.deliver(ctx, out)
	return nil
}

// Disconnect tears down id's call, if any, forgets id and closes its live
// connection.
func (s *CallService) Disconnect(ctx context.Context, id domain.Identity) error {
	s.mu.Lock()
	out := s.disconnectLocked(id, domain.ReasonPeerDisconnected)
	s.mu.Unlock()

	s.deliver(ctx, out)
	log.Debug().Str("identity", id.String()).Msg("Presence removed")
	return nil
}

// Expire disconnects id if it has been inactive since cutoff. It reports
// whether id was expired.
func (s *CallService) Expire(ctx context.Context, id domain.Identity, cutoff time.Time) bool {
	s.mu.Lock()
	entry, err := s.presence.Get(id)
	if err != nil || !entry.LastActive.Before(cutoff) {
		s.mu.Unlock()
		return false
	}
	out := s.disconnectLocked(id, domain.ReasonPeerTimeout)
	s.mu.Unlock()

	s.deliver(ctx, out)
	log.Info().Str("identity", id.String()).Time("last_active", entry.LastActive).Msg("Expired stale client")
	return true
}

func (s *CallService) disconnectLocked(id domain.Identity, reason domain.EndReason) []domain.Notification {
	var out []domain.Notification
	if roomID, ok := s.rooms.RoomOf(id); ok {
		out = s.teardownLocked(roomID, id, reason)
	}
	s.presence.Remove(id)

	// A session still attached here is being disconnected from outside its
	// own socket, so the socket has to go too.
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.gateway.Drop(id)
	}
	return out
}

func (s *CallService) teardownLocked(roomID domain.RoomID, by domain.Identity, reason domain.EndReason) []domain.Notification {
	members, ok := s.rooms.Destroy(roomID)
	if !ok {
		return nil
	}

	var out []domain.Notification
	for _, m := range members {
		// Members that already disconnected have no entry to reset.
		if err := s.presence.SetStatus(m, domain.StatusIdle); err != nil {
			continue
		}
		if m != by {
			out = append(out, domain.CallEnded(m, roomID, reason))
		}
	}

	log.Info().
		Str("room_id", roomID.String()).
		Str("by", by.String()).
		Str("reason", string(reason)).
		Msg("Room destroyed")
	return out
}

// Handle dispatches a single inbound event.
func (s *CallService) Handle(ctx context.Context, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventConnect:
		return s.Connect(ctx, ev.Identity)
	case domain.EventStartSearch:
		_, err := s.StartSearch(ctx, ev.Identity)
		return err
	case domain.EventOffer, domain.EventAnswer, domain.EventCandidate:
		kind, _ := ev.Kind.SignalKind()
		sig := domain.NewSignal(kind, ev.Signal.Payload)
		_, err := s.Relay(ctx, ev.RoomID, ev.Identity, sig)
		return err
	case domain.EventEndCall:
		if ev.RoomID.IsZero() {
			return s.EndCallFor(ctx, ev.Identity)
		}
		return s.EndCall(ctx, ev.RoomID, ev.Identity)
	case domain.EventDisconnect:
		return s.Disconnect(ctx, ev.Identity)
	case domain.EventHeartbeat:
		return s.Touch(ev.Identity)
	default:
		return fmt.Errorf("%q: %w", ev.Kind, domain.ErrUnknownEvent)
	}
}

type Stats struct {
	Online int
	Rooms  int
}

func (s *CallService) Stats() Stats {
	return Stats{
		Online: s.presence.Len(),
		Rooms:  s.rooms.Len(),
	}
}

func (s *CallService) deliver(ctx context.Context, out []domain.Notification) {
	for _, n := range out {
		if err := s.gateway.Deliver(ctx, n); err != nil {
			log.Debug().Err(err).
				Str("to", n.To.String()).
				Str("kind", string(n.Kind)).
				Msg("Notification not delivered")
		}
	}
}
