// Package gateway owns the Discord gateway session: it creates the client,
// logs in, and translates raw gateway callbacks into events on the internal
// bus. Nothing downstream ever sees a client-library type.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"kookbridge/internal/bus"
	"kookbridge/internal/domain"
	"kookbridge/internal/metrics"

	"github.com/bwmarrin/discordgo"
)

// State is the session lifecycle state. Runtime gateway errors and message
// callbacks are not transitions; only the initialization sequence and a
// fatal failure move the state.
type State int32

const (
	StateUninitialized State = iota
	StateClientCreated
	StateLoggingIn
	StateReady
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateClientCreated:
		return "client-created"
	case StateLoggingIn:
		return "logging-in"
	case StateReady:
		return "ready"
	case StateErrored:
		return "errored"
	default:
		return "uninitialized"
	}
}

// Session is the controller for one gateway connection. Create it once,
// run it once; the underlying client handles reconnection on its own.
type Session struct {
	token   string
	guildID string
	bus     *bus.EventBus
	logger  *slog.Logger

	session   *discordgo.Session
	state     atomic.Int32
	connected atomic.Bool
	botTag    atomic.Value // string
}

// Config configures a Session.
type Config struct {
	Token   string
	GuildID string // optional: restrict to one guild
	Bus     *bus.EventBus
	Logger  *slog.Logger
}

// New creates a Session in the uninitialized state.
func New(cfg Config) *Session {
	return &Session{
		token:   cfg.Token,
		guildID: cfg.GuildID,
		bus:     cfg.Bus,
		logger:  cfg.Logger,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Connected reports whether the gateway connection is currently up. Unlike
// State, this follows ready/resume/disconnect callbacks.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// BotTag returns the logged-in bot's tag, empty before the ready callback.
func (s *Session) BotTag() string {
	if v := s.botTag.Load(); v != nil {
		return v.(string)
	}
	return ""
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Run creates the client, registers callbacks, logs in, and blocks until
// ctx is cancelled, then closes the session. Login is the single suspend
// point: when it fails the session moves to Errored and Run returns; there
// is no automatic retry.
func (s *Session) Run(ctx context.Context) error {
	session, err := discordgo.New("Bot " + s.token)
	if err != nil {
		s.setState(StateErrored)
		return fmt.Errorf("create gateway client: %w", err)
	}
	s.session = session
	s.setState(StateClientCreated)

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	session.AddHandlerOnce(s.handleReady)
	session.AddHandler(s.handleResume)
	session.AddHandler(s.handleDisconnect)
	session.AddHandler(s.handleMessageCreate)
	session.AddHandler(s.handleMessageUpdate)

	s.setState(StateLoggingIn)
	if err := session.Open(); err != nil {
		s.setState(StateErrored)
		return fmt.Errorf("gateway login: %w", err)
	}

	<-ctx.Done()
	s.logger.Info("gateway disconnecting")
	s.connected.Store(false)
	metrics.GatewayConnected.Set(0)
	return session.Close()
}

func (s *Session) handleReady(sess *discordgo.Session, r *discordgo.Ready) {
	tag := r.User.String()
	s.botTag.Store(tag)
	s.setState(StateReady)
	s.connected.Store(true)
	metrics.GatewayConnected.Set(1)

	s.logger.Info("gateway ready", "user", tag)
	s.bus.Emit(bus.Event{Type: bus.EventGatewayReady, Source: "gateway", BotTag: tag})
}

func (s *Session) handleResume(sess *discordgo.Session, r *discordgo.Resumed) {
	s.connected.Store(true)
	metrics.GatewayConnected.Set(1)
	s.logger.Info("gateway session resumed")
}

// handleDisconnect logs runtime gateway errors. They do not alter the
// lifecycle state and do not stop message processing; the client library
// reconnects on its own.
func (s *Session) handleDisconnect(sess *discordgo.Session, d *discordgo.Disconnect) {
	s.connected.Store(false)
	metrics.GatewayConnected.Set(0)
	s.logger.Warn("gateway connection lost")
	s.bus.Emit(bus.Event{Type: bus.EventGatewayError, Source: "gateway", Err: errors.New("gateway connection lost")})
}

func (s *Session) handleMessageCreate(sess *discordgo.Session, m *discordgo.MessageCreate) {
	if s.skip(sess, m.Message) {
		return
	}
	metrics.MessagesSeen.Inc()

	ev, ok := chatEvent(m.Message)
	if !ok {
		return
	}
	s.bus.Emit(bus.Event{Type: bus.EventMessageCreated, Source: "gateway", Chat: &ev, Kind: domain.EventCreated})
}

func (s *Session) handleMessageUpdate(sess *discordgo.Session, m *discordgo.MessageUpdate) {
	if s.skip(sess, m.Message) {
		return
	}
	metrics.MessagesSeen.Inc()

	// Partial edit payloads (embed unfurls etc.) arrive without an author.
	ev, ok := chatEvent(m.Message)
	if !ok {
		return
	}
	s.bus.Emit(bus.Event{Type: bus.EventMessageUpdated, Source: "gateway", Chat: &ev, Kind: domain.EventUpdated})
}

// skip drops the bot's own messages and, when a guild is configured,
// anything from other guilds.
func (s *Session) skip(sess *discordgo.Session, m *discordgo.Message) bool {
	if m == nil {
		return true
	}
	if m.Author != nil && sess.State != nil && sess.State.User != nil && m.Author.ID == sess.State.User.ID {
		return true
	}
	if s.guildID != "" && m.GuildID != s.guildID {
		return true
	}
	return false
}

// chatEvent maps a raw gateway message onto the plain-data event shape.
// ok is false when the payload is too partial to forward.
func chatEvent(m *discordgo.Message) (domain.ChatEvent, bool) {
	if m == nil || m.Author == nil {
		return domain.ChatEvent{}, false
	}

	attachments := make([]domain.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		attachments = append(attachments, domain.Attachment{
			ID:          a.ID,
			URL:         a.URL,
			ContentType: a.ContentType,
		})
	}

	embeds := make([]json.RawMessage, 0, len(m.Embeds))
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		embeds = append(embeds, raw)
	}

	return domain.ChatEvent{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		Timestamp:   m.Timestamp.UnixMilli(),
		Author: domain.Author{
			ID:       m.Author.ID,
			Username: m.Author.Username,
			Avatar:   m.Author.AvatarURL(""),
		},
		Content:     m.Content,
		Attachments: attachments,
		Embeds:      embeds,
		System:      isSystemType(m.Type),
		Subtype:     int(m.Type),
	}, true
}

// isSystemType reports whether a message type is a platform service message
// (joins, pins, boosts, ...) rather than user-authored content.
func isSystemType(t discordgo.MessageType) bool {
	switch t {
	case discordgo.MessageTypeDefault, discordgo.MessageTypeReply, discordgo.MessageTypeChatInputCommand:
		return false
	default:
		return true
	}
}
