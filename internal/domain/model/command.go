package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// CommandName identifies what the bot should do with a command.
type CommandName string

const (
	CmdConfirmRegistration        CommandName = "confirm_user_event_registration"
	CmdParticipationConfirmed     CommandName = "send_participation_confirmed"
	CmdParticipationDeclined      CommandName = "send_participation_declined"
	CmdSendRules                  CommandName = "send_rules"
	CmdInviteToMeeting            CommandName = "invite_to_meeting"
	CmdSendPartnerProfile         CommandName = "send_partner_profile"
	CmdSendBreakMessage           CommandName = "send_break_message"
	CmdSendPartnerRatingRequest   CommandName = "send_partner_rating_request"
	CmdSendProfileVerificationReq CommandName = "send_partner_profile_verification_request"
	CmdSendFinalDatingMessage     CommandName = "send_final_dating_message"
	CmdSendMatchResults           CommandName = "send_match_results"
)

// Header keys attached to every published command.
const (
	HeaderUserID    = "user_id"
	HeaderChatID    = "chat_id"
	HeaderEventID   = "event_id"
	HeaderMessageID = "message_id"
	HeaderCommand   = "command"
)

// Command is an instruction for the bot, addressed to one user.
type Command struct {
	ID      uuid.UUID
	Name    CommandName
	EventID int64
	UserID  int64
	// ChatID is the private chat with the user; it equals UserID for bot chats.
	ChatID    int64
	Payload   map[string]any
	CreatedAt time.Time
}

// NewCommand builds a command addressed to userID's private chat.
func NewCommand(name CommandName, eventID, userID int64, payload map[string]any) Command {
	return Command{
		ID:        uuid.New(),
		Name:      name,
		EventID:   eventID,
		UserID:    userID,
		ChatID:    userID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Headers returns the routing headers as strings.
func (c Command) Headers() map[string]string {
	return map[string]string{
		HeaderUserID:    strconv.FormatInt(c.UserID, 10),
		HeaderChatID:    strconv.FormatInt(c.ChatID, 10),
		HeaderEventID:   strconv.FormatInt(c.EventID, 10),
		HeaderMessageID: c.ID.String(),
		HeaderCommand:   string(c.Name),
	}
}

// Body encodes the command as {"<name>": payload}.
func (c Command) Body() ([]byte, error) {
	return json.Marshal(map[string]any{string(c.Name): c.Payload})
}
