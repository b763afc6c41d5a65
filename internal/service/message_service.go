package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/mealsplit/internal/messaging"
	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/pkg/api"
)

// MessageService implements the Connect MessageService.
type MessageService struct {
	messages *messaging.Service
}

// NewMessageService creates a new MessageService.
func NewMessageService(messages *messaging.Service) *MessageService {
	return &MessageService{messages: messages}
}

func (s *MessageService) SendMessage(ctx context.Context, req *connect.Request[api.SendMessageRequest]) (*connect.Response[api.SendMessageResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Send(ctx, userID, req.Msg.ReceiverID, req.Msg.Content)
	if err != nil {
		return nil, toConnectError("SendMessage", err)
	}
	return connect.NewResponse(&api.SendMessageResponse{Message: api.MessageFromModel(msg)}), nil
}

func (s *MessageService) GetInbox(ctx context.Context, req *connect.Request[api.GetInboxRequest]) (*connect.Response[api.GetInboxResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	convs, err := s.messages.Inbox(ctx, userID)
	if err != nil {
		return nil, toConnectError("GetInbox", err)
	}

	out := make([]*api.Conversation, len(convs))
	for i, c := range convs {
		out[i] = api.ConversationFromModel(c, userID)
	}
	return connect.NewResponse(&api.GetInboxResponse{Conversations: out}), nil
}

func (s *MessageService) GetChat(ctx context.Context, req *connect.Request[api.GetChatRequest]) (*connect.Response[api.GetChatResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.Chat(ctx, userID, req.Msg.ConversationID)
	if err != nil {
		return nil, toConnectError("GetChat", err)
	}
	return connect.NewResponse(&api.GetChatResponse{Messages: messagesFromModels(msgs)}), nil
}

func (s *MessageService) MarkRead(ctx context.Context, req *connect.Request[api.MarkReadRequest]) (*connect.Response[api.MarkReadResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.messages.MarkRead(ctx, userID, req.Msg.ConversationID); err != nil {
		return nil, toConnectError("MarkRead", err)
	}
	return connect.NewResponse(&api.MarkReadResponse{}), nil
}

// DeleteConversation removes one of the caller's conversations.
func (s *MessageService) DeleteConversation(ctx context.Context, req *connect.Request[api.DeleteConversationRequest]) (*connect.Response[api.DeleteConversationResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	// Chat performs the participant check.
	if _, err := s.messages.Chat(ctx, userID, req.Msg.ConversationID); err != nil {
		return nil, toConnectError("DeleteConversation", err)
	}
	if err := s.messages.DeleteConversation(ctx, req.Msg.ConversationID); err != nil {
		return nil, toConnectError("DeleteConversation", err)
	}
	return connect.NewResponse(&api.DeleteConversationResponse{}), nil
}

// ClearInbox deletes every conversation of the caller.
func (s *MessageService) ClearInbox(ctx context.Context, req *connect.Request[api.ClearInboxRequest]) (*connect.Response[api.ClearInboxResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.messages.ClearAll(ctx, userID); err != nil {
		return nil, toConnectError("ClearInbox", err)
	}
	return connect.NewResponse(&api.ClearInboxResponse{}), nil
}

func messagesFromModels(msgs []*models.Message) []*api.Message {
	out := make([]*api.Message, len(msgs))
	for i, m := range msgs {
		out[i] = api.MessageFromModel(m)
	}
	return out
}
