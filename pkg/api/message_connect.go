package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// MessageServiceName is the fully-qualified name of the message service.
const MessageServiceName = "mealsplit.v1.MessageService"

// Message service procedures.
const (
	MessageServiceSendMessageProcedure        = "/mealsplit.v1.MessageService/SendMessage"
	MessageServiceGetInboxProcedure           = "/mealsplit.v1.MessageService/GetInbox"
	MessageServiceGetChatProcedure            = "/mealsplit.v1.MessageService/GetChat"
	MessageServiceMarkReadProcedure           = "/mealsplit.v1.MessageService/MarkRead"
	MessageServiceDeleteConversationProcedure = "/mealsplit.v1.MessageService/DeleteConversation"
	MessageServiceClearInboxProcedure         = "/mealsplit.v1.MessageService/ClearInbox"
)

// MessageServiceHandler is implemented by the server side of the message service.
type MessageServiceHandler interface {
	SendMessage(context.Context, *connect.Request[SendMessageRequest]) (*connect.Response[SendMessageResponse], error)
	GetInbox(context.Context, *connect.Request[GetInboxRequest]) (*connect.Response[GetInboxResponse], error)
	GetChat(context.Context, *connect.Request[GetChatRequest]) (*connect.Response[GetChatResponse], error)
	MarkRead(context.Context, *connect.Request[MarkReadRequest]) (*connect.Response[MarkReadResponse], error)
	DeleteConversation(context.Context, *connect.Request[DeleteConversationRequest]) (*connect.Response[DeleteConversationResponse], error)
	ClearInbox(context.Context, *connect.Request[ClearInboxRequest]) (*connect.Response[ClearInboxResponse], error)
}

// NewMessageServiceHandler builds an HTTP handler for the message service and
// returns the path prefix to mount it on.
func NewMessageServiceHandler(svc MessageServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(MessageServiceSendMessageProcedure, connect.NewUnaryHandler(MessageServiceSendMessageProcedure, svc.SendMessage, opts...))
	mux.Handle(MessageServiceGetInboxProcedure, connect.NewUnaryHandler(MessageServiceGetInboxProcedure, svc.GetInbox, opts...))
	mux.Handle(MessageServiceGetChatProcedure, connect.NewUnaryHandler(MessageServiceGetChatProcedure, svc.GetChat, opts...))
	mux.Handle(MessageServiceMarkReadProcedure, connect.NewUnaryHandler(MessageServiceMarkReadProcedure, svc.MarkRead, opts...))
	mux.Handle(MessageServiceDeleteConversationProcedure, connect.NewUnaryHandler(MessageServiceDeleteConversationProcedure, svc.DeleteConversation, opts...))
	mux.Handle(MessageServiceClearInboxProcedure, connect.NewUnaryHandler(MessageServiceClearInboxProcedure, svc.ClearInbox, opts...))

	return "/" + MessageServiceName + "/", mux
}

// MessageClient is a typed client for the message service.
type MessageClient struct {
	sendMessage        *connect.Client[SendMessageRequest, SendMessageResponse]
	getInbox           *connect.Client[GetInboxRequest, GetInboxResponse]
	getChat            *connect.Client[GetChatRequest, GetChatResponse]
	markRead           *connect.Client[MarkReadRequest, MarkReadResponse]
	deleteConversation *connect.Client[DeleteConversationRequest, DeleteConversationResponse]
	clearInbox         *connect.Client[ClearInboxRequest, ClearInboxResponse]
}

// NewMessageClient creates a client for the message service at baseURL.
func NewMessageClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MessageClient {
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &MessageClient{
		sendMessage:        connect.NewClient[SendMessageRequest, SendMessageResponse](httpClient, baseURL+MessageServiceSendMessageProcedure, opts...),
		getInbox:           connect.NewClient[GetInboxRequest, GetInboxResponse](httpClient, baseURL+MessageServiceGetInboxProcedure, opts...),
		getChat:            connect.NewClient[GetChatRequest, GetChatResponse](httpClient, baseURL+MessageServiceGetChatProcedure, opts...),
		markRead:           connect.NewClient[MarkReadRequest, MarkReadResponse](httpClient, baseURL+MessageServiceMarkReadProcedure, opts...),
		deleteConversation: connect.NewClient[DeleteConversationRequest, DeleteConversationResponse](httpClient, baseURL+MessageServiceDeleteConversationProcedure, opts...),
		clearInbox:         connect.NewClient[ClearInboxRequest, ClearInboxResponse](httpClient, baseURL+MessageServiceClearInboxProcedure, opts...),
	}
}

func (c *MessageClient) SendMessage(ctx context.Context, req *connect.Request[SendMessageRequest]) (*connect.Response[SendMessageResponse], error) {
	return c.sendMessage.CallUnary(ctx, req)
}

func (c *MessageClient) GetInbox(ctx context.Context, req *connect.Request[GetInboxRequest]) (*connect.Response[GetInboxResponse], error) {
	return c.getInbox.CallUnary(ctx, req)
}

func (c *MessageClient) GetChat(ctx context.Context, req *connect.Request[GetChatRequest]) (*connect.Response[GetChatResponse], error) {
	return c.getChat.CallUnary(ctx, req)
}

func (c *MessageClient) MarkRead(ctx context.Context, req *connect.Request[MarkReadRequest]) (*connect.Response[MarkReadResponse], error) {
	return c.markRead.CallUnary(ctx, req)
}

func (c *MessageClient) DeleteConversation(ctx context.Context, req *connect.Request[DeleteConversationRequest]) (*connect.Response[DeleteConversationResponse], error) {
	return c.deleteConversation.CallUnary(ctx, req)
}

func (c *MessageClient) ClearInbox(ctx context.Context, req *connect.Request[ClearInboxRequest]) (*connect.Response[ClearInboxResponse], error) {
	return c.clearInbox.CallUnary(ctx, req)
}
