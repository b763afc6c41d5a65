package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// UserServiceName is the fully-qualified name of the user service.
const UserServiceName = "mealsplit.v1.UserService"

const UserServiceGetProfileProcedure = "/mealsplit.v1.UserService/GetProfile"

// UserServiceHandler is implemented by the server side of the user service.
type UserServiceHandler interface {
	GetProfile(context.Context, *connect.Request[GetProfileRequest]) (*connect.Response[GetProfileResponse], error)
}

// NewUserServiceHandler builds an HTTP handler for the user service.
func NewUserServiceHandler(svc UserServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(UserServiceGetProfileProcedure, connect.NewUnaryHandler(UserServiceGetProfileProcedure, svc.GetProfile, opts...))

	return "/" + UserServiceName + "/", mux
}

// UserClient is a typed client for the user service.
type UserClient struct {
	getProfile *connect.Client[GetProfileRequest, GetProfileResponse]
}

func NewUserClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *UserClient {
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &UserClient{
		getProfile: connect.NewClient[GetProfileRequest, GetProfileResponse](httpClient, baseURL+UserServiceGetProfileProcedure, opts...),
	}
}

func (c *UserClient) GetProfile(ctx context.Context, req *connect.Request[GetProfileRequest]) (*connect.Response[GetProfileResponse], error) {
	return c.getProfile.CallUnary(ctx, req)
}
