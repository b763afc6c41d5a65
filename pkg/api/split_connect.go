package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// SplitServiceName is the fully-qualified name of the split service.
const SplitServiceName = "mealsplit.v1.SplitService"

// Split service procedures.
const (
	SplitServiceCreateSplitProcedure  = "/mealsplit.v1.SplitService/CreateSplit"
	SplitServiceJoinSplitProcedure    = "/mealsplit.v1.SplitService/JoinSplit"
	SplitServiceLeaveSplitProcedure   = "/mealsplit.v1.SplitService/LeaveSplit"
	SplitServiceMarkCompleteProcedure = "/mealsplit.v1.SplitService/MarkComplete"
	SplitServiceDeleteSplitProcedure  = "/mealsplit.v1.SplitService/DeleteSplit"
	SplitServiceGetSplitProcedure     = "/mealsplit.v1.SplitService/GetSplit"
	SplitServiceListSplitsProcedure   = "/mealsplit.v1.SplitService/ListSplits"
	SplitServiceGetActivityProcedure  = "/mealsplit.v1.SplitService/GetActivity"
)

// SplitServiceHandler is implemented by the server side of the split service.
type SplitServiceHandler interface {
	CreateSplit(context.Context, *connect.Request[CreateSplitRequest]) (*connect.Response[CreateSplitResponse], error)
	JoinSplit(context.Context, *connect.Request[JoinSplitRequest]) (*connect.Response[JoinSplitResponse], error)
	LeaveSplit(context.Context, *connect.Request[LeaveSplitRequest]) (*connect.Response[LeaveSplitResponse], error)
	MarkComplete(context.Context, *connect.Request[MarkCompleteRequest]) (*connect.Response[MarkCompleteResponse], error)
	DeleteSplit(context.Context, *connect.Request[DeleteSplitRequest]) (*connect.Response[DeleteSplitResponse], error)
	GetSplit(context.Context, *connect.Request[GetSplitRequest]) (*connect.Response[GetSplitResponse], error)
	ListSplits(context.Context, *connect.Request[ListSplitsRequest]) (*connect.Response[ListSplitsResponse], error)
	GetActivity(context.Context, *connect.Request[GetActivityRequest]) (*connect.Response[GetActivityResponse], error)
}

// NewSplitServiceHandler builds an HTTP handler for the split service and
// returns the path prefix to mount it on.
func NewSplitServiceHandler(svc SplitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SplitServiceCreateSplitProcedure, connect.NewUnaryHandler(SplitServiceCreateSplitProcedure, svc.CreateSplit, opts...))
	mux.Handle(SplitServiceJoinSplitProcedure, connect.NewUnaryHandler(SplitServiceJoinSplitProcedure, svc.JoinSplit, opts...))
	mux.Handle(SplitServiceLeaveSplitProcedure, connect.NewUnaryHandler(SplitServiceLeaveSplitProcedure, svc.LeaveSplit, opts...))
	mux.Handle(SplitServiceMarkCompleteProcedure, connect.NewUnaryHandler(SplitServiceMarkCompleteProcedure, svc.MarkComplete, opts...))
	mux.Handle(SplitServiceDeleteSplitProcedure, connect.NewUnaryHandler(SplitServiceDeleteSplitProcedure, svc.DeleteSplit, opts...))
	mux.Handle(SplitServiceGetSplitProcedure, connect.NewUnaryHandler(SplitServiceGetSplitProcedure, svc.GetSplit, opts...))
	mux.Handle(SplitServiceListSplitsProcedure, connect.NewUnaryHandler(SplitServiceListSplitsProcedure, svc.ListSplits, opts...))
	mux.Handle(SplitServiceGetActivityProcedure, connect.NewUnaryHandler(SplitServiceGetActivityProcedure, svc.GetActivity, opts...))

	return "/" + SplitServiceName + "/", mux
}

// SplitClient is a typed client for the split service.
type SplitClient struct {
	createSplit  *connect.Client[CreateSplitRequest, CreateSplitResponse]
	joinSplit    *connect.Client[JoinSplitRequest, JoinSplitResponse]
	leaveSplit   *connect.Client[LeaveSplitRequest, LeaveSplitResponse]
	markComplete *connect.Client[MarkCompleteRequest, MarkCompleteResponse]
	deleteSplit  *connect.Client[DeleteSplitRequest, DeleteSplitResponse]
	getSplit     *connect.Client[GetSplitRequest, GetSplitResponse]
	listSplits   *connect.Client[ListSplitsRequest, ListSplitsResponse]
	getActivity  *connect.Client[GetActivityRequest, GetActivityResponse]
}

// NewSplitClient creates a client for the split service at baseURL.
func NewSplitClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SplitClient {
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &SplitClient{
		createSplit:  connect.NewClient[CreateSplitRequest, CreateSplitResponse](httpClient, baseURL+SplitServiceCreateSplitProcedure, opts...),
		joinSplit:    connect.NewClient[JoinSplitRequest, JoinSplitResponse](httpClient, baseURL+SplitServiceJoinSplitProcedure, opts...),
		leaveSplit:   connect.NewClient[LeaveSplitRequest, LeaveSplitResponse](httpClient, baseURL+SplitServiceLeaveSplitProcedure, opts...),
		markComplete: connect.NewClient[MarkCompleteRequest, MarkCompleteResponse](httpClient, baseURL+SplitServiceMarkCompleteProcedure, opts...),
		deleteSplit:  connect.NewClient[DeleteSplitRequest, DeleteSplitResponse](httpClient, baseURL+SplitServiceDeleteSplitProcedure, opts...),
		getSplit:     connect.NewClient[GetSplitRequest, GetSplitResponse](httpClient, baseURL+SplitServiceGetSplitProcedure, opts...),
		listSplits:   connect.NewClient[ListSplitsRequest, ListSplitsResponse](httpClient, baseURL+SplitServiceListSplitsProcedure, opts...),
		getActivity:  connect.NewClient[GetActivityRequest, GetActivityResponse](httpClient, baseURL+SplitServiceGetActivityProcedure, opts...),
	}
}

func (c *SplitClient) CreateSplit(ctx context.Context, req *connect.Request[CreateSplitRequest]) (*connect.Response[CreateSplitResponse], error) {
	return c.createSplit.CallUnary(ctx, req)
}

func (c *SplitClient) JoinSplit(ctx context.Context, req *connect.Request[JoinSplitRequest]) (*connect.Response[JoinSplitResponse], error) {
	return c.joinSplit.CallUnary(ctx, req)
}

func (c *SplitClient) LeaveSplit(ctx context.Context, req *connect.Request[LeaveSplitRequest]) (*connect.Response[LeaveSplitResponse], error) {
	return c.leaveSplit.CallUnary(ctx, req)
}

func (c *SplitClient) MarkComplete(ctx context.Context, req *connect.Request[MarkCompleteRequest]) (*connect.Response[MarkCompleteResponse], error) {
	return c.markComplete.CallUnary(ctx, req)
}

func (c *SplitClient) DeleteSplit(ctx context.Context, req *connect.Request[DeleteSplitRequest]) (*connect.Response[DeleteSplitResponse], error) {
	return c.deleteSplit.CallUnary(ctx, req)
}

func (c *SplitClient) GetSplit(ctx context.Context, req *connect.Request[GetSplitRequest]) (*connect.Response[GetSplitResponse], error) {
	return c.getSplit.CallUnary(ctx, req)
}

func (c *SplitClient) ListSplits(ctx context.Context, req *connect.Request[ListSplitsRequest]) (*connect.Response[ListSplitsResponse], error) {
	return c.listSplits.CallUnary(ctx, req)
}

func (c *SplitClient) GetActivity(ctx context.Context, req *connect.Request[GetActivityRequest]) (*connect.Response[GetActivityResponse], error) {
	return c.getActivity.CallUnary(ctx, req)
}
