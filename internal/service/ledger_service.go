// Package service exposes the ledger over Connect RPC. Messages are JSON
// structs rather than generated protobuf types.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/grocerysplit/internal/ledger"
	"github.com/mmynk/grocerysplit/internal/lifecycle"
	"github.com/mmynk/grocerysplit/internal/middleware"
	"github.com/mmynk/grocerysplit/internal/models"
)

// ServiceName is the fully-qualified Connect service name.
const ServiceName = "grocerysplit.v1.LedgerService"

// Procedure returns the HTTP path for a method of the ledger service.
func Procedure(method string) string {
	return "/" + ServiceName + "/" + method
}

// LedgerService implements the ledger RPCs.
type LedgerService struct {
	ledger *ledger.Service
}

// NewLedgerService creates a LedgerService backed by svc.
func NewLedgerService(svc *ledger.Service) *LedgerService {
	return &LedgerService{ledger: svc}
}

// NewLedgerServiceHandler builds the HTTP handler for every procedure and
// returns the path prefix to mount it under.
func NewLedgerServiceHandler(s *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	mux := http.NewServeMux()
	handle := func(method string, h http.Handler) {
		mux.Handle(Procedure(method), h)
	}

	handle("CreateExpense", connect.NewUnaryHandler(Procedure("CreateExpense"), s.CreateExpense, opts...))
	handle("GetExpense", connect.NewUnaryHandler(Procedure("GetExpense"), s.GetExpense, opts...))
	handle("ListExpenses", connect.NewUnaryHandler(Procedure("ListExpenses"), s.ListExpenses, opts...))
	handle("DeleteExpense", connect.NewUnaryHandler(Procedure("DeleteExpense"), s.DeleteExpense, opts...))
	handle("UpdateShareStatus", connect.NewUnaryHandler(Procedure("UpdateShareStatus"), s.UpdateShareStatus, opts...))
	handle("SendFriendRequest", connect.NewUnaryHandler(Procedure("SendFriendRequest"), s.SendFriendRequest, opts...))
	handle("RespondToFriendRequest", connect.NewUnaryHandler(Procedure("RespondToFriendRequest"), s.RespondToFriendRequest, opts...))
	handle("RemoveFriend", connect.NewUnaryHandler(Procedure("RemoveFriend"), s.RemoveFriend, opts...))
	handle("CreateGroup", connect.NewUnaryHandler(Procedure("CreateGroup"), s.CreateGroup, opts...))
	handle("InviteMember", connect.NewUnaryHandler(Procedure("InviteMember"), s.InviteMember, opts...))
	handle("RespondToInvite", connect.NewUnaryHandler(Procedure("RespondToInvite"), s.RespondToInvite, opts...))
	handle("GetGroupBalances", connect.NewUnaryHandler(Procedure("GetGroupBalances"), s.GetGroupBalances, opts...))
	handle("GetFriendBalance", connect.NewUnaryHandler(Procedure("GetFriendBalance"), s.GetFriendBalance, opts...))
	handle("GetSettlementPlan", connect.NewUnaryHandler(Procedure("GetSettlementPlan"), s.GetSettlementPlan, opts...))
	handle("ListNotifications", connect.NewUnaryHandler(Procedure("ListNotifications"), s.ListNotifications, opts...))
	handle("MarkNotificationRead", connect.NewUnaryHandler(Procedure("MarkNotificationRead"), s.MarkNotificationRead, opts...))

	return "/" + ServiceName + "/", mux
}

// actor returns the authenticated caller.
func actor(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}
	return userID, nil
}

// CreateExpense handles expense creation; the caller is the payer.
func (s *LedgerService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("CreateExpense request received",
		"payer_id", userID,
		"total", models.Amount(msg.TotalAmount).String(),
		"participants", msg.ParticipantIDs,
		"group_id", msg.GroupID,
	)

	in := ledger.CreateExpenseInput{
		PayerID:        userID,
		TotalAmount:    models.Amount(msg.TotalAmount),
		ParticipantIDs: msg.ParticipantIDs,
		Mode:           models.SplitMode(msg.SplitMode),
		Weights:        msg.Weights,
		GroupID:        msg.GroupID,
		StoreName:      msg.StoreName,
		Notes:          msg.Notes,
		Items:          toItems(msg.Items),
	}
	if msg.PurchaseDate != nil {
		in.PurchaseDate = *msg.PurchaseDate
	}

	bundle, err := s.ledger.CreateExpense(ctx, in)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpense(bundle)}), nil
}

func (s *LedgerService) GetExpense(ctx context.Context, req *connect.Request[ExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	bundle, err := s.ledger.GetExpense(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpense(bundle)}), nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	var from, to time.Time
	if req.Msg.From != nil {
		from = *req.Msg.From
	}
	if req.Msg.To != nil {
		to = *req.Msg.To
	}
	bundles, err := s.ledger.ListExpenses(ctx, userID, req.Msg.GroupID, from, to)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &ListExpensesResponse{Expenses: make([]Expense, 0, len(bundles))}
	for i := range bundles {
		resp.Expenses = append(resp.Expenses, toExpense(&bundles[i]))
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[ExpenseRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.DeleteExpense(ctx, userID, req.Msg.ExpenseID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (s *LedgerService) UpdateShareStatus(ctx context.Context, req *connect.Request[UpdateShareStatusRequest]) (*connect.Response[ShareResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	share, err := s.ledger.UpdateShareStatus(ctx, userID, req.Msg.ShareID, models.ShareStatus(req.Msg.Status))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ShareResponse{Share: toShare(share)}), nil
}

func (s *LedgerService) SendFriendRequest(ctx context.Context, req *connect.Request[SendFriendRequestRequest]) (*connect.Response[FriendRequestResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	fr, err := s.ledger.SendFriendRequest(ctx, userID, req.Msg.ToUserID, req.Msg.Message)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&FriendRequestResponse{Request: toFriendRequest(fr)}), nil
}

func (s *LedgerService) RespondToFriendRequest(ctx context.Context, req *connect.Request[RespondToFriendRequestRequest]) (*connect.Response[FriendRequestResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	fr, err := s.ledger.RespondToFriendRequest(ctx, userID, req.Msg.RequestID, lifecycle.Action(req.Msg.Action))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&FriendRequestResponse{Request: toFriendRequest(fr)}), nil
}

func (s *LedgerService) RemoveFriend(ctx context.Context, req *connect.Request[RemoveFriendRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.RemoveFriend(ctx, userID, req.Msg.FriendID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	group, err := s.ledger.CreateGroup(ctx, userID, req.Msg.Name, req.Msg.Description)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

func (s *LedgerService) InviteMember(ctx context.Context, req *connect.Request[InviteMemberRequest]) (*connect.Response[MembershipResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.InviteMember(ctx, userID, req.Msg.GroupID, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MembershipResponse{Membership: toMembership(m)}), nil
}

func (s *LedgerService) RespondToInvite(ctx context.Context, req *connect.Request[RespondToInviteRequest]) (*connect.Response[MembershipResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.RespondToInvite(ctx, userID, req.Msg.GroupID, req.Msg.Accept)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MembershipResponse{Membership: toMembership(m)}), nil
}

func (s *LedgerService) GetGroupBalances(ctx context.Context, req *connect.Request[GroupBalancesRequest]) (*connect.Response[GroupBalancesResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.ledger.GetGroupBalances(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &GroupBalancesResponse{
		GroupID: balances.GroupID,
		Edges:   toEdges(balances.Edges),
		Members: make([]MemberBalance, 0, len(balances.Members)),
	}
	for _, m := range balances.Members {
		resp.Members = append(resp.Members, MemberBalance{
			UserID:     m.UserID,
			TotalLent:  int64(m.TotalLent),
			TotalOwed:  int64(m.TotalOwed),
			NetBalance: int64(m.NetBalance),
		})
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerService) GetFriendBalance(ctx context.Context, req *connect.Request[FriendBalanceRequest]) (*connect.Response[FriendBalanceResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.ledger.GetFriendBalance(ctx, userID, req.Msg.FriendID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&FriendBalanceResponse{Edges: toEdges(edges)}), nil
}

func (s *LedgerService) GetSettlementPlan(ctx context.Context, req *connect.Request[SettlementPlanRequest]) (*connect.Response[SettlementPlanResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	scope := models.GroupScope(req.Msg.GroupID)
	if req.Msg.FriendID != "" {
		scope = models.PairScope(userID, req.Msg.FriendID)
		if req.Msg.GroupID != "" {
			// Both set is ambiguous; let scope validation reject it.
			scope.GroupID = req.Msg.GroupID
		}
	}
	transfers, err := s.ledger.GetSettlementPlan(ctx, userID, scope)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SettlementPlanResponse{Transfers: toTransfers(transfers)}), nil
}

func (s *LedgerService) ListNotifications(ctx context.Context, req *connect.Request[ListNotificationsRequest]) (*connect.Response[ListNotificationsResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.ledger.ListNotifications(ctx, userID, req.Msg.UnreadOnly)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &ListNotificationsResponse{Notifications: make([]Notification, 0, len(list))}
	for i := range list {
		resp.Notifications = append(resp.Notifications, toNotification(&list[i]))
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerService) MarkNotificationRead(ctx context.Context, req *connect.Request[MarkNotificationReadRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.MarkNotificationRead(ctx, userID, req.Msg.NotificationID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}
