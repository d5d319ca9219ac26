package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/grocerysplit/internal/calculator"
	"github.com/mmynk/grocerysplit/internal/models"
)

// Monetary fields are integer minor units throughout.

type Item struct {
	ID            string          `json:"id,omitempty"`
	GroceryItemID string          `json:"groceryItemId,omitempty"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     int64           `json:"unitPrice"`
	TotalPrice    int64           `json:"totalPrice,omitempty"`
}

type Share struct {
	ID         string           `json:"id"`
	UserID     string           `json:"userId"`
	Amount     int64            `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Status     string           `json:"status"`
	PaidAt     *time.Time       `json:"paidAt,omitempty"`
}

type Expense struct {
	ID           string    `json:"id"`
	CreatedBy    string    `json:"createdBy"`
	GroupID      string    `json:"groupId,omitempty"`
	TotalAmount  int64     `json:"totalAmount"`
	SplitMode    string    `json:"splitMode"`
	PurchaseDate time.Time `json:"purchaseDate"`
	StoreName    string    `json:"storeName,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Items        []Item    `json:"items"`
	Shares       []Share   `json:"shares"`
}

type CreateExpenseRequest struct {
	TotalAmount    int64                      `json:"totalAmount"`
	ParticipantIDs []string                   `json:"participantIds"`
	SplitMode      string                     `json:"splitMode,omitempty"`
	Weights        map[string]decimal.Decimal `json:"weights,omitempty"`
	GroupID        string                     `json:"groupId,omitempty"`
	PurchaseDate   *time.Time                 `json:"purchaseDate,omitempty"`
	StoreName      string                     `json:"storeName,omitempty"`
	Notes          string                     `json:"notes,omitempty"`
	Items          []Item                     `json:"items,omitempty"`
}

type ExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type ExpenseResponse struct {
	Expense Expense `json:"expense"`
}

// ListExpensesRequest filters by purchase date, both ends inclusive. With a
// group id every expense of that group is listed.
type ListExpensesRequest struct {
	GroupID string     `json:"groupId,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type UpdateShareStatusRequest struct {
	ShareID string `json:"shareId"`
	Status  string `json:"status"`
}

type ShareResponse struct {
	Share Share `json:"share"`
}

type FriendRequest struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type SendFriendRequestRequest struct {
	ToUserID string `json:"toUserId"`
	Message  string `json:"message,omitempty"`
}

type RespondToFriendRequestRequest struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
}

type FriendRequestResponse struct {
	Request FriendRequest `json:"request"`
}

type RemoveFriendRequest struct {
	FriendID string `json:"friendId"`
}

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Membership struct {
	GroupID  string    `json:"groupId"`
	UserID   string    `json:"userId"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joinedAt"`
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type GroupResponse struct {
	Group Group `json:"group"`
}

type InviteMemberRequest struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type RespondToInviteRequest struct {
	GroupID string `json:"groupId"`
	Accept  bool   `json:"accept"`
}

type MembershipResponse struct {
	Membership Membership `json:"membership"`
}

type DebtEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type MemberBalance struct {
	UserID     string `json:"userId"`
	TotalLent  int64  `json:"totalLent"`
	TotalOwed  int64  `json:"totalOwed"`
	NetBalance int64  `json:"netBalance"`
}

type GroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GroupBalancesResponse struct {
	GroupID string          `json:"groupId"`
	Edges   []DebtEdge      `json:"edges"`
	Members []MemberBalance `json:"members"`
}

type FriendBalanceRequest struct {
	FriendID string `json:"friendId"`
}

type FriendBalanceResponse struct {
	Edges []DebtEdge `json:"edges"`
}

// SettlementPlanRequest names either a group or a friend; the friend scope
// is the pair formed with the caller.
type SettlementPlanRequest struct {
	GroupID  string `json:"groupId,omitempty"`
	FriendID string `json:"friendId,omitempty"`
}

type Transfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type SettlementPlanResponse struct {
	Transfers []Transfer `json:"transfers"`
}

type Notification struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"isRead"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ListNotificationsRequest struct {
	UnreadOnly bool `json:"unreadOnly,omitempty"`
}

type ListNotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
}

type MarkNotificationReadRequest struct {
	NotificationID string `json:"notificationId"`
}

func toExpense(b *models.ExpenseBundle) Expense {
	e := b.Expense
	out := Expense{
		ID:           e.ID,
		CreatedBy:    e.CreatedBy,
		GroupID:      e.GroupID,
		TotalAmount:  int64(e.TotalAmount),
		SplitMode:    string(e.SplitMode),
		PurchaseDate: e.PurchaseDate,
		StoreName:    e.StoreName,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt,
		Items:        make([]Item, 0, len(b.Items)),
		Shares:       make([]Share, 0, len(b.Shares)),
	}
	for _, item := range b.Items {
		out.Items = append(out.Items, Item{
			ID:            item.ID,
			GroceryItemID: item.GroceryItemID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     int64(item.UnitPrice),
			TotalPrice:    int64(item.TotalPrice),
		})
	}
	for i := range b.Shares {
		out.Shares = append(out.Shares, toShare(&b.Shares[i]))
	}
	return out
}

func toShare(s *models.ExpenseShare) Share {
	return Share{
		ID:         s.ID,
		UserID:     s.UserID,
		Amount:     int64(s.Amount),
		Percentage: s.Percentage,
		Status:     string(s.Status),
		PaidAt:     s.PaidAt,
	}
}

func toItems(items []Item) []models.ExpenseItem {
	out := make([]models.ExpenseItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.ExpenseItem{
			GroceryItemID: item.GroceryItemID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     models.Amount(item.UnitPrice),
			TotalPrice:    models.Amount(item.TotalPrice),
		})
	}
	return out
}

func toFriendRequest(r *models.FriendRequest) FriendRequest {
	return FriendRequest{
		ID:         r.ID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		Message:    r.Message,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toGroup(g *models.Group) Group {
	return Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
	}
}

func toMembership(m *models.GroupMembership) Membership {
	return Membership{
		GroupID:  m.GroupID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		Status:   string(m.Status),
		JoinedAt: m.JoinedAt,
	}
}

func toEdges(edges []calculator.DebtEdge) []DebtEdge {
	out := make([]DebtEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, DebtEdge{From: e.From, To: e.To, Amount: int64(e.Amount)})
	}
	return out
}

func toTransfers(transfers []calculator.Transfer) []Transfer {
	out := make([]Transfer, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, Transfer{From: t.From, To: t.To, Amount: int64(t.Amount)})
	}
	return out
}

func toNotification(n *models.Notification) Notification {
	out := Notification{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.Data != nil {
		out.Data = n.Data.AsMap()
	}
	return out
}
