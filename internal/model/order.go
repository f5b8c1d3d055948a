package model

import (
	"encoding/json"
	"fmt"
)

// Status 订单审核状态。系统自身只会写入 Success / Failed，
// Pending 是创建时的初始态；其余取值（Approved / Processing /
// Rejected / Cancelled）来自旧后端数据，仅作为只读标签容忍。
type Status string

const (
	StatusPending Status = "Pending"
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
	// StatusAll 仅用于管理端列表查询参数，不是订单状态。
	StatusAll Status = "All"
)

// ParseStatus 校验管理端查询参数里的状态取值。
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusSuccess, StatusFailed, StatusAll:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Terminal 报告订单是否已离开 Pending。离开后即为终态，
// 正常流程不提供回退到 Pending 的路径。
func (s Status) Terminal() bool {
	return s != StatusPending && s != ""
}

// WritableTarget 报告该状态是否允许作为审核写入目标。
func (s Status) WritableTarget() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Order 用户提交的购买请求。
// Price 字段新旧后端不一定都会填，指针区分"没有"和"为 0"。
// CreatedAt/UpdatedAt 原样透传后端字符串，网关不解析时间格式。
type Order struct {
	ID            FlexInt  `json:"id"`
	UserID        FlexInt  `json:"user_id"`
	Username      string   `json:"username,omitempty"`
	GameID        string   `json:"game_id"`
	ServerID      string   `json:"server_id"`
	GameName      string   `json:"game_name,omitempty"`
	ServerName    string   `json:"server_name,omitempty"`
	Amount        FlexInt  `json:"amount"`
	Price         *float64 `json:"price,omitempty"`
	PaymentNumber string   `json:"payment_number,omitempty"`
	PaymentName   string   `json:"payment_name,omitempty"`
	Status        Status   `json:"status"`
	AdminNotes    string   `json:"admin_notes,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

// UnmarshalJSON 兼容 amount / diamond_amount 两个历史字段名，
// 两者都有时以 amount 为准。
func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	aux := struct {
		*alias
		Amount        *FlexInt `json:"amount"`
		DiamondAmount *FlexInt `json:"diamond_amount"`
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Amount != nil:
		o.Amount = *aux.Amount
	case aux.DiamondAmount != nil:
		o.Amount = *aux.DiamondAmount
	}
	return nil
}

// Kind 判断订单对应的包类型，规则与 PricePackage.Kind 一致。
func (o Order) Kind() PackageKind {
	if o.Amount.Int64() == passAmountSentinel {
		return KindWeeklyPass
	}
	return KindDiamonds
}

// EffectiveStatus 缺失状态按 Pending 处理（旧数据可能没有该字段）。
func (o Order) EffectiveStatus() Status {
	if o.Status == "" {
		return StatusPending
	}
	return o.Status
}

// DisplayGame 展示用：优先 game_name，缺失时退回 game_id。
func (o Order) DisplayGame() string {
	if o.GameName != "" {
		return o.GameName
	}
	return o.GameID
}

// DisplayServer 展示用：优先 server_name，缺失时退回 server_id。
func (o Order) DisplayServer() string {
	if o.ServerName != "" {
		return o.ServerName
	}
	return o.ServerID
}
