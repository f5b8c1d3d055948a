package model

import "fmt"

// PackageKind 区分钻石包和周卡。
// 线上数据用 amount == 0 这个哨兵值表示周卡，这里在解码边界把它
// 转成显式的枚举，业务代码不再直接跟 0 比较。
type PackageKind int

const (
	KindDiamonds PackageKind = iota
	KindWeeklyPass
)

func (k PackageKind) String() string {
	if k == KindWeeklyPass {
		return "Weekly Pass"
	}
	return "Diamonds"
}

// passAmountSentinel 是后端契约里表示周卡的保留值，只允许在
// Kind() 这一个地方出现。
const passAmountSentinel = 0

// PricePackage 价目表中的一个可售包。
// 约束：同一 (game, server) 下 amount 唯一，由后端保证。
type PricePackage struct {
	ID         FlexInt `json:"id"`
	GameName   string  `json:"game_name"`
	ServerName string  `json:"server_name"`
	Amount     FlexInt `json:"amount"`
	Price      float64 `json:"price"`
}

// Kind 判断包类型。amount 哨兵值的唯一判定点。
func (p PricePackage) Kind() PackageKind {
	if p.Amount.Int64() == passAmountSentinel {
		return KindWeeklyPass
	}
	return KindDiamonds
}

// Label 返回展示名："Weekly Pass" 或 "100 Diamonds"。
func (p PricePackage) Label() string {
	if p.Kind() == KindWeeklyPass {
		return KindWeeklyPass.String()
	}
	return fmt.Sprintf("%d Diamonds", p.Amount.Int64())
}
