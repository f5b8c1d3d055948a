package order

import "diamond_shop/internal/model"

// PriceResolution 价格解析结果。Resolved=false 时 Price 恒为 0，
// 展示层必须渲染 "N/A" 而不是 "0 MMK"——本域不存在免费包，
// 0 只是"解析不出来"的哨兵。
type PriceResolution struct {
	Price    float64
	Resolved bool
}

// ResolvePrice 确定一笔历史订单的展示价格，严格按优先级：
// 1. 订单自带 price 字段则原样返回（下单时的快照，权威）；
// 2. 否则按钻石数量在当前价目表快照里找同 amount 的包；
// 3. 都没有则标记为未解析。
// 第 2 步是对旧数据的尽力近似：价目表可能在下单后改过价，
// 这是已接受并记录在案的不精确，不做掩饰。
func ResolvePrice(o model.Order, catalog []model.PricePackage) PriceResolution {
	if o.Price != nil {
		return PriceResolution{Price: *o.Price, Resolved: true}
	}
	for _, p := range catalog {
		if p.Amount.Int64() == o.Amount.Int64() {
			return PriceResolution{Price: p.Price, Resolved: true}
		}
	}
	return PriceResolution{}
}
