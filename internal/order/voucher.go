package order

import "fmt"

// 凭证号：固定前缀 + 订单 id 补零到 8 位。只用于展示和客服对账，
// 后端 API 一律用数字订单 id，凭证号永远不会传回去。
const (
	voucherPrefix = "VOU-"
	voucherWidth  = 8
)

// VoucherOf 由订单 id 确定性生成凭证号，如 VoucherOf(42) == "VOU-00000042"。
func VoucherOf(orderID int64) string {
	return fmt.Sprintf("%s%0*d", voucherPrefix, voucherWidth, orderID)
}
