package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FlexInt 兼容历史上数字/字符串两种序列化形式的整型字段。
// 后端早期版本把 diamond amount 当字符串返回，新版本是数字，
// 解码时统一归一化为 int64，比较逻辑只做普通整数相等。
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// 兼容 "100.0" 这类带小数点的字符串形式
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid numeric value %q", s)
		}
		n = int64(fl)
	}
	*f = FlexInt(n)
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(f), 10)), nil
}

// Int64 返回归一化后的数值。
func (f FlexInt) Int64() int64 { return int64(f) }
