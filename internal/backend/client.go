package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"diamond_shop/internal/model"
)

// Client 远端商城后端的 REST 客户端。
// 后端是用户、订单、价目表的唯一事实来源，这里只消费它的契约。
// 不设置客户端级超时，生命周期完全由调用方传入的 context 控制；
// 一旦请求发出也不提供主动取消之外的中断手段。
type Client struct {
	baseURL string
	http    *http.Client
}

// New 创建后端客户端。baseURL 形如 https://host，结尾斜杠会被去掉。
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

// do 发送一次 JSON 往返。统一三类失败路径：
// - 传输层错误：原样包装返回；
// - 响应体携带 error 字段：无论 HTTP 状态码如何都按业务失败处理；
// - HTTP >= 400 且无 error 字段：用状态码合成 APIError。
// 成功时把响应体解码进 out（out 可为 nil）。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("backend: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read %s %s: %w", method, path, err)
	}

	// 传输成功但业务失败：响应体带 error 字段
	var probe struct {
		Error string `json:"error"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &probe); err == nil && probe.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: probe.Error}
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// authResp 登录/注册共用的响应形状。
type authResp struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// Login 代理后端登录。成功返回用户副本与服务端文案。
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	var out authResp
	err := c.do(ctx, http.MethodPost, "/login", nil, map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return nil, "", err
	}
	if out.User == nil {
		return nil, "", &APIError{StatusCode: http.StatusOK, Message: "login response missing user"}
	}
	return out.User, out.Message, nil
}

// Register 代理后端注册。
func (c *Client) Register(ctx context.Context, username, password, telegramID string) (*model.User, string, error) {
	var out authResp
	err := c.do(ctx, http.MethodPost, "/register", nil, map[string]string{
		"username":    username,
		"password":    password,
		"telegram_id": telegramID,
	}, &out)
	if err != nil {
		return nil, "", err
	}
	if out.User == nil {
		return nil, "", &APIError{StatusCode: http.StatusOK, Message: "register response missing user"}
	}
	return out.User, out.Message, nil
}

// pricesResp 价目表响应包络。
type pricesResp struct {
	Prices []model.PricePackage `json:"prices"`
}

// ListPrices 查询价目表。过滤在服务端完成：两个参数都省略返回全量，
// 只给 game 缩小到该游戏，game+server 进一步缩小。
func (c *Client) ListPrices(ctx context.Context, game, server string) ([]model.PricePackage, error) {
	q := url.Values{}
	if game != "" {
		q.Set("game_name", game)
	}
	if game != "" && server != "" {
		q.Set("server_name", server)
	}
	var out pricesResp
	if err := c.do(ctx, http.MethodGet, "/diamond-prices", q, nil, &out); err != nil {
		return nil, err
	}
	// 空列表和失败是两回事：走到这里必然是一次成功响应
	if out.Prices == nil {
		out.Prices = []model.PricePackage{}
	}
	return out.Prices, nil
}

// ListPricesAdmin 管理端全量价目表。
func (c *Client) ListPricesAdmin(ctx context.Context) ([]model.PricePackage, error) {
	var out pricesResp
	if err := c.do(ctx, http.MethodGet, "/admin/diamond-prices", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Prices == nil {
		out.Prices = []model.PricePackage{}
	}
	return out.Prices, nil
}

// priceResp 兼容两种返回形状：包对象直接在顶层，或包在 price 字段里。
type priceResp struct {
	model.PricePackage
	Price *model.PricePackage `json:"price"`
}

func (r priceResp) unwrap() *model.PricePackage {
	if r.Price != nil {
		return r.Price
	}
	p := r.PricePackage
	return &p
}

// CreatePrice 新建价目条目。字段校验由 catalog 层在调用前完成。
func (c *Client) CreatePrice(ctx context.Context, game, server string, amount int64, price float64) (*model.PricePackage, error) {
	var out priceResp
	err := c.do(ctx, http.MethodPost, "/admin/diamond-prices", nil, map[string]any{
		"game_name":   game,
		"server_name": server,
		"amount":      amount,
		"price":       price,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.unwrap(), nil
}

// UpdatePrice 按 id 整体替换四个可变字段。
func (c *Client) UpdatePrice(ctx context.Context, id int64, game, server string, amount int64, price float64) (*model.PricePackage, error) {
	var out priceResp
	err := c.do(ctx, http.MethodPut, "/admin/diamond-prices", nil, map[string]any{
		"id":          id,
		"game_name":   game,
		"server_name": server,
		"amount":      amount,
		"price":       price,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.unwrap(), nil
}

// DeletePrice 删除价目条目，不可逆。二次确认是上层 UI 的责任。
func (c *Client) DeletePrice(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/admin/diamond-prices", nil, map[string]any{"id": id}, nil)
}

// buyResp 下单响应。
type buyResp struct {
	Message string `json:"message"`
}

// BuyDiamond 提交购买请求。注意契约字段是驼峰命名（历史原因），
// 支付方式只参与本地校验，后端不收这个字段。
func (c *Client) BuyDiamond(ctx context.Context, userID, packageID int64, gameID, serverID, paymentNumber, paymentName string) (string, error) {
	var out buyResp
	err := c.do(ctx, http.MethodPost, "/buy-diamond", nil, map[string]any{
		"userId":        userID,
		"packageId":     packageID,
		"gameId":        gameID,
		"serverId":      serverID,
		"paymentNumber": paymentNumber,
		"paymentName":   paymentName,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Message == "" {
		out.Message = "Purchase request submitted successfully!"
	}
	return out.Message, nil
}

// purchasesResp 订单列表响应包络。
type purchasesResp struct {
	Purchases []model.Order `json:"purchases"`
}

// PurchaseHistory 查询某用户的全部订单。
func (c *Client) PurchaseHistory(ctx context.Context, userID int64) ([]model.Order, error) {
	q := url.Values{}
	q.Set("user_id", fmt.Sprintf("%d", userID))
	var out purchasesResp
	if err := c.do(ctx, http.MethodGet, "/purchase-history", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Purchases == nil {
		out.Purchases = []model.Order{}
	}
	return out.Purchases, nil
}

// ListPurchases 管理端按状态查询订单，status 取 Pending/Success/Failed/All。
func (c *Client) ListPurchases(ctx context.Context, status model.Status) ([]model.Order, error) {
	q := url.Values{}
	q.Set("status", string(status))
	var out purchasesResp
	if err := c.do(ctx, http.MethodGet, "/admin/purchases", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Purchases == nil {
		out.Purchases = []model.Order{}
	}
	return out.Purchases, nil
}

// FilterPurchases 管理端按用户名过滤订单（服务端过滤）。
func (c *Client) FilterPurchases(ctx context.Context, username string) ([]model.Order, error) {
	q := url.Values{}
	q.Set("username", username)
	var out purchasesResp
	if err := c.do(ctx, http.MethodGet, "/admin/filter-purchases", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Purchases == nil {
		out.Purchases = []model.Order{}
	}
	return out.Purchases, nil
}

// UpdatePurchase 管理员写入审核结论（Success/Failed）与备注。
func (c *Client) UpdatePurchase(ctx context.Context, purchaseID int64, status model.Status, adminNotes string) error {
	return c.do(ctx, http.MethodPost, "/admin/update-purchase", nil, map[string]any{
		"purchase_id": purchaseID,
		"status":      string(status),
		"admin_notes": adminNotes,
	}, nil)
}
