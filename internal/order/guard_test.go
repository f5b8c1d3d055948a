package order

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"diamond_shop/internal/backend"
	"diamond_shop/internal/model"
)

func validInput() SubmissionInput {
	return SubmissionInput{
		PackageID:     1,
		GameID:        "10001",
		ServerID:      "2001",
		PaymentMethod: "wave",
		PaymentNumber: "099813454",
		PaymentName:   "Kyaw Kyaw",
	}
}

// countingBackend 返回后端客户端和命中计数。release 非 nil 时
// handler 会阻塞到它关闭，用来制造"在途提交"窗口。
func countingBackend(t *testing.T, release chan struct{}) (*backend.Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if release != nil {
			<-release
		}
		fmt.Fprint(w, `{"message":"Purchase request submitted successfully!"}`)
	}))
	t.Cleanup(srv.Close)
	return backend.New(srv.URL), &calls
}

func TestSubmitMissingFieldsNoNetworkCall(t *testing.T) {
	api, calls := countingBackend(t, nil)
	g := NewGuard(api, NewMemorySlot(time.Minute, 50*time.Millisecond))
	user := model.User{ID: 1, Username: "abc"}

	base := validInput()
	mutations := []func(*SubmissionInput){
		func(in *SubmissionInput) { in.GameID = "" },
		func(in *SubmissionInput) { in.ServerID = "" },
		func(in *SubmissionInput) { in.PaymentMethod = "" },
		func(in *SubmissionInput) { in.PaymentNumber = "" },
		func(in *SubmissionInput) { in.PaymentName = "  " },
	}
	for _, mutate := range mutations {
		in := base
		mutate(&in)
		_, err := g.Submit(context.Background(), user, in)
		require.ErrorIs(t, err, ErrMissingFields)
		require.Equal(t, "Please fill all fields", err.Error())
	}
	require.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestSubmitRejectsSecondInFlight(t *testing.T) {
	release := make(chan struct{})
	api, calls := countingBackend(t, release)
	g := NewGuard(api, NewMemorySlot(time.Minute, 50*time.Millisecond))
	user := model.User{ID: 1}

	done := make(chan error, 1)
	go func() {
		_, err := g.Submit(context.Background(), user, validInput())
		done <- err
	}()

	// 等第一笔真正打到后端（即已占住槽位）
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(calls) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// 第一笔未完成期间的重复触发：立即拒绝，不产生第二次网络调用
	_, err := g.Submit(context.Background(), user, validInput())
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))

	close(release)
	require.NoError(t, <-done)
}

func TestSubmitCooldownAfterCompletion(t *testing.T) {
	api, calls := countingBackend(t, nil)
	g := NewGuard(api, NewMemorySlot(time.Minute, 60*time.Millisecond))
	user := model.User{ID: 1}

	res, err := g.Submit(context.Background(), user, validInput())
	require.NoError(t, err)
	require.NotEmpty(t, res.RequestID)
	require.Equal(t, "Purchase request submitted successfully!", res.Message)

	// 完成后并不立刻释放：冷却期内的再触发仍被拒绝
	_, err = g.Submit(context.Background(), user, validInput())
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))

	// 冷却期过后恢复可用
	time.Sleep(120 * time.Millisecond)
	res2, err := g.Submit(context.Background(), user, validInput())
	require.NoError(t, err)
	require.NotEqual(t, res.RequestID, res2.RequestID)
	require.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestSubmitReleasesAfterFailure(t *testing.T) {
	// 后端报业务失败：错误原样上抛，槽位仍按冷却期释放
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"package not found"}`)
	}))
	t.Cleanup(srv.Close)

	g := NewGuard(backend.New(srv.URL), NewMemorySlot(time.Minute, 40*time.Millisecond))
	user := model.User{ID: 2}

	res, err := g.Submit(context.Background(), user, validInput())
	require.Error(t, err)
	apiErr, ok := backend.IsAPIError(err)
	require.True(t, ok)
	require.Equal(t, "package not found", apiErr.Message)
	// 失败的提交同样带 request_id，结果接口可以复查失败原因
	require.NotEmpty(t, res.RequestID)

	time.Sleep(80 * time.Millisecond)
	_, err = g.Submit(context.Background(), user, validInput())
	require.Error(t, err) // 仍是后端失败，但说明槽位已可再次占用
	_, ok = backend.IsAPIError(err)
	require.True(t, ok)
}

func TestSubmitDistinctUsersDoNotShareSlot(t *testing.T) {
	release := make(chan struct{})
	api, calls := countingBackend(t, release)
	g := NewGuard(api, NewMemorySlot(time.Minute, 50*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := g.Submit(context.Background(), model.User{ID: 1}, validInput())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(calls) == 1
	}, 2*time.Second, 5*time.Millisecond)

	done2 := make(chan error, 1)
	go func() {
		_, err := g.Submit(context.Background(), model.User{ID: 2}, validInput())
		done2 <- err
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(calls) == 2
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-done2)
}

func TestMemorySlotClaimSettle(t *testing.T) {
	s := NewMemorySlot(time.Minute, 50*time.Millisecond)
	ctx := context.Background()

	ok, err := s.Claim(ctx, 1, "tok-a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Claim(ctx, 1, "tok-b")
	require.NoError(t, err)
	require.False(t, ok)

	// settle 凭证不匹配时不动槽位
	require.NoError(t, s.Settle(ctx, 1, "tok-b"))
	ok, _ = s.Claim(ctx, 1, "tok-c")
	require.False(t, ok)

	require.NoError(t, s.Settle(ctx, 1, "tok-a"))
	time.Sleep(80 * time.Millisecond)
	ok, err = s.Claim(ctx, 1, "tok-d")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemorySlotHoldTTLFallback(t *testing.T) {
	// settle 永远不来（调用方挂死）时，兜底 TTL 到期后槽位自行释放
	s := NewMemorySlot(40*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()

	ok, _ := s.Claim(ctx, 1, "tok-a")
	require.True(t, ok)
	ok, _ = s.Claim(ctx, 1, "tok-b")
	require.False(t, ok)

	time.Sleep(60 * time.Millisecond)
	ok, _ = s.Claim(ctx, 1, "tok-c")
	require.True(t, ok)
}
