package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opo-lang/opo/lang/types"
)

// A channel of capacity c admits exactly c non-blocking sends before the
// c+1th blocks (§5).
func TestChanCapacityAdmitsExactlyCapacityNonBlockingSends(t *testing.T) {
	ch := types.NewChan(types.KindInt, 2)
	data := ch.Obj().Chan

	require.NoError(t, data.Send(types.Int(1)))
	require.NoError(t, data.Send(types.Int(2)))

	done := make(chan struct{})
	go func() {
		require.NoError(t, data.Send(types.Int(3)))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("third send on a full channel did not block")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok := data.Recv()
	require.True(t, ok)
	require.Equal(t, int64(1), v.AsInt())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("third send never unblocked after a receive freed capacity")
	}
}

// A receive on an empty, closed channel returns (void, false) rather than
// blocking (§5: RECV "return void value and empty state if closed-empty").
func TestChanRecvAfterCloseOnEmptyReturnsVoid(t *testing.T) {
	ch := types.NewChan(types.KindInt, 1)
	data := ch.Obj().Chan

	data.Close()

	v, ok := data.Recv()
	require.False(t, ok)
	require.Equal(t, types.KindVoid, v.Kind())
}

// A send on a closed channel throws (§5: "if closed, releases and throws").
func TestChanSendAfterCloseErrors(t *testing.T) {
	ch := types.NewChan(types.KindInt, 1)
	data := ch.Obj().Chan

	data.Close()

	err := data.Send(types.Int(9))
	require.ErrorIs(t, err, types.ErrSendOnClosed)
}

// A receive still drains values buffered before close, only returning the
// closed-empty signal once the buffer is exhausted.
func TestChanRecvDrainsBufferedValuesBeforeReportingClosed(t *testing.T) {
	ch := types.NewChan(types.KindInt, 2)
	data := ch.Obj().Chan

	require.NoError(t, data.Send(types.Int(11)))
	require.NoError(t, data.Send(types.Int(22)))
	data.Close()

	v1, ok1 := data.Recv()
	require.True(t, ok1)
	require.Equal(t, int64(11), v1.AsInt())

	v2, ok2 := data.Recv()
	require.True(t, ok2)
	require.Equal(t, int64(22), v2.AsInt())

	_, ok3 := data.Recv()
	require.False(t, ok3)
}
